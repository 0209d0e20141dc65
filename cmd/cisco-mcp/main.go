package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rhuanssauro/cisco-mcp-server/internal/api"
	"github.com/rhuanssauro/cisco-mcp-server/internal/config"
	"github.com/rhuanssauro/cisco-mcp-server/internal/guardrail"
	"github.com/rhuanssauro/cisco-mcp-server/internal/inventory"
	"github.com/rhuanssauro/cisco-mcp-server/internal/mcp"
	"github.com/rhuanssauro/cisco-mcp-server/internal/pipeline"
	"github.com/rhuanssauro/cisco-mcp-server/internal/transport"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cisco-mcp",
		Short: "MCP server for Cisco network devices",
		Long: `A mediator for running commands on Cisco IOS-XE, IOS-XR and NX-OS
devices over SSH, with guardrail validation of every command before it
reaches a device. Exposes MCP tools over stdio and an optional REST API.`,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(httpCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Stdout carries the protocol, so logs go to stderr only.
			logger, err := stderrLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			runner, _, err := buildRunner(logger)
			if err != nil {
				logger.Error("Failed to initialize", zap.Error(err))
				return err
			}

			logger.Info("Starting MCP server on stdio")
			return mcp.NewServer(runner, logger).ServeStdio()
		},
	}
}

func httpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "http",
		Short: "Serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			runner, cfg, err := buildRunner(logger)
			if err != nil {
				logger.Error("Failed to initialize", zap.Error(err))
				return err
			}

			registry := prometheus.NewRegistry()
			runner.SetMetrics(pipeline.NewMetrics(registry))

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.RequestID())
			e.Use(middleware.Recover())

			api.NewHandler(runner, registry, logger).RegisterRoutes(e)

			go func() {
				logger.Info("Starting REST API", zap.String("address", cfg.HTTP.Addr))
				if err := e.Start(cfg.HTTP.Addr); err != nil {
					logger.Info("HTTP server stopped", zap.Error(err))
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return e.Shutdown(ctx)
		},
	}
}

func validateCmd() *cobra.Command {
	var asConfig bool
	cmd := &cobra.Command{
		Use:   "validate [command]...",
		Short: "Check commands against the guardrails without any device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := guardrail.NewDefaultEngine()
			if asConfig {
				lines := pipeline.NormalizeConfigLines(args)
				if verdict := engine.ValidateConfig(lines); !verdict.Allowed {
					return fmt.Errorf("%s", verdict.Reason)
				}
				fmt.Printf("allowed: %d config line(s)\n", len(lines))
				return nil
			}
			command := strings.Join(args, " ")
			if verdict := engine.ValidateShow(command); !verdict.Allowed {
				return fmt.Errorf("%s", verdict.Reason)
			}
			fmt.Printf("allowed: %s\n", command)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asConfig, "config", false, "Validate as configuration lines instead of a show command")
	return cmd
}

func buildRunner(logger *zap.Logger) (*pipeline.Runner, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	resolver, err := inventory.NewResolver(inventory.Config{
		File:          cfg.InventoryFile,
		DeviceName:    cfg.Device.Name,
		Host:          cfg.Device.Host,
		Username:      cfg.Device.Username,
		Password:      cfg.Device.Password,
		Platform:      cfg.Device.Platform,
		Port:          cfg.Device.Port,
		AuthStrictKey: cfg.Device.AuthStrictKey,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading inventory: %w", err)
	}

	sshConfig := transport.DefaultSSHConfig()
	if cfg.SSH.ConnectTimeout > 0 {
		sshConfig.ConnectTimeout = cfg.SSH.ConnectTimeout
	}
	if cfg.SSH.CommandTimeout > 0 {
		sshConfig.CommandTimeout = cfg.SSH.CommandTimeout
	}
	if cfg.SSH.PingTimeout > 0 {
		sshConfig.PingTimeout = cfg.SSH.PingTimeout
	}
	sshConfig.KnownHostsFile = cfg.SSH.KnownHostsFile

	tr := transport.NewSSHTransport(sshConfig, logger)
	runner := pipeline.NewRunner(resolver, tr, guardrail.NewDefaultEngine(), logger)
	return runner, cfg, nil
}

func stderrLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
