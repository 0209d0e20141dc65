package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rhuanssauro/cisco-mcp-server/internal/pipeline"
)

// Server exposes the operation pipeline as MCP tools over stdio. Every
// tool call returns the operation result contract as a JSON text block,
// so a blocked or failed operation is still a successful tool call with
// status "error" in the payload.
type Server struct {
	mcp    *server.MCPServer
	runner *pipeline.Runner
	logger *zap.Logger
}

// NewServer builds the MCP server and registers all tools.
func NewServer(runner *pipeline.Runner, logger *zap.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"Cisco Network Tools",
			"1.0.0",
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		runner: runner,
		logger: logger,
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("cisco_show",
		mcp.WithDescription("Run a read-only show command on a Cisco device and return its output."),
		mcp.WithString("device", mcp.Required(),
			mcp.Description("Inventory name of the device")),
		mcp.WithString("command", mcp.Required(),
			mcp.Description("The show command to execute, e.g. 'show ip interface brief'")),
	), s.handleShow)

	s.mcp.AddTool(mcp.NewTool("cisco_configure",
		mcp.WithDescription("Apply configuration commands to a Cisco device. "+
			"Mode handling (configure terminal / end / commit) is automatic; do not include it."),
		mcp.WithString("device", mcp.Required(),
			mcp.Description("Inventory name of the device")),
		mcp.WithString("config_commands", mcp.Required(),
			mcp.Description("Configuration commands, one per line")),
	), s.handleConfigure)

	s.mcp.AddTool(mcp.NewTool("cisco_ping",
		mcp.WithDescription("Ping a target host from a Cisco device to check reachability."),
		mcp.WithString("device", mcp.Required(),
			mcp.Description("Inventory name of the device to ping from")),
		mcp.WithString("target", mcp.Required(),
			mcp.Description("Hostname or IP address to ping")),
		mcp.WithNumber("count",
			mcp.Description("Number of echo requests (default 5)")),
	), s.handlePing)

	s.mcp.AddTool(mcp.NewTool("cisco_get_running_config",
		mcp.WithDescription("Retrieve the running configuration of a Cisco device, optionally filtered to one section."),
		mcp.WithString("device", mcp.Required(),
			mcp.Description("Inventory name of the device")),
		mcp.WithString("section",
			mcp.Description("Optional section filter, e.g. 'interface' or 'router bgp'")),
	), s.handleGetRunningConfig)

	s.mcp.AddTool(mcp.NewTool("cisco_list_devices",
		mcp.WithDescription("List the devices available in the inventory with host, platform and port."),
	), s.handleListDevices)
}

func (s *Server) handleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device, err := req.RequireString("device")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(s.runner.RunShow(ctx, device, command))
}

func (s *Server) handleConfigure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device, err := req.RequireString("device")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	commands, err := req.RequireString("config_commands")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(s.runner.RunConfig(ctx, device, SplitConfigLines(commands)))
}

func (s *Server) handlePing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device, err := req.RequireString("device")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count := req.GetInt("count", 0)
	return s.result(s.runner.Ping(ctx, device, target, count))
}

func (s *Server) handleGetRunningConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device, err := req.RequireString("device")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	section := req.GetString("section", "")
	return s.result(s.runner.GetRunningConfig(ctx, device, section))
}

func (s *Server) handleListDevices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.result(s.runner.ListDevices())
}

// result serializes an operation result into the tool response. The
// result contract itself reports failures, so the tool-level error stays
// nil except when marshaling breaks.
func (s *Server) result(res interface{ JSON() ([]byte, error) }) (*mcp.CallToolResult, error) {
	raw, err := res.JSON()
	if err != nil {
		s.logger.Error("Failed to serialize operation result", zap.Error(err))
		return mcp.NewToolResultError("internal error: could not serialize result"), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// SplitConfigLines turns a newline-separated command block into
// individual lines. Carriage returns from Windows clients are dropped.
func SplitConfigLines(block string) []string {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimRight(line, "\r"))
	}
	return out
}
