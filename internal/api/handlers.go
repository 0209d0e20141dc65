package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rhuanssauro/cisco-mcp-server/internal/pipeline"
	"github.com/rhuanssauro/cisco-mcp-server/pkg/models"
)

// Handler exposes the operation pipeline over REST. The response body is
// the same result contract the MCP tools return; only the HTTP status
// varies with the error kind.
type Handler struct {
	runner   *pipeline.Runner
	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(runner *pipeline.Runner, registry *prometheus.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		runner:   runner,
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.HealthCheck)
	if h.registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/api/v1")
	v1.GET("/devices", h.ListDevices)

	devices := v1.Group("/devices/:name")
	devices.POST("/show", h.Show)
	devices.POST("/config", h.Configure)
	devices.POST("/ping", h.Ping)
	devices.GET("/running-config", h.GetRunningConfig)
}

// HealthCheck returns the service health status.
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// ListDevices returns the inventory without secrets.
func (h *Handler) ListDevices(c echo.Context) error {
	return h.respond(c, h.runner.ListDevices())
}

// Show executes a read-only command on a device.
func (h *Handler) Show(c echo.Context) error {
	var req struct {
		Command string `json:"command"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	result := h.runner.RunShow(c.Request().Context(), c.Param("name"), req.Command)
	return h.respond(c, result)
}

// Configure applies configuration commands to a device.
func (h *Handler) Configure(c echo.Context) error {
	var req struct {
		Commands []string `json:"commands"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	result := h.runner.RunConfig(c.Request().Context(), c.Param("name"), req.Commands)
	return h.respond(c, result)
}

// Ping checks reachability of a target host from a device.
func (h *Handler) Ping(c echo.Context) error {
	var req struct {
		Target string `json:"target"`
		Count  int    `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	result := h.runner.Ping(c.Request().Context(), c.Param("name"), req.Target, req.Count)
	return h.respond(c, result)
}

// GetRunningConfig retrieves the running configuration of a device.
func (h *Handler) GetRunningConfig(c echo.Context) error {
	result := h.runner.GetRunningConfig(c.Request().Context(), c.Param("name"), c.QueryParam("section"))
	return h.respond(c, result)
}

// badRequest rejects a malformed request before any operation runs. The
// error kinds classify operation outcomes, so a client-side parse failure
// gets a plain error body instead of the operation contract.
func (h *Handler) badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func (h *Handler) respond(c echo.Context, result *models.OperationResult) error {
	return c.JSON(statusFor(result), result)
}

// statusFor maps the result contract onto HTTP statuses. A policy
// rejection is 403, an unknown device 404, and any device-side failure
// surfaces as a bad gateway because this service is only the mediator.
func statusFor(result *models.OperationResult) int {
	if result.Status == models.StatusOK {
		return http.StatusOK
	}
	switch result.Error.Kind {
	case models.KindGuardrailBlocked:
		return http.StatusForbidden
	case models.KindResolutionError:
		return http.StatusNotFound
	case models.KindConnectionError, models.KindExecutionError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
