package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rhuanssauro/cisco-mcp-server/internal/guardrail"
	"github.com/rhuanssauro/cisco-mcp-server/internal/transport"
	"github.com/rhuanssauro/cisco-mcp-server/pkg/models"
)

// DefaultPingCount is used when the caller does not give a packet count.
const DefaultPingCount = 5

// Resolver turns device names into connection targets.
type Resolver interface {
	Resolve(name string) (models.DeviceTarget, error)
	List() map[string]models.DeviceInfo
}

// Runner executes every exposed operation through the same linear
// pipeline: resolve, validate, connect, execute, disconnect, respond.
// Validation always happens before any connection is opened, so a blocked
// command never reaches a device, not even partially. Runners hold no
// per-invocation state and are safe for concurrent use.
type Runner struct {
	resolver  Resolver
	transport transport.Transport
	guard     *guardrail.Engine
	logger    *zap.Logger
	metrics   *Metrics
}

// NewRunner creates a pipeline runner.
func NewRunner(resolver Resolver, tr transport.Transport, guard *guardrail.Engine, logger *zap.Logger) *Runner {
	return &Runner{
		resolver:  resolver,
		transport: tr,
		guard:     guard,
		logger:    logger,
	}
}

// SetMetrics attaches outcome counters.
func (r *Runner) SetMetrics(m *Metrics) {
	r.metrics = m
}

// RunShow executes a read-only diagnostic command.
func (r *Runner) RunShow(ctx context.Context, device, command string) *models.OperationResult {
	return r.finish("show", r.runShow(ctx, device, command))
}

func (r *Runner) runShow(ctx context.Context, device, command string) *models.OperationResult {
	target, err := r.resolver.Resolve(device)
	if err != nil {
		return models.FailureFrom(err)
	}

	if verdict := r.guard.ValidateShow(command); !verdict.Allowed {
		return r.blockedResult("show", verdict)
	}

	sess, err := r.transport.Open(ctx, target)
	if err != nil {
		return models.FailureFrom(err)
	}
	defer r.closeSession(sess, device)

	output, err := sess.Send(ctx, command)
	if err != nil {
		return models.FailureFrom(models.NewExecutionError(
			fmt.Sprintf("command %q failed on %s", command, device), output, err))
	}

	return models.OK(models.ShowData{Device: device, Command: command, Output: output})
}

// RunConfig applies an ordered configuration sequence. Wrapper lines
// (configure terminal / conf t / end) and blanks are stripped before
// validation; mode handling belongs to the transport.
func (r *Runner) RunConfig(ctx context.Context, device string, lines []string) *models.OperationResult {
	return r.finish("config", r.runConfig(ctx, device, lines))
}

func (r *Runner) runConfig(ctx context.Context, device string, lines []string) *models.OperationResult {
	normalized := NormalizeConfigLines(lines)
	if len(normalized) == 0 {
		r.metrics.observeBlock("config", "empty request")
		return models.Failure(models.KindGuardrailBlocked, "no configuration commands provided")
	}

	target, err := r.resolver.Resolve(device)
	if err != nil {
		return models.FailureFrom(err)
	}

	if verdict := r.guard.ValidateConfig(normalized); !verdict.Allowed {
		return r.blockedResult("config", verdict)
	}

	sess, err := r.transport.Open(ctx, target)
	if err != nil {
		return models.FailureFrom(err)
	}
	defer r.closeSession(sess, device)

	outputs, err := sess.SendConfig(ctx, normalized)
	if err != nil {
		// Already-applied lines are not rolled back; the partial output
		// says how far the sequence got.
		return models.FailureFrom(models.NewExecutionError(
			fmt.Sprintf("configuration of %s failed after %d of %d lines", device, len(outputs), len(normalized)),
			strings.Join(outputs, "\n"), err))
	}

	return models.OK(models.ConfigData{
		Device:          device,
		CommandsApplied: normalized,
		Output:          strings.Join(outputs, "\n"),
	})
}

// Ping runs a reachability check from a device to a target host.
func (r *Runner) Ping(ctx context.Context, device, targetHost string, count int) *models.OperationResult {
	return r.finish("ping", r.ping(ctx, device, targetHost, count))
}

func (r *Runner) ping(ctx context.Context, device, targetHost string, count int) *models.OperationResult {
	if count == 0 {
		count = DefaultPingCount
	}

	target, err := r.resolver.Resolve(device)
	if err != nil {
		return models.FailureFrom(err)
	}

	if verdict := r.guard.ValidatePing(targetHost, count); !verdict.Allowed {
		return r.blockedResult("ping", verdict)
	}

	sess, err := r.transport.Open(ctx, target)
	if err != nil {
		return models.FailureFrom(err)
	}
	defer r.closeSession(sess, device)

	output, err := sess.Ping(ctx, targetHost, count)
	if err != nil {
		return models.FailureFrom(models.NewExecutionError(
			fmt.Sprintf("ping from %s to %s failed", device, targetHost), output, err))
	}

	return models.OK(models.PingData{Device: device, Target: targetHost, Output: output})
}

// GetRunningConfig retrieves the running configuration, optionally
// filtered to one section. The command is server-built and always
// allowed; it never passes through caller-command validation.
func (r *Runner) GetRunningConfig(ctx context.Context, device, section string) *models.OperationResult {
	return r.finish("running_config", r.getRunningConfig(ctx, device, section))
}

func (r *Runner) getRunningConfig(ctx context.Context, device, section string) *models.OperationResult {
	target, err := r.resolver.Resolve(device)
	if err != nil {
		return models.FailureFrom(err)
	}

	if !validSection(section) {
		r.metrics.observeBlock("show", "input validation")
		return models.Failure(models.KindGuardrailBlocked,
			fmt.Sprintf("section filter %q blocked: only word characters, spaces, dots, dashes and slashes are permitted", section))
	}
	command := RunningConfigCommand(section)

	sess, err := r.transport.Open(ctx, target)
	if err != nil {
		return models.FailureFrom(err)
	}
	defer r.closeSession(sess, device)

	output, err := sess.Send(ctx, command)
	if err != nil {
		return models.FailureFrom(models.NewExecutionError(
			fmt.Sprintf("failed to read running configuration of %s", device), output, err))
	}

	return models.OK(models.ShowData{Device: device, Command: command, Output: output})
}

// ListDevices reports the inventory without touching any device.
func (r *Runner) ListDevices() *models.OperationResult {
	return r.finish("list_devices", models.OK(models.DevicesData{Devices: r.resolver.List()}))
}

// blockedResult converts a guardrail verdict into the error contract.
func (r *Runner) blockedResult(ruleset string, verdict guardrail.Verdict) *models.OperationResult {
	r.metrics.observeBlock(ruleset, verdict.Category)
	r.logger.Warn("Command blocked by guardrail",
		zap.String("ruleset", ruleset),
		zap.String("category", verdict.Category),
		zap.String("reason", verdict.Reason),
	)
	return models.Failure(models.KindGuardrailBlocked, verdict.Reason)
}

// closeSession releases a session on every exit path. Close failures
// cannot change an already-determined result, so they are logged and
// swallowed.
func (r *Runner) closeSession(sess transport.Session, device string) {
	if err := sess.Close(); err != nil {
		r.logger.Warn("Failed to close device session",
			zap.String("device", device),
			zap.Error(err),
		)
	}
}

func (r *Runner) finish(operation string, result *models.OperationResult) *models.OperationResult {
	r.metrics.observe(operation, string(result.Status))
	if result.Status == models.StatusError {
		r.logger.Info("Operation failed",
			zap.String("operation", operation),
			zap.String("kind", string(result.Error.Kind)),
			zap.String("message", result.Error.Message),
		)
	}
	return result
}

// configWrapperLines are stripped from configure requests: mode entry and
// exit is the transport's job and callers routinely paste them anyway.
var configWrapperLines = map[string]struct{}{
	"configure terminal": {},
	"conf t":             {},
	"end":                {},
}

// NormalizeConfigLines drops blank lines and mode wrapper lines, keeping
// caller order for the rest.
func NormalizeConfigLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, ok := configWrapperLines[strings.ToLower(trimmed)]; ok {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

var sectionRE = regexp.MustCompile(`^[\w .\-/]*$`)

// validSection accepts only plain section names; the filter is spliced
// into a device command, so anything shell-like is rejected.
func validSection(section string) bool {
	return sectionRE.MatchString(section)
}

// RunningConfigCommand builds the retrieval command, with an optional
// section filter.
func RunningConfigCommand(section string) string {
	section = strings.TrimSpace(section)
	if section == "" {
		return "show running-config"
	}
	return fmt.Sprintf("show running-config | section %s", section)
}
