package transport

import (
	"context"
	"fmt"

	"github.com/rhuanssauro/cisco-mcp-server/pkg/models"
)

// Session is one live connection to a device, owned by exactly one
// operation for its whole lifetime. A session is used for one logical
// operation and closed before the operation returns.
type Session interface {
	// Send executes a single command and returns its raw output.
	Send(ctx context.Context, command string) (string, error)

	// SendConfig applies an ordered configuration sequence, wrapping it in
	// the platform's mode entry/exit commands. It returns per-line outputs;
	// on a mid-sequence failure the outputs collected so far are returned
	// together with the error. Already-applied lines are not rolled back.
	SendConfig(ctx context.Context, lines []string) ([]string, error)

	// Ping runs a reachability check from the device to a target host.
	Ping(ctx context.Context, target string, count int) (string, error)

	// Close releases the connection. It is idempotent and best-effort.
	Close() error
}

// Transport establishes sessions against resolved device targets. One
// connection per call; there is no pooling or reuse across operations.
type Transport interface {
	Open(ctx context.Context, target models.DeviceTarget) (Session, error)
}

// PingCommand builds the platform's ping invocation.
func PingCommand(platform models.Platform, target string, count int) string {
	switch platform {
	case models.PlatformNXOS:
		return fmt.Sprintf("ping %s count %d", target, count)
	default:
		return fmt.Sprintf("ping %s repeat %d", target, count)
	}
}

// ConfigModeEnter returns the commands that open configuration mode.
func ConfigModeEnter(platform models.Platform) []string {
	return []string{"configure terminal"}
}

// ConfigModeExit returns the commands that leave configuration mode.
// IOS-XR uses a candidate datastore and needs an explicit commit.
func ConfigModeExit(platform models.Platform) []string {
	if platform == models.PlatformIOSXR {
		return []string{"commit", "end"}
	}
	return []string{"end"}
}

// DisablePagingCommand returns the command that turns off output paging so
// long command output cannot hang the session waiting for a keypress.
func DisablePagingCommand(platform models.Platform) string {
	return "terminal length 0"
}
