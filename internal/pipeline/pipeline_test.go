package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rhuanssauro/cisco-mcp-server/internal/guardrail"
	"github.com/rhuanssauro/cisco-mcp-server/internal/transport"
	"github.com/rhuanssauro/cisco-mcp-server/pkg/models"
)

type fakeResolver struct {
	devices map[string]models.DeviceTarget
}

func (r *fakeResolver) Resolve(name string) (models.DeviceTarget, error) {
	target, ok := r.devices[name]
	if !ok {
		return models.DeviceTarget{}, models.NewResolutionError("device %q not in inventory", name)
	}
	return target, nil
}

func (r *fakeResolver) List() map[string]models.DeviceInfo {
	out := make(map[string]models.DeviceInfo, len(r.devices))
	for name, t := range r.devices {
		out[name] = models.DeviceInfo{Host: t.Host, Platform: t.Platform, Port: t.Port}
	}
	return out
}

// fakeSession scripts device behaviour and records lifecycle calls.
type fakeSession struct {
	sendOutput    string
	sendErr       error
	configOutputs []string
	configErr     error
	pingOutput    string
	pingErr       error

	sentCommands []string
	closeCalls   int
	closeErr     error
}

func (s *fakeSession) Send(ctx context.Context, command string) (string, error) {
	s.sentCommands = append(s.sentCommands, command)
	return s.sendOutput, s.sendErr
}

func (s *fakeSession) SendConfig(ctx context.Context, lines []string) ([]string, error) {
	s.sentCommands = append(s.sentCommands, lines...)
	return s.configOutputs, s.configErr
}

func (s *fakeSession) Ping(ctx context.Context, target string, count int) (string, error) {
	return s.pingOutput, s.pingErr
}

func (s *fakeSession) Close() error {
	s.closeCalls++
	return s.closeErr
}

type fakeTransport struct {
	session   *fakeSession
	openErr   error
	openCalls int
}

func (t *fakeTransport) Open(ctx context.Context, target models.DeviceTarget) (transport.Session, error) {
	t.openCalls++
	if t.openErr != nil {
		return nil, t.openErr
	}
	return t.session, nil
}

func newTestRunner(t *testing.T, tr *fakeTransport) *Runner {
	t.Helper()
	resolver := &fakeResolver{devices: map[string]models.DeviceTarget{
		"core-sw-01": {
			Name:     "core-sw-01",
			Host:     "10.0.0.1",
			Username: "admin",
			Secret:   "secret",
			Platform: models.PlatformIOSXE,
			Port:     22,
		},
	}}
	return NewRunner(resolver, tr, guardrail.NewDefaultEngine(), zap.NewNop())
}

func TestRunShowSuccess(t *testing.T) {
	sess := &fakeSession{sendOutput: "GigabitEthernet0/0 is up, line protocol is up"}
	tr := &fakeTransport{session: sess}
	runner := newTestRunner(t, tr)

	result := runner.RunShow(context.Background(), "core-sw-01", "show ip interface brief")

	require.Equal(t, models.StatusOK, result.Status)
	require.Nil(t, result.Error)
	data, ok := result.Data.(models.ShowData)
	require.True(t, ok)
	assert.Equal(t, "core-sw-01", data.Device)
	assert.Equal(t, "show ip interface brief", data.Command)
	assert.Equal(t, sess.sendOutput, data.Output)
	assert.Equal(t, 1, tr.openCalls)
	assert.Equal(t, 1, sess.closeCalls)
}

func TestRunShowBlockedNeverConnects(t *testing.T) {
	tr := &fakeTransport{session: &fakeSession{}}
	runner := newTestRunner(t, tr)

	result := runner.RunShow(context.Background(), "core-sw-01", "reload")

	require.Equal(t, models.StatusError, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.KindGuardrailBlocked, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "reload")
	assert.Zero(t, tr.openCalls, "blocked command must not open a connection")
}

func TestRunShowUnknownDevice(t *testing.T) {
	tr := &fakeTransport{session: &fakeSession{}}
	runner := newTestRunner(t, tr)

	result := runner.RunShow(context.Background(), "ghost-router", "show version")

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindResolutionError, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "ghost-router")
	assert.Zero(t, tr.openCalls)
}

func TestRunShowConnectionFailure(t *testing.T) {
	tr := &fakeTransport{openErr: models.NewConnectionError("dial tcp 10.0.0.1:22: connection refused", errors.New("connection refused"))}
	runner := newTestRunner(t, tr)

	result := runner.RunShow(context.Background(), "core-sw-01", "show version")

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindConnectionError, result.Error.Kind)
}

func TestRunShowExecutionFailureClosesSession(t *testing.T) {
	sess := &fakeSession{sendOutput: "partial text", sendErr: errors.New("read timeout")}
	tr := &fakeTransport{session: sess}
	runner := newTestRunner(t, tr)

	result := runner.RunShow(context.Background(), "core-sw-01", "show tech-support")

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindExecutionError, result.Error.Kind)
	assert.Equal(t, "partial text", result.Error.Output)
	assert.Equal(t, 1, sess.closeCalls, "session must be closed exactly once on failure")
}

func TestRunShowCloseErrorSwallowed(t *testing.T) {
	sess := &fakeSession{sendOutput: "up", closeErr: errors.New("connection reset")}
	tr := &fakeTransport{session: sess}
	runner := newTestRunner(t, tr)

	result := runner.RunShow(context.Background(), "core-sw-01", "show clock")

	assert.Equal(t, models.StatusOK, result.Status, "close failure must not change the result")
}

func TestRunConfigSuccess(t *testing.T) {
	sess := &fakeSession{configOutputs: []string{"", ""}}
	tr := &fakeTransport{session: sess}
	runner := newTestRunner(t, tr)

	result := runner.RunConfig(context.Background(), "core-sw-01", []string{
		"interface GigabitEthernet0/1",
		"description uplink to dist-01",
	})

	require.Equal(t, models.StatusOK, result.Status)
	data, ok := result.Data.(models.ConfigData)
	require.True(t, ok)
	assert.Equal(t, []string{"interface GigabitEthernet0/1", "description uplink to dist-01"}, data.CommandsApplied)
	assert.Equal(t, 1, sess.closeCalls)
}

func TestRunConfigStripsWrapperLines(t *testing.T) {
	sess := &fakeSession{configOutputs: []string{""}}
	tr := &fakeTransport{session: sess}
	runner := newTestRunner(t, tr)

	result := runner.RunConfig(context.Background(), "core-sw-01", []string{
		"configure terminal",
		"",
		"hostname core-sw-01",
		"end",
	})

	require.Equal(t, models.StatusOK, result.Status)
	data := result.Data.(models.ConfigData)
	assert.Equal(t, []string{"hostname core-sw-01"}, data.CommandsApplied)
}

func TestRunConfigEmptyRequest(t *testing.T) {
	tr := &fakeTransport{session: &fakeSession{}}
	runner := newTestRunner(t, tr)

	result := runner.RunConfig(context.Background(), "core-sw-01", []string{"", "configure terminal", "end"})

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindGuardrailBlocked, result.Error.Kind)
	assert.Equal(t, "no configuration commands provided", result.Error.Message)
	assert.Zero(t, tr.openCalls)
}

func TestRunConfigBlockedLine(t *testing.T) {
	tr := &fakeTransport{session: &fakeSession{}}
	runner := newTestRunner(t, tr)

	result := runner.RunConfig(context.Background(), "core-sw-01", []string{
		"interface Loopback0",
		"write erase",
	})

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindGuardrailBlocked, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "write erase")
	assert.Zero(t, tr.openCalls, "a sequence with any blocked line must not reach the device")
}

func TestRunConfigPartialFailureKeepsOutput(t *testing.T) {
	sess := &fakeSession{
		configOutputs: []string{"", "% Invalid input detected at '^' marker."},
		configErr:     errors.New("device rejected line 2"),
	}
	tr := &fakeTransport{session: sess}
	runner := newTestRunner(t, tr)

	result := runner.RunConfig(context.Background(), "core-sw-01", []string{
		"interface GigabitEthernet0/1",
		"descriptoin typo",
		"no shutdown",
	})

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindExecutionError, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "after 2 of 3 lines")
	assert.Contains(t, result.Error.Output, "% Invalid input")
	assert.Equal(t, 1, tr.openCalls)
	assert.Equal(t, 1, sess.closeCalls)
}

func TestPingSuccessDefaultsCount(t *testing.T) {
	sess := &fakeSession{pingOutput: "Success rate is 100 percent (5/5)"}
	tr := &fakeTransport{session: sess}
	runner := newTestRunner(t, tr)

	result := runner.Ping(context.Background(), "core-sw-01", "10.0.0.2", 0)

	require.Equal(t, models.StatusOK, result.Status)
	data, ok := result.Data.(models.PingData)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", data.Target)
	assert.Equal(t, 1, sess.closeCalls)
}

func TestPingRejectsBadTarget(t *testing.T) {
	tr := &fakeTransport{session: &fakeSession{}}
	runner := newTestRunner(t, tr)

	result := runner.Ping(context.Background(), "core-sw-01", "10.0.0.2; reload", 5)

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindGuardrailBlocked, result.Error.Kind)
	assert.Zero(t, tr.openCalls)
}

func TestGetRunningConfig(t *testing.T) {
	tests := []struct {
		name        string
		section     string
		wantCommand string
	}{
		{"full config", "", "show running-config"},
		{"section filter", "interface", "show running-config | section interface"},
		{"multi word section", "router bgp", "show running-config | section router bgp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{sendOutput: "Building configuration..."}
			tr := &fakeTransport{session: sess}
			runner := newTestRunner(t, tr)

			result := runner.GetRunningConfig(context.Background(), "core-sw-01", tt.section)

			require.Equal(t, models.StatusOK, result.Status)
			require.Len(t, sess.sentCommands, 1)
			assert.Equal(t, tt.wantCommand, sess.sentCommands[0])
		})
	}
}

func TestGetRunningConfigRejectsShellySection(t *testing.T) {
	tr := &fakeTransport{session: &fakeSession{}}
	runner := newTestRunner(t, tr)

	result := runner.GetRunningConfig(context.Background(), "core-sw-01", "interface | include secret")

	require.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, models.KindGuardrailBlocked, result.Error.Kind)
	assert.Zero(t, tr.openCalls)
}

func TestListDevicesTouchesNoDevice(t *testing.T) {
	tr := &fakeTransport{session: &fakeSession{}}
	runner := newTestRunner(t, tr)

	result := runner.ListDevices()

	require.Equal(t, models.StatusOK, result.Status)
	data, ok := result.Data.(models.DevicesData)
	require.True(t, ok)
	assert.Contains(t, data.Devices, "core-sw-01")
	assert.Zero(t, tr.openCalls)
}

func TestNormalizeConfigLines(t *testing.T) {
	in := []string{"  configure terminal ", "interface Gi0/1", "", " CONF T", "no shutdown", "End"}
	assert.Equal(t, []string{"interface Gi0/1", "no shutdown"}, NormalizeConfigLines(in))
}
