package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKResultJSON(t *testing.T) {
	result := OK(ShowData{Device: "core-sw-01", Command: "show version", Output: "Cisco IOS XE"})

	raw, err := result.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "ok",
		"data": {"device": "core-sw-01", "command": "show version", "output": "Cisco IOS XE"}
	}`, string(raw))
}

func TestErrorResultJSON(t *testing.T) {
	result := Failure(KindGuardrailBlocked, `command "reload" blocked`)

	raw, err := result.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "error",
		"error": {"kind": "GuardrailBlocked", "message": "command \"reload\" blocked"}
	}`, string(raw))
}

func TestExecutionErrorCarriesPartialOutput(t *testing.T) {
	opErr := NewExecutionError("config failed after 2 of 3 lines", "line one applied", errors.New("rejected"))
	result := FailureFrom(opErr)

	require.Equal(t, StatusError, result.Status)
	assert.Equal(t, KindExecutionError, result.Error.Kind)
	assert.Equal(t, "line one applied", result.Error.Output)

	raw, err := result.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"output":"line one applied"`)
}

func TestErrorOutputOmittedWhenEmpty(t *testing.T) {
	raw, err := Failure(KindResolutionError, "device not found").JSON()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"output"`)
	assert.NotContains(t, string(raw), `"data"`)
}

func TestFailureFromPlainError(t *testing.T) {
	result := FailureFrom(errors.New("something broke"))

	assert.Equal(t, KindExecutionError, result.Error.Kind)
	assert.Equal(t, "something broke", result.Error.Message)
}

func TestFailureFromWrappedOpError(t *testing.T) {
	inner := NewConnectionError("dial failed", errors.New("refused"))
	wrapped := fmt.Errorf("opening session: %w", inner)

	result := FailureFrom(wrapped)
	assert.Equal(t, KindConnectionError, result.Error.Kind)
	assert.Equal(t, "dial failed", result.Error.Message)
}

func TestOpErrorIsMatchesByKind(t *testing.T) {
	err := NewGuardrailBlocked("blocked")
	assert.ErrorIs(t, err, &OpError{Kind: KindGuardrailBlocked})
	assert.NotErrorIs(t, err, &OpError{Kind: KindConnectionError})
}

func TestDeviceTargetNeverLeaksSecret(t *testing.T) {
	target := DeviceTarget{
		Name:     "core-sw-01",
		Host:     "10.0.0.1",
		Username: "admin",
		Secret:   "hunter2",
		Platform: PlatformIOSXE,
		Port:     22,
	}

	assert.NotContains(t, target.String(), "hunter2")

	raw, err := json.Marshal(target)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.Contains(t, string(raw), `"host":"10.0.0.1"`)
}

func TestDeviceTargetAddrDefaultsPort(t *testing.T) {
	assert.Equal(t, "10.0.0.1:22", DeviceTarget{Host: "10.0.0.1"}.Addr())
	assert.Equal(t, "10.0.0.1:2222", DeviceTarget{Host: "10.0.0.1", Port: 2222}.Addr())
}

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{"ios-xe", PlatformIOSXE, false},
		{"iosxe", PlatformIOSXE, false},
		{"ios", PlatformIOSXE, false},
		{"", PlatformIOSXE, false},
		{"IOS-XR", PlatformIOSXR, false},
		{"iosxr", PlatformIOSXR, false},
		{"nxos", PlatformNXOS, false},
		{" nx-os ", PlatformNXOS, false},
		{"junos", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlatform(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
