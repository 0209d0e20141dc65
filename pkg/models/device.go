package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Platform identifies the network OS running on a device.
type Platform string

const (
	PlatformIOSXE Platform = "ios-xe"
	PlatformIOSXR Platform = "ios-xr"
	PlatformNXOS  Platform = "nx-os"
)

// ParsePlatform maps the platform aliases accepted in inventory files
// (iosxe, ios, iosxr, nxos and the canonical forms) to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "iosxe", "ios", "ios-xe", "":
		return PlatformIOSXE, nil
	case "iosxr", "ios-xr":
		return PlatformIOSXR, nil
	case "nxos", "nx-os":
		return PlatformNXOS, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// DeviceTarget holds the resolved connection parameters for one named device.
// It is created per invocation by the inventory resolver and never persisted.
type DeviceTarget struct {
	Name          string
	Host          string
	Username      string
	Secret        string
	Platform      Platform
	Port          int
	AuthStrictKey bool
}

// Addr returns the host:port dial address.
func (t DeviceTarget) Addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", t.Host, port)
}

// String renders the target without the secret.
func (t DeviceTarget) String() string {
	return fmt.Sprintf("%s (%s@%s, %s)", t.Name, t.Username, t.Addr(), t.Platform)
}

// MarshalJSON omits the secret so a target can never leak credentials
// through logging or serialization.
func (t DeviceTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string   `json:"name"`
		Host     string   `json:"host"`
		Username string   `json:"username"`
		Platform Platform `json:"platform"`
		Port     int      `json:"port"`
	}{t.Name, t.Host, t.Username, t.Platform, t.Port})
}

// DeviceInfo is the non-sensitive inventory view of a device.
type DeviceInfo struct {
	Host     string   `json:"host"`
	Platform Platform `json:"platform"`
	Port     int      `json:"port"`
}
