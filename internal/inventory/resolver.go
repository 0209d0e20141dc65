package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/rhuanssauro/cisco-mcp-server/pkg/models"
)

// Config selects the inventory source. File is the path to a JSON inventory
// mapping device names to connection parameters; when it is empty the
// single-device fallback fields are used instead, yielding exactly one
// addressable device. The configuration is established once at startup and
// read-only afterwards.
type Config struct {
	File string

	// Single-device fallback.
	DeviceName    string
	Host          string
	Username      string
	Password      string
	Platform      string
	Port          int
	AuthStrictKey bool
}

// fileEntry is one device record in the JSON inventory file.
type fileEntry struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
	Platform string `json:"platform"`
	Port     int    `json:"port"`
}

// Resolver turns device names into connection targets. The inventory is
// loaded once at construction and never mutated, so concurrent resolution
// needs no locking.
type Resolver struct {
	devices map[string]models.DeviceTarget
	logger  *zap.Logger
}

// NewResolver loads the configured inventory source. A present but
// unreadable or invalid inventory file is a hard error; an empty inventory
// is not, every Resolve simply fails.
func NewResolver(cfg Config, logger *zap.Logger) (*Resolver, error) {
	r := &Resolver{
		devices: make(map[string]models.DeviceTarget),
		logger:  logger,
	}

	if cfg.File != "" {
		if err := r.loadFile(cfg); err != nil {
			return nil, err
		}
	} else if cfg.Host != "" {
		if err := r.loadFallback(cfg); err != nil {
			return nil, err
		}
	}

	if len(r.devices) == 0 {
		logger.Warn("Inventory is empty, all device resolutions will fail")
	} else {
		logger.Info("Loaded device inventory", zap.Int("devices", len(r.devices)))
	}
	return r, nil
}

func (r *Resolver) loadFile(cfg Config) error {
	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("failed to read inventory file %s: %w", cfg.File, err)
	}

	var entries map[string]fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse inventory file %s: %w", cfg.File, err)
	}

	for name, entry := range entries {
		target, err := buildTarget(name, entry.Host, entry.Username, entry.Password, entry.Platform, entry.Port, cfg.AuthStrictKey)
		if err != nil {
			return fmt.Errorf("invalid inventory entry %q: %w", name, err)
		}
		r.devices[name] = target
	}
	return nil
}

func (r *Resolver) loadFallback(cfg Config) error {
	name := cfg.DeviceName
	if name == "" {
		name = "default"
	}
	target, err := buildTarget(name, cfg.Host, cfg.Username, cfg.Password, cfg.Platform, cfg.Port, cfg.AuthStrictKey)
	if err != nil {
		return fmt.Errorf("invalid device environment: %w", err)
	}
	r.devices[name] = target
	return nil
}

func buildTarget(name, host, username, password, platform string, port int, strictKey bool) (models.DeviceTarget, error) {
	if host == "" {
		return models.DeviceTarget{}, fmt.Errorf("host is required")
	}
	if username == "" {
		return models.DeviceTarget{}, fmt.Errorf("username is required")
	}
	if password == "" {
		return models.DeviceTarget{}, fmt.Errorf("password is required")
	}
	p, err := models.ParsePlatform(platform)
	if err != nil {
		return models.DeviceTarget{}, err
	}
	if port == 0 {
		port = 22
	}
	return models.DeviceTarget{
		Name:          name,
		Host:          host,
		Username:      username,
		Secret:        password,
		Platform:      p,
		Port:          port,
		AuthStrictKey: strictKey,
	}, nil
}

// Resolve returns the connection target for a named device.
func (r *Resolver) Resolve(name string) (models.DeviceTarget, error) {
	target, ok := r.devices[name]
	if !ok {
		return models.DeviceTarget{}, models.NewResolutionError("device %q not in inventory", name)
	}
	return target, nil
}

// List returns the non-sensitive inventory view.
func (r *Resolver) List() map[string]models.DeviceInfo {
	out := make(map[string]models.DeviceInfo, len(r.devices))
	for name, t := range r.devices {
		out[name] = models.DeviceInfo{Host: t.Host, Platform: t.Platform, Port: t.Port}
	}
	return out
}

// Names returns the sorted device names.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
