package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full service configuration. Values come from an
// optional config file, a .env file and CISCO_* environment variables,
// environment taking precedence.
type Config struct {
	InventoryFile string
	Device        DeviceConfig
	HTTP          HTTPConfig
	SSH           SSHConfig
}

// DeviceConfig is the single-device fallback used when no inventory file
// is configured. The password never appears in any log or response.
type DeviceConfig struct {
	Name          string
	Host          string
	Username      string
	Password      string
	Platform      string
	Port          int
	AuthStrictKey bool
}

// HTTPConfig configures the optional REST listener.
type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// SSHConfig carries the transport timeouts.
type SSHConfig struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	PingTimeout    time.Duration
	KnownHostsFile string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables still win.
func Load() (*Config, error) {
	// Ignore a missing .env, it is a development convenience.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cisco-mcp/")
	v.AddConfigPath(".")

	v.SetDefault("device.name", "default")
	v.SetDefault("device.platform", "ios-xe")
	v.SetDefault("device.port", 22)
	v.SetDefault("device.auth_strict_key", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("ssh.connect_timeout", 30*time.Second)
	v.SetDefault("ssh.command_timeout", 60*time.Second)
	v.SetDefault("ssh.ping_timeout", 120*time.Second)

	v.SetEnvPrefix("CISCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars take precedence.
	_ = v.ReadInConfig()

	return &Config{
		InventoryFile: v.GetString("inventory_file"),
		Device: DeviceConfig{
			Name:          v.GetString("device.name"),
			Host:          v.GetString("device.host"),
			Username:      v.GetString("device.username"),
			Password:      v.GetString("device.password"),
			Platform:      v.GetString("device.platform"),
			Port:          v.GetInt("device.port"),
			AuthStrictKey: v.GetBool("device.auth_strict_key"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		SSH: SSHConfig{
			ConnectTimeout: v.GetDuration("ssh.connect_timeout"),
			CommandTimeout: v.GetDuration("ssh.command_timeout"),
			PingTimeout:    v.GetDuration("ssh.ping_timeout"),
			KnownHostsFile: v.GetString("ssh.known_hosts_file"),
		},
	}, nil
}
