package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// Config is the root configuration structure for the Insteon bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	PLM      PLMConfig      `yaml:"plm"`
	Devices  []DeviceConfig `yaml:"devices"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// PLMConfig contains powerline modem connection settings.
type PLMConfig struct {
	// Connection is the modem transport URL: "tcp://host:port" for a
	// network-attached PLM or "unix:///path" for a local socket proxy.
	Connection string `yaml:"connection"`

	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`

	// Sync controls background ALDB synchronization.
	Sync SyncConfig `yaml:"sync"`
}

// SyncConfig contains ALDB synchronization settings.
type SyncConfig struct {
	// OnStartup triggers a modem ALDB load and a read of every
	// configured device's ALDB when the bridge starts.
	OnStartup bool `yaml:"on_startup"`

	// Interval re-synchronizes device ALDBs periodically. Zero disables
	// periodic sync.
	Interval time.Duration `yaml:"interval"`
}

// DeviceConfig describes one Insteon device the bridge manages.
type DeviceConfig struct {
	// Address is the device address in "aa.bb.cc" form.
	Address string `yaml:"address"`

	// Name is a human-readable label used in MQTT topics and logs.
	Name string `yaml:"name"`

	// Flags lists operating-flag bindings for the device.
	Flags []FlagConfig `yaml:"flags"`
}

// FlagConfig binds a named operating flag to its register location.
type FlagConfig struct {
	Name  string `yaml:"name"`
	Group uint8  `yaml:"group"`

	// Bit is the register bit; -1 binds the whole register value.
	Bit int `yaml:"bit"`

	SetCmd   uint8 `yaml:"set_cmd"`
	UnsetCmd uint8 `yaml:"unset_cmd"`
	ReadOnly bool  `yaml:"read_only"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: INSTEON_SECTION_KEY
// For example: INSTEON_DATABASE_PATH, INSTEON_PLM_CONNECTION
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Insteon Bridge",
			Timezone: "UTC",
		},
		PLM: PLMConfig{
			Connection:        "tcp://localhost:9761",
			ConnectTimeout:    10 * time.Second,
			ReadTimeout:       30 * time.Second,
			ReconnectInterval: 5 * time.Second,
			Sync: SyncConfig{
				OnStartup: true,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/insteon.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "insteon-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: INSTEON_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// PLM
	if v := os.Getenv("INSTEON_PLM_CONNECTION"); v != "" {
		cfg.PLM.Connection = v
	}

	// Database
	if v := os.Getenv("INSTEON_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("INSTEON_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("INSTEON_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("INSTEON_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("INSTEON_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// PLM validation
	if c.PLM.Connection == "" {
		errs = append(errs, "plm.connection is required")
	} else if !strings.HasPrefix(c.PLM.Connection, "tcp://") &&
		!strings.HasPrefix(c.PLM.Connection, "unix://") {
		errs = append(errs, "plm.connection must use tcp:// or unix:// scheme")
	}

	// Device validation
	seen := make(map[string]bool)
	for i, dev := range c.Devices {
		if _, err := insteon.ParseAddress(dev.Address); err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d].address %q is not a valid Insteon address", i, dev.Address))
			continue
		}
		key := strings.ToLower(dev.Address)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("devices[%d].address %q is listed twice", i, dev.Address))
		}
		seen[key] = true
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
