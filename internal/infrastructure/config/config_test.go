package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
plm:
  connection: "tcp://plm.local:9761"
  connect_timeout: 5s
  sync:
    on_startup: true
    interval: 12h
devices:
  - address: "1a.2b.3c"
    name: "hall_dimmer"
    flags:
      - name: "led_on"
        group: 0
        bit: 4
        set_cmd: 0x09
        unset_cmd: 0x08
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.PLM.Connection != "tcp://plm.local:9761" {
		t.Errorf("PLM.Connection = %q, want %q", cfg.PLM.Connection, "tcp://plm.local:9761")
	}

	if cfg.PLM.Sync.Interval != 12*time.Hour {
		t.Errorf("PLM.Sync.Interval = %v, want 12h", cfg.PLM.Sync.Interval)
	}

	if len(cfg.Devices) != 1 || cfg.Devices[0].Name != "hall_dimmer" {
		t.Fatalf("Devices = %+v, want one hall_dimmer", cfg.Devices)
	}

	if len(cfg.Devices[0].Flags) != 1 || cfg.Devices[0].Flags[0].SetCmd != 0x09 {
		t.Errorf("Devices[0].Flags = %+v, want one led_on binding", cfg.Devices[0].Flags)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Site:     SiteConfig{ID: "site-001"},
			PLM:      PLMConfig{Connection: "tcp://localhost:9761"},
			Database: DatabaseConfig{Path: "/data/insteon.db"},
			MQTT:     MQTTConfig{QoS: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing PLM connection",
			mutate:  func(c *Config) { c.PLM.Connection = "" },
			wantErr: true,
		},
		{
			name:    "bad PLM scheme",
			mutate:  func(c *Config) { c.PLM.Connection = "serial:///dev/ttyUSB0" },
			wantErr: true,
		},
		{
			name: "bad device address",
			mutate: func(c *Config) {
				c.Devices = []DeviceConfig{{Address: "zz.zz.zz", Name: "broken"}}
			},
			wantErr: true,
		},
		{
			name: "duplicate device address",
			mutate: func(c *Config) {
				c.Devices = []DeviceConfig{
					{Address: "1a.2b.3c", Name: "one"},
					{Address: "1A.2B.3C", Name: "two"},
				}
			},
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("INSTEON_PLM_CONNECTION", "tcp://plm.example.com:9761")
	t.Setenv("INSTEON_DATABASE_PATH", "/custom/path.db")
	t.Setenv("INSTEON_MQTT_HOST", "mqtt.example.com")
	t.Setenv("INSTEON_MQTT_USERNAME", "testuser")
	t.Setenv("INSTEON_MQTT_PASSWORD", "testpass")
	t.Setenv("INSTEON_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.PLM.Connection != "tcp://plm.example.com:9761" {
		t.Errorf("PLM.Connection = %q, want %q", cfg.PLM.Connection, "tcp://plm.example.com:9761")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}

	if cfg.PLM.Connection == "" {
		t.Error("defaultConfig should have non-empty PLM.Connection")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}
