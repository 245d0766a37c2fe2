package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
service:
  id: "bench-01"
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
api:
  host: "127.0.0.1"
  port: 9000
document:
  layout_file: "/etc/devbind/layout.yaml"
devices:
  default_baud: 115200
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "bench-01" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "bench-01")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Document.LayoutFile != "/etc/devbind/layout.yaml" {
		t.Errorf("Document.LayoutFile = %q", cfg.Document.LayoutFile)
	}
	if cfg.Devices.DefaultBaud != 115200 {
		t.Errorf("Devices.DefaultBaud = %d, want 115200", cfg.Devices.DefaultBaud)
	}
	// Untouched sections keep their defaults.
	if cfg.Devices.WriteQueueSize != 64 {
		t.Errorf("Devices.WriteQueueSize = %d, want 64", cfg.Devices.WriteQueueSize)
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled should default to true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
service:
  id: ""
database:
  path: ""
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	// Every problem is reported, not just the first.
	for _, want := range []string{"service.id", "database.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing service ID",
			mutate:  func(c *Config) { c.Service.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "negative history retention",
			mutate:  func(c *Config) { c.Database.HistoryRetention = -1 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "invalid QoS ignored when mqtt disabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = false
				c.MQTT.QoS = 3
			},
			wantErr: false,
		},
		{
			name:    "missing broker host",
			mutate:  func(c *Config) { c.MQTT.Broker.Host = "" },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name: "port ignored when api disabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
			wantErr: false,
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name:    "empty JWT secret allowed",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: false,
		},
		{
			name:    "JWT secret long enough",
			mutate:  func(c *Config) { c.Security.JWT.Secret = validJWTSecret },
			wantErr: false,
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "missing layout file",
			mutate:  func(c *Config) { c.Document.LayoutFile = "" },
			wantErr: true,
		},
		{
			name:    "zero baud",
			mutate:  func(c *Config) { c.Devices.DefaultBaud = 0 },
			wantErr: true,
		},
		{
			name:    "zero write queue",
			mutate:  func(c *Config) { c.Devices.WriteQueueSize = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("DEVBIND_DATABASE_PATH", "/custom/path.db")
	t.Setenv("DEVBIND_MQTT_HOST", "mqtt.example.com")
	t.Setenv("DEVBIND_MQTT_PORT", "8883")
	t.Setenv("DEVBIND_MQTT_USERNAME", "testuser")
	t.Setenv("DEVBIND_MQTT_PASSWORD", "testpass")
	t.Setenv("DEVBIND_API_HOST", "192.168.1.1")
	t.Setenv("DEVBIND_API_PORT", "not-a-number")
	t.Setenv("DEVBIND_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("DEVBIND_JWT_SECRET", "jwt-secret")
	t.Setenv("DEVBIND_LAYOUT_FILE", "/srv/layout.yaml")
	t.Setenv("DEVBIND_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want unparseable override ignored", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
	if cfg.Document.LayoutFile != "/srv/layout.yaml" {
		t.Errorf("Document.LayoutFile = %q, want %q", cfg.Document.LayoutFile, "/srv/layout.yaml")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Service.ID == "" {
		t.Error("defaultConfig should have non-empty Service.ID")
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8090 {
		t.Errorf("defaultConfig API.Port = %d, want 8090", cfg.API.Port)
	}
	if cfg.Devices.DefaultBaud != 9600 {
		t.Errorf("defaultConfig Devices.DefaultBaud = %d, want 9600", cfg.Devices.DefaultBaud)
	}
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.Auth.Password = "mqtt-password-value"
	cfg.InfluxDB.Token = "influx-token-value"
	cfg.Security.JWT.Secret = "jwt-secret-value-that-is-long-enough"

	s := cfg.String()
	for _, secret := range []string{"mqtt-password-value", "influx-token-value", "jwt-secret-value-that-is-long-enough"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaks %q: %s", secret, s)
		}
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Errorf("String() = %q, want redaction marker", s)
	}
	if !strings.Contains(s, cfg.Service.ID) {
		t.Errorf("String() = %q, want service id", s)
	}
}
