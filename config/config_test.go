package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MQTT.Namespace != "zigbee2mqtt" {
		t.Fatalf("namespace = %q, want zigbee2mqtt", cfg.MQTT.Namespace)
	}
	if cfg.Generator.FetchTimeout != 5*time.Second {
		t.Fatalf("fetch_timeout = %v, want 5s", cfg.Generator.FetchTimeout)
	}
	if cfg.Generator.Output != "./devices/devices_gen.go" || cfg.Generator.Package != "devices" {
		t.Fatalf("generator = %+v", cfg.Generator)
	}
	if cfg.Runtime.GetTimeout != 2*time.Second {
		t.Fatalf("get_timeout = %v, want 2s", cfg.Runtime.GetTimeout)
	}
	if !cfg.Logger.Console || cfg.Logger.FilePath != "" {
		t.Fatalf("logger = %+v", cfg.Logger)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
mqtt:
  broker: tcp://broker:1883
  qos: 1
generator:
  schema_file: ./bridge.json
  fetch_timeout: 750ms
storage:
  database:
    enabled: true
    type: postgresql
    dsn: postgres://localhost/z2m
  redis:
    ttl: 1h
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" || cfg.MQTT.QoS != 1 {
		t.Fatalf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Generator.SchemaFile != "./bridge.json" || cfg.Generator.FetchTimeout != 750*time.Millisecond {
		t.Fatalf("generator = %+v", cfg.Generator)
	}
	if cfg.Storage.Database.Type != "postgresql" || cfg.Storage.Redis.TTL != time.Hour {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	// untouched keys keep their defaults
	if cfg.MQTT.Namespace != "zigbee2mqtt" {
		t.Fatalf("namespace = %q", cfg.MQTT.Namespace)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("Z2MGEN_MQTT_NAMESPACE", "z2m")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MQTT.Namespace != "z2m" {
		t.Fatalf("namespace = %q, want z2m", cfg.MQTT.Namespace)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"qos", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"db type", func(c *Config) {
			c.Storage.Database.Enabled = true
			c.Storage.Database.Type = "oracle"
		}, true},
		{"disabled db type ignored", func(c *Config) { c.Storage.Database.Type = "oracle" }, false},
		{"both scripts", func(c *Config) {
			c.Generator.ScriptCode = "function transform(d) { return d }"
			c.Generator.ScriptPath = "hook.js"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadConfig() succeeded for a missing file")
	}
}
