package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  udp_port: 5577
  bind_address: "0.0.0.0"
  buffer_size: 4096
  queue_size: 1000

http:
  port: 8080
  address: "0.0.0.0"
  enabled: true

export:
  log_dir: ""
  overwrite: true
  interval: 60

logging:
  level: "info"
  format: "text"
  output: "stdout"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.UDPPort != 5577 {
		t.Errorf("Expected udp_port 5577, got %d", cfg.Server.UDPPort)
	}
	if cfg.Server.QueueSize != 1000 {
		t.Errorf("Expected queue_size 1000, got %d", cfg.Server.QueueSize)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Port != 8080 {
		t.Errorf("Unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Export.Interval != 60 || !cfg.Export.Overwrite {
		t.Errorf("Unexpected export config: %+v", cfg.Export)
	}
	if cfg.Export.GetExportInterval() != 60*time.Second {
		t.Errorf("Unexpected export interval: %v", cfg.Export.GetExportInterval())
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a mapping"))
	if err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestValidation(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{
				UDPPort:     5577,
				BindAddress: "0.0.0.0",
				BufferSize:  4096,
				QueueSize:   1000,
			},
			HTTP: HTTPConfig{
				Port:    8080,
				Address: "0.0.0.0",
				Enabled: true,
			},
			Export: ExportConfig{
				Overwrite: true,
				Interval:  60,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
				Output: "stdout",
			},
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "udp port zero",
			mutate:   func(c *Config) { c.Server.UDPPort = 0 },
			errorMsg: "udp_port must be between",
		},
		{
			name:     "udp port too large",
			mutate:   func(c *Config) { c.Server.UDPPort = 70000 },
			errorMsg: "udp_port must be between",
		},
		{
			name:     "empty bind address",
			mutate:   func(c *Config) { c.Server.BindAddress = "" },
			errorMsg: "bind_address cannot be empty",
		},
		{
			name:     "buffer size too small",
			mutate:   func(c *Config) { c.Server.BufferSize = 512 },
			errorMsg: "buffer_size must be at least",
		},
		{
			name:     "queue size zero",
			mutate:   func(c *Config) { c.Server.QueueSize = 0 },
			errorMsg: "queue_size must be at least",
		},
		{
			name:     "http enabled with bad port",
			mutate:   func(c *Config) { c.HTTP.Port = 0 },
			errorMsg: "http port must be between",
		},
		{
			name:   "http disabled skips http validation",
			mutate: func(c *Config) { c.HTTP = HTTPConfig{Enabled: false} },
		},
		{
			name:     "negative export interval",
			mutate:   func(c *Config) { c.Export.Interval = -1 },
			errorMsg: "interval cannot be negative",
		},
		{
			name:     "invalid log level",
			mutate:   func(c *Config) { c.Logging.Level = "verbose" },
			errorMsg: "level must be one of",
		},
		{
			name:     "invalid log format",
			mutate:   func(c *Config) { c.Logging.Format = "xml" },
			errorMsg: "format must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error to contain %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}
