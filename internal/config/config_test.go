package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "missionctl.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Agent.ID = "agent"
	cfg.Agent.MaxConcurrentTasks = 1
	cfg.Agent.DueDateUrgencyHours = 24
	cfg.Agent.NightlyStartHour = 22
	cfg.Agent.RepickWindowMinutes = 30
	cfg.Server.Port = 8377
	cfg.Calendar.SweepInterval = "15m"
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Agent.ID != "agent" {
		t.Errorf("agent.id = %q, want agent", cfg.Agent.ID)
	}
	if !cfg.Agent.AutoPickupEnabled {
		t.Error("agent.auto_pickup_enabled should default true")
	}
	if cfg.Agent.MaxConcurrentTasks != 1 {
		t.Errorf("max_concurrent_tasks = %d, want 1", cfg.Agent.MaxConcurrentTasks)
	}
	if cfg.Agent.DueDateUrgencyHours != 24 {
		t.Errorf("due_date_urgency_hours = %d, want 24", cfg.Agent.DueDateUrgencyHours)
	}
	if cfg.Server.Port != 8377 {
		t.Errorf("server.port = %d, want 8377", cfg.Server.Port)
	}
	if !cfg.Calendar.V2Enabled || !cfg.Calendar.AutoReprioritiseEnabled {
		t.Error("calendar flags should default on")
	}
	if d, err := cfg.Calendar.SweepEvery(); err != nil || d != 15*time.Minute {
		t.Errorf("sweep interval = %v, %v; want 15m", d, err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
agent:
  id: nightowl
  model: opus
  auto_pickup_enabled: false
  max_concurrent_tasks: 3
server:
  port: 9000
  cors_enabled: false
calendar:
  auto_reprioritise_enabled: false
  sweep_interval: 5m
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Agent.ID != "nightowl" || cfg.Agent.Model != "opus" {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Agent.AutoPickupEnabled {
		t.Error("auto_pickup_enabled should be false")
	}
	if cfg.Agent.MaxConcurrentTasks != 3 {
		t.Errorf("max_concurrent_tasks = %d, want 3", cfg.Agent.MaxConcurrentTasks)
	}
	if cfg.Server.Port != 9000 || cfg.Server.CORSEnabled {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Calendar.AutoReprioritiseEnabled {
		t.Error("auto_reprioritise_enabled should be false")
	}
	if !cfg.Calendar.V2Enabled {
		t.Error("v2_enabled should keep its default")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	path := writeConfig(t, "agent:\n  max_concurrent_tasks: 0\n")
	_, err := Load(path)
	if !errors.Is(err, ErrInvalidMaxConcurrent) {
		t.Fatalf("err = %v, want ErrInvalidMaxConcurrent", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(c *Config) {}, nil},
		{"blank agent id", func(c *Config) { c.Agent.ID = "  " }, ErrMissingAgentID},
		{"zero max concurrent", func(c *Config) { c.Agent.MaxConcurrentTasks = 0 }, ErrInvalidMaxConcurrent},
		{"negative urgency", func(c *Config) { c.Agent.DueDateUrgencyHours = -1 }, ErrInvalidUrgencyHours},
		{"zero urgency allowed", func(c *Config) { c.Agent.DueDateUrgencyHours = 0 }, nil},
		{"nightly hour too high", func(c *Config) { c.Agent.NightlyStartHour = 24 }, ErrInvalidNightlyStart},
		{"nightly hour negative", func(c *Config) { c.Agent.NightlyStartHour = -1 }, ErrInvalidNightlyStart},
		{"zero repick window", func(c *Config) { c.Agent.RepickWindowMinutes = 0 }, ErrInvalidRepickWindow},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, ErrInvalidPort},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, ErrInvalidPort},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"bad sweep interval", func(c *Config) { c.Calendar.SweepInterval = "soon" }, ErrInvalidSweepInterval},
		{"negative sweep interval", func(c *Config) { c.Calendar.SweepInterval = "-5m" }, ErrInvalidSweepInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSweepEvery(t *testing.T) {
	c := CalendarConfig{SweepInterval: "90s"}
	d, err := c.SweepEvery()
	if err != nil || d != 90*time.Second {
		t.Errorf("SweepEvery() = %v, %v; want 90s", d, err)
	}
}
