// Package config handles loading and validating missionctl configuration.
// Supports YAML config files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Validation errors returned by Validate.
var (
	ErrMissingAgentID       = errors.New("agent.id is required")
	ErrInvalidMaxConcurrent = errors.New("agent.max_concurrent_tasks must be at least 1")
	ErrInvalidUrgencyHours  = errors.New("agent.due_date_urgency_hours must not be negative")
	ErrInvalidNightlyStart  = errors.New("agent.nightly_start_hour must be between 0 and 23")
	ErrInvalidRepickWindow  = errors.New("agent.repick_window_minutes must be at least 1")
	ErrInvalidPort          = errors.New("server.port must be between 1 and 65535")
	ErrInvalidLogLevel      = errors.New("logging.level must be debug, info, warn, or error")
	ErrInvalidLogFormat     = errors.New("logging.format must be json or text")
	ErrInvalidSweepInterval = errors.New("calendar.sweep_interval is not a valid duration")
)

// Config holds all missionctl configuration.
type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AgentConfig seeds the agent-state singleton at bootstrap. After the row
// exists these values are no longer consulted; the row is the source of
// truth.
type AgentConfig struct {
	ID                  string `mapstructure:"id"`
	Model               string `mapstructure:"model"`
	AutoPickupEnabled   bool   `mapstructure:"auto_pickup_enabled"`
	MaxConcurrentTasks  int    `mapstructure:"max_concurrent_tasks"`
	DueDateUrgencyHours int    `mapstructure:"due_date_urgency_hours"`
	NightlyStartHour    int    `mapstructure:"nightly_start_hour"`
	RepickWindowMinutes int    `mapstructure:"repick_window_minutes"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	CORSEnabled bool   `mapstructure:"cors_enabled"`
}

// CalendarConfig carries the calendar feature flags and sweep cadence.
// The flags gate the auto-reprioritization loop and are passed into it
// explicitly by the caller.
type CalendarConfig struct {
	V2Enabled               bool   `mapstructure:"v2_enabled"`
	AutoReprioritiseEnabled bool   `mapstructure:"auto_reprioritise_enabled"`
	SweepInterval           string `mapstructure:"sweep_interval"`
}

// SweepEvery returns the parsed sweep cadence.
func (c CalendarConfig) SweepEvery() (time.Duration, error) {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return 0, ErrInvalidSweepInterval
	}
	return d, nil
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Path          string `mapstructure:"path"`
	Format        string `mapstructure:"format"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Load reads configuration from an optional explicit file, the standard
// search paths, and MISSIONCTL_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("missionctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/missionctl")
	}

	v.SetEnvPrefix("MISSIONCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.id", "agent")
	v.SetDefault("agent.model", "")
	v.SetDefault("agent.auto_pickup_enabled", true)
	v.SetDefault("agent.max_concurrent_tasks", 1)
	v.SetDefault("agent.due_date_urgency_hours", 24)
	v.SetDefault("agent.nightly_start_hour", 22)
	v.SetDefault("agent.repick_window_minutes", 30)
	v.SetDefault("database.path", "")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8377)
	v.SetDefault("server.cors_enabled", true)
	v.SetDefault("calendar.v2_enabled", true)
	v.SetDefault("calendar.auto_reprioritise_enabled", true)
	v.SetDefault("calendar.sweep_interval", "15m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.retention_days", 7)
}

// Validate checks a configuration and returns the first problem found.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Agent.ID) == "" {
		return ErrMissingAgentID
	}
	if cfg.Agent.MaxConcurrentTasks < 1 {
		return ErrInvalidMaxConcurrent
	}
	if cfg.Agent.DueDateUrgencyHours < 0 {
		return ErrInvalidUrgencyHours
	}
	if cfg.Agent.NightlyStartHour < 0 || cfg.Agent.NightlyStartHour > 23 {
		return ErrInvalidNightlyStart
	}
	if cfg.Agent.RepickWindowMinutes < 1 {
		return ErrInvalidRepickWindow
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return ErrInvalidPort
	}
	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		return ErrInvalidLogFormat
	}
	if _, err := cfg.Calendar.SweepEvery(); err != nil {
		return err
	}
	return nil
}
