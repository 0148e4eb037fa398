package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/missionctl/internal/config"
	"github.com/marcus/missionctl/internal/db"
	"github.com/marcus/missionctl/internal/engine"
	"github.com/marcus/missionctl/internal/logging"
	"github.com/marcus/missionctl/internal/reprioritizer"
	"github.com/marcus/missionctl/internal/store"
	"github.com/marcus/missionctl/internal/tasks"
)

// app bundles everything a command needs after bootstrap.
type app struct {
	cfg    *config.Config
	db     *db.DB
	store  *store.Store
	engine *engine.Engine
	reprio *reprioritizer.Service
}

// openApp loads config, initializes logging, opens the database, and makes
// sure the agent-state row exists. Every command goes through here so the
// config row seeding happens exactly once per agent id.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := initLogging(cfg); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = db.DefaultPath()
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	st := store.New(database)
	if err := st.EnsureAgentState(ctx, seedAgentState(cfg)); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("seeding agent state: %w", err)
	}

	eng := engine.New(st, st, st, cfg.Agent.ID,
		engine.WithLogger(logging.Component("engine")))
	reprio := reprioritizer.New(st, st, cfg.Agent.ID,
		reprioritizer.WithLogger(logging.Component("reprioritizer")))

	return &app{cfg: cfg, db: database, store: st, engine: eng, reprio: reprio}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

// flags returns the calendar flags from the loaded config.
func (a *app) flags() reprioritizer.Flags {
	return flagsFrom(a.cfg)
}

func flagsFrom(cfg *config.Config) reprioritizer.Flags {
	return reprioritizer.Flags{
		CalendarV2:       cfg.Calendar.V2Enabled,
		AutoReprioritise: cfg.Calendar.AutoReprioritiseEnabled,
	}
}

// seedAgentState builds the initial agent row from config. Only used on
// first run; after that the row is authoritative.
func seedAgentState(cfg *config.Config) tasks.AgentState {
	return tasks.AgentState{
		AgentID:             cfg.Agent.ID,
		Status:              tasks.StatusIdle,
		CurrentModel:        cfg.Agent.Model,
		AutoPickupEnabled:   cfg.Agent.AutoPickupEnabled,
		MaxConcurrentTasks:  cfg.Agent.MaxConcurrentTasks,
		DueDateUrgencyHours: cfg.Agent.DueDateUrgencyHours,
		NightlyStartHour:    cfg.Agent.NightlyStartHour,
		RepickWindowMinutes: cfg.Agent.RepickWindowMinutes,
		UpdatedAt:           time.Now().UTC(),
	}
}

func initLogging(cfg *config.Config) error {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.Path != "" {
		logCfg.Path = cfg.Logging.Path
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	if cfg.Logging.RetentionDays > 0 {
		logCfg.RetentionDays = cfg.Logging.RetentionDays
	}
	return logging.Init(logCfg)
}

// parseDueDate accepts a bare date or a full RFC3339 timestamp. Bare dates
// land on end of day local time, so "due 2026-09-01" stays normal for the
// whole of that day.
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return d.Add(23*time.Hour + 59*time.Minute), nil
	}
	return time.Time{}, fmt.Errorf("invalid due date %q (want YYYY-MM-DD or RFC3339)", s)
}
