// Package loop runs the scheduled caller around the engine: a repick job
// that picks up and assigns the next task, and a periodic
// auto-reprioritization sweep. The engine itself stays synchronous; this is
// the external cadence the core expects to be driven by.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marcus/missionctl/internal/engine"
	"github.com/marcus/missionctl/internal/logging"
	"github.com/marcus/missionctl/internal/reprioritizer"
)

// FlagSource supplies the current calendar flags on every sweep, so a
// config reload takes effect without restarting the loop.
type FlagSource func() reprioritizer.Flags

// Loop schedules the repick and sweep jobs.
type Loop struct {
	engine      *engine.Engine
	reprio      *reprioritizer.Service
	flags       FlagSource
	logger      *logging.Logger
	repickEvery time.Duration
	sweepEvery  time.Duration
	cron        *cron.Cron
}

// Option configures a Loop.
type Option func(*Loop)

// WithFlagSource sets where sweep flags are read from.
func WithFlagSource(fn FlagSource) Option {
	return func(l *Loop) {
		l.flags = fn
	}
}

// WithRepickEvery sets the repick cadence.
func WithRepickEvery(d time.Duration) Option {
	return func(l *Loop) {
		l.repickEvery = d
	}
}

// WithSweepEvery sets the reprioritization sweep cadence.
func WithSweepEvery(d time.Duration) Option {
	return func(l *Loop) {
		l.sweepEvery = d
	}
}

// WithLogger sets the logger.
func WithLogger(lg *logging.Logger) Option {
	return func(l *Loop) {
		l.logger = lg
	}
}

// New creates a loop with the given options.
func New(eng *engine.Engine, reprio *reprioritizer.Service, opts ...Option) *Loop {
	l := &Loop{
		engine:      eng,
		reprio:      reprio,
		flags:       func() reprioritizer.Flags { return reprioritizer.Flags{} },
		logger:      logging.Component("loop"),
		repickEvery: 30 * time.Minute,
		sweepEvery:  15 * time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start schedules both jobs and returns. Jobs stop when ctx is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	c := cron.New()

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", l.repickEvery), func() { l.Repick(ctx) }); err != nil {
		return fmt.Errorf("scheduling repick job: %w", err)
	}
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", l.sweepEvery), func() { l.Sweep(ctx) }); err != nil {
		return fmt.Errorf("scheduling sweep job: %w", err)
	}

	c.Start()
	l.cron = c
	l.logger.InfoCtx("loop started", map[string]any{
		"repick_every": l.repickEvery.String(),
		"sweep_every":  l.sweepEvery.String(),
	})

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		l.logger.Info("loop stopped")
	}()

	return nil
}

// Repick runs one pickup evaluation and, if a task is selected, assigns it
// to the agent. The agent process watching the board does the actual work
// and reports completion through the API.
func (l *Loop) Repick(ctx context.Context) {
	res, err := l.engine.Pickup(ctx)
	if err != nil {
		l.logger.ErrorCtx("pickup failed", map[string]any{"error": err.Error()})
		return
	}

	if res.Task == nil {
		l.logger.DebugCtx("nothing to pick up", map[string]any{
			"reason": string(res.Reason), "in_progress": res.InProgress,
		})
		return
	}

	assigned, err := l.engine.Assign(ctx, res.Task.ID)
	if err != nil {
		l.logger.ErrorCtx("assign failed", map[string]any{
			"task_id": res.Task.ID, "error": err.Error(),
		})
		return
	}

	l.logger.InfoCtx("task handed to agent", map[string]any{
		"task_id": assigned.ID, "title": assigned.Title, "priority": string(assigned.Priority),
	})
}

// Sweep runs one auto-reprioritization pass with the current flags.
func (l *Loop) Sweep(ctx context.Context) {
	results := l.reprio.Run(ctx, l.flags())
	if len(results) == 0 {
		return
	}

	applied, failed := 0, 0
	for _, r := range results {
		if !r.AutoApply {
			continue
		}
		if r.Success {
			applied++
		} else {
			failed++
		}
	}
	l.logger.InfoCtx("sweep finished", map[string]any{
		"recommended": len(results), "applied": applied, "failed": failed,
	})
}
