// Package engine implements the agent's task pickup, assignment, and
// completion operations. Task writes are authoritative; the agent-status
// mirror and the status half of every dual write are best-effort.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/missionctl/internal/logging"
	"github.com/marcus/missionctl/internal/store"
	"github.com/marcus/missionctl/internal/tasks"
)

// TaskStore is what the engine needs from the task table.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]tasks.Task, error)
	GetTask(ctx context.Context, id string) (tasks.Task, error)
	SaveTask(ctx context.Context, t tasks.Task) error
	CountInProgress(ctx context.Context, assignee string) (int, error)
}

// AgentStore is what the engine needs from the agent-state singleton.
type AgentStore interface {
	GetAgentState(ctx context.Context, agentID string) (tasks.AgentState, error)
	UpdateAgentStatus(ctx context.Context, agentID string, status tasks.AgentStatus, updatedAt time.Time) error
}

// ActivityLog records audit entries for every mutating operation.
type ActivityLog interface {
	AppendActivity(ctx context.Context, a store.Activity) error
}

// Engine coordinates the pickup selector and the state machine for one
// fixed agent identity.
type Engine struct {
	tasks    TaskStore
	agent    AgentStore
	activity ActivityLog
	agentID  string
	selector *tasks.Selector
	logger   *logging.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine for the given agent identity.
func New(ts TaskStore, as AgentStore, al ActivityLog, agentID string, opts ...Option) *Engine {
	e := &Engine{
		tasks:    ts,
		agent:    as,
		activity: al,
		agentID:  agentID,
		selector: tasks.NewSelector(agentID),
		logger:   logging.Component("engine"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AgentID returns the fixed agent identity this engine operates as.
func (e *Engine) AgentID() string {
	return e.agentID
}

// Pickup evaluates the autonomy gates and returns at most one task to work
// on. It never mutates task or agent state.
func (e *Engine) Pickup(ctx context.Context) (tasks.PickupResult, error) {
	state, err := e.agent.GetAgentState(ctx, e.agentID)
	if err != nil {
		return tasks.PickupResult{}, fmt.Errorf("loading agent state: %w", err)
	}

	all, err := e.tasks.ListTasks(ctx)
	if err != nil {
		return tasks.PickupResult{}, fmt.Errorf("loading tasks: %w", err)
	}

	return e.selector.Pickup(state, all, e.now()), nil
}

// Assign moves a task to in-progress and claims it for the agent. Any
// existing task may be assigned; the caller is not required to have picked
// it up first.
func (e *Engine) Assign(ctx context.Context, taskID string) (tasks.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return tasks.Task{}, ErrMissingTaskID
	}

	t, err := e.tasks.GetTask(ctx, taskID)
	if err != nil {
		return tasks.Task{}, err
	}

	now := e.now()
	prevColumn, prevAssignee := t.Column, t.Assignee
	t.Column = tasks.ColumnInProgress
	t.Assignee = e.agentID
	t.UpdatedAt = now

	if err := e.tasks.SaveTask(ctx, t); err != nil {
		return tasks.Task{}, fmt.Errorf("assigning task %s: %w", taskID, err)
	}

	if err := e.activity.AppendActivity(ctx, store.Activity{
		Actor:      e.agentID,
		Action:     store.ActionTaskAssigned,
		EntityType: store.EntityTask,
		EntityID:   t.ID,
		Changes: map[string]any{
			"column":   store.FieldChange{Old: string(prevColumn), New: string(tasks.ColumnInProgress)},
			"assignee": store.FieldChange{Old: prevAssignee, New: e.agentID},
		},
		CreatedAt: now,
	}); err != nil {
		return tasks.Task{}, fmt.Errorf("recording assignment of task %s: %w", taskID, err)
	}

	e.mirrorStatus(ctx, tasks.StatusActive, now, "assign", t.ID)
	return t, nil
}

// Complete moves a task to done. The agent goes idle once it holds no
// in-progress tasks; otherwise it stays active.
func (e *Engine) Complete(ctx context.Context, taskID string) (tasks.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return tasks.Task{}, ErrMissingTaskID
	}

	t, err := e.tasks.GetTask(ctx, taskID)
	if err != nil {
		return tasks.Task{}, err
	}

	now := e.now()
	prevColumn := t.Column
	t.Column = tasks.ColumnDone
	t.UpdatedAt = now

	if err := e.tasks.SaveTask(ctx, t); err != nil {
		return tasks.Task{}, fmt.Errorf("completing task %s: %w", taskID, err)
	}

	if err := e.activity.AppendActivity(ctx, store.Activity{
		Actor:      e.agentID,
		Action:     store.ActionTaskCompleted,
		EntityType: store.EntityTask,
		EntityID:   t.ID,
		Changes: map[string]any{
			"column": store.FieldChange{Old: string(prevColumn), New: string(tasks.ColumnDone)},
		},
		CreatedAt: now,
	}); err != nil {
		return tasks.Task{}, fmt.Errorf("recording completion of task %s: %w", taskID, err)
	}

	status := tasks.StatusIdle
	if remaining, err := e.tasks.CountInProgress(ctx, e.agentID); err != nil {
		e.logger.WarnCtx("in-progress count failed after complete", map[string]any{
			"task_id": t.ID, "error": err.Error(),
		})
	} else if remaining > 0 {
		status = tasks.StatusActive
	}
	e.mirrorStatus(ctx, status, now, "complete", t.ID)

	return t, nil
}

// mirrorStatus updates the agent-state row after a task write. A failure
// here is logged and tolerated: the task write already succeeded and is not
// rolled back.
func (e *Engine) mirrorStatus(ctx context.Context, status tasks.AgentStatus, now time.Time, op, taskID string) {
	if err := e.agent.UpdateAgentStatus(ctx, e.agentID, status, now); err != nil {
		e.logger.WarnCtx("agent status update failed", map[string]any{
			"op": op, "task_id": taskID, "status": string(status), "error": err.Error(),
		})
	}
}
