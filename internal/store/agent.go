package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/missionctl/internal/tasks"
)

const agentColumns = `agent_id, status, current_model, auto_pickup_enabled, max_concurrent_tasks, due_date_urgency_hours, nightly_start_hour, repick_window_minutes, updated_at`

// GetAgentState returns the singleton row for an agent id.
func (s *Store) GetAgentState(ctx context.Context, agentID string) (tasks.AgentState, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agent_state WHERE agent_id = ?`, agentID)

	var (
		st     tasks.AgentState
		status string
		pickup int
	)
	err := row.Scan(&st.AgentID, &status, &st.CurrentModel, &pickup,
		&st.MaxConcurrentTasks, &st.DueDateUrgencyHours, &st.NightlyStartHour,
		&st.RepickWindowMinutes, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.AgentState{}, ErrAgentNotFound
	}
	if err != nil {
		return tasks.AgentState{}, fmt.Errorf("loading agent state: %w", err)
	}
	st.Status = tasks.AgentStatus(status)
	st.AutoPickupEnabled = pickup != 0
	return st, nil
}

// EnsureAgentState creates the singleton row with the given defaults if it
// does not exist yet. An existing row is never overwritten; this runs on
// every startup.
func (s *Store) EnsureAgentState(ctx context.Context, st tasks.AgentState) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO agent_state (`+agentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.AgentID, string(st.Status), st.CurrentModel, boolInt(st.AutoPickupEnabled),
		st.MaxConcurrentTasks, st.DueDateUrgencyHours, st.NightlyStartHour,
		st.RepickWindowMinutes, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ensuring agent state: %w", err)
	}
	return nil
}

// SaveAgentState writes every configurable field of the singleton row.
func (s *Store) SaveAgentState(ctx context.Context, st tasks.AgentState) error {
	res, err := s.sql.ExecContext(ctx,
		`UPDATE agent_state SET status = ?, current_model = ?, auto_pickup_enabled = ?, max_concurrent_tasks = ?, due_date_urgency_hours = ?, nightly_start_hour = ?, repick_window_minutes = ?, updated_at = ? WHERE agent_id = ?`,
		string(st.Status), st.CurrentModel, boolInt(st.AutoPickupEnabled),
		st.MaxConcurrentTasks, st.DueDateUrgencyHours, st.NightlyStartHour,
		st.RepickWindowMinutes, st.UpdatedAt, st.AgentID)
	if err != nil {
		return fmt.Errorf("saving agent state: %w", err)
	}
	return requireRow(res, ErrAgentNotFound)
}

// UpdateAgentStatus writes only the live status field.
func (s *Store) UpdateAgentStatus(ctx context.Context, agentID string, status tasks.AgentStatus, updatedAt time.Time) error {
	res, err := s.sql.ExecContext(ctx,
		`UPDATE agent_state SET status = ?, updated_at = ? WHERE agent_id = ?`,
		string(status), updatedAt, agentID)
	if err != nil {
		return fmt.Errorf("updating agent status: %w", err)
	}
	return requireRow(res, ErrAgentNotFound)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
