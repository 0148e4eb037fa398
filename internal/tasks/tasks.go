// Package tasks defines the kanban task model and the agent pickup selector.
// Tasks live in an external store; this package owns the in-memory shapes and
// the pure selection logic over them.
package tasks

import "time"

// Column identifies a kanban board column.
type Column string

const (
	ColumnBacklog    Column = "backlog"
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in-progress"
	ColumnReview     Column = "review"
	ColumnDone       Column = "done"
)

// ValidColumn reports whether c is a known board column.
func ValidColumn(c Column) bool {
	switch c {
	case ColumnBacklog, ColumnTodo, ColumnInProgress, ColumnReview, ColumnDone:
		return true
	}
	return false
}

// Priority is a task's urgency label. An empty priority is treated as low
// everywhere ordering matters; see PriorityRank.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PriorityRank maps a priority to its sort rank: urgent(0) < high(1) <
// medium(2) < low(3). Unset or unknown priorities rank as low, so the
// default lives here rather than scattered across call sites.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Task represents a single card on the board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Column      Column     `json:"column"`
	Priority    Priority   `json:"priority,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AgentStatus mirrors what the agent is currently doing. The core only ever
// writes idle and active; thinking is set by the chat surface.
type AgentStatus string

const (
	StatusIdle     AgentStatus = "idle"
	StatusActive   AgentStatus = "active"
	StatusThinking AgentStatus = "thinking"
)

// AgentState is the singleton row describing the agent's configuration and
// live status. Exactly one row exists per agent id.
type AgentState struct {
	AgentID             string      `json:"agent_id"`
	Status              AgentStatus `json:"status"`
	CurrentModel        string      `json:"current_model,omitempty"`
	AutoPickupEnabled   bool        `json:"auto_pickup_enabled"`
	MaxConcurrentTasks  int         `json:"max_concurrent_tasks"`
	DueDateUrgencyHours int         `json:"due_date_urgency_hours"`
	NightlyStartHour    int         `json:"nightly_start_hour"`
	RepickWindowMinutes int         `json:"repick_window_minutes"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// UrgencyWindow returns the due-date horizon within which a task is treated
// as time-critical for pickup ordering.
func (a AgentState) UrgencyWindow() time.Duration {
	return time.Duration(a.DueDateUrgencyHours) * time.Hour
}
