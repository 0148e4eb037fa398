// Package tasks provides task selection for the autonomous agent.
package tasks

import (
	"sort"
	"time"
)

// Reason explains why the selector returned no task.
type Reason string

const (
	ReasonAutoPickupDisabled   Reason = "auto_pickup_disabled"
	ReasonMaxConcurrentReached Reason = "max_concurrent_reached"
	ReasonNoEligibleTasks      Reason = "no_eligible_tasks"
)

// PickupResult is the outcome of a single pickup evaluation. Either Task is
// set and Reason is empty, or Task is nil and Reason says why.
type PickupResult struct {
	Task       *Task  `json:"task"`
	Reason     Reason `json:"reason,omitempty"`
	InProgress int    `json:"in_progress,omitempty"`
}

// Selector chooses the next task for a fixed agent identity. It is read-only:
// it never mutates task or agent state.
type Selector struct {
	agentID string
}

// NewSelector creates a selector for the given agent identity.
func NewSelector(agentID string) *Selector {
	return &Selector{agentID: agentID}
}

// Pickup evaluates the autonomy gates and returns at most one task.
// Gates run in order: auto-pickup flag, concurrency cap, eligibility.
// The same agent state and task list always yield the same selection.
func (s *Selector) Pickup(agent AgentState, all []Task, now time.Time) PickupResult {
	if !agent.AutoPickupEnabled {
		return PickupResult{Reason: ReasonAutoPickupDisabled}
	}

	inProgress := s.CountInProgress(all)
	if inProgress >= agent.MaxConcurrentTasks {
		return PickupResult{Reason: ReasonMaxConcurrentReached, InProgress: inProgress}
	}

	eligible := s.FilterEligible(all)
	if len(eligible) == 0 {
		return PickupResult{Reason: ReasonNoEligibleTasks}
	}

	SortForPickup(eligible, now, agent.UrgencyWindow())

	picked := eligible[0]
	return PickupResult{Task: &picked, InProgress: inProgress}
}

// CountInProgress returns how many tasks are in-progress and assigned to the
// agent. Tasks in-progress but owned by someone else do not count against
// the concurrency cap.
func (s *Selector) CountInProgress(all []Task) int {
	count := 0
	for _, t := range all {
		if t.Column == ColumnInProgress && t.Assignee == s.agentID {
			count++
		}
	}
	return count
}

// FilterEligible returns tasks the agent may pick up: todo column, and
// either unassigned or already assigned to the agent.
func (s *Selector) FilterEligible(all []Task) []Task {
	eligible := make([]Task, 0, len(all))
	for _, t := range all {
		if t.Column != ColumnTodo {
			continue
		}
		if t.Assignee != "" && t.Assignee != s.agentID {
			continue
		}
		eligible = append(eligible, t)
	}
	return eligible
}

// SortForPickup orders tasks by the pickup tie-break chain:
// due-urgency first, then earlier due date among urgent tasks, then priority
// rank, then creation order (oldest first).
func SortForPickup(list []Task, now time.Time, window time.Duration) {
	sort.SliceStable(list, func(i, j int) bool {
		return pickupLess(list[i], list[j], now, window)
	})
}

func pickupLess(a, b Task, now time.Time, window time.Duration) bool {
	au := urgentByDue(a, now, window)
	bu := urgentByDue(b, now, window)
	if au != bu {
		return au
	}
	if au && bu && !a.DueDate.Equal(*b.DueDate) {
		return a.DueDate.Before(*b.DueDate)
	}
	if ra, rb := PriorityRank(a.Priority), PriorityRank(b.Priority); ra != rb {
		return ra < rb
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// urgentByDue reports whether a task's due date falls within the urgency
// window. Overdue tasks have a negative distance and therefore always
// qualify.
func urgentByDue(t Task, now time.Time, window time.Duration) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.Sub(now) <= window
}
