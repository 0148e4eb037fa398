package threshold

import (
	"time"

	"github.com/marcus/missionctl/internal/tasks"
)

// Human-readable reasons attached to recommendations. These surface in the
// dashboard and in activity-log metadata, so keep them stable.
const (
	ReasonOverdue  = "Overdue task requires immediate attention"
	ReasonCritical = "Due within 24 hours"
	ReasonWarning  = "Due within 3 days"
)

// Recommendation proposes a priority upgrade for one task. It is ephemeral:
// produced here, consumed by the reprioritizer, never persisted.
type Recommendation struct {
	TaskID              string         `json:"task_id"`
	CurrentPriority     tasks.Priority `json:"current_priority"`
	RecommendedPriority tasks.Priority `json:"recommended_priority"`
	Reason              string         `json:"reason"`
	State               State          `json:"threshold_state"`
}

// Recommend walks the task list and proposes upgrades only, never
// downgrades. Done tasks are skipped. Output preserves input order, one
// entry per affected task.
func Recommend(list []tasks.Task, now time.Time) []Recommendation {
	var recs []Recommendation
	for _, t := range list {
		if t.Column == tasks.ColumnDone {
			continue
		}

		state := Classify(t.DueDate, now)
		rank := tasks.PriorityRank(t.Priority)

		var target tasks.Priority
		var reason string
		switch {
		case state == StateOverdue && rank > tasks.PriorityRank(tasks.PriorityUrgent):
			target, reason = tasks.PriorityUrgent, ReasonOverdue
		case state == StateCritical && rank > tasks.PriorityRank(tasks.PriorityHigh):
			target, reason = tasks.PriorityHigh, ReasonCritical
		case state == StateWarning && rank > tasks.PriorityRank(tasks.PriorityMedium):
			target, reason = tasks.PriorityMedium, ReasonWarning
		default:
			continue
		}

		recs = append(recs, Recommendation{
			TaskID:              t.ID,
			CurrentPriority:     t.Priority,
			RecommendedPriority: target,
			Reason:              reason,
			State:               state,
		})
	}
	return recs
}
