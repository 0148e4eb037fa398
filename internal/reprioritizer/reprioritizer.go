// Package reprioritizer applies due-date driven priority upgrades to the
// task store. Only critical and overdue recommendations are auto-applied;
// warning-tier ones are surfaced in the result for manual action.
package reprioritizer

import (
	"context"
	"sync"
	"time"

	"github.com/marcus/missionctl/internal/logging"
	"github.com/marcus/missionctl/internal/store"
	"github.com/marcus/missionctl/internal/tasks"
	"github.com/marcus/missionctl/internal/threshold"
)

// TaskStore is what the reprioritizer needs from the task table.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]tasks.Task, error)
	UpdateTaskPriority(ctx context.Context, id string, p tasks.Priority, updatedAt time.Time) error
}

// ActivityLog records audit entries for applied upgrades.
type ActivityLog interface {
	AppendActivity(ctx context.Context, a store.Activity) error
}

// Flags gate the loop. They are read by the caller and passed in
// explicitly; the loop never reaches into a settings object.
type Flags struct {
	CalendarV2       bool
	AutoReprioritise bool
}

// Enabled reports whether the loop may run at all.
func (f Flags) Enabled() bool {
	return f.CalendarV2 && f.AutoReprioritise
}

// Result describes the outcome for one recommended task. Success reports
// whether a priority write was applied; AutoApply is false for warning-tier
// rows, which never cause a write.
type Result struct {
	TaskID       string          `json:"task_id"`
	Success      bool            `json:"success"`
	FromPriority tasks.Priority  `json:"from_priority"`
	ToPriority   tasks.Priority  `json:"to_priority"`
	Reason       string          `json:"reason"`
	State        threshold.State `json:"threshold_state"`
	AutoApply    bool            `json:"auto_apply"`
	Error        string          `json:"error,omitempty"`
}

// Service runs the auto-reprioritization sweep. At most one sweep is in
// flight per instance; a concurrent call returns an empty result without
// blocking or queuing.
type Service struct {
	tasks     TaskStore
	activity  ActivityLog
	actor     string
	processed *ProcessedSet
	logger    *logging.Logger
	now       func() time.Time
	running   sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithProcessedSet injects the dedup set, letting callers share or reset it.
func WithProcessedSet(p *ProcessedSet) Option {
	return func(s *Service) {
		s.processed = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a reprioritization service. The actor name is recorded on
// every activity entry the sweep writes.
func New(ts TaskStore, al ActivityLog, actor string, opts ...Option) *Service {
	s := &Service{
		tasks:     ts,
		activity:  al,
		actor:     actor,
		processed: NewProcessedSet(),
		logger:    logging.Component("reprioritizer"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep. It never returns an error: a failed write for one
// task is captured in its result entry and does not stop the others. When
// the flags are off the sweep does nothing, not even compute
// recommendations.
func (s *Service) Run(ctx context.Context, flags Flags) []Result {
	if !flags.Enabled() {
		return nil
	}
	if !s.running.TryLock() {
		s.logger.Debug("sweep already in flight, skipping")
		return nil
	}
	defer s.running.Unlock()

	list, err := s.tasks.ListTasks(ctx)
	if err != nil {
		s.logger.ErrorCtx("sweep aborted, task list unavailable", map[string]any{"error": err.Error()})
		return nil
	}

	now := s.now()
	var results []Result
	for _, rec := range threshold.Recommend(list, now) {
		if !rec.State.AutoApply() {
			results = append(results, Result{
				TaskID:       rec.TaskID,
				FromPriority: rec.CurrentPriority,
				ToPriority:   rec.RecommendedPriority,
				Reason:       rec.Reason,
				State:        rec.State,
			})
			continue
		}

		// One upgrade and one notification per task per process lifetime.
		if s.processed.Has(rec.TaskID) {
			continue
		}

		results = append(results, s.apply(ctx, rec, now))
	}
	return results
}

func (s *Service) apply(ctx context.Context, rec threshold.Recommendation, now time.Time) Result {
	res := Result{
		TaskID:       rec.TaskID,
		FromPriority: rec.CurrentPriority,
		ToPriority:   rec.RecommendedPriority,
		Reason:       rec.Reason,
		State:        rec.State,
		AutoApply:    true,
	}

	if err := s.tasks.UpdateTaskPriority(ctx, rec.TaskID, rec.RecommendedPriority, now); err != nil {
		res.Error = err.Error()
		s.logger.WarnCtx("priority upgrade failed", map[string]any{
			"task_id": rec.TaskID, "to": string(rec.RecommendedPriority), "error": err.Error(),
		})
		return res
	}

	res.Success = true
	s.processed.Add(rec.TaskID)

	if err := s.activity.AppendActivity(ctx, store.Activity{
		Actor:      s.actor,
		Action:     store.ActionTaskReprioritised,
		EntityType: store.EntityTask,
		EntityID:   rec.TaskID,
		Changes: map[string]any{
			"priority": store.FieldChange{Old: string(rec.CurrentPriority), New: string(rec.RecommendedPriority)},
		},
		Metadata: map[string]any{
			"reason":            rec.Reason,
			"thresholdState":    string(rec.State),
			"autoReprioritised": true,
		},
		CreatedAt: now,
	}); err != nil {
		s.logger.WarnCtx("activity write failed after priority upgrade", map[string]any{
			"task_id": rec.TaskID, "error": err.Error(),
		})
	}

	s.logger.InfoCtx("priority upgraded", map[string]any{
		"task_id": rec.TaskID,
		"from":    string(rec.CurrentPriority),
		"to":      string(rec.RecommendedPriority),
		"state":   string(rec.State),
	})
	return res
}
