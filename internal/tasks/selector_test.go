package tasks

import (
	"testing"
	"time"
)

func testAgent() AgentState {
	return AgentState{
		AgentID:             "agent",
		AutoPickupEnabled:   true,
		MaxConcurrentTasks:  1,
		DueDateUrgencyHours: 24,
	}
}

func TestPickupGates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewSelector("agent")

	t.Run("auto pickup disabled", func(t *testing.T) {
		agent := testAgent()
		agent.AutoPickupEnabled = false
		all := []Task{{ID: "t1", Column: ColumnTodo}}

		res := s.Pickup(agent, all, now)
		if res.Task != nil {
			t.Fatalf("expected no task, got %s", res.Task.ID)
		}
		if res.Reason != ReasonAutoPickupDisabled {
			t.Errorf("reason = %s, want %s", res.Reason, ReasonAutoPickupDisabled)
		}
	})

	t.Run("max concurrent reached", func(t *testing.T) {
		all := []Task{
			{ID: "busy", Column: ColumnInProgress, Assignee: "agent"},
			{ID: "waiting", Column: ColumnTodo},
		}

		res := s.Pickup(testAgent(), all, now)
		if res.Task != nil {
			t.Fatalf("expected no task, got %s", res.Task.ID)
		}
		if res.Reason != ReasonMaxConcurrentReached {
			t.Errorf("reason = %s, want %s", res.Reason, ReasonMaxConcurrentReached)
		}
		if res.InProgress != 1 {
			t.Errorf("in_progress = %d, want 1", res.InProgress)
		}
	})

	t.Run("other agents work does not count", func(t *testing.T) {
		all := []Task{
			{ID: "theirs", Column: ColumnInProgress, Assignee: "other"},
			{ID: "waiting", Column: ColumnTodo},
		}

		res := s.Pickup(testAgent(), all, now)
		if res.Task == nil || res.Task.ID != "waiting" {
			t.Fatalf("expected waiting, got %+v", res)
		}
	})

	t.Run("no eligible tasks", func(t *testing.T) {
		all := []Task{
			{ID: "b", Column: ColumnBacklog},
			{ID: "r", Column: ColumnReview},
			{ID: "d", Column: ColumnDone},
			{ID: "theirs", Column: ColumnTodo, Assignee: "other"},
		}

		res := s.Pickup(testAgent(), all, now)
		if res.Task != nil {
			t.Fatalf("expected no task, got %s", res.Task.ID)
		}
		if res.Reason != ReasonNoEligibleTasks {
			t.Errorf("reason = %s, want %s", res.Reason, ReasonNoEligibleTasks)
		}
	})

	t.Run("own assigned todo is eligible", func(t *testing.T) {
		all := []Task{{ID: "mine", Column: ColumnTodo, Assignee: "agent"}}

		res := s.Pickup(testAgent(), all, now)
		if res.Task == nil || res.Task.ID != "mine" {
			t.Fatalf("expected mine, got %+v", res)
		}
	})
}

func TestPickupOrdering(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewSelector("agent")

	due := func(hours int) *time.Time {
		d := now.Add(time.Duration(hours) * time.Hour)
		return &d
	}
	created := func(min int) time.Time {
		return now.Add(-time.Duration(min) * time.Minute)
	}

	tests := []struct {
		name string
		all  []Task
		want string
	}{
		{
			name: "due urgency beats priority",
			all: []Task{
				{ID: "urgent-far", Column: ColumnTodo, Priority: PriorityUrgent, DueDate: due(48), CreatedAt: created(10)},
				{ID: "low-soon", Column: ColumnTodo, Priority: PriorityLow, DueDate: due(2), CreatedAt: created(5)},
			},
			want: "low-soon",
		},
		{
			name: "overdue beats everything",
			all: []Task{
				{ID: "urgent", Column: ColumnTodo, Priority: PriorityUrgent, CreatedAt: created(10)},
				{ID: "overdue", Column: ColumnTodo, Priority: PriorityLow, DueDate: due(-3), CreatedAt: created(5)},
			},
			want: "overdue",
		},
		{
			name: "earlier due wins among urgent",
			all: []Task{
				{ID: "later", Column: ColumnTodo, DueDate: due(20), CreatedAt: created(10)},
				{ID: "sooner", Column: ColumnTodo, DueDate: due(3), CreatedAt: created(5)},
			},
			want: "sooner",
		},
		{
			name: "priority decides without urgency",
			all: []Task{
				{ID: "med", Column: ColumnTodo, Priority: PriorityMedium, CreatedAt: created(10)},
				{ID: "high", Column: ColumnTodo, Priority: PriorityHigh, CreatedAt: created(5)},
				{ID: "low", Column: ColumnTodo, Priority: PriorityLow, CreatedAt: created(20)},
			},
			want: "high",
		},
		{
			name: "unset priority ranks as low",
			all: []Task{
				{ID: "unset", Column: ColumnTodo, CreatedAt: created(20)},
				{ID: "medium", Column: ColumnTodo, Priority: PriorityMedium, CreatedAt: created(5)},
			},
			want: "medium",
		},
		{
			name: "creation order breaks ties",
			all: []Task{
				{ID: "newer", Column: ColumnTodo, Priority: PriorityHigh, CreatedAt: created(5)},
				{ID: "older", Column: ColumnTodo, Priority: PriorityHigh, CreatedAt: created(30)},
			},
			want: "older",
		},
		{
			name: "distant due date does not trigger urgency",
			all: []Task{
				{ID: "due-next-week", Column: ColumnTodo, Priority: PriorityLow, DueDate: due(7 * 24), CreatedAt: created(30)},
				{ID: "high", Column: ColumnTodo, Priority: PriorityHigh, CreatedAt: created(5)},
			},
			want: "high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Pickup(testAgent(), tt.all, now)
			if res.Task == nil {
				t.Fatalf("expected a task, got reason %s", res.Reason)
			}
			if res.Task.ID != tt.want {
				t.Errorf("picked %s, want %s", res.Task.ID, tt.want)
			}
		})
	}
}

func TestPickupDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewSelector("agent")
	agent := testAgent()

	all := []Task{
		{ID: "a", Column: ColumnTodo, Priority: PriorityHigh, CreatedAt: now.Add(-time.Hour)},
		{ID: "b", Column: ColumnTodo, Priority: PriorityHigh, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "c", Column: ColumnTodo, Priority: PriorityLow, CreatedAt: now.Add(-3 * time.Hour)},
	}

	first := s.Pickup(agent, all, now)
	for i := 0; i < 10; i++ {
		res := s.Pickup(agent, all, now)
		if res.Task.ID != first.Task.ID {
			t.Fatalf("run %d picked %s, first pick was %s", i, res.Task.ID, first.Task.ID)
		}
	}
}

func TestPickupDoesNotMutateInput(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewSelector("agent")

	all := []Task{
		{ID: "z", Column: ColumnTodo, Priority: PriorityLow, CreatedAt: now.Add(-time.Hour)},
		{ID: "a", Column: ColumnTodo, Priority: PriorityUrgent, CreatedAt: now},
	}

	_ = s.Pickup(testAgent(), all, now)
	if all[0].ID != "z" || all[1].ID != "a" {
		t.Errorf("input slice reordered: %s, %s", all[0].ID, all[1].ID)
	}
}

func TestPriorityRank(t *testing.T) {
	ordered := []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
	for i := 1; i < len(ordered); i++ {
		if PriorityRank(ordered[i-1]) >= PriorityRank(ordered[i]) {
			t.Errorf("rank(%s) should be below rank(%s)", ordered[i-1], ordered[i])
		}
	}
	if PriorityRank("") != PriorityRank(PriorityLow) {
		t.Errorf("unset priority should rank as low")
	}
	if PriorityRank("bogus") != PriorityRank(PriorityLow) {
		t.Errorf("unknown priority should rank as low")
	}
}
