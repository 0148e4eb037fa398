package reprioritizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcus/missionctl/internal/store"
	"github.com/marcus/missionctl/internal/tasks"
	"github.com/marcus/missionctl/internal/threshold"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeTaskStore struct {
	mu       sync.Mutex
	tasks    []tasks.Task
	listErr  error
	failIDs  map[string]error
	updates  map[string]tasks.Priority
	listGate chan struct{} // when set, ListTasks blocks until closed
}

func (f *fakeTaskStore) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	if f.listGate != nil {
		<-f.listGate
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tasks, nil
}

func (f *fakeTaskStore) UpdateTaskPriority(ctx context.Context, id string, p tasks.Priority, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failIDs[id]; ok {
		return err
	}
	if f.updates == nil {
		f.updates = map[string]tasks.Priority{}
	}
	f.updates[id] = p
	return nil
}

type fakeActivityLog struct {
	mu        sync.Mutex
	entries   []store.Activity
	appendErr error
}

func (f *fakeActivityLog) AppendActivity(ctx context.Context, a store.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, a)
	return nil
}

func onFlags() Flags {
	return Flags{CalendarV2: true, AutoReprioritise: true}
}

func dueIn(days int) *time.Time {
	d := testNow.AddDate(0, 0, days)
	return &d
}

func newTestService(ts *fakeTaskStore, al *fakeActivityLog, opts ...Option) *Service {
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	return New(ts, al, "agent", opts...)
}

func TestRunDisabledFlags(t *testing.T) {
	ts := &fakeTaskStore{tasks: []tasks.Task{
		{ID: "t1", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(-1)},
	}}
	s := newTestService(ts, &fakeActivityLog{})

	for _, flags := range []Flags{
		{},
		{CalendarV2: true},
		{AutoReprioritise: true},
	} {
		if got := s.Run(context.Background(), flags); got != nil {
			t.Errorf("Run(%+v) = %v, want nil", flags, got)
		}
	}
	if len(ts.updates) != 0 {
		t.Errorf("updates happened with flags off: %v", ts.updates)
	}
}

func TestRunAppliesCriticalAndOverdue(t *testing.T) {
	ts := &fakeTaskStore{tasks: []tasks.Task{
		{ID: "over", Column: tasks.ColumnTodo, Priority: tasks.PriorityMedium, DueDate: dueIn(-2)},
		{ID: "crit", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(1)},
		{ID: "fine", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(30)},
	}}
	al := &fakeActivityLog{}
	s := newTestService(ts, al)

	results := s.Run(context.Background(), onFlags())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	if ts.updates["over"] != tasks.PriorityUrgent {
		t.Errorf("over upgraded to %s, want urgent", ts.updates["over"])
	}
	if ts.updates["crit"] != tasks.PriorityHigh {
		t.Errorf("crit upgraded to %s, want high", ts.updates["crit"])
	}

	for _, r := range results {
		if !r.AutoApply || !r.Success {
			t.Errorf("result %+v should be applied", r)
		}
	}

	if len(al.entries) != 2 {
		t.Fatalf("activity entries = %d, want 2", len(al.entries))
	}
	for _, e := range al.entries {
		if e.Action != store.ActionTaskReprioritised {
			t.Errorf("action = %s, want %s", e.Action, store.ActionTaskReprioritised)
		}
		if e.Metadata["autoReprioritised"] != true {
			t.Errorf("metadata missing autoReprioritised: %v", e.Metadata)
		}
	}
}

func TestRunWarningIsAdvisoryOnly(t *testing.T) {
	ts := &fakeTaskStore{tasks: []tasks.Task{
		{ID: "warn", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(3)},
	}}
	al := &fakeActivityLog{}
	s := newTestService(ts, al)

	results := s.Run(context.Background(), onFlags())
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	r := results[0]
	if r.AutoApply || r.Success {
		t.Errorf("warning result must not be applied: %+v", r)
	}
	if r.State != threshold.StateWarning {
		t.Errorf("state = %s, want warning", r.State)
	}
	if r.ToPriority != tasks.PriorityMedium {
		t.Errorf("recommended %s, want medium", r.ToPriority)
	}

	if len(ts.updates) != 0 {
		t.Errorf("warning tier wrote priorities: %v", ts.updates)
	}
	if len(al.entries) != 0 {
		t.Errorf("warning tier wrote activity: %v", al.entries)
	}
}

func TestRunDeduplicatesPerSession(t *testing.T) {
	ts := &fakeTaskStore{tasks: []tasks.Task{
		{ID: "over", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(-1)},
	}}
	s := newTestService(ts, &fakeActivityLog{})
	ctx := context.Background()

	first := s.Run(ctx, onFlags())
	if len(first) != 1 || !first[0].Success {
		t.Fatalf("first run = %+v, want one applied result", first)
	}

	// The store still reports the old priority, as if the write raced or the
	// dashboard reverted it. The sweep must not touch the task again.
	second := s.Run(ctx, onFlags())
	if len(second) != 0 {
		t.Errorf("second run = %+v, want none", second)
	}
}

func TestRunFailureIsolatedPerTask(t *testing.T) {
	ts := &fakeTaskStore{
		tasks: []tasks.Task{
			{ID: "bad", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(-1)},
			{ID: "good", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(-1)},
		},
		failIDs: map[string]error{"bad": errors.New("locked")},
	}
	s := newTestService(ts, &fakeActivityLog{})

	results := s.Run(context.Background(), onFlags())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	byID := map[string]Result{}
	for _, r := range results {
		byID[r.TaskID] = r
	}
	if byID["bad"].Success || byID["bad"].Error == "" {
		t.Errorf("bad result = %+v, want failure with error", byID["bad"])
	}
	if !byID["good"].Success {
		t.Errorf("good result = %+v, want success", byID["good"])
	}

	// A failed task is retried next sweep; a succeeded one is not.
	second := s.Run(context.Background(), onFlags())
	if len(second) != 1 || second[0].TaskID != "bad" {
		t.Errorf("second run = %+v, want retry of bad only", second)
	}
}

func TestRunListFailureReturnsNothing(t *testing.T) {
	ts := &fakeTaskStore{listErr: errors.New("db gone")}
	s := newTestService(ts, &fakeActivityLog{})

	if got := s.Run(context.Background(), onFlags()); got != nil {
		t.Errorf("Run() = %v, want nil", got)
	}
}

func TestRunActivityFailureDoesNotUndoUpgrade(t *testing.T) {
	ts := &fakeTaskStore{tasks: []tasks.Task{
		{ID: "over", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(-1)},
	}}
	al := &fakeActivityLog{appendErr: errors.New("log table missing")}
	s := newTestService(ts, al)

	results := s.Run(context.Background(), onFlags())
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v, want one applied result", results)
	}
	if ts.updates["over"] != tasks.PriorityUrgent {
		t.Errorf("priority write missing despite activity failure")
	}
}

func TestRunMutualExclusion(t *testing.T) {
	gate := make(chan struct{})
	ts := &fakeTaskStore{
		tasks: []tasks.Task{
			{ID: "over", Column: tasks.ColumnTodo, Priority: tasks.PriorityLow, DueDate: dueIn(-1)},
		},
		listGate: gate,
	}
	s := newTestService(ts, &fakeActivityLog{})
	ctx := context.Background()

	done := make(chan []Result, 1)
	go func() { done <- s.Run(ctx, onFlags()) }()

	// Wait for the first run to take the lock and block inside ListTasks.
	deadline := time.Now().Add(2 * time.Second)
	for s.running.TryLock() {
		s.running.Unlock()
		if time.Now().After(deadline) {
			t.Fatal("first run never took the lock")
		}
		time.Sleep(time.Millisecond)
	}

	if got := s.Run(ctx, onFlags()); got != nil {
		t.Errorf("concurrent Run() = %v, want nil", got)
	}

	close(gate)
	if first := <-done; len(first) != 1 {
		t.Errorf("first run = %+v, want one result", first)
	}
}

func TestProcessedSet(t *testing.T) {
	p := NewProcessedSet()
	if p.Has("a") {
		t.Error("empty set should not contain a")
	}
	p.Add("a")
	p.Add("a")
	p.Add("b")
	if !p.Has("a") || !p.Has("b") {
		t.Error("set lost added ids")
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
	p.Reset()
	if p.Len() != 0 || p.Has("a") {
		t.Error("Reset() did not clear the set")
	}
}
