// Package store persists tasks, the agent-state singleton, and the
// append-only activity log in SQLite. The engine talks to these methods
// through narrow interfaces so the backing store stays swappable.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/missionctl/internal/db"
	"github.com/marcus/missionctl/internal/tasks"
)

var (
	// ErrTaskNotFound is returned when a task id does not resolve.
	ErrTaskNotFound = errors.New("task not found")
	// ErrAgentNotFound is returned when the agent-state row is missing.
	ErrAgentNotFound = errors.New("agent state not found")
)

// Store provides access to all missionctl tables.
type Store struct {
	sql *sql.DB
}

// New creates a Store over an open database.
func New(d *db.DB) *Store {
	return &Store{sql: d.SQL()}
}

const taskColumns = `id, title, description, "column", priority, assignee, due_date, labels, created_at, updated_at`

// ListTasks returns every task ordered by creation time.
func (s *Store) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var list []tasks.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// GetTask returns one task by id.
func (s *Store) GetTask(ctx context.Context, id string) (tasks.Task, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Task{}, ErrTaskNotFound
	}
	return t, err
}

// CreateTask inserts a new task.
func (s *Store) CreateTask(ctx context.Context, t tasks.Task) error {
	labels, err := marshalLabels(t.Labels)
	if err != nil {
		return err
	}
	_, err = s.sql.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Column), string(t.Priority), t.Assignee,
		nullTime(t.DueDate), labels, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating task %s: %w", t.ID, err)
	}
	return nil
}

// SaveTask writes a task's mutable fields back to the store.
func (s *Store) SaveTask(ctx context.Context, t tasks.Task) error {
	labels, err := marshalLabels(t.Labels)
	if err != nil {
		return err
	}
	res, err := s.sql.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, "column" = ?, priority = ?, assignee = ?, due_date = ?, labels = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Column), string(t.Priority), t.Assignee,
		nullTime(t.DueDate), labels, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("saving task %s: %w", t.ID, err)
	}
	return requireRow(res, ErrTaskNotFound)
}

// UpdateTaskPriority writes only the priority and updated_at of a task.
func (s *Store) UpdateTaskPriority(ctx context.Context, id string, p tasks.Priority, updatedAt time.Time) error {
	res, err := s.sql.ExecContext(ctx,
		`UPDATE tasks SET priority = ?, updated_at = ? WHERE id = ?`,
		string(p), updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating priority of task %s: %w", id, err)
	}
	return requireRow(res, ErrTaskNotFound)
}

// CountInProgress returns how many tasks are in-progress for an assignee.
func (s *Store) CountInProgress(ctx context.Context, assignee string) (int, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE "column" = ? AND assignee = ?`,
		string(tasks.ColumnInProgress), assignee)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting in-progress tasks: %w", err)
	}
	return count, nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func marshalLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("marshaling labels: %w", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (tasks.Task, error) {
	var (
		t      tasks.Task
		column string
		prio   string
		due    sql.NullTime
		labels string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &column, &prio, &t.Assignee,
		&due, &labels, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return tasks.Task{}, err
	}
	t.Column = tasks.Column(column)
	t.Priority = tasks.Priority(prio)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if labels != "" {
		if err := json.Unmarshal([]byte(labels), &t.Labels); err != nil {
			return tasks.Task{}, fmt.Errorf("parsing labels of task %s: %w", t.ID, err)
		}
	}
	return t, nil
}
