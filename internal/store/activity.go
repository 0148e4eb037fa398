package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the engine. The activity log is append-only; rows are
// never updated or deleted.
const (
	ActionTaskAssigned      = "task_assigned"
	ActionTaskCompleted     = "task_completed"
	ActionTaskReprioritised = "task_reprioritised"
)

// EntityTask is the entity type for task-scoped activity entries.
const EntityTask = "task"

// Activity is one audit record.
type Activity struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// FieldChange records an old/new pair inside an activity entry's changes map.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// AppendActivity inserts one audit record. A missing id or timestamp is
// filled in here so callers only describe what happened.
func (s *Store) AppendActivity(ctx context.Context, a Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	changes, err := marshalMap(a.Changes)
	if err != nil {
		return fmt.Errorf("marshaling activity changes: %w", err)
	}
	metadata, err := marshalMap(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling activity metadata: %w", err)
	}

	_, err = s.sql.ExecContext(ctx,
		`INSERT INTO activity_log (id, actor, action, entity_type, entity_id, changes, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Actor, a.Action, a.EntityType, a.EntityID, changes, metadata, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent entries, newest first.
func (s *Store) ListActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sql.QueryContext(ctx,
		`SELECT id, actor, action, entity_type, entity_id, changes, metadata, created_at FROM activity_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var list []Activity
	for rows.Next() {
		var (
			a        Activity
			changes  string
			metadata string
		)
		if err := rows.Scan(&a.ID, &a.Actor, &a.Action, &a.EntityType, &a.EntityID, &changes, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(changes), &a.Changes); err != nil {
			return nil, fmt.Errorf("parsing activity changes: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
			return nil, fmt.Errorf("parsing activity metadata: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
