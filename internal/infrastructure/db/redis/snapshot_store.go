package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// SnapshotStore persists the full task collection as a single JSON blob
// under one key. The store is an opaque mirror: the task service writes the
// whole snapshot through on every mutation and reads it back once on
// startup.
type SnapshotStore struct {
	client *redis.Client
}

// NewSnapshotStore wraps the given Redis client.
func NewSnapshotStore(client *redis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

// Load returns the persisted collection. A missing key reports found=false.
// A blob that fails to decode is reported the same way, so the caller
// reseeds instead of propagating a parse error.
func (s *SnapshotStore) Load(ctx context.Context) ([]domain.Task, bool, error) {
	raw, err := s.client.Get(ctx, taskSnapshotKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("snapshot load: %w", err)
	}

	var tasks []domain.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, false, nil
	}
	return tasks, true, nil
}

// Save replaces the persisted snapshot with the given collection.
func (s *SnapshotStore) Save(ctx context.Context, tasks []domain.Task) error {
	blob, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := s.client.Set(ctx, taskSnapshotKey, blob, 0).Err(); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}
