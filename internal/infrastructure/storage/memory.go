// Package storage provides the in-memory fallback for the task snapshot
// mirror, used when the service runs without Redis (development, tests).
package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// MemorySnapshotStore keeps the task snapshot as a JSON blob in process
// memory. It round-trips through JSON so serialization behavior matches the
// Redis-backed store, including timestamp reconstruction.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	blob []byte
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) Load(_ context.Context) ([]domain.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blob == nil {
		return nil, false, nil
	}
	var tasks []domain.Task
	if err := json.Unmarshal(s.blob, &tasks); err != nil {
		// Malformed blobs count as absent so the caller reseeds.
		return nil, false, nil
	}
	return tasks, true, nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, tasks []domain.Task) error {
	blob, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blob = blob
	s.mu.Unlock()
	return nil
}
