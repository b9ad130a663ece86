package ports

import (
	"context"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// TaskRepository mirrors the task collection to an opaque blob store.
// Persistence is a mirror, not a second source of truth: the service writes
// the full snapshot through on every mutation and reads it back only once,
// on initialization.
type TaskRepository interface {
	// Load returns the persisted collection. found is false when no
	// snapshot exists; a malformed snapshot is reported the same way so
	// the caller can reseed instead of propagating a parse error.
	Load(ctx context.Context) (tasks []domain.Task, found bool, err error)
	// Save replaces the persisted snapshot with the given collection.
	Save(ctx context.Context, tasks []domain.Task) error
}
