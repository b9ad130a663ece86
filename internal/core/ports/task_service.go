package ports

import (
	"context"
	"time"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// Actor identifies the principal performing a mutation. It becomes the
// task's creator on Create and is excluded from the mutation's notification
// recipients: a principal is never notified about their own change.
type Actor struct {
	Email string
	Name  string
}

// CreateTaskInput carries all data needed to create a new task. Identity and
// timestamps are assigned by the service; the actor becomes the creator.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  string
	Actor       Actor
	DueDate     *time.Time
	Tags        []string
}

// UpdateTaskInput is a partial patch: nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssignedTo  *string
	DueDate     *time.Time
	ClearDue    bool
	Tags        []string
	Actor       Actor
}

// ListTasksFilter carries the query parameters for the list endpoint. All
// predicates are linear scans over the in-memory collection.
type ListTasksFilter struct {
	Status   string
	Priority string
	Assignee string
	// Search matches case-insensitively on title and description.
	Search string
}

// TaskSummary aggregates collection-wide counts for the dashboard view.
type TaskSummary struct {
	Total      int                             `json:"total"`
	ByStatus   map[domain.TaskStatus]int       `json:"by_status"`
	ByPriority map[domain.TaskPriority]int     `json:"by_priority"`
	Overdue    int                             `json:"overdue"`
	// CompletionRate is completed/total in [0,1]; 0 for an empty collection.
	CompletionRate float64 `json:"completion_rate"`
}

// CalendarBucket groups the tasks due on a single day.
type CalendarBucket struct {
	Date  string        `json:"date"` // YYYY-MM-DD
	Tasks []domain.Task `json:"tasks"`
}

// TaskService is the authoritative task collection. The in-memory list is
// the source of truth; every mutation synchronously mirrors the full
// snapshot to the persistence collaborator before returning.
type TaskService interface {
	// Initialize loads the persisted snapshot, seeding sample tasks when
	// none exists (malformed data counts as absent). Never fails outward.
	Initialize(ctx context.Context)
	Loading() bool

	Create(ctx context.Context, input CreateTaskInput) (domain.Task, error)
	Update(ctx context.Context, id string, patch UpdateTaskInput) (domain.Task, error)
	Delete(ctx context.Context, id string, actor Actor) error
	ToggleStatus(ctx context.Context, id string, actor Actor) error

	Get(id string) (domain.Task, error)
	List(filter ListTasksFilter) []domain.Task
	ByStatus(status domain.TaskStatus) []domain.Task
	ByAssignee(assignee string) []domain.Task
	CalendarRange(from, to time.Time) []CalendarBucket
	Summary(now time.Time) TaskSummary
}
