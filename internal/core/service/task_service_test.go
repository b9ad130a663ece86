package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

// stubSnapshotRepo mirrors the real blob store: it keeps the snapshot as
// encoded JSON so round-trips exercise serialization, including timestamp
// reconstruction.
type stubSnapshotRepo struct {
	blob      []byte
	saveCalls int
	saveErr   error // if set, Save returns this error
	loadErr   error // if set, Load returns this error
}

func (r *stubSnapshotRepo) Load(_ context.Context) ([]domain.Task, bool, error) {
	if r.loadErr != nil {
		return nil, false, r.loadErr
	}
	if r.blob == nil {
		return nil, false, nil
	}
	var tasks []domain.Task
	if err := json.Unmarshal(r.blob, &tasks); err != nil {
		return nil, false, nil
	}
	return tasks, true, nil
}

func (r *stubSnapshotRepo) Save(_ context.Context, tasks []domain.Task) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	blob, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	r.blob = blob
	r.saveCalls++
	return nil
}

// stubPublisher records published activity events.
type stubPublisher struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (p *stubPublisher) Publish(event domain.ActivityEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *stubPublisher) types() []domain.ActivityType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.ActivityType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTaskService(repo ports.TaskRepository) (*TaskService, *stubPublisher) {
	pub := &stubPublisher{}
	return NewTaskService(repo, pub, zerolog.Nop()), pub
}

// ---------------------------------------------------------------------------
// Initialize
// ---------------------------------------------------------------------------

func TestInitialize_SeedsWhenEmpty(t *testing.T) {
	repo := &stubSnapshotRepo{}
	svc, _ := newTaskService(repo)

	svc.Initialize(context.Background())

	if svc.Loading() {
		t.Fatalf("loading flag still set after Initialize")
	}

	got := svc.List(ports.ListTasksFilter{})
	if len(got) != 3 {
		t.Fatalf("expected 3 seeded tasks, got %d", len(got))
	}
	for i, wantID := range []string{"1", "2", "3"} {
		if got[i].ID != wantID {
			t.Errorf("seed[%d]: expected id %q, got %q", i, wantID, got[i].ID)
		}
	}
	if repo.saveCalls != 1 {
		t.Fatalf("expected seeded collection to be persisted once, got %d saves", repo.saveCalls)
	}
}

func TestInitialize_RestoresPersistedCollection(t *testing.T) {
	repo := &stubSnapshotRepo{}
	first, _ := newTaskService(repo)
	first.Initialize(context.Background())
	created, err := first.Create(context.Background(), ports.CreateTaskInput{
		Title:     "Review pull request",
		Status:    "in-progress",
		Priority:  "high",
		Actor:     ports.Actor{Email: "alice@example.com"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Fresh process against the same persisted blob.
	second, _ := newTaskService(repo)
	second.Initialize(context.Background())

	got := second.List(ports.ListTasksFilter{})
	want := first.List(ports.ListTasksFilter{})
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks after reload, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("task[%d]: id %q != %q, order not preserved", i, got[i].ID, want[i].ID)
		}
	}

	restored, err := second.Get(created.ID)
	if err != nil {
		t.Fatalf("created task missing after reload: %v", err)
	}
	if !restored.CreatedAt.Equal(created.CreatedAt) || !restored.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("timestamps not reconstructed: %v/%v != %v/%v",
			restored.CreatedAt, restored.UpdatedAt, created.CreatedAt, created.UpdatedAt)
	}
}

func TestInitialize_MalformedSnapshotReseeds(t *testing.T) {
	repo := &stubSnapshotRepo{blob: []byte("{not json")}
	svc, _ := newTaskService(repo)

	svc.Initialize(context.Background())

	if got := len(svc.List(ports.ListTasksFilter{})); got != 3 {
		t.Fatalf("expected reseed to 3 tasks on malformed snapshot, got %d", got)
	}
}

func TestInitialize_LoadErrorSeeds(t *testing.T) {
	repo := &stubSnapshotRepo{loadErr: errors.New("connection refused")}
	svc, _ := newTaskService(repo)

	svc.Initialize(context.Background())

	if svc.Loading() {
		t.Fatalf("loading flag still set after failed load")
	}
	if got := len(svc.List(ports.ListTasksFilter{})); got != 3 {
		t.Fatalf("expected seed on load error, got %d tasks", got)
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreate_AssignsUniqueIDs(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		task, err := svc.Create(context.Background(), ports.CreateTaskInput{
			Title:     "Task",
			Actor:     ports.Actor{Email: "alice@example.com"},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if task.ID == "" {
			t.Fatalf("empty id")
		}
		if seen[task.ID] {
			t.Fatalf("duplicate id %q", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestCreate_VisibleInSameTurn(t *testing.T) {
	svc, pub := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	task, err := svc.Create(context.Background(), ports.CreateTaskInput{
		Title:       "Write release notes",
		Description: "Summarize the changes since the last tag",
		Status:      "todo",
		Priority:    "low",
		AssignedTo:  "bob@example.com",
		Actor:       ports.Actor{Email: "alice@example.com", Name: "Alice"},
		Tags:        []string{"docs"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.CreatedAt.IsZero() || !task.CreatedAt.Equal(task.UpdatedAt) {
		t.Errorf("expected createdAt == updatedAt at creation, got %v / %v", task.CreatedAt, task.UpdatedAt)
	}

	found := false
	for _, got := range svc.ByStatus(domain.StatusTodo) {
		if got.ID == task.ID {
			found = true
			if got.Title != task.Title || got.AssignedTo != task.AssignedTo {
				t.Errorf("fields lost: %+v", got)
			}
		}
	}
	if !found {
		t.Fatalf("created task not visible via ByStatus in the same turn")
	}

	types := pub.types()
	if len(types) != 1 || types[0] != domain.ActivityTaskCreated {
		t.Errorf("expected one task-created event, got %v", types)
	}
}

func TestCreate_NormalizesStatusAndPriority(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	task, err := svc.Create(context.Background(), ports.CreateTaskInput{
		Title:     "Task",
		Status:    "waiting-on-someone",
		Priority:  "urgent",
		Actor:     ports.Actor{Email: "alice@example.com"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != domain.StatusTodo {
		t.Errorf("expected unrecognized status to normalize to todo, got %q", task.Status)
	}
	if task.Priority != domain.PriorityMedium {
		t.Errorf("expected unrecognized priority to normalize to medium, got %q", task.Priority)
	}
}

func TestCreate_PersistFailureKeepsCollectionConsistent(t *testing.T) {
	repo := &stubSnapshotRepo{}
	svc, _ := newTaskService(repo)
	svc.Initialize(context.Background())
	repo.saveErr = errors.New("quota exceeded")

	task, err := svc.Create(context.Background(), ports.CreateTaskInput{
		Title:     "Task",
		Actor:     ports.Actor{Email: "alice@example.com"},
	})
	if err == nil {
		t.Fatalf("expected persist error to surface")
	}

	// The in-memory collection stays valid and queryable.
	if _, err := svc.Get(task.ID); err != nil {
		t.Fatalf("in-memory collection corrupted after persist failure: %v", err)
	}
	if got := len(svc.List(ports.ListTasksFilter{})); got != 4 {
		t.Fatalf("expected 4 tasks in memory, got %d", got)
	}
}

// forwardPublisher delivers events synchronously to a subscriber, standing
// in for the dispatcher.
type forwardPublisher struct {
	sub ports.ActivitySubscriber
}

func (p *forwardPublisher) Publish(event domain.ActivityEvent) {
	_ = p.sub.HandleActivity(context.Background(), event)
}

func TestCreate_ActorNotNotifiedOfOwnMutation(t *testing.T) {
	notifications := NewNotificationService(zerolog.Nop())
	svc := NewTaskService(&stubSnapshotRepo{}, &forwardPublisher{sub: notifications}, zerolog.Nop())
	svc.Initialize(context.Background())

	// Self-assigned create: the actor is both creator and assignee, so
	// nobody should be notified.
	if _, err := svc.Create(context.Background(), ports.CreateTaskInput{
		Title: "My own task",
		Actor: ports.Actor{Email: "actor@example.com", Name: "Actor"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := notifications.Inbox("actor@example.com"); len(got) != 0 {
		t.Fatalf("actor notified about their own create: %+v", got)
	}

	// Assigned to someone else: only the assignee hears about it, and the
	// notification names the actor.
	if _, err := svc.Create(context.Background(), ports.CreateTaskInput{
		Title:      "For Bob",
		AssignedTo: "bob@example.com",
		Actor:      ports.Actor{Email: "actor@example.com", Name: "Actor"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := notifications.Inbox("actor@example.com"); len(got) != 0 {
		t.Fatalf("actor notified about their own create: %+v", got)
	}
	inbox := notifications.Inbox("bob@example.com")
	if len(inbox) != 1 {
		t.Fatalf("assignee notifications: %d", len(inbox))
	}
	if inbox[0].ActorName != "Actor" {
		t.Errorf("notification missing actor name: %+v", inbox[0])
	}
}

func TestMutationEvents_CarryActorAndExcludeThem(t *testing.T) {
	svc, pub := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	// Seed task "2": assigned to manager@example.com, created by
	// admin@example.com. The assignee toggling it should notify only the
	// creator.
	if err := svc.ToggleStatus(context.Background(), "2", ports.Actor{Email: "manager@example.com", Name: "Manager"}); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	pub.mu.Lock()
	event := pub.events[len(pub.events)-1]
	pub.mu.Unlock()

	if event.ActorEmail != "manager@example.com" || event.ActorName != "Manager" {
		t.Errorf("actor identity not carried: %+v", event)
	}
	if len(event.Recipients) != 1 || event.Recipients[0] != "admin@example.com" {
		t.Errorf("expected creator as sole recipient, got %v", event.Recipients)
	}

	// The creator deleting it should notify only the assignee.
	if err := svc.Delete(context.Background(), "2", ports.Actor{Email: "admin@example.com", Name: "Admin"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	pub.mu.Lock()
	event = pub.events[len(pub.events)-1]
	pub.mu.Unlock()

	if len(event.Recipients) != 1 || event.Recipients[0] != "manager@example.com" {
		t.Errorf("expected assignee as sole recipient, got %v", event.Recipients)
	}
}

// ---------------------------------------------------------------------------
// Update / Delete / Toggle
// ---------------------------------------------------------------------------

func strPtr(s string) *string { return &s }

func TestUpdate_MovesBetweenStatusQueries(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	updated, err := svc.Update(context.Background(), "3", ports.UpdateTaskInput{
		Status: strPtr("completed"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %q", updated.Status)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("updatedAt not refreshed")
	}

	for _, got := range svc.ByStatus(domain.StatusTodo) {
		if got.ID == "3" {
			t.Fatalf("task still visible under old status")
		}
	}
	found := false
	for _, got := range svc.ByStatus(domain.StatusCompleted) {
		if got.ID == "3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("task not visible under new status")
	}
}

func TestUpdate_UnknownIDReportsNotFound(t *testing.T) {
	repo := &stubSnapshotRepo{}
	svc, _ := newTaskService(repo)
	svc.Initialize(context.Background())
	before := svc.List(ports.ListTasksFilter{})
	saves := repo.saveCalls

	_, err := svc.Update(context.Background(), "nonexistent", ports.UpdateTaskInput{
		Title: strPtr("x"),
	})
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	after := svc.List(ports.ListTasksFilter{})
	if len(after) != len(before) {
		t.Fatalf("collection changed on unknown-id update")
	}
	if repo.saveCalls != saves {
		t.Fatalf("unexpected persistence write on unknown-id update")
	}
}

func TestDelete_RemovesFromAllQueries(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	if err := svc.Delete(context.Background(), "2", ports.Actor{Email: "admin@example.com"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Get("2"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after delete, got %v", err)
	}
	for _, task := range svc.List(ports.ListTasksFilter{}) {
		if task.ID == "2" {
			t.Fatalf("deleted task still listed")
		}
	}
	for _, task := range svc.ByAssignee("manager@example.com") {
		if task.ID == "2" {
			t.Fatalf("deleted task still visible by assignee")
		}
	}
}

func TestDelete_UnknownIDIsNoop(t *testing.T) {
	repo := &stubSnapshotRepo{}
	svc, _ := newTaskService(repo)
	svc.Initialize(context.Background())
	saves := repo.saveCalls

	if err := svc.Delete(context.Background(), "nope", ports.Actor{Email: "admin@example.com"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if repo.saveCalls != saves {
		t.Fatalf("unexpected persistence write on unknown-id delete")
	}
	if got := len(svc.List(ports.ListTasksFilter{})); got != 3 {
		t.Fatalf("collection changed: %d tasks", got)
	}
}

func TestToggle_CyclesThroughAllStatuses(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	// Seed task "3" starts at todo.
	want := []domain.TaskStatus{domain.StatusInProgress, domain.StatusCompleted, domain.StatusTodo, domain.StatusInProgress}
	for i, expected := range want {
		if err := svc.ToggleStatus(context.Background(), "3", ports.Actor{Email: "user@example.com"}); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		got, err := svc.Get("3")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != expected {
			t.Fatalf("toggle %d: expected %q, got %q", i, expected, got.Status)
		}
	}
}

func TestToggle_UnknownIDIsNoop(t *testing.T) {
	repo := &stubSnapshotRepo{}
	svc, _ := newTaskService(repo)
	svc.Initialize(context.Background())
	saves := repo.saveCalls

	if err := svc.ToggleStatus(context.Background(), "missing", ports.Actor{Email: "user@example.com"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if repo.saveCalls != saves {
		t.Fatalf("unexpected persistence write on unknown-id toggle")
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func TestList_Filters(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	if got := svc.List(ports.ListTasksFilter{Priority: "high"}); len(got) != 2 {
		t.Errorf("priority filter: expected 2, got %d", len(got))
	}
	if got := svc.ByAssignee("user@example.com"); len(got) != 1 || got[0].ID != "3" {
		t.Errorf("assignee filter: got %+v", got)
	}
	if got := svc.List(ports.ListTasksFilter{Search: "MOCKUPS"}); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("search should be case-insensitive, got %d results", len(got))
	}
	if got := svc.List(ports.ListTasksFilter{Status: "todo", Priority: "low"}); len(got) != 0 {
		t.Errorf("combined filter: expected 0, got %d", len(got))
	}
}

func TestList_PreservesInsertionOrder(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	for _, title := range []string{"a", "b", "c"} {
		if _, err := svc.Create(context.Background(), ports.CreateTaskInput{
			Title:     title,
			Status:    "todo",
			Actor:     ports.Actor{Email: "alice@example.com"},
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	todos := svc.ByStatus(domain.StatusTodo)
	// Seed "3" is todo, then a, b, c in creation order.
	if len(todos) != 4 {
		t.Fatalf("expected 4 todo tasks, got %d", len(todos))
	}
	for i, want := range []string{"Implement authentication system", "a", "b", "c"} {
		if todos[i].Title != want {
			t.Fatalf("order[%d]: expected %q, got %q", i, want, todos[i].Title)
		}
	}
}

func TestCalendarRange_BucketsByDay(t *testing.T) {
	// No Initialize: the seed due dates are relative to the wall clock and
	// would drift in and out of the fixed range below.
	svc, _ := newTaskService(&stubSnapshotRepo{})

	day := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	sameDay := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	later := time.Date(2026, 9, 12, 8, 0, 0, 0, time.UTC)
	for _, due := range []time.Time{day, sameDay, later} {
		d := due
		if _, err := svc.Create(context.Background(), ports.CreateTaskInput{
			Title:     "due " + d.Format(time.RFC3339),
			Actor:     ports.Actor{Email: "alice@example.com"},
			DueDate:   &d,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC)
	buckets := svc.CalendarRange(from, to)

	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Date != "2026-09-10" || len(buckets[0].Tasks) != 2 {
		t.Errorf("bucket[0]: %s with %d tasks", buckets[0].Date, len(buckets[0].Tasks))
	}
	if buckets[1].Date != "2026-09-12" || len(buckets[1].Tasks) != 1 {
		t.Errorf("bucket[1]: %s with %d tasks", buckets[1].Date, len(buckets[1].Tasks))
	}
}

func TestSummary_Counts(t *testing.T) {
	svc, _ := newTaskService(&stubSnapshotRepo{})
	svc.Initialize(context.Background())

	sum := svc.Summary(time.Now().UTC())
	if sum.Total != 3 {
		t.Fatalf("expected total 3, got %d", sum.Total)
	}
	if sum.ByStatus[domain.StatusCompleted] != 1 || sum.ByStatus[domain.StatusTodo] != 1 || sum.ByStatus[domain.StatusInProgress] != 1 {
		t.Errorf("status counts: %+v", sum.ByStatus)
	}
	if sum.ByPriority[domain.PriorityHigh] != 2 {
		t.Errorf("priority counts: %+v", sum.ByPriority)
	}
	if sum.CompletionRate < 0.33 || sum.CompletionRate > 0.34 {
		t.Errorf("completion rate: %f", sum.CompletionRate)
	}
}
