package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

// TaskService owns the authoritative in-memory task collection and mirrors
// it to the persistence collaborator on every mutation. A single instance is
// constructed by the composition root and shared by all handlers; the mutex
// serializes writes from concurrent requests.
type TaskService struct {
	repo      ports.TaskRepository
	publisher ports.ActivityPublisher
	logger    zerolog.Logger

	mu      sync.RWMutex
	tasks   []domain.Task
	loading bool
}

func NewTaskService(repo ports.TaskRepository, publisher ports.ActivityPublisher, logger zerolog.Logger) *TaskService {
	return &TaskService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		loading:   true,
	}
}

// Initialize loads the persisted snapshot. When no snapshot exists, or the
// stored blob cannot be decoded, the store seeds the sample collection and
// persists it immediately. Initialize never fails outward.
func (s *TaskService) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, found, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("task snapshot load failed, seeding sample tasks")
	}
	if err == nil && found {
		s.tasks = tasks
		s.loading = false
		s.logger.Info().Int("count", len(tasks)).Msg("task collection restored")
		return
	}

	s.tasks = seedTasks(time.Now().UTC())
	if err := s.repo.Save(ctx, s.snapshotLocked()); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist seeded tasks")
	}
	s.loading = false
	s.logger.Info().Int("count", len(s.tasks)).Msg("task collection seeded")
}

// Loading reports whether Initialize has completed.
func (s *TaskService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// seedTasks is the fixed sample collection used on first run. Ids are the
// stable strings "1", "2", "3"; timestamps are relative to now.
func seedTasks(now time.Time) []domain.Task {
	due1 := now.Add(3 * 24 * time.Hour)
	due2 := now.Add(5 * 24 * time.Hour)
	due3 := now.Add(7 * 24 * time.Hour)
	return []domain.Task{
		{
			ID:          "1",
			Title:       "Setup project repository",
			Description: "Initialize the project repository with proper structure and documentation",
			Status:      domain.StatusCompleted,
			Priority:    domain.PriorityHigh,
			AssignedTo:  "admin@example.com",
			CreatedBy:   "admin@example.com",
			CreatedAt:   now.Add(-2 * 24 * time.Hour),
			UpdatedAt:   now.Add(-24 * time.Hour),
			DueDate:     &due1,
			Tags:        []string{"setup", "documentation"},
		},
		{
			ID:          "2",
			Title:       "Design user interface mockups",
			Description: "Create wireframes and mockups for the main application interface",
			Status:      domain.StatusInProgress,
			Priority:    domain.PriorityMedium,
			AssignedTo:  "manager@example.com",
			CreatedBy:   "admin@example.com",
			CreatedAt:   now.Add(-24 * time.Hour),
			UpdatedAt:   now.Add(-2 * time.Hour),
			DueDate:     &due2,
			Tags:        []string{"design", "ui/ux"},
		},
		{
			ID:          "3",
			Title:       "Implement authentication system",
			Description: "Build secure login and registration functionality with role-based access",
			Status:      domain.StatusTodo,
			Priority:    domain.PriorityHigh,
			AssignedTo:  "user@example.com",
			CreatedBy:   "manager@example.com",
			CreatedAt:   now.Add(-12 * time.Hour),
			UpdatedAt:   now.Add(-12 * time.Hour),
			DueDate:     &due3,
			Tags:        []string{"backend", "security"},
		},
	}
}

// Create appends a new task with a fresh unique id and current timestamps,
// persists the collection, and publishes a task-created event. The actor
// becomes the task's creator.
func (s *TaskService) Create(ctx context.Context, input ports.CreateTaskInput) (domain.Task, error) {
	now := time.Now().UTC()
	task := domain.Task{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Status:      normalizeStatus(input.Status),
		Priority:    normalizePriority(input.Priority),
		AssignedTo:  input.AssignedTo,
		CreatedBy:   input.Actor.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     input.DueDate,
		Tags:        append([]string(nil), input.Tags...),
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	err := s.repo.Save(ctx, s.snapshotLocked())
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to persist task collection")
		return task, err
	}

	s.logger.Info().Str("task_id", task.ID).Str("created_by", task.CreatedBy).Msg("task created")
	s.publish(domain.ActivityEvent{
		Type:       domain.ActivityTaskCreated,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		ActorEmail: input.Actor.Email,
		ActorName:  input.Actor.Name,
		Recipients: recipients(task, input.Actor.Email),
		Timestamp:  now,
	})
	return task, nil
}

// Update merges the non-nil patch fields onto the task with the given id and
// refreshes updated_at. An unknown id reports domain.ErrTaskNotFound and
// leaves the collection unchanged.
func (s *TaskService) Update(ctx context.Context, id string, patch ports.UpdateTaskInput) (domain.Task, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Task{}, domain.ErrTaskNotFound
	}

	t := &s.tasks[idx]
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = normalizeStatus(*patch.Status)
	}
	if patch.Priority != nil {
		t.Priority = normalizePriority(*patch.Priority)
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = *patch.AssignedTo
	}
	if patch.ClearDue {
		t.DueDate = nil
	} else if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		t.Tags = append([]string(nil), patch.Tags...)
	}
	t.UpdatedAt = now
	updated := *t

	err := s.repo.Save(ctx, s.snapshotLocked())
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("task_id", id).Msg("failed to persist task collection")
		return updated, err
	}

	s.logger.Info().Str("task_id", id).Msg("task updated")
	s.publish(domain.ActivityEvent{
		Type:       domain.ActivityTaskUpdated,
		TaskID:     updated.ID,
		TaskTitle:  updated.Title,
		ActorEmail: patch.Actor.Email,
		ActorName:  patch.Actor.Name,
		Recipients: recipients(updated, patch.Actor.Email),
		Timestamp:  now,
	})
	return updated, nil
}

// Delete removes the task with the given id. An unknown id is a no-op.
func (s *TaskService) Delete(ctx context.Context, id string, actor ports.Actor) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.tasks[idx]
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	err := s.repo.Save(ctx, s.snapshotLocked())
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("task_id", id).Msg("failed to persist task collection")
		return err
	}

	s.logger.Info().Str("task_id", id).Msg("task deleted")
	s.publish(domain.ActivityEvent{
		Type:       domain.ActivityTaskDeleted,
		TaskID:     removed.ID,
		TaskTitle:  removed.Title,
		ActorEmail: actor.Email,
		ActorName:  actor.Name,
		Recipients: recipients(removed, actor.Email),
		Timestamp:  time.Now().UTC(),
	})
	return nil
}

// ToggleStatus advances the task through the fixed cycle
// todo → in-progress → completed → todo. An unknown id is a no-op.
func (s *TaskService) ToggleStatus(ctx context.Context, id string, actor ports.Actor) error {
	now := time.Now().UTC()

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	t := &s.tasks[idx]
	t.Status = t.Status.Next()
	t.UpdatedAt = now
	toggled := *t
	err := s.repo.Save(ctx, s.snapshotLocked())
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("task_id", id).Msg("failed to persist task collection")
		return err
	}

	s.publish(domain.ActivityEvent{
		Type:       domain.ActivityTaskUpdated,
		TaskID:     toggled.ID,
		TaskTitle:  toggled.Title,
		ActorEmail: actor.Email,
		ActorName:  actor.Name,
		Recipients: recipients(toggled, actor.Email),
		Timestamp:  now,
	})
	return nil
}

// Get returns the task with the given id or domain.ErrTaskNotFound.
func (s *TaskService) Get(id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.tasks[idx], nil
	}
	return domain.Task{}, domain.ErrTaskNotFound
}

// List applies the filter predicates in insertion order.
func (s *TaskService) List(filter ports.ListTasksFilter) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Status != "" && t.Status != domain.TaskStatus(filter.Status) {
			continue
		}
		if filter.Priority != "" && t.Priority != domain.TaskPriority(filter.Priority) {
			continue
		}
		if filter.Assignee != "" && t.AssignedTo != filter.Assignee {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ByStatus returns tasks with the given status, preserving insertion order.
func (s *TaskService) ByStatus(status domain.TaskStatus) []domain.Task {
	return s.List(ports.ListTasksFilter{Status: string(status)})
}

// ByAssignee returns tasks assigned to the given identifier, preserving
// insertion order.
func (s *TaskService) ByAssignee(assignee string) []domain.Task {
	return s.List(ports.ListTasksFilter{Assignee: assignee})
}

// CalendarRange buckets tasks with a due date inside [from, to] by day.
// Buckets are sorted by date; tasks within a bucket keep insertion order.
func (s *TaskService) CalendarRange(from, to time.Time) []ports.CalendarBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string][]domain.Task)
	for _, t := range s.tasks {
		if t.DueDate == nil {
			continue
		}
		due := t.DueDate.UTC()
		if due.Before(from) || due.After(to) {
			continue
		}
		day := due.Format("2006-01-02")
		byDay[day] = append(byDay[day], t)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	buckets := make([]ports.CalendarBucket, 0, len(days))
	for _, day := range days {
		buckets = append(buckets, ports.CalendarBucket{Date: day, Tasks: byDay[day]})
	}
	return buckets
}

// Summary aggregates collection-wide counts for the dashboard view.
func (s *TaskService) Summary(now time.Time) ports.TaskSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := ports.TaskSummary{
		Total:      len(s.tasks),
		ByStatus:   make(map[domain.TaskStatus]int),
		ByPriority: make(map[domain.TaskPriority]int),
	}
	for _, t := range s.tasks {
		sum.ByStatus[t.Status]++
		sum.ByPriority[t.Priority]++
		if t.Overdue(now) {
			sum.Overdue++
		}
	}
	if sum.Total > 0 {
		sum.CompletionRate = float64(sum.ByStatus[domain.StatusCompleted]) / float64(sum.Total)
	}
	return sum
}

// indexLocked finds the position of id; callers must hold the mutex.
func (s *TaskService) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// snapshotLocked clones the collection for the persistence write so the
// repository never aliases the live slice; callers must hold the mutex.
func (s *TaskService) snapshotLocked() []domain.Task {
	return append([]domain.Task(nil), s.tasks...)
}

func (s *TaskService) publish(event domain.ActivityEvent) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

// recipients lists the principals to notify about a task event: the
// assignee and the creator, deduplicated, minus the actor. A principal is
// never notified about their own mutation.
func recipients(t domain.Task, actor string) []string {
	out := make([]string, 0, 2)
	for _, email := range []string{t.AssignedTo, t.CreatedBy} {
		if email == "" || email == actor {
			continue
		}
		if len(out) > 0 && out[0] == email {
			continue
		}
		out = append(out, email)
	}
	return out
}

func normalizeStatus(s string) domain.TaskStatus {
	if domain.ValidStatus(domain.TaskStatus(s)) {
		return domain.TaskStatus(s)
	}
	return domain.StatusTodo
}

func normalizePriority(p string) domain.TaskPriority {
	switch domain.TaskPriority(p) {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
		return domain.TaskPriority(p)
	default:
		return domain.PriorityMedium
	}
}
