package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// inboxCap is the maximum number of notifications retained per principal;
// older entries are dropped from the tail.
const inboxCap = 10

// NotificationService maintains per-principal notification inboxes, fed by
// activity events delivered through the dispatcher. Inboxes are in-memory:
// notifications are ephemeral UI state, not durable records.
type NotificationService struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	inboxes map[string][]domain.Notification
}

func NewNotificationService(logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		logger:  logger,
		inboxes: make(map[string][]domain.Notification),
	}
}

// HandleActivity converts an activity event into inbox notifications for its
// recipients. A user-joined event with no recipients fans out to every known
// inbox.
func (s *NotificationService) HandleActivity(_ context.Context, event domain.ActivityEvent) error {
	title, message := describe(event)

	s.mu.Lock()
	defer s.mu.Unlock()

	targets := event.Recipients
	if event.Type == domain.ActivityUserJoined && len(targets) == 0 {
		targets = make([]string, 0, len(s.inboxes))
		for id := range s.inboxes {
			targets = append(targets, id)
		}
	}

	for _, userID := range targets {
		if userID == "" {
			continue
		}
		n := domain.Notification{
			ID:        uuid.NewString(),
			Type:      event.Type,
			Title:     title,
			Message:   message,
			ActorName: event.ActorName,
			Timestamp: event.Timestamp,
		}
		inbox := append([]domain.Notification{n}, s.inboxes[userID]...)
		if len(inbox) > inboxCap {
			inbox = inbox[:inboxCap]
		}
		s.inboxes[userID] = inbox
	}

	s.logger.Debug().Str("type", string(event.Type)).Int("recipients", len(targets)).Msg("activity delivered")
	return nil
}

// Inbox returns the principal's notifications, newest first.
func (s *NotificationService) Inbox(userID string) []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Notification(nil), s.inboxes[userID]...)
}

// UnreadCount returns how many notifications the principal has not read.
func (s *NotificationService) UnreadCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.inboxes[userID] {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags a single notification as read.
func (s *NotificationService) MarkRead(userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.inboxes[userID] {
		if n.ID == notificationID {
			s.inboxes[userID][i].Read = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

// MarkAllRead flags every notification in the principal's inbox as read.
func (s *NotificationService) MarkAllRead(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.inboxes[userID] {
		s.inboxes[userID][i].Read = true
	}
}

// Remove deletes a single notification from the principal's inbox.
func (s *NotificationService) Remove(userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.inboxes[userID]
	for i, n := range inbox {
		if n.ID == notificationID {
			s.inboxes[userID] = append(inbox[:i], inbox[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

// describe renders the user-facing title and message for an event.
func describe(event domain.ActivityEvent) (title, message string) {
	switch event.Type {
	case domain.ActivityTaskCreated:
		return "New Task Created", fmt.Sprintf("Task %q was created", event.TaskTitle)
	case domain.ActivityTaskUpdated:
		return "Task Updated", fmt.Sprintf("Task %q was updated", event.TaskTitle)
	case domain.ActivityTaskDeleted:
		return "Task Deleted", fmt.Sprintf("Task %q was deleted", event.TaskTitle)
	case domain.ActivityUserJoined:
		return "User Online", fmt.Sprintf("%s just joined the workspace", event.ActorName)
	default:
		return "Activity", "Workspace activity"
	}
}
