package domain

import (
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification not found")

// ActivityType classifies a workspace activity event.
type ActivityType string

const (
	ActivityTaskCreated ActivityType = "task-created"
	ActivityTaskUpdated ActivityType = "task-updated"
	ActivityTaskDeleted ActivityType = "task-deleted"
	ActivityUserJoined  ActivityType = "user-joined"
)

// ActivityEvent is emitted by the task store on every mutation and by the
// auth service when a principal joins. It is the unit carried by the
// activity event source.
type ActivityEvent struct {
	Type      ActivityType
	TaskID    string
	TaskTitle string
	// Actor is the principal that caused the event.
	ActorID    string
	ActorEmail string
	ActorName  string
	// Recipients are the principal ids that should be notified.
	Recipients []string
	Timestamp  time.Time
}

// Notification is a single inbox entry derived from an activity event.
type Notification struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	ActorName string       `json:"actor_name,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Read      bool         `json:"read"`
}

// PresenceStatus is a principal's availability marker.
type PresenceStatus string

const (
	PresenceOnline PresenceStatus = "online"
	PresenceAway   PresenceStatus = "away"
	PresenceBusy   PresenceStatus = "busy"
)

// ValidPresence reports whether s is a recognized presence status.
func ValidPresence(s PresenceStatus) bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy:
		return true
	}
	return false
}

// PresenceEntry is one online principal as reported by the presence store.
type PresenceEntry struct {
	UserID   string         `json:"user_id"`
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}
