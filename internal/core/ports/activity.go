package ports

import (
	"context"
	"time"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// ActivityPublisher is the write side of the activity event source. The
// in-process dispatcher is the shipped implementation; a real transport can
// be substituted without touching the services that publish.
type ActivityPublisher interface {
	Publish(event domain.ActivityEvent)
}

// ActivitySubscriber consumes activity events delivered by the event source.
type ActivitySubscriber interface {
	HandleActivity(ctx context.Context, event domain.ActivityEvent) error
}

// NotificationService maintains per-principal notification inboxes fed by
// activity events.
type NotificationService interface {
	ActivitySubscriber

	Inbox(userID string) []domain.Notification
	UnreadCount(userID string) int
	MarkRead(userID, notificationID string) error
	MarkAllRead(userID string)
	Remove(userID, notificationID string) error
}

// PresenceStore tracks which principals are currently active.
type PresenceStore interface {
	// Heartbeat records that the principal is active with the given
	// status, refreshing the liveness window.
	Heartbeat(ctx context.Context, entry domain.PresenceEntry) error
	// Online lists principals whose liveness window has not lapsed.
	Online(ctx context.Context) ([]domain.PresenceEntry, error)
	// Clear removes the principal's presence record (sign-out).
	Clear(ctx context.Context, userID string) error
}

// TokenStore covers the short-lived token bookkeeping the auth service
// needs: revoked token ids, password recovery tokens, and the cached
// principal identity.
type TokenStore interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)

	PutRecoveryToken(ctx context.Context, token, userID string, ttl time.Duration) error
	// TakeRecoveryToken consumes the token, returning the user id it was
	// issued for, or domain.ErrRecoveryInvalid.
	TakeRecoveryToken(ctx context.Context, token string) (string, error)

	CacheUser(ctx context.Context, user *domain.User, ttl time.Duration) error
	CachedUser(ctx context.Context, userID string) (*domain.User, bool, error)
}
