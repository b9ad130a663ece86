package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// presenceTTL is the liveness window: a principal with no heartbeat inside
// it drops off the online list.
const presenceTTL = 90 * time.Second

// PresenceStore tracks active principals as per-user keys with a TTL, so
// liveness expiry is handled by Redis itself.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore wraps the given Redis client.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// Heartbeat records the principal as active with the given status,
// refreshing the liveness window.
func (p *PresenceStore) Heartbeat(ctx context.Context, entry domain.PresenceEntry) error {
	entry.LastSeen = time.Now().UTC()
	blob, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("presence encode: %w", err)
	}
	return p.client.Set(ctx, presencePrefix+entry.UserID, blob, presenceTTL).Err()
}

// Online lists principals whose liveness window has not lapsed, ordered by
// user id for a stable response.
func (p *PresenceStore) Online(ctx context.Context) ([]domain.PresenceEntry, error) {
	var entries []domain.PresenceEntry

	iter := p.client.Scan(ctx, 0, presencePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := p.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			// Key expired between scan and get.
			continue
		}
		var entry domain.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("presence scan: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries, nil
}

// Clear removes the principal's presence record.
func (p *PresenceStore) Clear(ctx context.Context, userID string) error {
	return p.client.Del(ctx, presencePrefix+userID).Err()
}
