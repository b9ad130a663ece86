package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// collectSubscriber records delivered events and signals each delivery.
type collectSubscriber struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	done   chan struct{}
	err    error
}

func newCollectSubscriber(buffer int) *collectSubscriber {
	return &collectSubscriber{done: make(chan struct{}, buffer)}
}

func (s *collectSubscriber) HandleActivity(_ context.Context, event domain.ActivityEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	err := s.err
	s.mu.Unlock()
	s.done <- struct{}{}
	return err
}

func (s *collectSubscriber) collected() []domain.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActivityEvent(nil), s.events...)
}

func waitDeliveries(t *testing.T, s *collectSubscriber, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
}

func TestDispatcher_DeliversToAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newCollectSubscriber(4)
	second := newCollectSubscriber(4)
	d := NewDispatcher(2, zerolog.Nop(), first, second)
	d.Start(ctx)

	d.Publish(domain.ActivityEvent{Type: domain.ActivityTaskCreated, TaskID: "t1", TaskTitle: "a"})

	waitDeliveries(t, first, 1)
	waitDeliveries(t, second, 1)

	for _, sub := range []*collectSubscriber{first, second} {
		got := sub.collected()
		if len(got) != 1 || got[0].TaskID != "t1" {
			t.Fatalf("subscriber events: %+v", got)
		}
	}
}

func TestDispatcher_PreservesOrderPerTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := newCollectSubscriber(64)
	d := NewDispatcher(4, zerolog.Nop(), sub)
	d.Start(ctx)

	const n = 20
	for i := 0; i < n; i++ {
		d.Publish(domain.ActivityEvent{
			Type:      domain.ActivityTaskUpdated,
			TaskID:    "same-task",
			Timestamp: time.Unix(int64(i), 0),
		})
	}
	waitDeliveries(t, sub, n)

	got := sub.collected()
	for i, event := range got {
		if event.Timestamp.Unix() != int64(i) {
			t.Fatalf("event %d delivered out of order: %v", i, event.Timestamp.Unix())
		}
	}
}

func TestDispatcher_SubscriberErrorDoesNotStopWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := newCollectSubscriber(8)
	sub.err = errors.New("inbox full")
	d := NewDispatcher(1, zerolog.Nop(), sub)
	d.Start(ctx)

	d.Publish(domain.ActivityEvent{Type: domain.ActivityTaskCreated, TaskID: "t1"})
	waitDeliveries(t, sub, 1)

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()

	d.Publish(domain.ActivityEvent{Type: domain.ActivityTaskDeleted, TaskID: "t1"})
	waitDeliveries(t, sub, 1)

	got := sub.collected()
	if len(got) != 2 || got[1].Type != domain.ActivityTaskDeleted {
		t.Fatalf("worker stopped after subscriber error: %+v", got)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(4, zerolog.Nop())
	for _, id := range []string{"", "abc", "task-123"} {
		first := d.shardIndex(id)
		for i := 0; i < 5; i++ {
			if got := d.shardIndex(id); got != first {
				t.Fatalf("shard for %q not stable: %d != %d", id, got, first)
			}
		}
		if first < 0 || first >= 4 {
			t.Fatalf("shard for %q out of range: %d", id, first)
		}
	}
}
