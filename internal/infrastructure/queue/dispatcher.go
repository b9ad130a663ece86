package queue

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-manager/internal/api/metrics"
	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
)

// Dispatcher is the in-process implementation of the activity event source.
// Events are routed to a fixed set of workers by consistent hashing on the
// task id, so all events for one task are delivered in order. A real
// transport can replace it behind ports.ActivityPublisher.
type Dispatcher struct {
	workers     []chan domain.ActivityEvent
	subscribers []ports.ActivitySubscriber
	log         zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers
// delivering to the given subscribers. If numWorkers <= 0, defaultWorkers
// is used.
func NewDispatcher(numWorkers int, log zerolog.Logger, subscribers ...ports.ActivitySubscriber) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:     make([]chan domain.ActivityEvent, numWorkers),
		subscribers: subscribers,
		log:         log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ActivityEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish sends an event to the worker responsible for its task id. It
// blocks when the worker's buffer is full.
func (d *Dispatcher) Publish(event domain.ActivityEvent) {
	idx := d.shardIndex(event.TaskID)
	d.workers[idx] <- event
	metrics.ActivityQueueDepth.WithLabelValues(fmt.Sprint(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a task id deterministically to a worker index. Events
// without a task id (user-joined) hash the empty string, which still yields
// a stable worker.
func (d *Dispatcher) shardIndex(taskID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taskID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ActivityEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.ActivityQueueDepth.WithLabelValues(fmt.Sprint(id)).Set(float64(len(ch)))
			for _, sub := range d.subscribers {
				if err := sub.HandleActivity(ctx, event); err != nil {
					metrics.ActivityErrorsTotal.WithLabelValues(string(event.Type)).Inc()
					d.log.Error().Err(err).
						Str("type", string(event.Type)).
						Str("task_id", event.TaskID).
						Int("worker_id", id).
						Msg("activity delivery failed")
					continue
				}
				metrics.ActivityDeliveredTotal.WithLabelValues(string(event.Type)).Inc()
			}
		}
	}
}
