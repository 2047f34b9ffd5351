package notify

import (
	"context"
	"errors"

	"custody-capital-go/internal/metrics"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"go.uber.org/zap"
)

var _ store.Notifier = (*Queue)(nil)

const DefaultQueueSize = 256

var ErrQueueFull = errors.New("notification queue full")

// Queue hands notifications to a background worker so callers never wait
// on the downstream notifier.
type Queue struct {
	next  store.Notifier
	queue chan models.Notification

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewQueue(next store.Notifier, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		next:     next,
		queue:    make(chan models.Notification, size),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Notify enqueues n without blocking. A full queue drops n and returns
// ErrQueueFull.
func (q *Queue) Notify(_ context.Context, n models.Notification) error {
	select {
	case q.queue <- n:
		metrics.NotificationQueueDepth.Set(float64(len(q.queue)))
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Start delivers queued notifications until Stop or ctx is done.
func (q *Queue) Start(ctx context.Context) {
	zap.L().Info("Starting notification queue", zap.Int("queue_size", cap(q.queue)))
	go q.run(ctx)
}

// Stop delivers whatever is still queued and waits for the worker to exit.
func (q *Queue) Stop() {
	close(q.stopChan)
	<-q.doneChan
	zap.L().Info("Notification queue stopped")
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.doneChan)

	for {
		select {
		case n := <-q.queue:
			q.deliver(ctx, n)
		case <-q.stopChan:
			for {
				select {
				case n := <-q.queue:
					q.deliver(ctx, n)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, n models.Notification) {
	metrics.NotificationQueueDepth.Set(float64(len(q.queue)))

	if err := q.next.Notify(ctx, n); err != nil {
		zap.L().Warn("Failed to deliver notification",
			zap.String("action", n.Action),
			zap.String("notification_id", n.Id),
			zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
}
