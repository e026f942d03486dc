// Package analytics delivers order events to an external collector without
// ever blocking or failing the admin operation that produced them.
package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
)

const (
	DefaultBufferSize     = 256
	DefaultPublishTimeout = 5 * time.Second
)

var ErrSinkClosed = errors.New("analytics sink closed")

var _ port.EventSink = (*AsyncSink)(nil)

type queuedEvent struct {
	ctx   context.Context
	event domain.Event
}

// AsyncSink queues events in a bounded buffer drained by one worker.
// When the buffer is full new events are dropped and counted.
type AsyncSink struct {
	publisher      port.EventPublisher
	logger         *slog.Logger
	publishTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan queuedEvent
	done   chan struct{}

	dropped atomic.Int64
}

type SinkOption func(*AsyncSink)

func WithBufferSize(n int) SinkOption {
	return func(s *AsyncSink) {
		if n > 0 {
			s.queue = make(chan queuedEvent, n)
		}
	}
}

func WithPublishTimeout(d time.Duration) SinkOption {
	return func(s *AsyncSink) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// NewAsyncSink starts the worker goroutine. Close must be called to stop it.
func NewAsyncSink(publisher port.EventPublisher, logger *slog.Logger, opts ...SinkOption) *AsyncSink {
	if logger == nil {
		logger = slog.Default()
	}

	s := &AsyncSink{
		publisher:      publisher,
		logger:         logger,
		publishTimeout: DefaultPublishTimeout,
		queue:          make(chan queuedEvent, DefaultBufferSize),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()

	return s
}

// Emit enqueues the event and returns immediately.
func (s *AsyncSink) Emit(ctx context.Context, event domain.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(ctx, event, "sink closed")
		return
	}

	// request values such as the request id stay available to the worker,
	// but the request's cancellation does not
	select {
	case s.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		s.drop(ctx, event, "buffer full")
	}
}

// Dropped reports how many events were discarded so far.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events and waits for the queue to drain or for ctx
// to expire, whichever comes first.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)

	for item := range s.queue {
		s.publish(item)
	}
}

func (s *AsyncSink) publish(item queuedEvent) {
	ctx, cancel := context.WithTimeout(item.ctx, s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, item.event); err != nil {
		s.logger.WarnContext(ctx, "analytics publish failed",
			slog.String("event_id", item.event.ID),
			slog.String("event", string(item.event.Name)),
			slog.Any("error", err))
	}
}

func (s *AsyncSink) drop(ctx context.Context, event domain.Event, reason string) {
	s.dropped.Add(1)
	s.logger.WarnContext(ctx, "analytics event dropped",
		slog.String("event_id", event.ID),
		slog.String("event", string(event.Name)),
		slog.String("reason", reason))
}
