package port

import (
	"context"

	"github.com/nikolayk812/orderdesk/internal/domain"
)

// EventSink accepts analytics events. Emit must not block the caller.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type StatsCache interface {
	// Get reports the cache generation it read alongside a hit or miss.
	Get(ctx context.Context, key string) (stats domain.OrderStats, gen int64, ok bool, err error)
	// Set stores stats under gen. Passing the gen from Get keeps a fill
	// computed before an Invalidate from being served after it.
	Set(ctx context.Context, key string, gen int64, stats domain.OrderStats) error
	// Invalidate makes every previously stored entry unreachable.
	Invalidate(ctx context.Context) error
}
