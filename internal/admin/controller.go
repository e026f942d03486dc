// Package admin is the entry point for the admin surface: it composes the
// order services, enforces the acting administrator and reports analytics.
package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
	"github.com/nikolayk812/orderdesk/internal/service"
	"github.com/oklog/ulid/v2"
)

type Deps struct {
	Store    *service.OrderStore
	Query    *service.QueryEngine
	Stats    *service.StatsAggregator
	Tracking *service.TrackingUpdater
	Exporter *service.Exporter

	// Events and StatsCache are optional.
	Events     port.EventSink
	StatsCache port.StatsCache

	Clock       func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

type Controller struct {
	store    *service.OrderStore
	query    *service.QueryEngine
	stats    *service.StatsAggregator
	tracking *service.TrackingUpdater
	exporter *service.Exporter

	events     port.EventSink
	statsCache port.StatsCache

	clock  func() time.Time
	newID  func() string
	logger *slog.Logger
}

func NewController(deps Deps) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("admin controller: order store is required")
	}
	if deps.Query == nil {
		return nil, errors.New("admin controller: query engine is required")
	}
	if deps.Stats == nil {
		return nil, errors.New("admin controller: stats aggregator is required")
	}
	if deps.Tracking == nil {
		return nil, errors.New("admin controller: tracking updater is required")
	}
	if deps.Exporter == nil {
		return nil, errors.New("admin controller: exporter is required")
	}

	events := deps.Events
	if events == nil {
		events = noopSink{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		store:      deps.Store,
		query:      deps.Query,
		stats:      deps.Stats,
		tracking:   deps.Tracking,
		exporter:   deps.Exporter,
		events:     events,
		statsCache: deps.StatsCache,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (c *Controller) ListOrders(ctx context.Context, filter domain.OrderFilter, page, pageSize int) (domain.OrderPage, error) {
	return c.query.Query(ctx, filter, page, pageSize)
}

func (c *Controller) GetOrderStats(ctx context.Context, dateRange domain.DateRange) (domain.OrderStats, error) {
	return c.stats.Summarize(ctx, dateRange)
}

func (c *Controller) GetOrderDetail(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return c.store.Get(ctx, orderID)
}

// CreateOrder accepts a checkout hand-off. It is not exposed over HTTP.
func (c *Controller) CreateOrder(ctx context.Context, n domain.NewOrder, actor domain.Actor) (domain.Order, error) {
	if err := requireActor(actor); err != nil {
		return domain.Order{}, err
	}

	order, err := c.store.Create(ctx, n, actor.ID)
	if err != nil {
		return domain.Order{}, err
	}

	c.invalidateStats(ctx)

	return order, nil
}

func (c *Controller) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, actor domain.Actor) (domain.Order, error) {
	if err := requireActor(actor); err != nil {
		return domain.Order{}, err
	}

	change, err := c.store.Transition(ctx, orderID, status, actor.ID)
	if err != nil {
		return domain.Order{}, err
	}

	c.invalidateStats(ctx)
	c.emit(ctx, domain.EventOrderStatusChanged, actor, orderID, map[string]any{
		"order_number": change.Order.Number,
		"from":         string(change.From),
		"to":           string(change.Order.Status),
	})

	return change.Order, nil
}

func (c *Controller) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus, actor domain.Actor) (domain.Order, error) {
	if err := requireActor(actor); err != nil {
		return domain.Order{}, err
	}

	change, err := c.store.SetPaymentStatus(ctx, orderID, status, actor.ID)
	if err != nil {
		return domain.Order{}, err
	}

	c.emit(ctx, domain.EventOrderPaymentChanged, actor, orderID, map[string]any{
		"order_number": change.Order.Number,
		"from":         string(change.From),
		"to":           string(change.Order.PaymentStatus),
	})

	return change.Order, nil
}

// UpdateTracking reports an analytics event only when the stored values
// actually changed.
func (c *Controller) UpdateTracking(ctx context.Context, orderID uuid.UUID, tracking domain.Tracking, actor domain.Actor) (domain.Order, error) {
	if err := requireActor(actor); err != nil {
		return domain.Order{}, err
	}

	change, err := c.tracking.Apply(ctx, orderID, tracking, actor.ID)
	if err != nil {
		return domain.Order{}, err
	}

	if change.Changed {
		c.emit(ctx, domain.EventOrderTrackingSet, actor, orderID, map[string]any{
			"order_number":       change.Order.Number,
			"courier":            change.Order.Tracking.Courier,
			"estimated_delivery": change.Order.Tracking.EstimatedDelivery.Format(time.RFC3339),
		})
	}

	return change.Order, nil
}

// ExportOrders validates the request and starts streaming the export. Input
// errors are returned before any byte is produced. Closing the returned
// reader before EOF cancels the export.
func (c *Controller) ExportOrders(ctx context.Context, filter domain.OrderFilter, format service.ExportFormat, actor domain.Actor) (io.ReadCloser, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	format, err := service.ToExportFormat(string(format))
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer cancel()

		result, err := c.exporter.Export(ctx, filter, format, pw)
		if err != nil {
			c.logger.WarnContext(ctx, "order export aborted",
				slog.String("actor_id", actor.ID),
				slog.Int("rows", result.Rows),
				slog.Any("error", err))
			_ = pw.CloseWithError(err)
			return
		}

		_ = pw.Close()

		c.emit(ctx, domain.EventOrdersExported, actor, uuid.Nil, map[string]any{
			"format": string(format),
			"rows":   result.Rows,
			"filter": filter.Summary(),
		})
	}()

	return &exportStream{PipeReader: pr, cancel: cancel, done: done}, nil
}

type exportStream struct {
	*io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
}

// Close cancels the export if it is still running and waits for the
// producing goroutine to finish.
func (s *exportStream) Close() error {
	s.cancel()
	err := s.PipeReader.Close()
	<-s.done
	return err
}

func (c *Controller) emit(ctx context.Context, name domain.EventName, actor domain.Actor, orderID uuid.UUID, payload map[string]any) {
	c.events.Emit(ctx, domain.Event{
		ID:         c.newID(),
		Name:       name,
		OccurredAt: c.clock(),
		ActorID:    actor.ID,
		OrderID:    orderID,
		Payload:    payload,
	})
}

func (c *Controller) invalidateStats(ctx context.Context) {
	if c.statsCache == nil {
		return
	}
	if err := c.statsCache.Invalidate(ctx); err != nil {
		c.logger.WarnContext(ctx, "stats cache invalidation failed", slog.Any("error", err))
	}
}

func requireActor(actor domain.Actor) error {
	if actor.IsAnonymous() {
		return &domain.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	return nil
}

type noopSink struct{}

func (noopSink) Emit(context.Context, domain.Event) {}
