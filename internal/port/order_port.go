package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	// SearchOrders returns one page and the total match count from the same snapshot.
	SearchOrders(ctx context.Context, criteria domain.OrderCriteria, page domain.PageRequest) ([]domain.Order, int, error)

	// StreamOrders calls fn for every match, newest first, without buffering the set.
	StreamOrders(ctx context.Context, criteria domain.OrderCriteria, fn func(domain.Order) error) error

	SummarizeOrders(ctx context.Context, createdAt domain.TimeRange) ([]domain.StatusSummary, error)

	InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error)

	// The Update methods are compare-and-swap writes: false means the guard
	// did not match and nothing was written.
	UpdateOrderStatus(ctx context.Context, update StatusUpdate) (bool, error)
	UpdatePaymentStatus(ctx context.Context, update PaymentStatusUpdate) (bool, error)
	UpdateTracking(ctx context.Context, update TrackingUpdate) (bool, error)
}

type StatusUpdate struct {
	OrderID   uuid.UUID
	From      domain.OrderStatus
	To        domain.OrderStatus
	UpdatedBy string
	UpdatedAt time.Time
}

type PaymentStatusUpdate struct {
	OrderID     uuid.UUID
	OrderStatus domain.OrderStatus
	From        domain.PaymentStatus
	To          domain.PaymentStatus
	UpdatedBy   string
	UpdatedAt   time.Time
}

type TrackingUpdate struct {
	OrderID   uuid.UUID
	Tracking  domain.Tracking
	Statuses  []domain.OrderStatus
	UpdatedBy string
	UpdatedAt time.Time
}
