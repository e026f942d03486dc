package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
)

// OrderStore is the only writer of orders. Every mutation reads the order,
// asks the domain whether the change is allowed and then writes it with a
// compare-and-swap guarded by the value it read.
type OrderStore struct {
	repo   port.OrderRepository
	cfg    Config
	policy domain.PaymentPolicy
	logger *slog.Logger
}

func NewOrderStore(repo port.OrderRepository, cfg Config, logger *slog.Logger) *OrderStore {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &OrderStore{
		repo:   repo,
		cfg:    cfg,
		policy: domain.PaymentPolicy{AllowPaidAfterCancel: cfg.AllowPaidAfterCancel},
		logger: logger,
	}
}

// StatusChange describes a committed fulfillment status transition.
type StatusChange struct {
	Order domain.Order
	From  domain.OrderStatus
}

// PaymentChange describes a committed payment status transition.
type PaymentChange struct {
	Order domain.Order
	From  domain.PaymentStatus
}

// TrackingChange describes a committed tracking write. Changed is false when
// the stored tracking already held the same values.
type TrackingChange struct {
	Order   domain.Order
	Changed bool
}

func (s *OrderStore) Get(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	if err := validateOrderID(orderID); err != nil {
		return domain.Order{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, repoErr("GetOrder", err)
	}

	return order, nil
}

// Create validates a checkout hand-off and persists it as a pending order.
func (s *OrderStore) Create(ctx context.Context, n domain.NewOrder, actorID string) (domain.Order, error) {
	if err := validateActor(actorID); err != nil {
		return domain.Order{}, err
	}
	if err := n.Validate(s.cfg.Currency); err != nil {
		return domain.Order{}, err
	}

	total, err := n.Total(s.cfg.Currency)
	if err != nil {
		return domain.Order{}, fmt.Errorf("n.Total: %w", err)
	}

	paymentStatus := n.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = domain.PaymentStatusPending
	}

	now := s.cfg.now()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	orderID, err := s.repo.InsertOrder(ctx, domain.Order{
		Customer:      n.Customer,
		Items:         n.Items,
		Total:         total,
		Status:        domain.OrderStatusPending,
		PaymentStatus: paymentStatus,
		CreatedAt:     now,
		UpdatedAt:     now,
		UpdatedBy:     actorID,
	})
	if err != nil {
		return domain.Order{}, repoErr("InsertOrder", err)
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, repoErr("GetOrder", err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.String("order_number", order.Number),
		slog.String("actor_id", actorID))

	return order, nil
}

// Transition moves an order along the fulfillment graph.
func (s *OrderStore) Transition(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus, actorID string) (StatusChange, error) {
	if err := validateActor(actorID); err != nil {
		return StatusChange{}, err
	}
	if err := validateOrderID(orderID); err != nil {
		return StatusChange{}, err
	}
	if _, err := domain.ToOrderStatus(string(target)); err != nil {
		return StatusChange{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return StatusChange{}, repoErr("GetOrder", err)
	}

	if err := domain.DecideTransition(orderID, order.Status, target); err != nil {
		return StatusChange{}, err
	}

	now := s.cfg.now()

	swapped, err := s.repo.UpdateOrderStatus(ctx, port.StatusUpdate{
		OrderID:   orderID,
		From:      order.Status,
		To:        target,
		UpdatedBy: actorID,
		UpdatedAt: now,
	})
	if err != nil {
		return StatusChange{}, repoErr("UpdateOrderStatus", err)
	}
	if !swapped {
		return StatusChange{}, s.conflict(ctx, orderID, domain.AxisFulfillment, string(order.Status), func(o domain.Order) string {
			return string(o.Status)
		})
	}

	from := order.Status
	order.Status = target
	order.UpdatedAt = now
	order.UpdatedBy = actorID

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", orderID.String()),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
		slog.String("actor_id", actorID))

	return StatusChange{Order: order, From: from}, nil
}

// SetPaymentStatus moves an order along the payment graph. The write is
// guarded by both the payment status and the fulfillment status it read,
// so a concurrent cancellation cannot slip past the cancelled-order rule.
func (s *OrderStore) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, target domain.PaymentStatus, actorID string) (PaymentChange, error) {
	if err := validateActor(actorID); err != nil {
		return PaymentChange{}, err
	}
	if err := validateOrderID(orderID); err != nil {
		return PaymentChange{}, err
	}
	if _, err := domain.ToPaymentStatus(string(target)); err != nil {
		return PaymentChange{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PaymentChange{}, repoErr("GetOrder", err)
	}

	if err := s.policy.DecidePaymentTransition(orderID, order.Status, order.PaymentStatus, target); err != nil {
		return PaymentChange{}, err
	}

	now := s.cfg.now()

	swapped, err := s.repo.UpdatePaymentStatus(ctx, port.PaymentStatusUpdate{
		OrderID:     orderID,
		OrderStatus: order.Status,
		From:        order.PaymentStatus,
		To:          target,
		UpdatedBy:   actorID,
		UpdatedAt:   now,
	})
	if err != nil {
		return PaymentChange{}, repoErr("UpdatePaymentStatus", err)
	}
	if !swapped {
		return PaymentChange{}, s.paymentConflict(ctx, order)
	}

	from := order.PaymentStatus
	order.PaymentStatus = target
	order.UpdatedAt = now
	order.UpdatedBy = actorID

	s.logger.InfoContext(ctx, "order payment status changed",
		slog.String("order_id", orderID.String()),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
		slog.String("actor_id", actorID))

	return PaymentChange{Order: order, From: from}, nil
}

// ApplyTracking writes already normalized tracking metadata. The status
// precondition is checked on read and again inside the guarded update.
func (s *OrderStore) ApplyTracking(ctx context.Context, orderID uuid.UUID, tracking domain.Tracking, actorID string) (TrackingChange, error) {
	if err := validateActor(actorID); err != nil {
		return TrackingChange{}, err
	}
	if err := validateOrderID(orderID); err != nil {
		return TrackingChange{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return TrackingChange{}, repoErr("GetOrder", err)
	}

	if !order.Status.AcceptsTracking() {
		return TrackingChange{}, trackingStateError(order)
	}

	if tracking.EstimatedDelivery.Before(order.CreatedAt) {
		s.logger.WarnContext(ctx, "estimated delivery precedes order creation",
			slog.String("order_id", orderID.String()),
			slog.Time("estimated_delivery", tracking.EstimatedDelivery),
			slog.Time("created_at", order.CreatedAt))
	}

	changed := order.Tracking == nil || !order.Tracking.Equal(tracking)
	now := s.cfg.now()

	swapped, err := s.repo.UpdateTracking(ctx, port.TrackingUpdate{
		OrderID:   orderID,
		Tracking:  tracking,
		Statuses:  domain.TrackableStatuses(),
		UpdatedBy: actorID,
		UpdatedAt: now,
	})
	if err != nil {
		return TrackingChange{}, repoErr("UpdateTracking", err)
	}
	if !swapped {
		current, err := s.repo.GetOrder(ctx, orderID)
		if err != nil {
			return TrackingChange{}, repoErr("GetOrder", err)
		}
		return TrackingChange{}, trackingStateError(current)
	}

	order.Tracking = &tracking
	order.UpdatedAt = now
	order.UpdatedBy = actorID

	return TrackingChange{Order: order, Changed: changed}, nil
}

func trackingStateError(order domain.Order) error {
	return &domain.InvalidStateError{
		OrderID:   order.ID,
		Status:    order.Status,
		Operation: "set tracking",
		Allowed:   domain.TrackableStatuses(),
	}
}

// conflict builds the error for a lost compare-and-swap by re-reading the
// order to report what the winner wrote.
func (s *OrderStore) conflict(ctx context.Context, orderID uuid.UUID, axis domain.Axis, expected string, actual func(domain.Order) string) error {
	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return repoErr("GetOrder", err)
	}

	return &domain.ConflictError{
		OrderID:  orderID,
		Axis:     axis,
		Expected: expected,
		Actual:   actual(current),
	}
}

func (s *OrderStore) paymentConflict(ctx context.Context, read domain.Order) error {
	current, err := s.repo.GetOrder(ctx, read.ID)
	if err != nil {
		return repoErr("GetOrder", err)
	}

	if current.Status != read.Status {
		return &domain.ConflictError{
			OrderID:  read.ID,
			Axis:     domain.AxisFulfillment,
			Expected: string(read.Status),
			Actual:   string(current.Status),
		}
	}

	return &domain.ConflictError{
		OrderID:  read.ID,
		Axis:     domain.AxisPayment,
		Expected: string(read.PaymentStatus),
		Actual:   string(current.PaymentStatus),
	}
}
