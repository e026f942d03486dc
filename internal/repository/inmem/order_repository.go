// Package inmem is a process-local port.OrderRepository used for local runs
// and service tests. Every read returns deep copies taken under the lock.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
)

type orderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.Order
	seq    int64
}

func NewOrder() port.OrderRepository {
	return &orderRepository{
		orders: make(map[uuid.UUID]domain.Order),
	}
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	if orderID == uuid.Nil {
		return domain.Order{}, &domain.ValidationError{Field: "order_id", Reason: "must not be empty"}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, &domain.NotFoundError{OrderID: orderID}
	}

	return cloneOrder(order), nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if len(order.Items) == 0 {
		return uuid.Nil, errors.New("no items in order")
	}
	if _, err := order.Total.MinorUnits(); err != nil {
		return uuid.Nil, fmt.Errorf("order.Total.MinorUnits: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++

	order = cloneOrder(order)
	order.ID = uuid.New()
	order.Number = fmt.Sprintf("ORD-%06d", r.seq)
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	r.orders[order.ID] = order

	return order.ID, nil
}

// matching returns copies of every order matching c, newest first.
// The caller must hold at least the read lock.
func (r *orderRepository) matching(c domain.OrderCriteria) []domain.Order {
	var result []domain.Order
	for _, order := range r.orders {
		if c.Matches(order) {
			result = append(result, cloneOrder(order))
		}
	}

	slices.SortFunc(result, domain.CompareNewestFirst)
	return result
}

func (r *orderRepository) SearchOrders(ctx context.Context, criteria domain.OrderCriteria, page domain.PageRequest) ([]domain.Order, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if page.Limit <= 0 || page.Offset < 0 {
		return nil, 0, fmt.Errorf("invalid page: limit=%d offset=%d", page.Limit, page.Offset)
	}

	r.mu.RLock()
	matched := r.matching(criteria)
	r.mu.RUnlock()

	total := len(matched)
	if page.Offset >= total {
		return []domain.Order{}, total, nil
	}

	end := min(page.Offset+page.Limit, total)

	return matched[page.Offset:end], total, nil
}

func (r *orderRepository) StreamOrders(ctx context.Context, criteria domain.OrderCriteria, fn func(domain.Order) error) error {
	// ids only, so the snapshot does not hold full copies of every order
	r.mu.RLock()
	var refs []domain.Order
	for _, order := range r.orders {
		if criteria.Matches(order) {
			refs = append(refs, domain.Order{ID: order.ID, CreatedAt: order.CreatedAt})
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(refs, domain.CompareNewestFirst)

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.mu.RLock()
		order, ok := r.orders[ref.ID]
		if ok {
			order = cloneOrder(order)
		}
		r.mu.RUnlock()

		// the order may have changed since the snapshot
		if !ok || !criteria.Matches(order) {
			continue
		}

		if err := fn(order); err != nil {
			return err
		}
	}

	return nil
}

func (r *orderRepository) SummarizeOrders(ctx context.Context, createdAt domain.TimeRange) ([]domain.StatusSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := createdAt.Validate(); err != nil {
		return nil, fmt.Errorf("createdAt.Validate: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	byStatus := make(map[domain.OrderStatus]*domain.StatusSummary)
	for _, order := range r.orders {
		if !createdAt.Contains(order.CreatedAt) {
			continue
		}

		minor, err := order.Total.MinorUnits()
		if err != nil {
			return nil, fmt.Errorf("order.Total.MinorUnits: %w", err)
		}

		summary, ok := byStatus[order.Status]
		if !ok {
			summary = &domain.StatusSummary{Status: order.Status}
			byStatus[order.Status] = summary
		}
		summary.Count++
		summary.TotalMinor += minor
	}

	result := make([]domain.StatusSummary, 0, len(byStatus))
	for _, summary := range byStatus {
		result = append(result, *summary)
	}
	slices.SortFunc(result, func(a, b domain.StatusSummary) int {
		return strings.Compare(string(a.Status), string(b.Status))
	})

	return result, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, update port.StatusUpdate) (bool, error) {
	if update.OrderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}
	if update.To == "" {
		return false, fmt.Errorf("status is empty")
	}

	return r.compareAndSwap(ctx, update.OrderID, func(o *domain.Order) bool {
		if o.Status != update.From {
			return false
		}
		o.Status = update.To
		o.UpdatedAt = update.UpdatedAt
		o.UpdatedBy = update.UpdatedBy
		return true
	})
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, update port.PaymentStatusUpdate) (bool, error) {
	if update.OrderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}
	if update.To == "" {
		return false, fmt.Errorf("payment status is empty")
	}

	return r.compareAndSwap(ctx, update.OrderID, func(o *domain.Order) bool {
		if o.PaymentStatus != update.From || o.Status != update.OrderStatus {
			return false
		}
		o.PaymentStatus = update.To
		o.UpdatedAt = update.UpdatedAt
		o.UpdatedBy = update.UpdatedBy
		return true
	})
}

func (r *orderRepository) UpdateTracking(ctx context.Context, update port.TrackingUpdate) (bool, error) {
	if update.OrderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}
	if len(update.Statuses) == 0 {
		return false, fmt.Errorf("statuses are empty")
	}

	return r.compareAndSwap(ctx, update.OrderID, func(o *domain.Order) bool {
		if !slices.Contains(update.Statuses, o.Status) {
			return false
		}
		tracking := update.Tracking
		o.Tracking = &tracking
		o.UpdatedAt = update.UpdatedAt
		o.UpdatedBy = update.UpdatedBy
		return true
	})
}

// compareAndSwap applies mutate under the write lock and stores the result
// only when mutate reports that its guard matched.
func (r *orderRepository) compareAndSwap(ctx context.Context, orderID uuid.UUID, mutate func(*domain.Order) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return false, nil
	}

	order = cloneOrder(order)
	if !mutate(&order) {
		return false, nil
	}

	r.orders[orderID] = order
	return true, nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	if o.Tracking != nil {
		tracking := *o.Tracking
		o.Tracking = &tracking
	}
	return o
}
