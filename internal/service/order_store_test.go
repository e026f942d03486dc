package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	n := randomNewOrder()
	n.Items = []domain.LineItem{
		{ProductID: uuid.New(), ProductName: "Saree", UnitPrice: domain.MoneyFromMinor(150_000, inr), Quantity: 2},
		{ProductID: uuid.New(), ProductName: "Dupatta", UnitPrice: domain.MoneyFromMinor(49_950, inr), Quantity: 1},
	}

	order, err := f.store.Create(context.Background(), n, "checkout")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "ORD-000001", order.Number)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "3499.50", order.Total.FixedString())
	assert.Equal(t, "checkout", order.UpdatedBy)
	assert.True(t, order.CreatedAt.Equal(f.clock.Now()))
	assert.Nil(t, order.Tracking)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)

	n := randomNewOrder()
	n.Items = nil

	_, err := f.store.Create(context.Background(), n, "checkout")
	require.EqualError(t, err, "invalid items: no items in order")

	_, err = f.store.Create(context.Background(), randomNewOrder(), " ")
	require.EqualError(t, err, "invalid actor_id: must not be empty")
}

func TestCreateOrderRejectsOverflow(t *testing.T) {
	tests := []struct {
		name      string
		item      domain.LineItem
		wantError string
	}{
		{
			name:      "quantity beyond column range",
			item:      domain.LineItem{UnitPrice: domain.MoneyFromMinor(100_000, inr), Quantity: math.MaxInt32 + 1},
			wantError: "invalid items[0].quantity: must be at most 2147483647",
		},
		{
			name: "largest quantity",
			item: domain.LineItem{UnitPrice: domain.MoneyFromMinor(100_000, inr), Quantity: math.MaxInt32},
		},
		{
			name:      "huge unit price",
			item:      domain.LineItem{UnitPrice: domain.MoneyFromMinor(math.MaxInt64/2, inr), Quantity: 3},
			wantError: "invalid items: order total exceeds the supported amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			n := randomNewOrder()
			tt.item.ProductID = uuid.New()
			tt.item.ProductName = gofakeit.ProductName()
			n.Items = []domain.LineItem{tt.item}

			order, err := f.store.Create(context.Background(), n, "checkout")
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)

			minor, err := order.Total.MinorUnits()
			require.NoError(t, err)
			assert.Equal(t, int64(100_000)*math.MaxInt32, minor)

			stats, err := f.stats.Summarize(context.Background(), domain.DateRangeAll)
			require.NoError(t, err)
			assert.Equal(t, minor, stats.RevenueMinor)
		})
	}
}

// Walks the full happy path and checks the rejections along the way.
func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.create(t)

	_, err := f.store.Transition(ctx, order.ID, domain.OrderStatusShipped, actor)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusPacked,
		domain.OrderStatusShipped,
	} {
		f.clock.Advance(time.Minute)

		change, err := f.store.Transition(ctx, order.ID, status, actor)
		require.NoError(t, err, status)
		assert.Equal(t, status, change.Order.Status)
		assert.True(t, change.Order.UpdatedAt.Equal(f.clock.Now()))
		assert.Equal(t, actor, change.Order.UpdatedBy)
	}

	tracked, err := f.tracking.Apply(ctx, order.ID, domain.Tracking{
		TrackingNumber:    "TRK123",
		Courier:           "BlueDart",
		EstimatedDelivery: f.clock.Now().Add(72 * time.Hour),
	}, actor)
	require.NoError(t, err)
	assert.True(t, tracked.Changed)
	assert.Equal(t, domain.OrderStatusShipped, tracked.Order.Status)

	_, err = f.store.Transition(ctx, order.ID, domain.OrderStatusOutForDelivery, actor)
	require.NoError(t, err)

	_, err = f.store.Transition(ctx, order.ID, domain.OrderStatusDelivered, actor)
	require.NoError(t, err)

	_, err = f.store.Transition(ctx, order.ID, domain.OrderStatusCancelled, actor)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.store.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, stored.Status)
	require.NotNil(t, stored.Tracking)
	assert.Equal(t, "TRK123", stored.Tracking.TrackingNumber)

	// immutable fields survive every mutation
	assert.Equal(t, order.Number, stored.Number)
	assert.Equal(t, order.Customer, stored.Customer)
	assert.True(t, order.Total.Amount.Equal(stored.Total.Amount))
	assert.True(t, order.CreatedAt.Equal(stored.CreatedAt))
}

func TestTransitionErrors(t *testing.T) {
	f := newFixture(t)
	order := f.create(t)

	tests := []struct {
		name      string
		orderID   uuid.UUID
		target    domain.OrderStatus
		actorID   string
		wantErr   error
		wantError string
	}{
		{
			name:      "anonymous actor",
			orderID:   order.ID,
			target:    domain.OrderStatusConfirmed,
			wantError: "invalid actor_id: must not be empty",
		},
		{
			name:      "nil order id",
			target:    domain.OrderStatusConfirmed,
			actorID:   actor,
			wantError: "invalid order_id: must not be empty",
		},
		{
			name:      "unknown status",
			orderID:   order.ID,
			target:    "all",
			actorID:   actor,
			wantError: `invalid status: unknown value "all"`,
		},
		{
			name:    "missing order",
			orderID: uuid.New(),
			target:  domain.OrderStatusConfirmed,
			actorID: actor,
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "same status",
			orderID: order.ID,
			target:  domain.OrderStatusPending,
			actorID: actor,
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.Transition(context.Background(), tt.orderID, tt.target, tt.actorID)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			stored, err := f.store.Get(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.OrderStatusPending, stored.Status)
		})
	}
}

// Concurrent writers racing for the same transition: exactly one commits,
// every other one sees either a conflict or that the change already happened.
func TestTransitionConcurrentWriters(t *testing.T) {
	f := newFixture(t)
	order := f.create(t)
	f.advance(t, order.ID, domain.OrderStatusConfirmed)

	const writers = 8

	var (
		wg   sync.WaitGroup
		errs = make([]error, writers)
	)

	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.store.Transition(context.Background(), order.ID, domain.OrderStatusProcessing, actor)
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		var transitionErr *domain.InvalidTransitionError
		switch {
		case errors.Is(err, domain.ErrConflict):
		case errors.As(err, &transitionErr):
			assert.True(t, transitionErr.AlreadyApplied(), err.Error())
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)

	stored, err := f.store.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
}

func TestTransitionConflictReportsWinner(t *testing.T) {
	repo := &mockRepository{}
	store := service.NewOrderStore(repo, service.Config{Currency: inr}, nil)

	orderID := uuid.New()
	read := domain.Order{ID: orderID, Status: domain.OrderStatusConfirmed, PaymentStatus: domain.PaymentStatusPaid}
	won := read
	won.Status = domain.OrderStatusCancelled

	repo.On("GetOrder", mock.Anything, orderID).Return(read, nil).Once()
	repo.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(false, nil).Once()
	repo.On("GetOrder", mock.Anything, orderID).Return(won, nil).Once()

	_, err := store.Transition(context.Background(), orderID, domain.OrderStatusProcessing, actor)

	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "confirmed", conflictErr.Expected)
	assert.Equal(t, "cancelled", conflictErr.Actual)
	assert.Equal(t, domain.AxisFulfillment, conflictErr.Axis)

	repo.AssertExpectations(t)
}

func TestTransitionStorageTimeoutIsRetryable(t *testing.T) {
	repo := &mockRepository{}
	store := service.NewOrderStore(repo, service.Config{Currency: inr, OperationTimeout: 10 * time.Millisecond}, nil)

	orderID := uuid.New()
	repo.On("GetOrder", mock.Anything, orderID).Return(domain.Order{}, context.DeadlineExceeded)

	_, err := store.Transition(context.Background(), orderID, domain.OrderStatusConfirmed, actor)
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	repo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything)
}

func TestSetPaymentStatus(t *testing.T) {
	tests := []struct {
		name                 string
		allowPaidAfterCancel bool
		status               domain.OrderStatus
		steps                []domain.PaymentStatus
		wantErr              error
	}{
		{
			name:   "pay then refund",
			status: domain.OrderStatusConfirmed,
			steps:  []domain.PaymentStatus{domain.PaymentStatusPaid, domain.PaymentStatusRefunded},
		},
		{
			name:   "failed then retried",
			status: domain.OrderStatusPending,
			steps:  []domain.PaymentStatus{domain.PaymentStatusFailed, domain.PaymentStatusPaid},
		},
		{
			name:    "refunded is final",
			status:  domain.OrderStatusPending,
			steps:   []domain.PaymentStatus{domain.PaymentStatusPaid, domain.PaymentStatusRefunded, domain.PaymentStatusPaid},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name:    "cancelled order cannot be paid",
			status:  domain.OrderStatusCancelled,
			steps:   []domain.PaymentStatus{domain.PaymentStatusPaid},
			wantErr: domain.ErrInvalidState,
		},
		{
			name:                 "cancelled order paid when allowed",
			allowPaidAfterCancel: true,
			status:               domain.OrderStatusCancelled,
			steps:                []domain.PaymentStatus{domain.PaymentStatusPaid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.AllowPaidAfterCancel = tt.allowPaidAfterCancel
			f.store = service.NewOrderStore(f.repo, f.cfg, nil)

			order := f.create(t)
			f.advance(t, order.ID, tt.status)

			var err error
			for i, step := range tt.steps {
				var change service.PaymentChange
				change, err = f.store.SetPaymentStatus(context.Background(), order.ID, step, actor)
				if err != nil {
					break
				}
				assert.Equal(t, step, change.Order.PaymentStatus, i)
			}

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			stored, err := f.store.Get(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.steps[len(tt.steps)-1], stored.PaymentStatus)
			assert.Equal(t, tt.status, stored.Status)
		})
	}
}
