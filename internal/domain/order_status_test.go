package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideTransition(t *testing.T) {
	orderID := uuid.New()

	// allowed lists the only targets that may succeed from each status
	tests := []struct {
		current domain.OrderStatus
		allowed []domain.OrderStatus
	}{
		{current: domain.OrderStatusPending, allowed: []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusCancelled}},
		{current: domain.OrderStatusConfirmed, allowed: []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusCancelled}},
		{current: domain.OrderStatusProcessing, allowed: []domain.OrderStatus{domain.OrderStatusPacked, domain.OrderStatusCancelled}},
		{current: domain.OrderStatusPacked, allowed: []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusCancelled}},
		{current: domain.OrderStatusShipped, allowed: []domain.OrderStatus{domain.OrderStatusOutForDelivery, domain.OrderStatusCancelled}},
		{current: domain.OrderStatusOutForDelivery, allowed: []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled}},
		{current: domain.OrderStatusDelivered},
		{current: domain.OrderStatusCancelled},
	}

	// every known status plus one value outside the enum
	targets := append(domain.OrderStatuses(), domain.OrderStatus("all"))
	require.Len(t, targets, 9)

	for _, tt := range tests {
		for _, target := range targets {
			t.Run(string(tt.current)+"->"+string(target), func(t *testing.T) {
				err := domain.DecideTransition(orderID, tt.current, target)

				if _, parseErr := domain.ToOrderStatus(string(target)); parseErr != nil {
					require.ErrorIs(t, err, domain.ErrValidation)
					return
				}

				if contains(tt.allowed, target) {
					require.NoError(t, err)
					assert.True(t, domain.CanTransition(tt.current, target))
					return
				}

				var transitionErr *domain.InvalidTransitionError
				require.True(t, errors.As(err, &transitionErr), "got %v", err)
				assert.Equal(t, orderID, transitionErr.OrderID)
				assert.Equal(t, domain.AxisFulfillment, transitionErr.Axis)
				assert.Equal(t, string(tt.current), transitionErr.From)
				assert.Equal(t, string(target), transitionErr.To)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.False(t, domain.IsRetryable(err))
			})
		}
	}
}

func TestDecideTransitionUnknownTarget(t *testing.T) {
	err := domain.DecideTransition(uuid.New(), domain.OrderStatusPending, "all")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualError(t, err, `invalid status: unknown value "all"`)
}

func TestOrderStatusMetadata(t *testing.T) {
	statuses := domain.OrderStatuses()
	require.Len(t, statuses, 8)

	for _, s := range statuses {
		assert.NotEmpty(t, s.Label(), s)
	}

	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusOutForDelivery}, domain.TrackableStatuses())
	assert.True(t, domain.OrderStatusDelivered.IsTerminal())
	assert.True(t, domain.OrderStatusCancelled.IsTerminal())
	assert.False(t, domain.OrderStatusPacked.IsTerminal())
	assert.Nil(t, domain.OrderStatusDelivered.AllowedTargets())

	next, ok := domain.OrderStatusPacked.Next()
	assert.True(t, ok)
	assert.Equal(t, domain.OrderStatusShipped, next)

	_, ok = domain.OrderStatusDelivered.Next()
	assert.False(t, ok)
}

func TestToOrderStatus(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      domain.OrderStatus
		wantError string
	}{
		{name: "known", input: "out_for_delivery", want: domain.OrderStatusOutForDelivery},
		{name: "unknown", input: "lost", wantError: `invalid status: unknown value "lost"`},
		{name: "case matters", input: "Shipped", wantError: `invalid status: unknown value "Shipped"`},
		{name: "empty", input: "", wantError: `invalid status: unknown value ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ToOrderStatus(tt.input)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func contains(list []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
