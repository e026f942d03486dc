package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type OrderStatus string

// remember to add new statuses to the orderStatusInfo map and orderStatusSequence
const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type statusInfo struct {
	label           string
	next            OrderStatus
	terminal        bool
	acceptsTracking bool
}

var orderStatusInfo = map[OrderStatus]statusInfo{
	OrderStatusPending:        {label: "Pending", next: OrderStatusConfirmed},
	OrderStatusConfirmed:      {label: "Confirmed", next: OrderStatusProcessing},
	OrderStatusProcessing:     {label: "Processing", next: OrderStatusPacked},
	OrderStatusPacked:         {label: "Packed", next: OrderStatusShipped},
	OrderStatusShipped:        {label: "Shipped", next: OrderStatusOutForDelivery, acceptsTracking: true},
	OrderStatusOutForDelivery: {label: "Out for delivery", next: OrderStatusDelivered, acceptsTracking: true},
	OrderStatusDelivered:      {label: "Delivered", terminal: true},
	OrderStatusCancelled:      {label: "Cancelled", terminal: true},
}

var orderStatusSequence = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := orderStatusInfo[status]; ok {
		return status, nil
	}

	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", s)}
}

// OrderStatuses returns every status in pipeline order, cancelled last.
func OrderStatuses() []OrderStatus {
	result := make([]OrderStatus, len(orderStatusSequence))
	copy(result, orderStatusSequence)
	return result
}

// TrackableStatuses are the statuses in which tracking metadata may be set.
func TrackableStatuses() []OrderStatus {
	var result []OrderStatus
	for _, s := range orderStatusSequence {
		if orderStatusInfo[s].acceptsTracking {
			result = append(result, s)
		}
	}
	return result
}

func (s OrderStatus) Label() string {
	return orderStatusInfo[s].label
}

func (s OrderStatus) IsTerminal() bool {
	return orderStatusInfo[s].terminal
}

func (s OrderStatus) AcceptsTracking() bool {
	return orderStatusInfo[s].acceptsTracking
}

// Next returns the immediate successor in the fulfillment pipeline.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next := orderStatusInfo[s].next
	return next, next != ""
}

// AllowedTargets lists every status reachable from s in one step.
func (s OrderStatus) AllowedTargets() []OrderStatus {
	info, ok := orderStatusInfo[s]
	if !ok || info.terminal {
		return nil
	}
	return []OrderStatus{info.next, OrderStatusCancelled}
}

// CanTransition reports whether target is the immediate successor of current,
// or a cancellation of a non-terminal order.
func CanTransition(current, target OrderStatus) bool {
	info, ok := orderStatusInfo[current]
	if !ok || info.terminal {
		return false
	}
	if _, ok := orderStatusInfo[target]; !ok {
		return false
	}

	return target == OrderStatusCancelled || target == info.next
}

// DecideTransition is the pure decision half of a status change.
func DecideTransition(orderID uuid.UUID, current, target OrderStatus) error {
	if _, ok := orderStatusInfo[target]; !ok {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", target)}
	}

	if !CanTransition(current, target) {
		return &InvalidTransitionError{
			OrderID: orderID,
			Axis:    AxisFulfillment,
			From:    string(current),
			To:      string(target),
		}
	}

	return nil
}
