package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type paymentStatusInfo struct {
	label string
	next  []PaymentStatus
}

var paymentStatuses = map[PaymentStatus]paymentStatusInfo{
	PaymentStatusPending:  {label: "Pending", next: []PaymentStatus{PaymentStatusPaid, PaymentStatusFailed}},
	PaymentStatusPaid:     {label: "Paid", next: []PaymentStatus{PaymentStatusRefunded}},
	PaymentStatusFailed:   {label: "Failed", next: []PaymentStatus{PaymentStatusPending, PaymentStatusPaid}},
	PaymentStatusRefunded: {label: "Refunded"},
}

func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := paymentStatuses[status]; ok {
		return status, nil
	}

	return "", &ValidationError{Field: "payment_status", Reason: fmt.Sprintf("unknown value %q", s)}
}

func PaymentStatusValues() []PaymentStatus {
	return []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded}
}

func (s PaymentStatus) Label() string {
	return paymentStatuses[s].label
}

func CanTransitionPayment(current, target PaymentStatus) bool {
	for _, next := range paymentStatuses[current].next {
		if next == target {
			return true
		}
	}
	return false
}

// PaymentPolicy holds the business rules that combine both status axes.
type PaymentPolicy struct {
	// AllowPaidAfterCancel permits marking a cancelled order as paid.
	AllowPaidAfterCancel bool
}

// DecidePaymentTransition is the pure decision half of a payment status change.
func (p PaymentPolicy) DecidePaymentTransition(orderID uuid.UUID, orderStatus OrderStatus, current, target PaymentStatus) error {
	if _, ok := paymentStatuses[target]; !ok {
		return &ValidationError{Field: "payment_status", Reason: fmt.Sprintf("unknown value %q", target)}
	}

	if !CanTransitionPayment(current, target) {
		return &InvalidTransitionError{
			OrderID: orderID,
			Axis:    AxisPayment,
			From:    string(current),
			To:      string(target),
		}
	}

	if orderStatus == OrderStatusCancelled && target == PaymentStatusPaid && !p.AllowPaidAfterCancel {
		return &InvalidStateError{
			OrderID:   orderID,
			Status:    orderStatus,
			Operation: "mark as paid",
		}
	}

	return nil
}
