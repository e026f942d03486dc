package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotFound          = errors.New("order not found")
	ErrConflict          = errors.New("concurrent modification")
	ErrTransient         = errors.New("transient failure")
)

// ValidationError reports malformed input, rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Axis names the status dimension an InvalidTransitionError refers to.
type Axis string

const (
	AxisFulfillment Axis = "status"
	AxisPayment     Axis = "payment_status"
)

type InvalidTransitionError struct {
	OrderID uuid.UUID
	Axis    Axis
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: %s cannot move from %s to %s", e.OrderID, e.Axis, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// AlreadyApplied reports whether the order is already in the requested state,
// which is what a retried request observes after its first attempt committed.
func (e *InvalidTransitionError) AlreadyApplied() bool {
	return e.From == e.To
}

type InvalidStateError struct {
	OrderID   uuid.UUID
	Status    OrderStatus
	Operation string
	Allowed   []OrderStatus
}

func (e *InvalidStateError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}

	msg := fmt.Sprintf("order %s: %s not allowed in status %s", e.OrderID, e.Operation, e.Status)
	if len(allowed) > 0 {
		msg += fmt.Sprintf(" (allowed: %s)", strings.Join(allowed, ", "))
	}

	return msg
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

type NotFoundError struct {
	OrderID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned to the loser of a compare-and-swap race.
// Expected is the value the writer read, Actual is what the store holds now.
type ConflictError struct {
	OrderID  uuid.UUID
	Axis     Axis
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s: %s changed concurrently (expected %s, found %s)", e.OrderID, e.Axis, e.Expected, e.Actual)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TransientError wraps storage failures and timeouts that are safe to retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
