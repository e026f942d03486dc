package domain

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

type Order struct {
	ID            uuid.UUID
	Number        string
	Customer      Customer
	Items         []LineItem
	Total         Money
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Tracking      *Tracking

	CreatedAt time.Time
	UpdatedAt time.Time
	UpdatedBy string
}

// Customer is a snapshot taken when the order was placed.
type Customer struct {
	ID    string
	Name  string
	Email string
}

type LineItem struct {
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   Money
	Quantity    int
}

func (i LineItem) Subtotal() Money {
	return i.UnitPrice.Mul(int64(i.Quantity))
}

type Tracking struct {
	TrackingNumber    string
	Courier           string
	EstimatedDelivery time.Time
}

func (t Tracking) Equal(other Tracking) bool {
	return t.TrackingNumber == other.TrackingNumber &&
		t.Courier == other.Courier &&
		t.EstimatedDelivery.Equal(other.EstimatedDelivery)
}

// Normalize trims identifiers and validates the required fields.
func (t Tracking) Normalize() (Tracking, error) {
	t.TrackingNumber = strings.TrimSpace(t.TrackingNumber)
	t.Courier = strings.TrimSpace(t.Courier)

	if t.TrackingNumber == "" {
		return t, &ValidationError{Field: "tracking_number", Reason: "must not be empty"}
	}
	if t.Courier == "" {
		return t, &ValidationError{Field: "courier", Reason: "must not be empty"}
	}
	if t.EstimatedDelivery.IsZero() {
		return t, &ValidationError{Field: "estimated_delivery", Reason: "must be set"}
	}

	t.EstimatedDelivery = t.EstimatedDelivery.UTC()
	return t, nil
}

// ItemsSummary renders line items as "name x qty" joined by "; ".
func (o Order) ItemsSummary() string {
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.ProductName, item.Quantity))
	}
	return strings.Join(parts, "; ")
}

// MaxQuantity matches the INTEGER column holding line item quantities.
const MaxQuantity = math.MaxInt32

// NewOrder is the checkout hand-off accepted by the store.
type NewOrder struct {
	Customer      Customer
	Items         []LineItem
	PaymentStatus PaymentStatus
}

func (n NewOrder) Validate(storeCurrency currency.Unit) error {
	if strings.TrimSpace(n.Customer.Name) == "" {
		return &ValidationError{Field: "customer.name", Reason: "must not be empty"}
	}
	if _, err := mail.ParseAddress(n.Customer.Email); err != nil {
		return &ValidationError{Field: "customer.email", Reason: "must be a valid address"}
	}

	if len(n.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "no items in order"}
	}

	for i, item := range n.Items {
		field := fmt.Sprintf("items[%d]", i)

		if item.ProductID == uuid.Nil {
			return &ValidationError{Field: field + ".product_id", Reason: "must not be empty"}
		}
		if strings.TrimSpace(item.ProductName) == "" {
			return &ValidationError{Field: field + ".product_name", Reason: "must not be empty"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: field + ".quantity", Reason: "must be positive"}
		}
		if item.Quantity > MaxQuantity {
			return &ValidationError{Field: field + ".quantity", Reason: fmt.Sprintf("must be at most %d", MaxQuantity)}
		}
		if item.UnitPrice.Amount.IsNegative() {
			return &ValidationError{Field: field + ".unit_price", Reason: "must not be negative"}
		}
		if item.UnitPrice.Currency != storeCurrency {
			return &ValidationError{
				Field:  field + ".unit_price",
				Reason: fmt.Sprintf("currency %s does not match store currency %s", item.UnitPrice.Currency, storeCurrency),
			}
		}
		if _, err := item.UnitPrice.MinorUnits(); err != nil {
			return &ValidationError{Field: field + ".unit_price", Reason: err.Error()}
		}
	}

	if _, err := n.Total(storeCurrency); err != nil {
		return &ValidationError{Field: "items", Reason: "order total exceeds the supported amount"}
	}

	if n.PaymentStatus != "" {
		if _, err := ToPaymentStatus(string(n.PaymentStatus)); err != nil {
			return err
		}
	}

	return nil
}

// Total sums unit price times quantity over all items.
func (n NewOrder) Total(unit currency.Unit) (Money, error) {
	total := Money{Currency: unit}

	for _, item := range n.Items {
		var err error
		total, err = total.Add(item.Subtotal())
		if err != nil {
			return Money{}, fmt.Errorf("total.Add: %w", err)
		}
	}

	// the total is stored as int64 minor units
	if _, err := total.MinorUnits(); err != nil {
		return Money{}, fmt.Errorf("total.MinorUnits: %w", err)
	}

	return total, nil
}

// Actor is the authenticated administrator performing an operation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAnonymous() bool {
	return strings.TrimSpace(a.ID) == ""
}
