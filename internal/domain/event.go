package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventName string

const (
	EventOrderStatusChanged  EventName = "order.status_changed"
	EventOrderPaymentChanged EventName = "order.payment_status_changed"
	EventOrderTrackingSet    EventName = "order.tracking_updated"
	EventOrdersExported      EventName = "orders.exported"
)

// Event is an analytics record. OrderID is zero for events that are not
// about a single order, such as exports.
type Event struct {
	ID         string
	Name       EventName
	OccurredAt time.Time
	ActorID    string
	OrderID    uuid.UUID
	Payload    map[string]any
}
