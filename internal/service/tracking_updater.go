package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
)

// TrackingUpdater validates shipment tracking input and hands it to the store.
type TrackingUpdater struct {
	store *OrderStore
}

func NewTrackingUpdater(store *OrderStore) *TrackingUpdater {
	return &TrackingUpdater{store: store}
}

// Apply sets tracking on a shipped or out-for-delivery order. Re-applying
// identical values succeeds and reports Changed=false.
func (u *TrackingUpdater) Apply(ctx context.Context, orderID uuid.UUID, tracking domain.Tracking, actorID string) (TrackingChange, error) {
	if err := validateActor(actorID); err != nil {
		return TrackingChange{}, err
	}

	normalized, err := tracking.Normalize()
	if err != nil {
		return TrackingChange{}, err
	}
	normalized.EstimatedDelivery = normalized.EstimatedDelivery.Truncate(time.Microsecond)

	return u.store.ApplyTracking(ctx, orderID, normalized, actorID)
}
