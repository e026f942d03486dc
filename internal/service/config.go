package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"golang.org/x/text/currency"
)

const (
	DefaultPageSize         = 20
	MaxPageSize             = 100
	DefaultOperationTimeout = 5 * time.Second
	DefaultExportTimeout    = 5 * time.Minute
)

// Config carries the settings shared by every service in this package.
// Zero values are replaced with defaults by withDefaults.
type Config struct {
	Currency             currency.Unit
	Location             *time.Location
	OperationTimeout     time.Duration
	ExportTimeout        time.Duration
	DefaultPageSize      int
	MaxPageSize          int
	AllowPaidAfterCancel bool

	// Clock is injected so date buckets can be tested against a fixed instant.
	Clock func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Currency == (currency.Unit{}) {
		c.Currency = currency.MustParseISO("INR")
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = DefaultExportTimeout
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = DefaultPageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = MaxPageSize
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// now returns the current instant in UTC at the precision Postgres stores.
func (c Config) now() time.Time {
	return c.Clock().UTC().Truncate(time.Microsecond)
}

func validateActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return &domain.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	return nil
}

func validateOrderID(orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return &domain.ValidationError{Field: "order_id", Reason: "must not be empty"}
	}
	return nil
}

// repoErr prefixes err with the repository call name and turns an expired
// operation deadline into a retryable error.
func repoErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !domain.IsRetryable(err) {
		err = &domain.TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("repo.%s: %w", op, err)
}
