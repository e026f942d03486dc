package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const filterAll = "all"

// OrderFilter has AND semantics across fields. Nil Status or PaymentStatus means all.
type OrderFilter struct {
	SearchText    string
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	DateRange     DateRange
}

// ParseOrderFilter builds a filter from the raw values an admin client sends.
func ParseOrderFilter(searchText, status, paymentStatus, dateRange string) (OrderFilter, error) {
	f := OrderFilter{SearchText: strings.TrimSpace(searchText)}

	if status != "" && status != filterAll {
		s, err := ToOrderStatus(status)
		if err != nil {
			return f, err
		}
		f.Status = &s
	}

	if paymentStatus != "" && paymentStatus != filterAll {
		p, err := ToPaymentStatus(paymentStatus)
		if err != nil {
			return f, err
		}
		f.PaymentStatus = &p
	}

	r, err := ToDateRange(dateRange)
	if err != nil {
		return f, err
	}
	f.DateRange = r

	return f, nil
}

func (f OrderFilter) Validate() error {
	if f.Status != nil {
		if _, err := ToOrderStatus(string(*f.Status)); err != nil {
			return err
		}
	}

	if f.PaymentStatus != nil {
		if _, err := ToPaymentStatus(string(*f.PaymentStatus)); err != nil {
			return err
		}
	}

	if _, err := ToDateRange(string(f.DateRange)); err != nil {
		return err
	}

	return nil
}

// Resolve pins the date bucket to a concrete window at the given instant.
func (f OrderFilter) Resolve(now time.Time, loc *time.Location) (OrderCriteria, error) {
	if err := f.Validate(); err != nil {
		return OrderCriteria{}, err
	}

	created, err := f.DateRange.Resolve(now, loc)
	if err != nil {
		return OrderCriteria{}, err
	}

	return OrderCriteria{
		SearchText:    f.SearchText,
		Status:        f.Status,
		PaymentStatus: f.PaymentStatus,
		CreatedAt:     created,
	}, nil
}

// Summary is a flat description used in analytics payloads.
func (f OrderFilter) Summary() map[string]string {
	m := map[string]string{
		"search_text":    f.SearchText,
		"status":         filterAll,
		"payment_status": filterAll,
		"date_range":     string(f.DateRange),
	}
	if f.Status != nil {
		m["status"] = string(*f.Status)
	}
	if f.PaymentStatus != nil {
		m["payment_status"] = string(*f.PaymentStatus)
	}
	if f.DateRange == "" {
		m["date_range"] = string(DateRangeAll)
	}
	return m
}

// OrderCriteria is a resolved filter handed to repositories.
type OrderCriteria struct {
	SearchText    string
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	CreatedAt     TimeRange
}

// Matches applies the criteria to a single order, searching case-insensitively
// in the order number, customer name and customer email.
func (c OrderCriteria) Matches(o Order) bool {
	if c.Status != nil && o.Status != *c.Status {
		return false
	}
	if c.PaymentStatus != nil && o.PaymentStatus != *c.PaymentStatus {
		return false
	}
	if !c.CreatedAt.Contains(o.CreatedAt) {
		return false
	}

	if c.SearchText == "" {
		return true
	}

	fold := cases.Fold()
	needle := fold.String(c.SearchText)
	for _, haystack := range []string{o.Number, o.Customer.Name, o.Customer.Email} {
		if strings.Contains(fold.String(haystack), needle) {
			return true
		}
	}

	return false
}

// CompareNewestFirst orders by creation time descending, then by id descending.
func CompareNewestFirst(a, b Order) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID.String(), a.ID.String())
}

// PageRequest is a resolved LIMIT/OFFSET pair.
type PageRequest struct {
	Limit  int
	Offset int
}

type OrderPage struct {
	Orders     []Order
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}
