package domain

import (
	"fmt"
	"time"
)

// DateRange is a named window resolved on the server against its clock.
type DateRange string

const (
	DateRangeAll        DateRange = "all"
	DateRangeToday      DateRange = "today"
	DateRangeYesterday  DateRange = "yesterday"
	DateRangeLast7Days  DateRange = "last7days"
	DateRangeLast30Days DateRange = "last30days"
	DateRangeThisMonth  DateRange = "thismonth"
	DateRangeLastMonth  DateRange = "lastmonth"
)

var validDateRanges = map[DateRange]struct{}{
	DateRangeAll:        {},
	DateRangeToday:      {},
	DateRangeYesterday:  {},
	DateRangeLast7Days:  {},
	DateRangeLast30Days: {},
	DateRangeThisMonth:  {},
	DateRangeLastMonth:  {},
}

// ToDateRange parses a bucket name, an empty string means all.
func ToDateRange(s string) (DateRange, error) {
	if s == "" {
		return DateRangeAll, nil
	}

	r := DateRange(s)
	if _, ok := validDateRanges[r]; ok {
		return r, nil
	}

	return "", &ValidationError{Field: "date_range", Reason: fmt.Sprintf("unknown value %q", s)}
}

// Resolve turns the bucket into a half-open window [After, Before) in loc.
// DateRangeAll resolves to an unbounded TimeRange.
func (r DateRange) Resolve(now time.Time, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.UTC
	}

	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	switch r {
	case DateRangeAll, "":
		return TimeRange{}, nil
	case DateRangeToday:
		return newTimeRange(today, tomorrow), nil
	case DateRangeYesterday:
		return newTimeRange(today.AddDate(0, 0, -1), today), nil
	case DateRangeLast7Days:
		return newTimeRange(today.AddDate(0, 0, -6), tomorrow), nil
	case DateRangeLast30Days:
		return newTimeRange(today.AddDate(0, 0, -29), tomorrow), nil
	case DateRangeThisMonth:
		return newTimeRange(month, month.AddDate(0, 1, 0)), nil
	case DateRangeLastMonth:
		return newTimeRange(month.AddDate(0, -1, 0), month), nil
	}

	return TimeRange{}, &ValidationError{Field: "date_range", Reason: fmt.Sprintf("unknown value %q", r)}
}

// TimeRange is inclusive of After and exclusive of Before; nil bounds are open.
type TimeRange struct {
	After  *time.Time
	Before *time.Time
}

func newTimeRange(after, before time.Time) TimeRange {
	after, before = after.UTC(), before.UTC()
	return TimeRange{After: &after, Before: &before}
}

func (t TimeRange) Validate() error {
	if t.Before != nil && t.After != nil {
		if t.Before.Before(*t.After) {
			return fmt.Errorf("before is before after")
		}
	}

	return nil
}

func (t TimeRange) IsUnbounded() bool {
	return t.After == nil && t.Before == nil
}

func (t TimeRange) Contains(ts time.Time) bool {
	if t.After != nil && ts.Before(*t.After) {
		return false
	}
	if t.Before != nil && !ts.Before(*t.Before) {
		return false
	}
	return true
}
