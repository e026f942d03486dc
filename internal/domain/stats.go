package domain

// StatusSummary is one aggregated row: how many orders sit in a status and
// the sum of their totals in minor units.
type StatusSummary struct {
	Status     OrderStatus
	Count      int64
	TotalMinor int64
}

type OrderStats struct {
	Range    DateRange
	Window   TimeRange
	Total    int64
	ByStatus map[OrderStatus]int64
	// Revenue excludes cancelled orders.
	Revenue      Money
	RevenueMinor int64
}

func (s OrderStats) Count(status OrderStatus) int64 {
	return s.ByStatus[status]
}
