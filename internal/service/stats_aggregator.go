package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
)

// StatsAggregator computes per-status counts and revenue for a date bucket.
// The cache is optional; its failures are logged and never fail a request.
type StatsAggregator struct {
	repo   port.OrderRepository
	cache  port.StatsCache
	cfg    Config
	logger *slog.Logger
}

func NewStatsAggregator(repo port.OrderRepository, cache port.StatsCache, cfg Config, logger *slog.Logger) *StatsAggregator {
	if logger == nil {
		logger = slog.Default()
	}

	return &StatsAggregator{
		repo:   repo,
		cache:  cache,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

func (a *StatsAggregator) Summarize(ctx context.Context, dateRange domain.DateRange) (domain.OrderStats, error) {
	dateRange, err := domain.ToDateRange(string(dateRange))
	if err != nil {
		return domain.OrderStats{}, err
	}

	window, err := dateRange.Resolve(a.cfg.Clock(), a.cfg.Location)
	if err != nil {
		return domain.OrderStats{}, err
	}

	key := statsCacheKey(dateRange, window)

	// a miss is filled under the generation Get saw
	var (
		gen     int64
		canFill bool
	)
	if a.cache != nil {
		cached, cachedGen, ok, err := a.cache.Get(ctx, key)
		if err != nil {
			a.logger.WarnContext(ctx, "stats cache read failed", slog.String("key", key), slog.Any("error", err))
		} else if ok {
			return cached, nil
		} else {
			gen, canFill = cachedGen, true
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()

	summaries, err := a.repo.SummarizeOrders(opCtx, window)
	if err != nil {
		return domain.OrderStats{}, repoErr("SummarizeOrders", err)
	}

	stats := a.aggregate(dateRange, window, summaries)

	if canFill {
		if err := a.cache.Set(ctx, key, gen, stats); err != nil {
			a.logger.WarnContext(ctx, "stats cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	return stats, nil
}

func (a *StatsAggregator) aggregate(dateRange domain.DateRange, window domain.TimeRange, summaries []domain.StatusSummary) domain.OrderStats {
	byStatus := make(map[domain.OrderStatus]int64, len(domain.OrderStatuses()))
	for _, status := range domain.OrderStatuses() {
		byStatus[status] = 0
	}

	var total, revenueMinor int64
	for _, summary := range summaries {
		byStatus[summary.Status] += summary.Count
		total += summary.Count
		if summary.Status != domain.OrderStatusCancelled {
			revenueMinor += summary.TotalMinor
		}
	}

	return domain.OrderStats{
		Range:        dateRange,
		Window:       window,
		Total:        total,
		ByStatus:     byStatus,
		Revenue:      domain.MoneyFromMinor(revenueMinor, a.cfg.Currency),
		RevenueMinor: revenueMinor,
	}
}

// statsCacheKey includes the resolved bounds so a bucket such as today
// never serves a value computed for a previous day.
func statsCacheKey(dateRange domain.DateRange, window domain.TimeRange) string {
	var after, before int64
	if window.After != nil {
		after = window.After.Unix()
	}
	if window.Before != nil {
		before = window.Before.Unix()
	}
	return fmt.Sprintf("%s:%d:%d", dateRange, after, before)
}
