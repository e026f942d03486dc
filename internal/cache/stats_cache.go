// Package cache stores computed order statistics in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/currency"
)

const DefaultTTL = 30 * time.Second

var _ port.StatsCache = (*StatsCache)(nil)

// StatsCache keys every entry by a generation counter. Invalidate bumps the
// counter, which orphans all earlier entries until their TTL removes them.
type StatsCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStatsCache(rdb *redis.Client, prefix string, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatsCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

type statsDTO struct {
	Range        string           `json:"range"`
	After        *time.Time       `json:"after,omitempty"`
	Before       *time.Time       `json:"before,omitempty"`
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	RevenueMinor int64            `json:"revenue_minor"`
	Currency     string           `json:"currency"`
}

// Get returns the generation it looked under so a miss can be filled with
// Set. An Invalidate in between makes that fill unreachable.
func (c *StatsCache) Get(ctx context.Context, key string) (domain.OrderStats, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return domain.OrderStats{}, 0, false, err
	}

	raw, err := c.rdb.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderStats{}, gen, false, nil
	}
	if err != nil {
		return domain.OrderStats{}, gen, false, fmt.Errorf("rdb.Get: %w", err)
	}

	var dto statsDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return domain.OrderStats{}, gen, false, fmt.Errorf("json.Unmarshal: %w", err)
	}

	stats, err := mapDTOToStats(dto)
	if err != nil {
		return domain.OrderStats{}, gen, false, fmt.Errorf("mapDTOToStats: %w", err)
	}

	return stats, gen, true, nil
}

// Set stores stats under gen, the value returned by the preceding Get.
func (c *StatsCache) Set(ctx context.Context, key string, gen int64, stats domain.OrderStats) error {
	raw, err := json.Marshal(mapStatsToDTO(stats))
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := c.rdb.Set(ctx, c.entryKey(gen, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("rdb.Set: %w", err)
	}

	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("rdb.Incr: %w", err)
	}
	return nil
}

func (c *StatsCache) generationKey() string {
	return c.prefix + ":stats:generation"
}

func (c *StatsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("rdb.Get generation: %w", err)
	}
	return gen, nil
}

func (c *StatsCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:stats:%d:%s", c.prefix, gen, key)
}

func mapStatsToDTO(s domain.OrderStats) statsDTO {
	byStatus := make(map[string]int64, len(s.ByStatus))
	for status, count := range s.ByStatus {
		byStatus[string(status)] = count
	}

	return statsDTO{
		Range:        string(s.Range),
		After:        s.Window.After,
		Before:       s.Window.Before,
		Total:        s.Total,
		ByStatus:     byStatus,
		RevenueMinor: s.RevenueMinor,
		Currency:     s.Revenue.Currency.String(),
	}
}

func mapDTOToStats(dto statsDTO) (domain.OrderStats, error) {
	unit, err := currency.ParseISO(dto.Currency)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("currency.ParseISO: %w", err)
	}

	dateRange, err := domain.ToDateRange(dto.Range)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("domain.ToDateRange: %w", err)
	}

	byStatus := make(map[domain.OrderStatus]int64, len(dto.ByStatus))
	for raw, count := range dto.ByStatus {
		status, err := domain.ToOrderStatus(raw)
		if err != nil {
			return domain.OrderStats{}, fmt.Errorf("domain.ToOrderStatus: %w", err)
		}
		byStatus[status] = count
	}

	return domain.OrderStats{
		Range:        dateRange,
		Window:       domain.TimeRange{After: dto.After, Before: dto.Before},
		Total:        dto.Total,
		ByStatus:     byStatus,
		Revenue:      domain.MoneyFromMinor(dto.RevenueMinor, unit),
		RevenueMinor: dto.RevenueMinor,
	}, nil
}
