package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nikolayk812/orderdesk/internal/cache"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/text/currency"
)

type statsCacheSuite struct {
	suite.Suite

	rdb       *redis.Client
	cache     *cache.StatsCache
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestStatsCacheSuite(t *testing.T) {
	suite.Run(t, new(statsCacheSuite))
}

// before all tests in the suite
func (suite *statsCacheSuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startRedis(ctx)
	suite.Require().NoError(err)

	opts, err := redis.ParseURL(connStr)
	suite.Require().NoError(err)

	suite.rdb = redis.NewClient(opts)
	suite.Require().NoError(suite.rdb.Ping(ctx).Err())

	suite.cache = cache.NewStatsCache(suite.rdb, "orderdesk-test", time.Minute)
}

// after all tests in the suite
func (suite *statsCacheSuite) TearDownSuite() {
	if suite.rdb != nil {
		suite.NoError(suite.rdb.Close())
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *statsCacheSuite) SetupTest() {
	suite.Require().NoError(suite.rdb.FlushAll(suite.T().Context()).Err())
}

func (suite *statsCacheSuite) TestRoundTrip() {
	ctx := suite.T().Context()

	after := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	before := after.AddDate(0, 0, 1)
	inr := currency.MustParseISO("INR")

	stats := domain.OrderStats{
		Range:  domain.DateRangeToday,
		Window: domain.TimeRange{After: &after, Before: &before},
		Total:  3,
		ByStatus: map[domain.OrderStatus]int64{
			domain.OrderStatusPending:   2,
			domain.OrderStatusCancelled: 1,
			domain.OrderStatusShipped:   0,
		},
		Revenue:      domain.MoneyFromMinor(123_456, inr),
		RevenueMinor: 123_456,
	}

	_, gen, ok, err := suite.cache.Get(ctx, "today")
	suite.Require().NoError(err)
	suite.False(ok)

	suite.Require().NoError(suite.cache.Set(ctx, "today", gen, stats))

	got, _, ok, err := suite.cache.Get(ctx, "today")
	suite.Require().NoError(err)
	suite.Require().True(ok)

	suite.Equal(stats.Range, got.Range)
	suite.Equal(stats.Total, got.Total)
	suite.Equal(stats.ByStatus, got.ByStatus)
	suite.Equal(stats.RevenueMinor, got.RevenueMinor)
	suite.Equal("1234.56", got.Revenue.FixedString())
	suite.Equal(inr, got.Revenue.Currency)
	suite.Require().NotNil(got.Window.After)
	suite.True(after.Equal(*got.Window.After))
	suite.True(before.Equal(*got.Window.Before))
}

func (suite *statsCacheSuite) TestInvalidate() {
	ctx := suite.T().Context()

	stats := domain.OrderStats{
		Range:    domain.DateRangeAll,
		Total:    1,
		ByStatus: map[domain.OrderStatus]int64{domain.OrderStatusPending: 1},
		Revenue:  domain.MoneyFromMinor(0, currency.MustParseISO("INR")),
	}

	suite.Require().NoError(suite.cache.Set(ctx, "all", 0, stats))
	suite.Require().NoError(suite.cache.Invalidate(ctx))

	_, gen, ok, err := suite.cache.Get(ctx, "all")
	suite.Require().NoError(err)
	suite.False(ok)
	suite.Equal(int64(1), gen)

	suite.Require().NoError(suite.cache.Set(ctx, "all", gen, stats))

	got, _, ok, err := suite.cache.Get(ctx, "all")
	suite.Require().NoError(err)
	suite.True(ok)
	suite.True(got.Window.IsUnbounded())
}

func (suite *statsCacheSuite) TestFillAfterInvalidateIsUnreachable() {
	ctx := suite.T().Context()

	stats := domain.OrderStats{
		Range:    domain.DateRangeAll,
		Total:    1,
		ByStatus: map[domain.OrderStatus]int64{domain.OrderStatusPending: 1},
		Revenue:  domain.MoneyFromMinor(0, currency.MustParseISO("INR")),
	}

	_, gen, ok, err := suite.cache.Get(ctx, "all")
	suite.Require().NoError(err)
	suite.Require().False(ok)

	// a write commits and invalidates before the reader fills the miss
	suite.Require().NoError(suite.cache.Invalidate(ctx))
	suite.Require().NoError(suite.cache.Set(ctx, "all", gen, stats))

	_, _, ok, err = suite.cache.Get(ctx, "all")
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *statsCacheSuite) TestEntriesExpire() {
	ctx := suite.T().Context()
	short := cache.NewStatsCache(suite.rdb, "orderdesk-ttl", time.Second)

	suite.Require().NoError(short.Set(ctx, "all", 0, domain.OrderStats{
		Range:   domain.DateRangeAll,
		Revenue: domain.MoneyFromMinor(0, currency.MustParseISO("INR")),
	}))

	ttl, err := suite.rdb.TTL(ctx, "orderdesk-ttl:stats:0:all").Result()
	suite.Require().NoError(err)
	suite.Greater(ttl, time.Duration(0))
	suite.LessOrEqual(ttl, time.Second)
}

func startRedis(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, "", fmt.Errorf("tcredis.Run: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		return container, "", fmt.Errorf("container.ConnectionString: %w", err)
	}

	return container, connStr, nil
}
