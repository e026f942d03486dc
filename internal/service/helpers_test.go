package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
	"github.com/nikolayk812/orderdesk/internal/repository/inmem"
	"github.com/nikolayk812/orderdesk/internal/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

const actor = "admin-1"

var inr = currency.MustParseISO("INR")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock    *fakeClock
	cfg      service.Config
	repo     port.OrderRepository
	store    *service.OrderStore
	query    *service.QueryEngine
	stats    *service.StatsAggregator
	tracking *service.TrackingUpdater
	exporter *service.Exporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock(time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC))
	cfg := service.Config{
		Currency: inr,
		Location: time.UTC,
		Clock:    clock.Now,
	}
	repo := inmem.NewOrder()
	store := service.NewOrderStore(repo, cfg, nil)

	return &fixture{
		clock:    clock,
		cfg:      cfg,
		repo:     repo,
		store:    store,
		query:    service.NewQueryEngine(repo, cfg),
		stats:    service.NewStatsAggregator(repo, nil, cfg, nil),
		tracking: service.NewTrackingUpdater(store),
		exporter: service.NewExporter(repo, cfg, nil),
	}
}

// create places a random order at the current fake time and advances the
// clock by a second so creation times are distinct.
func (f *fixture) create(t *testing.T) domain.Order {
	t.Helper()

	order, err := f.store.Create(context.Background(), randomNewOrder(), "checkout")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	return order
}

// advance walks an order along the pipeline until it reaches target.
func (f *fixture) advance(t *testing.T, orderID uuid.UUID, target domain.OrderStatus) domain.Order {
	t.Helper()

	order, err := f.store.Get(context.Background(), orderID)
	require.NoError(t, err)

	if target == domain.OrderStatusCancelled {
		change, err := f.store.Transition(context.Background(), orderID, target, actor)
		require.NoError(t, err)
		return change.Order
	}

	for order.Status != target {
		next, ok := order.Status.Next()
		require.True(t, ok, "cannot reach %s from %s", target, order.Status)

		change, err := f.store.Transition(context.Background(), orderID, next, actor)
		require.NoError(t, err)
		order = change.Order
	}

	return order
}

func randomNewOrder() domain.NewOrder {
	items := make([]domain.LineItem, gofakeit.Number(1, 3))
	for i := range items {
		items[i] = domain.LineItem{
			ProductID:   uuid.New(),
			ProductName: gofakeit.ProductName(),
			UnitPrice:   domain.MoneyFromMinor(int64(gofakeit.Number(100, 500_000)), inr),
			Quantity:    gofakeit.Number(1, 5),
		}
	}

	return domain.NewOrder{
		Customer: domain.Customer{
			ID:    uuid.NewString(),
			Name:  gofakeit.FirstName() + " " + gofakeit.LastName(),
			Email: gofakeit.Username() + "@example.com",
		},
		Items: items,
	}
}

func orderIDs(orders []domain.Order) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

type mockRepository struct {
	port.OrderRepository
	mock.Mock
}

func (m *mockRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockRepository) UpdateOrderStatus(ctx context.Context, update port.StatusUpdate) (bool, error) {
	args := m.Called(ctx, update)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) SearchOrders(ctx context.Context, criteria domain.OrderCriteria, page domain.PageRequest) ([]domain.Order, int, error) {
	args := m.Called(ctx, criteria, page)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Int(1), args.Error(2)
}
