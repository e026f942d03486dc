package service

import (
	"context"
	"math"

	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
)

// QueryEngine serves filtered, paginated order listings, newest first.
type QueryEngine struct {
	repo port.OrderRepository
	cfg  Config
}

func NewQueryEngine(repo port.OrderRepository, cfg Config) *QueryEngine {
	return &QueryEngine{repo: repo, cfg: cfg.withDefaults()}
}

// Query returns one 1-based page. A page past the last one is empty, not an
// error. pageSize <= 0 selects the default and larger sizes are clamped.
func (e *QueryEngine) Query(ctx context.Context, filter domain.OrderFilter, page, pageSize int) (domain.OrderPage, error) {
	if page < 1 {
		return domain.OrderPage{}, &domain.ValidationError{Field: "page", Reason: "must be at least 1"}
	}

	pageSize = e.PageSize(pageSize)

	if page-1 > math.MaxInt32/pageSize {
		return domain.OrderPage{}, &domain.ValidationError{Field: "page", Reason: "is too large"}
	}

	criteria, err := filter.Resolve(e.cfg.Clock(), e.cfg.Location)
	if err != nil {
		return domain.OrderPage{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.OperationTimeout)
	defer cancel()

	orders, total, err := e.repo.SearchOrders(ctx, criteria, domain.PageRequest{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return domain.OrderPage{}, repoErr("SearchOrders", err)
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return domain.OrderPage{
		Orders:     orders,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// PageSize resolves a requested page size against the configured bounds.
func (e *QueryEngine) PageSize(requested int) int {
	switch {
	case requested <= 0:
		return e.cfg.DefaultPageSize
	case requested > e.cfg.MaxPageSize:
		return e.cfg.MaxPageSize
	default:
		return requested
	}
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
