package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/orderdesk/internal/db"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
	"github.com/samber/lo"
	"golang.org/x/text/currency"
)

type orderRepository struct {
	q    *db.Queries
	dbtx db.DBTX
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{
		q:    db.New(pool),
		dbtx: pool,
	}
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{
		q:    db.New(tx),
		dbtx: tx,
	}
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, &domain.ValidationError{Field: "order_id", Reason: "must not be empty"}
	}

	order, err := withTx(ctx, r.dbtx, snapshotTx, func(q *db.Queries) (domain.Order, error) {
		dbOrder, err := q.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return o, fmt.Errorf("q.GetOrder: %w", &domain.NotFoundError{OrderID: orderID})
			}
			return o, fmt.Errorf("q.GetOrder: %w", err)
		}

		dbOrderItems, err := q.GetOrderItems(ctx, orderID)
		if err != nil {
			return o, fmt.Errorf("q.GetOrderItems: %w", err)
		}

		domainOrder, err := mapDBOrderToDomain(dbOrder, dbOrderItems)
		if err != nil {
			return o, fmt.Errorf("mapDBOrderToDomain: %w", err)
		}

		return domainOrder, nil
	})
	if err != nil {
		return o, classify("GetOrder", fmt.Errorf("withTx: %w", err))
	}

	return order, nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if len(order.Items) == 0 {
		return uuid.Nil, errors.New("no items in order")
	}

	totalMinor, err := order.Total.MinorUnits()
	if err != nil {
		return uuid.Nil, fmt.Errorf("order.Total.MinorUnits: %w", err)
	}

	items := make([]db.InsertOrderItemsParams, 0, len(order.Items))
	for i, item := range order.Items {
		unitPriceMinor, err := item.UnitPrice.MinorUnits()
		if err != nil {
			return uuid.Nil, fmt.Errorf("item[%d].UnitPrice.MinorUnits: %w", i, err)
		}
		if item.Quantity <= 0 || item.Quantity > domain.MaxQuantity {
			return uuid.Nil, fmt.Errorf("item[%d].Quantity %d out of range", i, item.Quantity)
		}

		items = append(items, db.InsertOrderItemsParams{
			Position:       int32(i),
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceMinor: unitPriceMinor,
			Currency:       item.UnitPrice.Currency.String(),
			Quantity:       int32(item.Quantity),
		})
	}

	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := order.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	orderID, err := withTx(ctx, r.dbtx, writeTx, func(q *db.Queries) (uuid.UUID, error) {
		orderID, err := q.InsertOrder(ctx, db.InsertOrderParams{
			CustomerID:    order.Customer.ID,
			CustomerName:  order.Customer.Name,
			CustomerEmail: order.Customer.Email,
			TotalMinor:    totalMinor,
			Currency:      order.Total.Currency.String(),
			Status:        string(order.Status),
			PaymentStatus: string(order.PaymentStatus),
			CreatedAt:     createdAt,
			UpdatedAt:     updatedAt,
			UpdatedBy:     order.UpdatedBy,
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("q.InsertOrder: %w", err)
		}

		for i := range items {
			items[i].OrderID = orderID
		}

		if _, err := q.InsertOrderItems(ctx, items); err != nil {
			return uuid.Nil, fmt.Errorf("q.InsertOrderItems: %w", err)
		}

		return orderID, nil
	})
	if err != nil {
		return uuid.Nil, classify("InsertOrder", fmt.Errorf("withTx: %w", err))
	}

	return orderID, nil
}

func mapCriteriaToDBFilter(c domain.OrderCriteria) db.CountOrdersParams {
	var searchPattern *string
	if c.SearchText != "" {
		searchPattern = lo.ToPtr("%" + escapeLike(c.SearchText) + "%")
	}

	return db.CountOrdersParams{
		SearchPattern: searchPattern,
		Status:        (*string)(c.Status),
		PaymentStatus: (*string)(c.PaymentStatus),
		CreatedAfter:  c.CreatedAt.After,
		CreatedBefore: c.CreatedAt.Before,
	}
}

func (r *orderRepository) SearchOrders(ctx context.Context, criteria domain.OrderCriteria, page domain.PageRequest) ([]domain.Order, int, error) {
	if page.Limit <= 0 || page.Offset < 0 {
		return nil, 0, fmt.Errorf("invalid page: limit=%d offset=%d", page.Limit, page.Offset)
	}

	filter := mapCriteriaToDBFilter(criteria)

	type searchResult struct {
		rows  []db.SearchOrdersRow
		total int64
	}

	// count and page come from the same repeatable-read snapshot
	res, err := withTx(ctx, r.dbtx, snapshotTx, func(q *db.Queries) (searchResult, error) {
		total, err := q.CountOrders(ctx, filter)
		if err != nil {
			return searchResult{}, fmt.Errorf("q.CountOrders: %w", err)
		}

		rows, err := q.SearchOrders(ctx, db.SearchOrdersParams{
			SearchPattern: filter.SearchPattern,
			Status:        filter.Status,
			PaymentStatus: filter.PaymentStatus,
			CreatedAfter:  filter.CreatedAfter,
			CreatedBefore: filter.CreatedBefore,
			RowLimit:      int64(page.Limit),
			RowOffset:     int64(page.Offset),
		})
		if err != nil {
			return searchResult{}, fmt.Errorf("q.SearchOrders: %w", err)
		}

		return searchResult{rows: rows, total: total}, nil
	})
	if err != nil {
		return nil, 0, classify("SearchOrders", fmt.Errorf("withTx: %w", err))
	}

	orders := make([]domain.Order, 0, len(res.rows))
	for _, row := range res.rows {
		order, err := mapSearchOrdersRowToDomain(row)
		if err != nil {
			return nil, 0, fmt.Errorf("mapSearchOrdersRowToDomain: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, int(res.total), nil
}

func (r *orderRepository) StreamOrders(ctx context.Context, criteria domain.OrderCriteria, fn func(domain.Order) error) error {
	filter := mapCriteriaToDBFilter(criteria)

	var callbackErr error

	err := r.q.StreamOrders(ctx, db.StreamOrdersParams(filter), func(row db.SearchOrdersRow) error {
		order, err := mapSearchOrdersRowToDomain(row)
		if err != nil {
			return fmt.Errorf("mapSearchOrdersRowToDomain: %w", err)
		}

		if err := fn(order); err != nil {
			callbackErr = err
			return err
		}

		return nil
	})
	if err != nil {
		if callbackErr != nil {
			return callbackErr
		}
		return classify("StreamOrders", fmt.Errorf("q.StreamOrders: %w", err))
	}

	return nil
}

func (r *orderRepository) SummarizeOrders(ctx context.Context, createdAt domain.TimeRange) ([]domain.StatusSummary, error) {
	if err := createdAt.Validate(); err != nil {
		return nil, fmt.Errorf("createdAt.Validate: %w", err)
	}

	rows, err := r.q.SummarizeOrders(ctx, db.SummarizeOrdersParams{
		CreatedAfter:  createdAt.After,
		CreatedBefore: createdAt.Before,
	})
	if err != nil {
		return nil, classify("SummarizeOrders", fmt.Errorf("q.SummarizeOrders: %w", err))
	}

	result := make([]domain.StatusSummary, 0, len(rows))
	for _, row := range rows {
		status, err := domain.ToOrderStatus(row.Status)
		if err != nil {
			return nil, fmt.Errorf("domain.ToOrderStatus[%s]: %w", row.Status, err)
		}

		result = append(result, domain.StatusSummary{
			Status:     status,
			Count:      row.OrderCount,
			TotalMinor: row.TotalMinor,
		})
	}

	return result, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, update port.StatusUpdate) (bool, error) {
	if update.OrderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}
	if update.To == "" {
		return false, fmt.Errorf("status is empty")
	}

	rows, err := r.q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{
		ToStatus:   string(update.To),
		UpdatedAt:  update.UpdatedAt,
		UpdatedBy:  update.UpdatedBy,
		ID:         update.OrderID,
		FromStatus: string(update.From),
	})
	if err != nil {
		return false, classify("UpdateOrderStatus", fmt.Errorf("q.UpdateOrderStatus: %w", err))
	}

	return rows > 0, nil
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, update port.PaymentStatusUpdate) (bool, error) {
	if update.OrderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}
	if update.To == "" {
		return false, fmt.Errorf("payment status is empty")
	}

	rows, err := r.q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{
		ToPaymentStatus:   string(update.To),
		UpdatedAt:         update.UpdatedAt,
		UpdatedBy:         update.UpdatedBy,
		ID:                update.OrderID,
		FromPaymentStatus: string(update.From),
		OrderStatus:       string(update.OrderStatus),
	})
	if err != nil {
		return false, classify("UpdatePaymentStatus", fmt.Errorf("q.UpdatePaymentStatus: %w", err))
	}

	return rows > 0, nil
}

func (r *orderRepository) UpdateTracking(ctx context.Context, update port.TrackingUpdate) (bool, error) {
	if update.OrderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}
	if len(update.Statuses) == 0 {
		return false, fmt.Errorf("statuses are empty")
	}

	rows, err := r.q.UpdateOrderTracking(ctx, db.UpdateOrderTrackingParams{
		TrackingNumber:            lo.ToPtr(update.Tracking.TrackingNumber),
		TrackingCourier:           lo.ToPtr(update.Tracking.Courier),
		TrackingEstimatedDelivery: lo.ToPtr(update.Tracking.EstimatedDelivery),
		UpdatedAt:                 update.UpdatedAt,
		UpdatedBy:                 update.UpdatedBy,
		ID:                        update.OrderID,
		Statuses: lo.Map(update.Statuses, func(s domain.OrderStatus, _ int) string {
			return string(s)
		}),
	})
	if err != nil {
		return false, classify("UpdateTracking", fmt.Errorf("q.UpdateOrderTracking: %w", err))
	}

	return rows > 0, nil
}

type orderItemJSON struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	Currency       string    `json:"currency"`
	Quantity       int32     `json:"quantity"`
}

func mapOrderItemToDomain(item db.OrderItem) (domain.LineItem, error) {
	parsedCurrency, err := currency.ParseISO(item.Currency)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("currency[%s] is not valid: %w", item.Currency, err)
	}

	return domain.LineItem{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		UnitPrice:   domain.MoneyFromMinor(item.UnitPriceMinor, parsedCurrency),
		Quantity:    int(item.Quantity),
	}, nil
}

func mapOrderItemsToDomain(items []db.OrderItem) ([]domain.LineItem, error) {
	result := make([]domain.LineItem, 0, len(items))

	for _, item := range items {
		lineItem, err := mapOrderItemToDomain(item)
		if err != nil {
			return nil, fmt.Errorf("mapOrderItemToDomain: %w", err)
		}

		result = append(result, lineItem)
	}

	return result, nil
}

func mapDBOrderToDomain(dbOrder db.Order, dbOrderItems []db.OrderItem) (domain.Order, error) {
	var o domain.Order

	items, err := mapOrderItemsToDomain(dbOrderItems)
	if err != nil {
		return o, fmt.Errorf("mapOrderItemsToDomain: %w", err)
	}

	parsedCurrency, err := currency.ParseISO(dbOrder.Currency)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", dbOrder.Currency, err)
	}

	status, err := domain.ToOrderStatus(dbOrder.Status)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", dbOrder.Status, err)
	}

	paymentStatus, err := domain.ToPaymentStatus(dbOrder.PaymentStatus)
	if err != nil {
		return o, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", dbOrder.PaymentStatus, err)
	}

	var tracking *domain.Tracking
	if lo.FromPtr(dbOrder.TrackingNumber) != "" {
		tracking = &domain.Tracking{
			TrackingNumber:    lo.FromPtr(dbOrder.TrackingNumber),
			Courier:           lo.FromPtr(dbOrder.TrackingCourier),
			EstimatedDelivery: lo.FromPtr(dbOrder.TrackingEstimatedDelivery).UTC(),
		}
	}

	return domain.Order{
		ID:     dbOrder.ID,
		Number: dbOrder.Number,
		Customer: domain.Customer{
			ID:    dbOrder.CustomerID,
			Name:  dbOrder.CustomerName,
			Email: dbOrder.CustomerEmail,
		},
		Items:         items,
		Total:         domain.MoneyFromMinor(dbOrder.TotalMinor, parsedCurrency),
		Status:        status,
		PaymentStatus: paymentStatus,
		Tracking:      tracking,
		CreatedAt:     dbOrder.CreatedAt.UTC(),
		UpdatedAt:     dbOrder.UpdatedAt.UTC(),
		UpdatedBy:     dbOrder.UpdatedBy,
	}, nil
}

func mapSearchOrdersRowToDomain(row db.SearchOrdersRow) (domain.Order, error) {
	var itemsJSON []orderItemJSON
	if err := json.Unmarshal(row.Items, &itemsJSON); err != nil {
		return domain.Order{}, fmt.Errorf("json.Unmarshal items: %w", err)
	}

	items := lo.Map(itemsJSON, func(item orderItemJSON, i int) db.OrderItem {
		return db.OrderItem{
			OrderID:        row.ID,
			Position:       int32(i),
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceMinor: item.UnitPriceMinor,
			Currency:       item.Currency,
			Quantity:       item.Quantity,
		}
	})

	return mapDBOrderToDomain(db.Order{
		ID:                        row.ID,
		Number:                    row.Number,
		CustomerID:                row.CustomerID,
		CustomerName:              row.CustomerName,
		CustomerEmail:             row.CustomerEmail,
		TotalMinor:                row.TotalMinor,
		Currency:                  row.Currency,
		Status:                    row.Status,
		PaymentStatus:             row.PaymentStatus,
		TrackingNumber:            row.TrackingNumber,
		TrackingCourier:           row.TrackingCourier,
		TrackingEstimatedDelivery: row.TrackingEstimatedDelivery,
		CreatedAt:                 row.CreatedAt,
		UpdatedAt:                 row.UpdatedAt,
		UpdatedBy:                 row.UpdatedBy,
	}, items)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
