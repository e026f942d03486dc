package httpapi

import (
	"time"

	"github.com/nikolayk812/orderdesk/internal/domain"
)

type moneyResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type customerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type lineItemResponse struct {
	ProductID   string        `json:"product_id"`
	ProductName string        `json:"product_name"`
	UnitPrice   moneyResponse `json:"unit_price"`
	Quantity    int           `json:"quantity"`
	Subtotal    moneyResponse `json:"subtotal"`
}

type trackingResponse struct {
	TrackingNumber    string    `json:"tracking_number"`
	Courier           string    `json:"courier"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

type orderResponse struct {
	ID                 string             `json:"id"`
	Number             string             `json:"number"`
	Customer           customerResponse   `json:"customer"`
	Items              []lineItemResponse `json:"items"`
	Total              moneyResponse      `json:"total"`
	Status             string             `json:"status"`
	StatusLabel        string             `json:"status_label"`
	PaymentStatus      string             `json:"payment_status"`
	Tracking           *trackingResponse  `json:"tracking,omitempty"`
	AllowedTransitions []string           `json:"allowed_transitions"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	UpdatedBy          string             `json:"updated_by"`
}

type orderPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalCount int             `json:"total_count"`
	TotalPages int             `json:"total_pages"`
}

type statsResponse struct {
	DateRange    string           `json:"date_range"`
	From         *time.Time       `json:"from,omitempty"`
	To           *time.Time       `json:"to,omitempty"`
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	Revenue      moneyResponse    `json:"revenue"`
	RevenueMinor int64            `json:"revenue_minor"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

type trackingRequest struct {
	TrackingNumber    string    `json:"tracking_number"`
	Courier           string    `json:"courier"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

type errorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func mapMoney(m domain.Money) moneyResponse {
	return moneyResponse{Amount: m.FixedString(), Currency: m.Currency.String()}
}

func mapOrderToResponse(o domain.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemResponse{
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			UnitPrice:   mapMoney(item.UnitPrice),
			Quantity:    item.Quantity,
			Subtotal:    mapMoney(item.Subtotal()),
		}
	}

	allowed := make([]string, 0, 2)
	for _, s := range o.Status.AllowedTargets() {
		allowed = append(allowed, string(s))
	}

	resp := orderResponse{
		ID:     o.ID.String(),
		Number: o.Number,
		Customer: customerResponse{
			ID:    o.Customer.ID,
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
		},
		Items:              items,
		Total:              mapMoney(o.Total),
		Status:             string(o.Status),
		StatusLabel:        o.Status.Label(),
		PaymentStatus:      string(o.PaymentStatus),
		AllowedTransitions: allowed,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		UpdatedBy:          o.UpdatedBy,
	}

	if o.Tracking != nil {
		resp.Tracking = &trackingResponse{
			TrackingNumber:    o.Tracking.TrackingNumber,
			Courier:           o.Tracking.Courier,
			EstimatedDelivery: o.Tracking.EstimatedDelivery,
		}
	}

	return resp
}

func mapOrderPageToResponse(p domain.OrderPage) orderPageResponse {
	orders := make([]orderResponse, len(p.Orders))
	for i, o := range p.Orders {
		orders[i] = mapOrderToResponse(o)
	}

	return orderPageResponse{
		Orders:     orders,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: p.TotalCount,
		TotalPages: p.TotalPages,
	}
}

func mapStatsToResponse(s domain.OrderStats) statsResponse {
	byStatus := make(map[string]int64, len(s.ByStatus))
	for status, count := range s.ByStatus {
		byStatus[string(status)] = count
	}

	return statsResponse{
		DateRange:    string(s.Range),
		From:         s.Window.After,
		To:           s.Window.Before,
		Total:        s.Total,
		ByStatus:     byStatus,
		Revenue:      mapMoney(s.Revenue),
		RevenueMinor: s.RevenueMinor,
	}
}
