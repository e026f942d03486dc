package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/admin"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/service"
)

const maxBodyBytes = 1 << 20

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	ctrl   *admin.Controller
	health HealthCheck
	logger *slog.Logger
	clock  func() time.Time
}

func NewHandler(ctrl *admin.Controller, health HealthCheck, logger *slog.Logger) *Handler {
	if health == nil {
		health = func(context.Context) error { return nil }
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		ctrl:   ctrl,
		health: health,
		logger: logger,
		clock:  time.Now,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	page, err := intQuery(r, "page", 1)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	pageSize, err := intQuery(r, "page_size", 0)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	result, err := h.ctrl.ListOrders(r.Context(), filter, page, pageSize)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderPageToResponse(result))
}

func (h *Handler) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	dateRange, err := domain.ToDateRange(r.URL.Query().Get("date_range"))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	stats, err := h.ctrl.GetOrderStats(r.Context(), dateRange)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapStatsToResponse(stats))
}

func (h *Handler) GetOrderDetail(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	order, err := h.ctrl.GetOrderDetail(r.Context(), orderID)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}

	status, err := domain.ToOrderStatus(req.Status)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	order, err := h.ctrl.UpdateOrderStatus(r.Context(), orderID, status, actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	var req paymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	status, err := domain.ToPaymentStatus(req.PaymentStatus)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	order, err := h.ctrl.UpdatePaymentStatus(r.Context(), orderID, status, actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func (h *Handler) UpdateTracking(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	var req trackingRequest
	if !h.decode(w, r, &req) {
		return
	}

	tracking := domain.Tracking{
		TrackingNumber:    req.TrackingNumber,
		Courier:           req.Courier,
		EstimatedDelivery: req.EstimatedDelivery,
	}

	order, err := h.ctrl.UpdateTracking(r.Context(), orderID, tracking, actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// ExportOrders streams the file as it is produced. Once the first byte is
// written the status can no longer change, so later failures only truncate
// the body and get logged.
func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	format, err := service.ToExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}

	rc, err := h.ctrl.ExportOrders(r.Context(), filter, format, actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	defer rc.Close()

	filename := fmt.Sprintf("orders-%s.%s", h.clock().UTC().Format("20060102-150405"), format)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.ErrorContext(r.Context(), "export stream interrupted", slog.Any("error", err))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return false
	}

	return true
}

func filterFromQuery(r *http.Request) (domain.OrderFilter, error) {
	q := r.URL.Query()
	return domain.ParseOrderFilter(q.Get("q"), q.Get("status"), q.Get("payment_status"), q.Get("date_range"))
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Reason: "must be an integer"}
	}

	return n, nil
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: "order_id", Reason: "must be a UUID"}
	}

	return id, nil
}

var errNoRoute = errors.New("no such route")
