package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nikolayk812/orderdesk/internal/domain"
)

// retryAfterSeconds is advertised on 503 responses caused by transient
// storage failures.
const retryAfterSeconds = 1

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	writeJSON(w, status, errorResponse{
		Error:     code,
		Message:   msg,
		Details:   details,
		RequestID: middleware.GetReqID(ctx),
	})
}

// writeDomainError maps typed order errors onto HTTP statuses. Anything
// unrecognised is logged and reported as an internal error.
func writeDomainError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validationErr *domain.ValidationError
		transitionErr *domain.InvalidTransitionError
		stateErr      *domain.InvalidStateError
		notFoundErr   *domain.NotFoundError
		conflictErr   *domain.ConflictError
		transientErr  *domain.TransientError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(ctx, w, http.StatusBadRequest, "validation_failed", validationErr.Error(), map[string]any{
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		})

	case errors.As(err, &notFoundErr):
		writeError(ctx, w, http.StatusNotFound, "not_found", notFoundErr.Error(), map[string]any{
			"order_id": notFoundErr.OrderID.String(),
		})

	case errors.As(err, &transitionErr):
		writeError(ctx, w, http.StatusConflict, "invalid_transition", transitionErr.Error(), map[string]any{
			"axis":            string(transitionErr.Axis),
			"from":            transitionErr.From,
			"to":              transitionErr.To,
			"already_applied": transitionErr.AlreadyApplied(),
		})

	case errors.As(err, &stateErr):
		allowed := make([]string, 0, len(stateErr.Allowed))
		for _, s := range stateErr.Allowed {
			allowed = append(allowed, string(s))
		}
		writeError(ctx, w, http.StatusConflict, "invalid_state", stateErr.Error(), map[string]any{
			"status":    string(stateErr.Status),
			"operation": stateErr.Operation,
			"allowed":   allowed,
		})

	case errors.As(err, &conflictErr):
		writeError(ctx, w, http.StatusConflict, "conflict", conflictErr.Error(), map[string]any{
			"axis":     string(conflictErr.Axis),
			"expected": conflictErr.Expected,
			"actual":   conflictErr.Actual,
		})

	case errors.As(err, &transientErr):
		logger.WarnContext(ctx, "transient failure", slog.Any("error", err))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(ctx, w, http.StatusServiceUnavailable, "unavailable", "temporarily unavailable, retry later", nil)

	default:
		logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}
