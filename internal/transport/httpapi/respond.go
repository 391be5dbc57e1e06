package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"claimflow/internal/bootstrap/logging"
	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusForError maps engine errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domainclaim.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainclaim.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainclaim.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainclaim.ErrInvalidTransition),
		errors.Is(err, domainclaim.ErrDuplicatePolicyNumber):
		return http.StatusConflict
	case errors.Is(err, domainclaim.ErrGenerationExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError hides internal failure details from clients and logs them instead.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.Error(
			logging.WithComponent(ctx, "transport.httpapi"),
			"request failed",
			slog.Int("status", status),
			slog.Any("err", errs.Loggable(err)),
		)
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal error")
			return
		}
	}
	writeError(w, status, err.Error())
}
