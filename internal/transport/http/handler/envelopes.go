package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/metrics"
	"github.com/wellness-api/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// ProvisioningEnvelope is returned by a successful code verification.
type ProvisioningEnvelope struct {
	OTPToken  string `json:"otp_token"`
	ExpiresAt string `json:"expires_at"`
}

type BalanceEnvelope struct {
	Balance int64 `json:"balance"`
}

type MoodHistoryEnvelope struct {
	Data []domain.MoodEntry `json:"data"`
}

type TransactionsEnvelope struct {
	Data []domain.WalletTransaction `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decode reads a JSON body into dst and runs its validate tags. It writes the
// error response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, MessageEnvelope{Error: err.Error(), Kind: "bad_request"})
		return false
	}
	return true
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrMismatch),
		errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrAlreadyConsumed),
		errors.Is(err, domain.ErrTokenAlreadyConsumed),
		errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrInvalidTimezone),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownService):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBelowMinimumBalance),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrTransientConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// httpError writes err as a MessageEnvelope. Unmapped errors are logged and
// hidden behind a generic message.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, status, MessageEnvelope{Error: "internal error", Kind: "internal"})
		return
	}
	writeJSON(w, status, MessageEnvelope{Error: err.Error(), Kind: metrics.Outcome(err)})
}

// parseLimit reads ?limit=, returning 0 when absent so the service default applies.
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
