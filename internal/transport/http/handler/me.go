package handler

import (
	"net/http"

	"github.com/wellness-api/internal/application/account"
	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/transport/http/middleware"
)

// MeHandler serves the signed-in account.
type MeHandler struct {
	accounts account.Service
}

func NewMeHandler(accounts account.Service) *MeHandler { return &MeHandler{accounts: accounts} }

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	v, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *MeHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateSettingsRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.accounts.UpdateSettings(r.Context(), id, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.AccountID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.AccountID, true
}
