package handler

import (
	"net/http"

	"github.com/wellness-api/internal/application/account"
	"github.com/wellness-api/internal/domain"
)

// SessionHandler handles login.
type SessionHandler struct {
	accounts account.Service
}

func NewSessionHandler(accounts account.Service) *SessionHandler {
	return &SessionHandler{accounts: accounts}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
