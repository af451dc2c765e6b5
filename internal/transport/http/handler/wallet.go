package handler

import (
	"net/http"

	"github.com/wellness-api/internal/application/wallet"
	"github.com/wellness-api/internal/domain"
)

// WalletHandler exposes the minute wallet.
type WalletHandler struct {
	wallets wallet.Service
}

func NewWalletHandler(wallets wallet.Service) *WalletHandler { return &WalletHandler{wallets: wallets} }

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	bal, err := h.wallets.Balance(r.Context(), id)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceEnvelope{Balance: bal})
}

func (h *WalletHandler) Recharge(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req domain.RechargeRequest
	if !decode(w, r, &req) {
		return
	}
	bal, err := h.wallets.Recharge(r.Context(), id, req.Minutes)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceEnvelope{Balance: bal})
}

func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req domain.DebitRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.wallets.Debit(r.Context(), id, req.Service, req.Minutes)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	txs, err := h.wallets.Transactions(r.Context(), id, limit)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if txs == nil {
		txs = []domain.WalletTransaction{}
	}
	writeJSON(w, http.StatusOK, TransactionsEnvelope{Data: txs})
}
