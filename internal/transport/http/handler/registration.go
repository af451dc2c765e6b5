package handler

import (
	"net/http"
	"time"

	"github.com/wellness-api/internal/application/account"
	"github.com/wellness-api/internal/application/otp"
	"github.com/wellness-api/internal/application/registration"
	"github.com/wellness-api/internal/domain"
)

// RegistrationHandler drives the sign-up flow: request a code, verify it,
// then finalize the account with the provisioning token.
type RegistrationHandler struct {
	codes     otp.Service
	finalizer registration.Service
	accounts  account.Service
}

func NewRegistrationHandler(codes otp.Service, finalizer registration.Service, accounts account.Service) *RegistrationHandler {
	return &RegistrationHandler{codes: codes, finalizer: finalizer, accounts: accounts}
}

func (h *RegistrationHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestCodeRequest
	if !decode(w, r, &req) {
		return
	}
	issued, err := h.codes.RequestCode(r.Context(), req.ContactAddress)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, issued)
}

func (h *RegistrationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	tok, err := h.codes.VerifyCode(r.Context(), req.ContactAddress, req.Code)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProvisioningEnvelope{
		OTPToken:  tok.Token,
		ExpiresAt: tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Register finalizes the account and signs the caller in.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	acc, err := h.finalizer.Finalize(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	res, err := h.accounts.Issue(acc)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
