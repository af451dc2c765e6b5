package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned by stores when a conditional write loses a revision race.
	// Services retry on it and surface ErrTransientConflict once retries run out.
	ErrConflict          = errors.New("conflict")
	ErrTransientConflict = errors.New("transient conflict")

	// OTP registry.
	ErrExpired         = errors.New("code expired")
	ErrMismatch        = errors.New("code mismatch")
	ErrAlreadyConsumed = errors.New("code already consumed")
	ErrTooManyAttempts = errors.New("too many attempts")

	// Registration.
	ErrInvalidToken         = errors.New("invalid provisioning token")
	ErrTokenExpired         = errors.New("provisioning token expired")
	ErrTokenAlreadyConsumed = errors.New("provisioning token already consumed")
	ErrAlreadyRegistered    = errors.New("already registered")
	ErrUsernameTaken        = errors.New("username taken")

	// Mood.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// Wallet.
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnknownService      = errors.New("unknown service")
	ErrBelowMinimumBalance = errors.New("below minimum balance")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)
