package http

import (
	"github.com/wellness-api/internal/application/account"
	"github.com/wellness-api/internal/application/mood"
	"github.com/wellness-api/internal/application/otp"
	"github.com/wellness-api/internal/application/registration"
	"github.com/wellness-api/internal/application/wallet"
)

// OTPRepository is the minimal interface the router requires from the code
// and provisioning-token store.
type OTPRepository interface {
	otp.Store
	registration.TokenStore
}

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	otp.AccountChecker
	registration.AccountStore
	account.Store
}

// MoodRepository is the minimal interface the router requires from a mood store.
type MoodRepository interface {
	mood.Store
}

// WalletRepository is the minimal interface the router requires from a wallet store.
type WalletRepository interface {
	wallet.Store
}
