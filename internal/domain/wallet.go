package domain

import (
	"math"
	"time"
)

// WalletState is the per-account balance in whole minutes, embedded in the account item.
type WalletState struct {
	Balance  int64 `json:"balance" dynamodbav:"balance"`
	Revision int64 `json:"-" dynamodbav:"revision"`
}

type TransactionKind string

const (
	TransactionRecharge TransactionKind = "recharge"
	TransactionDebit    TransactionKind = "debit"
)

// WalletTransaction is an immutable ledger record written together with the
// balance change it describes. PK: account_id, SK: transaction_id (ULID).
type WalletTransaction struct {
	AccountID       string          `json:"account_id" dynamodbav:"account_id"`
	TransactionID   string          `json:"id" dynamodbav:"transaction_id"`
	Kind            TransactionKind `json:"kind" dynamodbav:"kind"`
	Service         string          `json:"service,omitempty" dynamodbav:"service,omitempty"`
	DurationMinutes int64           `json:"duration_minutes,omitempty" dynamodbav:"duration_minutes,omitempty"`
	Amount          int64           `json:"amount" dynamodbav:"amount"`
	BalanceAfter    int64           `json:"balance_after" dynamodbav:"balance_after"`
	CreatedAt       time.Time       `json:"created" dynamodbav:"created_at"`
}

// BillingRule prices one service kind. RateMilli is the per-minute rate in
// thousandths of a wallet minute so fractional rates stay exact.
type BillingRule struct {
	RateMilli      int64
	MinimumBalance int64
}

// Charge returns ceil(duration × rate). durationMinutes must not exceed
// MaxMinutes.
func (r BillingRule) Charge(durationMinutes int64) int64 {
	return (durationMinutes*r.RateMilli + 999) / 1000
}

// MaxMinutes is the longest duration Charge can price without overflowing.
func (r BillingRule) MaxMinutes() int64 {
	if r.RateMilli <= 0 {
		return 0
	}
	return (math.MaxInt64 - 999) / r.RateMilli
}

type DebitResult struct {
	Charged    int64 `json:"charged"`
	NewBalance int64 `json:"balance"`
}

type RechargeRequest struct {
	Minutes int64 `json:"minutes"`
}

type DebitRequest struct {
	Service string `json:"service" validate:"required"`
	Minutes int64  `json:"minutes"`
}
