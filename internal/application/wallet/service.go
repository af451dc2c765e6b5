package wallet

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wellness-api/internal/config"
	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/metrics"
	"github.com/wellness-api/internal/pkg/id"
	"github.com/wellness-api/internal/pkg/keylock"
	"github.com/wellness-api/internal/pkg/retry"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 200
)

type Store interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	// ApplyWallet replaces the wallet if its revision still equals
	// prevRevision and appends tx to the ledger in the same step.
	ApplyWallet(ctx context.Context, accountID string, prevRevision int64, state domain.WalletState, tx *domain.WalletTransaction) error
	ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.WalletTransaction, error)
}

type Service interface {
	Recharge(ctx context.Context, accountID string, amount int64) (int64, error)
	Debit(ctx context.Context, accountID, serviceKind string, minutes int64) (*domain.DebitResult, error)
	Balance(ctx context.Context, accountID string) (int64, error)
	Transactions(ctx context.Context, accountID string, limit int) ([]domain.WalletTransaction, error)
}

type ServiceDeps struct {
	Store  Store
	Engine config.Engine
	Now    func() time.Time
}

type service struct {
	store  Store
	engine config.Engine
	now    func() time.Time
	locks  *keylock.Map
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{store: deps.Store, engine: deps.Engine, now: now, locks: keylock.New()}
}

func (s *service) Recharge(ctx context.Context, accountID string, amount int64) (balance int64, err error) {
	defer func() { metrics.RecordOutcome("recharge", err) }()

	if amount <= 0 {
		return 0, fmt.Errorf("recharge of %d: %w", amount, domain.ErrInvalidAmount)
	}
	if s.engine.MaxRecharge > 0 && amount > s.engine.MaxRecharge {
		return 0, fmt.Errorf("recharge of %d exceeds %d: %w", amount, s.engine.MaxRecharge, domain.ErrInvalidAmount)
	}

	err = s.apply(ctx, "recharge", accountID, func(w domain.WalletState) (*domain.WalletTransaction, error) {
		if amount > math.MaxInt64-w.Balance {
			return nil, fmt.Errorf("recharge of %d overflows balance %d: %w", amount, w.Balance, domain.ErrInvalidAmount)
		}
		return &domain.WalletTransaction{
			Kind:         domain.TransactionRecharge,
			Amount:       amount,
			BalanceAfter: w.Balance + amount,
		}, nil
	}, &balance)
	return balance, err
}

// Debit charges ceil(minutes × rate) for serviceKind, all or nothing.
func (s *service) Debit(ctx context.Context, accountID, serviceKind string, minutes int64) (res *domain.DebitResult, err error) {
	defer func() { metrics.RecordOutcome("debit", err) }()

	if minutes <= 0 {
		return nil, fmt.Errorf("duration of %d minutes: %w", minutes, domain.ErrInvalidAmount)
	}
	if s.engine.MaxDebitMinutes > 0 && minutes > s.engine.MaxDebitMinutes {
		return nil, fmt.Errorf("duration of %d exceeds %d minutes: %w", minutes, s.engine.MaxDebitMinutes, domain.ErrInvalidAmount)
	}
	kind := strings.ToLower(strings.TrimSpace(serviceKind))
	rule, ok := s.engine.BillingRules[kind]
	if !ok {
		return nil, fmt.Errorf("service %q: %w", serviceKind, domain.ErrUnknownService)
	}
	if minutes > rule.MaxMinutes() {
		return nil, fmt.Errorf("duration of %d minutes cannot be priced for %s: %w", minutes, kind, domain.ErrInvalidAmount)
	}
	charge := rule.Charge(minutes)
	if charge <= 0 {
		return nil, fmt.Errorf("charge %d for %d minutes of %s: %w", charge, minutes, kind, domain.ErrInvalidAmount)
	}

	var balance int64
	err = s.apply(ctx, "debit", accountID, func(w domain.WalletState) (*domain.WalletTransaction, error) {
		if w.Balance < rule.MinimumBalance {
			return nil, fmt.Errorf("balance %d, %s needs %d: %w", w.Balance, kind, rule.MinimumBalance, domain.ErrBelowMinimumBalance)
		}
		if w.Balance < charge {
			return nil, fmt.Errorf("balance %d, charge %d: %w", w.Balance, charge, domain.ErrInsufficientFunds)
		}
		return &domain.WalletTransaction{
			Kind:            domain.TransactionDebit,
			Service:         kind,
			DurationMinutes: minutes,
			Amount:          charge,
			BalanceAfter:    w.Balance - charge,
		}, nil
	}, &balance)
	if err != nil {
		return nil, err
	}
	return &domain.DebitResult{Charged: charge, NewBalance: balance}, nil
}

// apply runs one read-check-write on the wallet under the account lock.
// step inspects the current state and returns the ledger entry to commit.
func (s *service) apply(ctx context.Context, operation, accountID string, step func(domain.WalletState) (*domain.WalletTransaction, error), balance *int64) error {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	return retry.OnConflict(ctx, operation, s.engine.MaxConflictRetries, func() error {
		a, err := s.store.Get(ctx, accountID)
		if err != nil {
			return err
		}
		tx, err := step(a.Wallet)
		if err != nil {
			return err
		}
		now := s.now()
		tx.AccountID = accountID
		tx.TransactionID = id.NewAt(now)
		tx.CreatedAt = now
		next := domain.WalletState{Balance: tx.BalanceAfter, Revision: a.Wallet.Revision + 1}
		if err := s.store.ApplyWallet(ctx, accountID, a.Wallet.Revision, next, tx); err != nil {
			return err
		}
		*balance = next.Balance
		return nil
	})
}

func (s *service) Balance(ctx context.Context, accountID string) (int64, error) {
	a, err := s.store.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Wallet.Balance, nil
}

func (s *service) Transactions(ctx context.Context, accountID string, limit int) ([]domain.WalletTransaction, error) {
	if _, err := s.store.Get(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	return s.store.ListTransactions(ctx, accountID, limit)
}
