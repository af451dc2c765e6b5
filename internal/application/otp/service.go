package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wellness-api/internal/config"
	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/metrics"
	"github.com/wellness-api/internal/pkg/contact"
	"github.com/wellness-api/internal/pkg/keylock"
	"github.com/wellness-api/internal/pkg/otpcode"
	"github.com/wellness-api/internal/pkg/retry"
	"github.com/wellness-api/internal/pkg/token"
)

// expiredRetention keeps expired records around long enough to answer
// Expired instead of NotFound before the store's TTL removes them.
const expiredRetention = 24 * time.Hour

// Store is the persistence contract for OTP records and the tokens they yield.
type Store interface {
	GetOTP(ctx context.Context, address string) (*domain.OTPRecord, error)
	PutOTP(ctx context.Context, r *domain.OTPRecord) error
	RecordFailedAttempt(ctx context.Context, address string, revision int64) error
	RedeemOTP(ctx context.Context, address string, revision int64, t *domain.ProvisioningToken) error
}

type AccountChecker interface {
	ContactRegistered(ctx context.Context, address string) (bool, error)
}

// Dispatcher delivers a code to its contact address.
type Dispatcher interface {
	Deliver(ctx context.Context, address, code string) error
}

type Service interface {
	RequestCode(ctx context.Context, address string) (*domain.CodeIssued, error)
	VerifyCode(ctx context.Context, address, code string) (*domain.ProvisioningToken, error)
}

// ServiceDeps holds all dependencies for the OTP registry.
type ServiceDeps struct {
	OTPs       Store
	Accounts   AccountChecker
	Dispatcher Dispatcher
	Engine     config.Engine
	Now        func() time.Time
}

type service struct {
	otps       Store
	accounts   AccountChecker
	dispatcher Dispatcher
	engine     config.Engine
	now        func() time.Time
	locks      *keylock.Map
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		otps:       deps.OTPs,
		accounts:   deps.Accounts,
		dispatcher: deps.Dispatcher,
		engine:     deps.Engine,
		now:        now,
		locks:      keylock.New(),
	}
}

func (s *service) RequestCode(ctx context.Context, raw string) (issued *domain.CodeIssued, err error) {
	defer func() { metrics.RecordOutcome("request_code", err) }()

	address, err := contact.Normalize(raw)
	if err != nil {
		return nil, err
	}
	registered, err := s.accounts.ContactRegistered(ctx, address)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, fmt.Errorf("contact %s: %w", contact.Mask(address), domain.ErrAlreadyRegistered)
	}
	code, err := otpcode.Generate()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(address)
	defer unlock()

	// The replacement carries the next revision so a verify still holding
	// the previous record cannot redeem this one.
	var revision int64
	prev, err := s.otps.GetOTP(ctx, address)
	switch {
	case err == nil:
		revision = prev.Revision + 1
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := s.now()
	rec := &domain.OTPRecord{
		ContactAddress: address,
		CodeHash:       otpcode.Hash(address, code),
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.engine.OTPWindow),
		Revision:       revision,
		ExpiresTTL:     now.Add(s.engine.OTPWindow + expiredRetention).Unix(),
	}
	if err := s.otps.PutOTP(ctx, rec); err != nil {
		return nil, err
	}

	s.dispatch(ctx, address, code)
	return &domain.CodeIssued{ContactAddress: address, ExpiresAt: rec.ExpiresAt}, nil
}

// dispatch delivers in the background. The request has already succeeded;
// a failed delivery is logged and the caller can ask for a new code.
func (s *service) dispatch(ctx context.Context, address, code string) {
	if s.dispatcher == nil {
		slog.Warn("no OTP dispatcher configured; code not delivered", "contact", contact.Mask(address))
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.engine.DispatchTimeout)
	go func() {
		defer cancel()
		if err := s.dispatcher.Deliver(dctx, address, code); err != nil {
			slog.Warn("OTP dispatch failed", "contact", contact.Mask(address), "err", err)
		}
	}()
}

func (s *service) VerifyCode(ctx context.Context, raw, code string) (tok *domain.ProvisioningToken, err error) {
	defer func() { metrics.RecordOutcome("verify_code", err) }()

	address, err := contact.Normalize(raw)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(address)
	defer unlock()

	err = retry.OnConflict(ctx, "verify_code", s.engine.MaxConflictRetries, func() error {
		rec, err := s.otps.GetOTP(ctx, address)
		if err != nil {
			return err
		}
		now := s.now()
		switch {
		case rec.Expired(now):
			return fmt.Errorf("code issued %s: %w", rec.IssuedAt.Format(time.RFC3339), domain.ErrExpired)
		case rec.Consumed:
			return domain.ErrAlreadyConsumed
		case rec.Attempts >= s.engine.OTPMaxAttempts:
			return fmt.Errorf("%d failed attempts: %w", rec.Attempts, domain.ErrTooManyAttempts)
		}

		if !otpcode.Equal(address, code, rec.CodeHash) {
			if err := s.otps.RecordFailedAttempt(ctx, address, rec.Revision); err != nil {
				return err
			}
			return domain.ErrMismatch
		}

		value, err := token.New()
		if err != nil {
			return err
		}
		t := &domain.ProvisioningToken{
			Token:          value,
			ContactAddress: address,
			IssuedAt:       now,
			ExpiresAt:      now.Add(s.engine.TokenWindow),
			ExpiresTTL:     now.Add(s.engine.TokenWindow + expiredRetention).Unix(),
		}
		if err := s.otps.RedeemOTP(ctx, address, rec.Revision, t); err != nil {
			return err
		}
		tok = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}
