package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wellness-api/internal/config"
	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/metrics"
	"github.com/wellness-api/internal/pkg/id"
	"github.com/wellness-api/internal/pkg/keylock"
	"github.com/wellness-api/internal/pkg/retry"
	"github.com/wellness-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type TokenStore interface {
	GetToken(ctx context.Context, token string) (*domain.ProvisioningToken, error)
}

// AccountStore creates accounts. CreateAccount consumes token and inserts a
// in one atomic step, reporting in order ErrTokenAlreadyConsumed,
// ErrAlreadyRegistered or ErrUsernameTaken.
type AccountStore interface {
	CreateAccount(ctx context.Context, token string, a *domain.Account) error
}

type Service interface {
	Finalize(ctx context.Context, req domain.RegisterRequest) (*domain.Account, error)
}

// ServiceDeps holds all dependencies for the registration finalizer.
type ServiceDeps struct {
	Tokens     TokenStore
	Accounts   AccountStore
	Engine     config.Engine
	Now        func() time.Time
	BcryptCost int
}

type service struct {
	tokens     TokenStore
	accounts   AccountStore
	engine     config.Engine
	now        func() time.Time
	bcryptCost int
	locks      *keylock.Map
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		tokens:     deps.Tokens,
		accounts:   deps.Accounts,
		engine:     deps.Engine,
		now:        now,
		bcryptCost: cost,
		locks:      keylock.New(),
	}
}

// Finalize exchanges a provisioning token and profile fields for exactly one account.
func (s *service) Finalize(ctx context.Context, req domain.RegisterRequest) (acc *domain.Account, err error) {
	defer func() { metrics.RecordOutcome("finalize", err) }()

	if req.Token == "" {
		return nil, domain.ErrInvalidToken
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return nil, fmt.Errorf("username required: %w", domain.ErrBadRequest)
	}
	if err := validate.Var(username, "alphanum,max=150"); err != nil {
		return nil, fmt.Errorf("username %q must be at most 150 letters or digits: %w", username, domain.ErrBadRequest)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters: %w", domain.ErrBadRequest)
	}
	if req.Age != nil && *req.Age < 0 {
		return nil, fmt.Errorf("age must not be negative: %w", domain.ErrBadRequest)
	}
	tz := s.engine.DefaultTimezone
	if req.Timezone != nil && strings.TrimSpace(*req.Timezone) != "" {
		tz = strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("%q: %w", tz, domain.ErrInvalidTimezone)
		}
	}

	unlock := s.locks.Lock(req.Token)
	defer unlock()

	err = retry.OnConflict(ctx, "finalize", s.engine.MaxConflictRetries, func() error {
		t, err := s.tokens.GetToken(ctx, req.Token)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		now := s.now()
		switch {
		case t.Expired(now):
			return fmt.Errorf("token issued %s: %w", t.IssuedAt.Format(time.RFC3339), domain.ErrTokenExpired)
		case t.Consumed:
			return domain.ErrTokenAlreadyConsumed
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return err
		}
		nickname := strings.TrimSpace(req.Nickname)
		if nickname == "" {
			nickname = username
		}
		a := &domain.Account{
			AccountID:      id.NewAt(now),
			ContactAddress: t.ContactAddress,
			Username:       username,
			PasswordHash:   string(hash),
			Profile: domain.Profile{
				FullName: strings.TrimSpace(req.FullName),
				Nickname: nickname,
				Phone:    strings.TrimSpace(req.Phone),
				Age:      req.Age,
				Gender:   strings.TrimSpace(req.Gender),

				NotificationsEnabled: true,
				Language:             domain.DefaultLanguage,
			},
			Mood:      domain.MoodState{Timezone: tz},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.accounts.CreateAccount(ctx, req.Token, a); err != nil {
			return err
		}
		acc = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
