package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/pkg/contact"
	"golang.org/x/crypto/bcrypt"
)

type Store interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByContact(ctx context.Context, address string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, accountID string, p domain.Profile) error
}

// TimezoneSetter changes the zone that bounds the mood quota day.
type TimezoneSetter interface {
	SetTimezone(ctx context.Context, accountID, timezone string) error
}

type TokenSigner interface {
	Sign(accountID, username string) (string, error)
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error)
	Issue(a *domain.Account) (*domain.AuthResult, error)
	Get(ctx context.Context, accountID string) (*domain.AccountView, error)
	UpdateSettings(ctx context.Context, accountID string, req domain.UpdateSettingsRequest) (*domain.AccountView, error)
}

// ServiceDeps holds all dependencies for the account service.
type ServiceDeps struct {
	Store     Store
	Timezones TimezoneSetter
	Signer    TokenSigner
}

type service struct {
	store     Store
	timezones TimezoneSetter
	signer    TokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{store: deps.Store, timezones: deps.Timezones, signer: deps.Signer}
}

// Login accepts a username or a registered contact address.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	a, err := s.lookup(ctx, req.Identifier)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.Issue(a)
}

func (s *service) lookup(ctx context.Context, identifier string) (*domain.Account, error) {
	ident := strings.TrimSpace(identifier)
	if !contact.IsEmail(ident) {
		a, err := s.store.GetByUsername(ctx, strings.ToLower(ident))
		if !errors.Is(err, domain.ErrNotFound) {
			return a, err
		}
	}
	address, err := contact.Normalize(ident)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return s.store.GetByContact(ctx, address)
}

// Issue signs a bearer token for a.
func (s *service) Issue(a *domain.Account) (*domain.AuthResult, error) {
	bearer, err := s.signer.Sign(a.AccountID, a.Username)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{Bearer: bearer, Account: a.View()}, nil
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.AccountView, error) {
	a, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	v := a.View()
	return &v, nil
}

func (s *service) UpdateSettings(ctx context.Context, accountID string, req domain.UpdateSettingsRequest) (*domain.AccountView, error) {
	if req.Timezone != nil {
		name := strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(name); name == "" || err != nil {
			return nil, fmt.Errorf("%q: %w", name, domain.ErrInvalidTimezone)
		}
	}
	a, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p := a.Profile
	changed := false
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			changed = true
		}
	}
	set(&p.FullName, req.FullName)
	set(&p.Nickname, req.Nickname)
	set(&p.Phone, req.Phone)
	set(&p.Gender, req.Gender)
	if req.NotificationsEnabled != nil {
		p.NotificationsEnabled = *req.NotificationsEnabled
		changed = true
	}
	if req.PrefersDarkMode != nil {
		p.PrefersDarkMode = *req.PrefersDarkMode
		changed = true
	}
	if req.Language != nil {
		if lang := strings.TrimSpace(*req.Language); lang != "" {
			p.Language = lang
			changed = true
		}
	}
	if req.Age != nil {
		if *req.Age < 0 {
			return nil, fmt.Errorf("age must not be negative: %w", domain.ErrBadRequest)
		}
		age := *req.Age
		p.Age = &age
		changed = true
	}

	if changed {
		if err := s.store.UpdateProfile(ctx, accountID, p); err != nil {
			return nil, err
		}
	}
	if req.Timezone != nil {
		if err := s.timezones.SetTimezone(ctx, accountID, *req.Timezone); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, accountID)
}
