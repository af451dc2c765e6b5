// Package memory implements the engine's store contracts in process memory.
// Every method is atomic with respect to the others; conditional writes
// compare revisions exactly as the DynamoDB store's condition expressions do.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wellness-api/internal/domain"
)

type Store struct {
	mu        sync.Mutex
	otps      map[string]domain.OTPRecord
	tokens    map[string]domain.ProvisioningToken
	accounts  map[string]domain.Account
	contacts  map[string]string // contact address -> account id
	usernames map[string]string // username -> account id
	moods     map[string][]domain.MoodEntry
	ledger    map[string][]domain.WalletTransaction
	nowF      func() time.Time
}

func NewStore() *Store {
	return &Store{
		otps:      make(map[string]domain.OTPRecord),
		tokens:    make(map[string]domain.ProvisioningToken),
		accounts:  make(map[string]domain.Account),
		contacts:  make(map[string]string),
		usernames: make(map[string]string),
		moods:     make(map[string][]domain.MoodEntry),
		ledger:    make(map[string][]domain.WalletTransaction),
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// --- OTP records ---

func (s *Store) GetOTP(_ context.Context, address string) (*domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.otps[address]
	if !ok {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) PutOTP(_ context.Context, r *domain.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[r.ContactAddress] = *r
	return nil
}

func (s *Store) RecordFailedAttempt(_ context.Context, address string, revision int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.otps[address]
	if !ok || r.Revision != revision {
		return fmt.Errorf("otp record changed: %w", domain.ErrConflict)
	}
	r.Attempts++
	r.Revision++
	s.otps[address] = r
	return nil
}

func (s *Store) RedeemOTP(_ context.Context, address string, revision int64, t *domain.ProvisioningToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.otps[address]
	if !ok || r.Revision != revision || r.Consumed {
		return fmt.Errorf("otp record changed: %w", domain.ErrConflict)
	}
	if _, exists := s.tokens[t.Token]; exists {
		return fmt.Errorf("token collision: %w", domain.ErrConflict)
	}
	r.Consumed = true
	r.Revision++
	s.otps[address] = r
	s.tokens[t.Token] = *t
	return nil
}

// --- provisioning tokens & accounts ---

func (s *Store) GetToken(_ context.Context, token string) (*domain.ProvisioningToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (s *Store) ContactRegistered(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.contacts[address]
	return ok, nil
}

// CreateAccount consumes token and inserts a, failing without side effects
// if the token is gone or consumed, or the contact or username is taken.
func (s *Store) CreateAccount(_ context.Context, token string, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || t.Consumed {
		return fmt.Errorf("token unavailable: %w", domain.ErrTokenAlreadyConsumed)
	}
	if _, taken := s.contacts[a.ContactAddress]; taken {
		return fmt.Errorf("contact %s: %w", a.ContactAddress, domain.ErrAlreadyRegistered)
	}
	if _, taken := s.usernames[a.Username]; taken {
		return fmt.Errorf("username %s: %w", a.Username, domain.ErrUsernameTaken)
	}
	t.Consumed = true
	s.tokens[token] = t
	s.accounts[a.AccountID] = cloneAccount(*a)
	s.contacts[a.ContactAddress] = a.AccountID
	s.usernames[a.Username] = a.AccountID
	return nil
}

func (s *Store) Get(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	c := cloneAccount(a)
	return &c, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.Lock()
	id, ok := s.usernames[username]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *Store) GetByContact(ctx context.Context, address string) (*domain.Account, error) {
	s.mu.Lock()
	id, ok := s.contacts[address]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *Store) UpdateProfile(_ context.Context, accountID string, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	a.Profile = p
	a.UpdatedAt = s.nowF()
	s.accounts[accountID] = cloneAccount(a)
	return nil
}

// --- mood ---

func (s *Store) SaveMood(_ context.Context, accountID string, prevRevision int64, state domain.MoodState, entry *domain.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	if a.Mood.Revision != prevRevision {
		return fmt.Errorf("mood state changed: %w", domain.ErrConflict)
	}
	a.Mood = state
	a.UpdatedAt = s.nowF()
	s.accounts[accountID] = cloneAccount(a)
	if entry != nil {
		s.moods[accountID] = append(s.moods[accountID], *entry)
	}
	return nil
}

func (s *Store) ListMoodEntries(_ context.Context, accountID string, limit int) ([]domain.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.moods[accountID]
	out := make([]domain.MoodEntry, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID > out[j].EntryID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- wallet ---

func (s *Store) ApplyWallet(_ context.Context, accountID string, prevRevision int64, state domain.WalletState, tx *domain.WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	if a.Wallet.Revision != prevRevision {
		return fmt.Errorf("wallet changed: %w", domain.ErrConflict)
	}
	if state.Balance < 0 {
		return fmt.Errorf("negative balance %d: %w", state.Balance, domain.ErrInsufficientFunds)
	}
	a.Wallet = state
	a.UpdatedAt = s.nowF()
	s.accounts[accountID] = cloneAccount(a)
	if tx != nil {
		s.ledger[accountID] = append(s.ledger[accountID], *tx)
	}
	return nil
}

func (s *Store) ListTransactions(_ context.Context, accountID string, limit int) ([]domain.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.ledger[accountID]
	out := make([]domain.WalletTransaction, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID > out[j].TransactionID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- hygiene ---

// PurgeExpired drops OTP records and provisioning tokens that expired before
// now minus grace. Correctness never depends on it; expiry is checked lazily.
func (s *Store) PurgeExpired(now time.Time, grace time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-grace)
	n := 0
	for k, r := range s.otps {
		if r.ExpiresAt.Before(cutoff) {
			delete(s.otps, k)
			n++
		}
	}
	for k, t := range s.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(s.tokens, k)
			n++
		}
	}
	return n
}

// RunJanitor calls PurgeExpired every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PurgeExpired(s.nowF(), grace)
		}
	}
}

func cloneAccount(a domain.Account) domain.Account {
	if a.Profile.Age != nil {
		age := *a.Profile.Age
		a.Profile.Age = &age
	}
	if a.Mood.LastValue != nil {
		v := *a.Mood.LastValue
		a.Mood.LastValue = &v
	}
	if a.Mood.LastRecordedAt != nil {
		ts := *a.Mood.LastRecordedAt
		a.Mood.LastRecordedAt = &ts
	}
	return a
}
