package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellness-api/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedToken(t *testing.T, s *Store, tok, address string) {
	t.Helper()
	require.NoError(t, s.PutOTP(context.Background(), &domain.OTPRecord{ContactAddress: address, ExpiresAt: t0.Add(time.Minute)}))
	require.NoError(t, s.RedeemOTP(context.Background(), address, 0, &domain.ProvisioningToken{
		Token: tok, ContactAddress: address, IssuedAt: t0, ExpiresAt: t0.Add(30 * time.Minute),
	}))
}

func TestRedeemOTP_StaleRevisionConflicts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.PutOTP(ctx, &domain.OTPRecord{ContactAddress: "a@b.com"}))
	require.NoError(t, s.RecordFailedAttempt(ctx, "a@b.com", 0))

	err := s.RedeemOTP(ctx, "a@b.com", 0, &domain.ProvisioningToken{Token: "t1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	r, err := s.GetOTP(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Attempts)
	assert.False(t, r.Consumed)
	_, err = s.GetToken(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedeemOTP_ConsumesRecordAndStoresToken(t *testing.T) {
	s := NewStore()
	seedToken(t, s, "t1", "a@b.com")
	r, err := s.GetOTP(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, r.Consumed)
	assert.Equal(t, int64(1), r.Revision)
	tok, err := s.GetToken(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", tok.ContactAddress)
}

func TestCreateAccount_TokenConsumedOnlyOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedToken(t, s, "t1", "a@b.com")

	require.NoError(t, s.CreateAccount(ctx, "t1", &domain.Account{AccountID: "acc1", ContactAddress: "a@b.com", Username: "alice"}))
	err := s.CreateAccount(ctx, "t1", &domain.Account{AccountID: "acc2", ContactAddress: "a@b.com", Username: "alice2"})
	assert.ErrorIs(t, err, domain.ErrTokenAlreadyConsumed)

	_, err = s.Get(ctx, "acc2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateAccount_UniqueGuardsLeaveTokenUntouched(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedToken(t, s, "t1", "a@b.com")
	seedToken(t, s, "t2", "c@d.com")
	require.NoError(t, s.CreateAccount(ctx, "t1", &domain.Account{AccountID: "acc1", ContactAddress: "a@b.com", Username: "alice"}))

	err := s.CreateAccount(ctx, "t2", &domain.Account{AccountID: "acc2", ContactAddress: "c@d.com", Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	tok, err := s.GetToken(ctx, "t2")
	require.NoError(t, err)
	assert.False(t, tok.Consumed)
}

func TestGet_ReturnsIndependentCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedToken(t, s, "t1", "a@b.com")
	age := 30
	require.NoError(t, s.CreateAccount(ctx, "t1", &domain.Account{AccountID: "acc1", ContactAddress: "a@b.com", Username: "alice", Profile: domain.Profile{Age: &age}}))

	a, err := s.Get(ctx, "acc1")
	require.NoError(t, err)
	*a.Profile.Age = 99
	a.Wallet.Balance = 1000

	again, err := s.Get(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, 30, *again.Profile.Age)
	assert.Equal(t, int64(0), again.Wallet.Balance)
}

func TestApplyWallet_RevisionAndFloor(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedToken(t, s, "t1", "a@b.com")
	require.NoError(t, s.CreateAccount(ctx, "t1", &domain.Account{AccountID: "acc1", ContactAddress: "a@b.com", Username: "alice"}))

	require.NoError(t, s.ApplyWallet(ctx, "acc1", 0, domain.WalletState{Balance: 10, Revision: 1}, &domain.WalletTransaction{AccountID: "acc1", TransactionID: "01", Amount: 10}))
	assert.ErrorIs(t, s.ApplyWallet(ctx, "acc1", 0, domain.WalletState{Balance: 20, Revision: 1}, nil), domain.ErrConflict)
	assert.ErrorIs(t, s.ApplyWallet(ctx, "acc1", 1, domain.WalletState{Balance: -1, Revision: 2}, nil), domain.ErrInsufficientFunds)

	txs, err := s.ListTransactions(ctx, "acc1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(10), txs[0].Amount)
}

func TestListMoodEntries_NewestFirstWithLimit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedToken(t, s, "t1", "a@b.com")
	require.NoError(t, s.CreateAccount(ctx, "t1", &domain.Account{AccountID: "acc1", ContactAddress: "a@b.com", Username: "alice"}))

	for i, id := range []string{"01A", "01B", "01C"} {
		require.NoError(t, s.SaveMood(ctx, "acc1", int64(i), domain.MoodState{Revision: int64(i + 1)}, &domain.MoodEntry{AccountID: "acc1", EntryID: id, Value: i + 1}))
	}
	entries, err := s.ListMoodEntries(ctx, "acc1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "01C", entries[0].EntryID)
	assert.Equal(t, "01B", entries[1].EntryID)
}

func TestPurgeExpired(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.PutOTP(ctx, &domain.OTPRecord{ContactAddress: "old", ExpiresAt: t0.Add(-2 * time.Hour)}))
	require.NoError(t, s.PutOTP(ctx, &domain.OTPRecord{ContactAddress: "new", ExpiresAt: t0.Add(time.Minute)}))

	assert.Equal(t, 1, s.PurgeExpired(t0, time.Hour))
	_, err := s.GetOTP(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetOTP(ctx, "new")
	assert.NoError(t, err)
}
