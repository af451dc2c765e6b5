package mood

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellness-api/internal/config"
	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/infrastructure/memory"
)

func seedAccount(t *testing.T, store *memory.Store, timezone string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutOTP(ctx, &domain.OTPRecord{ContactAddress: "a@b.co"}))
	require.NoError(t, store.RedeemOTP(ctx, "a@b.co", 0, &domain.ProvisioningToken{Token: "tok", ContactAddress: "a@b.co"}))
	acc := &domain.Account{AccountID: "acc1", ContactAddress: "a@b.co", Username: "alice", Mood: domain.MoodState{Timezone: timezone}}
	require.NoError(t, store.CreateAccount(ctx, "tok", acc))
	return acc.AccountID
}

func newService(store *memory.Store) Service {
	return NewService(ServiceDeps{Store: store, Engine: config.DefaultEngine()})
}

func zone(name string) *string { return &name }

func TestRecordMood_DailyCapAndReset(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "Asia/Kolkata")
	svc := newService(store)
	ctx := context.Background()
	// 01:30 IST on May 5.
	now := time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		res, err := svc.RecordMood(ctx, accID, i, nil, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, domain.MoodStatusOK, res.Status)
		assert.Equal(t, i, res.UpdatesUsed)
		assert.Nil(t, res.ResetAtLocal)
	}

	res, err := svc.RecordMood(ctx, accID, 4, nil, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.MoodStatusLimitReached, res.Status)
	assert.Equal(t, 3, res.UpdatesUsed)
	require.NotNil(t, res.ResetAtLocal)
	ist, _ := time.LoadLocation("Asia/Kolkata")
	assert.True(t, time.Date(2026, 5, 6, 0, 0, 0, 0, ist).Equal(*res.ResetAtLocal))
	assert.Equal(t, "Asia/Kolkata", res.ResetAtLocal.Location().String())

	acc, err := store.Get(ctx, accID)
	require.NoError(t, err)
	assert.Equal(t, 3, acc.Mood.UpdatesUsed)
	assert.Equal(t, 3, *acc.Mood.LastValue)
}

func TestRecordMood_NewLocalDayResetsCount(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "America/New_York")
	svc := newService(store)
	ctx := context.Background()
	// 22:00 EDT on May 4, already May 5 in UTC.
	evening := time.Date(2026, 5, 5, 2, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := svc.RecordMood(ctx, accID, 3, nil, evening)
		require.NoError(t, err)
	}
	res, err := svc.RecordMood(ctx, accID, 3, nil, evening.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.MoodStatusLimitReached, res.Status)

	// 00:30 EDT May 5.
	res, err = svc.RecordMood(ctx, accID, 3, nil, evening.Add(150*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.MoodStatusOK, res.Status)
	assert.Equal(t, 1, res.UpdatesUsed)

	acc, err := store.Get(ctx, accID)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-05", acc.Mood.LastUpdateDate)
}

func TestRecordMood_ExplicitZonePersistsEvenAtLimit(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "UTC")
	svc := newService(store)
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := svc.RecordMood(ctx, accID, 2, nil, now)
		require.NoError(t, err)
	}
	// Still May 4 in Berlin.
	res, err := svc.RecordMood(ctx, accID, 2, zone("Europe/Berlin"), now)
	require.NoError(t, err)
	assert.Equal(t, domain.MoodStatusLimitReached, res.Status)
	assert.Equal(t, "Europe/Berlin", res.Timezone)

	acc, err := store.Get(ctx, accID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", acc.Mood.Timezone)
	assert.Equal(t, 3, acc.Mood.UpdatesUsed)
}

func TestRecordMood_EmptyStoredZoneUsesDefault(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "")
	res, err := newService(store).RecordMood(context.Background(), accID, 5, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "UTC", res.Timezone)
}

func TestRecordMood_Validation(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "UTC")
	svc := newService(store)
	now := time.Now().UTC()

	_, err := svc.RecordMood(context.Background(), accID, 0, nil, now)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	_, err = svc.RecordMood(context.Background(), accID, 6, nil, now)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	_, err = svc.RecordMood(context.Background(), accID, 3, zone("Moon/Base"), now)
	assert.ErrorIs(t, err, domain.ErrInvalidTimezone)
	_, err = svc.RecordMood(context.Background(), "missing", 3, nil, now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordMood_ConcurrentNeverExceedsCap(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "UTC")
	svc := newService(store)
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		limited int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.RecordMood(context.Background(), accID, 4, nil, now)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Status == domain.MoodStatusOK {
				ok++
			} else {
				limited++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, n-3, limited)
	entries, err := store.ListMoodEntries(context.Background(), accID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSetTimezone_KeepsCounter(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "UTC")
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.RecordMood(ctx, accID, 1, nil, time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, svc.SetTimezone(ctx, accID, "Asia/Tokyo"))

	acc, err := store.Get(ctx, accID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", acc.Mood.Timezone)
	assert.Equal(t, 1, acc.Mood.UpdatesUsed)

	assert.ErrorIs(t, svc.SetTimezone(ctx, accID, "Nowhere/Land"), domain.ErrInvalidTimezone)
}

func TestHistory_NewestFirst(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "UTC")
	svc := newService(store)
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

	for i, v := range []int{1, 4, 5} {
		_, err := svc.RecordMood(ctx, accID, v, nil, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	entries, err := svc.History(ctx, accID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 5, entries[0].Value)
	assert.Equal(t, 4, entries[1].Value)
	assert.Equal(t, "2026-05-04", entries[0].LocalDate)

	_, err = svc.History(ctx, "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordMood_ExactlyAtLocalMidnight(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "Asia/Kolkata")
	svc := newService(store)
	ctx := context.Background()
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	// 00:00:00 IST on May 5.
	boundary := time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		_, err := svc.RecordMood(ctx, accID, i, nil, boundary.Add(-time.Duration(4-i)*time.Second))
		require.NoError(t, err)
	}

	res, err := svc.RecordMood(ctx, accID, 5, nil, boundary)
	require.NoError(t, err)
	assert.Equal(t, domain.MoodStatusOK, res.Status)
	assert.Equal(t, 1, res.UpdatesUsed)

	acc, err := store.Get(ctx, accID)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-05", acc.Mood.LastUpdateDate)

	for i := 0; i < 2; i++ {
		_, err := svc.RecordMood(ctx, accID, 2, nil, boundary)
		require.NoError(t, err)
	}
	res, err = svc.RecordMood(ctx, accID, 2, nil, boundary)
	require.NoError(t, err)
	assert.Equal(t, domain.MoodStatusLimitReached, res.Status)
	require.NotNil(t, res.ResetAtLocal)
	assert.True(t, boundary.Add(24*time.Hour).Equal(*res.ResetAtLocal))
	assert.True(t, time.Date(2026, 5, 6, 0, 0, 0, 0, ist).Equal(*res.ResetAtLocal))
}

func TestRecordMood_ResetWhenMidnightIsSkipped(t *testing.T) {
	store := memory.NewStore()
	accID := seedAccount(t, store, "America/Havana")
	svc := newService(store)
	ctx := context.Background()
	// 22:00 CST on March 7; clocks jump from 00:00 to 01:00 on March 8.
	now := time.Date(2026, 3, 8, 3, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		_, err := svc.RecordMood(ctx, accID, i, nil, now)
		require.NoError(t, err)
	}
	res, err := svc.RecordMood(ctx, accID, 4, nil, now)
	require.NoError(t, err)
	require.NotNil(t, res.ResetAtLocal)

	reset := *res.ResetAtLocal
	assert.True(t, time.Date(2026, 3, 8, 5, 0, 0, 0, time.UTC).Equal(reset), reset.String())
	assert.Equal(t, 8, reset.Day())
	assert.Equal(t, 1, reset.Hour())
	assert.True(t, reset.After(now))
}

func TestNextLocalMidnight(t *testing.T) {
	havana, err := time.LoadLocation("America/Havana")
	require.NoError(t, err)
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"plain", time.Date(2026, 5, 4, 23, 59, 0, 0, ist), time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)},
		{"month end", time.Date(2026, 1, 31, 8, 0, 0, 0, ist), time.Date(2026, 1, 31, 18, 30, 0, 0, time.UTC)},
		{"skipped midnight", time.Date(2026, 3, 7, 22, 0, 0, 0, havana), time.Date(2026, 3, 8, 5, 0, 0, 0, time.UTC)},
		// 00:00 occurs twice on November 1; the day starts at the first.
		{"repeated midnight", time.Date(2026, 10, 31, 22, 0, 0, 0, havana), time.Date(2026, 11, 1, 4, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := nextLocalMidnight(tc.now)
		assert.True(t, tc.want.Equal(got), "%s: got %s", tc.name, got)
	}
}
