package mood

import (
	"context"
	"fmt"
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
	dateLayout          = "2006-01-02"
	defaultHistoryLimit = 30
	maxHistoryLimit     = 100
)

type Store interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	// SaveMood replaces the mood state if its revision still equals
	// prevRevision, appending entry when it is non-nil.
	SaveMood(ctx context.Context, accountID string, prevRevision int64, state domain.MoodState, entry *domain.MoodEntry) error
	ListMoodEntries(ctx context.Context, accountID string, limit int) ([]domain.MoodEntry, error)
}

type Service interface {
	RecordMood(ctx context.Context, accountID string, value int, timezone *string, nowUTC time.Time) (*domain.MoodResult, error)
	SetTimezone(ctx context.Context, accountID, timezone string) error
	History(ctx context.Context, accountID string, limit int) ([]domain.MoodEntry, error)
}

type ServiceDeps struct {
	Store  Store
	Engine config.Engine
}

type service struct {
	store  Store
	engine config.Engine
	locks  *keylock.Map
}

func NewService(deps ServiceDeps) Service {
	return &service{store: deps.Store, engine: deps.Engine, locks: keylock.New()}
}

// RecordMood counts one submission against the account's daily quota. The
// day boundary is local midnight in the resolved timezone.
func (s *service) RecordMood(ctx context.Context, accountID string, value int, timezone *string, nowUTC time.Time) (res *domain.MoodResult, err error) {
	defer func() {
		if err == nil {
			metrics.RecordStatus("record_mood", string(res.Status))
			return
		}
		metrics.RecordOutcome("record_mood", err)
	}()

	if value < 1 || value > 5 {
		return nil, fmt.Errorf("mood value %d out of range 1..5: %w", value, domain.ErrBadRequest)
	}
	explicit, err := explicitZone(timezone)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	err = retry.OnConflict(ctx, "record_mood", s.engine.MaxConflictRetries, func() error {
		a, err := s.store.Get(ctx, accountID)
		if err != nil {
			return err
		}
		state := a.Mood
		prev := state.Revision

		zone := explicit
		if zone == "" {
			zone = state.Timezone
		}
		loc, zone, err := s.location(zone)
		if err != nil {
			return err
		}
		localNow := nowUTC.In(loc)
		today := localNow.Format(dateLayout)

		dirty := false
		if state.Timezone != zone {
			state.Timezone = zone
			dirty = true
		}
		if state.LastUpdateDate != today {
			state.UpdatesUsed = 0
			state.LastUpdateDate = today
			dirty = true
		}

		if state.UpdatesUsed >= s.engine.MoodDailyLimit {
			if dirty {
				state.Revision++
				if err := s.store.SaveMood(ctx, accountID, prev, state, nil); err != nil {
					return err
				}
			}
			reset := nextLocalMidnight(localNow)
			res = &domain.MoodResult{
				Status:       domain.MoodStatusLimitReached,
				UpdatesUsed:  state.UpdatesUsed,
				DailyLimit:   s.engine.MoodDailyLimit,
				Timezone:     zone,
				ResetAtLocal: &reset,
			}
			return nil
		}

		recordedAt := nowUTC.UTC()
		v := value
		state.UpdatesUsed++
		state.LastValue = &v
		state.LastRecordedAt = &recordedAt
		state.Revision++
		entry := &domain.MoodEntry{
			AccountID:  accountID,
			EntryID:    id.NewAt(recordedAt),
			Value:      value,
			Timezone:   zone,
			LocalDate:  today,
			RecordedAt: recordedAt,
		}
		if err := s.store.SaveMood(ctx, accountID, prev, state, entry); err != nil {
			return err
		}
		res = &domain.MoodResult{
			Status:      domain.MoodStatusOK,
			UpdatesUsed: state.UpdatesUsed,
			DailyLimit:  s.engine.MoodDailyLimit,
			Timezone:    zone,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SetTimezone stores the zone used for future day boundaries without
// touching the quota counter.
func (s *service) SetTimezone(ctx context.Context, accountID, timezone string) error {
	zone, err := explicitZone(&timezone)
	if err != nil {
		return err
	}
	if zone == "" {
		return fmt.Errorf("timezone required: %w", domain.ErrInvalidTimezone)
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	return retry.OnConflict(ctx, "set_timezone", s.engine.MaxConflictRetries, func() error {
		a, err := s.store.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if a.Mood.Timezone == zone {
			return nil
		}
		state := a.Mood
		state.Timezone = zone
		state.Revision++
		return s.store.SaveMood(ctx, accountID, a.Mood.Revision, state, nil)
	})
}

func (s *service) History(ctx context.Context, accountID string, limit int) ([]domain.MoodEntry, error) {
	if _, err := s.store.Get(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.store.ListMoodEntries(ctx, accountID, limit)
}

// location resolves name, falling back to the configured default when name
// is empty or no longer loads.
func (s *service) location(name string) (*time.Location, string, error) {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, name, nil
		}
	}
	loc, err := time.LoadLocation(s.engine.DefaultTimezone)
	if err != nil {
		return nil, "", fmt.Errorf("default timezone %q: %w", s.engine.DefaultTimezone, domain.ErrInvalidTimezone)
	}
	return loc, s.engine.DefaultTimezone, nil
}

// explicitZone validates a caller-supplied zone. Nil or blank means none.
func explicitZone(tz *string) (string, error) {
	if tz == nil {
		return "", nil
	}
	name := strings.TrimSpace(*tz)
	if name == "" {
		return "", nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", fmt.Errorf("%q: %w", name, domain.ErrInvalidTimezone)
	}
	return name, nil
}

// nextLocalMidnight returns the first instant of the local day after t's.
// Where a DST change skips midnight that is the transition itself; where
// midnight repeats it is the earlier occurrence.
func nextLocalMidnight(t time.Time) time.Time {
	loc := t.Location()
	y, m, d := time.Date(t.Year(), t.Month(), t.Day()+1, 12, 0, 0, 0, loc).Date()

	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if my, mm, md := midnight.Date(); my != y || mm != m || md != d {
		_, end := midnight.ZoneBounds()
		return end
	}
	start, _ := midnight.ZoneBounds()
	if start.IsZero() {
		return midnight
	}
	_, prevOffset := start.Add(-time.Second).Zone()
	_, offset := midnight.Zone()
	if prevOffset > offset {
		earlier := midnight.Add(-time.Duration(prevOffset-offset) * time.Second)
		if earlier.Before(start) && earlier.Format(dateLayout) == midnight.Format(dateLayout) &&
			earlier.Hour() == 0 && earlier.Minute() == 0 {
			return earlier
		}
	}
	return midnight
}
