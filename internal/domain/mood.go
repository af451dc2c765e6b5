package domain

import "time"

// MoodStatus is the outcome of a mood submission. LimitReached is a normal
// result, not an error.
type MoodStatus string

const (
	MoodStatusOK           MoodStatus = "ok"
	MoodStatusLimitReached MoodStatus = "limit_reached"
)

// MoodState is the per-account daily quota, embedded in the account item.
// LastUpdateDate is the local calendar date (YYYY-MM-DD) in Timezone.
type MoodState struct {
	LastUpdateDate string     `json:"last_update_date" dynamodbav:"last_update_date"`
	UpdatesUsed    int        `json:"updates_used" dynamodbav:"updates_used"`
	Timezone       string     `json:"timezone" dynamodbav:"timezone"`
	LastValue      *int       `json:"last_value" dynamodbav:"last_value"`
	LastRecordedAt *time.Time `json:"last_recorded_at" dynamodbav:"last_recorded_at"`
	Revision       int64      `json:"-" dynamodbav:"revision"`
}

// MoodEntry is an immutable history record. PK: account_id, SK: entry_id (ULID, time ordered).
type MoodEntry struct {
	AccountID  string    `json:"account_id" dynamodbav:"account_id"`
	EntryID    string    `json:"id" dynamodbav:"entry_id"`
	Value      int       `json:"value" dynamodbav:"value"`
	Timezone   string    `json:"timezone" dynamodbav:"timezone"`
	LocalDate  string    `json:"local_date" dynamodbav:"local_date"`
	RecordedAt time.Time `json:"recorded_at" dynamodbav:"recorded_at"`
}

type MoodResult struct {
	Status       MoodStatus `json:"status"`
	UpdatesUsed  int        `json:"updates_used"`
	DailyLimit   int        `json:"daily_limit"`
	Timezone     string     `json:"timezone"`
	ResetAtLocal *time.Time `json:"reset_at_local,omitempty"`
}

type RecordMoodRequest struct {
	Value    int     `json:"value" validate:"required,min=1,max=5"`
	Timezone *string `json:"timezone" validate:"omitempty,timezone"`
}
