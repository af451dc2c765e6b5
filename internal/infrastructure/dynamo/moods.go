package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/wellness-api/internal/domain"
)

// MoodRepo persists the mood quota embedded in the account item and the
// mood_entries history table (PK: account_id, SK: entry_id).
type MoodRepo struct {
	client       *dynamodb.Client
	accountTable string
	entryTable   string
}

func NewMoodRepo(client *dynamodb.Client, accountTable, entryTable string) *MoodRepo {
	return &MoodRepo{client: client, accountTable: accountTable, entryTable: entryTable}
}

func (r *MoodRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return getAccount(ctx, r.client, r.accountTable, accountID)
}

// SaveMood replaces the mood state if its revision is still prevRevision.
func (r *MoodRepo) SaveMood(ctx context.Context, accountID string, prevRevision int64, state domain.MoodState, entry *domain.MoodEntry) error {
	var extra interface{}
	if entry != nil {
		extra = entry
	}
	return saveSubState(ctx, r.client, r.accountTable, accountID, fieldMood, prevRevision, state, r.entryTable, extra)
}

func (r *MoodRepo) ListMoodEntries(ctx context.Context, accountID string, limit int) ([]domain.MoodEntry, error) {
	var entries []domain.MoodEntry
	if err := queryNewest(ctx, r.client, r.entryTable, accountID, limit, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
