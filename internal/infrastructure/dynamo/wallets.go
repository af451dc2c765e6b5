package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/wellness-api/internal/domain"
)

// WalletRepo persists the wallet embedded in the account item and the
// wallet_transactions ledger (PK: account_id, SK: transaction_id).
type WalletRepo struct {
	client       *dynamodb.Client
	accountTable string
	ledgerTable  string
}

func NewWalletRepo(client *dynamodb.Client, accountTable, ledgerTable string) *WalletRepo {
	return &WalletRepo{client: client, accountTable: accountTable, ledgerTable: ledgerTable}
}

func (r *WalletRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return getAccount(ctx, r.client, r.accountTable, accountID)
}

// ApplyWallet replaces the wallet state if its revision is still prevRevision
// and appends tx to the ledger in the same transaction.
func (r *WalletRepo) ApplyWallet(ctx context.Context, accountID string, prevRevision int64, state domain.WalletState, tx *domain.WalletTransaction) error {
	var extra interface{}
	if tx != nil {
		extra = tx
	}
	return saveSubState(ctx, r.client, r.accountTable, accountID, fieldWallet, prevRevision, state, r.ledgerTable, extra)
}

func (r *WalletRepo) ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.WalletTransaction, error) {
	var txs []domain.WalletTransaction
	if err := queryNewest(ctx, r.client, r.ledgerTable, accountID, limit, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
