package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wellness-api/internal/domain"
)

// Guard items enforce uniqueness of contact addresses and usernames.
// PK: guard_key ("contact#<address>" | "username#<name>").
type guard struct {
	GuardKey  string `dynamodbav:"guard_key"`
	AccountID string `dynamodbav:"account_id"`
}

func contactGuard(address string) string { return "contact#" + address }
func usernameGuard(name string) string   { return "username#" + name }

// AccountRepo provides typed DynamoDB operations for the accounts table and its guards.
type AccountRepo struct {
	client     *dynamodb.Client
	tableName  string
	guardTable string
	tokenTable string
}

func NewAccountRepo(client *dynamodb.Client, tableName, guardTable, tokenTable string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName, guardTable: guardTable, tokenTable: tokenTable}
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return getAccount(ctx, r.client, r.tableName, accountID)
}

func (r *AccountRepo) GetByContact(ctx context.Context, address string) (*domain.Account, error) {
	g, err := r.getGuard(ctx, contactGuard(address))
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, g.AccountID)
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	g, err := r.getGuard(ctx, usernameGuard(username))
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, g.AccountID)
}

func (r *AccountRepo) ContactRegistered(ctx context.Context, address string) (bool, error) {
	return r.guardExists(ctx, contactGuard(address))
}

// CreateAccount consumes the provisioning token, inserts the account and
// claims its contact and username guards in a single transaction.
func (r *AccountRepo) CreateAccount(ctx context.Context, token string, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	contactItem, err := attributevalue.MarshalMap(guard{GuardKey: contactGuard(a.ContactAddress), AccountID: a.AccountID})
	if err != nil {
		return fmt.Errorf("marshal contact guard: %w", err)
	}
	usernameItem, err := attributevalue.MarshalMap(guard{GuardKey: usernameGuard(a.Username), AccountID: a.AccountID})
	if err != nil {
		return fmt.Errorf("marshal username guard: %w", err)
	}
	notExists := aws.String("attribute_not_exists(guard_key)")

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                aws.String(r.tokenTable),
				Key:                      strKey("token", token),
				UpdateExpression:         aws.String("SET consumed = :t"),
				ConditionExpression:      aws.String("attribute_exists(#tok) AND consumed = :f"),
				ExpressionAttributeNames: map[string]string{"#tok": "token"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":t": &types.AttributeValueMemberBOOL{Value: true},
					":f": &types.AttributeValueMemberBOOL{Value: false},
				},
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(account_id)"),
			}},
			{Put: &types.Put{TableName: aws.String(r.guardTable), Item: contactItem, ConditionExpression: notExists}},
			{Put: &types.Put{TableName: aws.String(r.guardTable), Item: usernameItem, ConditionExpression: notExists}},
		},
	})
	if failed, canceled := canceledAt(err); canceled {
		switch {
		case contains(failed, 0):
			return fmt.Errorf("token unavailable: %w", domain.ErrTokenAlreadyConsumed)
		case contains(failed, 2):
			return fmt.Errorf("contact %s: %w", a.ContactAddress, domain.ErrAlreadyRegistered)
		case contains(failed, 3):
			return fmt.Errorf("username %s: %w", a.Username, domain.ErrUsernameTaken)
		default:
			// Account id collision or a concurrent transaction on the same items.
			return fmt.Errorf("create account: %w", domain.ErrConflict)
		}
	}
	return err
}

func (r *AccountRepo) UpdateProfile(ctx context.Context, accountID string, p domain.Profile) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldProfile:   p,
		fieldUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(account_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return err
}

func (r *AccountRepo) getGuard(ctx context.Context, key string) (*guard, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.guardTable),
		Key:            strKey("guard_key", key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var g guard
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *AccountRepo) guardExists(ctx context.Context, key string) (bool, error) {
	_, err := r.getGuard(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func getAccount(ctx context.Context, client *dynamodb.Client, table, accountID string) (*domain.Account, error) {
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            strKey("account_id", accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// saveSubState writes one revisioned sub-record of the account (mood or
// wallet) and, when extra is set, puts the history item in the same transaction.
func saveSubState(ctx context.Context, client *dynamodb.Client, table, accountID, attr string, prevRevision int64, state interface{}, extraTable string, extra interface{}) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		attr:           state,
		fieldUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	ue.whereRevision(attr, prevRevision)
	update := &types.Update{
		TableName:                 aws.String(table),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       ue.condition(),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}

	if extra == nil {
		_, err = client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 update.TableName,
			Key:                       update.Key,
			UpdateExpression:          update.UpdateExpression,
			ConditionExpression:       update.ConditionExpression,
			ExpressionAttributeNames:  update.ExpressionAttributeNames,
			ExpressionAttributeValues: update.ExpressionAttributeValues,
		})
		if isConditionFailed(err) {
			return fmt.Errorf("%s changed: %w", attr, domain.ErrConflict)
		}
		return err
	}

	item, err := attributevalue.MarshalMap(extra)
	if err != nil {
		return fmt.Errorf("marshal %s history: %w", attr, err)
	}
	_, err = client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: update},
			{Put: &types.Put{TableName: aws.String(extraTable), Item: item}},
		},
	})
	if _, canceled := canceledAt(err); canceled {
		return fmt.Errorf("%s changed: %w", attr, domain.ErrConflict)
	}
	return err
}

// queryNewest reads the newest items under a partition key, newest first.
func queryNewest(ctx context.Context, client *dynamodb.Client, table, accountID string, limit int, out interface{}) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("account_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: accountID},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}
	res, err := client.Query(ctx, input)
	if err != nil {
		return err
	}
	return attributevalue.UnmarshalListOfMaps(res.Items, out)
}
