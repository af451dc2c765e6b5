package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wellness-api/internal/domain"
)

// OTPRepo stores one-time codes and the provisioning tokens they are exchanged for.
// OTP table PK: contact_address. Token table PK: token. Both expire via TTL on expires_ttl.
type OTPRepo struct {
	client     *dynamodb.Client
	otpTable   string
	tokenTable string
}

func NewOTPRepo(client *dynamodb.Client, otpTable, tokenTable string) *OTPRepo {
	return &OTPRepo{client: client, otpTable: otpTable, tokenTable: tokenTable}
}

func (r *OTPRepo) GetOTP(ctx context.Context, address string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.otpTable),
		Key:            strKey("contact_address", address),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutOTP replaces whatever record the address had.
func (r *OTPRepo) PutOTP(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.otpTable),
		Item:      item,
	})
	return err
}

func (r *OTPRepo) RecordFailedAttempt(ctx context.Context, address string, revision int64) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.otpTable),
		Key:                 strKey("contact_address", address),
		UpdateExpression:    aws.String("SET attempts = attempts + :one, revision = revision + :one"),
		ConditionExpression: aws.String("revision = :rev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":rev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", revision)},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("otp record changed: %w", domain.ErrConflict)
	}
	return err
}

// RedeemOTP marks the record consumed and inserts the token in one transaction.
func (r *OTPRepo) RedeemOTP(ctx context.Context, address string, revision int64, t *domain.ProvisioningToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:           aws.String(r.otpTable),
				Key:                 strKey("contact_address", address),
				UpdateExpression:    aws.String("SET consumed = :t, revision = revision + :one"),
				ConditionExpression: aws.String("revision = :rev AND consumed = :f"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":t":   &types.AttributeValueMemberBOOL{Value: true},
					":f":   &types.AttributeValueMemberBOOL{Value: false},
					":one": &types.AttributeValueMemberN{Value: "1"},
					":rev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", revision)},
				},
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.tokenTable),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#tok)"),
				ExpressionAttributeNames: map[string]string{"#tok": "token"},
			}},
		},
	})
	if _, canceled := canceledAt(err); canceled {
		return fmt.Errorf("otp record changed: %w", domain.ErrConflict)
	}
	return err
}

func (r *OTPRepo) GetToken(ctx context.Context, token string) (*domain.ProvisioningToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tokenTable),
		Key:            strKey("token", token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	var t domain.ProvisioningToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
