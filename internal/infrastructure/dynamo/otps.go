package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-chat-otp/internal/domain"
	"github.com/go-chat-otp/internal/pkg/id"
)

// ttlGrace keeps expired records readable long enough to report them as
// expired rather than missing before DynamoDB TTL removes them.
const ttlGrace = 24 * time.Hour

type otpItem struct {
	ID         string    `dynamodbav:"otp_id"`
	UserID     string    `dynamodbav:"user_id"`
	Code       string    `dynamodbav:"code"`
	ExpiryTime time.Time `dynamodbav:"expiry_time"`
	ExpiresAt  int64     `dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// OtpRepo keeps one OTP item per user. PK: user_id.
type OtpRepo struct {
	client    API
	tableName string
}

func NewOtpRepo(client API, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

// Upsert writes code and expiry with a single UpdateItem, so concurrent
// issues for one user leave exactly one item and the last write wins.
func (r *OtpRepo) Upsert(ctx context.Context, userID, code string, expiry time.Time) error {
	ue, err := buildUpdateExpr(
		map[string]interface{}{
			attrCode:      code,
			attrExpiry:    expiry.UTC(),
			attrExpiresAt: expiry.Add(ttlGrace).Unix(),
		},
		map[string]interface{}{
			attrOtpID: id.New(),
		},
	)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (r *OtpRepo) Get(ctx context.Context, userID string) (*domain.OtpRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var it otpItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal otp: %w", err)
	}
	return &domain.OtpRecord{
		ID:         it.ID,
		UserID:     it.UserID,
		Code:       it.Code,
		ExpiryTime: it.ExpiryTime.UTC(),
	}, nil
}
