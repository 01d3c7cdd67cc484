package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-chat-otp/internal/domain"
	"github.com/go-chat-otp/internal/pkg/id"
)

// emailItem reserves an email address for exactly one user.
type emailItem struct {
	Email  string `dynamodbav:"email"`
	UserID string `dynamodbav:"user_id"`
}

// UserRepo provides typed DynamoDB operations for users.
// Email uniqueness is enforced by a lock item in the user_emails table that is
// written in the same transaction as the user.
type UserRepo struct {
	client      API
	usersTable  string
	emailsTable string
}

func NewUserRepo(client API, usersTable, emailsTable string) *UserRepo {
	return &UserRepo{client: client, usersTable: usersTable, emailsTable: emailsTable}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	created := *u
	created.UserID = id.New()

	userAV, err := attributevalue.MarshalMap(created)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	emailAV, err := attributevalue.MarshalMap(emailItem{Email: created.Email, UserID: created.UserID})
	if err != nil {
		return nil, fmt.Errorf("marshal email lock: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.emailsTable),
				Item:                     emailAV,
				ConditionExpression:      aws.String("attribute_not_exists(#k)"),
				ExpressionAttributeNames: map[string]string{"#k": attrEmail},
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.usersTable),
				Item:                     userAV,
				ConditionExpression:      aws.String("attribute_not_exists(#k)"),
				ExpressionAttributeNames: map[string]string{"#k": attrUserID},
			}},
		},
	})
	if err != nil {
		if isConditionalFailure(err) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &created, nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.usersTable),
		Key:            strKey(attrUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail resolves the email lock item, then loads the user it points to.
// Both reads are strongly consistent so a just-registered user is visible.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailsTable),
		Key:            strKey(attrEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var lock emailItem
	if err := attributevalue.UnmarshalMap(out.Item, &lock); err != nil {
		return nil, err
	}
	return r.Get(ctx, lock.UserID)
}
