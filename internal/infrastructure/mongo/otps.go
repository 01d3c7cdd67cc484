package mongoinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/go-chat-otp/internal/domain"
)

type otpDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     primitive.ObjectID `bson:"user_id"`
	Code       string             `bson:"code"`
	ExpiryTime time.Time          `bson:"expiry_time"`
}

// OtpRepo stores one OTP document per user, keyed by a unique user_id index.
type OtpRepo struct {
	coll *mongo.Collection
}

func NewOtpRepo(coll *mongo.Collection) *OtpRepo {
	return &OtpRepo{coll: coll}
}

// Upsert replaces code and expiry on the user's document in a single
// server-side operation, inserting it when absent.
func (r *OtpRepo) Upsert(ctx context.Context, userID, code string, expiry time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, domain.ErrBadRequest)
	}
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"user_id": oid},
		bson.M{"$set": bson.M{"code": code, "expiry_time": expiry}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

// Get returns domain.ErrNotFound for unknown users and for ids that are not valid ObjectIDs.
func (r *OtpRepo) Get(ctx context.Context, userID string) (*domain.OtpRecord, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var d otpDoc
	if err := r.coll.FindOne(ctx, bson.M{"user_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return &domain.OtpRecord{
		ID:         d.ID.Hex(),
		UserID:     d.UserID.Hex(),
		Code:       d.Code,
		ExpiryTime: d.ExpiryTime.UTC(),
	}, nil
}
