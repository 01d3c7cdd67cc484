package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chat-otp/internal/domain"
	"github.com/go-chat-otp/internal/pkg/id"
	"github.com/redis/go-redis/v9"
)

// ttlGrace keeps a lapsed code around so verification can report it as
// expired instead of missing.
const ttlGrace = 24 * time.Hour

const (
	fieldID     = "id"
	fieldUserID = "user_id"
	fieldCode   = "code"
	fieldExpiry = "expiry_time"
)

func otpKey(userID string) string { return "otp:" + userID }

// OtpRepo stores one hash per user under otp:<user_id>.
type OtpRepo struct {
	client *redis.Client
}

func NewOtpRepo(client *redis.Client) *OtpRepo {
	return &OtpRepo{client: client}
}

// Upsert replaces code and expiry inside MULTI/EXEC. The record id is only
// written when the hash is new.
func (r *OtpRepo) Upsert(ctx context.Context, userID, code string, expiry time.Time) error {
	key := otpKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldID, id.New())
		pipe.HSet(ctx, key,
			fieldUserID, userID,
			fieldCode, code,
			fieldExpiry, expiry.UTC().Format(time.RFC3339Nano),
		)
		pipe.ExpireAt(ctx, key, expiry.Add(ttlGrace))
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (r *OtpRepo) Get(ctx context.Context, userID string) (*domain.OtpRecord, error) {
	vals, err := r.client.HGetAll(ctx, otpKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	expiry, err := time.Parse(time.RFC3339Nano, vals[fieldExpiry])
	if err != nil {
		return nil, fmt.Errorf("parse otp expiry: %w", err)
	}
	return &domain.OtpRecord{
		ID:         vals[fieldID],
		UserID:     vals[fieldUserID],
		Code:       vals[fieldCode],
		ExpiryTime: expiry,
	}, nil
}
