package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-chat-otp/internal/domain"
	"github.com/go-chat-otp/internal/pkg/id"
)

// OtpRepo keeps one OTP record per user in process memory.
type OtpRepo struct {
	mu     sync.RWMutex
	byUser map[string]domain.OtpRecord
}

func NewOtpRepo() *OtpRepo {
	return &OtpRepo{byUser: make(map[string]domain.OtpRecord)}
}

func (r *OtpRepo) Upsert(ctx context.Context, userID, code string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byUser[userID]
	if !ok {
		rec = domain.OtpRecord{ID: id.New(), UserID: userID}
	}
	rec.Code = code
	rec.ExpiryTime = expiry
	r.byUser[userID] = rec
	return nil
}

func (r *OtpRepo) Get(ctx context.Context, userID string) (*domain.OtpRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (r *OtpRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
