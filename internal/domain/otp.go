package domain

import "time"

// OtpRecord is the single active one-time code of a user.
// A new code replaces the previous one in place; ID stays stable across replacements.
type OtpRecord struct {
	ID         string    `json:"id" dynamodbav:"otp_id"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	Code       string    `json:"code" dynamodbav:"code"`
	ExpiryTime time.Time `json:"expiry_time" dynamodbav:"expiry_time"`
}

// Expired reports whether the record is past its expiry at now.
func (o *OtpRecord) Expired(now time.Time) bool {
	return now.After(o.ExpiryTime)
}
