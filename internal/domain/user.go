package domain

import "time"

// User is a registered chat account. Email is unique across users.
type User struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	FullName  string    `json:"full_name" dynamodbav:"full_name"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type VerifyOtpRequest struct {
	UserID string `json:"user_id"`
	Otp    string `json:"otp"`
}
