package http

import (
	"github.com/go-chat-otp/internal/application/auth"
	"github.com/go-chat-otp/internal/pkg/validate"
)

// Deps holds all infrastructure dependencies for the router. The stores are
// selected in main according to STORE_BACKEND and OTP_BACKEND.
type Deps struct {
	UserRepo  auth.UserStore
	OtpRepo   auth.OtpStore
	Notifier  auth.Notifier
	Validator *validate.Validator
}
