package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chat-otp/internal/domain"
	"github.com/go-chat-otp/internal/infrastructure/metrics"
	"github.com/go-chat-otp/internal/pkg/otp"
	"github.com/go-chat-otp/internal/pkg/validate"
)

// Field messages reported by Register.
const (
	MsgEmailRequired    = "Email address is required."
	MsgEmailInvalid     = "Email address is invalid."
	MsgEmailTaken       = "Email address already exists."
	MsgFullNameRequired = "Full name is required."
	MsgFullNameTooShort = "Full name must be at least 3 characters."
)

const (
	DefaultOtpTTL       = 5 * time.Minute
	DefaultStoreTimeout = 5 * time.Second
	DefaultMailTimeout  = 10 * time.Second
)

// UserStore persists users keyed by a unique email.
type UserStore interface {
	// GetByEmail returns domain.ErrNotFound when no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create assigns the user ID and returns domain.ErrConflict when the email is taken.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
}

// OtpStore keeps at most one OTP record per user.
type OtpStore interface {
	// Upsert replaces the code and expiry of the user's record, creating it if absent.
	Upsert(ctx context.Context, userID, code string, expiry time.Time) error
	// Get returns domain.ErrNotFound when the user has no record.
	Get(ctx context.Context, userID string) (*domain.OtpRecord, error)
}

// Notifier delivers a one-time code to a user.
type Notifier interface {
	SendOtp(ctx context.Context, code, email, fullName string) error
}

type Service interface {
	Register(ctx context.Context, email, fullName string) error
	Login(ctx context.Context, email string) (*domain.User, error)
	VerifyOtp(ctx context.Context, userID, code string) error
}

type ServiceDeps struct {
	UserRepo     UserStore
	OtpRepo      OtpStore
	Notifier     Notifier
	Validator    *validate.Validator
	OtpTTL       time.Duration
	StoreTimeout time.Duration
	MailTimeout  time.Duration
	// Clock and GenerateCode default to time.Now and otp.Generate.
	Clock        func() time.Time
	GenerateCode func() (string, error)
}

type service struct {
	users        UserStore
	otps         OtpStore
	notifier     Notifier
	validator    *validate.Validator
	otpTTL       time.Duration
	storeTimeout time.Duration
	mailTimeout  time.Duration
	now          func() time.Time
	generateCode func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:        deps.UserRepo,
		otps:         deps.OtpRepo,
		notifier:     deps.Notifier,
		validator:    deps.Validator,
		otpTTL:       deps.OtpTTL,
		storeTimeout: deps.StoreTimeout,
		mailTimeout:  deps.MailTimeout,
		now:          deps.Clock,
		generateCode: deps.GenerateCode,
	}
	if s.validator == nil {
		s.validator = validate.New()
	}
	if s.otpTTL <= 0 {
		s.otpTTL = DefaultOtpTTL
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = DefaultStoreTimeout
	}
	if s.mailTimeout <= 0 {
		s.mailTimeout = DefaultMailTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generateCode == nil {
		s.generateCode = otp.Generate
	}
	return s
}

func (s *service) Register(ctx context.Context, email, fullName string) error {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	verr := domain.NewValidationError()
	switch {
	case email == "":
		verr.Add("email", MsgEmailRequired)
	case !s.validator.Email(email):
		verr.Add("email", MsgEmailInvalid)
	default:
		// Best-effort pre-check; the store's uniqueness constraint is authoritative.
		_, err := s.findUser(ctx, email)
		switch {
		case err == nil:
			verr.AddConflict("email", MsgEmailTaken)
		case !errors.Is(err, domain.ErrNotFound):
			slog.Warn("email pre-check failed", "email", email, "err", err)
		}
	}
	switch {
	case fullName == "":
		verr.Add("full_name", MsgFullNameRequired)
	case !s.validator.FullName(fullName):
		verr.Add("full_name", MsgFullNameTooShort)
	}
	if !verr.Empty() {
		return verr
	}

	now := s.now().UTC()
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	u, err := s.users.Create(sctx, &domain.User{
		Email:     email,
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	})
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			verr.AddConflict("email", MsgEmailTaken)
			return verr
		}
		slog.Error("create user failed", "email", email, "err", err)
		return fmt.Errorf("%w: create user: %v", domain.ErrPersistence, err)
	}

	// A delivery failure below leaves the created user in place; Login re-issues a code.
	return s.issueCode(ctx, u, "register")
}

func (s *service) Login(ctx context.Context, email string) (*domain.User, error) {
	email = normalizeEmail(email)
	if !s.validator.Email(email) {
		return nil, fmt.Errorf("invalid login email: %w", domain.ErrValidation)
	}
	u, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("login for unknown email", "email", email)
			return nil, fmt.Errorf("no user for login email: %w", domain.ErrNotFound)
		}
		slog.Error("find user failed", "email", email, "err", err)
		return nil, fmt.Errorf("%w: find user: %v", domain.ErrPersistence, err)
	}
	if err := s.issueCode(ctx, u, "login"); err != nil {
		return nil, err
	}
	return u, nil
}

// VerifyOtp checks code against the user's active record. The record is left
// untouched on success, so the same code verifies again until it is replaced
// or expires.
func (s *service) VerifyOtp(ctx context.Context, userID, code string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		metrics.RecordVerification(metrics.ResultMalformed)
		return fmt.Errorf("user_id required: %w: %w", domain.ErrValidation, domain.ErrBadRequest)
	}
	if !s.validator.OtpCode(code) {
		slog.Debug("malformed otp submitted", "user_id", userID)
		metrics.RecordVerification(metrics.ResultMalformed)
		return fmt.Errorf("malformed otp: %w: %w", domain.ErrValidation, domain.ErrUnauthorized)
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	rec, err := s.otps.Get(sctx, userID)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("get otp failed", "user_id", userID, "err", err)
		}
		metrics.RecordVerification(metrics.ResultInvalid)
		return fmt.Errorf("otp lookup: %w: %w", domain.ErrInvalidCredential, domain.ErrUnauthorized)
	}
	if rec.Code != code {
		metrics.RecordVerification(metrics.ResultInvalid)
		return fmt.Errorf("otp mismatch: %w: %w", domain.ErrInvalidCredential, domain.ErrBadRequest)
	}
	if rec.Expired(s.now()) {
		metrics.RecordVerification(metrics.ResultExpired)
		return fmt.Errorf("otp expired: %w", domain.ErrExpiredCredential)
	}
	metrics.RecordVerification(metrics.ResultSuccess)
	return nil
}

// issueCode generates a code, sends it and stores it as the user's active OTP.
func (s *service) issueCode(ctx context.Context, u *domain.User, flow string) error {
	code, err := s.generateCode()
	if err != nil {
		slog.Error("generate otp failed", "op", flow, "user_id", u.UserID, "err", err)
		return err
	}

	mctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	err = s.notifier.SendOtp(mctx, code, u.Email, u.FullName)
	cancel()
	if err != nil {
		slog.Error("otp delivery failed", "op", flow, "user_id", u.UserID, "email", u.Email, "err", err)
		metrics.RecordDeliveryFailure(flow)
		return fmt.Errorf("%w: send otp: %v", domain.ErrDelivery, err)
	}

	expiry := s.now().UTC().Add(s.otpTTL)
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	err = s.otps.Upsert(sctx, u.UserID, code, expiry)
	cancel()
	if err != nil {
		slog.Error("save otp failed", "op", flow, "user_id", u.UserID, "err", err)
		return fmt.Errorf("%w: save otp: %v", domain.ErrPersistence, err)
	}
	metrics.RecordOtpIssued(flow)
	return nil
}

func (s *service) findUser(ctx context.Context, email string) (*domain.User, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.users.GetByEmail(sctx, email)
}

// normalizeEmail trims surrounding whitespace and lower-cases the address so
// that uniqueness is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
