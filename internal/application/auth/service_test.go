package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-chat-otp/internal/domain"
	"github.com/go-chat-otp/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if out, _ := args.Get(0).(*domain.User); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOtpStore struct{ mock.Mock }

func (m *mockOtpStore) Upsert(ctx context.Context, userID, code string, expiry time.Time) error {
	return m.Called(ctx, userID, code, expiry).Error(0)
}
func (m *mockOtpStore) Get(ctx context.Context, userID string) (*domain.OtpRecord, error) {
	args := m.Called(ctx, userID)
	if r, _ := args.Get(0).(*domain.OtpRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendOtp(ctx context.Context, code, email, fullName string) error {
	return m.Called(ctx, code, email, fullName).Error(0)
}

// --- helpers ---

var t0 = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// codes returns a generator that yields the given codes in order.
func codes(seq ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := seq[i%len(seq)]
		i++
		return c, nil
	}
}

type memEnv struct {
	svc      Service
	users    *memory.UserRepo
	otps     *memory.OtpRepo
	notifier *mockNotifier
	clock    *clock
}

func newMemEnv(t *testing.T, gen func() (string, error)) *memEnv {
	t.Helper()
	n := &mockNotifier{}
	n.On("SendOtp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	e := &memEnv{
		users:    memory.NewUserRepo(),
		otps:     memory.NewOtpRepo(),
		notifier: n,
		clock:    &clock{now: t0},
	}
	e.svc = NewService(ServiceDeps{
		UserRepo:     e.users,
		OtpRepo:      e.otps,
		Notifier:     n,
		Clock:        e.clock.Now,
		GenerateCode: gen,
	})
	return e
}

func (e *memEnv) userID(t *testing.T, email string) string {
	t.Helper()
	u, err := e.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u.UserID
}

// --- Register ---

func TestRegister_InvalidInputNeverReachesStore(t *testing.T) {
	users, otps, n := &mockUserStore{}, &mockOtpStore{}, &mockNotifier{}
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: otps, Notifier: n})

	err := svc.Register(context.Background(), "not-an-email", "Jo")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, map[string]string{
		"email":     MsgEmailInvalid,
		"full_name": MsgFullNameTooShort,
	}, verr.Fields)
	users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "SendOtp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_RequiredFields(t *testing.T) {
	svc := NewService(ServiceDeps{UserRepo: &mockUserStore{}, OtpRepo: &mockOtpStore{}, Notifier: &mockNotifier{}})

	err := svc.Register(context.Background(), "   ", "")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgEmailRequired, verr.Fields["email"])
	assert.Equal(t, MsgFullNameRequired, verr.Fields["full_name"])
}

func TestRegister_FullNameLength(t *testing.T) {
	cases := []struct {
		name  string
		email string
		full  string
		ok    bool
	}{
		{"two chars", "a1@example.com", "Jo", false},
		{"padded single char", "a2@example.com", "  a ", false},
		{"three chars", "a3@example.com", "Joe", true},
		{"padded three chars", "a4@example.com", "  Joe  ", true},
		{"multibyte", "a5@example.com", "Zoë", true},
	}
	e := newMemEnv(t, codes("123456"))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.svc.Register(context.Background(), tc.email, tc.full)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, MsgFullNameTooShort, verr.Fields["full_name"])
		})
	}
}

func TestRegister_IssuesCodeWithFiveMinuteExpiry(t *testing.T) {
	e := newMemEnv(t, codes("123456"))

	require.NoError(t, e.svc.Register(context.Background(), "  Jane@Example.COM ", "  Jane Doe "))

	uid := e.userID(t, "jane@example.com")
	rec, err := e.otps.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "123456", rec.Code)
	assert.True(t, t0.Add(5*time.Minute).Equal(rec.ExpiryTime))
	e.notifier.AssertCalled(t, "SendOtp", mock.Anything, "123456", "jane@example.com", "Jane Doe")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newMemEnv(t, codes("123456"))
	require.NoError(t, e.svc.Register(context.Background(), "jane@example.com", "Jane Doe"))

	err := e.svc.Register(context.Background(), "JANE@example.com", "Other Name")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, MsgEmailTaken, verr.Fields["email"])
	assert.Equal(t, 1, e.users.Count())
}

func TestRegister_StoreConflictAfterPreCheck(t *testing.T) {
	users := &mockUserStore{}
	users.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	users.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)
	n := &mockNotifier{}
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: &mockOtpStore{}, Notifier: n})

	err := svc.Register(context.Background(), "a@b.com", "Jane Doe")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgEmailTaken, verr.Fields["email"])
	n.AssertNotCalled(t, "SendOtp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_ConcurrentSameEmail_OneUser(t *testing.T) {
	e := newMemEnv(t, codes("123456"))
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.svc.Register(context.Background(), "race@example.com", "Racer One")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict), err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, e.users.Count())
	assert.Equal(t, 1, e.otps.Count())
}

func TestRegister_PreCheckFailureFallsThroughToCreate(t *testing.T) {
	users := &mockUserStore{}
	users.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("timeout"))
	users.On("Create", mock.Anything, mock.Anything).Return(&domain.User{UserID: "u1", Email: "a@b.com", FullName: "Jane Doe"}, nil)
	otps := &mockOtpStore{}
	otps.On("Upsert", mock.Anything, "u1", "123456", mock.Anything).Return(nil)
	n := &mockNotifier{}
	n.On("SendOtp", mock.Anything, "123456", "a@b.com", "Jane Doe").Return(nil)
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: otps, Notifier: n, GenerateCode: codes("123456")})

	assert.NoError(t, svc.Register(context.Background(), "a@b.com", "Jane Doe"))
	otps.AssertExpectations(t)
}

func TestRegister_CreateFailure(t *testing.T) {
	users := &mockUserStore{}
	users.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	users.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	n := &mockNotifier{}
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: &mockOtpStore{}, Notifier: n})

	err := svc.Register(context.Background(), "a@b.com", "Jane Doe")

	assert.True(t, errors.Is(err, domain.ErrPersistence))
	assert.False(t, errors.Is(err, domain.ErrValidation))
	n.AssertNotCalled(t, "SendOtp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_DeliveryFailureKeepsUser(t *testing.T) {
	users, otps := memory.NewUserRepo(), memory.NewOtpRepo()
	n := &mockNotifier{}
	n.On("SendOtp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: otps, Notifier: n})

	err := svc.Register(context.Background(), "a@b.com", "Jane Doe")

	assert.True(t, errors.Is(err, domain.ErrDelivery))
	assert.Equal(t, 1, users.Count())
	assert.Equal(t, 0, otps.Count())
}

func TestRegister_OtpSaveFailure(t *testing.T) {
	users := &mockUserStore{}
	users.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	users.On("Create", mock.Anything, mock.Anything).Return(&domain.User{UserID: "u1", Email: "a@b.com", FullName: "Jane Doe"}, nil)
	otps := &mockOtpStore{}
	otps.On("Upsert", mock.Anything, "u1", mock.Anything, mock.Anything).Return(errors.New("write failed"))
	n := &mockNotifier{}
	n.On("SendOtp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: otps, Notifier: n})

	err := svc.Register(context.Background(), "a@b.com", "Jane Doe")
	assert.True(t, errors.Is(err, domain.ErrPersistence))
}

func TestRegister_StoreCallsCarryDeadline(t *testing.T) {
	users := &mockUserStore{}
	users.On("GetByEmail", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(nil, domain.ErrNotFound)
	users.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("stop here"))
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: &mockOtpStore{}, Notifier: &mockNotifier{}, StoreTimeout: time.Second})

	_ = svc.Register(context.Background(), "a@b.com", "Jane Doe")
	users.AssertExpectations(t)
}

// --- Login ---

func TestLogin_InvalidEmailNeverReachesStore(t *testing.T) {
	users := &mockUserStore{}
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: &mockOtpStore{}, Notifier: &mockNotifier{}})

	for _, email := range []string{"", "no-at-sign", "a@", "a b@c.com"} {
		_, err := svc.Login(context.Background(), email)
		assert.True(t, errors.Is(err, domain.ErrValidation), email)
	}
	users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmail(t *testing.T) {
	e := newMemEnv(t, codes("123456"))
	_, err := e.svc.Login(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	e.notifier.AssertNotCalled(t, "SendOtp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_StoreError(t *testing.T) {
	users := &mockUserStore{}
	users.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("timeout"))
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: &mockOtpStore{}, Notifier: &mockNotifier{}})

	_, err := svc.Login(context.Background(), "a@b.com")
	assert.True(t, errors.Is(err, domain.ErrPersistence))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestLogin_ReplacesActiveCode(t *testing.T) {
	e := newMemEnv(t, codes("111111", "222222"))
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, "jane@example.com", "Jane Doe"))
	uid := e.userID(t, "jane@example.com")
	first, err := e.otps.Get(ctx, uid)
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	u, err := e.svc.Login(ctx, "Jane@Example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, u.UserID)

	rec, err := e.otps.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "222222", rec.Code)
	assert.Equal(t, first.ID, rec.ID)
	assert.True(t, t0.Add(6*time.Minute).Equal(rec.ExpiryTime))
	assert.Equal(t, 1, e.otps.Count())

	assert.True(t, errors.Is(e.svc.VerifyOtp(ctx, uid, "111111"), domain.ErrInvalidCredential))
	assert.NoError(t, e.svc.VerifyOtp(ctx, uid, "222222"))
}

func TestLogin_DeliveryFailure(t *testing.T) {
	users := &mockUserStore{}
	users.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com", FullName: "Jane Doe"}, nil)
	otps := &mockOtpStore{}
	n := &mockNotifier{}
	n.On("SendOtp", mock.Anything, mock.Anything, "a@b.com", "Jane Doe").Return(errors.New("smtp down"))
	svc := NewService(ServiceDeps{UserRepo: users, OtpRepo: otps, Notifier: n})

	_, err := svc.Login(context.Background(), "a@b.com")

	assert.True(t, errors.Is(err, domain.ErrDelivery))
	otps.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- VerifyOtp ---

func registered(t *testing.T, gen func() (string, error)) (*memEnv, string) {
	t.Helper()
	e := newMemEnv(t, gen)
	require.NoError(t, e.svc.Register(context.Background(), "jane@example.com", "Jane Doe"))
	return e, e.userID(t, "jane@example.com")
}

func TestVerifyOtp_Success_Repeatable(t *testing.T) {
	e, uid := registered(t, codes("123456"))
	ctx := context.Background()

	assert.NoError(t, e.svc.VerifyOtp(ctx, uid, "123456"))
	assert.NoError(t, e.svc.VerifyOtp(ctx, uid, "123456"))
}

func TestVerifyOtp_Mismatch(t *testing.T) {
	e, uid := registered(t, codes("123456"))

	err := e.svc.VerifyOtp(context.Background(), uid, "654321")

	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerifyOtp_Expiry(t *testing.T) {
	e, uid := registered(t, codes("123456"))
	ctx := context.Background()

	e.clock.Advance(5 * time.Minute)
	assert.NoError(t, e.svc.VerifyOtp(ctx, uid, "123456"), "valid at the exact expiry instant")

	e.clock.Advance(time.Second)
	err := e.svc.VerifyOtp(ctx, uid, "123456")
	assert.True(t, errors.Is(err, domain.ErrExpiredCredential))
}

func TestVerifyOtp_MalformedCodeSkipsStore(t *testing.T) {
	otps := &mockOtpStore{}
	svc := NewService(ServiceDeps{UserRepo: &mockUserStore{}, OtpRepo: otps, Notifier: &mockNotifier{}})

	for _, code := range []string{"", "12345", "1234567", "12a456", " 123456"} {
		err := svc.VerifyOtp(context.Background(), "u1", code)
		assert.True(t, errors.Is(err, domain.ErrValidation), code)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized), code)
	}
	otps.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestVerifyOtp_MissingUserID(t *testing.T) {
	otps := &mockOtpStore{}
	svc := NewService(ServiceDeps{UserRepo: &mockUserStore{}, OtpRepo: otps, Notifier: &mockNotifier{}})

	err := svc.VerifyOtp(context.Background(), "  ", "123456")

	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	otps.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestVerifyOtp_LookupFailures(t *testing.T) {
	for _, storeErr := range []error{domain.ErrNotFound, errors.New("timeout")} {
		otps := &mockOtpStore{}
		otps.On("Get", mock.Anything, "u1").Return(nil, storeErr)
		svc := NewService(ServiceDeps{UserRepo: &mockUserStore{}, OtpRepo: otps, Notifier: &mockNotifier{}})

		err := svc.VerifyOtp(context.Background(), "u1", "123456")

		assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	}
}
