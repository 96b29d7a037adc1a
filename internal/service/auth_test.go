package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/auth-service/internal/config"
	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/storage"
	"github.com/pribylovaa/auth-service/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:        "unit-secret",
		AccessTokenTTL:   30 * time.Second,
		RefreshTokenTTL:  24 * time.Hour,
		Issuer:           "auth-service",
		Audience:         []string{"web"},
		MinPasswordLen:   8,
		MaxLoginAttempts: 5,
		LockoutWindow:    15 * time.Minute,
		ResetTokenTTL:    time.Hour,
		VerificationTTL:  time.Hour,
		PublicURL:        "http://localhost:3000",
	}
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		RegisterLimit:  3,
		RegisterWindow: time.Hour,
		LoginLimit:     5,
		LoginWindow:    15 * time.Minute,
		ResetLimit:     3,
		ResetWindow:    time.Hour,
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testCfg(), testLimits())
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	svc := &Service{cfg: testCfg()}
	h, err := svc.hashPassword(pw)
	require.NoError(t, err)
	return h
}

// verifiedUser — активный подтвержденный пользователь для сценариев входа.
func verifiedUser(t *testing.T, email, pw string) *models.User {
	t.Helper()
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: mustHashPW(t, pw),
		IsActive:     true,
		IsVerified:   true,
	}
}

func TestRegisterUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "User@Example.com"
	norm := "user@example.com"
	pw := "Abcdef1!"

	st.EXPECT().UserByEmail(gomock.Any(), norm).Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			require.Equal(t, norm, u.Email)
			require.True(t, u.IsActive)
			require.False(t, u.IsVerified)
			require.NotEqual(t, uuid.Nil, u.ID)
			require.NotEqual(t, pw, u.PasswordHash)
			return nil
		})

	user, err := svc.RegisterUser(ctx, email, pw)
	require.NoError(t, err)
	require.Equal(t, norm, user.Email)
	require.False(t, user.IsVerified)
}

func TestRegisterUser_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.RegisterUser(context.Background(), "not-an-email", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRegisterUser_WeakOrEmptyPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.RegisterUser(context.Background(), "u@e.com", "")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = svc.RegisterUser(context.Background(), "u@e.com", "short")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)

	// Длина достаточная, но нет цифр/спецсимволов.
	_, err = svc.RegisterUser(context.Background(), "u@e.com", "abcdefghij")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterUser_EmailAlreadyExists_OnLookup(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Если UserByEmail вернул пользователя (err == nil) - считается занятым email.
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(&models.User{ID: uuid.New(), Email: "user@example.com"}, nil)

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUser_SaveUserAlreadyExists_MapsToEmailTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return(storage.ErrAlreadyExists)

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUser_RateLimited(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	lim := mocks.NewMockLimiter(ctrl)
	svc.SetRateLimiter(lim)

	lim.EXPECT().Allow(gomock.Any(), "register:user@example.com", 3, time.Hour).
		Return(false, nil)

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestRegisterUser_LimiterBackendDown_FailOpen(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	lim := mocks.NewMockLimiter(ctrl)
	svc.SetRateLimiter(lim)

	lim.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, errors.New("redis down"))
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "Abcdef1!")
	require.NoError(t, err)
}

func TestRegisterUser_SendsVerificationCode(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	codes := mocks.NewMockVerificationCodes(ctrl)
	ml := mocks.NewMockMailer(ctrl)
	svc.SetVerificationCodes(codes)
	svc.SetMailer(ml)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	codes.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Len(6), time.Hour).Return(nil)
	ml.EXPECT().Send(gomock.Any(), "user@example.com", gomock.Any(), gomock.Any()).Return(nil)

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "Abcdef1!")
	require.NoError(t, err)
}

func TestRegisterUser_MailFailure_DoesNotFailRegistration(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	codes := mocks.NewMockVerificationCodes(ctrl)
	ml := mocks.NewMockMailer(ctrl)
	svc.SetVerificationCodes(codes)
	svc.SetMailer(ml)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	codes.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	ml.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("smtp timeout"))

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "Abcdef1!")
	require.NoError(t, err)
}

func TestLoginUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "user@example.com"
	pw := "Abcdef1!"
	user := verifiedUser(t, email, pw)

	st.EXPECT().UserByEmail(gomock.Any(), email).Return(user, nil)
	st.EXPECT().RecordLoginSuccess(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	tp, uid, err := svc.LoginUser(ctx, email, pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)
	require.WithinDuration(t, time.Now().Add(svc.cfg.AccessTokenTTL), tp.AccessExpiresAt, 2*time.Second)
}

func TestLoginUser_InvalidEmail_OrEmptyPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.LoginUser(context.Background(), "bad", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.LoginUser(context.Background(), "user@example.com", "")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_UserNotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, storage.ErrNotFound)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_WrongPassword_RecordsFailure(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := verifiedUser(t, "user@example.com", "Abcdef1!")

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	st.EXPECT().RecordLoginFailure(gomock.Any(), user.ID, gomock.Any()).Return(1, nil)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "WRONG1!a")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_InactiveUser(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.IsActive = false

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_NotVerified(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.IsVerified = false

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotVerified)
}

func TestLoginUser_Locked_EvenWithCorrectPassword(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.FailedAttempts = 5
	lastFail := time.Now().UTC().Add(-time.Minute)
	user.LastFailedAt = &lastFail

	// Пароль верный, но окно блокировки не истекло: попытка не доходит
	// ни до проверки пароля, ни до RecordLoginFailure.
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestLoginUser_LockoutWindowExpired_LoginSucceeds(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.FailedAttempts = 5
	lastFail := time.Now().UTC().Add(-time.Hour) // окно (15m) истекло
	user.LastFailedAt = &lastFail

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	st.EXPECT().RecordLoginSuccess(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	_, uid, err := svc.LoginUser(context.Background(), "user@example.com", "Abcdef1!")
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
}

func TestLoginUser_RateLimited(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	lim := mocks.NewMockLimiter(ctrl)
	svc.SetRateLimiter(lim)

	lim.EXPECT().Allow(gomock.Any(), "login:user@example.com", 5, 15*time.Minute).
		Return(false, nil)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestRevokeToken_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), refreshTokenHash("plain")).
		Return(true, nil)

	require.NoError(t, svc.RevokeToken(context.Background(), "plain"))
}

func TestRevokeToken_AlreadyRevoked(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), gomock.Any()).
		Return(false, nil)

	err := svc.RevokeToken(context.Background(), "plain")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevokeToken_NotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), gomock.Any()).
		Return(false, storage.ErrNotFound)

	err := svc.RevokeToken(context.Background(), "plain")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCurrentUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	got, err := svc.CurrentUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)
}

func TestCurrentUser_NotFound_OrInactive(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := uuid.New()
	st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)

	_, err := svc.CurrentUser(context.Background(), id)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.IsActive = false
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	_, err = svc.CurrentUser(context.Background(), user.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}
