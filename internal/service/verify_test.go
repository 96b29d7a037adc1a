package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/auth-service/internal/storage"
	"github.com/pribylovaa/auth-service/mocks"
)

func TestVerifyEmail_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	codes := mocks.NewMockVerificationCodes(ctrl)
	svc.SetVerificationCodes(codes)

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.IsVerified = false

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	codes.EXPECT().Get(gomock.Any(), user.ID).Return("a1b2c3", true, nil)
	st.EXPECT().MarkVerified(gomock.Any(), user.ID).Return(nil)
	codes.EXPECT().Delete(gomock.Any(), user.ID).Return(nil)

	require.NoError(t, svc.VerifyEmail(context.Background(), user.ID, "a1b2c3"))
}

func TestVerifyEmail_WrongCode(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	codes := mocks.NewMockVerificationCodes(ctrl)
	svc.SetVerificationCodes(codes)

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.IsVerified = false

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	codes.EXPECT().Get(gomock.Any(), user.ID).Return("a1b2c3", true, nil)

	err := svc.VerifyEmail(context.Background(), user.ID, "zzzzzz")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmail_CodeExpiredOrMissing(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	codes := mocks.NewMockVerificationCodes(ctrl)
	svc.SetVerificationCodes(codes)

	user := verifiedUser(t, "user@example.com", "Abcdef1!")
	user.IsVerified = false

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	codes.EXPECT().Get(gomock.Any(), user.ID).Return("", false, nil)

	err := svc.VerifyEmail(context.Background(), user.ID, "a1b2c3")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmail_AlreadyVerified(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := verifiedUser(t, "user@example.com", "Abcdef1!")

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	err := svc.VerifyEmail(context.Background(), user.ID, "a1b2c3")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := uuid.New()
	st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)

	err := svc.VerifyEmail(context.Background(), id, "a1b2c3")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}
