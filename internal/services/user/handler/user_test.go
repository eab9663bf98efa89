package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/database/dbtest"
	sysutils "invoicing-system/internal/utils"
)

func newHandler(t *testing.T) (*UserHandler, *sysutils.TokenManager) {
	t.Helper()
	tokens := sysutils.NewTokenManager("test-secret", time.Hour)
	return NewUserHandler(dbtest.New(t), nil, tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	h, tokens := newHandler(t)

	registered, err := h.Register(context.Background(), RegisterInput{
		Username: "rina",
		Email:    "Rina@Example.com",
		Password: "rahasia123",
		FullName: "Rina Wati",
	})
	require.NoError(t, err)
	assert.Equal(t, "rina@example.com", registered.User.Email)
	assert.NotEqual(t, "rahasia123", registered.User.Password)

	userID, err := tokens.Verify(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, userID)

	for _, identity := range []string{"rina", "rina@example.com"} {
		loggedIn, err := h.Login(context.Background(), LoginInput{Username: identity, Password: "rahasia123"})
		require.NoError(t, err, identity)
		assert.Equal(t, registered.User.ID, loggedIn.User.ID)
		assert.NotNil(t, loggedIn.User.LastLogin)
	}

	user, err := h.GetUser(context.Background(), registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rina Wati", user.FullName)
}

func TestRegisterRejects(t *testing.T) {
	h, _ := newHandler(t)
	_, err := h.Register(context.Background(), RegisterInput{Username: "rina", Email: "rina@example.com", Password: "rahasia123"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   RegisterInput
		kind error
	}{
		{"missing fields", RegisterInput{Username: "x"}, apperror.ErrValidation},
		{"bad email", RegisterInput{Username: "x", Email: "nope", Password: "rahasia123"}, apperror.ErrValidation},
		{"short password", RegisterInput{Username: "x", Email: "x@example.com", Password: "short"}, apperror.ErrValidation},
		{"taken username", RegisterInput{Username: "rina", Email: "other@example.com", Password: "rahasia123"}, apperror.ErrConflict},
		{"taken email", RegisterInput{Username: "other", Email: "RINA@example.com", Password: "rahasia123"}, apperror.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h, _ := newHandler(t)
	_, err := h.Register(context.Background(), RegisterInput{Username: "rina", Email: "rina@example.com", Password: "rahasia123"})
	require.NoError(t, err)

	_, err = h.Login(context.Background(), LoginInput{Username: "rina", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = h.Login(context.Background(), LoginInput{Username: "nobody", Password: "rahasia123"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = h.Login(context.Background(), LoginInput{})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = h.GetUser(context.Background(), 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
