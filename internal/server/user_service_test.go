package server

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterHashesPassword(t *testing.T) {
	s, store := newTestServer(t)

	user, err := s.userService.Register(context.Background(), &RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersecret",
		Name:     "Alice",
	})
	require.NoError(t, err)

	stored, err := store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	s, _ := newTestServer(t)

	req := &RegisterRequest{Email: "alice@example.com", Password: "supersecret", Name: "Alice"}

	_, err := s.userService.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = s.userService.Register(context.Background(), req)
	var dup *ErrEmailAlreadyExists
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "alice@example.com", dup.Email)
}

func TestUserService_LoginErrors(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.userService.Register(context.Background(), &RegisterRequest{
		Email: "alice@example.com", Password: "supersecret", Name: "Alice",
	})
	require.NoError(t, err)

	var invalid *ErrInvalidCredentials

	t.Run("unknown email", func(t *testing.T) {
		_, err := s.userService.Login(context.Background(), &LoginRequest{
			Email: "nobody@example.com", Password: "supersecret",
		})
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.userService.Login(context.Background(), &LoginRequest{
			Email: "alice@example.com", Password: "wrongpassword",
		})
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestUserService_UpdatePasswordErrors(t *testing.T) {
	s, _ := newTestServer(t)

	user, err := s.userService.Register(context.Background(), &RegisterRequest{
		Email: "alice@example.com", Password: "supersecret", Name: "Alice",
	})
	require.NoError(t, err)

	t.Run("unknown user", func(t *testing.T) {
		err := s.userService.UpdatePassword(context.Background(), uuid.New(), "supersecret", "newsupersecret")
		var notFound *ErrUserNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("wrong current password", func(t *testing.T) {
		err := s.userService.UpdatePassword(context.Background(), user.ID, "wrongpassword", "newsupersecret")
		var mismatch *ErrPasswordMismatch
		assert.ErrorAs(t, err, &mismatch)
	})
}
