package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	s, _ := newTestServer(t)

	req := postJSON(t, "/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersecret",
		Name:     "Alice",
	})
	w := httptest.NewRecorder()
	s.authHandler.Register(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, "recruiter", resp.User.Role) // defaulted
	assert.NotEmpty(t, resp.Token)

	// The issued token validates and carries the user's id.
	claims, err := s.jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	// The password hash never leaks into the response.
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, _ := newTestServer(t)

	payload := RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersecret",
		Name:     "Alice",
	}

	w := httptest.NewRecorder()
	s.authHandler.Register(w, postJSON(t, "/auth/register", payload))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	s.authHandler.Register(w, postJSON(t, "/auth/register", payload))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")
}

func TestRegister_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Password: "supersecret", Name: "A"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "supersecret", Name: "A"}},
		{"short password", RegisterRequest{Email: "a@example.com", Password: "short", Name: "A"}},
		{"missing name", RegisterRequest{Email: "a@example.com", Password: "supersecret"}},
		{"bad role", RegisterRequest{Email: "a@example.com", Password: "supersecret", Name: "A", Role: "root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.authHandler.Register(w, postJSON(t, "/auth/register", tt.req))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "validation error")
		})
	}
}

func TestLogin(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.authHandler.Register(w, postJSON(t, "/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersecret",
		Name:     "Alice",
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("correct credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.authHandler.Login(w, postJSON(t, "/auth/login", LoginRequest{
			Email:    "alice@example.com",
			Password: "supersecret",
		}))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.authHandler.Login(w, postJSON(t, "/auth/login", LoginRequest{
			Email:    "alice@example.com",
			Password: "wrongpassword",
		}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.authHandler.Login(w, postJSON(t, "/auth/login", LoginRequest{
			Email:    "nobody@example.com",
			Password: "supersecret",
		}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid email or password")
	})
}

func TestUpdatePassword(t *testing.T) {
	s, _ := newTestServer(t)

	user, err := s.userService.Register(context.Background(), &RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersecret",
		Name:     "Alice",
	})
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		req := postJSON(t, "/auth/password", UpdatePasswordRequest{
			CurrentPassword: "wrongpassword",
			NewPassword:     "newsupersecret",
		})
		w := httptest.NewRecorder()
		s.authHandler.UpdatePasswordWithUserID(w, req, user.ID)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		req := postJSON(t, "/auth/password", UpdatePasswordRequest{
			CurrentPassword: "supersecret",
			NewPassword:     "newsupersecret",
		})
		w := httptest.NewRecorder()
		s.authHandler.UpdatePasswordWithUserID(w, req, user.ID)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		// The old password no longer works.
		_, err := s.userService.Login(context.Background(), &LoginRequest{
			Email:    "alice@example.com",
			Password: "supersecret",
		})
		assert.Error(t, err)

		// The new one does.
		_, err = s.userService.Login(context.Background(), &LoginRequest{
			Email:    "alice@example.com",
			Password: "newsupersecret",
		})
		assert.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := postJSON(t, "/auth/password", UpdatePasswordRequest{
			CurrentPassword: "whatever1",
			NewPassword:     "newsupersecret",
		})
		w := httptest.NewRecorder()
		s.authHandler.UpdatePasswordWithUserID(w, req, uuid.New())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
