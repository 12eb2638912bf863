package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-matcher/internal/scoring"
	"github.com/jonathan/resume-matcher/internal/workflow"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "workflow not found",
			err:  &workflow.NotFoundError{Resource: "job description", ID: "JD-1"},
			want: http.StatusNotFound,
		},
		{
			name: "quota exceeded",
			err:  &workflow.QuotaExceededError{Limit: 100, Requested: 250},
			want: http.StatusBadRequest,
		},
		{
			name: "conflict",
			err:  &workflow.ConflictError{Resource: "workflow", ID: "WF-1"},
			want: http.StatusConflict,
		},
		{
			name: "unauthorized",
			err:  &workflow.UnauthorizedError{Action: "delete this workflow"},
			want: http.StatusForbidden,
		},
		{
			name: "batch scoring failure",
			err:  &workflow.BatchScoringError{WorkflowID: "WF-1", Err: errors.New("boom")},
			want: http.StatusBadGateway,
		},
		{
			name: "scoring transport failure",
			err:  &scoring.Error{Kind: scoring.KindTimeout, Msg: "request timed out"},
			want: http.StatusBadGateway,
		},
		{
			name: "wrapped workflow error still maps",
			err:  fmt.Errorf("starting batch: %w", &workflow.NotFoundError{Resource: "resume", ID: "x"}),
			want: http.StatusNotFound,
		},
		{
			name: "email already exists",
			err:  &ErrEmailAlreadyExists{Email: "a@example.com"},
			want: http.StatusConflict,
		},
		{
			name: "invalid credentials",
			err:  &ErrInvalidCredentials{},
			want: http.StatusUnauthorized,
		},
		{
			name: "password mismatch",
			err:  &ErrPasswordMismatch{},
			want: http.StatusUnauthorized,
		},
		{
			name: "user not found",
			err:  &ErrUserNotFound{UserID: uuid.New()},
			want: http.StatusNotFound,
		},
		{
			name: "validation",
			err:  &ErrValidation{Field: "email", Message: "required"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown error",
			err:  errors.New("something else"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
