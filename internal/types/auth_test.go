package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request CreateUserRequest
		wantErr bool
	}{
		{
			name:    "valid request",
			request: CreateUserRequest{Email: "qa@example.com", Password: "correct-horse-battery"},
			wantErr: false,
		},
		{
			name:    "missing email",
			request: CreateUserRequest{Password: "correct-horse-battery"},
			wantErr: true,
		},
		{
			name:    "malformed email",
			request: CreateUserRequest{Email: "not-an-email", Password: "correct-horse-battery"},
			wantErr: true,
		},
		{
			name:    "short password",
			request: CreateUserRequest{Email: "qa@example.com", Password: "short"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	valid := LoginRequest{Email: "qa@example.com", Password: "anything"}
	require.NoError(t, valid.Validate())

	missing := LoginRequest{Email: "qa@example.com"}
	assert.Error(t, missing.Validate())
}
