// Package types provides type definitions for structured data used throughout the test writer system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// User is the account profile returned by the API. The password hash never
// leaves the server package.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries the authenticated user and their bearer token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// CreateUserRequest registers a new API account.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Validate checks the request against its field rules.
func (r *CreateUserRequest) Validate() error {
	return validate.Struct(r)
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the request against its field rules.
func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}

// UpdatePasswordRequest rotates an account password. The current password
// must be presented again even though the request is already authenticated.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// Validate checks the request against its field rules.
func (r *UpdatePasswordRequest) Validate() error {
	return validate.Struct(r)
}
