// Package domain defines the core user domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/errors"
)

// User represents a user account within a tenant.
type User struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists in the tenant.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")
)
