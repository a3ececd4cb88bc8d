// Package domain defines the core group domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/errors"
)

// Group represents a study group within a tenant.
type Group struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Domain-specific errors for group operations.
var (
	// ErrGroupNotFound indicates the requested group does not exist.
	ErrGroupNotFound = errors.Wrap(errors.ErrNotFound, "group not found")

	// ErrGroupAlreadyExists indicates a group with the same name already exists in the tenant.
	ErrGroupAlreadyExists = errors.Wrap(errors.ErrConflict, "group already exists")

	// ErrMemberAlreadyExists indicates the user is already a member of the group.
	ErrMemberAlreadyExists = errors.Wrap(errors.ErrConflict, "user is already a member of the group")
)
