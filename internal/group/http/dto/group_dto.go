// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/classhub/internal/group/domain"
	"github.com/allisson/classhub/internal/group/usecase"
)

// CreateGroupRequest contains the parameters for creating a group.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Validate checks if the create group request is valid.
func (r *CreateGroupRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
	)
}

// ToCreateGroupInput converts the request to a use case input.
func ToCreateGroupInput(r CreateGroupRequest) usecase.CreateGroupInput {
	return usecase.CreateGroupInput{
		Name:        r.Name,
		Description: r.Description,
	}
}

// AddMemberRequest contains the parameters for adding a user to a group.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Validate checks if the add member request is valid.
func (r *AddMemberRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, validation.Length(36, 36)),
	)
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToGroupResponse converts a domain group to an API response.
func ToGroupResponse(group *domain.Group) GroupResponse {
	return GroupResponse{
		ID:          group.ID.String(),
		Name:        group.Name,
		Description: group.Description,
		CreatedAt:   group.CreatedAt,
		UpdatedAt:   group.UpdatedAt,
	}
}
