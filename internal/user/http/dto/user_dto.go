// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/classhub/internal/user/domain"
	"github.com/allisson/classhub/internal/user/usecase"
)

// RegisterUserRequest contains the parameters for registering a new user.
type RegisterUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Validate checks if the register user request is valid.
func (r *RegisterUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ToRegisterUserInput converts the request to a use case input.
func ToRegisterUserInput(r RegisterUserRequest) usecase.RegisterUserInput {
	return usecase.RegisterUserInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
	}
}

// UserResponse represents a user in API responses. The password hash is never
// included.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToUserResponse converts a domain user to an API response.
func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
