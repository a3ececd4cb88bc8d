// Package usecase implements the group business logic and orchestrates group domain operations.
package usecase

import (
	"context"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/database"
	apperrors "github.com/allisson/classhub/internal/errors"
	"github.com/allisson/classhub/internal/events"
	"github.com/allisson/classhub/internal/group/domain"
	outboxUsecase "github.com/allisson/classhub/internal/outbox/usecase"
	"github.com/allisson/classhub/internal/tenant"
	appValidation "github.com/allisson/classhub/internal/validation"
)

// CreateGroupInput contains the input data for group creation
type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UseCase defines the interface for group business logic operations
type UseCase interface {
	CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Group, error)
	GetGroupByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
}

// GroupRepository interface defines group repository operations
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
}

// GroupUseCase handles group-related business logic
type GroupUseCase struct {
	txManager database.TxManager
	groupRepo GroupRepository
	publisher outboxUsecase.Publisher
}

// NewGroupUseCase creates a new GroupUseCase
func NewGroupUseCase(
	txManager database.TxManager,
	groupRepo GroupRepository,
	publisher outboxUsecase.Publisher,
) *GroupUseCase {
	return &GroupUseCase{
		txManager: txManager,
		groupRepo: groupRepo,
		publisher: publisher,
	}
}

// validateCreateGroupInput validates the creation input using jellydator/validation
func (uc *GroupUseCase) validateCreateGroupInput(input CreateGroupInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Description,
			validation.Length(0, 2000).Error("description must be at most 2000 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateGroup creates a new group and records a group.created event in the
// same transaction, so the group and its event commit atomically.
func (uc *GroupUseCase) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Group, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := uc.validateCreateGroupInput(input); err != nil {
		return nil, err
	}

	group := &domain.Group{
		ID:          uuid.Must(uuid.NewV7()),
		TenantID:    tenantID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.groupRepo.Create(ctx, group); err != nil {
			return err
		}

		event := &events.GroupCreated{
			GroupID:     group.ID,
			TenantID:    tenantID,
			Name:        group.Name,
			Description: group.Description,
		}

		if err := uc.publisher.Publish(ctx, event); err != nil {
			return apperrors.Wrap(err, "failed to publish group created event")
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return group, nil
}

// GetGroupByID retrieves a group by ID
func (uc *GroupUseCase) GetGroupByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	return uc.groupRepo.GetByID(ctx, id)
}

// AddMember adds a user to a group and records a group.member_added event in
// the same transaction.
func (uc *GroupUseCase) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.groupRepo.AddMember(ctx, groupID, userID); err != nil {
			return err
		}

		event := &events.GroupMemberAdded{
			GroupID:  groupID,
			UserID:   userID,
			TenantID: tenantID,
		}

		if err := uc.publisher.Publish(ctx, event); err != nil {
			return apperrors.Wrap(err, "failed to publish group member added event")
		}

		return nil
	})
}
