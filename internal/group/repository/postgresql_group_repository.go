// Package repository provides data persistence implementations for group entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/database"
	"github.com/allisson/classhub/internal/group/domain"
	"github.com/allisson/classhub/internal/tenant"

	apperrors "github.com/allisson/classhub/internal/errors"
)

// PostgreSQLGroupRepository handles group persistence for PostgreSQL.
type PostgreSQLGroupRepository struct {
	db *sql.DB
}

// NewPostgreSQLGroupRepository creates a new PostgreSQLGroupRepository.
func NewPostgreSQLGroupRepository(db *sql.DB) *PostgreSQLGroupRepository {
	return &PostgreSQLGroupRepository{
		db: db,
	}
}

// Create inserts a new group for the tenant in context.
func (r *PostgreSQLGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO groups (id, tenant_id, name, description, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())`

	_, err = querier.ExecContext(ctx, query, group.ID, tenantID, group.Name, group.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrGroupAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create group")
	}
	return nil
}

// GetByID retrieves a group by ID within the tenant in context.
func (r *PostgreSQLGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var group domain.Group
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, name, description, created_at, updated_at
			  FROM groups WHERE id = $1 AND tenant_id = $2`

	err = querier.QueryRowContext(ctx, query, id, tenantID).Scan(
		&group.ID, &group.TenantID, &group.Name, &group.Description, &group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get group by id")
	}

	return &group, nil
}

// AddMember adds a user to a group within the tenant in context.
func (r *PostgreSQLGroupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO group_members (group_id, user_id, tenant_id, created_at)
			  VALUES ($1, $2, $3, NOW())`

	_, err = querier.ExecContext(ctx, query, groupID, userID, tenantID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrMemberAlreadyExists
		}
		return apperrors.Wrap(err, "failed to add group member")
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
