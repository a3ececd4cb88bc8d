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

// MySQLGroupRepository handles group persistence for MySQL.
type MySQLGroupRepository struct {
	db *sql.DB
}

// NewMySQLGroupRepository creates a new MySQLGroupRepository.
func NewMySQLGroupRepository(db *sql.DB) *MySQLGroupRepository {
	return &MySQLGroupRepository{
		db: db,
	}
}

// Create inserts a new group for the tenant in context.
func (r *MySQLGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	// The table name needs quoting: GROUPS is reserved in MySQL 8.
	query := "INSERT INTO `groups` (id, tenant_id, name, description, created_at, updated_at) " +
		"VALUES (?, ?, ?, ?, NOW(6), NOW(6))"

	_, err = querier.ExecContext(ctx, query, group.ID, tenantID, group.Name, group.Description)
	if err != nil {
		if isDuplicateEntry(err) {
			return domain.ErrGroupAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create group")
	}
	return nil
}

// GetByID retrieves a group by ID within the tenant in context.
func (r *MySQLGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var group domain.Group
	querier := database.GetTx(ctx, r.db)

	query := "SELECT id, tenant_id, name, description, created_at, updated_at " +
		"FROM `groups` WHERE id = ? AND tenant_id = ?"

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
func (r *MySQLGroupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO group_members (group_id, user_id, tenant_id, created_at)
			  VALUES (?, ?, ?, NOW(6))`

	_, err = querier.ExecContext(ctx, query, groupID, userID, tenantID)
	if err != nil {
		if isDuplicateEntry(err) {
			return domain.ErrMemberAlreadyExists
		}
		return apperrors.Wrap(err, "failed to add group member")
	}
	return nil
}

// isDuplicateEntry checks if the error is a MySQL duplicate entry violation
func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
