package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/database"
	"github.com/allisson/classhub/internal/tenant"
	"github.com/allisson/classhub/internal/user/domain"

	apperrors "github.com/allisson/classhub/internal/errors"
)

// MySQLUserRepository handles user persistence for MySQL.
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{
		db: db,
	}
}

// Create inserts a new user for the tenant in context.
func (r *MySQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, tenant_id, name, email, password, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, NOW(6), NOW(6))`

	_, err = querier.ExecContext(ctx, query, user.ID, tenantID, user.Name, user.Email, user.Password)
	if err != nil {
		// Check for unique constraint violation (duplicate email)
		if isMySQLDuplicateEntry(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by ID within the tenant in context.
func (r *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var user domain.User
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, name, email, password, created_at, updated_at
			  FROM users WHERE id = ? AND tenant_id = ?`

	err = querier.QueryRowContext(ctx, query, id, tenantID).Scan(
		&user.ID, &user.TenantID, &user.Name, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}

	return &user, nil
}

// GetByEmail retrieves a user by email within the tenant in context.
func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var user domain.User
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, name, email, password, created_at, updated_at
			  FROM users WHERE email = ? AND tenant_id = ?`

	err = querier.QueryRowContext(ctx, query, email, tenantID).Scan(
		&user.ID, &user.TenantID, &user.Name, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by email")
	}

	return &user, nil
}

// isMySQLDuplicateEntry checks if the error is a MySQL duplicate entry violation
func isMySQLDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
