package tenant

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/database"
	apperrors "github.com/allisson/classhub/internal/errors"
)

// Runner executes units of work scoped to a tenant. It is the only component
// that widens or narrows tenant scope; everything else inherits the scope
// from the context it receives.
type Runner interface {
	// RunAs executes fn with the context scoped to the given tenant.
	RunAs(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) error

	// ForEachTenant executes fn once per active tenant, sequentially, with the
	// context scoped to that tenant. Enumeration order is creation order.
	ForEachTenant(ctx context.Context, fn func(ctx context.Context, t Tenant) error) error

	// ListActive returns all active tenants in creation order.
	ListActive(ctx context.Context) ([]Tenant, error)
}

// SQLRunner implements Runner backed by the tenants table.
type SQLRunner struct {
	db *sql.DB
}

// NewSQLRunner creates a new SQLRunner.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

// RunAs executes fn with the context scoped to the given tenant.
func (r *SQLRunner) RunAs(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) error {
	if tenantID == uuid.Nil {
		return apperrors.ErrTenantNotScoped
	}
	return fn(NewContext(ctx, tenantID))
}

// ForEachTenant executes fn once per active tenant, sequentially.
func (r *SQLRunner) ForEachTenant(ctx context.Context, fn func(ctx context.Context, t Tenant) error) error {
	tenants, err := r.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, t := range tenants {
		if err := fn(NewContext(ctx, t.ID), t); err != nil {
			return err
		}
	}

	return nil
}

// ListActive returns all active tenants in creation order.
func (r *SQLRunner) ListActive(ctx context.Context) ([]Tenant, error) {
	querier := database.GetTx(ctx, r.db)

	// No bind parameters, so the query is valid for both drivers.
	query := `SELECT id, name, subdomain, active FROM tenants WHERE active = true ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var tenants []Tenant
	for rows.Next() {
		var t Tenant

		if err := rows.Scan(&t.ID, &t.Name, &t.Subdomain, &t.Active); err != nil {
			return nil, err
		}

		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tenants, nil
}
