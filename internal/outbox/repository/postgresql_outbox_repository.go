// Package repository provides data persistence implementations for outbox envelopes.
package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/database"
	apperrors "github.com/allisson/classhub/internal/errors"
	"github.com/allisson/classhub/internal/outbox/domain"
	"github.com/allisson/classhub/internal/tenant"
)

// PostgreSQLOutboxRepository handles outbox envelope persistence for PostgreSQL.
type PostgreSQLOutboxRepository struct {
	db          *sql.DB
	maxAttempts int
	logger      *slog.Logger
}

// NewPostgreSQLOutboxRepository creates a new PostgreSQLOutboxRepository.
// maxAttempts bounds how many times a failed envelope is claimed again.
func NewPostgreSQLOutboxRepository(db *sql.DB, maxAttempts int, logger *slog.Logger) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{
		db:          db,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Create inserts a new pending envelope. It joins the caller's transaction
// when one is carried in the context, which is what makes the envelope
// atomic with the business mutation it describes.
func (r *PostgreSQLOutboxRepository) Create(ctx context.Context, envelope *domain.Envelope) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_envelopes (id, event_type, payload, status, attempt_count, published_at, last_error, created_at, tenant_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)`

	_, err := querier.ExecContext(ctx, query, envelope.ID, envelope.EventType, []byte(envelope.Payload),
		envelope.Status, envelope.AttemptCount, envelope.PublishedAt, envelope.LastError, envelope.TenantID)

	return err
}

// ClaimNext atomically selects the oldest claimable envelope for the tenant
// in context and moves it to processing. Rows locked by a concurrent
// claimant are skipped, so no two callers ever receive the same envelope.
// Returns (nil, nil) when nothing is claimable.
//
// The claim runs directly against the connection pool, never inside an
// ambient transaction: the status change must commit before processing
// starts, and the single UPDATE with FOR UPDATE SKIP LOCKED in the subselect
// is the atomic step.
func (r *PostgreSQLOutboxRepository) ClaimNext(ctx context.Context) (*domain.Envelope, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `UPDATE outbox_envelopes
			  SET status = $1
			  WHERE id = (
				  SELECT id FROM outbox_envelopes
				  WHERE tenant_id = $2
					AND (status = $3 OR (status = $4 AND attempt_count < $5))
				  ORDER BY created_at ASC
				  LIMIT 1
				  FOR UPDATE SKIP LOCKED
			  )
			  RETURNING id, event_type, payload, status, attempt_count, published_at, last_error, created_at, tenant_id`

	row := r.db.QueryRowContext(ctx, query, domain.StatusProcessing, tenantID,
		domain.StatusPending, domain.StatusFailed, r.maxAttempts)

	envelope, err := scanEnvelope(row.Scan, r.logger)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return envelope, nil
}

// MarkPublished sets the envelope to published. Calling it on an already
// published row is not an error.
func (r *PostgreSQLOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_envelopes SET status = $1, published_at = NOW() WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, domain.StatusPublished, id)

	return err
}

// MarkFailed sets the envelope to failed with a truncated error message and
// the caller-supplied attempt count. Negative counts are coerced to zero.
func (r *PostgreSQLOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string, attemptCount int) error {
	querier := database.GetTx(ctx, r.db)

	if attemptCount < 0 {
		attemptCount = 0
	}
	truncated := domain.TruncateError(errorMsg)

	query := `UPDATE outbox_envelopes SET status = $1, last_error = $2, attempt_count = $3 WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, domain.StatusFailed, truncated, attemptCount, id)

	return err
}

// ListByStatus returns envelopes with the given status for the tenant in
// context, newest first.
func (r *PostgreSQLOutboxRepository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Envelope, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, payload, status, attempt_count, published_at, last_error, created_at, tenant_id
			  FROM outbox_envelopes
			  WHERE tenant_id = $1 AND status = $2
			  ORDER BY created_at DESC
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, tenantID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var envelopes []*domain.Envelope
	for rows.Next() {
		envelope, err := scanEnvelope(rows.Scan, r.logger)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, envelope)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return envelopes, nil
}

// Requeue returns a failed envelope to the claimable pool, resetting its
// attempt count. Returns ErrNotFound when the envelope does not exist, is
// not failed, or belongs to another tenant.
func (r *PostgreSQLOutboxRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_envelopes
			  SET status = $1, attempt_count = 0, last_error = NULL
			  WHERE id = $2 AND tenant_id = $3 AND status = $4`

	result, err := querier.ExecContext(ctx, query, domain.StatusPending, id, tenantID, domain.StatusFailed)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
