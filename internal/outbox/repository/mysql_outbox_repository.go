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

// MySQLOutboxRepository handles outbox envelope persistence for MySQL.
type MySQLOutboxRepository struct {
	db          *sql.DB
	maxAttempts int
	logger      *slog.Logger
}

// NewMySQLOutboxRepository creates a new MySQLOutboxRepository.
// maxAttempts bounds how many times a failed envelope is claimed again.
func NewMySQLOutboxRepository(db *sql.DB, maxAttempts int, logger *slog.Logger) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{
		db:          db,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Create inserts a new pending envelope, joining the caller's transaction
// when one is carried in the context.
func (r *MySQLOutboxRepository) Create(ctx context.Context, envelope *domain.Envelope) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_envelopes (id, event_type, payload, status, attempt_count, published_at, last_error, created_at, tenant_id)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW(6), ?)`

	_, err := querier.ExecContext(ctx, query, envelope.ID, envelope.EventType, []byte(envelope.Payload),
		envelope.Status, envelope.AttemptCount, envelope.PublishedAt, envelope.LastError, envelope.TenantID)

	return err
}

// ClaimNext atomically selects the oldest claimable envelope for the tenant
// in context and moves it to processing. MySQL has no UPDATE ... RETURNING,
// so the claim runs in a short repository-managed transaction: the row is
// selected with FOR UPDATE SKIP LOCKED, updated, and committed before
// processing starts. Returns (nil, nil) when nothing is claimable.
func (r *MySQLOutboxRepository) ClaimNext(ctx context.Context) (*domain.Envelope, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, event_type, payload, status, attempt_count, published_at, last_error, created_at, tenant_id
			  FROM outbox_envelopes
			  WHERE tenant_id = ?
				AND (status = ? OR (status = ? AND attempt_count < ?))
			  ORDER BY created_at ASC
			  LIMIT 1
			  FOR UPDATE SKIP LOCKED`

	row := tx.QueryRowContext(ctx, query, tenantID, domain.StatusPending, domain.StatusFailed, r.maxAttempts)

	envelope, err := scanEnvelope(row.Scan, r.logger)
	if err != nil {
		_ = tx.Rollback()
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	update := `UPDATE outbox_envelopes SET status = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, domain.StatusProcessing, envelope.ID); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	envelope.Status = domain.StatusProcessing

	return envelope, nil
}

// MarkPublished sets the envelope to published. Calling it on an already
// published row is not an error.
func (r *MySQLOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_envelopes SET status = ?, published_at = NOW(6) WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, domain.StatusPublished, id)

	return err
}

// MarkFailed sets the envelope to failed with a truncated error message and
// the caller-supplied attempt count. Negative counts are coerced to zero.
func (r *MySQLOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string, attemptCount int) error {
	querier := database.GetTx(ctx, r.db)

	if attemptCount < 0 {
		attemptCount = 0
	}
	truncated := domain.TruncateError(errorMsg)

	query := `UPDATE outbox_envelopes SET status = ?, last_error = ?, attempt_count = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, domain.StatusFailed, truncated, attemptCount, id)

	return err
}

// ListByStatus returns envelopes with the given status for the tenant in
// context, newest first.
func (r *MySQLOutboxRepository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Envelope, error) {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, payload, status, attempt_count, published_at, last_error, created_at, tenant_id
			  FROM outbox_envelopes
			  WHERE tenant_id = ? AND status = ?
			  ORDER BY created_at DESC
			  LIMIT ?`

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
func (r *MySQLOutboxRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_envelopes
			  SET status = ?, attempt_count = 0, last_error = NULL
			  WHERE id = ? AND tenant_id = ? AND status = ?`

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
