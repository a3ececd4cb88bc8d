package repository

import (
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/outbox/domain"
)

// scanEnvelope reads one envelope row defensively. Every column has a typed
// fallback so a malformed or partially written row produces a usable
// envelope instead of crashing the dispatcher. Column order:
// id, event_type, payload, status, attempt_count, published_at, last_error,
// created_at, tenant_id.
func scanEnvelope(scan func(dest ...any) error, logger *slog.Logger) (*domain.Envelope, error) {
	var (
		id           uuid.NullUUID
		eventType    sql.NullString
		payload      []byte
		status       sql.NullString
		attemptCount sql.NullInt64
		publishedAt  sql.NullTime
		lastError    sql.NullString
		createdAt    sql.NullTime
		tenantID     uuid.NullUUID
	)

	if err := scan(&id, &eventType, &payload, &status, &attemptCount,
		&publishedAt, &lastError, &createdAt, &tenantID); err != nil {
		return nil, err
	}

	envelope := &domain.Envelope{
		ID:           id.UUID,
		EventType:    eventType.String,
		Status:       domain.StatusPending,
		AttemptCount: int(attemptCount.Int64),
		CreatedAt:    createdAt.Time,
		TenantID:     tenantID.UUID,
	}

	if status.Valid {
		switch domain.Status(status.String) {
		case domain.StatusPending, domain.StatusProcessing, domain.StatusPublished, domain.StatusFailed:
			envelope.Status = domain.Status(status.String)
		}
	}

	if publishedAt.Valid {
		t := publishedAt.Time
		envelope.PublishedAt = &t
	}

	if lastError.Valid {
		s := lastError.String
		envelope.LastError = &s
	}

	normalized, ok := domain.NormalizePayload(payload)
	if !ok && logger != nil {
		logger.Warn("outbox envelope payload is malformed, using empty object",
			slog.String("envelope_id", envelope.ID.String()),
			slog.String("event_type", envelope.EventType),
		)
	}
	envelope.Payload = normalized

	return envelope, nil
}
