// Package usecase implements the outbox publisher and dispatcher that carry
// domain events from business transactions to the in-process event bus.
package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/allisson/classhub/internal/errors"
	"github.com/allisson/classhub/internal/events"
	"github.com/allisson/classhub/internal/outbox/domain"
	"github.com/allisson/classhub/internal/tenant"
)

// EnvelopeRepository defines the outbox envelope repository operations.
type EnvelopeRepository interface {
	Create(ctx context.Context, envelope *domain.Envelope) error
	ClaimNext(ctx context.Context) (*domain.Envelope, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string, attemptCount int) error
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Envelope, error)
	Requeue(ctx context.Context, id uuid.UUID) error
}

// Publisher records a domain event for delivery. Which implementation a
// component receives is decided at composition time in the DI container;
// business code never inspects the environment to pick one.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// TransactionalPublisher persists events as pending outbox envelopes.
//
// Caller contract: Publish must be invoked inside the same TxManager.WithTx
// unit of work as the business mutation the event describes. The repository
// joins the ambient transaction, so the mutation and the envelope commit or
// roll back together. Calling Publish outside a transaction silently breaks
// that atomicity; nothing in the type system prevents it.
type TransactionalPublisher struct {
	registry   *events.Registry
	outboxRepo EnvelopeRepository
	logger     *slog.Logger
}

// NewTransactionalPublisher creates a new TransactionalPublisher.
func NewTransactionalPublisher(
	registry *events.Registry,
	outboxRepo EnvelopeRepository,
	logger *slog.Logger,
) *TransactionalPublisher {
	return &TransactionalPublisher{
		registry:   registry,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Publish encodes the event and inserts a pending envelope scoped to the
// tenant in context.
func (p *TransactionalPublisher) Publish(ctx context.Context, event events.Event) error {
	tenantID, err := tenant.MustFromContext(ctx)
	if err != nil {
		return err
	}

	eventType, payload, err := p.registry.Encode(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode event")
	}

	envelope := &domain.Envelope{
		ID:           uuid.Must(uuid.NewV7()),
		EventType:    eventType,
		Payload:      payload,
		Status:       domain.StatusPending,
		AttemptCount: 0,
		TenantID:     tenantID,
	}

	if err := p.outboxRepo.Create(ctx, envelope); err != nil {
		return apperrors.Wrap(err, "failed to create outbox envelope")
	}

	if p.logger != nil {
		p.logger.Debug("outbox envelope created",
			slog.String("envelope_id", envelope.ID.String()),
			slog.String("event_type", eventType),
		)
	}

	return nil
}

// ImmediatePublisher bypasses the outbox and delivers events synchronously
// to the bus. Intended for deterministic test composition where polling
// delays are unwanted; it provides none of the outbox durability guarantees.
type ImmediatePublisher struct {
	bus events.Bus
}

// NewImmediatePublisher creates a new ImmediatePublisher.
func NewImmediatePublisher(bus events.Bus) *ImmediatePublisher {
	return &ImmediatePublisher{bus: bus}
}

// Publish delivers the event directly to the bus.
func (p *ImmediatePublisher) Publish(ctx context.Context, event events.Event) error {
	return p.bus.Publish(ctx, event)
}
