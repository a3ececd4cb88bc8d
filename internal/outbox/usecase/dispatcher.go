package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/allisson/classhub/internal/events"
	"github.com/allisson/classhub/internal/metrics"
	"github.com/allisson/classhub/internal/outbox/domain"
	"github.com/allisson/classhub/internal/tenant"
)

// Config holds dispatcher configuration.
type Config struct {
	// Interval is how often DispatchPendingEvents runs.
	Interval time.Duration
	// MaxAttempts bounds automatic redelivery of failed envelopes. Envelopes
	// that reach it stay failed and require manual requeueing.
	MaxAttempts int
}

// Dispatcher drains the outbox on a schedule: it iterates all tenants,
// claims envelopes one at a time per tenant in creation order, and routes
// them through the event bus.
//
// Multiple dispatcher instances may run concurrently; cross-process safety
// comes exclusively from the repository's atomic claim. The in-process
// reentrancy guard only suppresses overlapping ticks within one instance.
type Dispatcher struct {
	config     Config
	tenants    tenant.Runner
	outboxRepo EnvelopeRepository
	registry   *events.Registry
	bus        events.Bus
	metrics    metrics.OutboxMetrics
	logger     *slog.Logger

	// running guards against overlapping ticks in this process only.
	running atomic.Bool
}

// NewDispatcher creates a new Dispatcher. metrics may be nil.
func NewDispatcher(
	config Config,
	tenants tenant.Runner,
	outboxRepo EnvelopeRepository,
	registry *events.Registry,
	bus events.Bus,
	outboxMetrics metrics.OutboxMetrics,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:     config,
		tenants:    tenants,
		outboxRepo: outboxRepo,
		registry:   registry,
		bus:        bus,
		metrics:    outboxMetrics,
		logger:     logger,
	}
}

// Start runs the dispatch loop until the context is canceled.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.logger != nil {
		d.logger.Info("starting outbox dispatcher",
			slog.Duration("interval", d.config.Interval),
			slog.Int("max_attempts", d.config.MaxAttempts),
		)
	}

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if d.logger != nil {
				d.logger.Info("stopping outbox dispatcher")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := d.DispatchPendingEvents(ctx); err != nil {
				if d.logger != nil {
					d.logger.Error("failed to dispatch pending events", slog.Any("error", err))
				}
			}
		}
	}
}

// DispatchPendingEvents runs one dispatch tick: every tenant is drained to
// completion, sequentially, in enumeration order. A tick that fires while a
// previous one is still running in this process is a no-op; a deep backlog
// can make one tick outlast the scheduling interval.
func (d *Dispatcher) DispatchPendingEvents(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		if d.logger != nil {
			d.logger.Debug("dispatch tick skipped, previous run still in progress")
		}
		return nil
	}
	defer d.running.Store(false)

	return d.tenants.ForEachTenant(ctx, func(ctx context.Context, t tenant.Tenant) error {
		d.drainTenant(ctx, t)
		return nil
	})
}

// drainTenant claims and processes envelopes for one tenant until the
// claimable pool is empty. Repository errors end this tenant's drain but
// never propagate, so one tenant's trouble cannot block the others.
func (d *Dispatcher) drainTenant(ctx context.Context, t tenant.Tenant) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		envelope, err := d.outboxRepo.ClaimNext(ctx)
		if err != nil {
			if d.logger != nil {
				d.logger.Error("failed to claim outbox envelope",
					slog.String("tenant_id", t.ID.String()),
					slog.Any("error", err),
				)
			}
			return
		}
		if envelope == nil {
			return
		}

		d.processEnvelope(ctx, envelope, t)
	}
}

// processEnvelope routes one claimed envelope through the bus and records
// the outcome. Every failure category is caught here and converted into a
// failed mark; nothing propagates to abort the tick.
func (d *Dispatcher) processEnvelope(ctx context.Context, envelope *domain.Envelope, t tenant.Tenant) {
	start := time.Now()

	// Defense in depth: a claimed envelope that belongs to another tenant
	// means the scoping mechanism is broken. That is a configuration defect,
	// not a transient error, so the envelope is failed without materializing
	// or publishing anything.
	if envelope.TenantID != t.ID {
		msg := fmt.Sprintf("tenant scoping violation: envelope belongs to tenant %s but was claimed under tenant %s",
			envelope.TenantID, t.ID)
		d.fail(ctx, envelope, msg, "tenant_mismatch")
		return
	}

	event, err := d.registry.Materialize(envelope.EventType, envelope.Payload)
	if err != nil {
		d.fail(ctx, envelope, err.Error(), "failed")
		return
	}

	if err := d.bus.Publish(ctx, event); err != nil {
		d.fail(ctx, envelope, err.Error(), "failed")
		return
	}

	if err := d.outboxRepo.MarkPublished(ctx, envelope.ID); err != nil {
		if d.logger != nil {
			d.logger.Error("failed to mark envelope published",
				slog.String("envelope_id", envelope.ID.String()),
				slog.Any("error", err),
			)
		}
		return
	}

	if d.metrics != nil {
		d.metrics.RecordDispatch(ctx, envelope.EventType, "published")
		d.metrics.RecordProcessingDuration(ctx, envelope.EventType, time.Since(start))
	}

	if d.logger != nil {
		d.logger.Info("outbox envelope published",
			slog.String("envelope_id", envelope.ID.String()),
			slog.String("event_type", envelope.EventType),
			slog.String("tenant_id", t.ID.String()),
		)
	}
}

// fail marks the envelope failed with an incremented attempt count.
func (d *Dispatcher) fail(ctx context.Context, envelope *domain.Envelope, msg, metricStatus string) {
	attempts := envelope.AttemptCount + 1

	if d.logger != nil {
		d.logger.Error("failed to process outbox envelope",
			slog.String("envelope_id", envelope.ID.String()),
			slog.String("event_type", envelope.EventType),
			slog.Int("attempt_count", attempts),
			slog.String("error", msg),
		)
	}

	if err := d.outboxRepo.MarkFailed(ctx, envelope.ID, msg, attempts); err != nil {
		if d.logger != nil {
			d.logger.Error("failed to mark envelope failed",
				slog.String("envelope_id", envelope.ID.String()),
				slog.Any("error", err),
			)
		}
		return
	}

	if d.metrics != nil {
		d.metrics.RecordDispatch(ctx, envelope.EventType, metricStatus)
	}
}
