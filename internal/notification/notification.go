// Package notification hosts the bus subscribers that react to published
// domain events: an email notifier and an event statistics recorder.
package notification

import (
	"context"
	"log/slog"

	"github.com/allisson/classhub/internal/events"
	"github.com/allisson/classhub/internal/metrics"
)

// EmailNotifier sends email notifications for user-facing events. Delivery is
// simulated by structured log output; swapping in a real mail provider only
// needs a new implementation of the send step.
type EmailNotifier struct {
	logger *slog.Logger
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{logger: logger}
}

// Handle dispatches the event to the matching notification template. Events
// travel the bus as pointers, both from producers and from the registry.
// Events without a template are ignored.
func (n *EmailNotifier) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.UserRegistered:
		n.send(ctx, e.Email, "Welcome to Classhub",
			slog.String("user_id", e.UserID.String()),
			slog.String("tenant_id", e.TenantID.String()),
		)
	case *events.GroupMemberAdded:
		n.send(ctx, "", "You were added to a group",
			slog.String("group_id", e.GroupID.String()),
			slog.String("user_id", e.UserID.String()),
			slog.String("tenant_id", e.TenantID.String()),
		)
	case *events.AnnouncementPublished:
		n.send(ctx, "", "New announcement: "+e.Title,
			slog.String("announcement_id", e.AnnouncementID.String()),
			slog.String("tenant_id", e.TenantID.String()),
		)
	case *events.InvoicePaid:
		n.send(ctx, "", "Payment received",
			slog.String("invoice_id", e.InvoiceID.String()),
			slog.String("tenant_id", e.TenantID.String()),
		)
	}
	return nil
}

func (n *EmailNotifier) send(ctx context.Context, recipient, subject string, attrs ...any) {
	if n.logger != nil {
		args := append([]any{
			slog.String("recipient", recipient),
			slog.String("subject", subject),
		}, attrs...)
		n.logger.InfoContext(ctx, "email notification sent", args...)
	}
}

// StatsRecorder counts every published event by type. It subscribes to all
// known event types so the per-type counters stay complete as new events are
// registered.
type StatsRecorder struct {
	metrics metrics.BusinessMetrics
}

// NewStatsRecorder creates a new StatsRecorder.
func NewStatsRecorder(businessMetrics metrics.BusinessMetrics) *StatsRecorder {
	return &StatsRecorder{metrics: businessMetrics}
}

// Handle records the event in the business metrics.
func (s *StatsRecorder) Handle(ctx context.Context, event events.Event) error {
	if s.metrics != nil {
		s.metrics.RecordOperation(ctx, "events", event.EventType(), "published")
	}
	return nil
}

// RegisterHandlers subscribes the notifier and stats recorder to the bus. The
// stats recorder listens on every type the registry knows; the notifier only
// on the types it has templates for.
func RegisterHandlers(bus events.Bus, registry *events.Registry, notifier *EmailNotifier, stats *StatsRecorder) {
	for _, eventType := range registry.Types() {
		bus.Subscribe(eventType, stats.Handle)
	}
	for _, eventType := range []string{
		events.TypeUserRegistered,
		events.TypeGroupMemberAdded,
		events.TypeAnnouncementPublished,
		events.TypeInvoicePaid,
	} {
		bus.Subscribe(eventType, notifier.Handle)
	}
}
