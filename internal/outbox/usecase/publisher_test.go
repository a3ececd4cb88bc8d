package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/classhub/internal/errors"
	"github.com/allisson/classhub/internal/events"
	"github.com/allisson/classhub/internal/outbox/domain"
	"github.com/allisson/classhub/internal/outbox/usecase/mocks"
	"github.com/allisson/classhub/internal/tenant"
)

func TestTransactionalPublisher_Publish(t *testing.T) {
	registry := events.NewRegistry()
	tenantID := uuid.Must(uuid.NewV7())
	ctx := tenant.NewContext(context.Background(), tenantID)

	t.Run("creates pending envelope scoped to tenant", func(t *testing.T) {
		repo := new(mocks.MockEnvelopeRepository)
		publisher := NewTransactionalPublisher(registry, repo, slog.Default())

		var created *domain.Envelope
		repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Envelope")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*domain.Envelope)
			}).
			Return(nil).
			Once()

		event := &events.UserRegistered{
			UserID:   uuid.Must(uuid.NewV7()),
			TenantID: tenantID,
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
		}

		err := publisher.Publish(ctx, event)
		require.NoError(t, err)
		repo.AssertExpectations(t)

		require.NotNil(t, created)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, events.TypeUserRegistered, created.EventType)
		assert.Equal(t, domain.StatusPending, created.Status)
		assert.Zero(t, created.AttemptCount)
		assert.Equal(t, tenantID, created.TenantID)
		assert.JSONEq(t,
			`{"user_id":"`+event.UserID.String()+`","tenant_id":"`+tenantID.String()+`","name":"Ada Lovelace","email":"ada@example.com"}`,
			string(created.Payload),
		)
	})

	t.Run("fails without tenant scope", func(t *testing.T) {
		repo := new(mocks.MockEnvelopeRepository)
		publisher := NewTransactionalPublisher(registry, repo, nil)

		err := publisher.Publish(context.Background(), &events.UserRegistered{})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrTenantNotScoped)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := new(mocks.MockEnvelopeRepository)
		publisher := NewTransactionalPublisher(registry, repo, nil)

		repo.On("Create", mock.Anything, mock.Anything).
			Return(errors.New("connection lost")).
			Once()

		err := publisher.Publish(ctx, &events.GroupCreated{GroupID: uuid.Must(uuid.NewV7())})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create outbox envelope")
		repo.AssertExpectations(t)
	})
}

func TestImmediatePublisher_Publish(t *testing.T) {
	bus := events.NewInMemoryBus(nil)
	publisher := NewImmediatePublisher(bus)

	var received events.Event
	bus.Subscribe(events.TypeGroupCreated, func(ctx context.Context, event events.Event) error {
		received = event
		return nil
	})

	event := &events.GroupCreated{GroupID: uuid.Must(uuid.NewV7()), Name: "algebra"}
	err := publisher.Publish(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, event, received)
}

func TestImmediatePublisher_PublishHandlerError(t *testing.T) {
	bus := events.NewInMemoryBus(nil)
	publisher := NewImmediatePublisher(bus)

	handlerErr := errors.New("handler failed")
	bus.Subscribe(events.TypeInvoicePaid, func(ctx context.Context, event events.Event) error {
		return handlerErr
	})

	err := publisher.Publish(context.Background(), &events.InvoicePaid{})
	assert.ErrorIs(t, err, handlerErr)
}
