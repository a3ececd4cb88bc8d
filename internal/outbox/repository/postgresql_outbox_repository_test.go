package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/classhub/internal/database"
	apperrors "github.com/allisson/classhub/internal/errors"
	"github.com/allisson/classhub/internal/outbox/domain"
	"github.com/allisson/classhub/internal/tenant"
	"github.com/allisson/classhub/internal/testutil"
)

func newTestEnvelope(tenantID uuid.UUID, eventType string, payload string) *domain.Envelope {
	return &domain.Envelope{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		Payload:   json.RawMessage(payload),
		Status:    domain.StatusPending,
		TenantID:  tenantID,
	}
}

func TestNewPostgreSQLOutboxRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLOutboxRepository{}, repo)
}

func TestPostgreSQLOutboxRepository_CreateAndClaimNext(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "user.registered", `{"name":"Alice"}`)
	err := repo.Create(ctx, envelope)
	require.NoError(t, err)

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	assert.Equal(t, envelope.ID, claimed.ID)
	assert.Equal(t, "user.registered", claimed.EventType)
	assert.JSONEq(t, `{"name":"Alice"}`, string(claimed.Payload))
	assert.Equal(t, domain.StatusProcessing, claimed.Status)
	assert.Equal(t, 0, claimed.AttemptCount)
	assert.Nil(t, claimed.PublishedAt)
	assert.Nil(t, claimed.LastError)
	assert.Equal(t, tenantID, claimed.TenantID)
	assert.WithinDuration(t, time.Now().UTC(), claimed.CreatedAt, 5*time.Second)
}

func TestPostgreSQLOutboxRepository_ClaimNext_OldestFirst(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	first := newTestEnvelope(tenantID, "group.created", `{"name":"first"}`)
	require.NoError(t, repo.Create(ctx, first))

	time.Sleep(5 * time.Millisecond) // Ensure distinct created_at timestamps

	second := newTestEnvelope(tenantID, "group.created", `{"name":"second"}`)
	require.NoError(t, repo.Create(ctx, second))

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)

	claimed, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, second.ID, claimed.ID)
}

func TestPostgreSQLOutboxRepository_ClaimNext_EmptyQueue(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestPostgreSQLOutboxRepository_ClaimNext_RequiresTenantScope(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)

	claimed, err := repo.ClaimNext(context.Background())
	assert.Nil(t, claimed)
	assert.ErrorIs(t, err, apperrors.ErrTenantNotScoped)
}

func TestPostgreSQLOutboxRepository_ClaimNext_SkipsProcessingAndPublished(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "course.created", `{"title":"Go 101"}`)
	require.NoError(t, repo.Create(ctx, envelope))

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// The envelope is processing now, so a second claim finds nothing.
	claimed, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	require.NoError(t, repo.MarkPublished(ctx, envelope.ID))

	claimed, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestPostgreSQLOutboxRepository_MarkPublished(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "invoice.paid", `{"amount_in_cents":4200}`)
	require.NoError(t, repo.Create(ctx, envelope))

	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.MarkPublished(ctx, envelope.ID))

	published, err := repo.ListByStatus(ctx, domain.StatusPublished, 10)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, envelope.ID, published[0].ID)
	assert.Equal(t, domain.StatusPublished, published[0].Status)
	require.NotNil(t, published[0].PublishedAt)
	assert.WithinDuration(t, time.Now().UTC(), *published[0].PublishedAt, 5*time.Second)

	// Marking an already published envelope is not an error.
	require.NoError(t, repo.MarkPublished(ctx, envelope.ID))
}

func TestPostgreSQLOutboxRepository_MarkFailed(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "announcement.published", `{"title":"exams"}`)
	require.NoError(t, repo.Create(ctx, envelope))

	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.MarkFailed(ctx, envelope.ID, "handler exploded", 1))

	failed, err := repo.ListByStatus(ctx, domain.StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, envelope.ID, failed[0].ID)
	assert.Equal(t, 1, failed[0].AttemptCount)
	require.NotNil(t, failed[0].LastError)
	assert.Equal(t, "handler exploded", *failed[0].LastError)
}

func TestPostgreSQLOutboxRepository_MarkFailed_TruncatesLongError(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "user.registered", `{}`)
	require.NoError(t, repo.Create(ctx, envelope))

	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)

	longMsg := make([]byte, domain.MaxLastErrorLength+500)
	for i := range longMsg {
		longMsg[i] = 'x'
	}
	require.NoError(t, repo.MarkFailed(ctx, envelope.ID, string(longMsg), 1))

	failed, err := repo.ListByStatus(ctx, domain.StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].LastError)
	assert.Len(t, *failed[0].LastError, domain.MaxLastErrorLength)
}

func TestPostgreSQLOutboxRepository_ClaimNext_BoundedRetries(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	maxAttempts := 3
	repo := NewPostgreSQLOutboxRepository(db, maxAttempts, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "user.registered", `{}`)
	require.NoError(t, repo.Create(ctx, envelope))

	// A failed envelope stays claimable until its attempt count reaches the
	// configured maximum.
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		claimed, err := repo.ClaimNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, claimed, "attempt %d should claim the envelope", attempt)
		require.NoError(t, repo.MarkFailed(ctx, claimed.ID, "still broken", attempt))
	}

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed, "exhausted envelope must not be claimable")
}

func TestPostgreSQLOutboxRepository_Requeue(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	maxAttempts := 2
	repo := NewPostgreSQLOutboxRepository(db, maxAttempts, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "invoice.paid", `{}`)
	require.NoError(t, repo.Create(ctx, envelope))

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		claimed, err := repo.ClaimNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		require.NoError(t, repo.MarkFailed(ctx, claimed.ID, "payment gateway down", attempt))
	}

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.Nil(t, claimed)

	require.NoError(t, repo.Requeue(ctx, envelope.ID))

	pending, err := repo.ListByStatus(ctx, domain.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, envelope.ID, pending[0].ID)
	assert.Equal(t, 0, pending[0].AttemptCount)
	assert.Nil(t, pending[0].LastError)

	claimed, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, envelope.ID, claimed.ID)
}

func TestPostgreSQLOutboxRepository_Requeue_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	err := repo.Requeue(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgreSQLOutboxRepository_Requeue_OnlyFailedEnvelopes(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelope := newTestEnvelope(tenantID, "group.created", `{}`)
	require.NoError(t, repo.Create(ctx, envelope))

	err := repo.Requeue(ctx, envelope.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgreSQLOutboxRepository_ListByStatus_NewestFirst(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	first := newTestEnvelope(tenantID, "user.registered", `{"n":1}`)
	require.NoError(t, repo.Create(ctx, first))

	time.Sleep(5 * time.Millisecond)

	second := newTestEnvelope(tenantID, "user.registered", `{"n":2}`)
	require.NoError(t, repo.Create(ctx, second))

	pending, err := repo.ListByStatus(ctx, domain.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)

	limited, err := repo.ListByStatus(ctx, domain.StatusPending, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)
}

func TestPostgreSQLOutboxRepository_CrossTenantIsolation(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantA := testutil.CreateTestTenant(t, db, "postgres", "acme")
	tenantB := testutil.CreateTestTenant(t, db, "postgres", "globex")
	ctxA := tenant.NewContext(context.Background(), tenantA)
	ctxB := tenant.NewContext(context.Background(), tenantB)

	envelopeA := newTestEnvelope(tenantA, "user.registered", `{"tenant":"a"}`)
	require.NoError(t, repo.Create(ctxA, envelopeA))

	// Tenant B sees nothing from tenant A.
	claimed, err := repo.ClaimNext(ctxB)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	pending, err := repo.ListByStatus(ctxB, domain.StatusPending, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	claimed, err = repo.ClaimNext(ctxA)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, envelopeA.ID, claimed.ID)

	// Tenant B cannot requeue tenant A's envelope either.
	require.NoError(t, repo.MarkFailed(ctxA, envelopeA.ID, "boom", 1))
	err = repo.Requeue(ctxB, envelopeA.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgreSQLOutboxRepository_ClaimNext_ConcurrentClaims(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	envelopeCount := 3
	for i := 0; i < envelopeCount; i++ {
		require.NoError(t, repo.Create(ctx, newTestEnvelope(tenantID, "user.registered", `{}`)))
		time.Sleep(time.Millisecond)
	}

	var mu sync.Mutex
	claimedIDs := make(map[uuid.UUID]int)

	var g errgroup.Group
	for i := 0; i < envelopeCount*2; i++ {
		g.Go(func() error {
			envelope, err := repo.ClaimNext(ctx)
			if err != nil {
				return err
			}
			if envelope != nil {
				mu.Lock()
				claimedIDs[envelope.ID]++
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// Every envelope is claimed exactly once; surplus claimants get nothing.
	assert.Len(t, claimedIDs, envelopeCount)
	for id, count := range claimedIDs {
		assert.Equal(t, 1, count, "envelope %s claimed more than once", id)
	}
}

func TestPostgreSQLOutboxRepository_Create_JoinsCallerTransaction(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxRepository(db, 25, nil)
	txManager := database.NewTxManager(db)
	tenantID := testutil.CreateTestTenant(t, db, "postgres", "acme")
	ctx := tenant.NewContext(context.Background(), tenantID)

	// A rolled back transaction leaves no envelope behind.
	rollbackErr := assert.AnError
	err := txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, newTestEnvelope(tenantID, "user.registered", `{}`)); err != nil {
			return err
		}
		return rollbackErr
	})
	assert.ErrorIs(t, err, rollbackErr)

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	// A committed transaction makes the envelope claimable.
	envelope := newTestEnvelope(tenantID, "user.registered", `{}`)
	err = txManager.WithTx(ctx, func(ctx context.Context) error {
		return repo.Create(ctx, envelope)
	})
	require.NoError(t, err)

	claimed, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, envelope.ID, claimed.ID)
}
