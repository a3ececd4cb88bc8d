// Package mocks provides mock implementations for testing outbox use cases.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/classhub/internal/outbox/domain"
)

// MockEnvelopeRepository is a mock implementation of EnvelopeRepository for testing.
type MockEnvelopeRepository struct {
	mock.Mock
}

// Create mocks the Create method of EnvelopeRepository.
func (m *MockEnvelopeRepository) Create(ctx context.Context, envelope *domain.Envelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}

// ClaimNext mocks the ClaimNext method of EnvelopeRepository.
func (m *MockEnvelopeRepository) ClaimNext(ctx context.Context) (*domain.Envelope, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Envelope), args.Error(1)
}

// MarkPublished mocks the MarkPublished method of EnvelopeRepository.
func (m *MockEnvelopeRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MarkFailed mocks the MarkFailed method of EnvelopeRepository.
func (m *MockEnvelopeRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string, attemptCount int) error {
	args := m.Called(ctx, id, errorMsg, attemptCount)
	return args.Error(0)
}

// ListByStatus mocks the ListByStatus method of EnvelopeRepository.
func (m *MockEnvelopeRepository) ListByStatus(
	ctx context.Context,
	status domain.Status,
	limit int,
) ([]*domain.Envelope, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Envelope), args.Error(1)
}

// Requeue mocks the Requeue method of EnvelopeRepository.
func (m *MockEnvelopeRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
