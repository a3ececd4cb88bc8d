// Package mocks provides mock implementations for testing database helpers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTxManager is a mock implementation of TxManager for testing. By default
// use PassthroughTxManager when the test only needs the callback to run.
type MockTxManager struct {
	mock.Mock
}

// WithTx mocks the WithTx method of TxManager. When the expectation returns
// nil the unit of work runs, so tests exercise the logic inside the
// transaction.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// PassthroughTxManager runs the unit of work directly without a transaction.
// It keeps use case tests focused on business behavior instead of mock
// plumbing for the transaction boundary.
type PassthroughTxManager struct{}

// WithTx executes fn with the unmodified context.
func (PassthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
