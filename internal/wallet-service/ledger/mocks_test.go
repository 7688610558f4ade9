package ledger_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) Initiate(ctx context.Context, req ledger.PaymentRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) EntryChanged(ctx context.Context, e ledger.Entry, balance int64) error {
	args := m.Called(ctx, e, balance)
	return args.Error(0)
}
