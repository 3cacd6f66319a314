package service

import (
	"context"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/domain/payment/repository"

	"github.com/stretchr/testify/mock"
)

// MockPaymentRepository is a mock of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByIdentifier(ctx context.Context, id string) (*model.Payment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByIdentifier(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockStrategy is a mock of strategy.LookupStrategy
type MockStrategy struct {
	mock.Mock
	name string
}

func (m *MockStrategy) Name() string { return m.name }

func (m *MockStrategy) Lookup(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockStrategy) ParseCallback(body []byte) (*model.ProviderEvent, error) {
	args := m.Called(string(body))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderEvent), args.Error(1)
}

// MockTransactionRepository is a mock of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) ApplyEvent(ctx context.Context, event *model.ProviderEvent, target string, now time.Time) (*repository.ApplyResult, error) {
	args := m.Called(event, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ApplyResult), args.Error(1)
}

// MockDriftRepository is a mock of DriftRepository
type MockDriftRepository struct {
	mock.Mock
}

func (m *MockDriftRepository) OrdersSince(ctx context.Context, since time.Time, statuses []string) ([]model.OrderSnapshot, error) {
	args := m.Called(since, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderSnapshot), args.Error(1)
}

func (m *MockDriftRepository) PaymentsSince(ctx context.Context, since time.Time) ([]model.PaymentSnapshot, error) {
	args := m.Called(since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentSnapshot), args.Error(1)
}

func (m *MockDriftRepository) OrdersByExternalIDs(ctx context.Context, externalIDs []string) ([]model.OrderSnapshot, error) {
	args := m.Called(externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderSnapshot), args.Error(1)
}

// MockLookupService is a mock of PaymentLookupService
type MockLookupService struct {
	mock.Mock
}

func (m *MockLookupService) GetPayment(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockLookupService) LookupProvider(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}
