package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/domain/payment/repository"
	"storefront_payments/internal/domain/payment/strategy"
	"storefront_payments/pkg/metrics"

	"go.uber.org/zap"
)

// MaxIdentifierLength 交易 id 最大长度
const MaxIdentifierLength = 255

var (
	ErrInvalidID             = errors.New("invalid transaction id")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrProviderUnavailable   = errors.New("payment provider unavailable")
	ErrProviderNotConfigured = errors.New("payment provider not configured")
	ErrStoreUnavailable      = errors.New("record store unavailable")
)

// PaymentLookupService 按 id 在本地库与网关间查找交易
type PaymentLookupService interface {
	// GetPayment 依次查询 payments、orders、payment request API、invoice API
	GetPayment(ctx context.Context, id string) (*model.Transaction, error)

	// LookupProvider 只查询网关 (巡检核实用)
	LookupProvider(ctx context.Context, id string) (*model.Transaction, error)
}

type paymentLookupService struct {
	payments   repository.PaymentRepository
	orders     repository.OrderRepository
	strategies []strategy.LookupStrategy // 按调用顺序排列
	log        *zap.Logger
	metrics    *metrics.MetricsCollector
}

func NewPaymentLookupService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	strategies []strategy.LookupStrategy,
	log *zap.Logger,
	m *metrics.MetricsCollector,
) PaymentLookupService {
	if log == nil {
		log = zap.NewNop()
	}
	return &paymentLookupService{
		payments:   payments,
		orders:     orders,
		strategies: strategies,
		log:        log,
		metrics:    m,
	}
}

// NormalizeIdentifier 去掉首尾空白并校验长度
func NormalizeIdentifier(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: id is required", ErrInvalidID)
	}
	if len(id) > MaxIdentifierLength {
		return "", fmt.Errorf("%w: id longer than %d characters", ErrInvalidID, MaxIdentifierLength)
	}
	return id, nil
}

func (s *paymentLookupService) GetPayment(ctx context.Context, id string) (*model.Transaction, error) {
	id, err := NormalizeIdentifier(id)
	if err != nil {
		return nil, err
	}

	// 1. payments 表
	payment, err := s.payments.FindByIdentifier(ctx, id)
	if err != nil {
		s.metrics.RecordLookup(model.SourcePayments, "error")
		s.log.Error("payment lookup failed", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: payments: %v", ErrStoreUnavailable, err)
	}
	if payment != nil {
		s.metrics.RecordLookup(model.SourcePayments, "found")
		return model.TransactionFromPayment(payment), nil
	}

	// 2. orders 表
	order, err := s.orders.FindByIdentifier(ctx, id)
	if err != nil {
		s.metrics.RecordLookup(model.SourceOrders, "error")
		s.log.Error("order lookup failed", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: orders: %v", ErrStoreUnavailable, err)
	}
	if order != nil {
		s.metrics.RecordLookup(model.SourceOrders, "found")
		return model.TransactionFromOrder(order), nil
	}

	// 3/4. 网关
	return s.lookupProvider(ctx, id)
}

func (s *paymentLookupService) LookupProvider(ctx context.Context, id string) (*model.Transaction, error) {
	id, err := NormalizeIdentifier(id)
	if err != nil {
		return nil, err
	}
	return s.lookupProvider(ctx, id)
}

func (s *paymentLookupService) lookupProvider(ctx context.Context, id string) (*model.Transaction, error) {
	var lastErr error
	for _, st := range s.strategies {
		tx, err := st.Lookup(ctx, id)
		switch {
		case err == nil:
			s.metrics.RecordLookup(st.Name(), "found")
			return tx, nil
		case errors.Is(err, strategy.ErrNotFound):
			s.metrics.RecordLookup(st.Name(), "not_found")
		case errors.Is(err, strategy.ErrNotConfigured):
			s.metrics.RecordLookup(st.Name(), "not_configured")
			s.log.Error("payment provider secret key missing")
			return nil, ErrProviderNotConfigured
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			// 网关不可达时继续尝试下一代 API
			s.metrics.RecordLookup(st.Name(), "error")
			s.log.Warn("provider lookup failed", zap.String("source", st.Name()), zap.String("id", id), zap.Error(err))
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
	}
	return nil, ErrPaymentNotFound
}
