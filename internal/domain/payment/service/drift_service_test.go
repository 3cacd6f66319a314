package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFindDrift(t *testing.T) {
	orders := []model.OrderSnapshot{
		{ID: "o1", ClientExternalID: "ext-1", Status: "pending"},   // payment paid -> drift
		{ID: "o2", ClientExternalID: "ext-2", Status: "paid"},      // payment pending -> drift
		{ID: "o3", ClientExternalID: "ext-3", Status: "completed"}, // payment settled -> ok
		{ID: "o4", ClientExternalID: "ext-4", Status: "pending"},   // no payment -> ok
		{ID: "o5", ClientExternalID: "ext-5", Status: "paid"},      // no payment -> ok
	}
	payments := []model.PaymentSnapshot{
		{ID: "p1", ExternalID: "ext-1", Status: "PAID"},
		{ID: "p2", ExternalID: "ext-2", Status: "PENDING"},
		{ID: "p3", ExternalID: "ext-3", Status: "SETTLED"},
		{ID: "p6", ExternalID: "ext-6", Status: "SUCCEEDED"}, // no order -> drift
		{ID: "p7", ExternalID: "ext-7", Status: "EXPIRED"},   // no order, unpaid -> ok
	}

	ds := FindDrift(orders, payments)
	require.Len(t, ds, 3)

	assert.Equal(t, model.DriftOrderPendingPaymentPaid, ds[0].Kind)
	assert.Equal(t, "ext-1", ds[0].ExternalID)
	assert.Equal(t, model.DriftOrderPaidPaymentUnpaid, ds[1].Kind)
	assert.Equal(t, "ext-2", ds[1].ExternalID)
	assert.Equal(t, model.DriftPaymentPaidWithoutOrder, ds[2].Kind)
	assert.Equal(t, "ext-6", ds[2].ExternalID)
	assert.Nil(t, ds[2].Order)
}

func TestFindDrift_ClosedOrders(t *testing.T) {
	orders := []model.OrderSnapshot{
		{ClientExternalID: "ext-1", Status: "cancelled"},
		{ClientExternalID: "ext-2", Status: "expired"},
		{ClientExternalID: "ext-3", Status: "expired"},
		{ClientExternalID: "ext-4", Status: "refunded"},
	}
	payments := []model.PaymentSnapshot{
		{ExternalID: "ext-1", Status: "PAID"},
		{ExternalID: "ext-2", Status: "SETTLED"},
		{ExternalID: "ext-3", Status: "EXPIRED"},
		{ExternalID: "ext-4", Status: "PAID"},
	}

	ds := FindDrift(orders, payments)
	require.Len(t, ds, 2)
	for _, d := range ds {
		assert.Equal(t, model.DriftOrderClosedPaymentPaid, d.Kind)
		assert.NotNil(t, d.Order)
	}
	assert.Equal(t, "ext-1", ds[0].ExternalID)
	assert.Equal(t, "ext-2", ds[1].ExternalID)
}

func TestFindDrift_DuplicatePaymentsPreferPaid(t *testing.T) {
	orders := []model.OrderSnapshot{{ClientExternalID: "ext-1", Status: "paid"}}
	payments := []model.PaymentSnapshot{
		{ExternalID: "ext-1", Status: "PAID"},
		{ExternalID: "ext-1", Status: "EXPIRED"},
	}
	assert.Empty(t, FindDrift(orders, payments))
}

func TestDriftScan(t *testing.T) {
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.OrderSnapshot{
		{ID: "o1", ClientExternalID: "ext-1", XenditInvoiceID: "inv_1", Status: "pending"},
		{ID: "o2", ClientExternalID: "ext-2", Status: "paid"},
	}
	payments := []model.PaymentSnapshot{
		{ID: "p1", ExternalID: "ext-1", XenditID: "inv_1", Status: "PAID"},
		{ID: "p2", ExternalID: "ext-2", XenditID: "pr-2", Status: "PENDING"},
	}

	newRepo := func() *MockDriftRepository {
		repo := new(MockDriftRepository)
		repo.On("OrdersSince", since, scannedOrderStatuses).Return(orders, nil)
		repo.On("PaymentsSince", since).Return(payments, nil)
		return repo
	}

	t.Run("report counts and gauge", func(t *testing.T) {
		m := metrics.NewMetricsCollector(prometheus.NewRegistry())
		svc := NewDriftService(newRepo(), nil, nil, m)

		report, err := svc.Scan(context.Background(), ScanOptions{Since: since})
		require.NoError(t, err)
		assert.True(t, report.HasDrift())
		assert.False(t, report.Verified)
		assert.Equal(t, 2, report.OrdersScanned)
		assert.Equal(t, 1, report.Counts[model.DriftOrderPendingPaymentPaid])
		assert.Equal(t, 1, report.Counts[model.DriftOrderPaidPaymentUnpaid])
		assert.Equal(t, 0, report.Counts[model.DriftPaymentPaidWithoutOrder])
	})

	t.Run("verify attaches provider status with retries", func(t *testing.T) {
		lookup := new(MockLookupService)
		lookup.On("LookupProvider", "inv_1").Return(&model.Transaction{Status: "PAID", Source: model.SourceInvoice}, nil)
		lookup.On("LookupProvider", "pr-2").Return(nil, errors.New("timeout")).Once()
		lookup.On("LookupProvider", "pr-2").Return(&model.Transaction{Status: "PENDING", Source: model.SourcePaymentRequest}, nil)

		svc := NewDriftService(newRepo(), lookup, nil, nil).(*driftService)
		svc.retryDelay = time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		report, err := svc.Scan(ctx, ScanOptions{Since: since, Verify: true, Workers: 2, Retries: 2})
		require.NoError(t, err)
		assert.True(t, report.Verified)

		byExt := map[string]*model.Discrepancy{}
		for _, d := range report.Discrepancies {
			byExt[d.ExternalID] = d
		}
		assert.Equal(t, "PAID", byExt["ext-1"].ProviderStatus)
		assert.Equal(t, model.SourceInvoice, byExt["ext-1"].ProviderSource)
		assert.Equal(t, "PENDING", byExt["ext-2"].ProviderStatus)
		assert.Empty(t, byExt["ext-2"].VerifyError)
	})

	t.Run("verify records permanent failures", func(t *testing.T) {
		lookup := new(MockLookupService)
		lookup.On("LookupProvider", "inv_1").Return(nil, ErrPaymentNotFound)
		lookup.On("LookupProvider", "pr-2").Return(nil, errors.New("boom"))

		svc := NewDriftService(newRepo(), lookup, nil, nil).(*driftService)
		svc.retryDelay = time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		report, err := svc.Scan(ctx, ScanOptions{Since: since, Verify: true, Workers: 1, Retries: 1})
		require.NoError(t, err)

		for _, d := range report.Discrepancies {
			assert.NotEmpty(t, d.VerifyError, d.ExternalID)
			assert.Empty(t, d.ProviderStatus)
		}
		lookup.AssertNumberOfCalls(t, "LookupProvider", 3)
	})

	t.Run("orders outside the window are fetched by external id", func(t *testing.T) {
		repo := new(MockDriftRepository)
		// ext-1 的订单在窗口前创建，窗口内才支付; ext-2 的订单已取消
		repo.On("OrdersSince", since, scannedOrderStatuses).Return([]model.OrderSnapshot{}, nil)
		repo.On("PaymentsSince", since).Return([]model.PaymentSnapshot{
			{ID: "p1", ExternalID: "ext-1", Status: "PAID"},
			{ID: "p2", ExternalID: "ext-2", Status: "PAID"},
			{ID: "p2b", ExternalID: "ext-2", Status: "EXPIRED"},
			{ID: "p3", ExternalID: "ext-3", Status: "PAID"},
		}, nil)
		repo.On("OrdersByExternalIDs", []string{"ext-1", "ext-2", "ext-3"}).Return([]model.OrderSnapshot{
			{ID: "o1", ClientExternalID: "ext-1", Status: "paid", CreatedAt: since.Add(-time.Hour)},
			{ID: "o2", ClientExternalID: "ext-2", Status: "cancelled"},
		}, nil)

		report, err := NewDriftService(repo, nil, nil, nil).Scan(context.Background(), ScanOptions{Since: since})
		require.NoError(t, err)
		require.Len(t, report.Discrepancies, 2)

		assert.Equal(t, model.DriftOrderClosedPaymentPaid, report.Discrepancies[0].Kind)
		assert.Equal(t, "ext-2", report.Discrepancies[0].ExternalID)
		assert.Equal(t, model.DriftPaymentPaidWithoutOrder, report.Discrepancies[1].Kind)
		assert.Equal(t, "ext-3", report.Discrepancies[1].ExternalID)

		assert.Equal(t, 0, report.Counts[model.DriftOrderPendingPaymentPaid])
		assert.Equal(t, 1, report.Counts[model.DriftOrderClosedPaymentPaid])
		assert.Equal(t, 1, report.Counts[model.DriftPaymentPaidWithoutOrder])
		assert.Len(t, report.Counts, len(model.DriftKinds))
		assert.Equal(t, 2, report.OrdersScanned)
		repo.AssertExpectations(t)
	})

	t.Run("pending order from before the window", func(t *testing.T) {
		repo := new(MockDriftRepository)
		repo.On("OrdersSince", since, scannedOrderStatuses).Return([]model.OrderSnapshot{}, nil)
		repo.On("PaymentsSince", since).Return([]model.PaymentSnapshot{{ExternalID: "ext-9", Status: "SETTLED"}}, nil)
		repo.On("OrdersByExternalIDs", []string{"ext-9"}).Return([]model.OrderSnapshot{{ClientExternalID: "ext-9", Status: "pending"}}, nil)

		report, err := NewDriftService(repo, nil, nil, nil).Scan(context.Background(), ScanOptions{Since: since})
		require.NoError(t, err)
		require.Len(t, report.Discrepancies, 1)
		assert.Equal(t, model.DriftOrderPendingPaymentPaid, report.Discrepancies[0].Kind)
	})

	t.Run("lookup by external id fails", func(t *testing.T) {
		repo := new(MockDriftRepository)
		repo.On("OrdersSince", since, scannedOrderStatuses).Return([]model.OrderSnapshot{}, nil)
		repo.On("PaymentsSince", since).Return([]model.PaymentSnapshot{{ExternalID: "ext-1", Status: "PAID"}}, nil)
		repo.On("OrdersByExternalIDs", mock.Anything).Return(nil, errors.New("db down"))

		_, err := NewDriftService(repo, nil, nil, nil).Scan(context.Background(), ScanOptions{Since: since})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("store error", func(t *testing.T) {
		repo := new(MockDriftRepository)
		repo.On("OrdersSince", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := NewDriftService(repo, nil, nil, nil).Scan(context.Background(), ScanOptions{Since: since})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("24h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), got)

	got, err = ParseSince("2025-03-01T08:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), got)

	got, err = ParseSince("2025-02-28", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseSince("-1h", now)
	assert.Error(t, err)
	_, err = ParseSince("yesterday", now)
	assert.Error(t, err)
}
