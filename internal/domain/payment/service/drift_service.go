package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/domain/payment/repository"
	"storefront_payments/internal/pkg/worker"
	"storefront_payments/pkg/metrics"

	"go.uber.org/zap"
)

// ScanOptions 巡检参数
type ScanOptions struct {
	Since   time.Time
	Verify  bool // 是否逐条向网关核实
	Workers int
	Retries int
}

type DriftService interface {
	Scan(ctx context.Context, opts ScanOptions) (*model.DriftReport, error)
}

type driftService struct {
	repo       repository.DriftRepository
	lookup     PaymentLookupService
	log        *zap.Logger
	metrics    *metrics.MetricsCollector
	retryDelay time.Duration
	now        func() time.Time
}

func NewDriftService(repo repository.DriftRepository, lookup PaymentLookupService, log *zap.Logger, m *metrics.MetricsCollector) DriftService {
	if log == nil {
		log = zap.NewNop()
	}
	return &driftService{
		repo:       repo,
		lookup:     lookup,
		log:        log,
		metrics:    m,
		retryDelay: 500 * time.Millisecond,
		now:        time.Now,
	}
}

// 参与比对的订单状态
var scannedOrderStatuses = []string{model.OrderStatusPending, model.OrderStatusPaid, model.OrderStatusCompleted}

func (s *driftService) Scan(ctx context.Context, opts ScanOptions) (*model.DriftReport, error) {
	orders, err := s.repo.OrdersSince(ctx, opts.Since, scannedOrderStatuses)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	payments, err := s.repo.PaymentsSince(ctx, opts.Since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// 订单先于支付创建，窗口边缘的订单和已关闭的订单按 external_id 补查
	if missing := externalIDsWithoutOrder(orders, payments); len(missing) > 0 {
		extra, err := s.repo.OrdersByExternalIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		orders = append(orders, extra...)
	}

	report := &model.DriftReport{
		Since:           opts.Since,
		ScannedAt:       s.now(),
		OrdersScanned:   len(orders),
		PaymentsScanned: len(payments),
		Discrepancies:   FindDrift(orders, payments),
	}
	report.Counts = countByKind(report.Discrepancies)
	s.metrics.SetDrift(report.Counts)

	s.log.Info("drift scan finished",
		zap.Time("since", opts.Since),
		zap.Int("orders", len(orders)),
		zap.Int("payments", len(payments)),
		zap.Int("discrepancies", len(report.Discrepancies)))

	if opts.Verify && s.lookup != nil && len(report.Discrepancies) > 0 {
		if err := s.verify(ctx, report.Discrepancies, opts); err != nil {
			return report, err
		}
		report.Verified = true
	}
	return report, nil
}

// externalIDsWithoutOrder 窗口内支付记录中找不到对应订单的 external_id，去重
func externalIDsWithoutOrder(orders []model.OrderSnapshot, payments []model.PaymentSnapshot) []string {
	known := make(map[string]bool, len(orders)+len(payments))
	for _, o := range orders {
		known[o.ClientExternalID] = true
	}
	var missing []string
	for _, p := range payments {
		if p.ExternalID == "" || known[p.ExternalID] {
			continue
		}
		known[p.ExternalID] = true
		missing = append(missing, p.ExternalID)
	}
	return missing
}

// FindDrift 以 payments.external_id = orders.client_external_id 在内存中比对两张表
// orders 可以包含任意状态，refunded 订单不参与比对
func FindDrift(orders []model.OrderSnapshot, payments []model.PaymentSnapshot) []*model.Discrepancy {
	byExternal := make(map[string]*model.PaymentSnapshot, len(payments))
	for i := range payments {
		p := &payments[i]
		// 同一 external_id 多条时保留已支付的那条
		if prev, ok := byExternal[p.ExternalID]; ok && model.IsPaidStatus(prev.Status) && !model.IsPaidStatus(p.Status) {
			continue
		}
		byExternal[p.ExternalID] = p
	}

	found := make([]*model.Discrepancy, 0)
	orderExternal := make(map[string]bool, len(orders))
	for i := range orders {
		o := &orders[i]
		orderExternal[o.ClientExternalID] = true

		p := byExternal[o.ClientExternalID]
		if p == nil {
			continue
		}
		paid := model.IsPaidStatus(p.Status)
		kind := ""
		switch o.Status {
		case model.OrderStatusPending:
			if paid {
				kind = model.DriftOrderPendingPaymentPaid
			}
		case model.OrderStatusPaid, model.OrderStatusCompleted:
			if !paid {
				kind = model.DriftOrderPaidPaymentUnpaid
			}
		case model.OrderStatusCancelled, model.OrderStatusExpired:
			if paid {
				kind = model.DriftOrderClosedPaymentPaid
			}
		}
		if kind != "" {
			found = append(found, &model.Discrepancy{Kind: kind, ExternalID: o.ClientExternalID, Order: o, Payment: p})
		}
	}

	for i := range payments {
		p := &payments[i]
		if model.IsPaidStatus(p.Status) && !orderExternal[p.ExternalID] {
			found = append(found, &model.Discrepancy{Kind: model.DriftPaymentPaidWithoutOrder, ExternalID: p.ExternalID, Payment: p})
		}
	}
	return found
}

func countByKind(ds []*model.Discrepancy) map[string]int {
	counts := make(map[string]int, len(model.DriftKinds))
	for _, kind := range model.DriftKinds {
		counts[kind] = 0
	}
	for _, d := range ds {
		counts[d.Kind]++
	}
	return counts
}

// verify 通过 worker pool 并发向网关核实每条不一致记录
func (s *driftService) verify(ctx context.Context, ds []*model.Discrepancy, opts ScanOptions) error {
	pool := worker.NewWorkerPool(s.log, opts.Workers, len(ds))
	pool.MaxRetry = opts.Retries
	pool.RetryDelay = s.retryDelay

	// key 为任务 id，建好后只读
	byTask := make(map[string]*model.Discrepancy, len(ds))
	pool.OnFailed = func(task worker.Task, err error) {
		if d, ok := byTask[task.ID]; ok && err != nil {
			d.VerifyError = err.Error()
		}
	}

	tasks := make([]worker.Task, 0, len(ds))
	for i, d := range ds {
		d := d
		id := strconv.Itoa(i)
		byTask[id] = d
		tasks = append(tasks, worker.Task{ID: id, Run: func(ctx context.Context) error {
			return s.verifyOne(ctx, d)
		}})
	}

	pool.Start(ctx)
	defer pool.Stop()
	for _, t := range tasks {
		if !pool.AddTask(t) {
			byTask[t.ID].VerifyError = "verification queue full"
		}
	}
	return pool.Wait(ctx)
}

// verifyOne 返回 error 表示可重试
func (s *driftService) verifyOne(ctx context.Context, d *model.Discrepancy) error {
	tx, err := s.lookup.LookupProvider(ctx, d.LookupID())
	switch {
	case err == nil:
		d.ProviderStatus = tx.Status
		d.ProviderSource = tx.Source
		d.VerifyError = ""
		return nil
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrProviderNotConfigured), errors.Is(err, ErrInvalidID):
		d.VerifyError = err.Error()
		return nil
	default:
		return err
	}
}

// ParseSince 支持时长 (24h) 、RFC3339 时间与日期 (2006-01-02)
func ParseSince(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("lookback must be positive: %s", value)
		}
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since value %q", value)
}
