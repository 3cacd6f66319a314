package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/domain/payment/repository"
	"storefront_payments/internal/domain/payment/strategy"
	"storefront_payments/pkg/cache"
	"storefront_payments/pkg/metrics"

	"go.uber.org/zap"
)

// 回调去重键保留时间，覆盖网关的重试窗口
const webhookDedupeTTL = 24 * time.Hour

var ErrCallbackPayloadInvalid = errors.New("callback payload invalid")

// WebhookResult 回调处理结果，直接作为响应体返回
type WebhookResult struct {
	Duplicate bool   `json:"duplicate,omitempty"`
	Applied   bool   `json:"applied"`
	Changed   bool   `json:"changed,omitempty"`
	Reason    string `json:"reason,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

type WebhookService interface {
	// HandleCallback 处理一次网关回调，webhookID 为空时按事件内容生成去重键
	HandleCallback(ctx context.Context, webhookID string, body []byte) (*WebhookResult, error)
}

type webhookService struct {
	strategies []strategy.LookupStrategy
	txRepo     repository.TransactionRepository
	cache      cache.CacheService
	log        *zap.Logger
	metrics    *metrics.MetricsCollector
	now        func() time.Time
}

func NewWebhookService(
	strategies []strategy.LookupStrategy,
	txRepo repository.TransactionRepository,
	c cache.CacheService,
	log *zap.Logger,
	m *metrics.MetricsCollector,
) WebhookService {
	if log == nil {
		log = zap.NewNop()
	}
	return &webhookService{
		strategies: strategies,
		txRepo:     txRepo,
		cache:      c,
		log:        log,
		metrics:    m,
		now:        time.Now,
	}
}

func (s *webhookService) HandleCallback(ctx context.Context, webhookID string, body []byte) (*WebhookResult, error) {
	event, err := strategy.ParseCallback(s.strategies, body)
	if err != nil {
		s.metrics.RecordWebhook("invalid")
		return nil, fmt.Errorf("%w: %v", ErrCallbackPayloadInvalid, err)
	}

	key := dedupeKey(webhookID, event)
	if !s.acquire(ctx, key) {
		s.metrics.RecordWebhook("duplicate")
		s.log.Info("duplicate webhook skipped", zap.String("key", key))
		return &WebhookResult{Duplicate: true, Applied: false, Reason: "duplicate"}, nil
	}

	target, ok := model.OrderStatusFromProvider(event.Status)
	if !ok {
		s.metrics.RecordWebhook("ignored")
		return &WebhookResult{Applied: false, Reason: fmt.Sprintf("status %s ignored", event.Status)}, nil
	}

	res, err := s.txRepo.ApplyEvent(ctx, event, target, s.now())
	if err != nil {
		// 释放去重键，让网关重试能够进来
		s.release(key)
		s.metrics.RecordWebhook("error")
		s.log.Error("apply webhook failed",
			zap.String("external_id", event.ExternalID),
			zap.String("provider_id", event.ProviderID),
			zap.Error(err))
		return nil, fmt.Errorf("apply webhook: %w", err)
	}

	result := &WebhookResult{OrderID: res.OrderID, Status: target}
	switch {
	case !res.OrderFound:
		result.Reason = "order not found"
		s.metrics.RecordWebhook("order_not_found")
		s.log.Warn("webhook for unknown order",
			zap.String("external_id", event.ExternalID),
			zap.String("provider_id", event.ProviderID))
	case res.InvalidTransition:
		result.Reason = fmt.Sprintf("invalid transition %s -> %s", res.From, res.To)
		s.metrics.RecordWebhook("invalid_transition")
		s.log.Warn("webhook transition rejected",
			zap.String("order_id", res.OrderID),
			zap.String("from", res.From),
			zap.String("to", res.To))
	default:
		result.Applied = true
		result.Changed = res.Changed
		s.metrics.RecordWebhook("applied")
		s.log.Info("webhook applied",
			zap.String("order_id", res.OrderID),
			zap.String("from", res.From),
			zap.String("to", res.To),
			zap.Bool("changed", res.Changed))
	}
	return result, nil
}

// acquire 占用去重键，缓存故障时放行
func (s *webhookService) acquire(ctx context.Context, key string) bool {
	if s.cache == nil {
		return true
	}
	ok, err := s.cache.SetNX(ctx, key, "1", webhookDedupeTTL)
	if err != nil {
		s.log.Warn("webhook dedupe unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

func (s *webhookService) release(key string) {
	if s.cache == nil {
		return
	}
	// 请求 ctx 可能已取消，释放用独立的短超时
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("release webhook dedupe key failed", zap.String("key", key), zap.Error(err))
	}
}

func dedupeKey(webhookID string, event *model.ProviderEvent) string {
	if webhookID != "" {
		return "webhook:" + webhookID
	}
	return fmt.Sprintf("webhook:%s:%s:%s:%s", event.Source, event.ProviderID, event.ExternalID, event.Status)
}
