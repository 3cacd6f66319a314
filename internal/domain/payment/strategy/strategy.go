package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/pkg/xendit"
)

var (
	// ErrNotFound 网关确认交易不存在
	ErrNotFound = errors.New("transaction not found at provider")

	// ErrNotConfigured 网关凭证未配置
	ErrNotConfigured = errors.New("provider credentials not configured")

	// ErrUnrecognizedCallback 回调不是该代 API 的格式
	ErrUnrecognizedCallback = errors.New("callback payload not recognized")
)

// LookupStrategy 一代网关 API 的适配器
type LookupStrategy interface {
	// Name 来源名称，同时作为指标标签
	Name() string

	// Lookup 按 id 查询网关交易并转换为统一结构
	Lookup(ctx context.Context, id string) (*model.Transaction, error)

	// ParseCallback 解析该代 API 的回调体
	ParseCallback(body []byte) (*model.ProviderEvent, error)
}

// Fetcher 网关 GET 请求，由 xendit.Client 实现
type Fetcher interface {
	Get(ctx context.Context, api, path string) (json.RawMessage, error)
}

// NewStrategies 按调用顺序构造网关适配器: 先 payment request，再旧版 invoice
func NewStrategies(client Fetcher) []LookupStrategy {
	return []LookupStrategy{
		NewPaymentRequestStrategy(client),
		NewInvoiceStrategy(client),
	}
}

// fetch 调用网关并把客户端错误翻译为策略层错误
func fetch(ctx context.Context, f Fetcher, api, path string, out interface{}) error {
	body, err := f.Get(ctx, api, path)
	switch {
	case errors.Is(err, xendit.ErrNoCredentials):
		return ErrNotConfigured
	case errors.Is(err, xendit.ErrNotFound):
		return ErrNotFound
	case err != nil:
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", api, err)
	}
	return nil
}

// ParseCallback 依次尝试各策略，返回第一个能识别的结果
func ParseCallback(strategies []LookupStrategy, body []byte) (*model.ProviderEvent, error) {
	for _, s := range strategies {
		event, err := s.ParseCallback(body)
		if errors.Is(err, ErrUnrecognizedCallback) {
			continue
		}
		return event, err
	}
	return nil, ErrUnrecognizedCallback
}
