// Package xendit 是支付网关 REST API 的最小客户端，只负责鉴权、发请求和错误分类。
// 各代 API 的响应解析在 payment/strategy 中完成。
package xendit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront_payments/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.xendit.co"
	DefaultTimeout = 10 * time.Second

	// 响应体上限，防止异常响应占满内存
	maxBodyBytes = 1 << 20
)

var (
	// ErrNoCredentials 未配置 secret key
	ErrNoCredentials = errors.New("xendit: secret key not configured")

	// ErrNotFound 网关明确返回 404
	ErrNotFound = errors.New("xendit: resource not found")
)

// APIError 网关返回的非 2xx (404 除外) 响应
type APIError struct {
	StatusCode int
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("xendit: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("xendit: status %d: %s: %s", e.StatusCode, e.ErrorCode, e.Message)
}

// Client 网关客户端，可并发使用
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	metrics    *metrics.MetricsCollector
}

type Option func(*Client)

// WithHTTPClient 替换底层 http.Client (测试用)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(secretKey, baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured 是否配置了 secret key
func (c *Client) Configured() bool {
	return c.secretKey != ""
}

// Get 请求 path (例如 /v2/invoices/{id})，返回原始 JSON。
// api 只用于指标标签。
func (c *Client) Get(ctx context.Context, api, path string) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNoCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("xendit: build request: %w", err)
	}
	// secret key 作为用户名，密码为空
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordProviderRequest(api, 0, time.Since(start))
		return nil, fmt.Errorf("xendit: %s request: %w", api, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordProviderRequest(api, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("xendit: read %s response: %w", api, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// 错误体不是 JSON 时只保留状态码
		_ = json.Unmarshal(body, apiErr)
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("xendit: %s returned invalid json", api)
	}
	return body, nil
}

// EscapeID 把外部传入的 id 作为单个路径段转义
func EscapeID(id string) string {
	return url.PathEscape(id)
}
