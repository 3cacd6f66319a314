package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
// 所有方法对 nil 接收者安全，测试与命令行工具可以不传收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 对账指标
	lookupsTotal *prometheus.CounterVec

	// 支付网关指标
	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec

	// 回调指标
	webhookEventsTotal *prometheus.CounterVec

	// 漂移巡检
	driftDiscrepancies *prometheus.GaugeVec
}

// NewMetricsCollector 创建指标收集器并注册到 reg
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		lookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_lookups_total",
				Help: "Payment lookups by the tier that answered and the outcome",
			},
			[]string{"tier", "outcome"},
		),

		providerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xendit_requests_total",
				Help: "Requests sent to the payment gateway",
			},
			[]string{"api", "status"},
		),

		providerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xendit_request_duration_seconds",
				Help:    "Payment gateway request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"api"},
		),

		webhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xendit_webhook_events_total",
				Help: "Webhook callbacks by outcome",
			},
			[]string{"outcome"},
		),

		driftDiscrepancies: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "payment_drift_discrepancies",
				Help: "Discrepancies between orders and payments found by the last scan",
			},
			[]string{"kind"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, getStatusCategory(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordLookup 记录一次对账查询落在哪一层以及结果
func (m *MetricsCollector) RecordLookup(tier, outcome string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(tier, outcome).Inc()
}

// RecordProviderRequest 记录网关调用, status 为 HTTP 状态码, 0 表示网络错误
func (m *MetricsCollector) RecordProviderRequest(api string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.providerRequestsTotal.WithLabelValues(api, label).Inc()
	m.providerRequestDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordWebhook 记录回调处理结果
func (m *MetricsCollector) RecordWebhook(outcome string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(outcome).Inc()
}

// SetDrift 用最新一次巡检结果覆盖漂移数量
func (m *MetricsCollector) SetDrift(counts map[string]int) {
	if m == nil {
		return
	}
	m.driftDiscrepancies.Reset()
	for kind, n := range counts {
		m.driftDiscrepancies.WithLabelValues(kind).Set(float64(n))
	}
}

// getStatusCategory 获取状态分类
func getStatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
