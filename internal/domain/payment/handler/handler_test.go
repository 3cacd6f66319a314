package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/domain/payment/service"
	"storefront_payments/internal/pkg/config"
	"storefront_payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleCallback(ctx context.Context, webhookID string, body []byte) (*service.WebhookResult, error) {
	args := m.Called(webhookID, string(body))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WebhookResult), args.Error(1)
}

type MockDriftService struct {
	mock.Mock
}

func (m *MockDriftService) Scan(ctx context.Context, opts service.ScanOptions) (*model.DriftReport, error) {
	args := m.Called(opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DriftReport), args.Error(1)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var r response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestGetPayment(t *testing.T) {
	svc := new(MockLookupService)
	r := gin.New()
	r.GET("/api/xendit/get-payment", NewPaymentHandler(svc).GetPayment)

	get := func(query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/xendit/get-payment"+query, nil))
		return w
	}

	svc.On("GetPayment", "qr_abc").Return(&model.Transaction{
		ID:     "qr_abc",
		Status: "ACTIVE",
		Amount: decimal.NewFromInt(150000),
		Source: model.SourcePayments,
		Method: model.QRCode{QRString: "0002..."},
	}, nil)
	svc.On("GetPayment", "").Return(nil, fmt.Errorf("%w: id is required", service.ErrInvalidID))
	svc.On("GetPayment", "ghost").Return(nil, service.ErrPaymentNotFound)
	svc.On("GetPayment", "flaky").Return(nil, fmt.Errorf("%w: timeout", service.ErrProviderUnavailable))
	svc.On("GetPayment", "nokey").Return(nil, service.ErrProviderNotConfigured)
	svc.On("GetPayment", "dbdown").Return(nil, fmt.Errorf("%w: refused", service.ErrStoreUnavailable))

	t.Run("200 returns bare normalized object", func(t *testing.T) {
		w := get("?id=qr_abc")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "qr_abc", body["id"])
		assert.Equal(t, "ACTIVE", body["status"])
		assert.Equal(t, "0002...", body["qr_string"])
		assert.Equal(t, 150000.0, body["amount"])
		assert.NotContains(t, body, "code")
	})

	cases := []struct {
		query  string
		status int
		code   int
	}{
		{"", http.StatusBadRequest, response.ErrInvalidParam},
		{"?id=ghost", http.StatusNotFound, response.ErrPaymentNotFound},
		{"?id=flaky", http.StatusBadGateway, response.ErrProviderUnavailable},
		{"?id=nokey", http.StatusInternalServerError, response.ErrProviderNotConfigured},
		{"?id=dbdown", http.StatusInternalServerError, response.ErrServerInternal},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d for %q", tc.status, tc.query), func(t *testing.T) {
			w := get(tc.query)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeEnvelope(t, w).Code)
		})
	}
}

func TestWebhookReceive(t *testing.T) {
	svc := new(MockWebhookService)
	r := gin.New()
	r.POST("/api/xendit/webhook", NewWebhookHandler(svc).Receive)

	post := func(webhookID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/xendit/webhook", strings.NewReader(body))
		req.Header.Set("webhook-id", webhookID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	svc.On("HandleCallback", "wh-1", `{"ok":1}`).Return(&service.WebhookResult{Applied: true, OrderID: "oid"}, nil)
	svc.On("HandleCallback", "wh-2", `{"ok":1}`).Return(&service.WebhookResult{Duplicate: true}, nil)
	svc.On("HandleCallback", "wh-3", `{"bad":1}`).Return(nil, service.ErrCallbackPayloadInvalid)
	svc.On("HandleCallback", "wh-4", `{"ok":1}`).Return(nil, errors.New("apply webhook: deadlock"))

	w := post("wh-1", `{"ok":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"applied":true,"order_id":"oid"}`, w.Body.String())

	w = post("wh-2", `{"ok":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"duplicate":true,"applied":false}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, post("wh-3", `{"bad":1}`).Code)
	assert.Equal(t, http.StatusInternalServerError, post("wh-4", `{"ok":1}`).Code)
}

func TestAdminDrift(t *testing.T) {
	svc := new(MockDriftService)
	monitor := config.MonitorConfig{Lookback: 24 * time.Hour, VerifyWorkers: 3, VerifyRetries: 1}
	r := gin.New()
	r.GET("/drift", NewAdminHandler(svc, monitor).Drift)

	svc.On("Scan", mock.MatchedBy(func(o service.ScanOptions) bool {
		return o.Verify && o.Workers == 3 && o.Retries == 1 && time.Since(o.Since) > 47*time.Hour
	})).Return(&model.DriftReport{Counts: map[string]int{model.DriftOrderPendingPaymentPaid: 1}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/drift?since=48h&verify=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, response.CodeSuccess, env.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/drift?since=whenever", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/drift?verify=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
