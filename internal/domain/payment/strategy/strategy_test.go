package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/pkg/xendit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a mock of Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Get(ctx context.Context, api, path string) (json.RawMessage, error) {
	args := m.Called(api, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return json.RawMessage(args.String(0)), args.Error(1)
}

const qrPaymentRequest = `{
  "id": "pr-qr-1",
  "reference_id": "order-ext-1",
  "currency": "IDR",
  "amount": 150000,
  "status": "PENDING",
  "description": "Akun ML Sultan",
  "created": "2025-03-01T10:00:00.000Z",
  "payment_method": {
    "id": "pm-1",
    "type": "QR_CODE",
    "qr_code": {
      "channel_code": "QRIS",
      "channel_properties": {"qr_string": "00020101021226", "expires_at": "2025-03-01T10:30:00Z"}
    }
  }
}`

func TestPaymentRequestStrategy_Lookup(t *testing.T) {
	t.Run("qr code", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "payment_request", "/payment_requests/pr-qr-1").Return(qrPaymentRequest, nil)

		tx, err := NewPaymentRequestStrategy(f).Lookup(context.Background(), "pr-qr-1")
		require.NoError(t, err)
		assert.Equal(t, "pr-qr-1", tx.ID)
		assert.Equal(t, "order-ext-1", tx.ExternalID)
		assert.Equal(t, "150000", tx.Amount.String())
		assert.Equal(t, "QR_CODE", tx.PaymentMethod)
		assert.Equal(t, model.QRCode{QRString: "00020101021226", ChannelCode: "QRIS"}, tx.Method)
		require.NotNil(t, tx.Expiry)
		assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), tx.Expiry.UTC())
		assert.Equal(t, model.SourcePaymentRequest, tx.Source)
		f.AssertExpectations(t)
	})

	t.Run("virtual account", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "payment_request", "/payment_requests/pr-va").Return(`{
			"id": "pr-va", "status": "PENDING", "amount": 50000,
			"payment_method": {"type": "VIRTUAL_ACCOUNT", "virtual_account": {
				"channel_code": "BNI",
				"channel_properties": {"virtual_account_number": "8808999912345678"}
			}}
		}`, nil)

		tx, err := NewPaymentRequestStrategy(f).Lookup(context.Background(), "pr-va")
		require.NoError(t, err)
		assert.Equal(t, model.VirtualAccount{BankCode: "BNI", AccountNumber: "8808999912345678"}, tx.Method)
	})

	t.Run("ewallet prefers web auth action", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "payment_request", "/payment_requests/pr-ew").Return(`{
			"id": "pr-ew", "status": "REQUIRES_ACTION",
			"payment_method": {"type": "EWALLET", "ewallet": {"channel_code": "SHOPEEPAY"}},
			"actions": [
				{"action": "AUTH", "url_type": "DEEPLINK", "url": "shopeeid://pay"},
				{"action": "AUTH", "url_type": "WEB", "url": "https://wallet.example/pay"}
			]
		}`, nil)

		tx, err := NewPaymentRequestStrategy(f).Lookup(context.Background(), "pr-ew")
		require.NoError(t, err)
		assert.Equal(t, model.EWallet{ChannelCode: "SHOPEEPAY", RedirectURL: "https://wallet.example/pay"}, tx.Method)
		assert.Equal(t, "https://wallet.example/pay", tx.CheckoutURL)
	})

	t.Run("over the counter", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "payment_request", "/payment_requests/pr-otc").Return(`{
			"id": "pr-otc", "status": "PENDING",
			"payment_method": {"type": "OVER_THE_COUNTER", "over_the_counter": {
				"channel_code": "INDOMARET", "channel_properties": {"payment_code": "TEST-1"}
			}}
		}`, nil)

		tx, err := NewPaymentRequestStrategy(f).Lookup(context.Background(), "pr-otc")
		require.NoError(t, err)
		assert.Equal(t, model.OverTheCounter{RetailOutlet: "INDOMARET", PaymentCode: "TEST-1"}, tx.Method)
	})

	t.Run("error translation", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "payment_request", "/payment_requests/missing").Return(nil, xendit.ErrNotFound)
		f.On("Get", "payment_request", "/payment_requests/nokey").Return(nil, xendit.ErrNoCredentials)
		f.On("Get", "payment_request", "/payment_requests/down").Return(nil, &xendit.APIError{StatusCode: 503})

		s := NewPaymentRequestStrategy(f)
		_, err := s.Lookup(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Lookup(context.Background(), "nokey")
		assert.ErrorIs(t, err, ErrNotConfigured)
		_, err = s.Lookup(context.Background(), "down")
		var apiErr *xendit.APIError
		assert.True(t, errors.As(err, &apiErr))
	})
}

func TestInvoiceStrategy_Lookup(t *testing.T) {
	t.Run("bank transfer resolves account from available banks", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "invoice", "/v2/invoices/inv_1").Return(`{
			"id": "inv_1", "external_id": "order-ext-9", "status": "PENDING",
			"amount": 75000, "currency": "IDR", "description": "Sewa akun 3 hari",
			"invoice_url": "https://checkout.xendit.co/web/inv_1",
			"expiry_date": "2025-03-02T10:00:00.000Z",
			"created": "2025-03-01T10:00:00.000Z",
			"payment_method": "BANK_TRANSFER", "bank_code": "MANDIRI",
			"available_banks": [
				{"bank_code": "BCA", "bank_account_number": "111"},
				{"bank_code": "MANDIRI", "bank_account_number": "888899990000"}
			]
		}`, nil)

		tx, err := NewInvoiceStrategy(f).Lookup(context.Background(), "inv_1")
		require.NoError(t, err)
		assert.Equal(t, "inv_1", tx.ID)
		assert.Equal(t, "order-ext-9", tx.ExternalID)
		assert.Equal(t, "https://checkout.xendit.co/web/inv_1", tx.CheckoutURL)
		assert.Equal(t, model.VirtualAccount{BankCode: "MANDIRI", AccountNumber: "888899990000"}, tx.Method)
		require.NotNil(t, tx.Expiry)
		assert.Equal(t, model.SourceInvoice, tx.Source)
	})

	t.Run("unpaid invoice has no method", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "invoice", "/v2/invoices/inv_2").Return(`{"id": "inv_2", "status": "PENDING", "amount": 1000}`, nil)

		tx, err := NewInvoiceStrategy(f).Lookup(context.Background(), "inv_2")
		require.NoError(t, err)
		assert.Nil(t, tx.Method)
	})

	t.Run("retail outlet", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "invoice", "/v2/invoices/inv_3").Return(`{
			"id": "inv_3", "status": "PENDING", "payment_method": "RETAIL_OUTLET", "payment_channel": "ALFAMART",
			"available_retail_outlets": [{"retail_outlet_name": "ALFAMART", "payment_code": "ALF123"}]
		}`, nil)

		tx, err := NewInvoiceStrategy(f).Lookup(context.Background(), "inv_3")
		require.NoError(t, err)
		assert.Equal(t, model.OverTheCounter{RetailOutlet: "ALFAMART", PaymentCode: "ALF123"}, tx.Method)
	})

	t.Run("qris invoice", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Get", "invoice", "/v2/invoices/inv_4").Return(`{"id": "inv_4", "status": "PAID", "payment_method": "QR_CODE", "payment_channel": "QRIS"}`, nil)

		tx, err := NewInvoiceStrategy(f).Lookup(context.Background(), "inv_4")
		require.NoError(t, err)
		assert.Equal(t, model.QRCode{ChannelCode: "QRIS"}, tx.Method)
	})
}

func TestParseCallback(t *testing.T) {
	f := new(MockFetcher)
	strategies := []LookupStrategy{NewPaymentRequestStrategy(f), NewInvoiceStrategy(f)}

	t.Run("legacy invoice callback", func(t *testing.T) {
		body := []byte(`{
			"id": "inv_1", "external_id": "order-ext-9", "status": "PAID",
			"amount": 75000, "paid_amount": 75000, "currency": "IDR",
			"payment_method": "BANK_TRANSFER", "bank_code": "PERMATA",
			"payment_channel": "PERMATA", "payment_destination": "8214000000",
			"paid_at": "2025-03-01T10:05:00.000Z"
		}`)
		event, err := ParseCallback(strategies, body)
		require.NoError(t, err)
		assert.Equal(t, model.SourceInvoice, event.Source)
		assert.Equal(t, "inv_1", event.ProviderID)
		assert.Equal(t, "order-ext-9", event.ExternalID)
		assert.Equal(t, "PAID", event.Status)
		require.NotNil(t, event.PaidAt)
		assert.Equal(t, model.VirtualAccount{BankCode: "PERMATA", AccountNumber: "8214000000"}, event.Method)
	})

	t.Run("payment request callback", func(t *testing.T) {
		body := []byte(`{
			"event": "payment.succeeded",
			"created": "2025-03-01T10:05:00Z",
			"data": {
				"id": "py-1", "payment_request_id": "pr-qr-1", "reference_id": "order-ext-1",
				"status": "SUCCEEDED", "amount": 150000, "currency": "IDR",
				"payment_method": {"type": "QR_CODE", "qr_code": {"channel_code": "QRIS"}}
			}
		}`)
		event, err := ParseCallback(strategies, body)
		require.NoError(t, err)
		assert.Equal(t, model.SourcePaymentRequest, event.Source)
		assert.Equal(t, "pr-qr-1", event.ProviderID)
		assert.Equal(t, "order-ext-1", event.ExternalID)
		assert.Equal(t, "SUCCEEDED", event.Status)
		require.NotNil(t, event.PaidAt)
	})

	t.Run("foreign payload", func(t *testing.T) {
		_, err := ParseCallback(strategies, []byte(`{"hello": "world"}`))
		assert.ErrorIs(t, err, ErrUnrecognizedCallback)

		_, err = ParseCallback(strategies, []byte(`not json`))
		assert.ErrorIs(t, err, ErrUnrecognizedCallback)
	})
}

func TestNewStrategies(t *testing.T) {
	strategies := NewStrategies(new(MockFetcher))
	require.Len(t, strategies, 2)
	assert.Equal(t, model.SourcePaymentRequest, strategies[0].Name())
	assert.Equal(t, model.SourceInvoice, strategies[1].Name())
}
