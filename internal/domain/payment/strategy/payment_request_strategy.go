package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/pkg/xendit"

	"github.com/shopspring/decimal"
)

type channelProperties struct {
	QRString             string     `json:"qr_string"`
	VirtualAccountNumber string     `json:"virtual_account_number"`
	PaymentCode          string     `json:"payment_code"`
	ExpiresAt            *time.Time `json:"expires_at"`
}

type channelMethod struct {
	ChannelCode       string            `json:"channel_code"`
	ChannelProperties channelProperties `json:"channel_properties"`
}

type paymentMethod struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	QRCode         *channelMethod `json:"qr_code"`
	VirtualAccount *channelMethod `json:"virtual_account"`
	EWallet        *channelMethod `json:"ewallet"`
	OverTheCounter *channelMethod `json:"over_the_counter"`
}

type prAction struct {
	Action  string `json:"action"`
	URLType string `json:"url_type"`
	URL     string `json:"url"`
	Method  string `json:"method"`
}

// paymentRequest GET /payment_requests/{id} 响应
type paymentRequest struct {
	ID               string          `json:"id"`
	PaymentRequestID string          `json:"payment_request_id"` // 回调 data 中才有
	ReferenceID      string          `json:"reference_id"`
	Currency         string          `json:"currency"`
	Amount           decimal.Decimal `json:"amount"`
	Status           string          `json:"status"`
	Description      string          `json:"description"`
	Created          time.Time       `json:"created"`
	Updated          *time.Time      `json:"updated"`
	PaymentMethod    *paymentMethod  `json:"payment_method"`
	Actions          []prAction      `json:"actions"`
}

type paymentRequestCallback struct {
	Event   string          `json:"event"`
	Created *time.Time      `json:"created"`
	Data    *paymentRequest `json:"data"`
}

// PaymentRequestStrategy 新一代 payment request API
type PaymentRequestStrategy struct {
	client Fetcher
}

func NewPaymentRequestStrategy(client Fetcher) *PaymentRequestStrategy {
	return &PaymentRequestStrategy{client: client}
}

func (s *PaymentRequestStrategy) Name() string {
	return model.SourcePaymentRequest
}

func (s *PaymentRequestStrategy) Lookup(ctx context.Context, id string) (*model.Transaction, error) {
	var pr paymentRequest
	if err := fetch(ctx, s.client, s.Name(), "/payment_requests/"+xendit.EscapeID(id), &pr); err != nil {
		return nil, err
	}

	method, expiry := pr.method()
	tx := &model.Transaction{
		ID:          pr.ID,
		ExternalID:  pr.ReferenceID,
		Amount:      pr.Amount,
		Currency:    pr.Currency,
		Status:      strings.ToUpper(pr.Status),
		Description: pr.Description,
		Created:     pr.Created,
		Expiry:      expiry,
		Source:      model.SourcePaymentRequest,
		Method:      method,
	}
	if pr.PaymentMethod != nil {
		tx.PaymentMethod = pr.PaymentMethod.Type
	}
	if ew, ok := method.(model.EWallet); ok {
		tx.CheckoutURL = ew.RedirectURL
	}
	return tx, nil
}

func (s *PaymentRequestStrategy) ParseCallback(body []byte) (*model.ProviderEvent, error) {
	var cb paymentRequestCallback
	if err := json.Unmarshal(body, &cb); err != nil || cb.Event == "" || cb.Data == nil {
		return nil, ErrUnrecognizedCallback
	}

	pr := cb.Data
	providerID := pr.PaymentRequestID
	if providerID == "" {
		providerID = pr.ID
	}
	if pr.ReferenceID == "" && providerID == "" {
		return nil, fmt.Errorf("payment request callback without identifiers: %w", ErrUnrecognizedCallback)
	}

	method, expiry := pr.method()
	event := &model.ProviderEvent{
		ProviderID:  providerID,
		ExternalID:  pr.ReferenceID,
		Status:      strings.ToUpper(pr.Status),
		Amount:      pr.Amount,
		Currency:    pr.Currency,
		Description: pr.Description,
		Expiry:      expiry,
		Method:      method,
		Source:      model.SourcePaymentRequest,
	}
	if pr.PaymentMethod != nil {
		event.PaymentMethod = pr.PaymentMethod.Type
	}
	if ew, ok := method.(model.EWallet); ok {
		event.CheckoutURL = ew.RedirectURL
	}
	if status, ok := model.OrderStatusFromProvider(event.Status); ok && status == model.OrderStatusPaid {
		event.PaidAt = pr.Updated
		if event.PaidAt == nil {
			event.PaidAt = cb.Created
		}
	}
	return event, nil
}

// method 按 payment_method.type 取出专属字段和过期时间
func (pr *paymentRequest) method() (model.MethodDetails, *time.Time) {
	pm := pr.PaymentMethod
	if pm == nil {
		return nil, nil
	}

	switch strings.ToUpper(pm.Type) {
	case model.MethodQRCode:
		if pm.QRCode == nil {
			return nil, nil
		}
		return model.QRCode{
			QRString:    pm.QRCode.ChannelProperties.QRString,
			ChannelCode: pm.QRCode.ChannelCode,
		}, pm.QRCode.ChannelProperties.ExpiresAt
	case model.MethodVirtualAccount:
		if pm.VirtualAccount == nil {
			return nil, nil
		}
		return model.VirtualAccount{
			BankCode:      pm.VirtualAccount.ChannelCode,
			AccountNumber: pm.VirtualAccount.ChannelProperties.VirtualAccountNumber,
		}, pm.VirtualAccount.ChannelProperties.ExpiresAt
	case model.MethodEWallet:
		if pm.EWallet == nil {
			return nil, nil
		}
		return model.EWallet{
			ChannelCode: pm.EWallet.ChannelCode,
			RedirectURL: authURL(pr.Actions),
		}, pm.EWallet.ChannelProperties.ExpiresAt
	case model.MethodOverTheCounter:
		if pm.OverTheCounter == nil {
			return nil, nil
		}
		return model.OverTheCounter{
			RetailOutlet: pm.OverTheCounter.ChannelCode,
			PaymentCode:  pm.OverTheCounter.ChannelProperties.PaymentCode,
		}, pm.OverTheCounter.ChannelProperties.ExpiresAt
	}
	return nil, nil
}

// authURL 在 actions 中找 AUTH 跳转地址，优先 WEB
func authURL(actions []prAction) string {
	var fallback string
	for _, a := range actions {
		if !strings.EqualFold(a.Action, "AUTH") || a.URL == "" {
			continue
		}
		if strings.EqualFold(a.URLType, "WEB") {
			return a.URL
		}
		if fallback == "" {
			fallback = a.URL
		}
	}
	return fallback
}

var _ LookupStrategy = (*PaymentRequestStrategy)(nil)
