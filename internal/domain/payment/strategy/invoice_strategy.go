package strategy

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/pkg/xendit"

	"github.com/shopspring/decimal"
)

type invoiceBank struct {
	BankCode          string `json:"bank_code"`
	CollectionType    string `json:"collection_type"`
	BankAccountNumber string `json:"bank_account_number"`
	AccountHolderName string `json:"account_holder_name"`
}

type invoiceRetailOutlet struct {
	RetailOutletName string `json:"retail_outlet_name"`
	PaymentCode      string `json:"payment_code"`
}

// invoice GET /v2/invoices/{id} 响应，也是旧版回调体
type invoice struct {
	ID                     string                `json:"id"`
	ExternalID             string                `json:"external_id"`
	Status                 string                `json:"status"`
	Amount                 decimal.Decimal       `json:"amount"`
	Currency               string                `json:"currency"`
	Description            string                `json:"description"`
	InvoiceURL             string                `json:"invoice_url"`
	ExpiryDate             *time.Time            `json:"expiry_date"`
	Created                time.Time             `json:"created"`
	PaidAt                 *time.Time            `json:"paid_at"`
	PaymentMethod          string                `json:"payment_method"`
	BankCode               string                `json:"bank_code"`
	PaymentChannel         string                `json:"payment_channel"`
	PaymentDestination     string                `json:"payment_destination"`
	RetailOutletName       string                `json:"retail_outlet_name"`
	EWalletType            string                `json:"ewallet_type"`
	QRString               string                `json:"qr_string"`
	AvailableBanks         []invoiceBank         `json:"available_banks"`
	AvailableRetailOutlets []invoiceRetailOutlet `json:"available_retail_outlets"`

	// 仅用于识别新版回调
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// InvoiceStrategy 旧版 invoice API
type InvoiceStrategy struct {
	client Fetcher
}

func NewInvoiceStrategy(client Fetcher) *InvoiceStrategy {
	return &InvoiceStrategy{client: client}
}

func (s *InvoiceStrategy) Name() string {
	return model.SourceInvoice
}

func (s *InvoiceStrategy) Lookup(ctx context.Context, id string) (*model.Transaction, error) {
	var inv invoice
	if err := fetch(ctx, s.client, s.Name(), "/v2/invoices/"+xendit.EscapeID(id), &inv); err != nil {
		return nil, err
	}

	return &model.Transaction{
		ID:            inv.ID,
		ExternalID:    inv.ExternalID,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		Status:        strings.ToUpper(inv.Status),
		PaymentMethod: inv.PaymentMethod,
		Description:   inv.Description,
		Created:       inv.Created,
		Expiry:        inv.ExpiryDate,
		CheckoutURL:   inv.InvoiceURL,
		Source:        model.SourceInvoice,
		Method:        inv.method(),
	}, nil
}

func (s *InvoiceStrategy) ParseCallback(body []byte) (*model.ProviderEvent, error) {
	var inv invoice
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, ErrUnrecognizedCallback
	}
	if inv.Event != "" || len(inv.Data) > 0 || inv.ID == "" || inv.ExternalID == "" || inv.Status == "" {
		return nil, ErrUnrecognizedCallback
	}

	return &model.ProviderEvent{
		ProviderID:    inv.ID,
		ExternalID:    inv.ExternalID,
		Status:        strings.ToUpper(inv.Status),
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		PaymentMethod: inv.PaymentMethod,
		Description:   inv.Description,
		PaidAt:        inv.PaidAt,
		Expiry:        inv.ExpiryDate,
		CheckoutURL:   inv.InvoiceURL,
		Method:        inv.method(),
		Source:        model.SourceInvoice,
	}, nil
}

// method 根据 invoice 的支付方式取出专属字段
func (inv *invoice) method() model.MethodDetails {
	switch strings.ToUpper(inv.PaymentMethod) {
	case "QR_CODE", "QRIS":
		return model.QRCode{QRString: inv.QRString, ChannelCode: inv.PaymentChannel}
	case "EWALLET":
		channel := inv.PaymentChannel
		if channel == "" {
			channel = inv.EWalletType
		}
		return model.EWallet{ChannelCode: channel, RedirectURL: inv.InvoiceURL}
	case "RETAIL_OUTLET":
		return inv.retailOutlet()
	}

	if inv.BankCode != "" || strings.EqualFold(inv.PaymentMethod, "BANK_TRANSFER") {
		return inv.virtualAccount()
	}
	return nil
}

func (inv *invoice) virtualAccount() model.MethodDetails {
	bank := inv.BankCode
	if bank == "" {
		bank = inv.PaymentChannel
	}
	account := inv.PaymentDestination
	for _, b := range inv.AvailableBanks {
		if b.BankCode == bank && b.BankAccountNumber != "" {
			account = b.BankAccountNumber
			break
		}
	}
	if bank == "" && account == "" {
		return nil
	}
	return model.VirtualAccount{BankCode: bank, AccountNumber: account}
}

func (inv *invoice) retailOutlet() model.MethodDetails {
	outlet := inv.RetailOutletName
	if outlet == "" {
		outlet = inv.PaymentChannel
	}
	code := inv.PaymentDestination
	for _, o := range inv.AvailableRetailOutlets {
		if o.RetailOutletName == outlet && o.PaymentCode != "" {
			code = o.PaymentCode
			break
		}
	}
	return model.OverTheCounter{RetailOutlet: outlet, PaymentCode: code}
}

var _ LookupStrategy = (*InvoiceStrategy)(nil)
