package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 交易数据来源
const (
	SourcePayments       = "payments"
	SourceOrders         = "orders"
	SourcePaymentRequest = "payment_request"
	SourceInvoice        = "invoice"
)

// 支付方式类型
const (
	MethodQRCode         = "QR_CODE"
	MethodVirtualAccount = "VIRTUAL_ACCOUNT"
	MethodEWallet        = "EWALLET"
	MethodOverTheCounter = "OVER_THE_COUNTER"
)

// MethodDetails 支付方式专属字段，按 Kind 区分
type MethodDetails interface {
	Kind() string
}

type QRCode struct {
	QRString    string
	ChannelCode string
}

func (QRCode) Kind() string { return MethodQRCode }

type VirtualAccount struct {
	BankCode      string
	AccountNumber string
}

func (VirtualAccount) Kind() string { return MethodVirtualAccount }

type EWallet struct {
	ChannelCode string
	RedirectURL string
}

func (EWallet) Kind() string { return MethodEWallet }

type OverTheCounter struct {
	RetailOutlet string
	PaymentCode  string
}

func (OverTheCounter) Kind() string { return MethodOverTheCounter }

// Transaction 与来源无关的统一交易表示
type Transaction struct {
	ID            string
	ExternalID    string
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	Status        string
	PaymentMethod string
	Description   string
	Created       time.Time
	Expiry        *time.Time
	CheckoutURL   string
	Source        string
	Method        MethodDetails // nil 表示没有专属字段
}

// TransactionFromPayment 从 payments 记录构造
func TransactionFromPayment(p *Payment) *Transaction {
	tx := &Transaction{
		ID:            p.XenditID,
		ExternalID:    p.ExternalID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		PaymentMethod: p.PaymentMethod,
		Description:   p.Description,
		Created:       p.CreatedAt,
		Expiry:        p.ExpiresAt,
		Source:        SourcePayments,
	}
	if tx.ID == "" {
		tx.ID = p.ExternalID
	}
	if p.OrderID != nil {
		tx.OrderID = *p.OrderID
	}

	data := p.PaymentData
	tx.Method = MethodFromData(data, p.PaymentMethod)
	tx.CheckoutURL = firstString(data, "payment_url", "checkout_url", "invoice_url")
	if tx.Expiry == nil {
		if s := dataString(data, "expires_at"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				tx.Expiry = &t
			}
		}
	}
	return tx
}

// TransactionFromOrder 从 orders 记录构造
func TransactionFromOrder(o *Order) *Transaction {
	tx := &Transaction{
		ID:            o.ID,
		ExternalID:    o.ClientExternalID,
		OrderID:       o.ID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Status:        strings.ToUpper(o.Status),
		PaymentMethod: o.PaymentMethod,
		Description:   o.Description,
		Created:       o.CreatedAt,
		Expiry:        o.ExpiresAt,
		Source:        SourceOrders,
	}
	switch {
	case o.XenditInvoiceID != nil && *o.XenditInvoiceID != "":
		tx.ID = *o.XenditInvoiceID
	case o.ClientExternalID != "":
		tx.ID = o.ClientExternalID
	}
	if o.XenditInvoiceURL != nil {
		tx.CheckoutURL = *o.XenditInvoiceURL
	}
	return tx
}

// MethodFromData 根据 payment_data 中出现的字段和记录的支付方式判断支付方式。
// qr_string 优先，保证原值透传；有 bank_code 或银行类支付方式的记录一律按虚拟账户处理，
// 即使账号尚未生成。
func MethodFromData(data map[string]interface{}, paymentMethod string) MethodDetails {
	if qr := dataString(data, "qr_string"); qr != "" {
		return QRCode{QRString: qr, ChannelCode: dataString(data, "channel_code")}
	}
	acct := firstString(data, "account_number", "virtual_account_number")
	bank := dataString(data, "bank_code")
	if acct != "" || bank != "" || isBankMethod(paymentMethod) {
		if bank == "" && isBankMethod(paymentMethod) {
			bank = dataString(data, "channel_code")
		}
		if acct == "" && bank == "" {
			return nil
		}
		return VirtualAccount{BankCode: bank, AccountNumber: acct}
	}
	if code, outlet := dataString(data, "payment_code"), dataString(data, "retail_outlet"); code != "" || outlet != "" {
		return OverTheCounter{RetailOutlet: outlet, PaymentCode: code}
	}
	if ch := dataString(data, "channel_code"); ch != "" {
		return EWallet{ChannelCode: ch, RedirectURL: firstString(data, "redirect_url", "payment_url", "checkout_url")}
	}
	return nil
}

func isBankMethod(paymentMethod string) bool {
	switch strings.ToUpper(paymentMethod) {
	case MethodVirtualAccount, "BANK_TRANSFER":
		return true
	}
	return false
}

// MethodData 把支付方式转换为 payment_data 字段，MethodFromData 的逆过程
func MethodData(m MethodDetails, checkoutURL string) map[string]interface{} {
	data := make(map[string]interface{})
	switch d := m.(type) {
	case QRCode:
		putString(data, "qr_string", d.QRString)
		putString(data, "channel_code", d.ChannelCode)
	case VirtualAccount:
		putString(data, "bank_code", d.BankCode)
		putString(data, "account_number", d.AccountNumber)
	case EWallet:
		putString(data, "channel_code", d.ChannelCode)
		putString(data, "redirect_url", d.RedirectURL)
	case OverTheCounter:
		putString(data, "retail_outlet", d.RetailOutlet)
		putString(data, "payment_code", d.PaymentCode)
	}
	putString(data, "payment_url", checkoutURL)
	return data
}

func dataString(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		// jsonb 里偶尔把账号存成数字
		return decimal.NewFromFloat(s).String()
	default:
		return fmt.Sprint(s)
	}
}

func firstString(data map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := dataString(data, k); s != "" {
			return s
		}
	}
	return ""
}

func putString(data map[string]interface{}, key, value string) {
	if value != "" {
		data[key] = value
	}
}
