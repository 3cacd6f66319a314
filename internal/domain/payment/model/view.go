package model

import "time"

// PaymentView 对外返回的统一支付对象
type PaymentView struct {
	ID            string     `json:"id"`
	PaymentMethod string     `json:"payment_method"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	ExternalID    string     `json:"external_id"`
	Created       time.Time  `json:"created"`
	Description   string     `json:"description"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`

	QRString      string `json:"qr_string,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	PaymentCode   string `json:"payment_code,omitempty"`
	RetailOutlet  string `json:"retail_outlet,omitempty"`
	ChannelCode   string `json:"channel_code,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	Source        string `json:"source"`
}

// NewPaymentView 把统一交易转换为接口返回结构
func NewPaymentView(tx *Transaction) PaymentView {
	v := PaymentView{
		ID:            tx.ID,
		PaymentMethod: tx.PaymentMethod,
		Amount:        tx.Amount.InexactFloat64(),
		Currency:      tx.Currency,
		Status:        tx.Status,
		ExternalID:    tx.ExternalID,
		Created:       tx.Created,
		Description:   tx.Description,
		ExpiryDate:    tx.Expiry,
		PaymentURL:    tx.CheckoutURL,
		OrderID:       tx.OrderID,
		Source:        tx.Source,
	}

	switch m := tx.Method.(type) {
	case QRCode:
		v.QRString = m.QRString
		v.ChannelCode = m.ChannelCode
	case VirtualAccount:
		v.BankCode = m.BankCode
		v.AccountNumber = m.AccountNumber
	case EWallet:
		v.ChannelCode = m.ChannelCode
		if v.PaymentURL == "" {
			v.PaymentURL = m.RedirectURL
		}
	case OverTheCounter:
		v.RetailOutlet = m.RetailOutlet
		v.PaymentCode = m.PaymentCode
	}

	if v.PaymentMethod == "" && tx.Method != nil {
		v.PaymentMethod = tx.Method.Kind()
	}
	return v
}
