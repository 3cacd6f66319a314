package model

import "time"

// 漂移类型
const (
	DriftOrderPendingPaymentPaid = "order_pending_payment_paid"
	DriftPaymentPaidWithoutOrder = "payment_paid_without_order"
	DriftOrderPaidPaymentUnpaid  = "order_paid_payment_unpaid"
	DriftOrderClosedPaymentPaid  = "order_closed_payment_paid"
)

// DriftKinds 所有漂移类型，报告里即使为 0 也输出
var DriftKinds = []string{
	DriftOrderPendingPaymentPaid,
	DriftPaymentPaidWithoutOrder,
	DriftOrderPaidPaymentUnpaid,
	DriftOrderClosedPaymentPaid,
}

// OrderSnapshot 巡检时读取的订单字段
type OrderSnapshot struct {
	ID               string    `db:"id" json:"id"`
	ClientExternalID string    `db:"client_external_id" json:"client_external_id"`
	XenditInvoiceID  string    `db:"xendit_invoice_id" json:"xendit_invoice_id,omitempty"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// PaymentSnapshot 巡检时读取的支付字段
type PaymentSnapshot struct {
	ID         string    `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	XenditID   string    `db:"xendit_id" json:"xendit_id,omitempty"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Discrepancy 一条订单与支付不一致的记录
type Discrepancy struct {
	Kind       string           `json:"kind"`
	ExternalID string           `json:"external_id"`
	Order      *OrderSnapshot   `json:"order,omitempty"`
	Payment    *PaymentSnapshot `json:"payment,omitempty"`

	// 开启 verify 时回填网关侧状态
	ProviderStatus string `json:"provider_status,omitempty"`
	ProviderSource string `json:"provider_source,omitempty"`
	VerifyError    string `json:"verify_error,omitempty"`
}

// LookupID 向网关核实时使用的 id，优先网关交易 id
func (d *Discrepancy) LookupID() string {
	if d.Payment != nil && d.Payment.XenditID != "" {
		return d.Payment.XenditID
	}
	if d.Order != nil && d.Order.XenditInvoiceID != "" {
		return d.Order.XenditInvoiceID
	}
	return d.ExternalID
}

// DriftReport 一次巡检的结果
type DriftReport struct {
	Since           time.Time      `json:"since"`
	ScannedAt       time.Time      `json:"scanned_at"`
	OrdersScanned   int            `json:"orders_scanned"`
	PaymentsScanned int            `json:"payments_scanned"`
	Verified        bool           `json:"verified"`
	Counts          map[string]int `json:"counts"`
	Discrepancies   []*Discrepancy `json:"discrepancies"`
}

// HasDrift 是否存在不一致
func (r *DriftReport) HasDrift() bool {
	return len(r.Discrepancies) > 0
}
