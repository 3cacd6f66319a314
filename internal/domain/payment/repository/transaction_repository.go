package repository

import (
	"context"
	"errors"
	"time"

	"storefront_payments/internal/domain/payment/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyResult 一次回调落库的结果
type ApplyResult struct {
	OrderFound        bool
	OrderID           string
	From              string
	To                string
	Changed           bool
	InvalidTransition bool
}

// TransactionRepository 在同一个数据库事务里推进订单并写 payments 投影
type TransactionRepository interface {
	ApplyEvent(ctx context.Context, event *model.ProviderEvent, target string, now time.Time) (*ApplyResult, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) ApplyEvent(ctx context.Context, event *model.ProviderEvent, target string, now time.Time) (*ApplyResult, error) {
	result := &ApplyResult{To: target}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"})
		switch {
		case event.ExternalID != "" && event.ProviderID != "":
			q = q.Where("client_external_id = ? OR xendit_invoice_id = ?", event.ExternalID, event.ProviderID)
		case event.ExternalID != "":
			q = q.Where("client_external_id = ?", event.ExternalID)
		default:
			q = q.Where("xendit_invoice_id = ?", event.ProviderID)
		}

		err := q.First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		result.OrderFound = true
		result.OrderID = order.ID
		result.From = order.Status

		paidAt := now
		if event.PaidAt != nil {
			paidAt = *event.PaidAt
		}
		changed, err := order.Transition(target, paidAt)
		switch {
		case errors.Is(err, model.ErrInvalidTransition):
			result.InvalidTransition = true
		case err != nil:
			return err
		}
		result.Changed = changed

		if changed {
			updates := map[string]interface{}{
				"status":     order.Status,
				"paid_at":    order.PaidAt,
				"updated_at": now,
			}
			if order.PaymentMethod == "" && event.PaymentMethod != "" {
				updates["payment_method"] = event.PaymentMethod
			}
			if order.PaymentChannel == "" {
				if ch := channelOf(event.Method); ch != "" {
					updates["payment_channel"] = ch
				}
			}
			if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		// 网关状态始终写入投影，即使订单状态不允许流转
		return upsertPayment(tx, &order, event, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func upsertPayment(tx *gorm.DB, order *model.Order, event *model.ProviderEvent, now time.Time) error {
	amount := event.Amount
	if amount.IsZero() {
		amount = order.Amount
	}
	currency := event.Currency
	if currency == "" {
		currency = order.Currency
	}
	orderID := order.ID

	payment := &model.Payment{
		ExternalID:    order.ClientExternalID,
		XenditID:      event.ProviderID,
		OrderID:       &orderID,
		PaymentMethod: event.PaymentMethod,
		Status:        event.Status,
		Amount:        amount,
		Currency:      currency,
		Description:   event.Description,
		PaymentData:   datatypes.JSONMap(model.MethodData(event.Method, event.CheckoutURL)),
		ExpiresAt:     event.Expiry,
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"xendit_id":      gorm.Expr("COALESCE(NULLIF(EXCLUDED.xendit_id, ''), payments.xendit_id)"),
			"order_id":       gorm.Expr("EXCLUDED.order_id"),
			"status":         gorm.Expr("EXCLUDED.status"),
			"payment_method": gorm.Expr("COALESCE(NULLIF(EXCLUDED.payment_method, ''), payments.payment_method)"),
			"payment_data":   gorm.Expr("COALESCE(payments.payment_data, '{}'::jsonb) || EXCLUDED.payment_data"),
			"expires_at":     gorm.Expr("COALESCE(EXCLUDED.expires_at, payments.expires_at)"),
			"updated_at":     now,
		}),
	}).Create(payment).Error
}

func channelOf(m model.MethodDetails) string {
	switch d := m.(type) {
	case model.QRCode:
		return d.ChannelCode
	case model.VirtualAccount:
		return d.BankCode
	case model.EWallet:
		return d.ChannelCode
	case model.OverTheCounter:
		return d.RetailOutlet
	}
	return ""
}
