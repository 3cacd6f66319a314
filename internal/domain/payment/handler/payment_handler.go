package handler

import (
	"errors"
	"net/http"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/domain/payment/service"
	"storefront_payments/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service service.PaymentLookupService
}

func NewPaymentHandler(s service.PaymentLookupService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

// GetPayment 查询统一支付对象
// @Summary 查询支付
// @Description 依次查询 payments、orders、网关 payment request 与 invoice API
// @Tags Payment
// @Produce json
// @Param id query string true "交易 id (xendit id / external id / 订单 id)"
// @Success 200 {object} model.PaymentView
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/xendit/get-payment [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	tx, err := h.service.GetPayment(c.Request.Context(), c.Query("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	// 前端直接消费该对象，不套统一响应结构
	c.JSON(http.StatusOK, model.NewPaymentView(tx))
}

// writeError 把服务层错误映射为 HTTP 状态码和业务码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidID):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	case errors.Is(err, service.ErrCallbackPayloadInvalid):
		response.Error(c, http.StatusBadRequest, response.ErrCallbackPayloadInvalid, "unrecognized callback payload")
	case errors.Is(err, service.ErrPaymentNotFound):
		response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, "payment not found")
	case errors.Is(err, service.ErrProviderUnavailable):
		response.Error(c, http.StatusBadGateway, response.ErrProviderUnavailable, "payment provider unavailable")
	case errors.Is(err, service.ErrProviderNotConfigured):
		response.Error(c, http.StatusInternalServerError, response.ErrProviderNotConfigured, "payment provider not configured")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "internal server error")
	}
}
