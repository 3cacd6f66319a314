package handler

import (
	"io"
	"net/http"

	"storefront_payments/internal/domain/payment/service"
	"storefront_payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// 回调体上限
const maxCallbackBytes = 1 << 20

type WebhookHandler struct {
	service service.WebhookService
}

func NewWebhookHandler(s service.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: s}
}

// Receive 网关回调
// @Summary 网关回调
// @Description 校验 x-callback-token 后按 webhook-id 去重并推进订单状态
// @Tags Payment
// @Accept json
// @Produce json
// @Param x-callback-token header string true "回调 token"
// @Param webhook-id header string false "回调 id"
// @Success 200 {object} service.WebhookResult
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/xendit/webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrCallbackPayloadInvalid, "unable to read body")
		return
	}

	result, err := h.service.HandleCallback(c.Request.Context(), c.GetHeader("webhook-id"), body)
	if err != nil {
		// 非 2xx 网关会重试
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
