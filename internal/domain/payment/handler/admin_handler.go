package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront_payments/internal/domain/payment/service"
	"storefront_payments/internal/pkg/config"
	"storefront_payments/pkg/response"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	service service.DriftService
	monitor config.MonitorConfig
}

func NewAdminHandler(s service.DriftService, monitor config.MonitorConfig) *AdminHandler {
	return &AdminHandler{service: s, monitor: monitor}
}

// Drift 订单与支付状态漂移巡检
// @Summary 状态漂移巡检
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param since query string false "回看时长 (24h) 或起始时间 (RFC3339)"
// @Param verify query bool false "是否向网关核实"
// @Success 200 {object} response.Response{data=model.DriftReport}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/admin/reconciliation/drift [get]
func (h *AdminHandler) Drift(c *gin.Context) {
	now := time.Now()
	since := now.Add(-h.monitor.Lookback)
	if v := c.Query("since"); v != "" {
		t, err := service.ParseSince(v, now)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
			return
		}
		since = t
	}

	verify := false
	if v := c.Query("verify"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "verify must be a boolean")
			return
		}
		verify = b
	}

	report, err := h.service.Scan(c.Request.Context(), service.ScanOptions{
		Since:   since,
		Verify:  verify,
		Workers: h.monitor.VerifyWorkers,
		Retries: h.monitor.VerifyRetries,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, report)
}
