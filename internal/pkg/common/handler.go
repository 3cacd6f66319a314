package handler

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 可探活的依赖
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc 把函数适配为 Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// CheckResult 单个依赖的探活结果
type CheckResult struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// HealthHandler 并发探测所有依赖
type HealthHandler struct {
	checks  map[string]Pinger
	dbStats func() sql.DBStats
	timeout time.Duration
}

func NewHealthHandler(checks map[string]Pinger, dbStats func() sql.DBStats) *HealthHandler {
	return &HealthHandler{checks: checks, dbStats: dbStats, timeout: 2 * time.Second}
}

// Health 健康检查
// @Summary 健康检查
// @Tags Common
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(h.checks))
		healthy = true
	)

	for name, p := range h.checks {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			start := time.Now()
			err := p.PingContext(ctx)

			res := CheckResult{Status: "up", Latency: time.Since(start).String()}
			if err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if err != nil {
				healthy = false
			}
		}(name, p)
	}
	wg.Wait()

	body := gin.H{"status": "ok", "checks": results}
	if h.dbStats != nil {
		s := h.dbStats()
		body["db_pool"] = gin.H{
			"open":      s.OpenConnections,
			"in_use":    s.InUse,
			"idle":      s.Idle,
			"wait":      s.WaitCount,
			"wait_time": s.WaitDuration.String(),
		}
	}

	if !healthy {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
