package common

import (
	"context"
	"database/sql"

	_ "storefront_payments/docs"
	commonHandler "storefront_payments/internal/pkg/common"
	"storefront_payments/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// CommonModule 通用功能模块: 健康检查、指标、接口文档
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	checks := make(map[string]commonHandler.Pinger)
	var stats func() sql.DBStats
	if ctx.DB != nil {
		if sqlDB, err := ctx.DB.DB(); err == nil {
			checks["postgres"] = sqlDB
			stats = sqlDB.Stats
		}
	}
	if ctx.Redis != nil {
		checks["redis"] = commonHandler.PingFunc(func(c context.Context) error {
			return ctx.Redis.Ping(c).Err()
		})
	}

	gatherer := ctx.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	setupRoutes(ctx.Router, commonHandler.NewHealthHandler(checks, stats), gatherer)
	return nil
}

func setupRoutes(r *gin.Engine, h *commonHandler.HealthHandler, gatherer prometheus.Gatherer) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
