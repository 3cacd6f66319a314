package payment

import (
	"storefront_payments/internal/domain/payment/handler"
	"storefront_payments/internal/domain/payment/repository"
	"storefront_payments/internal/domain/payment/service"
	"storefront_payments/internal/domain/payment/strategy"
	"storefront_payments/internal/pkg/middleware"
	"storefront_payments/internal/pkg/registry"
	"storefront_payments/internal/pkg/xendit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PaymentModule 支付对账模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config
	log := zap.NewNop()
	if ctx.Logger != nil {
		log = ctx.Logger.Named("payment")
	}

	// 1. 依赖注入
	client := xendit.NewClient(cfg.Xendit.SecretKey, cfg.Xendit.BaseURL, cfg.Xendit.Timeout, xendit.WithMetrics(ctx.Metrics))
	if !client.Configured() {
		// 本地记录仍可查询，网关层在需要时返回 not configured
		log.Warn("xendit secret key not configured, provider lookups disabled")
	}
	strategies := strategy.NewStrategies(client)

	lookup := service.NewPaymentLookupService(
		repository.NewPaymentRepository(ctx.DB),
		repository.NewOrderRepository(ctx.DB),
		strategies, log, ctx.Metrics,
	)
	webhook := service.NewWebhookService(strategies, repository.NewTransactionRepository(ctx.DB), ctx.Cache, log, ctx.Metrics)

	// 2. 路由注册
	api := ctx.Router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)))
	setupRoutes(api, handler.NewPaymentHandler(lookup), handler.NewWebhookHandler(webhook), cfg.Xendit.CallbackToken)

	if cfg.JWT.Secret == "" || ctx.SQLX == nil {
		log.Warn("admin reconciliation endpoint disabled", zap.Bool("jwt_configured", cfg.JWT.Secret != ""))
		return nil
	}
	drift := service.NewDriftService(repository.NewDriftRepository(ctx.SQLX), lookup, log, ctx.Metrics)
	setupAdminRoutes(api, handler.NewAdminHandler(drift, cfg.Monitor), cfg.JWT.Secret)
	return nil
}

func setupRoutes(api *gin.RouterGroup, p *handler.PaymentHandler, w *handler.WebhookHandler, callbackToken string) {
	g := api.Group("/xendit")
	g.GET("/get-payment", p.GetPayment)

	// 网关回调 (token 校验，无需登录)
	g.POST("/webhook", middleware.CallbackTokenMiddleware(callbackToken), w.Receive)
}

func setupAdminRoutes(api *gin.RouterGroup, a *handler.AdminHandler, secret string) {
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(secret), middleware.AdminMiddleware())
	{
		admin.GET("/reconciliation/drift", a.Drift)
	}
}
