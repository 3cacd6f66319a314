// @title           Storefront Payments API
// @version         1.0
// @description     Payment reconciliation service for the game-account storefront.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "storefront_payments/internal/domain/common"
	_ "storefront_payments/internal/domain/payment"
	"storefront_payments/internal/pkg/config"
	"storefront_payments/internal/pkg/middleware"
	"storefront_payments/internal/pkg/registry"
	"storefront_payments/pkg/cache"
	"storefront_payments/pkg/database"
	"storefront_payments/pkg/logger"
	"storefront_payments/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Redis key 前缀，与 "webhook:<id>" 拼接
const cacheKeyPrefix = "storefront:"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// 1. 存储
	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	sqlxDB, err := database.InitSQLX(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer sqlxDB.Close()

	rdb, err := database.InitRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var cacheService cache.CacheService
	if rdb != nil {
		defer rdb.Close()
		cacheService = cache.NewRedisCache(rdb, cacheKeyPrefix)
	} else {
		// 单实例部署时用进程内缓存去重
		log.Warn("redis not configured, webhook dedupe is per process")
		cacheService = cache.NewMemoryCache()
	}

	// 2. 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewMetricsCollector(reg)

	// 3. 路由与中间件
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(
		middleware.RecoveryMiddleware(log),
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(log),
		middleware.MetricsMiddleware(collector),
		cors.New(corsConfig(cfg.Server.CORSOrigins)),
	)

	if err := registry.InitModules(&registry.ModuleContext{
		Config:   cfg,
		DB:       db,
		SQLX:     sqlxDB,
		Redis:    rdb,
		Cache:    cacheService,
		Router:   r,
		Logger:   log,
		Metrics:  collector,
		Gatherer: reg,
	}); err != nil {
		return err
	}

	// 4. 启动与优雅退出
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID", "x-callback-token", "webhook-id"},
		ExposeHeaders: []string{"Content-Length", "X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
