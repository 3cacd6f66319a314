package registry

import (
	"sort"

	"storefront_payments/internal/pkg/config"
	"storefront_payments/pkg/cache"
	"storefront_payments/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ModuleContext 模块初始化所需的上下文
// 所有客户端在 main 中构造一次后注入，模块内不再读取全局配置
type ModuleContext struct {
	Config   *config.Config
	DB       *gorm.DB
	SQLX     *sqlx.DB      // 批量只读查询
	Redis    *redis.Client // 未配置时为 nil
	Cache    cache.CacheService
	Router   *gin.Engine
	Logger   *zap.Logger
	Metrics  *metrics.MetricsCollector
	Gatherer prometheus.Gatherer // /metrics 暴露的注册表
}

// Module 模块接口
type Module interface {
	// Name 返回模块名称
	Name() string

	// Init 初始化模块（依赖注入、路由注册等）
	Init(ctx *ModuleContext) error

	// Priority 返回初始化优先级（数字越小越先初始化）
	Priority() int
}

// moduleRegistry 全局模块注册表
var moduleRegistry = make(map[string]Module)

// Register 注册模块
func Register(module Module) {
	moduleRegistry[module.Name()] = module
}

// GetModules 获取所有已注册的模块
func GetModules() map[string]Module {
	return moduleRegistry
}

// sortedModules 按优先级排序，优先级相同按名称，保证启动顺序稳定
func sortedModules() []Module {
	modules := make([]Module, 0, len(moduleRegistry))
	for _, m := range moduleRegistry {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Priority() != modules[j].Priority() {
			return modules[i].Priority() < modules[j].Priority()
		}
		return modules[i].Name() < modules[j].Name()
	})
	return modules
}

// InitModules 按优先级初始化所有模块
func InitModules(ctx *ModuleContext) error {
	for _, module := range sortedModules() {
		if err := module.Init(ctx); err != nil {
			return err
		}
		if ctx.Logger != nil {
			ctx.Logger.Info("module initialized", zap.String("module", module.Name()))
		}
	}
	return nil
}
