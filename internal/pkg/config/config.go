package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Xendit   XenditConfig   `mapstructure:"xendit"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port      string  `mapstructure:"port"`
	Mode      string  `mapstructure:"mode"`
	RateLimit float64 `mapstructure:"rate_limit"` // 每个 IP 每秒请求数
	RateBurst int     `mapstructure:"rate_burst"`

	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"` // 设置后优先于下面的分项
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// DSN 返回 postgres URL 形式的连接串 (pgx / golang-migrate 通用)
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&TimeZone=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode, d.TimeZone)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // 为空则关闭 webhook 去重
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"` // 为空则不开放管理接口
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json / console
}

type XenditConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	BaseURL       string        `mapstructure:"base_url"`
	CallbackToken string        `mapstructure:"callback_token"` // x-callback-token 校验
	Timeout       time.Duration `mapstructure:"timeout"`
}

type MonitorConfig struct {
	Lookback      time.Duration `mapstructure:"lookback"`
	VerifyWorkers int           `mapstructure:"verify_workers"`
	VerifyRetries int           `mapstructure:"verify_retries"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "") {
		return errors.New("database configuration is incomplete")
	}

	if c.JWT.Secret != "" && len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	if c.Xendit.Timeout <= 0 {
		return errors.New("xendit timeout must be positive")
	}

	if c.Monitor.VerifyWorkers <= 0 {
		return errors.New("monitor verify_workers must be positive")
	}

	return nil
}

// 环境变量直接覆盖 (部署平台只注入这些名字)
var envOverrides = map[string]string{
	"DATABASE_URL":          "database.url",
	"DB_HOST":               "database.host",
	"DB_PASSWORD":           "database.password",
	"REDIS_ADDR":            "redis.addr",
	"JWT_SECRET":            "jwt.secret",
	"XENDIT_SECRET_KEY":     "xendit.secret_key",
	"XENDIT_CALLBACK_TOKEN": "xendit.callback_token",
	"PORT":                  "server.port",
}

// LoadConfig 按 APP_ENV 加载 ./configs 或当前目录下的配置
func LoadConfig() (*Config, error) {
	// .env 只是开发便利，不存在不算错误
	_ = godotenv.Load()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	return Load(configName, "./configs", ".")
}

// Load 从给定目录读取 yaml 配置，叠加默认值与环境变量后校验
func Load(configName string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// 没有配置文件时只用默认值和环境变量
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for env, key := range envOverrides {
		if val, ok := os.LookupEnv(env); ok && val != "" {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults 每个 key 都要有默认值，AutomaticEnv 才能在 Unmarshal 时生效
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Jakarta")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")

	v.SetDefault("app.env", "dev")
	v.SetDefault("app.debug", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("xendit.secret_key", "")
	v.SetDefault("xendit.base_url", "https://api.xendit.co")
	v.SetDefault("xendit.callback_token", "")
	v.SetDefault("xendit.timeout", 10*time.Second)

	v.SetDefault("monitor.lookback", 24*time.Hour)
	v.SetDefault("monitor.verify_workers", 4)
	v.SetDefault("monitor.verify_retries", 2)
}
