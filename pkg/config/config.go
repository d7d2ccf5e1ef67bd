// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 店铺服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// gRPC 健康检查服务配置
	GRPC GRPCConfig `mapstructure:"grpc"`
	// 数据库配置（cart.store = database 时使用）
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 追踪配置
	Tracing TracingConfig `mapstructure:"tracing"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// 远程商品目录 API
	Catalog CatalogConfig `mapstructure:"catalog"`
	// 搜索防抖
	Search SearchConfig `mapstructure:"search"`
	// 购物车存储
	Cart CartConfig `mapstructure:"cart"`
	// 会话 Cookie
	Session SessionConfig `mapstructure:"session"`
	// 下单转交（WhatsApp）
	Order OrderConfig `mapstructure:"order"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	// 允许的跨域来源，空表示 *
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql, postgres
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime"`
	LogEnabled         bool   `mapstructure:"log_enabled"`
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ConnTimeout  int    `mapstructure:"conn_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Enabled Redis 是否配置
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	MaxRetries   int      `mapstructure:"max_retries"`
	RetryBackoff int      `mapstructure:"retry_backoff"`
	CartTopic    string   `mapstructure:"cart_topic"`
	OrderTopic   string   `mapstructure:"order_topic"`
}

// Enabled Kafka 是否配置
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRate      float64 `mapstructure:"sampling_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 限流配置（基于 Redis）
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	QPS     int  `mapstructure:"qps"`
	Burst   int  `mapstructure:"burst"`
}

// CatalogConfig 远程商品目录 API 配置
type CatalogConfig struct {
	// API 根地址，例如 http://localhost:8000/api
	BaseURL string `mapstructure:"base_url"`
	// 单次请求超时
	Timeout time.Duration `mapstructure:"timeout"`
	// 失败重试次数
	Retries int `mapstructure:"retries"`
	// 列表/分类响应缓存时间，0 表示不缓存
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// 熔断：连续失败次数阈值
	BreakerFailures uint32 `mapstructure:"breaker_failures"`
	// 熔断：打开状态持续时间
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
}

// SearchConfig 搜索防抖配置
type SearchConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	MinLength int           `mapstructure:"min_length"`
}

// CartConfig 购物车配置
type CartConfig struct {
	// 快照存储：memory, redis, database
	Store string `mapstructure:"store"`
	// 快照过期时间（redis）
	TTL time.Duration `mapstructure:"ttl"`
	// 内存中保留的会话购物车数量
	MaxSessions int `mapstructure:"max_sessions"`
	// 单次快照写入超时
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// SessionConfig 会话 Cookie 配置
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	MaxAge     int    `mapstructure:"max_age"`
	Secure     bool   `mapstructure:"secure"`
}

// OrderConfig 下单转交配置
type OrderConfig struct {
	// WhatsApp 目标号码（国际格式，无 +）
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
	// 金额单位显示
	Currency string `mapstructure:"currency"`
	// 对外访问根地址，用于生成分享链接
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// Load 从 TOML 文件加载配置，文件不存在时使用默认值，支持 APP_ 前缀环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	switch c.Cart.Store {
	case "memory":
	case "redis":
		if !c.Redis.Enabled() {
			return fmt.Errorf("cart.store=redis requires redis.host")
		}
	case "database":
		if c.Database.DSN == "" {
			return fmt.Errorf("cart.store=database requires database.dsn")
		}
	default:
		return fmt.Errorf("unsupported cart.store: %q", c.Cart.Store)
	}
	if c.RateLimit.Enabled && !c.Redis.Enabled() {
		return fmt.Errorf("rate_limit requires redis.host")
	}
	if c.Search.MinLength < 1 {
		c.Search.MinLength = 1
	}
	if c.Order.WhatsAppNumber == "" {
		return fmt.Errorf("order.whatsapp_number is required")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "storefront")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 0)

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)
	v.SetDefault("kafka.cart_topic", "storefront.cart")
	v.SetDefault("kafka.order_topic", "order.intent.created")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/storefront.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_endpoint", "localhost:4317")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.qps", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("catalog.base_url", "http://localhost:8000/api")
	v.SetDefault("catalog.timeout", 5*time.Second)
	v.SetDefault("catalog.retries", 2)
	v.SetDefault("catalog.cache_ttl", 30*time.Second)
	v.SetDefault("catalog.breaker_failures", 5)
	v.SetDefault("catalog.breaker_timeout", 30*time.Second)

	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("search.min_length", 1)

	v.SetDefault("cart.store", "memory")
	v.SetDefault("cart.ttl", 30*24*time.Hour)
	v.SetDefault("cart.max_sessions", 10000)
	v.SetDefault("cart.persist_timeout", 3*time.Second)

	v.SetDefault("session.cookie_name", "sf_session")
	v.SetDefault("session.max_age", 30*24*3600)
	v.SetDefault("session.secure", false)

	v.SetDefault("order.whatsapp_number", "22891798292")
	v.SetDefault("order.currency", "F CFA")
	v.SetDefault("order.public_base_url", "http://localhost:3000")
}
