package config

import (
	"fmt"
	"strings"

	"github.com/paybridge-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// GatewayConfig Docdata 网关配置
type GatewayConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	MerchantName      string `mapstructure:"merchant_name"`
	MerchantPassword  string `mapstructure:"merchant_password"`
	Profile           string `mapstructure:"profile"`
	PaymentPageURL    string `mapstructure:"payment_page_url"`
	ReturnRedirectURL string `mapstructure:"return_redirect_url"`
	TimeoutMS         int    `mapstructure:"timeout_ms"`
}

// ReconcileConfig 对账引擎配置
type ReconcileConfig struct {
	// StatusMapping 网关状态到项目状态的映射；未命中的状态原样透传
	StatusMapping map[string]string `mapstructure:"status_mapping"`
	// Cascade 项目状态到行项目状态的级联映射；缺失表示不级联
	Cascade                map[string]string `mapstructure:"cascade"`
	RoundingTolerance      string            `mapstructure:"rounding_tolerance"`
	OutcomeCacheTTLSeconds int               `mapstructure:"outcome_cache_ttl_seconds"`
	StalePollEnabled       bool              `mapstructure:"stale_poll_enabled"`
	StaleAfterMinutes      int               `mapstructure:"stale_after_minutes"`
	SweepIntervalSeconds   int               `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize         int               `mapstructure:"sweep_batch_size"`
}

// NotifyConfig 订单状态变更通知配置
type NotifyConfig struct {
	SubscriberURLs []string `mapstructure:"subscriber_urls"`
	TimeoutMS      int      `mapstructure:"timeout_ms"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "paybridge.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/paybridge.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "pb")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	viper.SetDefault("gateway.base_url", "https://secure.docdatapayments.com/ps/api")
	viper.SetDefault("gateway.merchant_name", "")
	viper.SetDefault("gateway.merchant_password", "")
	viper.SetDefault("gateway.profile", "standard")
	viper.SetDefault("gateway.payment_page_url", "https://secure.docdatapayments.com/ps/menu")
	viper.SetDefault("gateway.return_redirect_url", "")
	viper.SetDefault("gateway.timeout_ms", 10000)
	viper.SetDefault("reconcile.status_mapping", map[string]string{})
	viper.SetDefault("reconcile.cascade", map[string]string{
		"paid": "paid",
	})
	viper.SetDefault("reconcile.rounding_tolerance", "0.05")
	viper.SetDefault("reconcile.outcome_cache_ttl_seconds", 600)
	viper.SetDefault("reconcile.stale_poll_enabled", true)
	viper.SetDefault("reconcile.stale_after_minutes", 30)
	viper.SetDefault("reconcile.sweep_interval_seconds", 300)
	viper.SetDefault("reconcile.sweep_batch_size", 50)
	viper.SetDefault("notify.subscriber_urls", []string{})
	viper.SetDefault("notify.timeout_ms", 5000)

	// 环境变量支持，server.port -> SERVER_PORT
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
