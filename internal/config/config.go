// Package config 加载 config.yml、.env 与环境变量
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/milhas-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Security  SecurityConfig  `mapstructure:"security"`
	Payout    PayoutConfig    `mapstructure:"payout"`
	Vip       VipConfig       `mapstructure:"vip"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Stdout:     c.Stdout,
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
	Driver   string             `mapstructure:"driver"`    // 数据库驱动（sqlite/postgres）
	DSN      string             `mapstructure:"dsn"`       // 数据库连接串
	LogLevel string             `mapstructure:"log_level"` // gorm 日志级别
	Pool     DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
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

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit     RateLimitConfig `mapstructure:"login_rate_limit"`
	RecomputeRateLimit RateLimitConfig `mapstructure:"recompute_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// PayoutConfig 日结佣金配置
type PayoutConfig struct {
	Timezone                string `mapstructure:"timezone"`                  // 业务时区，决定“一天”的边界
	TaxBps                  int64  `mapstructure:"tax_bps"`                   // 代扣税率
	FlatRateBps             int64  `mapstructure:"flat_rate_bps"`             // 固定佣金比例
	BonusRateBps            int64  `mapstructure:"bonus_rate_bps"`            // 超额奖金比例
	LockTTLSeconds          int    `mapstructure:"lock_ttl_seconds"`          // 重算运行锁有效期
	ScheduleIntervalMinutes int    `mapstructure:"schedule_interval_minutes"` // worker 定时重算间隔
	LookbackDays            int    `mapstructure:"lookback_days"`             // 定时重算覆盖的历史天数
}

// Location 解析业务时区
func (c PayoutConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}

// LockTTL 运行锁有效期
func (c PayoutConfig) LockTTL() time.Duration {
	if c.LockTTLSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ScheduleInterval worker 定时重算间隔
func (c PayoutConfig) ScheduleInterval() time.Duration {
	if c.ScheduleIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.ScheduleIntervalMinutes) * time.Minute
}

// VipConfig VIP 月度分配配置
type VipConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// CacheTTL 分配汇总缓存有效期
func (c VipConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// BootstrapConfig 首次启动初始化配置
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// DefaultTimezone 默认业务时区
const DefaultTimezone = "America/Sao_Paulo"

// Load 从 .env、config.yml 与环境变量加载配置
func Load() *Config {
	cfg, err := LoadFrom(viper.New(), "")
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// LoadFrom 使用指定 viper 实例加载，configFile 为空时按默认路径查找
func LoadFrom(v *viper.Viper, configFile string) (*Config, error) {
	loadDotEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../")
		v.AddConfigPath("./etc")
	}
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Payout.Location(); err != nil {
		return nil, fmt.Errorf("invalid payout.timezone %q: %w", cfg.Payout.Timezone, err)
	}
	return &cfg, nil
}

func loadDotEnv() {
	path := strings.TrimSpace(os.Getenv("MILHAS_ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	// .env 不覆盖已存在的环境变量
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		logger.Warnw("dotenv_load_failed", "file", path, "error", err)
		return
	}
	logger.Infow("dotenv_loaded", "file", path)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "milhas.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 14)
	v.SetDefault("log.max_age_days", 90)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.stdout", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/milhas.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 12)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "milhas")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.queues", map[string]int{
		"default":  5,
		"critical": 10,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Language",
		"Authorization",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.recompute_rate_limit.window_seconds", 60)
	v.SetDefault("security.recompute_rate_limit.max_attempts", 30)
	v.SetDefault("payout.timezone", DefaultTimezone)
	v.SetDefault("payout.tax_bps", 800)
	v.SetDefault("payout.flat_rate_bps", 100)
	v.SetDefault("payout.bonus_rate_bps", 3000)
	v.SetDefault("payout.lock_ttl_seconds", 120)
	v.SetDefault("payout.schedule_interval_minutes", 15)
	v.SetDefault("payout.lookback_days", 1)
	v.SetDefault("vip.cache_ttl_seconds", 600)
	v.SetDefault("bootstrap.admin_username", "admin")
	v.SetDefault("bootstrap.admin_password", "")
}
