package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Upload   UploadConfig   `mapstructure:"upload"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Email    EmailConfig    `mapstructure:"email"`
	Payout   PayoutConfig   `mapstructure:"payout"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`     // debug / release
	BaseURL string `mapstructure:"base_url"` // 对外访问地址（生成下载链接）
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
	Driver          string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN             string             `mapstructure:"dsn"`    // 数据库连接串
	Pool            DatabasePoolConfig `mapstructure:"pool"`
	SlowThresholdMS int                `mapstructure:"slow_threshold_ms"` // 慢 SQL 阈值
}

// ToDBOptions 转换为 models.OpenDB 参数
func (c DatabaseConfig) ToDBOptions(verbose bool) models.DBOptions {
	return models.DBOptions{
		Driver: c.Driver,
		DSN:    c.DSN,
		Pool: models.DBPoolConfig{
			MaxOpenConns:           c.Pool.MaxOpenConns,
			MaxIdleConns:           c.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: c.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: c.Pool.ConnMaxIdleTimeSeconds,
		},
		SlowThreshold: time.Duration(c.SlowThresholdMS) * time.Millisecond,
		Verbose:       verbose,
	}
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

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	UseTLS   bool   `mapstructure:"use_tls"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// UploadConfig 文件目录配置
type UploadConfig struct {
	Dir string `mapstructure:"dir"` // 付款文件与暂存文件目录
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
	LoginRateLimit RateLimitConfig `mapstructure:"login_rate_limit"`
	StepRateLimit  RateLimitConfig `mapstructure:"step_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// PayoutConfig 付款回执批处理配置
type PayoutConfig struct {
	PageSize                int    `mapstructure:"page_size"`                  // 每步处理条数
	CalcBase                string `mapstructure:"calc_base"`                  // 店铺佣金计算基数
	StagingDriver           string `mapstructure:"staging_driver"`             // 暂存驱动（file/redis）
	StagingTTLHours         int    `mapstructure:"staging_ttl_hours"`          // 暂存过期时间
	StepLockSeconds         int    `mapstructure:"step_lock_seconds"`          // 单步互斥锁时长
	DownloadTokenTTLMinutes int    `mapstructure:"download_token_ttl_minutes"` // 下载令牌有效期
	LegacyProgressKey       bool   `mapstructure:"legacy_progress_key"`        // 发送进度读取旧键
	SiteName                string `mapstructure:"site_name"`                  // 站点名称
	DateFormat              string `mapstructure:"date_format"`                // 邮件日期格式
	AdminEmail              string `mapstructure:"admin_email"`                // 管理员汇总收件人
	DefaultCurrency         string `mapstructure:"default_currency"`           // 默认币种
}

// Load 从 config.yml 与环境变量加载配置，解析失败直接退出
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range []string{".", "./etc", "../"} {
		v.AddConfigPath(path)
	}
	setDefaults(v)

	// server.port -> SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed", "error", err, "fallback", "env_or_defaults")
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	for _, warning := range cfg.Warnings() {
		logger.Warnw("config_suspicious_value", "detail", warning)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// normalize 统一大小写并修正非法取值
func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Payout.CalcBase = strings.ToLower(strings.TrimSpace(c.Payout.CalcBase))
	switch c.Payout.CalcBase {
	case constants.CalcBaseSubtotal, constants.CalcBaseTotalPreTax, constants.CalcBaseGross:
	default:
		c.Payout.CalcBase = constants.CalcBaseSubtotal
	}
	c.Payout.StagingDriver = strings.ToLower(strings.TrimSpace(c.Payout.StagingDriver))
	if c.Payout.StagingDriver != constants.StagingDriverRedis {
		c.Payout.StagingDriver = constants.StagingDriverFile
	}
	if c.Payout.PageSize <= 0 {
		c.Payout.PageSize = 25
	}
	if strings.TrimSpace(c.Redis.Prefix) == "" {
		c.Redis.Prefix = "pr"
	}
}

// Warnings 返回不阻断启动但需要关注的配置项
func (c *Config) Warnings() []string {
	var out []string
	if c.Server.Mode == "release" && c.JWT.SecretKey == defaultJWTSecret {
		out = append(out, "jwt.secret 仍为默认值")
	}
	if c.Payout.StagingDriver == constants.StagingDriverRedis && !c.Redis.Enabled {
		out = append(out, "payout.staging_driver=redis 但 redis 未启用，将回退到文件暂存")
	}
	if c.Email.Enabled && strings.TrimSpace(c.Email.Host) == "" {
		out = append(out, "email.enabled=true 但未配置 email.host")
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_url", "http://127.0.0.1:8080")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "payout.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/payout.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("database.slow_threshold_ms", 500)
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "pr")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default": 10,
		"mail":    5,
	})
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.step_rate_limit.window_seconds", 1)
	v.SetDefault("security.step_rate_limit.max_attempts", 10)
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("payout.page_size", 25)
	v.SetDefault("payout.calc_base", "subtotal")
	v.SetDefault("payout.staging_driver", "file")
	v.SetDefault("payout.staging_ttl_hours", 24)
	v.SetDefault("payout.step_lock_seconds", 60)
	v.SetDefault("payout.download_token_ttl_minutes", 30)
	v.SetDefault("payout.legacy_progress_key", false)
	v.SetDefault("payout.site_name", "Payout Store")
	v.SetDefault("payout.date_format", "January 2, 2006")
	v.SetDefault("payout.admin_email", "")
	v.SetDefault("payout.default_currency", "USD")
}
