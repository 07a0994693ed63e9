package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates rendering-service settings sourced from environment variables.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Render    RenderConfig    `mapstructure:"render"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Clamd     ClamdConfig     `mapstructure:"clamd"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port         int   `mapstructure:"port"`
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// RenderConfig selects the HTML -> PDF engine.
type RenderConfig struct {
	Engine  string        `mapstructure:"engine"`
	Timeout time.Duration `mapstructure:"timeout"`
	// BrowserBin overrides the chromium binary; empty means auto-detect.
	BrowserBin string `mapstructure:"browser_bin"`
}

// JobsConfig 控制异步渲染任务（数据库 + asynq + MinIO）。
type JobsConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxRetry    int           `mapstructure:"max_retry"`
	LinkTTL     time.Duration `mapstructure:"link_ttl"`
	// MetricsAddr 是 worker 暴露 /metrics 的监听地址，为空表示不暴露。
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// CacheConfig 控制渲染结果缓存。
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig 按客户端 IP 限制同步渲染频率，PerMinute<=0 表示关闭。
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

// ClamdConfig 配置照片病毒扫描，Addr 为空表示关闭。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	Bucket           string `mapstructure:"bucket"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// NeedsRedis reports whether any enabled feature talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.Jobs.Enabled || c.Cache.Enabled || c.RateLimit.PerMinute > 0
}

// Load reads configuration solely from environment variables (with defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v, serviceEnv); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.max_body_bytes", 256*1024)
	v.SetDefault("render.engine", "rod")
	v.SetDefault("render.timeout", 60*time.Second)
	v.SetDefault("render.browser_bin", "")
	v.SetDefault("jobs.enabled", false)
	v.SetDefault("jobs.concurrency", 4)
	v.SetDefault("jobs.max_retry", 3)
	v.SetDefault("jobs.link_ttl", 24*time.Hour)
	v.SetDefault("jobs.metrics_addr", ":9091")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("ratelimit.per_minute", 0)
	v.SetDefault("clamd.addr", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumerender")
	v.SetDefault("database.user", "resumerender")
	v.SetDefault("database.password", "resumerender")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.auto_create_bucket", true)
}

var serviceEnv = map[string]string{
	"api.port":                 "API_PORT",
	"api.max_body_bytes":       "API_MAX_BODY_BYTES",
	"render.engine":            "RENDER_ENGINE",
	"render.timeout":           "RENDER_TIMEOUT",
	"render.browser_bin":       "RENDER_BROWSER_BIN",
	"jobs.enabled":             "JOBS_ENABLED",
	"jobs.concurrency":         "JOBS_CONCURRENCY",
	"jobs.max_retry":           "JOBS_MAX_RETRY",
	"jobs.link_ttl":            "JOBS_LINK_TTL",
	"cache.enabled":            "CACHE_ENABLED",
	"cache.ttl":                "CACHE_TTL",
	"ratelimit.per_minute":     "RATELIMIT_PER_MINUTE",
	"clamd.addr":               "CLAMD_ADDR",
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.name":            "POSTGRES_DB",
	"database.user":            "POSTGRES_USER",
	"database.password":        "POSTGRES_PASSWORD",
	"database.sslmode":         "DATABASE_SSLMODE",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"minio.endpoint":           "MINIO_ENDPOINT",
	"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
	"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
	"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
	"minio.use_ssl":            "MINIO_USE_SSL",
	"minio.region":             "MINIO_REGION",
	"minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
	"minio.bucket":             "MINIO_BUCKET",
	"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
}

func bindEnv(v *viper.Viper, mappings map[string]string) error {
	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.MaxBodyBytes <= 0 {
		return errors.New("api max body bytes must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Render.Engine)) {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("unknown render engine %q", cfg.Render.Engine)
	}
	if cfg.Render.Timeout <= 0 {
		return errors.New("render timeout must be positive")
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if cfg.NeedsRedis() {
		if cfg.Redis.Host == "" {
			return errors.New("redis host is required")
		}
		if cfg.Redis.Port <= 0 {
			return errors.New("redis port must be positive")
		}
	}
	if !cfg.Jobs.Enabled {
		return nil
	}

	if cfg.Jobs.Concurrency <= 0 {
		return errors.New("jobs concurrency must be positive")
	}
	if cfg.Jobs.LinkTTL <= 0 {
		return errors.New("jobs link ttl must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	return nil
}
