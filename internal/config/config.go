package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName    string `mapstructure:"app_name"`
	Env        string `mapstructure:"app_env"`
	LogLevel   string `mapstructure:"log_level"`
	APIBaseURL string `mapstructure:"api_base_url"`
	ListenAddr string `mapstructure:"listen_addr"`
	StaticDir  string `mapstructure:"static_dir"`
	SiteFile   string `mapstructure:"site_file"`

	CacheStaleSeconds int64         `mapstructure:"cache_stale_seconds"`
	CacheGCSeconds    int64         `mapstructure:"cache_gc_seconds"`
	RenderWaitMs      int64         `mapstructure:"render_wait_ms"`
	CacheStaleTime    time.Duration `mapstructure:"-"`
	CacheGCTime       time.Duration `mapstructure:"-"`
	RenderWait        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	RedisAddr              string        `mapstructure:"redis_addr"`
	RedisDB                int           `mapstructure:"redis_db"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	ShutdownTimeoutSeconds int64         `mapstructure:"shutdown_timeout_seconds"`
	ShutdownTimeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "picture-gallery")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base_url", "")
	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("static_dir", "./public")
	v.SetDefault("site_file", "")
	v.SetDefault("cache_stale_seconds", 60)
	v.SetDefault("cache_gc_seconds", 300)
	v.SetDefault("render_wait_ms", 0)
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/query-cache.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("storage_cleanup_interval_seconds", int64((15*time.Minute)/time.Second))
	v.SetDefault("shutdown_timeout_seconds", 10)

	v.AutomaticEnv()
	// NEXT_PUBLIC_API_URL is the legacy name of the base URL.
	if err := v.BindEnv("api_base_url", "API_BASE_URL", "NEXT_PUBLIC_API_URL"); err != nil {
		return nil, fmt.Errorf("bind api_base_url: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_base_url %q (expected absolute http(s) URL)", cfg.APIBaseURL)
	}

	if cfg.CacheStaleSeconds < 0 {
		return fmt.Errorf("invalid cache_stale_seconds (must not be negative)")
	}
	if cfg.CacheGCSeconds <= 0 {
		return fmt.Errorf("invalid cache_gc_seconds (must be positive seconds)")
	}
	if cfg.RenderWaitMs < 0 {
		return fmt.Errorf("invalid render_wait_ms (must not be negative)")
	}
	cfg.CacheStaleTime = time.Duration(cfg.CacheStaleSeconds) * time.Second
	cfg.CacheGCTime = time.Duration(cfg.CacheGCSeconds) * time.Second
	cfg.RenderWait = time.Duration(cfg.RenderWaitMs) * time.Millisecond

	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	if cfg.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid shutdown_timeout_seconds (must be positive seconds)")
	}
	cfg.ShutdownTimeout = time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second

	return nil
}
