// Package config 基于 viper 的进程配置。支持 config.yaml 与 HOTFEED_ 前缀环境变量覆盖。
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int    `mapstructure:"port"`
		Mode string `mapstructure:"mode"` // debug / release
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Database struct {
		DSN          string `mapstructure:"dsn"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Cache struct {
		Namespace    string        `mapstructure:"namespace"`
		TTL          time.Duration `mapstructure:"ttl"`
		LockTTL      time.Duration `mapstructure:"lock_ttl"`
		WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
		PollInterval time.Duration `mapstructure:"poll_interval"`
	} `mapstructure:"cache"`

	Auth struct {
		Enabled bool   `mapstructure:"enabled"`
		Secret  string `mapstructure:"secret"`
	} `mapstructure:"auth"`

	RateLimit struct {
		Enabled bool    `mapstructure:"enabled"`
		RPS     float64 `mapstructure:"rps"`
		Burst   int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`

	Tracing struct {
		Enabled  bool   `mapstructure:"enabled"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"tracing"`
}

// Load 读取 path 下的 config.yaml；文件缺失时仅用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("HOTFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")

	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=hotfeed port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.namespace", "hotfeed")
	v.SetDefault("cache.ttl", "60s")
	v.SetDefault("cache.lock_ttl", "5s")
	v.SetDefault("cache.wait_timeout", "10s")
	v.SetDefault("cache.poll_interval", "100ms")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 200.0)
	v.SetDefault("rate_limit.burst", 400)

	v.SetDefault("sentry.dsn", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
}
