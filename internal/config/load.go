package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Counters CountersConfig `mapstructure:"counters"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type BotConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type CountersConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory redis"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	Enabled      bool          `mapstructure:"-"`
}

type AuditConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
	Interval         time.Duration `mapstructure:"interval"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File   string `mapstructure:"file"`
	Pretty bool   `mapstructure:"pretty"`
}

// ErrMissingToken is returned when the bot is started without a token. Only
// the run command needs one.
var ErrMissingToken = errors.New("bot token not set (bot.token, ANTINUKE_BOT_TOKEN or DISCORD_TOKEN)")

// SetDefaults registers every default on v so that a missing file still
// yields a runnable configuration.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("bot.token", d.Bot.Token)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("counters.backend", d.Counters.Backend)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("audit.timeout", d.Audit.Timeout)
	v.SetDefault("audit.breaker.enabled", d.Audit.Breaker.Enabled)
	v.SetDefault("audit.breaker.failure_threshold", d.Audit.Breaker.FailureThreshold)
	v.SetDefault("audit.breaker.open_timeout", d.Audit.Breaker.OpenTimeout)
	v.SetDefault("audit.breaker.interval", d.Audit.Breaker.Interval)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.pretty", d.Logging.Pretty)
}

// Load reads path (or the standard search locations when path is empty),
// applies ANTINUKE_* environment overrides and validates the result.
// DISCORD_TOKEN is honored for the bot token as well.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/antinuke")
	}

	v.SetEnvPrefix("ANTINUKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("bot.token", "ANTINUKE_BOT_TOKEN", "DISCORD_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Redis.Enabled = cfg.Counters.Backend == "redis"

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "antinuke.db"},
		Counters: CountersConfig{Backend: "memory"},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			PoolSize:     16,
			KeyPrefix:    "antinuke:window:",
		},
		Audit: AuditConfig{
			Timeout: 3 * time.Second,
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
				Interval:         time.Minute,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "antinuke.log",
		},
	}
}
