package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key, encrypts webhook secrets at rest
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// WebhookConfig tunes partner webhook delivery.
type WebhookConfig struct {
	Timeout               time.Duration   `mapstructure:"timeout"`
	UserAgent             string          `mapstructure:"user_agent"`
	Workers               int             `mapstructure:"workers"`
	QueueSize             int             `mapstructure:"queue_size"`
	MaxInFlightPerPartner int64           `mapstructure:"max_in_flight_per_partner"`
	RequireSecret         bool            `mapstructure:"require_secret"`
	RetryIntervals        []time.Duration `mapstructure:"retry_intervals"`
	RetryPollInterval     time.Duration   `mapstructure:"retry_poll_interval"`
	RetryBatchSize        int             `mapstructure:"retry_batch_size"`
	RetryLease            time.Duration   `mapstructure:"retry_lease"`
	PartnerBusyDelay      time.Duration   `mapstructure:"partner_busy_delay"`
}

// MaxAttempts is the total delivery budget: the first attempt plus one per retry interval.
func (w WebhookConfig) MaxAttempts() int {
	return len(w.RetryIntervals) + 1
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PICKSEARCH_.
// Nested keys use underscore: PICKSEARCH_DATABASE_HOST, PICKSEARCH_WEBHOOK_TIMEOUT, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "picksearch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.user_agent", "Picksearch-Webhook/1.0")
	v.SetDefault("webhook.workers", 8)
	v.SetDefault("webhook.queue_size", 1024)
	v.SetDefault("webhook.max_in_flight_per_partner", 4)
	v.SetDefault("webhook.require_secret", false)
	v.SetDefault("webhook.retry_intervals", []string{"15s", "1m", "2m", "5m", "10m"})
	v.SetDefault("webhook.retry_poll_interval", "1s")
	v.SetDefault("webhook.retry_batch_size", 50)
	v.SetDefault("webhook.retry_lease", "2m")
	v.SetDefault("webhook.partner_busy_delay", "5s")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// PICKSEARCH_WEBHOOK_TIMEOUT -> webhook.timeout
	v.SetEnvPrefix("PICKSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Webhook.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (w WebhookConfig) validate() error {
	if w.Timeout <= 0 {
		return fmt.Errorf("webhook.timeout must be positive")
	}
	if w.Workers < 1 {
		return fmt.Errorf("webhook.workers must be at least 1")
	}
	if w.QueueSize < 1 {
		return fmt.Errorf("webhook.queue_size must be at least 1")
	}
	if w.MaxInFlightPerPartner < 1 {
		return fmt.Errorf("webhook.max_in_flight_per_partner must be at least 1")
	}
	if w.PartnerBusyDelay <= 0 {
		return fmt.Errorf("webhook.partner_busy_delay must be positive")
	}
	for i, d := range w.RetryIntervals {
		if d <= 0 {
			return fmt.Errorf("webhook.retry_intervals[%d] must be positive", i)
		}
	}
	return nil
}
