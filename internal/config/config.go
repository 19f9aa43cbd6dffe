package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPPort           string        `env:"HTTP_PORT"             envDefault:"8080"`
	APIURL             string        `env:"API_URL"               envDefault:"http://localhost:3000/api/weblarek"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT"       envDefault:"30s"`
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT"      envDefault:"10s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT"      envDefault:"10s"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`
	SessionTTL      time.Duration `env:"SESSION_TTL"       envDefault:"24h"`
	SessionIdleTTL  time.Duration `env:"SESSION_IDLE_TTL"  envDefault:"30m"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"   envDefault:"storefront-events"`

	ReceiptsDBPath string `env:"RECEIPTS_DB_PATH" envDefault:"receipts.db"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("API_URL must not be empty")
	}
	return &cfg, nil
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
