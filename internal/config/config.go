// Package config содержит логику чтения конфигурации маркетплейса.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress          = "localhost:8080"
	defaultKafkaTopic          = "order-events"
	defaultTradingTimezone     = "UTC"
	defaultExpirySweepInterval = time.Minute
	defaultRatingSyncInterval  = 10 * time.Minute
	defaultRateLimit           = 60
)

// Config содержит параметры конфигурации маркетплейса.
type Config struct {
	RunAddress          string        `env:"RUN_ADDRESS"`
	DatabaseURI         string        `env:"DATABASE_URI"`
	RatingSystemAddress string        `env:"RATING_SYSTEM_ADDRESS"`
	AuthSecret          string        `env:"AUTH_SECRET"`
	RedisAddr           string        `env:"REDIS_ADDR"`
	KafkaBrokers        []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic          string        `env:"KAFKA_TOPIC"`
	TradingTimezone     string        `env:"TRADING_TIMEZONE"`
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL"`
	RatingSyncInterval  time.Duration `env:"RATING_SYNC_INTERVAL"`
	// RateLimit число поисковых запросов в минуту с одного адреса.
	RateLimit int `env:"RATE_LIMIT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}
	var kafkaBrokers string

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RatingSystemAddress, "r", "", "rating system address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for party token signatures")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "redis address")
	flag.StringVar(&kafkaBrokers, "kafka", "", "comma separated kafka brokers")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", defaultKafkaTopic, "kafka topic for order events")
	flag.StringVar(&cfg.TradingTimezone, "tz", defaultTradingTimezone, "timezone of the trading window")
	flag.DurationVar(&cfg.ExpirySweepInterval, "sweep", defaultExpirySweepInterval, "interval of the expired orders sweep")
	flag.DurationVar(&cfg.RatingSyncInterval, "rating-sync", defaultRatingSyncInterval, "interval of store rating sync")
	flag.IntVar(&cfg.RateLimit, "rate-limit", defaultRateLimit, "search requests per minute per client, 0 disables")

	flag.Parse()

	cfg.KafkaBrokers = splitList(kafkaBrokers)

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.RatingSystemAddress != "" {
		cfg.RatingSystemAddress = envCfg.RatingSystemAddress
	}
	if envCfg.AuthSecret != "" {
		cfg.AuthSecret = envCfg.AuthSecret
	}
	if envCfg.RedisAddr != "" {
		cfg.RedisAddr = envCfg.RedisAddr
	}
	if len(envCfg.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = splitList(strings.Join(envCfg.KafkaBrokers, ","))
	}
	if envCfg.KafkaTopic != "" {
		cfg.KafkaTopic = envCfg.KafkaTopic
	}
	if envCfg.TradingTimezone != "" {
		cfg.TradingTimezone = envCfg.TradingTimezone
	}
	if envCfg.ExpirySweepInterval > 0 {
		cfg.ExpirySweepInterval = envCfg.ExpirySweepInterval
	}
	if envCfg.RatingSyncInterval > 0 {
		cfg.RatingSyncInterval = envCfg.RatingSyncInterval
	}
	if envCfg.RateLimit != 0 {
		cfg.RateLimit = envCfg.RateLimit
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.ExpirySweepInterval <= 0 {
		cfg.ExpirySweepInterval = defaultExpirySweepInterval
	}
	if cfg.RatingSyncInterval <= 0 {
		cfg.RatingSyncInterval = defaultRatingSyncInterval
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location возвращает часовой пояс торгового окна.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TradingTimezone)
	if err != nil {
		return nil, fmt.Errorf("trading timezone %q: %w", c.TradingTimezone, err)
	}
	return loc, nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
