// Package config содержит логику чтения конфигурации сервиса лояльности.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса лояльности.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	NotifyTopic      string   `env:"NOTIFY_TOPIC"`
	NotifyWebhookURL string   `env:"NOTIFY_WEBHOOK_URL"`

	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"`

	RateLimitRPM         int           `env:"RATE_LIMIT_RPM"`
	TrustProxyHeaders    bool          `env:"TRUST_PROXY_HEADERS"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL"`
	AdvisoryBalanceCheck bool          `env:"ADVISORY_BALANCE_CHECK"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	var brokers string
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing access tokens")
	flag.StringVar(&brokers, "k", "", "comma-separated Kafka brokers for notifications")
	flag.StringVar(&cfg.NotifyTopic, "t", "loyalty-notifications", "Kafka topic for notifications")
	flag.StringVar(&cfg.NotifyWebhookURL, "w", "", "webhook URL for notifications")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")
	flag.StringVar(&cfg.LogFile, "f", "", "log file path, stdout only if empty")
	flag.IntVar(&cfg.RateLimitRPM, "rpm", 600, "requests per minute per client, 0 disables the limit")
	flag.BoolVar(&cfg.TrustProxyHeaders, "trust-proxy", false, "take client address from X-Real-IP/X-Forwarded-For, only behind a trusted proxy")
	flag.DurationVar(&cfg.HousekeepingInterval, "hk", time.Minute, "housekeeping interval")
	flag.BoolVar(&cfg.AdvisoryBalanceCheck, "advisory", false, "accept redemption requests above the current balance")

	flag.Parse()

	cfg.KafkaBrokers = splitList(brokers)

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.DatabaseURI == "" {
		return nil, errors.New("database URI is required")
	}

	return cfg, nil
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
