// Package config содержит логику чтения конфигурации сайта наград.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultRunAddress      = "localhost:8080"
	defaultRefreshInterval = time.Minute
)

// Config содержит параметры конфигурации сайта наград.
type Config struct {
	RunAddress             string          `env:"RUN_ADDRESS"`
	BackendAddress         string          `env:"BACKEND_ADDRESS"`
	DatabaseURI            string          `env:"DATABASE_URI"`
	RedisAddress           string          `env:"REDIS_ADDRESS"`
	RedisPassword          string          `env:"REDIS_PASSWORD"`
	RedisDB                int             `env:"REDIS_DB" envDefault:"0"`
	StorageDir             string          `env:"STORAGE_DIR"`
	RewardPool             decimal.Decimal `env:"REWARD_POOL"`
	WinnersRefreshInterval time.Duration   `env:"WINNERS_REFRESH_INTERVAL"`
	SessionSecret          string          `env:"SESSION_SECRET"`
	SessionTTL             time.Duration   `env:"SESSION_TTL" envDefault:"24h"`
	SessionLimit           int             `env:"SESSION_LIMIT" envDefault:"10000"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// .env необязателен: в production переменные задаются окружением.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.BackendAddress, "b", "", "backend API address")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for userdata storage")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for userdata storage")
	flag.StringVar(&cfg.StorageDir, "s", "", "directory for userdata files")
	flag.TextVar(&cfg.RewardPool, "p", decimal.Zero, "reward pool balance, BNB")
	flag.DurationVar(&cfg.WinnersRefreshInterval, "w", defaultRefreshInterval, "leaderboard refresh interval, 0 disables refresh")
	flag.StringVar(&cfg.SessionSecret, "k", "", "session cookie signing key")

	flag.Parse()

	// Переменная окружения побеждает флаг, даже если задано нулевое значение.
	if isSet("RUN_ADDRESS") {
		cfg.RunAddress = envCfg.RunAddress
	}
	if isSet("BACKEND_ADDRESS") {
		cfg.BackendAddress = envCfg.BackendAddress
	}
	if isSet("DATABASE_URI") {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if isSet("REDIS_ADDRESS") {
		cfg.RedisAddress = envCfg.RedisAddress
	}
	if isSet("STORAGE_DIR") {
		cfg.StorageDir = envCfg.StorageDir
	}
	if isSet("REWARD_POOL") {
		cfg.RewardPool = envCfg.RewardPool
	}
	if isSet("WINNERS_REFRESH_INTERVAL") {
		cfg.WinnersRefreshInterval = envCfg.WinnersRefreshInterval
	}
	if isSet("SESSION_SECRET") {
		cfg.SessionSecret = envCfg.SessionSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.RewardPool.IsNegative() {
		return nil, fmt.Errorf("reward pool must not be negative: %s", cfg.RewardPool)
	}

	return cfg, nil
}

func isSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}
