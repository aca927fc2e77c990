package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opensource-finance/praxis/internal/domain"
)

// loadConfig reads an optional .env file and builds the configuration for
// PRAXIS_TIER, then applies PRAXIS_* overrides from the environment.
func loadConfig(envFiles ...string) (*domain.Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := domain.DefaultConfig()
	if strings.EqualFold(os.Getenv("PRAXIS_TIER"), string(domain.TierPro)) {
		cfg = domain.ProConfig()
	}

	env := envReader{}

	cfg.Server.Host = env.str("PRAXIS_HOST", cfg.Server.Host)
	cfg.Server.Port = env.int("PRAXIS_PORT", cfg.Server.Port)

	cfg.Repository.Driver = env.str("PRAXIS_DB_DRIVER", cfg.Repository.Driver)
	cfg.Repository.SQLitePath = env.str("PRAXIS_SQLITE_PATH", cfg.Repository.SQLitePath)
	cfg.Repository.PostgresHost = env.str("PRAXIS_POSTGRES_HOST", cfg.Repository.PostgresHost)
	cfg.Repository.PostgresPort = env.int("PRAXIS_POSTGRES_PORT", cfg.Repository.PostgresPort)
	cfg.Repository.PostgresDB = env.str("PRAXIS_POSTGRES_DB", cfg.Repository.PostgresDB)
	cfg.Repository.PostgresUser = env.str("PRAXIS_POSTGRES_USER", cfg.Repository.PostgresUser)
	cfg.Repository.PostgresPassword = env.str("PRAXIS_POSTGRES_PASSWORD", cfg.Repository.PostgresPassword)
	cfg.Repository.PostgresSSLMode = env.str("PRAXIS_POSTGRES_SSLMODE", cfg.Repository.PostgresSSLMode)

	cfg.Cache.RedisAddr = env.str("PRAXIS_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = env.str("PRAXIS_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.StatisticsTTL = env.duration("PRAXIS_STATS_TTL", cfg.Cache.StatisticsTTL)

	cfg.EventBus.NATSUrl = env.str("PRAXIS_NATS_URL", cfg.EventBus.NATSUrl)
	cfg.EventBus.NATSToken = env.str("PRAXIS_NATS_TOKEN", cfg.EventBus.NATSToken)

	cfg.Policy.RiskThreshold = env.float("PRAXIS_RISK_THRESHOLD", cfg.Policy.RiskThreshold)
	cfg.Policy.MaxWorkers = env.int("PRAXIS_POLICY_WORKERS", cfg.Policy.MaxWorkers)

	if raw := os.Getenv("PRAXIS_TENANTS"); raw != "" {
		cfg.Worker.Tenants = splitList(raw)
	}
	cfg.Worker.ExpirySweepInterval = env.duration("PRAXIS_SWEEP_INTERVAL", cfg.Worker.ExpirySweepInterval)

	if env.err != nil {
		return nil, env.err
	}
	return cfg, nil
}

// envReader keeps the first parse error so callers can check once.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) fail(key string, err error) {
	slog.Warn("invalid environment value", "key", key, "error", err)
	if e.err == nil {
		e.err = fmt.Errorf("%s: %w", key, err)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
