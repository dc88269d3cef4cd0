/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"token-distribution-go/internal/models"
)

func Load() (*models.Config, error) {
	var connMaxLifetime, connMaxIdleTime, pingTimeout time.Duration
	var rlWindow, rlSweep, pipelineWindow time.Duration
	var callTimeout, confirmTimeout, confirmPoll, baseDelay time.Duration
	var monitorInterval, pendingThreshold time.Duration

	defaults := []struct {
		key    string
		target *time.Duration
		def    time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", &connMaxLifetime, 5 * time.Minute},
		{"DB_CONN_MAX_IDLE_TIME", &connMaxIdleTime, 30 * time.Second},
		{"DB_PING_TIMEOUT", &pingTimeout, 5 * time.Second},
		{"RATE_LIMIT_WINDOW", &rlWindow, time.Hour},
		{"RATE_LIMIT_SWEEP_INTERVAL", &rlSweep, 5 * time.Minute},
		{"PIPELINE_WINDOW", &pipelineWindow, time.Hour},
		{"LEDGER_CALL_TIMEOUT", &callTimeout, 15 * time.Second},
		{"LEDGER_CONFIRMATION_TIMEOUT", &confirmTimeout, 2 * time.Minute},
		{"LEDGER_CONFIRMATION_POLL", &confirmPoll, 2 * time.Second},
		{"EXECUTOR_BASE_DELAY", &baseDelay, time.Second},
		{"MONITOR_POLLING_INTERVAL", &monitorInterval, time.Minute},
		{"MONITOR_PENDING_THRESHOLD", &pendingThreshold, 15 * time.Minute},
	}
	for _, d := range defaults {
		v, err := getEnvDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.target = v
	}

	token, err := LoadTokenConfig(getEnvString("TOKEN_FILE", "token.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "distributions.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		RateLimit: models.RateLimitConfig{
			Backend:       strings.ToLower(getEnvString("RATE_LIMIT_BACKEND", "memory")),
			Max:           getEnvInt("RATE_LIMIT_MAX", 5),
			Window:        rlWindow,
			MaxKeys:       getEnvInt("RATE_LIMIT_MAX_KEYS", 10000),
			SweepInterval: rlSweep,
			RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Pipeline: models.PipelineConfig{
			HourlyMax: getEnvInt("PIPELINE_HOURLY_MAX", 5),
			Window:    pipelineWindow,
		},
		Ledger: models.LedgerConfig{
			RPCURL:              getEnvString("LEDGER_RPC_URL", ""),
			OperatorPrivateKey:  getEnvString("OPERATOR_PRIVATE_KEY", ""),
			CallTimeout:         callTimeout,
			ConfirmationTimeout: confirmTimeout,
			ConfirmationPoll:    confirmPoll,
		},
		Executor: models.ExecutorConfig{
			MaxRetries: getEnvInt("EXECUTOR_MAX_RETRIES", 3),
			BaseDelay:  baseDelay,
		},
		Events: models.EventsConfig{
			KafkaBrokers: getEnvList("EVENTS_KAFKA_BROKERS"),
			KafkaTopic:   getEnvString("EVENTS_KAFKA_TOPIC", "token-distribution-events"),
		},
		Monitor: models.MonitorConfig{
			PollingInterval:  monitorInterval,
			PendingThreshold: pendingThreshold,
		},
		Token: *token,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	if cfg.RateLimit.Backend != "memory" && cfg.RateLimit.Backend != "redis" {
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q (want memory or redis)", cfg.RateLimit.Backend)
	}
	if cfg.RateLimit.Max <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", cfg.RateLimit.Max)
	}
	if cfg.RateLimit.MaxKeys <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_KEYS must be positive, got %d", cfg.RateLimit.MaxKeys)
	}
	if cfg.RateLimit.Window <= 0 || cfg.Pipeline.Window <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}
	if cfg.Pipeline.HourlyMax <= 0 {
		return fmt.Errorf("PIPELINE_HOURLY_MAX must be positive, got %d", cfg.Pipeline.HourlyMax)
	}
	if cfg.Executor.MaxRetries < 0 {
		return fmt.Errorf("EXECUTOR_MAX_RETRIES cannot be negative, got %d", cfg.Executor.MaxRetries)
	}
	if cfg.Ledger.ConfirmationTimeout <= 0 || cfg.Ledger.CallTimeout <= 0 {
		return fmt.Errorf("ledger timeouts must be positive")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
