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

package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Pipeline  PipelineConfig
	Ledger    LedgerConfig
	Executor  ExecutorConfig
	Events    EventsConfig
	Monitor   MonitorConfig
	Token     TokenConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// RateLimitConfig holds the in-process (or Redis) limiter settings
type RateLimitConfig struct {
	Backend       string // "memory" or "redis"
	Max           int
	Window        time.Duration
	MaxKeys       int
	SweepInterval time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// PipelineConfig holds the persistence-backed hourly count settings
type PipelineConfig struct {
	HourlyMax int
	Window    time.Duration
}

// LedgerConfig holds the JSON-RPC connection and operator key
type LedgerConfig struct {
	RPCURL              string
	OperatorPrivateKey  string
	CallTimeout         time.Duration
	ConfirmationTimeout time.Duration
	ConfirmationPoll    time.Duration
}

// ExecutorConfig holds the per-leg retry policy
type ExecutorConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// EventsConfig holds the observability sink settings. Kafka is optional.
type EventsConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// MonitorConfig holds the pending-record monitor settings
type MonitorConfig struct {
	PollingInterval  time.Duration
	PendingThreshold time.Duration
}

// TokenConfig is loaded from the token YAML file
type TokenConfig struct {
	File             string
	Symbol           string
	ContractAddress  string
	ChainId          int64
	Decimals         int32
	AmbassadorAmount string
	RecipientAmount  string
}
