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

package common

import (
	"context"
	"log"
	"strings"

	"token-distribution-go/internal/api"
	"token-distribution-go/internal/chain"
	"token-distribution-go/internal/database"
	"token-distribution-go/internal/distribution"
	"token-distribution-go/internal/events"
	"token-distribution-go/internal/executor"
	"token-distribution-go/internal/models"
	"token-distribution-go/internal/ratelimit"
	"token-distribution-go/internal/security"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService     *database.Service
	LedgerService *chain.Service
	RateLimiter   *ratelimit.Backend
	Sink          events.Sink
	Distribution  *distribution.Service
	Admin         *api.AdminService

	kafkaSink *events.KafkaSink
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the full distribution stack: database, ledger,
// limiter, security pipeline, executor, event sinks and the admin API.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	services := &Services{}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services.DbService = dbService

	zap.L().Info("Connecting to ledger", zap.String("rpc_url", cfg.Ledger.RPCURL))
	ledger, err := chain.NewService(ctx, cfg.Ledger, cfg.Token)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.LedgerService = ledger

	limiter, err := ratelimit.NewFromConfig(ctx, cfg.RateLimit)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.RateLimiter = limiter

	services.Sink, services.kafkaSink, err = buildSink(cfg.Events)
	if err != nil {
		services.Close()
		return nil, err
	}

	exec := executor.New(ledger, executor.Config{
		MaxRetries:          cfg.Executor.MaxRetries,
		BaseDelay:           cfg.Executor.BaseDelay,
		CallTimeout:         cfg.Ledger.CallTimeout,
		ConfirmationTimeout: cfg.Ledger.ConfirmationTimeout,
	})

	pipeline := security.NewPipeline(dbService, security.Config{
		HourlyMax: cfg.Pipeline.HourlyMax,
		Window:    cfg.Pipeline.Window,
	})

	distributionService, err := distribution.NewService(distribution.Config{
		AmbassadorAmount: decimal.RequireFromString(cfg.Token.AmbassadorAmount),
		RecipientAmount:  decimal.RequireFromString(cfg.Token.RecipientAmount),
	}, distribution.Deps{
		Store:    dbService,
		Executor: exec,
		Limiter:  limiter.Limiter,
		Pipeline: pipeline,
		Sink:     services.Sink,
	})
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Distribution = distributionService
	services.Admin = api.NewAdminService(dbService, distributionService)

	zap.L().Info("Distribution services initialized",
		zap.String("token", cfg.Token.Symbol),
		zap.String("ambassador_amount", cfg.Token.AmbassadorAmount),
		zap.String("recipient_amount", cfg.Token.RecipientAmount))
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without the ledger.
// Useful for operator commands that only read or edit records.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

// BuildSink returns the event sink described by cfg and a closer for it.
func BuildSink(cfg models.EventsConfig) (events.Sink, func(), error) {
	sink, kafkaSink, err := buildSink(cfg)
	if err != nil {
		return nil, nil, err
	}
	return sink, func() { closeKafka(kafkaSink) }, nil
}

func buildSink(cfg models.EventsConfig) (events.Sink, *events.KafkaSink, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.LogSink{}, nil, nil
	}

	kafkaSink, err := events.NewKafkaSink(events.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	})
	if err != nil {
		return nil, nil, err
	}
	return events.Multi{events.LogSink{}, kafkaSink}, kafkaSink, nil
}

func closeKafka(sink *events.KafkaSink) {
	if sink == nil {
		return
	}
	if err := sink.Close(); err != nil {
		zap.L().Warn("Failed to close Kafka sink", zap.Error(err))
	}
}

func (cs *Services) Close() {
	if cs.RateLimiter != nil {
		cs.RateLimiter.Close()
	}
	closeKafka(cs.kafkaSink)
	if cs.LedgerService != nil {
		cs.LedgerService.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
