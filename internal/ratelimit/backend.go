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

package ratelimit

import (
	"context"
	"fmt"

	"token-distribution-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend bundles a Limiter with the resources it owns.
type Backend struct {
	Limiter Limiter
	memory  *Memory
	client  *redis.Client
}

// NewFromConfig builds the limiter selected by cfg.Backend.
func NewFromConfig(ctx context.Context, cfg models.RateLimitConfig) (*Backend, error) {
	limiterCfg := Config{
		Max:           cfg.Max,
		Window:        cfg.Window,
		MaxKeys:       cfg.MaxKeys,
		SweepInterval: cfg.SweepInterval,
	}

	switch cfg.Backend {
	case "", "memory":
		memory := NewMemory(limiterCfg)
		memory.Start(ctx)
		return &Backend{Limiter: memory, memory: memory}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		limiter, err := NewRedis(client, limiterCfg)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		zap.L().Info("Using redis rate limiter", zap.String("addr", cfg.RedisAddr))
		return &Backend{Limiter: limiter, client: client}, nil

	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

func (b *Backend) Close() {
	if b.memory != nil {
		b.memory.Stop()
	}
	if b.client != nil {
		if err := b.client.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
}
