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
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisPrefix = "ratelimit:nfc"

// Redis is a Limiter shared by every instance pointing at the same server.
// Each key is a counter whose TTL is the remainder of its window.
type Redis struct {
	client *redis.Client
	cfg    Config
	prefix string
}

var _ Limiter = (*Redis)(nil)

func NewRedis(client *redis.Client, cfg Config) (*Redis, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Redis{client: client, cfg: cfg, prefix: defaultRedisPrefix}, nil
}

func (l *Redis) key(key string) string {
	return fmt.Sprintf("%s:%s", l.prefix, key)
}

func (l *Redis) IsLimited(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Get(ctx, l.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	return count >= l.cfg.Max, nil
}

func (l *Redis) Record(ctx context.Context, key string) (int, error) {
	redisKey := l.key(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record rate limit event: %w", err)
	}

	// A counter without a TTL was just created (or lost its expiry): start the window.
	if ttl.Val() < 0 {
		if err := l.client.PExpire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return remaining(l.cfg.Max, int(incr.Val())), nil
}

func (l *Redis) Info(ctx context.Context, key string) (Info, error) {
	redisKey := l.key(key)

	pipe := l.client.Pipeline()
	get := pipe.Get(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Info{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	info := Info{Limit: l.cfg.Max, Remaining: l.cfg.Max}
	raw, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return info, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		zap.L().Warn("Invalid rate limit counter", zap.String("key", redisKey), zap.String("value", raw))
		return info, nil
	}

	now := time.Now()
	info.Remaining = remaining(l.cfg.Max, count)
	if d := ttl.Val(); d > 0 {
		info.ResetAt = now.Add(d)
	}
	if count >= l.cfg.Max {
		info.RetryAfterSeconds = retryAfter(info.ResetAt, now)
	}
	return info, nil
}

func (l *Redis) Clear(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear rate limit window: %w", err)
	}
	return nil
}
