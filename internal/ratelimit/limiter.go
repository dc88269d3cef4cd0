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
	"math"
	"time"
)

const (
	DefaultMax           = 5
	DefaultWindow        = time.Hour
	DefaultMaxKeys       = 10000
	DefaultSweepInterval = 5 * time.Minute
)

// Info describes the current window of a key.
type Info struct {
	Limit             int       `json:"limit"`
	Remaining         int       `json:"remaining"`
	ResetAt           time.Time `json:"resetAt"`
	RetryAfterSeconds int       `json:"retryAfterSeconds"`
}

// Limiter is a fixed-window counter keyed by an arbitrary string.
// Implementations are best-effort: concurrent callers may slightly exceed Max
// between IsLimited and Record.
type Limiter interface {
	IsLimited(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string) (int, error)
	Info(ctx context.Context, key string) (Info, error)
	Clear(ctx context.Context, key string) error
}

type Config struct {
	Max           int
	Window        time.Duration
	MaxKeys       int
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Max <= 0 {
		c.Max = DefaultMax
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = DefaultMaxKeys
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

func (c Config) validate() error {
	if c.Max <= 0 {
		return fmt.Errorf("rate limit max must be positive, got %d", c.Max)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %v", c.Window)
	}
	return nil
}

// retryAfter rounds up so a caller never retries before the window resets.
func retryAfter(resetAt, now time.Time) int {
	if !resetAt.After(now) {
		return 0
	}
	return int(math.Ceil(resetAt.Sub(now).Seconds()))
}

func remaining(max, count int) int {
	if count >= max {
		return 0
	}
	return max - count
}
