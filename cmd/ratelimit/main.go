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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"token-distribution-go/internal/common"
	"token-distribution-go/internal/config"
	"token-distribution-go/internal/ratelimit"

	"go.uber.org/zap"
)

// Only meaningful with the redis backend; the memory limiter lives inside
// the distributing process.
func main() {
	tag := flag.String("tag", "", "Ambassador tag (required)")
	clearWindow := flag.Bool("clear", false, "Clear the tag's rate-limit window")
	flag.Parse()

	if *tag == "" {
		fmt.Println("Usage: ratelimit -tag <tag> [-clear]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if cfg.RateLimit.Backend != "redis" {
		fmt.Println("Rate-limit state is per process with the memory backend; set RATE_LIMIT_BACKEND=redis")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := ratelimit.NewFromConfig(ctx, cfg.RateLimit)
	if err != nil {
		zap.L().Fatal("Failed to initialize rate limiter", zap.Error(err))
	}
	defer backend.Close()

	if *clearWindow {
		if err := backend.Limiter.Clear(ctx, *tag); err != nil {
			zap.L().Fatal("Failed to clear rate limit", zap.Error(err))
		}
		fmt.Printf("✓ Rate limit cleared for %s\n", *tag)
		return
	}

	info, err := backend.Limiter.Info(ctx, *tag)
	if err != nil {
		zap.L().Fatal("Failed to read rate limit", zap.Error(err))
	}

	common.PrintHeader("RATE LIMIT", common.DefaultWidth)
	common.PrintField("Tag", *tag)
	common.PrintField("Limit", fmt.Sprintf("%d", info.Limit))
	common.PrintField("Remaining", fmt.Sprintf("%d", info.Remaining))
	if !info.ResetAt.IsZero() {
		common.PrintField("Resets at", info.ResetAt.Format(time.RFC3339))
	}
	common.PrintSeparator("=", common.DefaultWidth)
}
