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

package distribution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"token-distribution-go/internal/events"
	"token-distribution-go/internal/executor"
	"token-distribution-go/internal/models"
	"token-distribution-go/internal/ratelimit"
	"token-distribution-go/internal/security"
	"token-distribution-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checker decides whether a request may proceed.
type Checker interface {
	Check(ctx context.Context, ambassadorTag, recipientAddress string) (security.Decision, error)
}

// LedgerExecutor performs the mints of a distribution.
type LedgerExecutor interface {
	Preflight(ctx context.Context, calls ...executor.Call) executor.Result
	Execute(ctx context.Context, call executor.Call) executor.Result
}

type Config struct {
	AmbassadorAmount decimal.Decimal
	RecipientAmount  decimal.Decimal
}

type Deps struct {
	Store    store.DistributionStore
	Executor LedgerExecutor
	Limiter  ratelimit.Limiter
	Pipeline Checker
	Sink     events.Sink
	Now      func() time.Time
}

// Service accepts distribution requests and drives each one to a terminal record.
type Service struct {
	cfg      Config
	store    store.DistributionStore
	executor LedgerExecutor
	limiter  ratelimit.Limiter
	pipeline Checker
	sink     events.Sink
	now      func() time.Time
}

func NewService(cfg Config, deps Deps) (*Service, error) {
	if !cfg.AmbassadorAmount.IsPositive() || !cfg.RecipientAmount.IsPositive() {
		return nil, fmt.Errorf("distribution amounts must be positive, got %s and %s",
			cfg.AmbassadorAmount, cfg.RecipientAmount)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if deps.Sink == nil {
		deps.Sink = events.LogSink{}
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		executor: deps.Executor,
		limiter:  deps.Limiter,
		pipeline: deps.Pipeline,
		sink:     deps.Sink,
		now:      deps.Now,
	}, nil
}

func (s *Service) GetRateLimitInfo(ctx context.Context, tag string) (ratelimit.Info, error) {
	return s.limiter.Info(ctx, strings.TrimSpace(tag))
}

func (s *Service) ClearRateLimit(ctx context.Context, tag string) error {
	tag = strings.TrimSpace(tag)
	if err := s.limiter.Clear(ctx, tag); err != nil {
		return fmt.Errorf("unable to clear rate limit for %s: %w", tag, err)
	}
	zap.L().Info("Rate limit cleared", zap.String("ambassador_tag", tag))
	return nil
}

func (s *Service) AddDenyListEntry(ctx context.Context, address, reason, addedBy string) (*models.DenyListEntry, error) {
	address = normalizeAddress(address)
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("reason cannot be empty")
	}

	return s.store.UpsertDenyListEntry(ctx, store.UpsertDenyListParams{
		Address: address,
		Reason:  reason,
		AddedBy: addedBy,
	})
}

func (s *Service) RemoveDenyListEntry(ctx context.Context, address string) error {
	address = normalizeAddress(address)
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	return s.store.DeleteDenyListEntry(ctx, address)
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
