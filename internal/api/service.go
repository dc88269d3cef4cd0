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

package api

import (
	"context"
	"fmt"

	"token-distribution-go/internal/models"
	"token-distribution-go/internal/ratelimit"
	"token-distribution-go/internal/store"
)

// Distributor is the part of the distribution service exposed to operators.
type Distributor interface {
	AddDenyListEntry(ctx context.Context, address, reason, addedBy string) (*models.DenyListEntry, error)
	RemoveDenyListEntry(ctx context.Context, address string) error
	ClearRateLimit(ctx context.Context, tag string) error
	GetRateLimitInfo(ctx context.Context, tag string) (ratelimit.Info, error)
}

// AdminService is the operator API
type AdminService struct {
	store       store.DistributionStore
	distributor Distributor
}

func NewAdminService(st store.DistributionStore, distributor Distributor) *AdminService {
	return &AdminService{
		store:       st,
		distributor: distributor,
	}
}

func (s *AdminService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
