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
	"errors"
	"fmt"
	"time"

	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetRecord returns a single distribution record
func (s *AdminService) GetRecord(ctx context.Context, id string) (*models.DistributionRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("record id is required")
	}

	record, err := s.store.GetRecord(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		zap.L().Error("Failed to get distribution record", zap.String("record_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve record")
	}
	return record, nil
}

// ListRecords returns paginated records in one status, newest first
func (s *AdminService) ListRecords(ctx context.Context, status models.DistributionStatus, limit, offset int) ([]models.DistributionRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status must be one of pending, success, failed")
	}
	limit, offset = normalizePage(limit, offset)

	records, err := s.store.ListRecordsByStatus(ctx, status, limit, offset)
	if err != nil {
		zap.L().Error("Failed to list records", zap.String("status", string(status)), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve records")
	}
	return records, nil
}

// ListPartialFailures returns failed records whose ambassador leg was minted
func (s *AdminService) ListPartialFailures(ctx context.Context, limit int) ([]models.DistributionRecord, error) {
	limit, _ = normalizePage(limit, 0)

	records, err := s.store.ListPartialFailures(ctx, limit)
	if err != nil {
		zap.L().Error("Failed to list partial failures", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve partial failures")
	}
	return records, nil
}

// ListStalePending returns pending records created more than olderThan ago
func (s *AdminService) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]models.DistributionRecord, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("age threshold must be positive")
	}
	limit, _ = normalizePage(limit, 0)

	records, err := s.store.ListStalePending(ctx, time.Now().UTC().Add(-olderThan), limit)
	if err != nil {
		zap.L().Error("Failed to list stale pending records", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve pending records")
	}
	return records, nil
}
