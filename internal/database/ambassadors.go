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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) FindAmbassadorByTag(ctx context.Context, tag string) (*models.Ambassador, error) {
	zap.L().Debug("Querying ambassador by tag", zap.String("tag", tag))

	var ambassador models.Ambassador
	var totalMinted string
	err := s.db.QueryRowContext(ctx, queryGetAmbassadorByTag, tag).Scan(
		&ambassador.Id, &ambassador.Tag, &ambassador.WalletAddress, &ambassador.TotalDistributions,
		&totalMinted, &ambassador.Active, &ambassador.CreatedAt, &ambassador.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("Failed to query ambassador by tag", zap.String("tag", tag), zap.Error(err))
		return nil, fmt.Errorf("unable to query ambassador by tag: %w", err)
	}

	ambassador.TotalMinted, err = decimal.NewFromString(totalMinted)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total minted '%s': %w", totalMinted, err)
	}

	return &ambassador, nil
}

func (s *Service) CreateAmbassador(ctx context.Context, params store.CreateAmbassadorParams) (*models.Ambassador, error) {
	zap.L().Info("Creating ambassador",
		zap.String("tag", params.Tag),
		zap.String("wallet_address", params.WalletAddress))

	now := s.now()
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, queryInsertAmbassador, id, params.Tag, params.WalletAddress, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrAmbassadorExists, params.Tag)
		}
		zap.L().Error("Failed to insert ambassador", zap.String("tag", params.Tag), zap.Error(err))
		return nil, fmt.Errorf("unable to insert ambassador: %w", err)
	}

	zap.L().Info("Ambassador created successfully", zap.String("id", id), zap.String("tag", params.Tag))
	return s.FindAmbassadorByTag(ctx, params.Tag)
}

// incrementAmbassadorTotals runs inside the terminal success transaction.
func incrementAmbassadorTotals(ctx context.Context, tx *sql.Tx, ambassadorId string, minted decimal.Decimal, now time.Time) error {
	var count int64
	var totalStr string
	err := tx.QueryRowContext(ctx, queryGetAmbassadorTotals, ambassadorId).Scan(&count, &totalStr)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("ambassador %s: %w", ambassadorId, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read ambassador totals: %w", err)
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return fmt.Errorf("failed to parse total minted '%s': %w", totalStr, err)
	}

	if _, err := tx.ExecContext(ctx, queryUpdateAmbassadorTotals, count+1, total.Add(minted).String(), now, ambassadorId); err != nil {
		return fmt.Errorf("failed to update ambassador totals: %w", err)
	}
	return nil
}
