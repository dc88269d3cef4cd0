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
	"strings"

	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) FindDenyListEntry(ctx context.Context, address string) (*models.DenyListEntry, error) {
	var entry models.DenyListEntry
	err := s.db.QueryRowContext(ctx, queryGetDenyListEntry, strings.ToLower(address)).Scan(
		&entry.Address, &entry.Reason, &entry.AddedBy, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("Failed to query deny list", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("unable to query deny list: %w", err)
	}
	return &entry, nil
}

func (s *Service) UpsertDenyListEntry(ctx context.Context, params store.UpsertDenyListParams) (*models.DenyListEntry, error) {
	address := strings.ToLower(params.Address)
	zap.L().Info("Adding deny list entry",
		zap.String("address", address),
		zap.String("reason", params.Reason),
		zap.String("added_by", params.AddedBy))

	var entry models.DenyListEntry
	err := s.db.QueryRowContext(ctx, queryUpsertDenyListEntry, address, params.Reason, params.AddedBy, s.now()).Scan(
		&entry.Address, &entry.Reason, &entry.AddedBy, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("unable to upsert deny list entry: %w", err)
	}
	return &entry, nil
}

func (s *Service) DeleteDenyListEntry(ctx context.Context, address string) error {
	address = strings.ToLower(address)
	result, err := s.db.ExecContext(ctx, queryDeleteDenyListEntry, address)
	if err != nil {
		return fmt.Errorf("unable to delete deny list entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("deny list entry %s: %w", address, store.ErrNotFound)
	}

	zap.L().Info("Deny list entry removed", zap.String("address", address))
	return nil
}
