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

	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	"go.uber.org/zap"
)

// AddDenyListEntry bars an address from future distributions
func (s *AdminService) AddDenyListEntry(ctx context.Context, address, reason, addedBy string) (*models.AdminResult, error) {
	if address == "" || reason == "" || addedBy == "" {
		return &models.AdminResult{
			Success: false,
			Error:   "address, reason and added_by are required",
		}, nil
	}

	entry, err := s.distributor.AddDenyListEntry(ctx, address, reason, addedBy)
	if err != nil {
		zap.L().Error("Failed to add deny list entry",
			zap.String("address", address),
			zap.String("added_by", addedBy),
			zap.Error(err))
		return &models.AdminResult{
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	return &models.AdminResult{
		Success: true,
		Message: fmt.Sprintf("%s added to deny list", entry.Address),
	}, nil
}

// RemoveDenyListEntry lifts a deny-list entry
func (s *AdminService) RemoveDenyListEntry(ctx context.Context, address string) (*models.AdminResult, error) {
	if address == "" {
		return &models.AdminResult{Success: false, Error: "address is required"}, nil
	}

	err := s.distributor.RemoveDenyListEntry(ctx, address)
	if errors.Is(err, store.ErrNotFound) {
		return &models.AdminResult{Success: false, Error: "address is not on the deny list"}, nil
	}
	if err != nil {
		zap.L().Error("Failed to remove deny list entry", zap.String("address", address), zap.Error(err))
		return &models.AdminResult{Success: false, Error: err.Error()}, nil
	}

	return &models.AdminResult{
		Success: true,
		Message: fmt.Sprintf("%s removed from deny list", address),
	}, nil
}

// GetDenyListEntry returns nil when the address is not deny-listed
func (s *AdminService) GetDenyListEntry(ctx context.Context, address string) (*models.DenyListEntry, error) {
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	entry, err := s.store.FindDenyListEntry(ctx, address)
	if err != nil {
		zap.L().Error("Failed to get deny list entry", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve deny list entry")
	}
	return entry, nil
}
