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

	"go.uber.org/zap"
)

// ClearRateLimit resets the in-memory window of an ambassador tag
func (s *AdminService) ClearRateLimit(ctx context.Context, tag string) (*models.AdminResult, error) {
	if tag == "" {
		return &models.AdminResult{Success: false, Error: "tag is required"}, nil
	}

	if err := s.distributor.ClearRateLimit(ctx, tag); err != nil {
		zap.L().Error("Failed to clear rate limit", zap.String("ambassador_tag", tag), zap.Error(err))
		return &models.AdminResult{Success: false, Error: err.Error()}, nil
	}

	return &models.AdminResult{
		Success: true,
		Message: fmt.Sprintf("rate limit cleared for %s", tag),
	}, nil
}

func (s *AdminService) GetRateLimitInfo(ctx context.Context, tag string) (ratelimit.Info, error) {
	if tag == "" {
		return ratelimit.Info{}, fmt.Errorf("tag is required")
	}
	return s.distributor.GetRateLimitInfo(ctx, tag)
}
