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

package store

import (
	"context"
	"errors"
	"time"

	"token-distribution-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound          = errors.New("not found")
	ErrRecordFinalized   = errors.New("distribution record already finalized")
	ErrRecipientConflict = errors.New("recipient already has a pending or successful distribution")
	ErrAmbassadorExists  = errors.New("ambassador tag already registered")
)

// CreateRecordParams contains the parameters for creating a pending distribution record.
type CreateRecordParams struct {
	AmbassadorId     string
	AmbassadorTag    string
	RecipientAddress string
	AmbassadorAmount decimal.Decimal
	RecipientAmount  decimal.Decimal
}

// RecordPatch is a partial update of a pending record. Nil fields are left unchanged.
type RecordPatch struct {
	Status           *models.DistributionStatus
	AmbassadorTxHash *string
	RecipientTxHash  *string
	FailureCode      *string
}

// CreateAmbassadorParams contains the parameters for registering an ambassador.
type CreateAmbassadorParams struct {
	Tag           string
	WalletAddress string
}

// UpsertDenyListParams contains the parameters for adding or replacing a deny-list entry.
type UpsertDenyListParams struct {
	Address string
	Reason  string
	AddedBy string
}

// DistributionStore defines the persistence contract consumed by the distribution core.
// Only records in status pending may be updated; every terminal update is one atomic write.
type DistributionStore interface {
	// --- Ambassadors ---
	FindAmbassadorByTag(ctx context.Context, tag string) (*models.Ambassador, error)
	CreateAmbassador(ctx context.Context, params CreateAmbassadorParams) (*models.Ambassador, error)

	// --- Distribution records ---
	CreatePendingRecord(ctx context.Context, params CreateRecordParams) (*models.DistributionRecord, error)
	UpdateRecord(ctx context.Context, id string, patch RecordPatch) error
	CompleteDistribution(ctx context.Context, id string, patch RecordPatch, ambassadorId string, minted decimal.Decimal) error
	GetRecord(ctx context.Context, id string) (*models.DistributionRecord, error)
	CountRecordsByAmbassadorSince(ctx context.Context, tag string, since time.Time) (int, error)
	EarliestRecordByAmbassadorSince(ctx context.Context, tag string, since time.Time) (time.Time, error)
	FindSuccessfulRecordByRecipient(ctx context.Context, address string) (*models.DistributionRecord, error)
	ListRecordsByStatus(ctx context.Context, status models.DistributionStatus, limit, offset int) ([]models.DistributionRecord, error)
	ListPartialFailures(ctx context.Context, limit int) ([]models.DistributionRecord, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.DistributionRecord, error)

	// --- Deny list ---
	FindDenyListEntry(ctx context.Context, address string) (*models.DenyListEntry, error)
	UpsertDenyListEntry(ctx context.Context, params UpsertDenyListParams) (*models.DenyListEntry, error)
	DeleteDenyListEntry(ctx context.Context, address string) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
