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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionStatus is the persisted state of a distribution record
type DistributionStatus string

const (
	StatusPending DistributionStatus = "pending"
	StatusSuccess DistributionStatus = "success"
	StatusFailed  DistributionStatus = "failed"
)

// Valid reports whether s is one of the three persisted states.
func (s DistributionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s can no longer change.
func (s DistributionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransitionTo reports whether a record in state s may move to next.
// Only pending records move, and only to a terminal state.
func (s DistributionStatus) CanTransitionTo(next DistributionStatus) bool {
	return s == StatusPending && next.Terminal()
}

// Ambassador is the referring party identified by an NFC tag
type Ambassador struct {
	Id                 string          `db:"id"`
	Tag                string          `db:"tag"`
	WalletAddress      string          `db:"wallet_address"`
	TotalDistributions int64           `db:"total_distributions"`
	TotalMinted        decimal.Decimal `db:"total_minted"`
	Active             bool            `db:"active"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

// DistributionRecord is one distribution attempt (immutable once terminal)
type DistributionRecord struct {
	Id               string             `db:"id"`
	AmbassadorId     string             `db:"ambassador_id"`
	AmbassadorTag    string             `db:"ambassador_tag"`
	RecipientAddress string             `db:"recipient_address"`
	AmbassadorAmount decimal.Decimal    `db:"ambassador_amount"`
	RecipientAmount  decimal.Decimal    `db:"recipient_amount"`
	Status           DistributionStatus `db:"status"`
	AmbassadorTxHash string             `db:"ambassador_tx_hash"`
	RecipientTxHash  string             `db:"recipient_tx_hash"`
	FailureCode      string             `db:"failure_code"`
	CreatedAt        time.Time          `db:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at"`
}

// TxRefCount returns how many ledger legs left a transaction reference.
func (r *DistributionRecord) TxRefCount() int {
	n := 0
	if r.AmbassadorTxHash != "" {
		n++
	}
	if r.RecipientTxHash != "" {
		n++
	}
	return n
}

// PartialFailure reports whether the ambassador was paid but the recipient was not.
func (r *DistributionRecord) PartialFailure() bool {
	return r.Status == StatusFailed && r.AmbassadorTxHash != "" && r.RecipientTxHash == ""
}

// DenyListEntry bars an address from receiving distributions
type DenyListEntry struct {
	Address   string    `db:"address"`
	Reason    string    `db:"reason"`
	AddedBy   string    `db:"added_by"`
	CreatedAt time.Time `db:"created_at"`
}
