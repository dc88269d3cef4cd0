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

import "time"

// LegKind identifies one of the two mint operations of a distribution
type LegKind string

const (
	LegAmbassador LegKind = "ambassador"
	LegRecipient  LegKind = "recipient"
)

// Receipt is the ledger reference of a confirmed mint
type Receipt struct {
	TxHash      string
	Attempts    int
	ConfirmedAt time.Time
}

// TxStatus is the final status reported by a confirmation wait
type TxStatus string

const (
	TxConfirmed TxStatus = "confirmed"
	TxReverted  TxStatus = "reverted"
	TxTimeout   TxStatus = "timeout"
)
