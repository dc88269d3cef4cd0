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

package executor

import (
	"context"
	"math/big"
	"time"

	"token-distribution-go/internal/models"

	"github.com/shopspring/decimal"
)

// Call is one mint of Amount whole tokens to To.
type Call struct {
	Leg    models.LegKind
	To     string
	Amount decimal.Decimal
}

// Ledger is the network capability the executor drives. Balance and unit price
// are in the network's smallest native unit; EstimateCost returns units of work (gas).
type Ledger interface {
	OperatorAddress() string
	GetBalance(ctx context.Context) (*big.Int, error)
	GetUnitPrice(ctx context.Context) (*big.Int, error)
	EstimateCost(ctx context.Context, call Call) (uint64, error)
	Simulate(ctx context.Context, call Call) error
	Submit(ctx context.Context, call Call) (string, error)
	AwaitConfirmation(ctx context.Context, txHash string, timeout time.Duration) (models.TxStatus, error)
}
