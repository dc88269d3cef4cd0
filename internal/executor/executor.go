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
	"fmt"
	"math"
	"math/big"
	"time"

	"token-distribution-go/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries          = 3
	DefaultBaseDelay           = time.Second
	DefaultCallTimeout         = 15 * time.Second
	DefaultConfirmationTimeout = 2 * time.Minute
)

type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries          int
	BaseDelay           time.Duration
	CallTimeout         time.Duration
	ConfirmationTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.ConfirmationTimeout <= 0 {
		c.ConfirmationTimeout = DefaultConfirmationTimeout
	}
	return c
}

// Executor runs mints against a Ledger with preflight checks and bounded retries.
type Executor struct {
	ledger Ledger
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

func New(ledger Ledger, cfg Config) *Executor {
	return &Executor{
		ledger: ledger,
		cfg:    cfg.withDefaults(),
		sleep:  sleepContext,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithSleep replaces the backoff wait, mostly for tests.
func (e *Executor) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Executor {
	e.sleep = sleep
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newBackOff returns the retry schedule: base, 2*base, 4*base, ... without jitter.
func (e *Executor) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.Reset()
	return b
}

func validAddress(address string) bool {
	return common.IsHexAddress(address)
}

// Preflight checks, once for all calls, that each call would be accepted and
// that the operator can pay for all of them.
func (e *Executor) Preflight(ctx context.Context, calls ...Call) Result {
	for _, call := range calls {
		if !validAddress(call.To) {
			return failure(KindInvalidAddress, fmt.Sprintf("invalid %s address %q", call.Leg, call.To), nil)
		}
	}

	return e.retry(ctx, "preflight", func(ctx context.Context) Result {
		return e.preflightOnce(ctx, calls)
	})
}

func (e *Executor) preflightOnce(ctx context.Context, calls []Call) Result {
	totalUnits := new(big.Int)
	for _, call := range calls {
		var units uint64
		err := e.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			units, err = e.ledger.EstimateCost(ctx, call)
			return err
		})
		if err != nil {
			kind := classifySimulation(err)
			return failure(kind, fmt.Sprintf("cost estimation failed for %s leg", call.Leg), err)
		}
		totalUnits.Add(totalUnits, new(big.Int).SetUint64(units))
	}

	var price, balance *big.Int
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		price, err = e.ledger.GetUnitPrice(ctx)
		return err
	})
	if err != nil {
		return failure(KindGasEstimationFailed, "unit price unavailable", err)
	}

	err = e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		balance, err = e.ledger.GetBalance(ctx)
		return err
	})
	if err != nil {
		return failure(KindGasEstimationFailed, "operator balance unavailable", err)
	}

	required := new(big.Int).Mul(totalUnits, price)
	if balance.Cmp(required) < 0 {
		zap.L().Error("Operator balance below required network fees",
			zap.String("operator", e.ledger.OperatorAddress()),
			zap.String("balance", balance.String()),
			zap.String("required", required.String()))
		return failure(KindInsufficientBalance,
			fmt.Sprintf("operator balance %s below required %s", balance, required), nil)
	}

	zap.L().Debug("Preflight passed",
		zap.Int("calls", len(calls)),
		zap.String("required", required.String()),
		zap.String("balance", balance.String()))
	return Result{Kind: KindOK}
}

// Execute mints call.Amount to call.To and waits for confirmation, retrying
// retryable failures up to MaxRetries times.
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	if !validAddress(call.To) {
		return failure(KindInvalidAddress, fmt.Sprintf("invalid %s address %q", call.Leg, call.To), nil)
	}

	return e.retry(ctx, string(call.Leg), func(ctx context.Context) Result {
		return e.executeOnce(ctx, call)
	})
}

func (e *Executor) executeOnce(ctx context.Context, call Call) Result {
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		return e.ledger.Simulate(ctx, call)
	})
	if err != nil {
		return failure(classifySimulation(err), "simulation rejected the mint", err)
	}

	var txHash string
	err = e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		txHash, err = e.ledger.Submit(ctx, call)
		return err
	})
	if err != nil {
		return failure(KindTransactionFailed, "submission failed", err)
	}

	zap.L().Info("Mint submitted",
		zap.String("leg", string(call.Leg)),
		zap.String("to", call.To),
		zap.String("amount", call.Amount.String()),
		zap.String("tx_hash", txHash))

	status, err := e.ledger.AwaitConfirmation(ctx, txHash, e.cfg.ConfirmationTimeout)
	if err != nil {
		return Result{Kind: KindTransactionFailed, Detail: "confirmation wait failed", Err: err,
			Receipt: models.Receipt{TxHash: txHash}}
	}

	switch status {
	case models.TxConfirmed:
		return Result{Kind: KindOK, Receipt: models.Receipt{TxHash: txHash, ConfirmedAt: e.now()}}
	case models.TxTimeout:
		return Result{Kind: KindTransactionFailed, Detail: "confirmation timed out",
			Receipt: models.Receipt{TxHash: txHash}}
	default:
		return Result{Kind: KindTransactionFailed, Detail: fmt.Sprintf("transaction %s", status),
			Receipt: models.Receipt{TxHash: txHash}}
	}
}

func (e *Executor) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

func (e *Executor) retry(ctx context.Context, op string, fn func(ctx context.Context) Result) Result {
	var result Result
	attempts := e.cfg.MaxRetries + 1
	schedule := e.newBackOff()

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := schedule.NextBackOff()
			zap.L().Warn("Retrying ledger operation",
				zap.String("operation", op),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", attempts),
				zap.Duration("delay", delay),
				zap.String("previous_kind", string(result.Kind)),
				zap.Error(result.Err))
			if err := e.sleep(ctx, delay); err != nil {
				return abandoned(op, attempt, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return abandoned(op, attempt, err)
		}

		result = fn(ctx)
		result.Attempts = attempt + 1

		if result.Ok() {
			result.Receipt.Attempts = result.Attempts
			return result
		}
		// A failure caused by the caller going away says nothing about the ledger.
		if err := ctx.Err(); err != nil {
			return abandoned(op, attempt+1, err)
		}
		if !result.Kind.Retryable() {
			return result
		}
	}

	zap.L().Error("Ledger operation failed after retries",
		zap.String("operation", op),
		zap.Int("attempts", result.Attempts),
		zap.String("kind", string(result.Kind)),
		zap.Error(result.Err))
	return result
}

func abandoned(op string, attempts int, err error) Result {
	zap.L().Warn("Ledger operation abandoned", zap.String("operation", op), zap.Error(err))
	return Result{Kind: KindAbandoned, Detail: "context ended during retries", Err: err, Attempts: attempts}
}
