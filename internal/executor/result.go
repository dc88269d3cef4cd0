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
	"strings"

	"token-distribution-go/internal/models"
)

// Kind classifies the outcome of a ledger operation.
type Kind string

const (
	KindOK                  Kind = "OK"
	KindInvalidAddress      Kind = "INVALID_ADDRESS"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindMinterRoleMissing   Kind = "MINTER_ROLE_MISSING"
	KindGasEstimationFailed Kind = "GAS_ESTIMATION_FAILED"
	KindTransactionFailed   Kind = "TRANSACTION_FAILED"
	// KindAbandoned means the caller's context ended during the retry loop.
	// The outcome on the ledger is unknown.
	KindAbandoned Kind = "ABANDONED"
)

func (k Kind) Retryable() bool {
	return k == KindGasEstimationFailed || k == KindTransactionFailed
}

// Critical failures need an operator: the service cannot mint until fixed.
func (k Kind) Critical() bool {
	return k == KindInsufficientBalance || k == KindMinterRoleMissing
}

// ReasonCode maps a failure to the code reported to callers.
func (k Kind) ReasonCode() string {
	switch k {
	case KindOK:
		return ""
	case KindInvalidAddress:
		return models.ReasonInvalidAddress
	case KindInsufficientBalance:
		return models.ReasonInsufficientBalance
	case KindMinterRoleMissing:
		return models.ReasonMinterRoleMissing
	case KindGasEstimationFailed:
		return models.ReasonGasEstimationFailed
	default:
		return models.ReasonTransactionFailed
	}
}

// Result is the tagged outcome of Preflight or Execute.
type Result struct {
	Kind     Kind
	Receipt  models.Receipt
	Detail   string
	Err      error
	Attempts int
}

func (r Result) Ok() bool {
	return r.Kind == KindOK
}

func failure(kind Kind, detail string, err error) Result {
	return Result{Kind: kind, Detail: detail, Err: err}
}

var authorizationDenied = []string{
	"missing role",
	"accesscontrolunauthorizedaccount",
	"0xe2517d3f", // AccessControlUnauthorizedAccount(address,bytes32) selector
	"caller is not a minter",
	"not minter",
}

// isAuthorizationDenied reports whether a simulation error means the operator
// lacks permission to mint.
func isAuthorizationDenied(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range authorizationDenied {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classifySimulation turns a pre-submit failure into MINTER_ROLE_MISSING or
// GAS_ESTIMATION_FAILED.
func classifySimulation(err error) Kind {
	if isAuthorizationDenied(err) {
		return KindMinterRoleMissing
	}
	return KindGasEstimationFailed
}
