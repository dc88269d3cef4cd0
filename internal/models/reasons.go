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

// Stable reason codes returned to callers of a distribution request
const (
	ReasonRecipientDenylisted      = "RECIPIENT_DENYLISTED"
	ReasonRecipientAlreadyReceived = "RECIPIENT_ALREADY_RECEIVED"
	ReasonRateLimitExceeded        = "NFC_RATE_LIMIT_EXCEEDED"
	ReasonInsufficientBalance      = "INSUFFICIENT_BALANCE"
	ReasonMinterRoleMissing        = "MINTER_ROLE_MISSING"
	ReasonTransactionFailed        = "TRANSACTION_FAILED"
	ReasonGasEstimationFailed      = "GAS_ESTIMATION_FAILED"
	ReasonInvalidAddress           = "INVALID_ADDRESS"

	ReasonInvalidTag         = "INVALID_TAG"
	ReasonAmbassadorNotFound = "AMBASSADOR_NOT_FOUND"
	ReasonInternalError      = "INTERNAL_ERROR"
)
