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

// DistributionResult is returned to the web/API layer for one distribution request
type DistributionResult struct {
	Success           bool   `json:"success"`
	RecordId          string `json:"record_id,omitempty"`
	AmbassadorReceipt string `json:"ambassador_receipt,omitempty"`
	RecipientReceipt  string `json:"recipient_receipt,omitempty"`
	ReasonCode        string `json:"reason_code,omitempty"`
	Message           string `json:"message,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	PartialFailure    bool   `json:"partial_failure,omitempty"`
}

// AdminResult represents the result of an administrative operation
type AdminResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
