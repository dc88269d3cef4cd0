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

package distribution

import "token-distribution-go/internal/models"

// Caller-facing text per reason code. Internal details stay in the logs.
var messages = map[string]string{
	models.ReasonRecipientDenylisted:      "This wallet cannot receive tokens.",
	models.ReasonRecipientAlreadyReceived: "This wallet has already received tokens.",
	models.ReasonRateLimitExceeded:        "Too many requests for this tag. Please try again later.",
	models.ReasonInsufficientBalance:      "Distributions are temporarily unavailable.",
	models.ReasonMinterRoleMissing:        "Distributions are temporarily unavailable.",
	models.ReasonTransactionFailed:        "The transaction could not be completed. Please try again.",
	models.ReasonGasEstimationFailed:      "The network is busy. Please try again.",
	models.ReasonInvalidAddress:           "The wallet address is not valid.",
	models.ReasonInvalidTag:               "The tag is not valid.",
	models.ReasonAmbassadorNotFound:       "This tag is not registered.",
	models.ReasonInternalError:            "Something went wrong. Please try again.",
}

func messageFor(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[models.ReasonInternalError]
}
