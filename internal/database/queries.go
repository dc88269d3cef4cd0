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

package database

const (
	// Ambassador queries
	queryInsertAmbassador = `
		INSERT INTO ambassadors (id, tag, wallet_address, total_distributions, total_minted, active, created_at, updated_at)
		VALUES (?, ?, ?, 0, '0', 1, ?, ?)`

	queryGetAmbassadorByTag = `
		SELECT id, tag, wallet_address, total_distributions, total_minted, active, created_at, updated_at
		FROM ambassadors
		WHERE tag = ? AND active = 1`

	queryGetAmbassadorTotals = `
		SELECT total_distributions, total_minted
		FROM ambassadors
		WHERE id = ?`

	queryUpdateAmbassadorTotals = `
		UPDATE ambassadors
		SET total_distributions = ?, total_minted = ?, updated_at = ?
		WHERE id = ?`

	// Distribution record queries
	recordColumns = `id, ambassador_id, ambassador_tag, recipient_address, ambassador_amount, recipient_amount,
		status, ambassador_tx_hash, recipient_tx_hash, failure_code, created_at, updated_at`

	queryInsertRecord = `
		INSERT INTO distributions (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', NULL, NULL, '', ?, ?)`

	queryGetRecord = `
		SELECT ` + recordColumns + `
		FROM distributions
		WHERE id = ?`

	queryGetRecordStatus = `
		SELECT status FROM distributions WHERE id = ?`

	queryCountRecordsByAmbassadorSince = `
		SELECT COUNT(*)
		FROM distributions
		WHERE ambassador_tag = ? AND created_at >= ?`

	queryEarliestRecordByAmbassadorSince = `
		SELECT MIN(created_at)
		FROM distributions
		WHERE ambassador_tag = ? AND created_at >= ?`

	queryFindSuccessfulRecordByRecipient = `
		SELECT ` + recordColumns + `
		FROM distributions
		WHERE recipient_address = ? AND status = 'success'
		LIMIT 1`

	queryListRecordsByStatus = `
		SELECT ` + recordColumns + `
		FROM distributions
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	queryListPartialFailures = `
		SELECT ` + recordColumns + `
		FROM distributions
		WHERE status = 'failed' AND ambassador_tx_hash IS NOT NULL AND recipient_tx_hash IS NULL
		ORDER BY created_at DESC
		LIMIT ?`

	queryListStalePending = `
		SELECT ` + recordColumns + `
		FROM distributions
		WHERE status = 'pending' AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?`

	// Deny list queries
	queryGetDenyListEntry = `
		SELECT address, reason, added_by, created_at
		FROM deny_list
		WHERE address = ?`

	queryUpsertDenyListEntry = `
		INSERT INTO deny_list (address, reason, added_by, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			reason = excluded.reason,
			added_by = excluded.added_by,
			created_at = excluded.created_at
		RETURNING address, reason, added_by, created_at`

	queryDeleteDenyListEntry = `
		DELETE FROM deny_list WHERE address = ?`
)
