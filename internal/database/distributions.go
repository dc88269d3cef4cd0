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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.DistributionRecord, error) {
	var record models.DistributionRecord
	var ambassadorAmount, recipientAmount, status string
	var ambassadorTx, recipientTx sql.NullString

	err := row.Scan(&record.Id, &record.AmbassadorId, &record.AmbassadorTag, &record.RecipientAddress,
		&ambassadorAmount, &recipientAmount, &status, &ambassadorTx, &recipientTx,
		&record.FailureCode, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	record.AmbassadorAmount, err = decimal.NewFromString(ambassadorAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ambassador amount '%s': %w", ambassadorAmount, err)
	}
	record.RecipientAmount, err = decimal.NewFromString(recipientAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient amount '%s': %w", recipientAmount, err)
	}
	record.Status = models.DistributionStatus(status)
	record.AmbassadorTxHash = ambassadorTx.String
	record.RecipientTxHash = recipientTx.String
	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]models.DistributionRecord, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var records []models.DistributionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during distribution row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating distribution rows: %w", err)
	}
	return records, nil
}

func (s *Service) CreatePendingRecord(ctx context.Context, params store.CreateRecordParams) (*models.DistributionRecord, error) {
	now := s.now()
	record := &models.DistributionRecord{
		Id:               uuid.New().String(),
		AmbassadorId:     params.AmbassadorId,
		AmbassadorTag:    params.AmbassadorTag,
		RecipientAddress: strings.ToLower(params.RecipientAddress),
		AmbassadorAmount: params.AmbassadorAmount,
		RecipientAmount:  params.RecipientAmount,
		Status:           models.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err := s.db.ExecContext(ctx, queryInsertRecord,
		record.Id, record.AmbassadorId, record.AmbassadorTag, record.RecipientAddress,
		record.AmbassadorAmount.String(), record.RecipientAmount.String(), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			zap.L().Warn("Recipient already has an active distribution",
				zap.String("recipient", record.RecipientAddress))
			return nil, fmt.Errorf("%w: %s", store.ErrRecipientConflict, record.RecipientAddress)
		}
		return nil, fmt.Errorf("failed to insert distribution record: %w", err)
	}

	zap.L().Info("Pending distribution record created",
		zap.String("record_id", record.Id),
		zap.String("ambassador_tag", record.AmbassadorTag),
		zap.String("recipient", record.RecipientAddress))
	return record, nil
}

// buildPatch renders the SET clause for a patch. updated_at is always set.
func buildPatch(patch store.RecordPatch, now time.Time) (string, []interface{}, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{now}

	if patch.Status != nil {
		// Patches only ever apply to pending rows.
		if !models.StatusPending.CanTransitionTo(*patch.Status) {
			return "", nil, fmt.Errorf("invalid status transition pending -> %q", *patch.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.AmbassadorTxHash != nil {
		sets = append(sets, "ambassador_tx_hash = ?")
		args = append(args, *patch.AmbassadorTxHash)
	}
	if patch.RecipientTxHash != nil {
		sets = append(sets, "recipient_tx_hash = ?")
		args = append(args, *patch.RecipientTxHash)
	}
	if patch.FailureCode != nil {
		sets = append(sets, "failure_code = ?")
		args = append(args, *patch.FailureCode)
	}
	return strings.Join(sets, ", "), args, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// applyPatch updates a pending record and distinguishes a missing record from a finalized one.
func (s *Service) applyPatch(ctx context.Context, q execer, id string, patch store.RecordPatch) error {
	setClause, args, err := buildPatch(patch, s.now())
	if err != nil {
		return err
	}
	args = append(args, id)

	result, err := q.ExecContext(ctx, "UPDATE distributions SET "+setClause+" WHERE id = ? AND status = 'pending'", args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: record %s", store.ErrRecipientConflict, id)
		}
		return fmt.Errorf("failed to update distribution record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var status string
	err = q.QueryRowContext(ctx, queryGetRecordStatus, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read record status: %w", err)
	}
	return fmt.Errorf("record %s is %s: %w", id, status, store.ErrRecordFinalized)
}

func (s *Service) UpdateRecord(ctx context.Context, id string, patch store.RecordPatch) error {
	if patch.Status != nil && *patch.Status == models.StatusSuccess {
		return fmt.Errorf("record %s: success must be written with CompleteDistribution", id)
	}
	if err := s.applyPatch(ctx, s.db, id, patch); err != nil {
		return err
	}

	fields := []zap.Field{zap.String("record_id", id)}
	if patch.Status != nil {
		fields = append(fields, zap.String("status", string(*patch.Status)))
	}
	zap.L().Info("Distribution record updated", fields...)
	return nil
}

// CompleteDistribution marks the record successful and increments the ambassador's
// counters in one database transaction.
func (s *Service) CompleteDistribution(ctx context.Context, id string, patch store.RecordPatch, ambassadorId string, minted decimal.Decimal) error {
	success := models.StatusSuccess
	patch.Status = &success

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.applyPatch(ctx, tx, id, patch); err != nil {
		return err
	}
	if err := incrementAmbassadorTotals(ctx, tx, ambassadorId, minted, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Distribution completed",
		zap.String("record_id", id),
		zap.String("ambassador_id", ambassadorId),
		zap.String("minted", minted.String()))
	return nil
}

func (s *Service) GetRecord(ctx context.Context, id string) (*models.DistributionRecord, error) {
	record, err := scanRecord(s.db.QueryRowContext(ctx, queryGetRecord, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get distribution record: %w", err)
	}
	return record, nil
}

func (s *Service) CountRecordsByAmbassadorSince(ctx context.Context, tag string, since time.Time) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountRecordsByAmbassadorSince, tag, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ambassador distributions: %w", err)
	}
	return count, nil
}

// EarliestRecordByAmbassadorSince returns the zero time when no record exists in the window.
func (s *Service) EarliestRecordByAmbassadorSince(ctx context.Context, tag string, since time.Time) (time.Time, error) {
	var earliest sql.NullString
	if err := s.db.QueryRowContext(ctx, queryEarliestRecordByAmbassadorSince, tag, since.UTC()).Scan(&earliest); err != nil {
		return time.Time{}, fmt.Errorf("failed to get earliest ambassador distribution: %w", err)
	}
	if !earliest.Valid || earliest.String == "" {
		return time.Time{}, nil
	}
	return parseTimestamp(earliest.String)
}

func (s *Service) FindSuccessfulRecordByRecipient(ctx context.Context, address string) (*models.DistributionRecord, error) {
	record, err := scanRecord(s.db.QueryRowContext(ctx, queryFindSuccessfulRecordByRecipient, strings.ToLower(address)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find successful record by recipient: %w", err)
	}
	return record, nil
}

func (s *Service) ListRecordsByStatus(ctx context.Context, status models.DistributionStatus, limit, offset int) ([]models.DistributionRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	rows, err := s.db.QueryContext(ctx, queryListRecordsByStatus, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list records by status: %w", err)
	}
	return scanRecords(rows)
}

func (s *Service) ListPartialFailures(ctx context.Context, limit int) ([]models.DistributionRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryListPartialFailures, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list partial failures: %w", err)
	}
	return scanRecords(rows)
}

func (s *Service) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.DistributionRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryListStalePending, olderThan.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending records: %w", err)
	}
	return scanRecords(rows)
}
