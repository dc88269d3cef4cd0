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

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"token-distribution-go/internal/events"
	"token-distribution-go/internal/executor"
	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// request carries the state of one RequestDistribution call.
type request struct {
	tag        string
	recipient  string
	stage      Stage
	ambassador *models.Ambassador
	record     *models.DistributionRecord
}

func (s *Service) advance(req *request, next Stage) {
	if !req.stage.before(next) {
		zap.L().Error("Distribution stage moved backwards",
			zap.String("from", string(req.stage)),
			zap.String("to", string(next)))
		return
	}
	req.stage = next

	fields := []zap.Field{
		zap.String("stage", string(next)),
		zap.String("ambassador_tag", req.tag),
		zap.String("recipient", req.recipient),
	}
	if req.record != nil {
		fields = append(fields, zap.String("record_id", req.record.Id))
	}
	zap.L().Info("Distribution stage", fields...)
}

// RequestDistribution runs one distribution end to end: validation, rate limit,
// security checks, pending record, preflight, ambassador mint, recipient mint and
// the terminal record update. It never returns internal error details.
func (s *Service) RequestDistribution(ctx context.Context, tag, recipient string) models.DistributionResult {
	req := &request{
		tag:       strings.TrimSpace(tag),
		recipient: normalizeAddress(recipient),
		stage:     StageReceived,
	}
	zap.L().Info("Distribution requested",
		zap.String("ambassador_tag", req.tag),
		zap.String("recipient", req.recipient))

	if !tagPattern.MatchString(req.tag) {
		return s.deny(ctx, req, models.ReasonInvalidTag, 0)
	}
	if !common.IsHexAddress(req.recipient) {
		return s.deny(ctx, req, models.ReasonInvalidAddress, 0)
	}

	if result, denied := s.checkRateLimit(ctx, req); denied {
		return result
	}

	ambassador, err := s.store.FindAmbassadorByTag(ctx, req.tag)
	if err != nil {
		return s.internalError(req, "ambassador lookup failed", err)
	}
	if ambassador == nil {
		return s.deny(ctx, req, models.ReasonAmbassadorNotFound, 0)
	}
	req.ambassador = ambassador

	decision, err := s.pipeline.Check(ctx, req.tag, req.recipient)
	if err != nil {
		return s.internalError(req, "security checks failed", err)
	}
	if !decision.Allowed {
		return s.deny(ctx, req, decision.ReasonCode, decision.RetryAfterSeconds)
	}
	s.advance(req, StagePipelineChecked)

	record, err := s.store.CreatePendingRecord(ctx, store.CreateRecordParams{
		AmbassadorId:     ambassador.Id,
		AmbassadorTag:    ambassador.Tag,
		RecipientAddress: req.recipient,
		AmbassadorAmount: s.cfg.AmbassadorAmount,
		RecipientAmount:  s.cfg.RecipientAmount,
	})
	if errors.Is(err, store.ErrRecipientConflict) {
		return s.deny(ctx, req, models.ReasonRecipientAlreadyReceived, 0)
	}
	if err != nil {
		return s.internalError(req, "pending record creation failed", err)
	}
	req.record = record
	s.advance(req, StageRecordCreated)

	return s.mint(ctx, req)
}

func (s *Service) checkRateLimit(ctx context.Context, req *request) (models.DistributionResult, bool) {
	limited, err := s.limiter.IsLimited(ctx, req.tag)
	if err != nil {
		// The persistence-backed hourly check still applies.
		zap.L().Warn("Rate limiter unavailable", zap.String("ambassador_tag", req.tag), zap.Error(err))
		return models.DistributionResult{}, false
	}
	if limited {
		retryAfter := 0
		if info, err := s.limiter.Info(ctx, req.tag); err == nil {
			retryAfter = info.RetryAfterSeconds
		}
		return s.deny(ctx, req, models.ReasonRateLimitExceeded, retryAfter), true
	}

	if _, err := s.limiter.Record(ctx, req.tag); err != nil {
		zap.L().Warn("Failed to record rate limit event", zap.String("ambassador_tag", req.tag), zap.Error(err))
	}
	return models.DistributionResult{}, false
}

func (s *Service) mint(ctx context.Context, req *request) models.DistributionResult {
	ambassadorCall := executor.Call{
		Leg:    models.LegAmbassador,
		To:     req.ambassador.WalletAddress,
		Amount: s.cfg.AmbassadorAmount,
	}
	recipientCall := executor.Call{
		Leg:    models.LegRecipient,
		To:     req.recipient,
		Amount: s.cfg.RecipientAmount,
	}

	if preflight := s.executor.Preflight(ctx, ambassadorCall, recipientCall); !preflight.Ok() {
		return s.fail(ctx, req, preflight, "")
	}

	s.advance(req, StageAmbassadorLegPending)
	ambassadorLeg := s.executor.Execute(ctx, ambassadorCall)
	if !ambassadorLeg.Ok() {
		return s.fail(ctx, req, ambassadorLeg, "")
	}
	ambassadorHash := ambassadorLeg.Receipt.TxHash
	s.advance(req, StageAmbassadorLegDone)

	// Persist the first receipt now so a crash before the second leg leaves it on the record.
	if err := s.store.UpdateRecord(context.WithoutCancel(ctx), req.record.Id, store.RecordPatch{
		AmbassadorTxHash: &ambassadorHash,
	}); err != nil {
		zap.L().Error("Failed to store ambassador receipt",
			zap.String("record_id", req.record.Id),
			zap.String("tx_hash", ambassadorHash),
			zap.Error(err))
	}

	s.advance(req, StageRecipientLegPending)
	recipientLeg := s.executor.Execute(ctx, recipientCall)
	if !recipientLeg.Ok() {
		return s.fail(ctx, req, recipientLeg, ambassadorHash)
	}
	recipientHash := recipientLeg.Receipt.TxHash
	s.advance(req, StageRecipientLegDone)

	minted := s.cfg.AmbassadorAmount.Add(s.cfg.RecipientAmount)
	err := s.store.CompleteDistribution(context.WithoutCancel(ctx), req.record.Id, store.RecordPatch{
		AmbassadorTxHash: &ambassadorHash,
		RecipientTxHash:  &recipientHash,
	}, req.ambassador.Id, minted)
	if err != nil {
		// Both mints landed; the record stays pending for an operator to reconcile.
		zap.L().Error("Failed to reconcile completed distribution",
			zap.String("record_id", req.record.Id),
			zap.String("ambassador_tx_hash", ambassadorHash),
			zap.String("recipient_tx_hash", recipientHash),
			zap.Error(err))
		s.emit(ctx, req, events.Event{
			Type:       events.TypeDistributionFailed,
			Severity:   events.SeverityCritical,
			TxHash:     recipientHash,
			Message:    "Distribution minted but record not reconciled",
			Attributes: map[string]string{"ambassador_tx_hash": ambassadorHash},
		})
	} else {
		s.advance(req, StageReconciled)
		s.emit(ctx, req, events.Event{
			Type:       events.TypeDistributionSucceeded,
			Severity:   events.SeverityInfo,
			TxHash:     recipientHash,
			Message:    "Distribution completed",
			Attributes: map[string]string{"ambassador_tx_hash": ambassadorHash},
		})
	}

	return models.DistributionResult{
		Success:           true,
		RecordId:          req.record.Id,
		AmbassadorReceipt: ambassadorHash,
		RecipientReceipt:  recipientHash,
	}
}

// fail settles a record after a ledger failure. ambassadorHash is set when the
// ambassador leg already confirmed.
func (s *Service) fail(ctx context.Context, req *request, res executor.Result, ambassadorHash string) models.DistributionResult {
	code := res.Kind.ReasonCode()
	partial := ambassadorHash != ""

	result := models.DistributionResult{
		RecordId:          req.record.Id,
		AmbassadorReceipt: ambassadorHash,
		ReasonCode:        code,
		Message:           messageFor(code),
		PartialFailure:    partial,
	}

	if res.Kind == executor.KindAbandoned {
		zap.L().Warn("Distribution abandoned, record left pending",
			zap.String("record_id", req.record.Id),
			zap.String("stage", string(req.stage)),
			zap.Error(res.Err))
		s.emit(ctx, req, events.Event{
			Type:     events.TypeDistributionAbandoned,
			Severity: events.SeverityWarning,
			TxHash:   ambassadorHash,
			Message:  "Distribution abandoned before completion",
		})
		// The record is still pending, so it is not a partial failure yet.
		result.ReasonCode = models.ReasonTransactionFailed
		result.Message = messageFor(models.ReasonTransactionFailed)
		result.PartialFailure = false
		return result
	}

	failed := models.StatusFailed
	patch := store.RecordPatch{Status: &failed, FailureCode: &code}
	if partial {
		patch.AmbassadorTxHash = &ambassadorHash
	}
	if err := s.store.UpdateRecord(context.WithoutCancel(ctx), req.record.Id, patch); err != nil {
		zap.L().Error("Failed to mark distribution failed",
			zap.String("record_id", req.record.Id),
			zap.String("failure_code", code),
			zap.Error(err))
	}

	zap.L().Warn("Distribution failed",
		zap.String("record_id", req.record.Id),
		zap.String("stage", string(req.stage)),
		zap.String("kind", string(res.Kind)),
		zap.String("detail", res.Detail),
		zap.Int("attempts", res.Attempts),
		zap.Bool("partial_failure", partial),
		zap.Error(res.Err))

	event := events.Event{
		Type:       events.TypeDistributionFailed,
		Severity:   events.SeverityWarning,
		ReasonCode: code,
		Message:    res.Detail,
	}
	switch {
	case res.Kind.Critical():
		event.Type = events.TypeLedgerCritical
		event.Severity = events.SeverityCritical
	case partial:
		event.Type = events.TypePartialFailure
		event.Severity = events.SeverityCritical
		event.TxHash = ambassadorHash
	}
	s.emit(ctx, req, event)

	return result
}

func (s *Service) deny(ctx context.Context, req *request, code string, retryAfter int) models.DistributionResult {
	s.emit(ctx, req, events.Event{
		Type:       events.TypeDistributionDenied,
		Severity:   events.SeverityInfo,
		ReasonCode: code,
		Message:    "Distribution denied",
	})

	result := models.DistributionResult{
		ReasonCode: code,
		Message:    messageFor(code),
	}
	if code == models.ReasonRateLimitExceeded {
		result.RetryAfterSeconds = retryAfter
	}
	return result
}

func (s *Service) internalError(req *request, msg string, err error) models.DistributionResult {
	zap.L().Error(msg,
		zap.String("ambassador_tag", req.tag),
		zap.String("recipient", req.recipient),
		zap.String("stage", string(req.stage)),
		zap.Error(err))
	return models.DistributionResult{
		ReasonCode: models.ReasonInternalError,
		Message:    messageFor(models.ReasonInternalError),
	}
}

func (s *Service) emit(ctx context.Context, req *request, event events.Event) {
	event.AmbassadorTag = req.tag
	event.Recipient = req.recipient
	if req.record != nil {
		event.RecordId = req.record.Id
	}
	if md := models.GetRequestMetadata(ctx); md != nil {
		if event.Attributes == nil {
			event.Attributes = make(map[string]string, 2)
		}
		if md.RequestId != "" {
			event.Attributes["request_id"] = md.RequestId
		}
		if md.Source != "" {
			event.Attributes["source"] = md.Source
		}
	}
	event.OccurredAt = s.now()
	s.sink.Emit(ctx, event)
}
