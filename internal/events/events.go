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

package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	TypeDistributionSucceeded = "distribution.succeeded"
	TypeDistributionDenied    = "distribution.denied"
	TypeDistributionFailed    = "distribution.failed"
	TypeDistributionAbandoned = "distribution.abandoned"
	TypePartialFailure        = "distribution.partial_failure"
	TypeLedgerCritical        = "ledger.critical"
	TypeStalePending          = "monitor.stale_pending"
	TypeUnreconciledPartial   = "monitor.partial_failure"
)

// Event is an observability record. It never carries key material.
type Event struct {
	Type          string            `json:"type"`
	Severity      Severity          `json:"severity"`
	RecordId      string            `json:"record_id,omitempty"`
	AmbassadorTag string            `json:"ambassador_tag,omitempty"`
	Recipient     string            `json:"recipient,omitempty"`
	ReasonCode    string            `json:"reason_code,omitempty"`
	TxHash        string            `json:"tx_hash,omitempty"`
	Message       string            `json:"message,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// Sink receives events. Emit must not block the caller for long and never fails it.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

func (e Event) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("event_type", e.Type),
		zap.String("severity", string(e.Severity)),
	}
	if e.RecordId != "" {
		fields = append(fields, zap.String("record_id", e.RecordId))
	}
	if e.AmbassadorTag != "" {
		fields = append(fields, zap.String("ambassador_tag", e.AmbassadorTag))
	}
	if e.Recipient != "" {
		fields = append(fields, zap.String("recipient", e.Recipient))
	}
	if e.ReasonCode != "" {
		fields = append(fields, zap.String("reason_code", e.ReasonCode))
	}
	if e.TxHash != "" {
		fields = append(fields, zap.String("tx_hash", e.TxHash))
	}
	for k, v := range e.Attributes {
		fields = append(fields, zap.String(k, v))
	}
	return fields
}

// LogSink writes events to the global zap logger.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, event Event) {
	msg := event.Message
	if msg == "" {
		msg = event.Type
	}
	switch event.Severity {
	case SeverityCritical:
		zap.L().Error(msg, event.fields()...)
	case SeverityWarning:
		zap.L().Warn(msg, event.fields()...)
	default:
		zap.L().Info(msg, event.fields()...)
	}
}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, event Event) {
	for _, sink := range m {
		sink.Emit(ctx, event)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}
