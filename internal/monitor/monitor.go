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

package monitor

import (
	"context"
	"sync"
	"time"

	"token-distribution-go/internal/events"
	"token-distribution-go/internal/models"

	"go.uber.org/zap"
)

const (
	defaultPollingInterval  = time.Minute
	defaultPendingThreshold = 15 * time.Minute
	defaultBatchSize        = 100
	defaultReportInterval   = time.Hour
)

// Store is the read-only query surface the monitor needs.
type Store interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.DistributionRecord, error)
	ListPartialFailures(ctx context.Context, limit int) ([]models.DistributionRecord, error)
}

type Config struct {
	Store            Store
	Sink             events.Sink
	PollingInterval  time.Duration
	PendingThreshold time.Duration
	// ReportInterval is how long a record stays quiet after being reported.
	ReportInterval time.Duration
	BatchSize      int
}

// Monitor reports records that need an operator: pending records older than
// the threshold and partial failures. It never changes a record.
type Monitor struct {
	store            Store
	sink             events.Sink
	pollingInterval  time.Duration
	pendingThreshold time.Duration
	reportInterval   time.Duration
	batchSize        int
	now              func() time.Time

	reported map[string]time.Time
	mutex    sync.RWMutex

	stopChan chan struct{}
	doneChan chan struct{}
}

func New(cfg Config) *Monitor {
	if cfg.Sink == nil {
		cfg.Sink = events.LogSink{}
	}
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = defaultPollingInterval
	}
	if cfg.PendingThreshold <= 0 {
		cfg.PendingThreshold = defaultPendingThreshold
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = defaultReportInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return &Monitor{
		store:            cfg.Store,
		sink:             cfg.Sink,
		pollingInterval:  cfg.PollingInterval,
		pendingThreshold: cfg.PendingThreshold,
		reportInterval:   cfg.ReportInterval,
		batchSize:        cfg.BatchSize,
		now:              func() time.Time { return time.Now().UTC() },
		reported:         make(map[string]time.Time),
		stopChan:         make(chan struct{}),
		doneChan:         make(chan struct{}),
	}
}

// Start runs one scan immediately and then polls until Stop or ctx ends.
func (m *Monitor) Start(ctx context.Context) {
	zap.L().Info("Starting distribution monitor",
		zap.Duration("polling_interval", m.pollingInterval),
		zap.Duration("pending_threshold", m.pendingThreshold))

	go m.pollLoop(ctx)
}

// Stop gracefully stops the monitor
func (m *Monitor) Stop() {
	zap.L().Info("Stopping distribution monitor")
	close(m.stopChan)
	<-m.doneChan
	zap.L().Info("Distribution monitor stopped")
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.pollingInterval)
	defer ticker.Stop()

	m.Scan(ctx)

	for {
		select {
		case <-ticker.C:
			m.Scan(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Scan reports every record needing attention that was not reported recently
// and returns how many events it emitted.
func (m *Monitor) Scan(ctx context.Context) int {
	now := m.now()
	m.forgetOldReports(now)
	emitted := 0

	stale, err := m.store.ListStalePending(ctx, now.Add(-m.pendingThreshold), m.batchSize)
	if err != nil {
		zap.L().Error("Failed to list stale pending records", zap.Error(err))
	}
	for _, record := range stale {
		if m.markReported(record.Id, now) {
			m.emit(ctx, record, events.TypeStalePending, "Distribution pending beyond threshold", now)
			emitted++
		}
	}

	partials, err := m.store.ListPartialFailures(ctx, m.batchSize)
	if err != nil {
		zap.L().Error("Failed to list partial failures", zap.Error(err))
	}
	for _, record := range partials {
		if m.markReported(record.Id, now) {
			m.emit(ctx, record, events.TypeUnreconciledPartial, "Ambassador paid, recipient not paid", now)
			emitted++
		}
	}

	if emitted > 0 {
		zap.L().Warn("Records need operator attention",
			zap.Int("stale_pending", len(stale)),
			zap.Int("partial_failures", len(partials)),
			zap.Int("reported", emitted))
	} else {
		zap.L().Debug("Monitor scan clean")
	}
	return emitted
}

func (m *Monitor) emit(ctx context.Context, record models.DistributionRecord, eventType, message string, now time.Time) {
	m.sink.Emit(ctx, events.Event{
		Type:          eventType,
		Severity:      events.SeverityCritical,
		RecordId:      record.Id,
		AmbassadorTag: record.AmbassadorTag,
		Recipient:     record.RecipientAddress,
		ReasonCode:    record.FailureCode,
		TxHash:        record.AmbassadorTxHash,
		Message:       message,
		Attributes: map[string]string{
			"status":     string(record.Status),
			"created_at": record.CreatedAt.Format(time.RFC3339),
			"age":        now.Sub(record.CreatedAt).Round(time.Second).String(),
		},
		OccurredAt: now,
	})
}

// markReported records a report and returns false if the record was reported
// within the report interval.
func (m *Monitor) markReported(id string, now time.Time) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if last, exists := m.reported[id]; exists && now.Sub(last) < m.reportInterval {
		return false
	}
	m.reported[id] = now
	return true
}

func (m *Monitor) forgetOldReports(now time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := now.Add(-m.reportInterval)
	for id, reportedAt := range m.reported {
		if reportedAt.Before(cutoff) {
			delete(m.reported, id)
		}
	}
}
