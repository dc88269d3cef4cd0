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

package ratelimit

import (
	"container/list"
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const shardCount = 32

type window struct {
	count   int
	resetAt time.Time
	// elem and dropped are guarded by Memory.orderMu
	elem    *list.Element
	dropped bool
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*window
}

type orderEntry struct {
	key string
	win *window
}

// Memory is a process-local Limiter. Keys are spread over mutex-guarded shards;
// a global insertion list drives FIFO eviction once MaxKeys is reached.
type Memory struct {
	cfg    Config
	shards [shardCount]*shard

	orderMu sync.Mutex
	order   *list.List

	now func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopChan  chan struct{}
	doneChan  chan struct{}
}

var _ Limiter = (*Memory)(nil)

func NewMemory(cfg Config) *Memory {
	cfg = cfg.withDefaults()
	m := &Memory{
		cfg:      cfg,
		order:    list.New(),
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &shard{windows: make(map[string]*window)}
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

func (m *Memory) IsLimited(_ context.Context, key string) (bool, error) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !m.now().Before(w.resetAt) {
		return false, nil
	}
	return w.count >= m.cfg.Max, nil
}

// Record counts one event for key and returns how many remain in the window.
func (m *Memory) Record(_ context.Context, key string) (int, error) {
	now := m.now()
	s := m.shardFor(key)

	s.mu.Lock()
	w, ok := s.windows[key]
	if ok && now.Before(w.resetAt) {
		w.count++
		left := remaining(m.cfg.Max, w.count)
		s.mu.Unlock()
		return left, nil
	}
	if ok {
		// Expired: restart the window in place, keeping its eviction position.
		w.count = 1
		w.resetAt = now.Add(m.cfg.Window)
		s.mu.Unlock()
		return m.cfg.Max - 1, nil
	}
	w = &window{count: 1, resetAt: now.Add(m.cfg.Window)}
	s.windows[key] = w
	s.mu.Unlock()

	m.track(key, w)
	return m.cfg.Max - 1, nil
}

// track appends a new window to the insertion list and evicts the oldest keys on overflow.
func (m *Memory) track(key string, w *window) {
	var victims []orderEntry

	m.orderMu.Lock()
	// Cleared or swept between the shard insert and here.
	if w.dropped {
		m.orderMu.Unlock()
		return
	}
	w.elem = m.order.PushBack(orderEntry{key: key, win: w})
	for m.order.Len() > m.cfg.MaxKeys {
		oldest := m.order.Remove(m.order.Front()).(orderEntry)
		oldest.win.elem = nil
		victims = append(victims, oldest)
	}
	m.orderMu.Unlock()

	for _, victim := range victims {
		s := m.shardFor(victim.key)
		s.mu.Lock()
		if s.windows[victim.key] == victim.win {
			delete(s.windows, victim.key)
		}
		s.mu.Unlock()
	}

	if len(victims) > 0 {
		zap.L().Debug("Evicted rate limit windows", zap.Int("evicted", len(victims)))
	}
}

func (m *Memory) untrack(windows []*window) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()
	for _, w := range windows {
		w.dropped = true
		if w.elem != nil {
			m.order.Remove(w.elem)
			w.elem = nil
		}
	}
}

func (m *Memory) Info(_ context.Context, key string) (Info, error) {
	now := m.now()
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		return Info{Limit: m.cfg.Max, Remaining: m.cfg.Max}, nil
	}

	info := Info{
		Limit:     m.cfg.Max,
		Remaining: remaining(m.cfg.Max, w.count),
		ResetAt:   w.resetAt,
	}
	if w.count >= m.cfg.Max {
		info.RetryAfterSeconds = retryAfter(w.resetAt, now)
	}
	return info, nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	s := m.shardFor(key)
	s.mu.Lock()
	w, ok := s.windows[key]
	if ok {
		delete(s.windows, key)
	}
	s.mu.Unlock()

	if ok {
		m.untrack([]*window{w})
	}
	return nil
}

// Len returns the number of tracked keys, expired or not.
func (m *Memory) Len() int {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()
	return m.order.Len()
}

// Start launches the background sweep of expired windows.
func (m *Memory) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.started = true
		go m.sweepLoop(ctx)
		zap.L().Info("Rate limiter sweep started", zap.Duration("interval", m.cfg.SweepInterval))
	})
}

// Stop halts the sweep and waits for it to exit.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.started {
			<-m.doneChan
		}
		zap.L().Info("Rate limiter sweep stopped")
	})
}

func (m *Memory) sweepLoop(ctx context.Context) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweep removes every expired window and returns how many were dropped.
func (m *Memory) sweep() int {
	now := m.now()
	var expired []*window

	for _, s := range m.shards {
		s.mu.Lock()
		for key, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, key)
				expired = append(expired, w)
			}
		}
		s.mu.Unlock()
	}

	m.untrack(expired)

	if len(expired) > 0 {
		zap.L().Debug("Swept expired rate limit windows",
			zap.Int("removed", len(expired)),
			zap.Int("remaining", m.Len()))
	}
	return len(expired)
}
