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

package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"token-distribution-go/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultHourlyMax = 5
	DefaultWindow    = time.Hour
)

// Store is the read-only persistence the pipeline consults.
type Store interface {
	FindDenyListEntry(ctx context.Context, address string) (*models.DenyListEntry, error)
	FindSuccessfulRecordByRecipient(ctx context.Context, address string) (*models.DistributionRecord, error)
	CountRecordsByAmbassadorSince(ctx context.Context, tag string, since time.Time) (int, error)
	EarliestRecordByAmbassadorSince(ctx context.Context, tag string, since time.Time) (time.Time, error)
}

type Config struct {
	HourlyMax int
	Window    time.Duration
}

// Decision is the outcome of Check. ReasonCode is empty when Allowed.
type Decision struct {
	Allowed           bool
	ReasonCode        string
	Reason            string
	RetryAfterSeconds int
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(code, reason string) Decision {
	return Decision{ReasonCode: code, Reason: reason}
}

type check struct {
	name string
	run  func(ctx context.Context, tag, recipient string) (Decision, error)
}

// Pipeline runs the deny-list, duplicate-recipient and hourly-volume checks in
// that order and stops at the first denial.
type Pipeline struct {
	store  Store
	cfg    Config
	now    func() time.Time
	checks []check
}

func NewPipeline(st Store, cfg Config) *Pipeline {
	if cfg.HourlyMax <= 0 {
		cfg.HourlyMax = DefaultHourlyMax
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	p := &Pipeline{
		store: st,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
	p.checks = []check{
		{name: "deny_list", run: p.checkDenyList},
		{name: "already_received", run: p.checkAlreadyReceived},
		{name: "hourly_volume", run: p.checkHourlyVolume},
	}
	return p
}

// WithClock replaces the pipeline's time source.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Check evaluates a request. A non-nil error means a check could not run; the
// decision is then meaningless.
func (p *Pipeline) Check(ctx context.Context, ambassadorTag, recipientAddress string) (Decision, error) {
	recipient := strings.ToLower(strings.TrimSpace(recipientAddress))

	for _, c := range p.checks {
		decision, err := c.run(ctx, ambassadorTag, recipient)
		if err != nil {
			zap.L().Error("Security check failed to run",
				zap.String("check", c.name),
				zap.String("ambassador_tag", ambassadorTag),
				zap.Error(err))
			return Decision{}, fmt.Errorf("%s check: %w", c.name, err)
		}
		if !decision.Allowed {
			zap.L().Info("Distribution denied by security check",
				zap.String("check", c.name),
				zap.String("reason_code", decision.ReasonCode),
				zap.String("ambassador_tag", ambassadorTag),
				zap.String("recipient", recipient))
			return decision, nil
		}
	}

	return allow(), nil
}

func (p *Pipeline) checkDenyList(ctx context.Context, _, recipient string) (Decision, error) {
	entry, err := p.store.FindDenyListEntry(ctx, recipient)
	if err != nil {
		return Decision{}, err
	}
	if entry != nil {
		return deny(models.ReasonRecipientDenylisted, "recipient address is deny-listed"), nil
	}
	return allow(), nil
}

func (p *Pipeline) checkAlreadyReceived(ctx context.Context, _, recipient string) (Decision, error) {
	record, err := p.store.FindSuccessfulRecordByRecipient(ctx, recipient)
	if err != nil {
		return Decision{}, err
	}
	if record != nil {
		return deny(models.ReasonRecipientAlreadyReceived, "recipient already received a distribution"), nil
	}
	return allow(), nil
}

func (p *Pipeline) checkHourlyVolume(ctx context.Context, tag, _ string) (Decision, error) {
	now := p.now()
	since := now.Add(-p.cfg.Window)

	count, err := p.store.CountRecordsByAmbassadorSince(ctx, tag, since)
	if err != nil {
		return Decision{}, err
	}
	if count < p.cfg.HourlyMax {
		return allow(), nil
	}

	decision := deny(models.ReasonRateLimitExceeded,
		fmt.Sprintf("ambassador reached %d distributions in %v", p.cfg.HourlyMax, p.cfg.Window))

	earliest, err := p.store.EarliestRecordByAmbassadorSince(ctx, tag, since)
	if err != nil {
		return Decision{}, err
	}
	if !earliest.IsZero() {
		if wait := earliest.Add(p.cfg.Window).Sub(now); wait > 0 {
			decision.RetryAfterSeconds = int((wait + time.Second - 1) / time.Second)
		}
	}
	return decision, nil
}
