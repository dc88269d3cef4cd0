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
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultKafkaBuffer       = 1024
	defaultKafkaWriteTimeout = 10 * time.Second
	kafkaCloseTimeout        = 5 * time.Second
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Buffer       int
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON, keyed by record id so one record's events
// stay on one partition. Emit enqueues and returns; a full buffer drops the event.
type KafkaSink struct {
	writer       messageWriter
	queue        chan Event
	writeTimeout time.Duration

	// mu guards closed and the close of queue against concurrent Emit.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	doneChan  chan struct{}
}

func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	zap.L().Info("Publishing events to Kafka",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic))
	return newKafkaSink(writer, cfg), nil
}

func newKafkaSink(writer messageWriter, cfg KafkaConfig) *KafkaSink {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultKafkaBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultKafkaWriteTimeout
	}

	s := &KafkaSink{
		writer:       writer,
		queue:        make(chan Event, cfg.Buffer),
		writeTimeout: cfg.WriteTimeout,
		doneChan:     make(chan struct{}),
	}
	go s.publishLoop()
	return s
}

func (s *KafkaSink) Emit(_ context.Context, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		zap.L().Debug("Event sink closed, dropping event",
			zap.String("event_type", event.Type),
			zap.String("record_id", event.RecordId))
		return
	}

	select {
	case s.queue <- event:
	default:
		zap.L().Warn("Event buffer full, dropping event",
			zap.String("event_type", event.Type),
			zap.String("record_id", event.RecordId))
	}
}

func (s *KafkaSink) publishLoop() {
	defer close(s.doneChan)

	for event := range s.queue {
		if err := s.publish(event); err != nil {
			zap.L().Warn("Failed to publish event",
				zap.String("event_type", event.Type),
				zap.String("record_id", event.RecordId),
				zap.Error(err))
		}
	}
}

func (s *KafkaSink) publish(event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := event.RecordId
	if key == "" {
		key = event.AmbassadorTag
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.OccurredAt,
	})
}

// Close stops accepting events, flushes what is queued and closes the writer.
// Events emitted after Close are dropped.
func (s *KafkaSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		select {
		case <-s.doneChan:
		case <-time.After(kafkaCloseTimeout):
			zap.L().Warn("Timed out flushing queued events")
		}
		err = s.writer.Close()
	})
	return err
}
