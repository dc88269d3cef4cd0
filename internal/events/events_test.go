package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	block    chan struct{}
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

type collectingSink struct {
	events []Event
}

func (c *collectingSink) Emit(_ context.Context, event Event) {
	c.events = append(c.events, event)
}

func TestKafkaSink_PublishesKeyedJSON(t *testing.T) {
	writer := &recordingWriter{}
	sink := newKafkaSink(writer, KafkaConfig{})

	occurred := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sink.Emit(context.Background(), Event{
		Type:       TypePartialFailure,
		Severity:   SeverityCritical,
		RecordId:   "rec-1",
		TxHash:     "0xaaa",
		OccurredAt: occurred,
	})
	sink.Emit(context.Background(), Event{Type: TypeDistributionDenied, AmbassadorTag: "AMB1"})

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(writer.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(writer.messages))
	}
	if !writer.closed {
		t.Error("Expected writer to be closed")
	}

	first := writer.messages[0]
	if string(first.Key) != "rec-1" {
		t.Errorf("Expected key rec-1, got %s", first.Key)
	}
	var decoded Event
	if err := json.Unmarshal(first.Value, &decoded); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if decoded.Type != TypePartialFailure || decoded.Severity != SeverityCritical || decoded.TxHash != "0xaaa" {
		t.Errorf("Unexpected decoded event %+v", decoded)
	}

	if string(writer.messages[1].Key) != "AMB1" {
		t.Errorf("Expected key to fall back to the ambassador tag, got %s", writer.messages[1].Key)
	}
}

func TestKafkaSink_DropsWhenFull(t *testing.T) {
	writer := &recordingWriter{block: make(chan struct{})}
	sink := newKafkaSink(writer, KafkaConfig{Buffer: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			sink.Emit(context.Background(), Event{Type: TypeDistributionFailed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}

	close(writer.block)
	sink.Close()

	if len(writer.messages) >= 10 {
		t.Errorf("Expected some events to be dropped, got %d", len(writer.messages))
	}
}

func TestKafkaSink_WriteErrorDoesNotStopLoop(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	sink := newKafkaSink(writer, KafkaConfig{})

	sink.Emit(context.Background(), Event{Type: TypeDistributionFailed})
	sink.Emit(context.Background(), Event{Type: TypeDistributionFailed})

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(writer.messages) != 0 {
		t.Errorf("Expected no messages written, got %d", len(writer.messages))
	}
}

func TestKafkaSink_EmitAfterCloseIsDropped(t *testing.T) {
	writer := &recordingWriter{}
	sink := newKafkaSink(writer, KafkaConfig{})

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	sink.Emit(context.Background(), Event{Type: TypeDistributionFailed})

	if len(writer.messages) != 0 {
		t.Errorf("Expected no messages after close, got %d", len(writer.messages))
	}
}

func TestKafkaSink_ConcurrentEmitAndClose(t *testing.T) {
	writer := &recordingWriter{}
	sink := newKafkaSink(writer, KafkaConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sink.Emit(context.Background(), Event{Type: TypeStalePending})
			}
		}()
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	wg.Wait()
}

func TestNewKafkaSink_Validation(t *testing.T) {
	if _, err := NewKafkaSink(KafkaConfig{Topic: "t"}); err == nil {
		t.Error("Expected missing brokers to be rejected")
	}
	if _, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("Expected missing topic to be rejected")
	}
}

func TestMulti(t *testing.T) {
	a, b := &collectingSink{}, &collectingSink{}
	Multi{a, LogSink{}, Discard{}, b}.Emit(context.Background(), Event{Type: TypeDistributionSucceeded, Severity: SeverityInfo})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("Expected every sink to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}
