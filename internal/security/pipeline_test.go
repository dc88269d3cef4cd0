package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"token-distribution-go/internal/models"
)

type fakeStore struct {
	denied   map[string]bool
	received map[string]bool
	created  map[string][]time.Time
	err      error

	calls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		denied:   make(map[string]bool),
		received: make(map[string]bool),
		created:  make(map[string][]time.Time),
	}
}

func (f *fakeStore) FindDenyListEntry(_ context.Context, address string) (*models.DenyListEntry, error) {
	f.calls = append(f.calls, "deny_list")
	if f.err != nil {
		return nil, f.err
	}
	if f.denied[address] {
		return &models.DenyListEntry{Address: address, Reason: "test"}, nil
	}
	return nil, nil
}

func (f *fakeStore) FindSuccessfulRecordByRecipient(_ context.Context, address string) (*models.DistributionRecord, error) {
	f.calls = append(f.calls, "already_received")
	if f.received[address] {
		return &models.DistributionRecord{RecipientAddress: address, Status: models.StatusSuccess}, nil
	}
	return nil, nil
}

func (f *fakeStore) CountRecordsByAmbassadorSince(_ context.Context, tag string, since time.Time) (int, error) {
	f.calls = append(f.calls, "hourly_volume")
	n := 0
	for _, ts := range f.created[tag] {
		if !ts.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) EarliestRecordByAmbassadorSince(_ context.Context, tag string, since time.Time) (time.Time, error) {
	var earliest time.Time
	for _, ts := range f.created[tag] {
		if !ts.Before(since) && (earliest.IsZero() || ts.Before(earliest)) {
			earliest = ts
		}
	}
	return earliest, nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(st *fakeStore) *Pipeline {
	return NewPipeline(st, Config{HourlyMax: 5, Window: time.Hour}).WithClock(func() time.Time { return testNow })
}

func TestCheck_Allowed(t *testing.T) {
	st := newFakeStore()
	decision, err := newTestPipeline(st).Check(context.Background(), "AMB1", "0xAAA")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Allowed || decision.ReasonCode != "" {
		t.Errorf("Expected allowed decision, got %+v", decision)
	}
	if len(st.calls) != 3 {
		t.Errorf("Expected all three checks to run, got %v", st.calls)
	}
}

func TestCheck_Denials(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(st *fakeStore)
		recipient string
		code      string
		calls     int
	}{
		{
			name:      "deny-listed recipient",
			setup:     func(st *fakeStore) { st.denied["0xbad"] = true },
			recipient: "0xBAD",
			code:      models.ReasonRecipientDenylisted,
			calls:     1,
		},
		{
			name:      "recipient already received",
			setup:     func(st *fakeStore) { st.received["0xccc"] = true },
			recipient: "0xCCC",
			code:      models.ReasonRecipientAlreadyReceived,
			calls:     2,
		},
		{
			name: "deny list wins over duplicate",
			setup: func(st *fakeStore) {
				st.denied["0xccc"] = true
				st.received["0xccc"] = true
			},
			recipient: "0xccc",
			code:      models.ReasonRecipientDenylisted,
			calls:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			tt.setup(st)

			decision, err := newTestPipeline(st).Check(context.Background(), "AMB1", tt.recipient)
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if decision.Allowed {
				t.Fatal("Expected denial")
			}
			if decision.ReasonCode != tt.code {
				t.Errorf("Expected %s, got %s", tt.code, decision.ReasonCode)
			}
			if decision.RetryAfterSeconds != 0 {
				t.Errorf("Expected no retry-after for %s, got %d", tt.code, decision.RetryAfterSeconds)
			}
			if len(st.calls) != tt.calls {
				t.Errorf("Expected %d checks to run, got %v", tt.calls, st.calls)
			}
		})
	}
}

func TestCheck_HourlyVolume(t *testing.T) {
	st := newFakeStore()
	// Five distributions in the trailing hour, the oldest 50 minutes ago
	for _, ago := range []time.Duration{50, 40, 30, 20, 10} {
		st.created["AMB1"] = append(st.created["AMB1"], testNow.Add(-ago*time.Minute))
	}
	// Outside the window
	st.created["AMB1"] = append(st.created["AMB1"], testNow.Add(-2*time.Hour))

	decision, err := newTestPipeline(st).Check(context.Background(), "AMB1", "0xddd")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Allowed || decision.ReasonCode != models.ReasonRateLimitExceeded {
		t.Fatalf("Expected %s, got %+v", models.ReasonRateLimitExceeded, decision)
	}
	if decision.RetryAfterSeconds != 600 {
		t.Errorf("Expected retry after 600s, got %d", decision.RetryAfterSeconds)
	}

	// Four in the window is still allowed
	st.created["AMB1"] = st.created["AMB1"][1:]
	decision, err = newTestPipeline(st).Check(context.Background(), "AMB1", "0xddd")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("Expected allowed with 4 records in window, got %+v", decision)
	}
}

func TestCheck_StoreError(t *testing.T) {
	st := newFakeStore()
	st.err = errors.New("database is locked")

	_, err := newTestPipeline(st).Check(context.Background(), "AMB1", "0xaaa")
	if !errors.Is(err, st.err) {
		t.Fatalf("Expected wrapped store error, got %v", err)
	}
}
