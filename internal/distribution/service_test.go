package distribution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"token-distribution-go/internal/database"
	"token-distribution-go/internal/events"
	"token-distribution-go/internal/executor"
	"token-distribution-go/internal/models"
	"token-distribution-go/internal/ratelimit"
	"token-distribution-go/internal/security"
	"token-distribution-go/internal/store"

	"github.com/shopspring/decimal"
)

const (
	ambassadorWallet = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	recipientCCC     = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// fakeLedger confirms every mint unless a status is set for its leg.
type fakeLedger struct {
	mu sync.Mutex

	balance     *big.Int
	simulateErr map[string]error
	statuses    map[string]models.TxStatus

	calls   []string
	counter int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balance:     big.NewInt(1_000_000_000),
		simulateErr: make(map[string]error),
		statuses:    make(map[string]models.TxStatus),
	}
}

func (f *fakeLedger) log(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeLedger) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if to, ok := strings.CutPrefix(c, "submit:"); ok {
			out = append(out, to)
		}
	}
	return out
}

func (f *fakeLedger) OperatorAddress() string { return "0x9999999999999999999999999999999999999999" }

func (f *fakeLedger) GetBalance(context.Context) (*big.Int, error) { return f.balance, nil }

func (f *fakeLedger) GetUnitPrice(context.Context) (*big.Int, error) { return big.NewInt(10), nil }

func (f *fakeLedger) EstimateCost(_ context.Context, call executor.Call) (uint64, error) {
	f.log("estimate:" + call.To)
	return 50_000, nil
}

func (f *fakeLedger) Simulate(_ context.Context, call executor.Call) error {
	f.log("simulate:" + call.To)
	return f.simulateErr[call.To]
}

func (f *fakeLedger) Submit(_ context.Context, call executor.Call) (string, error) {
	f.log("submit:" + call.To)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return fmt.Sprintf("0x%s-%d", call.Leg, f.counter), nil
}

func (f *fakeLedger) AwaitConfirmation(_ context.Context, txHash string, _ time.Duration) (models.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	leg := strings.SplitN(strings.TrimPrefix(txHash, "0x"), "-", 2)[0]
	if status, ok := f.statuses[leg]; ok {
		return status, nil
	}
	return models.TxConfirmed, nil
}

type collectingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collectingSink) Emit(_ context.Context, event events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *collectingSink) ofType(eventType string) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	service *Service
	store   *database.Service
	ledger  *fakeLedger
	limiter *ratelimit.Memory
	sink    *collectingSink
}

func setupTestEnv(t *testing.T) *testEnv {
	ctx := context.Background()

	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "distributions.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.CreateAmbassador(ctx, store.CreateAmbassadorParams{Tag: "AMB1", WalletAddress: ambassadorWallet}); err != nil {
		t.Fatalf("Failed to create ambassador: %v", err)
	}

	ledger := newFakeLedger()
	exec := executor.New(ledger, executor.Config{MaxRetries: 3, BaseDelay: time.Millisecond}).
		WithSleep(func(context.Context, time.Duration) error { return nil })
	limiter := ratelimit.NewMemory(ratelimit.Config{Max: 5, Window: time.Hour})
	sink := &collectingSink{}

	service, err := NewService(Config{
		AmbassadorAmount: decimal.NewFromInt(10),
		RecipientAmount:  decimal.NewFromInt(5),
	}, Deps{
		Store:    db,
		Executor: exec,
		Limiter:  limiter,
		Pipeline: security.NewPipeline(db, security.Config{HourlyMax: 5, Window: time.Hour}),
		Sink:     sink,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	return &testEnv{service: service, store: db, ledger: ledger, limiter: limiter, sink: sink}
}

func recipientN(n int) string {
	return fmt.Sprintf("0x%040d", n)
}

func TestRequestDistribution_Success(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	result := env.service.RequestDistribution(ctx, "AMB1", "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}
	if result.AmbassadorReceipt == "" || result.RecipientReceipt == "" {
		t.Errorf("Expected both receipts, got %+v", result)
	}

	record, err := env.store.GetRecord(ctx, result.RecordId)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if record.Status != models.StatusSuccess || record.TxRefCount() != 2 {
		t.Errorf("Expected success with two references, got %+v", record)
	}

	ambassador, err := env.store.FindAmbassadorByTag(ctx, "AMB1")
	if err != nil {
		t.Fatalf("FindAmbassadorByTag failed: %v", err)
	}
	if ambassador.TotalDistributions != 1 || !ambassador.TotalMinted.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected counters 1/15, got %d/%s", ambassador.TotalDistributions, ambassador.TotalMinted)
	}

	// Ambassador leg strictly before recipient leg
	submitted := env.ledger.submitted()
	if len(submitted) != 2 || submitted[0] != ambassadorWallet || submitted[1] != recipientCCC {
		t.Errorf("Expected ambassador then recipient submissions, got %v", submitted)
	}

	if len(env.sink.ofType(events.TypeDistributionSucceeded)) != 1 {
		t.Error("Expected a success event")
	}
}

func TestRequestDistribution_RequestMetadataOnEvents(t *testing.T) {
	env := setupTestEnv(t)
	ctx := models.WithRequestMetadata(context.Background(), &models.RequestMetadata{
		RequestId: "req-42",
		Source:    "nfc",
	})

	if result := env.service.RequestDistribution(ctx, "AMB1", recipientCCC); !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}

	succeeded := env.sink.ofType(events.TypeDistributionSucceeded)
	if len(succeeded) != 1 {
		t.Fatalf("Expected one success event, got %d", len(succeeded))
	}
	attrs := succeeded[0].Attributes
	if attrs["request_id"] != "req-42" || attrs["source"] != "nfc" {
		t.Errorf("Expected request metadata on event, got %v", attrs)
	}
}

func TestRequestDistribution_RecipientAlreadyReceived(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	if first := env.service.RequestDistribution(ctx, "AMB1", recipientCCC); !first.Success {
		t.Fatalf("Expected first distribution to succeed, got %+v", first)
	}

	second := env.service.RequestDistribution(ctx, "AMB1", recipientCCC)
	if second.Success || second.ReasonCode != models.ReasonRecipientAlreadyReceived {
		t.Fatalf("Expected %s, got %+v", models.ReasonRecipientAlreadyReceived, second)
	}
	if second.RecordId != "" || second.RetryAfterSeconds != 0 {
		t.Errorf("Expected no record and no retry-after, got %+v", second)
	}
	if n := len(env.ledger.submitted()); n != 2 {
		t.Errorf("Expected no further ledger mutation, got %d submissions", n)
	}
}

func TestRequestDistribution_ConcurrentSameRecipient(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	const workers = 4
	results := make([]models.DistributionResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.service.RequestDistribution(ctx, "AMB1", recipientCCC)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, result := range results {
		switch {
		case result.Success:
			successes++
		case result.ReasonCode != models.ReasonRecipientAlreadyReceived:
			t.Errorf("Expected %s for the losing requests, got %+v", models.ReasonRecipientAlreadyReceived, result)
		}
	}
	if successes != 1 {
		t.Errorf("Expected exactly one success, got %d", successes)
	}
	if n := len(env.ledger.submitted()); n != 2 {
		t.Errorf("Expected 2 submissions, got %d", n)
	}
}

type allowAll struct{}

func (allowAll) Check(context.Context, string, string) (security.Decision, error) {
	return security.Decision{Allowed: true}, nil
}

func TestRequestDistribution_PendingConflictIsAlreadyReceived(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	ambassador, err := env.store.FindAmbassadorByTag(ctx, "AMB1")
	if err != nil || ambassador == nil {
		t.Fatalf("FindAmbassadorByTag failed: %v", err)
	}
	// A pending record the pipeline does not see, as if another request won the race.
	if _, err := env.store.CreatePendingRecord(ctx, store.CreateRecordParams{
		AmbassadorId:     ambassador.Id,
		AmbassadorTag:    ambassador.Tag,
		RecipientAddress: recipientCCC,
		AmbassadorAmount: decimal.NewFromInt(10),
		RecipientAmount:  decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("CreatePendingRecord failed: %v", err)
	}

	service, err := NewService(Config{
		AmbassadorAmount: decimal.NewFromInt(10),
		RecipientAmount:  decimal.NewFromInt(5),
	}, Deps{
		Store: env.store,
		Executor: executor.New(env.ledger, executor.Config{MaxRetries: 0}).
			WithSleep(func(context.Context, time.Duration) error { return nil }),
		Limiter:  env.limiter,
		Pipeline: allowAll{},
		Sink:     env.sink,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	result := service.RequestDistribution(ctx, "AMB1", recipientCCC)
	if result.Success || result.ReasonCode != models.ReasonRecipientAlreadyReceived {
		t.Fatalf("Expected %s, got %+v", models.ReasonRecipientAlreadyReceived, result)
	}
	if result.RecordId != "" {
		t.Errorf("Expected no record id, got %s", result.RecordId)
	}
	if n := len(env.ledger.submitted()); n != 0 {
		t.Errorf("Expected no submissions, got %d", n)
	}
}

func TestRequestDistribution_RateLimit(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if result := env.service.RequestDistribution(ctx, "AMB1", recipientN(i)); !result.Success {
			t.Fatalf("Request %d: expected success, got %+v", i, result)
		}
	}

	sixth := env.service.RequestDistribution(ctx, "AMB1", recipientN(6))
	if sixth.Success || sixth.ReasonCode != models.ReasonRateLimitExceeded {
		t.Fatalf("Expected %s, got %+v", models.ReasonRateLimitExceeded, sixth)
	}
	if sixth.RetryAfterSeconds <= 0 || sixth.RetryAfterSeconds > 3600 {
		t.Errorf("Expected retry-after within the hour, got %d", sixth.RetryAfterSeconds)
	}

	info, err := env.service.GetRateLimitInfo(ctx, "AMB1")
	if err != nil {
		t.Fatalf("GetRateLimitInfo failed: %v", err)
	}
	if info.Remaining != 0 {
		t.Errorf("Expected no remaining requests, got %d", info.Remaining)
	}

	// With the in-memory window cleared the persisted hourly count still denies.
	if err := env.service.ClearRateLimit(ctx, "AMB1"); err != nil {
		t.Fatalf("ClearRateLimit failed: %v", err)
	}
	again := env.service.RequestDistribution(ctx, "AMB1", recipientN(6))
	if again.ReasonCode != models.ReasonRateLimitExceeded {
		t.Fatalf("Expected persisted hourly check to deny, got %+v", again)
	}
	if again.RetryAfterSeconds <= 0 {
		t.Errorf("Expected retry-after from the hourly check, got %d", again.RetryAfterSeconds)
	}

	if n := len(env.ledger.submitted()); n != 10 {
		t.Errorf("Expected 10 submissions from the 5 allowed requests, got %d", n)
	}
}

func TestRequestDistribution_PartialFailure(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.ledger.statuses["recipient"] = models.TxTimeout

	result := env.service.RequestDistribution(ctx, "AMB1", recipientCCC)
	if result.Success {
		t.Fatal("Expected failure")
	}
	if result.ReasonCode != models.ReasonTransactionFailed || !result.PartialFailure {
		t.Errorf("Expected partial %s, got %+v", models.ReasonTransactionFailed, result)
	}
	if result.AmbassadorReceipt == "" || result.RecipientReceipt != "" {
		t.Errorf("Expected ambassador receipt only, got %+v", result)
	}

	record, err := env.store.GetRecord(ctx, result.RecordId)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if !record.PartialFailure() || record.TxRefCount() != 1 {
		t.Errorf("Expected failed record with ambassador reference only, got %+v", record)
	}
	if record.FailureCode != models.ReasonTransactionFailed {
		t.Errorf("Expected failure code %s, got %s", models.ReasonTransactionFailed, record.FailureCode)
	}

	partials, err := env.store.ListPartialFailures(ctx, 10)
	if err != nil {
		t.Fatalf("ListPartialFailures failed: %v", err)
	}
	if len(partials) != 1 {
		t.Errorf("Expected one queryable partial failure, got %d", len(partials))
	}

	// One ambassador submission, four recipient attempts
	submitted := env.ledger.submitted()
	if len(submitted) != 5 {
		t.Errorf("Expected 5 submissions, got %v", submitted)
	}

	ambassador, _ := env.store.FindAmbassadorByTag(ctx, "AMB1")
	if ambassador.TotalDistributions != 0 {
		t.Errorf("Expected counters untouched, got %d", ambassador.TotalDistributions)
	}
	if len(env.sink.ofType(events.TypePartialFailure)) != 1 {
		t.Error("Expected a partial failure event")
	}
}

func TestRequestDistribution_AmbassadorLegFailure(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.ledger.statuses["ambassador"] = models.TxReverted

	result := env.service.RequestDistribution(ctx, "AMB1", recipientCCC)
	if result.Success || result.PartialFailure {
		t.Fatalf("Expected plain failure, got %+v", result)
	}

	for _, to := range env.ledger.submitted() {
		if to == recipientCCC {
			t.Fatal("Recipient leg must not run after the ambassador leg fails")
		}
	}

	record, err := env.store.GetRecord(ctx, result.RecordId)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if record.Status != models.StatusFailed || record.TxRefCount() != 0 {
		t.Errorf("Expected failed record without references, got %+v", record)
	}

	// A failed record does not block the recipient
	delete(env.ledger.statuses, "ambassador")
	if retry := env.service.RequestDistribution(ctx, "AMB1", recipientCCC); !retry.Success {
		t.Errorf("Expected retry to succeed, got %+v", retry)
	}
}

func TestRequestDistribution_FatalLedgerFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(l *fakeLedger)
		code  string
	}{
		{
			name:  "insufficient balance",
			setup: func(l *fakeLedger) { l.balance = big.NewInt(1) },
			code:  models.ReasonInsufficientBalance,
		},
		{
			name: "minter role missing",
			setup: func(l *fakeLedger) {
				l.simulateErr[ambassadorWallet] = errors.New("execution reverted: AccessControl: account is missing role")
			},
			code: models.ReasonMinterRoleMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			ctx := context.Background()
			tt.setup(env.ledger)

			result := env.service.RequestDistribution(ctx, "AMB1", recipientCCC)
			if result.Success || result.ReasonCode != tt.code {
				t.Fatalf("Expected %s, got %+v", tt.code, result)
			}
			if len(env.ledger.submitted()) != 0 {
				t.Error("Expected no ledger mutation")
			}

			record, err := env.store.GetRecord(ctx, result.RecordId)
			if err != nil {
				t.Fatalf("GetRecord failed: %v", err)
			}
			if record.Status != models.StatusFailed || record.TxRefCount() != 0 {
				t.Errorf("Expected failed record without references, got %+v", record)
			}

			if len(env.sink.ofType(events.TypeLedgerCritical)) != 1 {
				t.Error("Expected a critical ledger event")
			}
		})
	}
}

func TestRequestDistribution_Validation(t *testing.T) {
	tests := []struct {
		name      string
		tag       string
		recipient string
		code      string
	}{
		{"empty tag", "", recipientCCC, models.ReasonInvalidTag},
		{"malformed tag", "AMB 1;", recipientCCC, models.ReasonInvalidTag},
		{"bad address", "AMB1", "0x123", models.ReasonInvalidAddress},
		{"unknown ambassador", "NOBODY", recipientCCC, models.ReasonAmbassadorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			result := env.service.RequestDistribution(context.Background(), tt.tag, tt.recipient)
			if result.Success || result.ReasonCode != tt.code {
				t.Fatalf("Expected %s, got %+v", tt.code, result)
			}
			if result.Message == "" {
				t.Error("Expected a caller-facing message")
			}
			if len(env.ledger.calls) != 0 {
				t.Errorf("Expected no ledger calls, got %v", env.ledger.calls)
			}
		})
	}
}

func TestRequestDistribution_DenyListed(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.AddDenyListEntry(ctx, recipientCCC, "fraud", "ops"); err != nil {
		t.Fatalf("AddDenyListEntry failed: %v", err)
	}

	result := env.service.RequestDistribution(ctx, "AMB1", recipientCCC)
	if result.ReasonCode != models.ReasonRecipientDenylisted {
		t.Fatalf("Expected %s, got %+v", models.ReasonRecipientDenylisted, result)
	}

	if err := env.service.RemoveDenyListEntry(ctx, recipientCCC); err != nil {
		t.Fatalf("RemoveDenyListEntry failed: %v", err)
	}
	if result := env.service.RequestDistribution(ctx, "AMB1", recipientCCC); !result.Success {
		t.Errorf("Expected success after removal, got %+v", result)
	}

	if _, err := env.service.AddDenyListEntry(ctx, "0x12", "fraud", "ops"); err == nil {
		t.Error("Expected invalid address to be rejected")
	}
}

func TestRequestDistribution_AbandonedLeavesPending(t *testing.T) {
	env := setupTestEnv(t)
	env.ledger.statuses["recipient"] = models.TxTimeout

	ctx, cancel := context.WithCancel(context.Background())
	env.service.executor = executor.New(env.ledger, executor.Config{MaxRetries: 3, BaseDelay: time.Millisecond}).
		WithSleep(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		})

	result := env.service.RequestDistribution(ctx, "AMB1", recipientCCC)
	if result.Success {
		t.Fatal("Expected failure")
	}
	if result.PartialFailure {
		t.Error("Expected an abandoned request not to report a partial failure")
	}
	if result.ReasonCode != models.ReasonTransactionFailed || result.AmbassadorReceipt == "" {
		t.Errorf("Expected %s with the ambassador receipt, got %+v", models.ReasonTransactionFailed, result)
	}

	record, err := env.store.GetRecord(context.Background(), result.RecordId)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if record.Status != models.StatusPending {
		t.Errorf("Expected record to stay pending, got %s", record.Status)
	}
	if record.AmbassadorTxHash == "" {
		t.Error("Expected ambassador receipt on the pending record")
	}
	if len(env.sink.ofType(events.TypeDistributionAbandoned)) != 1 {
		t.Error("Expected an abandoned event")
	}
}

type failingStore struct {
	store.DistributionStore
}

func (failingStore) FindAmbassadorByTag(context.Context, string) (*models.Ambassador, error) {
	return nil, errors.New("database is locked")
}

func TestRequestDistribution_StoreErrorIsHidden(t *testing.T) {
	env := setupTestEnv(t)
	env.service.store = failingStore{env.store}

	result := env.service.RequestDistribution(context.Background(), "AMB1", recipientCCC)
	if result.ReasonCode != models.ReasonInternalError {
		t.Fatalf("Expected %s, got %+v", models.ReasonInternalError, result)
	}
	if result.Message != messageFor(models.ReasonInternalError) {
		t.Errorf("Expected generic message, got %q", result.Message)
	}
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(Config{}, Deps{}); err == nil {
		t.Error("Expected zero amounts to be rejected")
	}
	if _, err := NewService(Config{AmbassadorAmount: decimal.NewFromInt(1), RecipientAmount: decimal.NewFromInt(1)}, Deps{}); err == nil {
		t.Error("Expected missing dependencies to be rejected")
	}
}
