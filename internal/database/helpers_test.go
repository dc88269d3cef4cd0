package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func setupTestDB(t *testing.T) (*Service, *testClock, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	clock := &testClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	service := &Service{db: db, now: clock.now}

	if err := service.initSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, clock, cleanup
}

func createTestAmbassador(t *testing.T, service *Service, tag string) *models.Ambassador {
	ambassador, err := service.CreateAmbassador(context.Background(), store.CreateAmbassadorParams{
		Tag:           tag,
		WalletAddress: "0x1111111111111111111111111111111111111111",
	})
	if err != nil {
		t.Fatalf("CreateAmbassador failed: %v", err)
	}
	return ambassador
}
