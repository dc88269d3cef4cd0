package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"token-distribution-go/internal/store"
)

func TestDenyList_UpsertFindDelete(t *testing.T) {
	service, clock, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	address := "0xABCDEFabcdef0000000000000000000000000001"

	entry, err := service.UpsertDenyListEntry(ctx, store.UpsertDenyListParams{
		Address: address,
		Reason:  "fraud",
		AddedBy: "ops",
	})
	if err != nil {
		t.Fatalf("UpsertDenyListEntry failed: %v", err)
	}
	if entry.Address != "0xabcdefabcdef0000000000000000000000000001" {
		t.Errorf("Expected lowercased address, got %s", entry.Address)
	}

	found, err := service.FindDenyListEntry(ctx, address)
	if err != nil {
		t.Fatalf("FindDenyListEntry failed: %v", err)
	}
	if found == nil || found.Reason != "fraud" {
		t.Fatalf("Expected entry with reason fraud, got %+v", found)
	}

	clock.advance(time.Minute)
	if _, err := service.UpsertDenyListEntry(ctx, store.UpsertDenyListParams{
		Address: address,
		Reason:  "chargeback",
		AddedBy: "ops2",
	}); err != nil {
		t.Fatalf("Second UpsertDenyListEntry failed: %v", err)
	}

	found, err = service.FindDenyListEntry(ctx, address)
	if err != nil {
		t.Fatalf("FindDenyListEntry failed: %v", err)
	}
	if found.Reason != "chargeback" || found.AddedBy != "ops2" {
		t.Errorf("Expected replaced entry, got %+v", found)
	}

	if err := service.DeleteDenyListEntry(ctx, address); err != nil {
		t.Fatalf("DeleteDenyListEntry failed: %v", err)
	}

	found, err = service.FindDenyListEntry(ctx, address)
	if err != nil {
		t.Fatalf("FindDenyListEntry failed: %v", err)
	}
	if found != nil {
		t.Errorf("Expected entry to be removed, got %+v", found)
	}
}

func TestDeleteDenyListEntry_NotFound(t *testing.T) {
	service, _, cleanup := setupTestDB(t)
	defer cleanup()

	err := service.DeleteDenyListEntry(context.Background(), "0x0000000000000000000000000000000000000009")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
