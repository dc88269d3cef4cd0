package database

import (
	"context"
	"errors"
	"testing"

	"token-distribution-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestCreateAmbassador(t *testing.T) {
	service, _, cleanup := setupTestDB(t)
	defer cleanup()

	ambassador := createTestAmbassador(t, service, "AMB1")

	if ambassador.Id == "" {
		t.Error("Expected ambassador id to be set")
	}
	if ambassador.Tag != "AMB1" {
		t.Errorf("Expected tag AMB1, got %s", ambassador.Tag)
	}
	if !ambassador.Active {
		t.Error("Expected new ambassador to be active")
	}
	if ambassador.TotalDistributions != 0 {
		t.Errorf("Expected 0 distributions, got %d", ambassador.TotalDistributions)
	}
	if !ambassador.TotalMinted.Equal(decimal.Zero) {
		t.Errorf("Expected total minted 0, got %s", ambassador.TotalMinted)
	}
}

func TestCreateAmbassador_DuplicateTag(t *testing.T) {
	service, _, cleanup := setupTestDB(t)
	defer cleanup()

	createTestAmbassador(t, service, "AMB1")

	_, err := service.CreateAmbassador(context.Background(), store.CreateAmbassadorParams{
		Tag:           "AMB1",
		WalletAddress: "0x2222222222222222222222222222222222222222",
	})
	if !errors.Is(err, store.ErrAmbassadorExists) {
		t.Fatalf("Expected ErrAmbassadorExists, got %v", err)
	}
}

func TestFindAmbassadorByTag_Unknown(t *testing.T) {
	service, _, cleanup := setupTestDB(t)
	defer cleanup()

	ambassador, err := service.FindAmbassadorByTag(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("FindAmbassadorByTag failed: %v", err)
	}
	if ambassador != nil {
		t.Errorf("Expected nil ambassador, got %+v", ambassador)
	}
}

func TestFindAmbassadorByTag_Inactive(t *testing.T) {
	service, _, cleanup := setupTestDB(t)
	defer cleanup()

	createTestAmbassador(t, service, "AMB1")
	if _, err := service.db.Exec("UPDATE ambassadors SET active = 0 WHERE tag = ?", "AMB1"); err != nil {
		t.Fatalf("Failed to deactivate ambassador: %v", err)
	}

	ambassador, err := service.FindAmbassadorByTag(context.Background(), "AMB1")
	if err != nil {
		t.Fatalf("FindAmbassadorByTag failed: %v", err)
	}
	if ambassador != nil {
		t.Error("Expected inactive ambassador to be hidden")
	}
}
