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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"token-distribution-go/internal/common"
	"token-distribution-go/internal/config"
	"token-distribution-go/internal/store"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func usage() {
	fmt.Println("Usage: denylist add -address <0x address> -reason <text> [-by <operator>]")
	fmt.Println("       denylist remove -address <0x address>")
	fmt.Println("       denylist show -address <0x address>")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	action := os.Args[1]

	fs := flag.NewFlagSet(action, flag.ExitOnError)
	address := fs.String("address", "", "Wallet address (required)")
	reason := fs.String("reason", "", "Reason for blocking the address")
	addedBy := fs.String("by", os.Getenv("USER"), "Operator adding the entry")
	_ = fs.Parse(os.Args[2:])

	if !ethcommon.IsHexAddress(*address) {
		fmt.Printf("Error: invalid address %q\n", *address)
		usage()
	}
	normalized := strings.ToLower(*address)

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	switch action {
	case "add":
		if *reason == "" {
			fmt.Println("Error: -reason is required")
			usage()
		}
		entry, err := dbService.UpsertDenyListEntry(ctx, store.UpsertDenyListParams{
			Address: normalized,
			Reason:  *reason,
			AddedBy: *addedBy,
		})
		if err != nil {
			zap.L().Fatal("Failed to add deny-list entry", zap.Error(err))
		}
		zap.L().Info("Address added to deny-list",
			zap.String("address", entry.Address),
			zap.String("added_by", entry.AddedBy))
		fmt.Printf("✓ %s blocked: %s\n", entry.Address, entry.Reason)

	case "remove":
		err := dbService.DeleteDenyListEntry(ctx, normalized)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("✗ %s is not on the deny-list\n", normalized)
			os.Exit(1)
		}
		if err != nil {
			zap.L().Fatal("Failed to remove deny-list entry", zap.Error(err))
		}
		fmt.Printf("✓ %s removed from deny-list\n", normalized)

	case "show":
		entry, err := dbService.FindDenyListEntry(ctx, normalized)
		if err != nil {
			zap.L().Fatal("Failed to look up deny-list entry", zap.Error(err))
		}
		if entry == nil {
			fmt.Printf("%s is not on the deny-list\n", normalized)
			return
		}
		common.PrintHeader("DENY-LIST ENTRY", common.DefaultWidth)
		common.PrintField("Address", entry.Address)
		common.PrintField("Reason", entry.Reason)
		common.PrintField("Added by", entry.AddedBy)
		common.PrintField("Added at", entry.CreatedAt.Format(time.RFC3339))
		common.PrintSeparator("=", common.DefaultWidth)

	default:
		usage()
	}
}
