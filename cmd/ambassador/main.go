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
	"regexp"
	"strings"
	"time"

	"token-distribution-go/internal/common"
	"token-distribution-go/internal/config"
	"token-distribution-go/internal/store"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var tagRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}
	if !tagRegex.MatchString(tag) {
		return fmt.Errorf("invalid tag format: %s", tag)
	}
	return nil
}

func validateWallet(wallet string) error {
	if !ethcommon.IsHexAddress(wallet) {
		return fmt.Errorf("invalid wallet address: %s", wallet)
	}
	return nil
}

func main() {
	tag := flag.String("tag", "", "Ambassador tag (required)")
	wallet := flag.String("wallet", "", "Ambassador wallet address (required for create)")
	show := flag.Bool("show", false, "Show the ambassador instead of creating it")
	flag.Parse()

	if err := validateTag(*tag); err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Usage: ambassador -tag <tag> -wallet <0x address>")
		fmt.Println("       ambassador -tag <tag> -show")
		os.Exit(1)
	}

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

	if *show {
		ambassador, err := dbService.FindAmbassadorByTag(ctx, *tag)
		if err != nil {
			zap.L().Fatal("Failed to look up ambassador", zap.Error(err))
		}
		if ambassador == nil {
			fmt.Printf("No ambassador with tag %s\n", *tag)
			os.Exit(1)
		}
		common.PrintHeader("AMBASSADOR", common.DefaultWidth)
		common.PrintField("Id", ambassador.Id)
		common.PrintField("Tag", ambassador.Tag)
		common.PrintField("Wallet", ambassador.WalletAddress)
		common.PrintField("Distributions", fmt.Sprintf("%d", ambassador.TotalDistributions))
		common.PrintField("Total minted", ambassador.TotalMinted.String())
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}

	if err := validateWallet(*wallet); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ambassador, err := dbService.CreateAmbassador(ctx, store.CreateAmbassadorParams{
		Tag:           *tag,
		WalletAddress: strings.ToLower(*wallet),
	})
	if errors.Is(err, store.ErrAmbassadorExists) {
		fmt.Printf("✗ Ambassador with tag %s already exists\n", *tag)
		os.Exit(1)
	}
	if err != nil {
		zap.L().Fatal("Failed to create ambassador", zap.Error(err))
	}

	zap.L().Info("Ambassador created",
		zap.String("id", ambassador.Id),
		zap.String("tag", ambassador.Tag))
	fmt.Printf("✓ Ambassador %s registered with wallet %s\n", ambassador.Tag, ambassador.WalletAddress)
}
