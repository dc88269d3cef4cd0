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
	"time"

	"token-distribution-go/internal/api"
	"token-distribution-go/internal/common"
	"token-distribution-go/internal/config"
	"token-distribution-go/internal/models"
	"token-distribution-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	id := flag.String("id", "", "Show a single record by id")
	status := flag.String("status", "", "List records in this status (pending, success, failed)")
	partial := flag.Bool("partial", false, "List partial failures (ambassador minted, recipient not)")
	stale := flag.Duration("stale", 0, "List pending records older than this duration (e.g. 15m)")
	limit := flag.Int("limit", 20, "Maximum number of records to show")
	offset := flag.Int("offset", 0, "Offset for -status listings")
	flag.Parse()

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

	// Read-only: no distributor needed.
	admin := api.NewAdminService(dbService, nil)

	var (
		title   string
		records []models.DistributionRecord
	)

	switch {
	case *id != "":
		record, err := admin.GetRecord(ctx, *id)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("No record with id %s\n", *id)
			os.Exit(1)
		}
		if err != nil {
			zap.L().Fatal("Failed to get record", zap.Error(err))
		}
		title = "DISTRIBUTION RECORD"
		records = []models.DistributionRecord{*record}

	case *partial:
		title = "PARTIAL FAILURES"
		records, err = admin.ListPartialFailures(ctx, *limit)

	case *stale > 0:
		title = fmt.Sprintf("PENDING OLDER THAN %s", *stale)
		records, err = admin.ListStalePending(ctx, *stale, *limit)

	case *status != "":
		title = fmt.Sprintf("RECORDS: %s", *status)
		records, err = admin.ListRecords(ctx, models.DistributionStatus(*status), *limit, *offset)

	default:
		fmt.Println("Usage: records -id <record-id>")
		fmt.Println("       records -status <pending|success|failed> [-limit N] [-offset N]")
		fmt.Println("       records -partial [-limit N]")
		fmt.Println("       records -stale 15m [-limit N]")
		os.Exit(1)
	}
	if err != nil {
		zap.L().Fatal("Failed to list records", zap.Error(err))
	}

	common.PrintHeader(title, common.WideWidth)
	common.PrintRecords(records)
	common.PrintFooter(fmt.Sprintf("%d record(s)", len(records)), common.WideWidth)
}
