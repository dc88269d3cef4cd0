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
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"token-distribution-go/internal/common"
	"token-distribution-go/internal/config"
	"token-distribution-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	tag := flag.String("tag", "", "Ambassador tag read from the NFC card (required)")
	recipient := flag.String("recipient", "", "Recipient wallet address (required)")
	asJson := flag.Bool("json", false, "Print the result as JSON")
	flag.Parse()

	if *tag == "" || *recipient == "" {
		fmt.Println("Usage: distribute -tag <ambassador-tag> -recipient <0x address> [-json]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Cancelling abandons the request; the record stays pending for the monitor.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	ctx = models.WithRequestMetadata(ctx, &models.RequestMetadata{
		RequestId: uuid.New().String(),
		Source:    "cli",
	})
	result := services.Distribution.RequestDistribution(ctx, *tag, *recipient)

	if *asJson {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			zap.L().Fatal("Failed to encode result", zap.Error(err))
		}
		fmt.Println(string(encoded))
	} else {
		common.PrintHeader("DISTRIBUTION RESULT", common.DefaultWidth)
		common.PrintField("Tag", *tag)
		common.PrintField("Recipient", *recipient)
		common.PrintField("Record", result.RecordId)
		common.PrintField("Ambassador tx", result.AmbassadorReceipt)
		common.PrintField("Recipient tx", result.RecipientReceipt)
		common.PrintField("Reason", result.ReasonCode)
		common.PrintField("Message", result.Message)
		if result.RetryAfterSeconds > 0 {
			common.PrintField("Retry after", fmt.Sprintf("%ds", result.RetryAfterSeconds))
		}
		if result.Success {
			common.PrintFooter("✓ Distribution completed", common.DefaultWidth)
		} else {
			common.PrintFooter("✗ Distribution not completed", common.DefaultWidth)
		}
	}

	if !result.Success {
		os.Exit(2)
	}
}
