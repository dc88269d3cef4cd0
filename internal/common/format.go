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

package common

import (
	"fmt"
	"strings"
	"time"

	"token-distribution-go/internal/models"
)

const (
	DefaultWidth = 80
	WideWidth    = 100
)

func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a title between two separator lines
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintField prints an aligned "label: value" line, skipping empty values
func PrintField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %-20s %s\n", label+":", value)
}

func boxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "├  "
}

func boxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// PrintRecords prints distribution records as a tree
func PrintRecords(records []models.DistributionRecord) {
	if len(records) == 0 {
		fmt.Println("  (none)")
		return
	}

	for i, record := range records {
		isLast := i == len(records)-1
		detail := boxDetailPrefix(isLast)

		fmt.Printf("%s%s  %-7s  %s -> %s\n", boxPrefix(isLast), record.Id, record.Status,
			record.AmbassadorTag, record.RecipientAddress)
		fmt.Printf("%s  amounts   %s / %s   created %s\n", detail,
			record.AmbassadorAmount, record.RecipientAmount, record.CreatedAt.Format(time.RFC3339))
		if record.AmbassadorTxHash != "" {
			fmt.Printf("%s  ambassador tx  %s\n", detail, record.AmbassadorTxHash)
		}
		if record.RecipientTxHash != "" {
			fmt.Printf("%s  recipient tx   %s\n", detail, record.RecipientTxHash)
		}
		if record.FailureCode != "" {
			fmt.Printf("%s  failure   %s\n", detail, record.FailureCode)
		}
	}
}
