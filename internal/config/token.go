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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"token-distribution-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type tokenFile struct {
	Token struct {
		Symbol           string `yaml:"symbol"`
		ContractAddress  string `yaml:"contract_address"`
		ChainId          int64  `yaml:"chain_id"`
		Decimals         int32  `yaml:"decimals"`
		AmbassadorAmount string `yaml:"ambassador_amount"`
		RecipientAmount  string `yaml:"recipient_amount"`
	} `yaml:"token"`
}

// LoadTokenConfig reads the distributed token's contract and reward amounts.
func LoadTokenConfig(tokenFilePath string) (*models.TokenConfig, error) {
	var path string
	if filepath.IsAbs(tokenFilePath) {
		path = tokenFilePath
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, tokenFilePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", tokenFilePath, err)
	}

	return parseTokenConfig(tokenFilePath, data)
}

func parseTokenConfig(name string, data []byte) (*models.TokenConfig, error) {
	var file tokenFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, err)
	}

	t := file.Token
	if t.Symbol == "" {
		return nil, fmt.Errorf("%s: token symbol is required", name)
	}
	if !common.IsHexAddress(t.ContractAddress) {
		return nil, fmt.Errorf("%s: invalid contract address %q", name, t.ContractAddress)
	}
	if t.ChainId <= 0 {
		return nil, fmt.Errorf("%s: chain_id must be positive", name)
	}
	if t.Decimals < 0 || t.Decimals > 36 {
		return nil, fmt.Errorf("%s: decimals out of range: %d", name, t.Decimals)
	}
	for field, amount := range map[string]string{
		"ambassador_amount": t.AmbassadorAmount,
		"recipient_amount":  t.RecipientAmount,
	} {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid %s %q: %w", name, field, amount, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("%s: %s must be greater than zero", name, field)
		}
		if d.Exponent() < -t.Decimals {
			return nil, fmt.Errorf("%s: %s has more than %d decimal places", name, field, t.Decimals)
		}
	}

	return &models.TokenConfig{
		File:             name,
		Symbol:           t.Symbol,
		ContractAddress:  strings.ToLower(t.ContractAddress),
		ChainId:          t.ChainId,
		Decimals:         t.Decimals,
		AmbassadorAmount: t.AmbassadorAmount,
		RecipientAmount:  t.RecipientAmount,
	}, nil
}
