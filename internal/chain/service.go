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

package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"token-distribution-go/internal/executor"
	"token-distribution-go/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const (
	defaultConfirmationPoll = 2 * time.Second
	// gasHeadroomPercent is added to every estimate before signing.
	gasHeadroomPercent = 20
)

// backend is the subset of *ethclient.Client the service uses.
type backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// Service mints a token contract through an EVM JSON-RPC endpoint.
type Service struct {
	client   backend
	key      *ecdsa.PrivateKey
	operator common.Address
	contract common.Address
	chainId  *big.Int
	decimals int32
	poll     time.Duration

	// Serialises nonce allocation and broadcast.
	sendMu sync.Mutex
}

var _ executor.Ledger = (*Service)(nil)

func NewService(ctx context.Context, ledgerCfg models.LedgerConfig, tokenCfg models.TokenConfig) (*Service, error) {
	if ledgerCfg.RPCURL == "" {
		return nil, fmt.Errorf("ledger RPC URL cannot be empty")
	}

	key, err := parsePrivateKey(ledgerCfg.OperatorPrivateKey)
	if err != nil {
		return nil, err
	}

	httpClient, err := newHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, ledgerCfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to dial ledger RPC: %w", err)
	}

	service, err := newService(ethclient.NewClient(rpcClient), key, ledgerCfg, tokenCfg)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}

	if err := service.verifyChainId(ctx, ledgerCfg.CallTimeout); err != nil {
		service.Close()
		return nil, err
	}

	zap.L().Info("Ledger service initialized",
		zap.String("operator", service.OperatorAddress()),
		zap.String("contract", strings.ToLower(service.contract.Hex())),
		zap.Int64("chain_id", tokenCfg.ChainId))
	return service, nil
}

func newService(client backend, key *ecdsa.PrivateKey, ledgerCfg models.LedgerConfig, tokenCfg models.TokenConfig) (*Service, error) {
	if !common.IsHexAddress(tokenCfg.ContractAddress) {
		return nil, fmt.Errorf("invalid token contract address %q", tokenCfg.ContractAddress)
	}
	if tokenCfg.ChainId <= 0 {
		return nil, fmt.Errorf("chain id must be positive, got %d", tokenCfg.ChainId)
	}

	poll := ledgerCfg.ConfirmationPoll
	if poll <= 0 {
		poll = defaultConfirmationPoll
	}

	return &Service{
		client:   client,
		key:      key,
		operator: crypto.PubkeyToAddress(key.PublicKey),
		contract: common.HexToAddress(tokenCfg.ContractAddress),
		chainId:  big.NewInt(tokenCfg.ChainId),
		decimals: tokenCfg.Decimals,
		poll:     poll,
	}, nil
}

func parsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, fmt.Errorf("operator private key cannot be empty")
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		// The key itself must never reach the logs.
		return nil, fmt.Errorf("invalid operator private key")
	}
	return key, nil
}

func (s *Service) verifyChainId(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = executor.DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	remote, err := s.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("unable to read chain id: %w", err)
	}
	if remote.Cmp(s.chainId) != 0 {
		return fmt.Errorf("ledger chain id %s does not match configured %s", remote, s.chainId)
	}
	return nil
}

func (s *Service) Close() {
	s.client.Close()
}

func (s *Service) OperatorAddress() string {
	return strings.ToLower(s.operator.Hex())
}

func (s *Service) GetBalance(ctx context.Context) (*big.Int, error) {
	balance, err := s.client.BalanceAt(ctx, s.operator, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to get operator balance: %w", err)
	}
	return balance, nil
}

func (s *Service) GetUnitPrice(ctx context.Context) (*big.Int, error) {
	price, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get gas price: %w", err)
	}
	return price, nil
}

func (s *Service) callMsg(call executor.Call) (ethereum.CallMsg, error) {
	amount, err := toBaseUnits(call.Amount, s.decimals)
	if err != nil {
		return ethereum.CallMsg{}, err
	}
	data, err := packMint(common.HexToAddress(call.To), amount)
	if err != nil {
		return ethereum.CallMsg{}, err
	}
	return ethereum.CallMsg{From: s.operator, To: &s.contract, Data: data}, nil
}

func (s *Service) EstimateCost(ctx context.Context, call executor.Call) (uint64, error) {
	msg, err := s.callMsg(call)
	if err != nil {
		return 0, err
	}
	gas, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("unable to estimate gas: %w", withRevertData(err))
	}
	return withHeadroom(gas), nil
}

func (s *Service) Simulate(ctx context.Context, call executor.Call) error {
	msg, err := s.callMsg(call)
	if err != nil {
		return err
	}
	if _, err := s.client.CallContract(ctx, msg, nil); err != nil {
		return fmt.Errorf("mint simulation failed: %w", withRevertData(err))
	}
	return nil
}

func (s *Service) Submit(ctx context.Context, call executor.Call) (string, error) {
	msg, err := s.callMsg(call)
	if err != nil {
		return "", err
	}

	gas, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("unable to estimate gas: %w", withRevertData(err))
	}
	gasPrice, err := s.GetUnitPrice(ctx)
	if err != nil {
		return "", err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	nonce, err := s.client.PendingNonceAt(ctx, s.operator)
	if err != nil {
		return "", fmt.Errorf("unable to get operator nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &s.contract,
		Value:    new(big.Int),
		Gas:      withHeadroom(gas),
		GasPrice: gasPrice,
		Data:     msg.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainId), s.key)
	if err != nil {
		return "", fmt.Errorf("unable to sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("unable to send transaction: %w", withRevertData(err))
	}

	zap.L().Debug("Transaction broadcast",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", signed.Gas()),
		zap.String("gas_price", gasPrice.String()))
	return signed.Hash().Hex(), nil
}

// AwaitConfirmation polls for the receipt until it appears or timeout elapses.
// A timeout is reported as TxTimeout, not as an error.
func (s *Service) AwaitConfirmation(ctx context.Context, txHash string, timeout time.Duration) (models.TxStatus, error) {
	hash := common.HexToHash(txHash)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusSuccessful {
				return models.TxConfirmed, nil
			}
			zap.L().Warn("Transaction reverted",
				zap.String("tx_hash", txHash),
				zap.Uint64("block", receipt.BlockNumber.Uint64()))
			return models.TxReverted, nil
		case errors.Is(err, ethereum.NotFound):
			// not mined yet
		default:
			zap.L().Debug("Receipt lookup failed", zap.String("tx_hash", txHash), zap.Error(err))
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			zap.L().Warn("Confirmation wait timed out",
				zap.String("tx_hash", txHash),
				zap.Duration("timeout", timeout))
			return models.TxTimeout, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func withHeadroom(gas uint64) uint64 {
	return gas + gas*gasHeadroomPercent/100
}

// withRevertData appends the revert payload, where custom errors such as
// AccessControlUnauthorizedAccount are encoded.
func withRevertData(err error) error {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := dataErr.ErrorData(); data != nil {
			return fmt.Errorf("%w (data: %v)", err, data)
		}
	}
	return err
}
