package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/pkg/apperrors"
)

// Compile-time check
var _ domainService.ChainReader = (*Client)(nil)

// Client implements domainService.ChainReader against one chain endpoint.
type Client struct {
	caller  *Caller
	url     string
	chainID int64
	logger  *zap.Logger
}

// NewClient creates a chain reader bound to url.
func NewClient(caller *Caller, chainID int64, url entity.RPCURL, logger *zap.Logger) *Client {
	return &Client{
		caller:  caller,
		url:     url.String(),
		chainID: chainID,
		logger:  logger.Named("ChainClient").With(zap.Int64("chainId", chainID)),
	}
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

type rpcReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     *hexutil.Big   `json:"blockNumber"`
	Status          hexutil.Uint64 `json:"status"`
}

// GetBalance returns the native balance at the latest block.
func (c *Client) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	var result hexutil.Big
	if err := c.caller.Call(ctx, c.url, "eth_getBalance", []interface{}{address, "latest"}, &result); err != nil {
		return nil, fmt.Errorf("eth_getBalance %s: %w", address.Hex(), err)
	}
	return result.ToInt(), nil
}

// Call runs eth_call at the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var result hexutil.Bytes
	args := callArgs{To: to, Data: data}
	if err := c.caller.Call(ctx, c.url, "eth_call", []interface{}{args, "latest"}, &result); err != nil {
		return nil, fmt.Errorf("eth_call %s: %w", to.Hex(), err)
	}
	return result, nil
}

// GetTransactionReceipt returns nil without error while the transaction is pending.
func (c *Client) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*entity.Receipt, error) {
	var result *rpcReceipt
	if err := c.caller.Call(ctx, c.url, "eth_getTransactionReceipt", []interface{}{hash}, &result); err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt %s: %w", hash.Hex(), err)
	}
	if result == nil {
		c.logger.Debug("Receipt not available yet", zap.String("hash", hash.Hex()))
		return nil, nil
	}
	if result.BlockNumber == nil {
		return nil, fmt.Errorf("%w: receipt for %s has no block number", apperrors.ErrExternalServiceFailure, hash.Hex())
	}

	return &entity.Receipt{
		TxHash:      result.TransactionHash,
		BlockNumber: result.BlockNumber.ToInt().Uint64(),
		Success:     result.Status == 1,
	}, nil
}
