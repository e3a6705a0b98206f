package rpc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
)

// Compile-time check
var _ domainService.RPCChecker = (*Checker)(nil)

// Checker implements the domainService.RPCChecker interface with eth_blockNumber.
type Checker struct {
	caller *Caller
	logger *zap.Logger
}

// NewChecker creates a new RPC checker instance.
func NewChecker(caller *Caller, logger *zap.Logger) domainService.RPCChecker {
	return &Checker{
		caller: caller,
		logger: logger.Named("RPCCheckerAdapter"),
	}
}

// CheckRPC reports whether the endpoint answers eth_blockNumber and how long it took.
func (c *Checker) CheckRPC(
	ctx context.Context,
	rpcURL entity.RPCURL,
) (isWorking bool, latency time.Duration, err error) {
	startTime := time.Now()

	var head hexutil.Uint64
	err = c.caller.Call(ctx, rpcURL.String(), "eth_blockNumber", nil, &head)
	latency = time.Since(startTime)
	if err != nil {
		c.logger.Debug("RPC check failed", zap.String("url", rpcURL.String()), zap.Error(err))
		return false, latency, err
	}

	c.logger.Debug("RPC is working",
		zap.String("url", rpcURL.String()),
		zap.Uint64("head", uint64(head)),
		zap.Duration("latency", latency),
	)
	return true, latency, nil
}
