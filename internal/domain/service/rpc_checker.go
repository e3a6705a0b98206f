package service

import (
	"context"
	"time"

	"wallet-orchestrator/internal/domain/entity"
)

// RPCChecker checks whether an RPC endpoint answers JSON-RPC.
type RPCChecker interface {
	CheckRPC(ctx context.Context, rpcURL entity.RPCURL) (bool, time.Duration, error)
}
