package port

import (
	"context"

	"wallet-orchestrator/internal/domain/entity"
)

// ChainService exposes the chain registry and endpoint health.
type ChainService interface {
	// GetAllChains lists every supported chain, default first.
	GetAllChains(ctx context.Context) []entity.ChainConfig

	// GetChainTokens lists the configured tokens of a chain.
	GetChainTokens(ctx context.Context, chainID int64) ([]entity.TokenContract, error)

	// CheckEndpoints checks every chain's RPC endpoint concurrently.
	CheckEndpoints(ctx context.Context) []entity.EndpointStatus
}
