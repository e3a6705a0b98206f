package repository

import "wallet-orchestrator/internal/domain/entity"

// ChainRepository is the read-only chain and token registry.
type ChainRepository interface {
	GetChainByID(chainID int64) (entity.ChainConfig, bool)
	GetAllChains() []entity.ChainConfig
	GetChainTokens(chainID int64) []entity.TokenContract
	FindToken(chainID int64, address string) (entity.TokenContract, bool)
	DefaultChain() entity.ChainConfig
}
