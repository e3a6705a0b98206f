package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"wallet-orchestrator/internal/domain/entity"
)

// ChainReader performs read-only calls against one chain.
type ChainReader interface {
	// GetBalance returns the native balance of address in base units.
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)

	// Call executes a read-only contract call and returns the raw return data.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// GetTransactionReceipt returns the receipt, or nil without error while the transaction is pending.
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*entity.Receipt, error)
}

// ChainReaderProvider resolves the reader for a chain id.
type ChainReaderProvider interface {
	ReaderFor(chainID int64) (ChainReader, error)
}

// Wallet is the connected signer capability injected into every action.
type Wallet interface {
	Address() common.Address
	SendTransaction(ctx context.Context, req entity.TxRequest) (common.Hash, error)
}

// SponsorshipPolicy asks the gas sponsorship backend whether a call would be covered.
type SponsorshipPolicy interface {
	IsEligible(ctx context.Context, candidate entity.SponsorshipCandidate, wallet common.Address) (bool, error)
}

// PriceSource returns a USD price for a token symbol.
type PriceSource interface {
	USDPrice(ctx context.Context, symbol string) (float64, error)
}

// PoolAnalyticsSource reads pool analytics by pool id (the lowercase pool address).
type PoolAnalyticsSource interface {
	PoolAnalytics(ctx context.Context, poolID string, days int) (*entity.PoolAnalytics, error)
}

// PoolLocator resolves the pool a token is priced from.
type PoolLocator interface {
	PoolFor(ctx context.Context, symbol string) (common.Address, error)
}
