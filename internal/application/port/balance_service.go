package port

import (
	"context"

	"wallet-orchestrator/internal/domain/entity"
)

// BalanceService reads native and token balances. Its methods never fail;
// read errors are reported on the affected TokenBalance.
type BalanceService interface {
	FetchNativeBalance(ctx context.Context, address string, chainID int64) entity.TokenBalance
	FetchTokenBalance(ctx context.Context, address string, token entity.TokenContract, chainID int64) entity.TokenBalance

	// FetchAllBalances returns the native balance followed by every registry token of the chain.
	FetchAllBalances(ctx context.Context, address string, chainID int64) []entity.TokenBalance

	// FetchAllChainsBalances runs FetchAllBalances for every chain in parallel.
	FetchAllChainsBalances(ctx context.Context, address string) map[int64][]entity.TokenBalance

	// CachedAllBalances is FetchAllBalances behind the balance cache.
	CachedAllBalances(ctx context.Context, address string, chainID int64) []entity.TokenBalance
}
