package port

import (
	"context"

	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
)

// SwapQuoter produces quotes.
type SwapQuoter interface {
	GetSwapQuote(ctx context.Context, params entity.SwapParams) (*entity.SwapQuote, error)
}

// SwapService quotes and executes Uniswap V3 exact-input-single swaps.
type SwapService interface {
	SwapQuoter

	PrepareApprovalTransaction(token, spender, amount string, decimals int, chainID int64) (entity.TxRequest, error)
	PrepareSwapTransaction(params entity.SwapParams, quote *entity.SwapQuote, chainID int64) (entity.TxRequest, error)

	// ExecuteSwap approves tokenIn when needed, waits for the approval, then swaps.
	// A nil status is replaced by a fresh one.
	ExecuteSwap(
		ctx context.Context,
		wallet domainService.Wallet,
		params entity.SwapParams,
		quote *entity.SwapQuote,
		status *entity.SponsoredTransactionStatus,
	) (*entity.SwapResult, error)
}
