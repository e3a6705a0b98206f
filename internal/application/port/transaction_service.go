package port

import (
	"context"
	"math/big"

	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
)

// TransactionService decides sponsorship and submits transactions through a wallet.
type TransactionService interface {
	// IsGasSponsorshipAvailable fails closed: any policy error yields false.
	IsGasSponsorshipAvailable(ctx context.Context, candidate entity.SponsorshipCandidate, wallet domainService.Wallet) bool

	// SendSponsoredTransaction validates, builds and submits a native or ERC-20 transfer.
	SendSponsoredTransaction(
		ctx context.Context,
		wallet domainService.Wallet,
		params entity.TransferParams,
		status *entity.SponsoredTransactionStatus,
	) (*entity.TxResult, error)

	// SendTransaction submits a prepared request, sponsored when the policy allows.
	SendTransaction(
		ctx context.Context,
		wallet domainService.Wallet,
		stage entity.Stage,
		req entity.TxRequest,
		status *entity.SponsoredTransactionStatus,
	) (*entity.TxResult, error)

	// CheckTokenApproval reports whether owner's allowance for spender covers amount base units.
	CheckTokenApproval(ctx context.Context, token, owner, spender string, amount *big.Int, chainID int64) (bool, error)

	// RecentActivity lists recorded submissions, newest first.
	RecentActivity(ctx context.Context, limit int) ([]entity.ActivityRecord, error)
}
