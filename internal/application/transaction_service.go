package application

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/pkg/calldata"
)

// Compile-time check
var _ port.TransactionService = (*transactionService)(nil)

// transactionService implements port.TransactionService.
type transactionService struct {
	chains   domainRepo.ChainRepository
	readers  domainService.ChainReaderProvider
	policy   domainService.SponsorshipPolicy
	activity domainRepo.ActivityRepository
	logger   *zap.Logger
	cfg      config.Config
	now      func() time.Time
}

// NewTransactionService creates the transaction service. policy and activity may be nil.
func NewTransactionService(
	chains domainRepo.ChainRepository,
	readers domainService.ChainReaderProvider,
	policy domainService.SponsorshipPolicy,
	activity domainRepo.ActivityRepository,
	logger *zap.Logger,
	cfg config.Config,
) port.TransactionService {
	return &transactionService{
		chains:   chains,
		readers:  readers,
		policy:   policy,
		activity: activity,
		logger:   logger.Named("TransactionService"),
		cfg:      cfg,
		now:      time.Now,
	}
}

// IsGasSponsorshipAvailable asks the policy whether candidate would be sponsored.
func (s *transactionService) IsGasSponsorshipAvailable(
	ctx context.Context,
	candidate entity.SponsorshipCandidate,
	wallet domainService.Wallet,
) bool {
	if wallet == nil || s.policy == nil {
		return false
	}

	eligible, err := s.policy.IsEligible(ctx, candidate, wallet.Address())
	if err != nil {
		s.logger.Warn("Sponsorship check failed, falling back to user-paid gas",
			zap.Int64("chainId", candidate.ChainID),
			zap.String("to", candidate.To.Hex()),
			zap.Error(err),
		)
		return false
	}
	return eligible
}

// SendSponsoredTransaction validates params, builds the transfer and submits it.
func (s *transactionService) SendSponsoredTransaction(
	ctx context.Context,
	wallet domainService.Wallet,
	params entity.TransferParams,
	status *entity.SponsoredTransactionStatus,
) (*entity.TxResult, error) {
	if status == nil {
		status = entity.NewSponsoredTransactionStatus()
	}
	if wallet == nil {
		return nil, s.fail(ctx, status, entity.StageTransfer, params.ChainID, domain.ErrNoWallet)
	}

	req, err := s.buildTransfer(params)
	if err != nil {
		return nil, s.fail(ctx, status, entity.StageTransfer, params.ChainID, err)
	}

	status.BeginEligibilityCheck()
	sponsored := s.IsGasSponsorshipAvailable(ctx, candidateOf(req), wallet)
	return s.submit(ctx, wallet, entity.StageTransfer, req, sponsored, status)
}

// SendTransaction submits a prepared request, sponsored when the policy allows.
func (s *transactionService) SendTransaction(
	ctx context.Context,
	wallet domainService.Wallet,
	stage entity.Stage,
	req entity.TxRequest,
	status *entity.SponsoredTransactionStatus,
) (*entity.TxResult, error) {
	if status == nil {
		status = entity.NewSponsoredTransactionStatus()
	}
	if wallet == nil {
		return nil, s.fail(ctx, status, stage, req.ChainID, domain.ErrNoWallet)
	}
	if _, ok := s.chains.GetChainByID(req.ChainID); !ok {
		return nil, s.fail(ctx, status, stage, req.ChainID, fmt.Errorf("%w: %d", domain.ErrChainNotFound, req.ChainID))
	}

	status.BeginEligibilityCheck()
	sponsored := s.IsGasSponsorshipAvailable(ctx, candidateOf(req), wallet)
	return s.submit(ctx, wallet, stage, req, sponsored, status)
}

// CheckTokenApproval reads allowance(owner, spender) and compares it with amount.
func (s *transactionService) CheckTokenApproval(
	ctx context.Context,
	token, owner, spender string,
	amount *big.Int,
	chainID int64,
) (bool, error) {
	tokenAddr, err := calldata.ParseAddress(token)
	if err != nil {
		return false, err
	}
	ownerAddr, err := calldata.ParseAddress(owner)
	if err != nil {
		return false, err
	}
	spenderAddr, err := calldata.ParseAddress(spender)
	if err != nil {
		return false, err
	}

	reader, err := s.readers.ReaderFor(chainID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrAllowanceCheckFailed, err)
	}
	data, err := calldata.EncodeAllowance(ownerAddr, spenderAddr)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrAllowanceCheckFailed, err)
	}

	readCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetReadTimeout())
	defer cancel()

	ret, err := reader.Call(readCtx, tokenAddr, data)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrAllowanceCheckFailed, err)
	}
	allowance, err := calldata.DecodeAllowance(ret)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrAllowanceCheckFailed, err)
	}

	s.logger.Debug("Allowance read",
		zap.String("token", tokenAddr.Hex()),
		zap.String("spender", spenderAddr.Hex()),
		zap.String("allowance", allowance.String()),
		zap.String("required", amount.String()),
	)
	return allowance.Cmp(amount) >= 0, nil
}

// RecentActivity lists recorded submissions, newest first.
func (s *transactionService) RecentActivity(ctx context.Context, limit int) ([]entity.ActivityRecord, error) {
	if s.activity == nil {
		return []entity.ActivityRecord{}, nil
	}
	return s.activity.List(ctx, limit)
}

// buildTransfer validates params and returns the native or ERC-20 transfer request.
func (s *transactionService) buildTransfer(params entity.TransferParams) (entity.TxRequest, error) {
	chain, ok := s.chains.GetChainByID(params.ChainID)
	if !ok {
		return entity.TxRequest{}, fmt.Errorf("%w: %d", domain.ErrChainNotFound, params.ChainID)
	}
	recipient, err := calldata.ParseAddress(params.Recipient)
	if err != nil {
		return entity.TxRequest{}, err
	}

	if params.IsNative() {
		value, err := calldata.ValidateAmount(params.Amount, chain.NativeCurrency.Decimals)
		if err != nil {
			return entity.TxRequest{}, err
		}
		return entity.TxRequest{ChainID: params.ChainID, To: recipient, Value: value}, nil
	}

	token, err := calldata.ParseAddress(params.TokenAddress)
	if err != nil {
		return entity.TxRequest{}, err
	}
	decimals := params.Decimals
	if known, ok := s.chains.FindToken(params.ChainID, params.TokenAddress); ok && decimals == 0 {
		decimals = known.Decimals
	}
	amount, err := calldata.ValidateAmount(params.Amount, decimals)
	if err != nil {
		return entity.TxRequest{}, err
	}
	data, err := calldata.EncodeTransfer(recipient, amount)
	if err != nil {
		return entity.TxRequest{}, err
	}
	return entity.TxRequest{ChainID: params.ChainID, To: token, Data: data}, nil
}

// submit hands req to the wallet. Submissions are never retried.
func (s *transactionService) submit(
	ctx context.Context,
	wallet domainService.Wallet,
	stage entity.Stage,
	req entity.TxRequest,
	sponsored bool,
	status *entity.SponsoredTransactionStatus,
) (*entity.TxResult, error) {
	req.Sponsored = sponsored
	status.BeginSubmission(sponsored)

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetSubmitTimeout())
	defer cancel()

	hash, err := wallet.SendTransaction(submitCtx, req)
	if err != nil {
		return nil, s.fail(ctx, status, stage, req.ChainID, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err))
	}

	hex := hash.Hex()
	status.Succeed(hex)
	result := &entity.TxResult{Hash: hex, Sponsored: sponsored}
	if chain, ok := s.chains.GetChainByID(req.ChainID); ok {
		result.ExplorerURL = chain.TxURL(hex)
	}

	s.logger.Info("Transaction accepted",
		zap.String("stage", string(stage)),
		zap.Int64("chainId", req.ChainID),
		zap.Bool("sponsored", sponsored),
		zap.String("hash", hex),
	)
	s.record(ctx, entity.ActivityRecord{
		Stage:     stage,
		ChainID:   req.ChainID,
		Sponsored: sponsored,
		TxHash:    hex,
		State:     entity.StateSucceeded,
	})
	return result, nil
}

// fail marks status failed and returns err attributed to stage.
func (s *transactionService) fail(
	ctx context.Context,
	status *entity.SponsoredTransactionStatus,
	stage entity.Stage,
	chainID int64,
	err error,
) error {
	status.Fail(stage, err)
	s.logger.Warn("Transaction stage failed",
		zap.String("stage", string(stage)), zap.Int64("chainId", chainID), zap.Error(err),
	)
	snap := status.Snapshot()
	s.record(ctx, entity.ActivityRecord{
		Stage:     stage,
		ChainID:   chainID,
		Sponsored: snap.IsSponsored,
		State:     entity.StateFailed,
		Error:     err.Error(),
	})
	return &entity.StageError{Stage: stage, Err: err}
}

func (s *transactionService) record(ctx context.Context, rec entity.ActivityRecord) {
	if s.activity == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.Kind = activityKind(rec.Stage)
	rec.CreatedAt = s.now()
	if err := s.activity.Save(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error("Failed to record activity", zap.String("id", rec.ID), zap.Error(err))
	}
}

func activityKind(stage entity.Stage) string {
	if stage == entity.StageTransfer {
		return "transfer"
	}
	return "swap"
}

func candidateOf(req entity.TxRequest) entity.SponsorshipCandidate {
	return entity.SponsorshipCandidate{
		To:      req.To,
		Data:    req.Data,
		Value:   req.Value,
		ChainID: req.ChainID,
	}
}
