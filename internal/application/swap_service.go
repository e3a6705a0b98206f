package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
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
var _ port.SwapService = (*swapService)(nil)

const (
	defaultFeeTier  uint32 = 3000
	defaultDeadline        = 20 * time.Minute
)


// swapService implements port.SwapService on Uniswap V3.
type swapService struct {
	chains  domainRepo.ChainRepository
	readers domainService.ChainReaderProvider
	txs     port.TransactionService
	waiter  *receiptWaiter
	logger  *zap.Logger
	cfg     config.Config
	now     func() time.Time
}

// NewSwapService creates the swap orchestrator.
func NewSwapService(
	chains domainRepo.ChainRepository,
	readers domainService.ChainReaderProvider,
	txs port.TransactionService,
	logger *zap.Logger,
	cfg config.Config,
) port.SwapService {
	named := logger.Named("SwapService")
	return &swapService{
		chains:  chains,
		readers: readers,
		txs:     txs,
		waiter: newReceiptWaiter(readers,
			cfg.Swap.ConfirmationPoll, cfg.Swap.ConfirmationTimeout, cfg.RPC.GetReadTimeout(), named),
		logger: named,
		cfg:    cfg,
		now:    time.Now,
	}
}

// resolvedToken is one side of a trade as seen by the router.
type resolvedToken struct {
	address  common.Address
	symbol   string
	decimals int
	native   bool
}

// trade is a validated SwapParams bound to its chain's DEX.
type trade struct {
	chain    entity.ChainConfig
	dex      entity.DEXConfig
	fee      uint32
	in       resolvedToken
	out      resolvedToken
	amountIn *big.Int
}

// GetSwapQuote asks the quoter for the output of params at the configured fee tier.
func (s *swapService) GetSwapQuote(ctx context.Context, params entity.SwapParams) (*entity.SwapQuote, error) {
	t, err := s.resolveTrade(params)
	if err != nil {
		return nil, err
	}

	reader, err := s.readers.ReaderFor(params.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
	}

	readCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetReadTimeout())
	defer cancel()

	data, err := calldata.EncodeQuoteExactInputSingle(t.in.address, t.out.address, t.fee, t.amountIn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
	}
	ret, err := reader.Call(readCtx, common.HexToAddress(t.dex.Quoter), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
	}
	amountOut, err := calldata.DecodeQuoteExactInputSingle(ret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
	}
	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: no output for %s -> %s", domain.ErrQuoteUnavailable, t.in.symbol, t.out.symbol)
	}

	quote := &entity.SwapQuote{
		AmountIn:           t.amountIn,
		AmountOut:          amountOut,
		AmountOutFormatted: calldata.FormatUnits(amountOut, t.out.decimals),
		PriceImpact:        s.priceImpact(readCtx, reader, t, amountOut),
		MinimumAmountOut:   calldata.MinimumAmountOut(amountOut, params.SlippagePercent),
		Route:              fmt.Sprintf("%s -> %s", t.in.symbol, t.out.symbol),
		FeeTier:            t.fee,
		QuotedAt:           s.now(),
		Params:             params,
	}

	s.logger.Debug("Quote ready",
		zap.Int64("chainId", params.ChainID),
		zap.String("route", quote.Route),
		zap.String("amountIn", t.amountIn.String()),
		zap.String("amountOut", amountOut.String()),
		zap.Float64("priceImpact", quote.PriceImpact),
	)
	return quote, nil
}

// PrepareApprovalTransaction builds approve(spender, amount) on token.
func (s *swapService) PrepareApprovalTransaction(
	token, spender, amount string,
	decimals int,
	chainID int64,
) (entity.TxRequest, error) {
	tokenAddr, err := calldata.ParseAddress(token)
	if err != nil {
		return entity.TxRequest{}, err
	}
	data, err := calldata.BuildApprovalCallData(spender, amount, decimals)
	if err != nil {
		return entity.TxRequest{}, err
	}
	return entity.TxRequest{ChainID: chainID, To: tokenAddr, Data: data}, nil
}

// PrepareSwapTransaction builds the router exactInputSingle call for quote.
func (s *swapService) PrepareSwapTransaction(
	params entity.SwapParams,
	quote *entity.SwapQuote,
	chainID int64,
) (entity.TxRequest, error) {
	if quote == nil || quote.MinimumAmountOut == nil {
		return entity.TxRequest{}, domain.ErrQuoteUnavailable
	}
	params.ChainID = chainID
	t, err := s.resolveTrade(params)
	if err != nil {
		return entity.TxRequest{}, err
	}
	recipient, err := calldata.ParseAddress(params.Recipient)
	if err != nil {
		return entity.TxRequest{}, err
	}

	deadline := s.cfg.Swap.Deadline
	if deadline <= 0 {
		deadline = defaultDeadline
	}

	data, err := calldata.EncodeExactInputSingle(calldata.ExactInputSingleParams{
		TokenIn:          t.in.address,
		TokenOut:         t.out.address,
		Fee:              t.fee,
		Recipient:        recipient,
		Deadline:         big.NewInt(s.now().Add(deadline).Unix()),
		AmountIn:         t.amountIn,
		AmountOutMinimum: quote.MinimumAmountOut,
	})
	if err != nil {
		return entity.TxRequest{}, err
	}

	req := entity.TxRequest{
		ChainID: chainID,
		To:      common.HexToAddress(t.dex.Router),
		Data:    data,
	}
	if t.in.native {
		req.Value = new(big.Int).Set(t.amountIn)
	}
	return req, nil
}

// ExecuteSwap runs the approval stage when the router allowance is short and then the swap stage.
func (s *swapService) ExecuteSwap(
	ctx context.Context,
	wallet domainService.Wallet,
	params entity.SwapParams,
	quote *entity.SwapQuote,
	status *entity.SponsoredTransactionStatus,
) (*entity.SwapResult, error) {
	if status == nil {
		status = entity.NewSponsoredTransactionStatus()
	}
	if wallet == nil {
		return nil, s.fail(status, entity.StageSwap, domain.ErrNoWallet)
	}
	if err := s.checkQuote(params, quote); err != nil {
		return nil, s.fail(status, entity.StageSwap, err)
	}
	if params.Recipient == "" {
		params.Recipient = wallet.Address().Hex()
	}
	t, err := s.resolveTrade(params)
	if err != nil {
		return nil, s.fail(status, entity.StageSwap, err)
	}

	result := &entity.SwapResult{}

	if !t.in.native {
		approved, err := s.txs.CheckTokenApproval(ctx,
			t.in.address.Hex(), wallet.Address().Hex(), t.dex.Router, t.amountIn, params.ChainID)
		if err != nil {
			return nil, s.fail(status, entity.StageApproval, err)
		}

		if !approved {
			s.logger.Info("Allowance insufficient, approving router",
				zap.String("token", t.in.symbol), zap.String("amount", t.amountIn.String()),
			)
			data, err := calldata.EncodeApprove(common.HexToAddress(t.dex.Router), t.amountIn)
			if err != nil {
				return nil, s.fail(status, entity.StageApproval, err)
			}
			approveReq := entity.TxRequest{ChainID: params.ChainID, To: t.in.address, Data: data}

			// The action stays loading until the swap resolves; the approval
			// stage walks its own status to a terminal state.
			status.BeginEligibilityCheck()
			res, err := s.txs.SendTransaction(ctx, wallet, entity.StageApproval, approveReq,
				entity.NewSponsoredTransactionStatus())
			if err != nil {
				status.Fail(entity.StageApproval, stageCause(err))
				return nil, err
			}
			result.Approval = res

			if _, err := s.waiter.WaitMined(ctx, params.ChainID, common.HexToHash(res.Hash)); err != nil {
				return result, s.fail(status, entity.StageApproval, err)
			}
		}
	}

	swapReq, err := s.PrepareSwapTransaction(params, quote, params.ChainID)
	if err != nil {
		return result, s.fail(status, entity.StageSwap, err)
	}
	res, err := s.txs.SendTransaction(ctx, wallet, entity.StageSwap, swapReq, status)
	if err != nil {
		return result, err
	}
	result.Swap = res
	return result, nil
}

// checkQuote rejects missing quotes and quotes that no longer answer params.
func (s *swapService) checkQuote(params entity.SwapParams, quote *entity.SwapQuote) error {
	if quote == nil || quote.AmountOut == nil || quote.MinimumAmountOut == nil {
		return domain.ErrQuoteUnavailable
	}
	if !quote.Params.SameTrade(params) {
		return fmt.Errorf("%w: quote was made for different swap parameters", domain.ErrStaleQuote)
	}
	if maxAge := s.cfg.Swap.QuoteMaxAge; maxAge > 0 {
		if age := s.now().Sub(quote.QuotedAt); age > maxAge {
			return fmt.Errorf("%w: quote is %v old", domain.ErrStaleQuote, age.Truncate(time.Millisecond))
		}
	}
	return nil
}

// stageCause strips the stage attribution so the status error reads like a
// single-stage failure.
func stageCause(err error) error {
	var se *entity.StageError
	if errors.As(err, &se) {
		return se.Err
	}
	return err
}

func (s *swapService) fail(status *entity.SponsoredTransactionStatus, stage entity.Stage, err error) error {
	status.Fail(stage, err)
	s.logger.Warn("Swap stage failed", zap.String("stage", string(stage)), zap.Error(err))
	return &entity.StageError{Stage: stage, Err: err}
}

// resolveTrade validates params against the registry.
func (s *swapService) resolveTrade(params entity.SwapParams) (trade, error) {
	chain, ok := s.chains.GetChainByID(params.ChainID)
	if !ok {
		return trade{}, fmt.Errorf("%w: %d", domain.ErrChainNotFound, params.ChainID)
	}
	if chain.DEX == nil || chain.DEX.Router == "" || chain.DEX.Quoter == "" {
		return trade{}, fmt.Errorf("%w: %d", domain.ErrDEXUnsupported, params.ChainID)
	}
	if math.IsNaN(params.SlippagePercent) || params.SlippagePercent < 0 || params.SlippagePercent >= 100 {
		return trade{}, fmt.Errorf("%w: got %v", domain.ErrInvalidSlippage, params.SlippagePercent)
	}

	in, err := s.resolveToken(chain, params.TokenIn)
	if err != nil {
		return trade{}, err
	}
	out, err := s.resolveToken(chain, params.TokenOut)
	if err != nil {
		return trade{}, err
	}
	if in.address == out.address {
		return trade{}, domain.ErrSameToken
	}

	amountIn, err := calldata.ValidateAmount(params.AmountIn, in.decimals)
	if err != nil {
		return trade{}, err
	}

	fee := chain.DEX.FeeTier
	if fee == 0 {
		fee = s.cfg.Swap.FeeTier
	}
	if fee == 0 {
		fee = defaultFeeTier
	}

	return trade{
		chain:    chain,
		dex:      *chain.DEX,
		fee:      fee,
		in:       in,
		out:      out,
		amountIn: amountIn,
	}, nil
}

// resolveToken maps an address to the token the router trades. The native
// marker resolves to the wrapped native token.
func (s *swapService) resolveToken(chain entity.ChainConfig, address string) (resolvedToken, error) {
	addr, err := calldata.ParseAddress(address)
	if err != nil {
		return resolvedToken{}, err
	}
	if zeroAddress(addr) {
		if chain.DEX.WrappedNative == "" {
			return resolvedToken{}, fmt.Errorf("%w: no wrapped native token on chain %d",
				domain.ErrDEXUnsupported, chain.ChainID)
		}
		return resolvedToken{
			address:  common.HexToAddress(chain.DEX.WrappedNative),
			symbol:   chain.NativeCurrency.Symbol,
			decimals: chain.NativeCurrency.Decimals,
			native:   true,
		}, nil
	}

	if chain.DEX.WrappedNative != "" && addr == common.HexToAddress(chain.DEX.WrappedNative) {
		return resolvedToken{
			address:  addr,
			symbol:   "W" + chain.NativeCurrency.Symbol,
			decimals: chain.NativeCurrency.Decimals,
		}, nil
	}

	token, ok := s.chains.FindToken(chain.ChainID, address)
	if !ok {
		return resolvedToken{}, fmt.Errorf("%w: %s on chain %d", domain.ErrTokenNotFound, address, chain.ChainID)
	}
	return resolvedToken{address: addr, symbol: token.Symbol, decimals: token.Decimals}, nil
}

// priceImpact compares the quoted output with the pool mid price from slot0.
// Any failure to read the pool yields 0.
func (s *swapService) priceImpact(
	ctx context.Context,
	reader domainService.ChainReader,
	t trade,
	amountOut *big.Int,
) float64 {
	if t.dex.Factory == "" {
		return 0
	}

	data, err := calldata.EncodeGetPool(t.in.address, t.out.address, t.fee)
	if err != nil {
		return 0
	}
	ret, err := reader.Call(ctx, common.HexToAddress(t.dex.Factory), data)
	if err != nil {
		s.logger.Warn("Pool lookup failed, price impact unavailable", zap.Error(err))
		return 0
	}
	pool, err := calldata.DecodeGetPool(ret)
	if err != nil || zeroAddress(pool) {
		return 0
	}

	slot0, _ := calldata.EncodeSlot0()
	ret, err = reader.Call(ctx, pool, slot0)
	if err != nil {
		s.logger.Warn("slot0 read failed, price impact unavailable", zap.String("pool", pool.Hex()), zap.Error(err))
		return 0
	}
	sqrtPrice, err := calldata.DecodeSlot0(ret)
	if err != nil || sqrtPrice.Sign() == 0 {
		return 0
	}

	return midPriceImpact(sqrtPrice, t.in.address, t.out.address, t.amountIn, amountOut)
}

// midPriceImpact returns max(0, (expected - actual) / expected * 100) where
// expected is amountIn converted at the pool mid price.
func midPriceImpact(sqrtPriceX96 *big.Int, tokenIn, tokenOut common.Address, amountIn, amountOut *big.Int) float64 {
	expected := new(big.Float).SetInt(amountIn)
	expected.Mul(expected, calldata.MidPrice(sqrtPriceX96, tokenIn, tokenOut))
	if expected.Sign() <= 0 {
		return 0
	}

	shortfall := new(big.Float).Sub(expected, new(big.Float).SetInt(amountOut))
	if shortfall.Sign() <= 0 {
		return 0
	}
	impact, _ := new(big.Float).Quo(new(big.Float).Mul(shortfall, big.NewFloat(100)), expected).Float64()
	return impact
}

func zeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
