package application

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
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
var _ port.BalanceService = (*balanceService)(nil)

// balanceService implements port.BalanceService.
type balanceService struct {
	chains    domainRepo.ChainRepository
	readers   domainService.ChainReaderProvider
	prices    domainService.PriceSource
	cacheRepo domainRepo.CacheRepository
	logger    *zap.Logger
	cfg       config.Config
}

// NewBalanceService creates the balance reader. prices and cacheRepo may be nil.
func NewBalanceService(
	chains domainRepo.ChainRepository,
	readers domainService.ChainReaderProvider,
	prices domainService.PriceSource,
	cacheRepo domainRepo.CacheRepository,
	logger *zap.Logger,
	cfg config.Config,
) port.BalanceService {
	return &balanceService{
		chains:    chains,
		readers:   readers,
		prices:    prices,
		cacheRepo: cacheRepo,
		logger:    logger.Named("BalanceService"),
		cfg:       cfg,
	}
}

// FetchNativeBalance reads the native balance of address on chainID.
func (s *balanceService) FetchNativeBalance(ctx context.Context, address string, chainID int64) entity.TokenBalance {
	chain, ok := s.chains.GetChainByID(chainID)
	if !ok {
		return failedBalance(entity.TokenBalance{}, 18, fmt.Errorf("%w: %d", domain.ErrChainNotFound, chainID))
	}
	native := chain.NativeCurrency
	result := entity.TokenBalance{Symbol: native.Symbol, Name: native.Name}

	owner, err := calldata.ParseAddress(address)
	if err != nil {
		return failedBalance(result, native.Decimals, err)
	}
	reader, err := s.readers.ReaderFor(chainID)
	if err != nil {
		return failedBalance(result, native.Decimals, err)
	}

	readCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetReadTimeout())
	defer cancel()

	raw, err := reader.GetBalance(readCtx, owner)
	if err != nil {
		s.logger.Warn("Native balance read failed",
			zap.Int64("chainId", chainID), zap.String("address", address), zap.Error(err),
		)
		return failedBalance(result, native.Decimals, err)
	}
	return s.populate(ctx, result, raw, native.Decimals)
}

// FetchTokenBalance reads the ERC-20 balance of address for token on chainID.
func (s *balanceService) FetchTokenBalance(
	ctx context.Context,
	address string,
	token entity.TokenContract,
	chainID int64,
) entity.TokenBalance {
	result := entity.TokenBalance{Symbol: token.Symbol, Name: token.Name, Contract: token.Address}

	owner, err := calldata.ParseAddress(address)
	if err != nil {
		return failedBalance(result, token.Decimals, err)
	}
	tokenAddr, err := calldata.ParseAddress(token.Address)
	if err != nil {
		return failedBalance(result, token.Decimals, err)
	}
	reader, err := s.readers.ReaderFor(chainID)
	if err != nil {
		return failedBalance(result, token.Decimals, err)
	}
	data, err := calldata.EncodeBalanceOf(owner)
	if err != nil {
		return failedBalance(result, token.Decimals, err)
	}

	readCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetReadTimeout())
	defer cancel()

	ret, err := reader.Call(readCtx, tokenAddr, data)
	if err != nil {
		s.logger.Warn("Token balance read failed",
			zap.Int64("chainId", chainID), zap.String("token", token.Symbol), zap.Error(err),
		)
		return failedBalance(result, token.Decimals, err)
	}
	raw, err := calldata.DecodeBalanceOf(ret)
	if err != nil {
		return failedBalance(result, token.Decimals, err)
	}
	return s.populate(ctx, result, raw, token.Decimals)
}

// FetchAllBalances reads the native balance and every registry token concurrently.
// Individual failures are marked on their entry; the result always has one
// entry per asset, native first.
func (s *balanceService) FetchAllBalances(ctx context.Context, address string, chainID int64) []entity.TokenBalance {
	if _, ok := s.chains.GetChainByID(chainID); !ok {
		return []entity.TokenBalance{}
	}
	tokens := s.chains.GetChainTokens(chainID)

	results := make([]entity.TokenBalance, len(tokens)+1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = s.FetchNativeBalance(ctx, address, chainID)
	}()

	for i, token := range tokens {
		wg.Add(1)
		go func(index int, token entity.TokenContract) {
			defer wg.Done()
			results[index] = s.FetchTokenBalance(ctx, address, token, chainID)
		}(i+1, token)
	}

	wg.Wait()
	return results
}

// FetchAllChainsBalances reads every chain in parallel. A chain whose read
// panics contributes an empty list.
func (s *balanceService) FetchAllChainsBalances(ctx context.Context, address string) map[int64][]entity.TokenBalance {
	chains := s.chains.GetAllChains()
	out := make(map[int64][]entity.TokenBalance, len(chains))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, chain := range chains {
		wg.Add(1)
		go func(chainID int64) {
			defer wg.Done()
			balances := []entity.TokenBalance{}
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Chain balance read panicked",
						zap.Int64("chainId", chainID), zap.Any("panic", r),
					)
					balances = []entity.TokenBalance{}
				}
				mu.Lock()
				out[chainID] = balances
				mu.Unlock()
			}()
			balances = s.FetchAllBalances(ctx, address, chainID)
		}(chain.ChainID)
	}

	wg.Wait()
	return out
}

// CachedAllBalances serves FetchAllBalances from the cache while it is fresh.
// Results containing a failed read are not cached.
func (s *balanceService) CachedAllBalances(ctx context.Context, address string, chainID int64) []entity.TokenBalance {
	if s.cacheRepo == nil {
		return s.FetchAllBalances(ctx, address, chainID)
	}

	cached, found, err := s.cacheRepo.GetBalances(ctx, address, chainID)
	if err != nil {
		s.logger.Warn("Cache error when getting balances", zap.Int64("chainId", chainID), zap.Error(err))
	}
	if found {
		return cached
	}

	balances := s.FetchAllBalances(ctx, address, chainID)
	for _, b := range balances {
		if b.Failed() {
			return balances
		}
	}
	if err := s.cacheRepo.SetBalances(ctx, address, chainID, balances, s.cfg.Cache.BalanceTTL); err != nil {
		s.logger.Warn("Failed to cache balances", zap.Int64("chainId", chainID), zap.Error(err))
	}
	return balances
}

// populate fills the display fields and USD value of a successful read.
func (s *balanceService) populate(
	ctx context.Context,
	b entity.TokenBalance,
	raw *big.Int,
	decimals int,
) entity.TokenBalance {
	b.Balance = calldata.FormatUnits(raw, decimals)
	b.FormattedBalance = calldata.FormatDisplay(raw, decimals)

	if s.prices == nil {
		return b
	}
	price, err := s.prices.USDPrice(ctx, b.Symbol)
	if err != nil {
		s.logger.Debug("No USD price", zap.String("symbol", b.Symbol), zap.Error(err))
		return b
	}
	b.USDValue = decimal.NewFromBigInt(raw, -int32(decimals)).
		Mul(decimal.NewFromFloat(price)).
		StringFixed(2)
	return b
}

func failedBalance(b entity.TokenBalance, decimals int, err error) entity.TokenBalance {
	zero := new(big.Int)
	b.Balance = calldata.FormatUnits(zero, decimals)
	b.FormattedBalance = calldata.FormatDisplay(zero, decimals)
	b.Error = err.Error()
	return b
}
