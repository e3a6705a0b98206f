package pricing

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain/entity"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/pkg/apperrors"
	"wallet-orchestrator/internal/pkg/calldata"
)

// Compile-time check
var (
	_ domainService.PriceSource = (*PoolPrice)(nil)
	_ domainService.PoolLocator = (*PoolPrice)(nil)
)

const poolPriceKeyPrefix = "pool:"

// PoolPrice values tokens at the mid price of their Uniswap V3 pool against
// a dollar stablecoin. Symbols it does not price, and any pool read failure,
// go to the fallback source.
type PoolPrice struct {
	cfg      config.PoolPricingConfig
	feeTier  uint32
	timeout  time.Duration
	ttl      time.Duration
	chains   domainRepo.ChainRepository
	readers  domainService.ChainReaderProvider
	cache    domainRepo.CacheRepository
	fallback domainService.PriceSource
	logger   *zap.Logger
}

// NewPoolPrice creates a pool-backed price source. fallback may be nil.
func NewPoolPrice(
	cfg config.Config,
	chains domainRepo.ChainRepository,
	readers domainService.ChainReaderProvider,
	cacheRepo domainRepo.CacheRepository,
	fallback domainService.PriceSource,
	logger *zap.Logger,
) *PoolPrice {
	return &PoolPrice{
		cfg:      cfg.Pricing.Pool,
		feeTier:  cfg.Swap.FeeTier,
		timeout:  cfg.RPC.GetReadTimeout(),
		ttl:      cfg.Cache.PriceTTL,
		chains:   chains,
		readers:  readers,
		cache:    cacheRepo,
		fallback: fallback,
		logger:   logger.Named("PoolPrice"),
	}
}

// USDPrice returns the pool price of symbol in the quote stablecoin.
func (p *PoolPrice) USDPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	if !p.prices(symbol) {
		return p.fallbackPrice(ctx, symbol, nil)
	}

	key := poolPriceKeyPrefix + symbol
	if p.cache != nil {
		if price, found, err := p.cache.GetPrice(ctx, key); err != nil {
			p.logger.Warn("Cache error when getting pool price", zap.String("symbol", symbol), zap.Error(err))
		} else if found {
			return price, nil
		}
	}

	price, err := p.fromPool(ctx, symbol)
	if err != nil {
		p.logger.Warn("Pool price unavailable, falling back", zap.String("symbol", symbol), zap.Error(err))
		return p.fallbackPrice(ctx, symbol, err)
	}

	if p.cache != nil {
		if err := p.cache.SetPrice(ctx, key, price, p.ttl); err != nil {
			p.logger.Warn("Failed to cache pool price", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return price, nil
}

func (p *PoolPrice) prices(symbol string) bool {
	if !p.cfg.Enabled {
		return false
	}
	for _, s := range p.cfg.Symbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

func (p *PoolPrice) fallbackPrice(ctx context.Context, symbol string, poolErr error) (float64, error) {
	if p.fallback != nil {
		return p.fallback.USDPrice(ctx, symbol)
	}
	if poolErr != nil {
		return 0, poolErr
	}
	return 0, fmt.Errorf("%w: no price source for %s", apperrors.ErrNotFound, symbol)
}

// poolLocation is a resolved token/quote pool and the reader for its chain.
type poolLocation struct {
	token  entity.TokenContract
	quote  entity.TokenContract
	reader domainService.ChainReader
	pool   common.Address
}

// PoolFor returns the pool pairing symbol with the quote stablecoin. An empty
// symbol selects the first configured pool symbol.
func (p *PoolPrice) PoolFor(ctx context.Context, symbol string) (common.Address, error) {
	if symbol == "" {
		if len(p.cfg.Symbols) == 0 {
			return common.Address{}, fmt.Errorf("%w: no pool symbols configured", apperrors.ErrConfiguration)
		}
		symbol = p.cfg.Symbols[0]
	}
	readCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	loc, err := p.locate(readCtx, strings.ToUpper(symbol))
	if err != nil {
		return common.Address{}, err
	}
	return loc.pool, nil
}

func (p *PoolPrice) locate(ctx context.Context, symbol string) (poolLocation, error) {
	chain, err := p.chain()
	if err != nil {
		return poolLocation{}, err
	}
	if chain.DEX == nil || chain.DEX.Factory == "" {
		return poolLocation{}, fmt.Errorf("%w: chain %d has no DEX factory", apperrors.ErrNotFound, chain.ChainID)
	}
	token, ok := tokenBySymbol(chain, symbol)
	if !ok {
		return poolLocation{}, fmt.Errorf("%w: %s is not listed on chain %d", apperrors.ErrNotFound, symbol, chain.ChainID)
	}
	quote, ok := tokenBySymbol(chain, p.cfg.Quote)
	if !ok {
		return poolLocation{}, fmt.Errorf("%w: quote %s is not listed on chain %d", apperrors.ErrNotFound, p.cfg.Quote, chain.ChainID)
	}
	reader, err := p.readers.ReaderFor(chain.ChainID)
	if err != nil {
		return poolLocation{}, err
	}

	fee := chain.DEX.FeeTier
	if fee == 0 {
		fee = p.feeTier
	}
	data, err := calldata.EncodeGetPool(common.HexToAddress(token.Address), common.HexToAddress(quote.Address), fee)
	if err != nil {
		return poolLocation{}, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}
	ret, err := reader.Call(ctx, common.HexToAddress(chain.DEX.Factory), data)
	if err != nil {
		return poolLocation{}, fmt.Errorf("factory getPool: %w", err)
	}
	pool, err := calldata.DecodeGetPool(ret)
	if err != nil {
		return poolLocation{}, fmt.Errorf("%w: %v", apperrors.ErrExternalServiceFailure, err)
	}
	if pool == (common.Address{}) {
		return poolLocation{}, fmt.Errorf("%w: no %s/%s pool at fee %d", apperrors.ErrNotFound, symbol, quote.Symbol, fee)
	}
	return poolLocation{token: token, quote: quote, reader: reader, pool: pool}, nil
}

// fromPool converts the pool sqrt price into quote units per whole token.
func (p *PoolPrice) fromPool(ctx context.Context, symbol string) (float64, error) {
	readCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	loc, err := p.locate(readCtx, symbol)
	if err != nil {
		return 0, err
	}

	slot0, err := calldata.EncodeSlot0()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}
	ret, err := loc.reader.Call(readCtx, loc.pool, slot0)
	if err != nil {
		return 0, fmt.Errorf("pool slot0: %w", err)
	}
	sqrtPrice, err := calldata.DecodeSlot0(ret)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrExternalServiceFailure, err)
	}

	price := calldata.MidPrice(sqrtPrice, common.HexToAddress(loc.token.Address), common.HexToAddress(loc.quote.Address))
	price.Mul(price, pow10(loc.token.Decimals-loc.quote.Decimals))
	out, _ := price.Float64()
	if out <= 0 {
		return 0, fmt.Errorf("%w: pool %s has no price", apperrors.ErrNotFound, loc.pool.Hex())
	}

	p.logger.Debug("Priced from pool",
		zap.String("symbol", symbol), zap.String("pool", loc.pool.Hex()), zap.Float64("usd", out),
	)
	return out, nil
}

func (p *PoolPrice) chain() (entity.ChainConfig, error) {
	if p.cfg.ChainID == 0 {
		return p.chains.DefaultChain(), nil
	}
	chain, ok := p.chains.GetChainByID(p.cfg.ChainID)
	if !ok {
		return entity.ChainConfig{}, fmt.Errorf("%w: pricing chain %d", apperrors.ErrConfiguration, p.cfg.ChainID)
	}
	return chain, nil
}

func tokenBySymbol(chain entity.ChainConfig, symbol string) (entity.TokenContract, bool) {
	for _, t := range chain.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return entity.TokenContract{}, false
}

// pow10 returns 10^exp, exp may be negative.
func pow10(exp int) *big.Float {
	if exp >= 0 {
		return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	}
	return new(big.Float).Quo(big.NewFloat(1), pow10(-exp))
}
