package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/config"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/pkg/apperrors"
)

// Compile-time check
var _ domainService.PriceSource = (*CoinGecko)(nil)

// stablecoins are valued at exactly one dollar.
var stablecoins = map[string]struct{}{
	"USDC": {},
}

// CoinGecko resolves USD prices from the CoinGecko simple price endpoint and
// caches them in the cache repository.
type CoinGecko struct {
	client *fasthttp.Client
	cfg    config.PricingConfig
	ttl    time.Duration
	cache  domainRepo.CacheRepository
	logger *zap.Logger
}

// NewCoinGecko creates a price source.
func NewCoinGecko(
	cfg config.PricingConfig,
	ttl time.Duration,
	cacheRepo domainRepo.CacheRepository,
	logger *zap.Logger,
) *CoinGecko {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cfg.Timeout = timeout
	return &CoinGecko{
		client: &fasthttp.Client{ReadTimeout: timeout},
		cfg:    cfg,
		ttl:    ttl,
		cache:  cacheRepo,
		logger: logger.Named("PriceSource"),
	}
}

// USDPrice returns the USD price of one unit of symbol.
func (p *CoinGecko) USDPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	if _, ok := stablecoins[symbol]; ok {
		return 1, nil
	}
	if !p.cfg.Enabled {
		return 0, fmt.Errorf("%w: price source disabled", apperrors.ErrNotFound)
	}

	if price, found, err := p.cache.GetPrice(ctx, symbol); err != nil {
		p.logger.Warn("Cache error when getting price", zap.String("symbol", symbol), zap.Error(err))
	} else if found {
		return price, nil
	}

	id, ok := p.coinID(symbol)
	if !ok {
		return 0, fmt.Errorf("%w: no price id for %s", apperrors.ErrNotFound, symbol)
	}

	price, err := p.fetch(ctx, id)
	if err != nil {
		return 0, err
	}

	if err := p.cache.SetPrice(ctx, symbol, price, p.ttl); err != nil {
		p.logger.Warn("Failed to cache price", zap.String("symbol", symbol), zap.Error(err))
	}
	return price, nil
}

// coinID looks the symbol up case-insensitively; viper lowercases map keys.
func (p *CoinGecko) coinID(symbol string) (string, bool) {
	for k, v := range p.cfg.IDs {
		if strings.EqualFold(k, symbol) && v != "" {
			return v, true
		}
	}
	return "", false
}

func (p *CoinGecko) fetch(ctx context.Context, id string) (float64, error) {
	timeout := p.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("%w: price request deadline passed", apperrors.ErrTimeout)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	query := url.Values{}
	query.Set("ids", id)
	query.Set("vs_currencies", "usd")
	req.SetRequestURI(p.cfg.URL + "?" + query.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := p.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return 0, fmt.Errorf("%w: price request for %s: %v", apperrors.ErrTimeout, id, err)
		}
		return 0, fmt.Errorf("%w: price request for %s: %v", apperrors.ErrExternalServiceFailure, id, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("%w: price source returned status %d",
			apperrors.ErrExternalServiceFailure, resp.StatusCode(),
		)
	}

	var body map[string]map[string]float64
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, fmt.Errorf("%w: decode price response: %v", apperrors.ErrExternalServiceFailure, err)
	}
	price, ok := body[id]["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: no usd price for %s", apperrors.ErrNotFound, id)
	}

	p.logger.Debug("Fetched price", zap.String("id", id), zap.Float64("usd", price))
	return price, nil
}
