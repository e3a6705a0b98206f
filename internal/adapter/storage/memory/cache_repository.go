package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain/entity"
	domainRepo "wallet-orchestrator/internal/domain/repository"
)

// Compile-time check
var _ domainRepo.CacheRepository = (*CacheRepository)(nil)

// Cache keys
const (
	balancesKeyPrefix = "balances_v1_"
	priceKeyPrefix    = "usd_price_v1_"
	poolKeyPrefix     = "pool_analytics_v1_"
)

// CacheRepository implements domainRepo.CacheRepository using the go-cache in-memory library.
type CacheRepository struct {
	cache   *cache.Cache
	logger  *zap.Logger
	fullCfg config.Config
}

// NewCacheRepository creates a new in-memory cache repository instance.
func NewCacheRepository(cfg config.Config, logger *zap.Logger) domainRepo.CacheRepository {
	defaultExpiration := cfg.Cache.GetDefaultExpiration()
	cleanupInterval := cfg.Cache.GetCleanupInterval()

	c := cache.New(defaultExpiration, cleanupInterval)
	logger.Info(
		"Initialized go-cache for memory storage",
		zap.Duration("defaultExpiration", defaultExpiration),
		zap.Duration("cleanupInterval", cleanupInterval),
	)

	return &CacheRepository{
		cache:   c,
		logger:  logger.Named("MemoryCacheStorage"),
		fullCfg: cfg,
	}
}

// GetBalances retrieves cached balances of an address on a chain, returning found status.
func (r *CacheRepository) GetBalances(
	_ context.Context,
	address string,
	chainID int64,
) ([]entity.TokenBalance, bool, error) {
	key := balancesKey(address, chainID)
	if x, found := r.cache.Get(key); found {
		if balances, ok := x.([]entity.TokenBalance); ok {
			r.logger.Debug("Memory cache hit", zap.String("key", key))
			out := make([]entity.TokenBalance, len(balances))
			copy(out, balances)
			return out, true, nil
		}
		r.logger.Warn(
			"Memory cache data type mismatch for key",
			zap.String("key", key), zap.Any("type", fmt.Sprintf("%T", x)),
		)
	}
	r.logger.Debug("Memory cache miss", zap.String("key", key))
	return nil, false, nil
}

// SetBalances caches balances of an address on a chain with a given TTL.
func (r *CacheRepository) SetBalances(
	_ context.Context,
	address string,
	chainID int64,
	balances []entity.TokenBalance,
	ttl time.Duration,
) error {
	key := balancesKey(address, chainID)
	if ttl <= 0 {
		ttl = r.fullCfg.Cache.BalanceTTL
		if ttl <= 0 {
			ttl = r.fullCfg.Cache.GetDefaultExpiration()
		}
	}
	stored := make([]entity.TokenBalance, len(balances))
	copy(stored, balances)
	r.cache.Set(key, stored, ttl)
	r.logger.Debug("Memory cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// GetPrice retrieves a cached USD price for a symbol, returning found status.
func (r *CacheRepository) GetPrice(_ context.Context, symbol string) (float64, bool, error) {
	key := priceKey(symbol)
	if x, found := r.cache.Get(key); found {
		if price, ok := x.(float64); ok {
			r.logger.Debug("Memory cache hit", zap.String("key", key))
			return price, true, nil
		}
		r.logger.Warn(
			"Memory cache data type mismatch for key",
			zap.String("key", key), zap.Any("type", fmt.Sprintf("%T", x)),
		)
	}
	r.logger.Debug("Memory cache miss", zap.String("key", key))
	return 0, false, nil
}

// SetPrice caches a USD price for a symbol with a given TTL.
func (r *CacheRepository) SetPrice(_ context.Context, symbol string, price float64, ttl time.Duration) error {
	key := priceKey(symbol)
	if ttl <= 0 {
		ttl = r.fullCfg.Cache.PriceTTL
		if ttl <= 0 {
			ttl = r.fullCfg.Cache.GetDefaultExpiration()
		}
	}
	r.cache.Set(key, price, ttl)
	r.logger.Debug("Memory cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// GetPoolAnalytics retrieves cached analytics for a pool, returning found status.
func (r *CacheRepository) GetPoolAnalytics(_ context.Context, poolID string) (*entity.PoolAnalytics, bool, error) {
	key := poolKeyPrefix + strings.ToLower(poolID)
	if x, found := r.cache.Get(key); found {
		if analytics, ok := x.(entity.PoolAnalytics); ok {
			r.logger.Debug("Memory cache hit", zap.String("key", key))
			return &analytics, true, nil
		}
		r.logger.Warn(
			"Memory cache data type mismatch for key",
			zap.String("key", key), zap.Any("type", fmt.Sprintf("%T", x)),
		)
	}
	r.logger.Debug("Memory cache miss", zap.String("key", key))
	return nil, false, nil
}

// SetPoolAnalytics caches a copy of analytics for a pool with a given TTL.
func (r *CacheRepository) SetPoolAnalytics(
	_ context.Context,
	poolID string,
	analytics *entity.PoolAnalytics,
	ttl time.Duration,
) error {
	if analytics == nil {
		return nil
	}
	key := poolKeyPrefix + strings.ToLower(poolID)
	if ttl <= 0 {
		ttl = r.fullCfg.Cache.GetDefaultExpiration()
	}
	stored := *analytics
	stored.History = append([]entity.PoolDay(nil), analytics.History...)
	r.cache.Set(key, stored, ttl)
	r.logger.Debug("Memory cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func balancesKey(address string, chainID int64) string {
	return balancesKeyPrefix + strings.ToLower(address) + "_" + strconv.FormatInt(chainID, 10)
}

func priceKey(symbol string) string {
	return priceKeyPrefix + strings.ToUpper(symbol)
}
