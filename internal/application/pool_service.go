package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/pkg/apperrors"
)

// Compile-time check
var _ port.PoolService = (*poolService)(nil)

const poolHistoryDays = 7

type poolService struct {
	source  domainService.PoolAnalyticsSource
	locator domainService.PoolLocator
	cache   domainRepo.CacheRepository
	logger  *zap.Logger
	cfg     config.AnalyticsConfig
}

// NewPoolService creates the pool analytics service. source nil disables
// analytics; locator nil disables resolving the priced pool.
func NewPoolService(
	source domainService.PoolAnalyticsSource,
	locator domainService.PoolLocator,
	cacheRepo domainRepo.CacheRepository,
	logger *zap.Logger,
	cfg config.Config,
) port.PoolService {
	return &poolService{
		source:  source,
		locator: locator,
		cache:   cacheRepo,
		logger:  logger.Named("PoolService"),
		cfg:     cfg.Analytics,
	}
}

func (uc *poolService) GetPoolAnalytics(ctx context.Context, poolID string) (*entity.PoolAnalytics, error) {
	if uc.source == nil {
		return nil, fmt.Errorf("%w: pool analytics are disabled", apperrors.ErrConfiguration)
	}

	poolID, err := uc.resolve(ctx, poolID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if cached, found, err := uc.cache.GetPoolAnalytics(ctx, poolID); err != nil {
			uc.logger.Warn("Cache error when getting pool analytics", zap.String("poolId", poolID), zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	analytics, err := uc.source.PoolAnalytics(ctx, poolID, poolHistoryDays)
	if err != nil {
		uc.logger.Warn("Failed to fetch pool analytics", zap.String("poolId", poolID), zap.Error(err))
		return nil, err
	}

	if uc.cache != nil && uc.cfg.CacheTTL > 0 {
		if err := uc.cache.SetPoolAnalytics(ctx, poolID, analytics, uc.cfg.CacheTTL); err != nil {
			uc.logger.Warn("Failed to cache pool analytics", zap.String("poolId", poolID), zap.Error(err))
		}
	}
	return analytics, nil
}

// resolve returns the lowercase pool address to query.
func (uc *poolService) resolve(ctx context.Context, poolID string) (string, error) {
	if poolID == "" {
		poolID = uc.cfg.PoolID
	}
	if poolID != "" {
		if !common.IsHexAddress(poolID) {
			return "", fmt.Errorf("%w: pool id %q", domain.ErrInvalidAddress, poolID)
		}
		return strings.ToLower(poolID), nil
	}

	if uc.locator == nil {
		return "", fmt.Errorf("%w: no pool id configured", apperrors.ErrConfiguration)
	}
	pool, err := uc.locator.PoolFor(ctx, "")
	if err != nil {
		return "", err
	}
	return strings.ToLower(pool.Hex()), nil
}
