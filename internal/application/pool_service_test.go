package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/adapter/storage/memory"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	"wallet-orchestrator/internal/pkg/apperrors"
)

const pricedPool = "0x00000000000000000000000000000000000000C0"

type fakeAnalytics struct {
	mu    sync.Mutex
	asked []string
	err   error
}

func (f *fakeAnalytics) PoolAnalytics(_ context.Context, poolID string, days int) (*entity.PoolAnalytics, error) {
	f.mu.Lock()
	f.asked = append(f.asked, poolID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &entity.PoolAnalytics{PoolID: poolID, FeeTier: 3000, TVLUSD: decimal.NewFromInt(100_000)}, nil
}

type fixedLocator struct {
	pool common.Address
	err  error
}

func (l fixedLocator) PoolFor(context.Context, string) (common.Address, error) {
	return l.pool, l.err
}

func newPoolService(source *fakeAnalytics, locator fixedLocator, analytics config.AnalyticsConfig) *poolService {
	cfg := testConfig()
	cfg.Cache.DefaultExpiration = time.Minute
	cfg.Cache.CleanupInterval = time.Minute
	cfg.Analytics = analytics
	cacheRepo := memory.NewCacheRepository(cfg, zap.NewNop())
	return NewPoolService(source, locator, cacheRepo, zap.NewNop(), cfg).(*poolService)
}

func TestGetPoolAnalyticsResolvesPricedPool(t *testing.T) {
	source := &fakeAnalytics{}
	svc := newPoolService(source, fixedLocator{pool: common.HexToAddress(pricedPool)},
		config.AnalyticsConfig{Enabled: true, CacheTTL: time.Minute})

	a, err := svc.GetPoolAnalytics(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(pricedPool), a.PoolID)

	_, err = svc.GetPoolAnalytics(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, source.asked, 1, "second read is served from cache")
}

func TestGetPoolAnalyticsPrefersExplicitPool(t *testing.T) {
	source := &fakeAnalytics{}
	svc := newPoolService(source, fixedLocator{err: errBoom},
		config.AnalyticsConfig{Enabled: true, PoolID: otherAddr})

	a, err := svc.GetPoolAnalytics(context.Background(), copeAddr)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(copeAddr), a.PoolID)

	a, err = svc.GetPoolAnalytics(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(otherAddr), a.PoolID)

	_, err = svc.GetPoolAnalytics(context.Background(), "not-a-pool")
	require.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestGetPoolAnalyticsErrors(t *testing.T) {
	disabled := NewPoolService(nil, nil, nil, zap.NewNop(), testConfig())
	_, err := disabled.GetPoolAnalytics(context.Background(), copeAddr)
	require.ErrorIs(t, err, apperrors.ErrConfiguration)

	svc := newPoolService(&fakeAnalytics{}, fixedLocator{err: apperrors.ErrNotFound}, config.AnalyticsConfig{Enabled: true})
	_, err = svc.GetPoolAnalytics(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	failing := newPoolService(&fakeAnalytics{err: apperrors.ErrExternalServiceFailure}, fixedLocator{},
		config.AnalyticsConfig{Enabled: true})
	_, err = failing.GetPoolAnalytics(context.Background(), copeAddr)
	require.ErrorIs(t, err, apperrors.ErrExternalServiceFailure)
}
