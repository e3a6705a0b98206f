package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	domainService "wallet-orchestrator/internal/domain/service"
)

// Compile-time check
var _ port.ChainService = (*chainService)(nil)

const maxCheckWorkers = 10

// chainService implements port.ChainService over the registry.
type chainService struct {
	chains     domainRepo.ChainRepository
	rpcChecker domainService.RPCChecker
	logger     *zap.Logger
	cfg        config.Config
}

// NewChainService creates a new instance of the chain service.
func NewChainService(
	chains domainRepo.ChainRepository,
	rpcChecker domainService.RPCChecker,
	logger *zap.Logger,
	cfg config.Config,
) port.ChainService {
	return &chainService{
		chains:     chains,
		rpcChecker: rpcChecker,
		logger:     logger.Named("ChainService"),
		cfg:        cfg,
	}
}

// GetAllChains lists every supported chain, default first.
func (uc *chainService) GetAllChains(_ context.Context) []entity.ChainConfig {
	return uc.chains.GetAllChains()
}

// GetChainTokens lists the configured tokens of a chain.
func (uc *chainService) GetChainTokens(_ context.Context, chainID int64) ([]entity.TokenContract, error) {
	if _, ok := uc.chains.GetChainByID(chainID); !ok {
		return nil, fmt.Errorf("%w: chain with ID %d is not configured", domain.ErrChainNotFound, chainID)
	}
	return uc.chains.GetChainTokens(chainID), nil
}

// CheckEndpoints checks each chain's RPC endpoint with a bounded worker pool.
func (uc *chainService) CheckEndpoints(ctx context.Context) []entity.EndpointStatus {
	chains := uc.chains.GetAllChains()
	if len(chains) == 0 {
		return nil
	}

	results := make([]entity.EndpointStatus, len(chains))
	timeout := uc.cfg.Checker.CheckTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	numWorkers := maxCheckWorkers
	if len(chains) < numWorkers {
		numWorkers = len(chains)
	}

	jobChan := make(chan int, len(chains))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			uc.logger.Debug("Starting RPC check worker", zap.Int("workerID", workerID))
			for index := range jobChan {
				chain := chains[index]
				status := entity.EndpointStatus{ChainID: chain.ChainID, URL: chain.RPCURL}

				if ctx.Err() != nil {
					status.Error = ctx.Err().Error()
					results[index] = status
					continue
				}

				checkCtx, cancel := context.WithTimeout(ctx, timeout)
				isWorking, latency, err := uc.rpcChecker.CheckRPC(checkCtx, chain.RPCURL)
				cancel()

				if err != nil {
					status.Error = err.Error()
					uc.logger.Debug("RPC check failed",
						zap.Int64("chainId", chain.ChainID), zap.String("rpc", chain.RPCURL.String()), zap.Error(err),
					)
				} else {
					status.IsWorking = isWorking
					if isWorking {
						latencyMs := latency.Milliseconds()
						status.LatencyMs = &latencyMs
					}
				}
				results[index] = status
			}
		}(w)
	}

	for i := range chains {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	working := 0
	for _, r := range results {
		if r.IsWorking {
			working++
		}
	}
	uc.logger.Info("Finished RPC endpoint checks",
		zap.Int("working", working), zap.Int("total", len(results)),
	)
	return results
}
