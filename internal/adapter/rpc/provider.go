package rpc

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
)

// Compile-time check
var _ domainService.ChainReaderProvider = (*Provider)(nil)

// ChainLookup is the registry view the provider needs.
type ChainLookup interface {
	GetChainByID(chainID int64) (entity.ChainConfig, bool)
}

// Provider lazily creates one Client per chain from the registry.
type Provider struct {
	chains  ChainLookup
	caller  *Caller
	logger  *zap.Logger
	mu      sync.Mutex
	clients map[int64]*Client
}

// NewProvider creates a reader provider sharing one caller across chains.
func NewProvider(chains ChainLookup, caller *Caller, logger *zap.Logger) *Provider {
	return &Provider{
		chains:  chains,
		caller:  caller,
		logger:  logger,
		clients: make(map[int64]*Client),
	}
}

// ReaderFor returns the reader of a registered chain.
func (p *Provider) ReaderFor(chainID int64) (domainService.ChainReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[chainID]; ok {
		return c, nil
	}

	chain, ok := p.chains.GetChainByID(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrChainNotFound, chainID)
	}

	c := NewClient(p.caller, chainID, chain.RPCURL, p.logger)
	p.clients[chainID] = c
	p.logger.Debug("Created chain client",
		zap.Int64("chainId", chainID), zap.String("rpc", chain.RPCURL.String()),
	)
	return c, nil
}
