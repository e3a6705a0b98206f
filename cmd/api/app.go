package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-orchestrator/internal/adapter/analytics"
	"wallet-orchestrator/internal/adapter/pricing"
	"wallet-orchestrator/internal/adapter/rpc"
	"wallet-orchestrator/internal/adapter/sponsorship"
	"wallet-orchestrator/internal/adapter/storage/memory"
	"wallet-orchestrator/internal/adapter/storage/sqlite"
	"wallet-orchestrator/internal/adapter/wallet"
	"wallet-orchestrator/internal/application"
	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/config"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/registry"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	chains   port.ChainService
	balances port.BalanceService
	txs      port.TransactionService
	swaps    port.SwapService
	pools    port.PoolService
	wallet   domainService.Wallet
	ledger   *sqlite.ActivityRepository
}

func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	logger.Info("Initializing dependencies...")

	// Registry & transport
	reg, err := registry.LoadFile(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("load chain registry: %w", err)
	}
	caller := rpc.NewCaller(cfg.RPC.GetReadTimeout(), logger)
	readers := rpc.NewProvider(reg, caller, logger)
	rpcChecker := rpc.NewChecker(caller, logger)

	// Storage
	cacheRepo := memory.NewCacheRepository(*cfg, logger)
	var activity domainRepo.ActivityRepository
	var ledger *sqlite.ActivityRepository
	if cfg.Ledger.Path != "" {
		ledger, err = sqlite.Open(cfg.Ledger.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open activity ledger: %w", err)
		}
		activity = ledger
	}

	// Wallet & sponsorship
	var signer domainService.Wallet
	sponsorCfg := cfg.Sponsorship
	if cfg.Wallet.Address != "" {
		// Signing and broadcast can outlast reads, so the wallet gets the submit timeout.
		submitCaller := rpc.NewCaller(cfg.RPC.GetSubmitTimeout(), logger)
		remote, err := wallet.NewRemoteSigner(cfg.Wallet, submitCaller, logger)
		if err != nil {
			return nil, err
		}
		signer = remote
		if !remote.CanSponsor() && sponsorCfg.Enabled {
			logger.Warn("No sponsored signer configured, disabling gas sponsorship")
			sponsorCfg.Enabled = false
		}
	} else {
		logger.Warn("No wallet configured, transfers and swaps will be rejected")
	}

	var policy domainService.SponsorshipPolicy
	if sponsorCfg.Enabled {
		policy = sponsorship.NewGasManager(sponsorCfg, caller, readers, logger)
	}

	var prices domainService.PriceSource
	if cfg.Pricing.Enabled {
		prices = pricing.NewCoinGecko(cfg.Pricing, cfg.Cache.PriceTTL, cacheRepo, logger)
	}
	var locator domainService.PoolLocator
	if cfg.Pricing.Pool.Enabled {
		// Tokens listed for pool pricing read their DEX pool first; everything else still goes to CoinGecko.
		poolPrices := pricing.NewPoolPrice(*cfg, reg, readers, cacheRepo, prices, logger)
		prices = poolPrices
		locator = poolPrices
	}

	var poolSource domainService.PoolAnalyticsSource
	if cfg.Analytics.Enabled {
		poolSource = analytics.NewSubgraph(cfg.Analytics, logger)
	}

	// Use cases
	txs := application.NewTransactionService(reg, readers, policy, activity, logger, *cfg)

	return &app{
		cfg:      cfg,
		logger:   logger,
		chains:   application.NewChainService(reg, rpcChecker, logger, *cfg),
		balances: application.NewBalanceService(reg, readers, prices, cacheRepo, logger, *cfg),
		txs:      txs,
		swaps:    application.NewSwapService(reg, readers, txs, logger, *cfg),
		pools:    application.NewPoolService(poolSource, locator, cacheRepo, logger, *cfg),
		wallet:   signer,
		ledger:   ledger,
	}, nil
}

// checkEndpoints logs the RPC health of every chain.
func (a *app) checkEndpoints(ctx context.Context) {
	for _, status := range a.chains.CheckEndpoints(ctx) {
		if status.IsWorking {
			continue
		}
		a.logger.Warn("RPC endpoint not working",
			zap.Int64("chainId", status.ChainID),
			zap.String("rpc", status.URL.String()),
			zap.String("error", status.Error),
		)
	}
}

func (a *app) Close() {
	if a.ledger == nil {
		return
	}
	if err := a.ledger.Close(); err != nil {
		a.logger.Error("Failed to close activity ledger", zap.Error(err))
	}
}
