package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	handler "wallet-orchestrator/internal/adapter/handler/http"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
)

const holder = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type cliBalances struct {
	mu     sync.Mutex
	chains []int64
	all    int
}

func (b *cliBalances) FetchNativeBalance(context.Context, string, int64) entity.TokenBalance {
	return entity.TokenBalance{Symbol: "ETH", Balance: "1"}
}

func (b *cliBalances) FetchTokenBalance(context.Context, string, entity.TokenContract, int64) entity.TokenBalance {
	return entity.TokenBalance{}
}

func (b *cliBalances) FetchAllBalances(_ context.Context, _ string, chainID int64) []entity.TokenBalance {
	b.mu.Lock()
	b.chains = append(b.chains, chainID)
	b.mu.Unlock()
	return []entity.TokenBalance{{Symbol: "ETH", Balance: "1"}}
}

func (b *cliBalances) FetchAllChainsBalances(context.Context, string) map[int64][]entity.TokenBalance {
	b.mu.Lock()
	b.all++
	b.mu.Unlock()
	return map[int64][]entity.TokenBalance{84532: {}}
}

func (b *cliBalances) CachedAllBalances(ctx context.Context, address string, chainID int64) []entity.TokenBalance {
	return b.FetchAllBalances(ctx, address, chainID)
}

type cliSwaps struct {
	mu     sync.Mutex
	params []entity.SwapParams
}

func (s *cliSwaps) GetSwapQuote(_ context.Context, params entity.SwapParams) (*entity.SwapQuote, error) {
	s.mu.Lock()
	s.params = append(s.params, params)
	s.mu.Unlock()
	return &entity.SwapQuote{AmountIn: big.NewInt(1), AmountOut: big.NewInt(2), Params: params}, nil
}

func (s *cliSwaps) PrepareApprovalTransaction(string, string, string, int, int64) (entity.TxRequest, error) {
	return entity.TxRequest{}, nil
}

func (s *cliSwaps) PrepareSwapTransaction(entity.SwapParams, *entity.SwapQuote, int64) (entity.TxRequest, error) {
	return entity.TxRequest{}, nil
}

func (s *cliSwaps) ExecuteSwap(
	context.Context, domainService.Wallet, entity.SwapParams, *entity.SwapQuote, *entity.SponsoredTransactionStatus,
) (*entity.SwapResult, error) {
	return nil, nil
}

type cliPools struct{ asked []string }

func (p *cliPools) GetPoolAnalytics(_ context.Context, poolID string) (*entity.PoolAnalytics, error) {
	p.asked = append(p.asked, poolID)
	return &entity.PoolAnalytics{PoolID: "0xc0", FeeTier: 3000}, nil
}

type cliApp struct {
	balances *cliBalances
	swaps    *cliSwaps
	pools    *cliPools
	toStderr []bool
}

// withStubApp replaces the application built by subcommands for one test.
func withStubApp(t *testing.T) *cliApp {
	t.Helper()
	stub := &cliApp{balances: &cliBalances{}, swaps: &cliSwaps{}, pools: &cliPools{}}
	prev := setupApp
	setupApp = func(toStderr bool) (*app, func(), error) {
		stub.toStderr = append(stub.toStderr, toStderr)
		cfg := &config.Config{Swap: config.SwapConfig{DefaultSlippage: 0.75}}
		return &app{
			cfg:      cfg,
			logger:   zap.NewNop(),
			balances: stub.balances,
			swaps:    stub.swaps,
			pools:    stub.pools,
		}, func() {}, nil
	}
	t.Cleanup(func() { setupApp = prev })
	return stub
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.Bytes()
}

func TestQuoteUsesConfiguredSlippageByDefault(t *testing.T) {
	stub := withStubApp(t)

	out := run(t, "quote", "--in", "0x1", "--out", "0x2", "--amount", "1")
	var quote handler.QuoteResponse
	require.NoError(t, json.Unmarshal(out, &quote))
	assert.Equal(t, "2", quote.AmountOut)
	assert.Equal(t, 0.75, quote.Params.SlippagePercent)
	assert.Equal(t, int64(11155111), quote.Params.ChainID)

	run(t, "quote", "--in", "0x1", "--out", "0x2", "--amount", "1", "--slippage", "2", "--chain", "84532")
	require.Len(t, stub.swaps.params, 2)
	assert.Equal(t, 2.0, stub.swaps.params[1].SlippagePercent)
	assert.Equal(t, int64(84532), stub.swaps.params[1].ChainID)
	assert.Equal(t, []bool{true, true}, stub.toStderr)
}

func TestQuoteRequiresTokensAndAmount(t *testing.T) {
	withStubApp(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"quote", "--in", "0x1"})
	require.Error(t, cmd.Execute())
}

func TestBalancesByChain(t *testing.T) {
	stub := withStubApp(t)

	out := run(t, "balances", holder, "--chain", "84532")
	var balances []entity.TokenBalance
	require.NoError(t, json.Unmarshal(out, &balances))
	require.Len(t, balances, 1)
	assert.Equal(t, "ETH", balances[0].Symbol)
	assert.Equal(t, []int64{84532}, stub.balances.chains)
	assert.Zero(t, stub.balances.all)

	out = run(t, "balances", holder)
	var all map[string][]entity.TokenBalance
	require.NoError(t, json.Unmarshal(out, &all))
	assert.Contains(t, all, "84532")
	assert.Equal(t, 1, stub.balances.all)
}

func TestPoolCommand(t *testing.T) {
	stub := withStubApp(t)

	out := run(t, "pool")
	var pool entity.PoolAnalytics
	require.NoError(t, json.Unmarshal(out, &pool))
	assert.Equal(t, "0xc0", pool.PoolID)

	run(t, "pool", "0xabc")
	assert.Equal(t, []string{"", "0xabc"}, stub.pools.asked)
}
