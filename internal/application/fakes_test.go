package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/registry"
)

const sepolia int64 = 11155111

const (
	usdcAddr    = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
	copeAddr    = "0x9B063Cfa8BDC03492933caA8BEa7c3d89846b2a7"
	routerAddr  = "0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E"
	quoterAddr  = "0xEd1f6473345F45b75F8179591dd5bA1888cf2FB3"
	factoryAddr = "0x0227628f3F023bb0B980b67D528571c95c6DaC1c"
	walletAddr  = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	otherAddr   = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

var errBoom = errors.New("boom")

func selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}

var (
	selBalanceOf = selector("balanceOf(address)")
	selAllowance = selector("allowance(address,address)")
	selApprove   = selector("approve(address,uint256)")
	selQuote     = selector("quoteExactInputSingle((address,address,uint256,uint24,uint160))")
	selSwap      = selector("multicall(uint256,bytes[])")
	selGetPool   = selector("getPool(address,address,uint24)")
	selSlot0     = selector("slot0()")
)

func uintWord(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func testConfig() config.Config {
	return config.Config{
		RPC: config.RPCConfig{ReadTimeout: time.Second, SubmitTimeout: time.Second},
		Swap: config.SwapConfig{
			DefaultSlippage:     0.5,
			FeeTier:             3000,
			Deadline:            20 * time.Minute,
			QuoteMaxAge:         30 * time.Second,
			ConfirmationPoll:    5 * time.Millisecond,
			ConfirmationTimeout: 200 * time.Millisecond,
		},
		Cache: config.CacheConfig{BalanceTTL: time.Minute},
	}
}

// fakeReader answers reads from per-selector handlers.
type fakeReader struct {
	mu       sync.Mutex
	balance  func(common.Address) (*big.Int, error)
	handlers map[string]func(to common.Address, data []byte) ([]byte, error)
	receipt  func(common.Hash) (*entity.Receipt, error)
	calls    []string
}

func newFakeReader() *fakeReader {
	return &fakeReader{handlers: map[string]func(common.Address, []byte) ([]byte, error){}}
}

func (r *fakeReader) on(sel string, fn func(to common.Address, data []byte) ([]byte, error)) *fakeReader {
	r.handlers[sel] = fn
	return r
}

func (r *fakeReader) GetBalance(_ context.Context, address common.Address) (*big.Int, error) {
	if r.balance == nil {
		return nil, errBoom
	}
	return r.balance(address)
}

func (r *fakeReader) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	sel := hexutil.Encode(data[:4])
	r.mu.Lock()
	r.calls = append(r.calls, sel)
	fn, ok := r.handlers[sel]
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, errBoom
	}
	return fn(to, data)
}

func (r *fakeReader) GetTransactionReceipt(_ context.Context, hash common.Hash) (*entity.Receipt, error) {
	if r.receipt == nil {
		return &entity.Receipt{TxHash: hash, BlockNumber: 1, Success: true}, nil
	}
	return r.receipt(hash)
}

func (r *fakeReader) called(sel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == sel {
			n++
		}
	}
	return n
}

// fakeProvider serves one reader per chain.
type fakeProvider map[int64]domainService.ChainReader

func (p fakeProvider) ReaderFor(chainID int64) (domainService.ChainReader, error) {
	r, ok := p[chainID]
	if !ok {
		return nil, domain.ErrChainNotFound
	}
	return r, nil
}

// fakePolicy returns a fixed answer, optionally blocking until the context ends.
type fakePolicy struct {
	eligible bool
	err      error
	block    bool
	calls    int
	mu       sync.Mutex
}

func (p *fakePolicy) IsEligible(ctx context.Context, _ entity.SponsorshipCandidate, _ common.Address) (bool, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.block {
		<-ctx.Done()
		return true, ctx.Err()
	}
	return p.eligible, p.err
}

// fakeWallet records every submission.
type fakeWallet struct {
	mu   sync.Mutex
	addr common.Address
	sent []entity.TxRequest
	fail func(entity.TxRequest) error
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{addr: common.HexToAddress(walletAddr)}
}

func (w *fakeWallet) Address() common.Address {
	return w.addr
}

func (w *fakeWallet) SendTransaction(_ context.Context, req entity.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, req)
	if w.fail != nil {
		if err := w.fail(req); err != nil {
			return common.Hash{}, err
		}
	}
	return common.BigToHash(big.NewInt(int64(len(w.sent)))), nil
}

func (w *fakeWallet) submissions() []entity.TxRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]entity.TxRequest(nil), w.sent...)
}

// fakeActivity keeps records in memory.
type fakeActivity struct {
	mu      sync.Mutex
	records []entity.ActivityRecord
}

func (a *fakeActivity) Save(_ context.Context, rec entity.ActivityRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *fakeActivity) List(_ context.Context, limit int) ([]entity.ActivityRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]entity.ActivityRecord, 0, len(a.records))
	for i := len(a.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.records[i])
	}
	return out, nil
}

func selOf(req entity.TxRequest) string {
	if len(req.Data) < 4 {
		return ""
	}
	return hexutil.Encode(req.Data[:4])
}

func newTestTransactionService(
	t *testing.T,
	reader *fakeReader,
	policy domainService.SponsorshipPolicy,
	activity *fakeActivity,
) *transactionService {
	t.Helper()
	svc := NewTransactionService(
		registry.NewDefault(),
		fakeProvider{sepolia: reader},
		policy,
		nil,
		zap.NewNop(),
		testConfig(),
	).(*transactionService)
	if activity != nil {
		svc.activity = activity
	}
	return svc
}
