package application

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
)

// QuoteTracker serializes quote requests of one session so that only the
// newest request can publish a quote. Issuing a request cancels the one in
// flight; a superseded result is discarded with ErrStaleQuote.
type QuoteTracker struct {
	quoter port.SwapQuoter
	logger *zap.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	latest *entity.SwapQuote
}

// NewQuoteTracker creates a tracker backed by quoter.
func NewQuoteTracker(quoter port.SwapQuoter, logger *zap.Logger) *QuoteTracker {
	return &QuoteTracker{
		quoter: quoter,
		logger: logger.Named("QuoteTracker"),
	}
}

// Request quotes params. The returned quote is also the tracker's latest
// unless a newer request was issued meanwhile.
func (t *QuoteTracker) Request(ctx context.Context, params entity.SwapParams) (*entity.SwapQuote, error) {
	t.mu.Lock()
	t.seq++
	id := t.seq
	if t.cancel != nil {
		t.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.latest = nil
	t.mu.Unlock()

	quote, err := t.quoter.GetSwapQuote(reqCtx, params)

	t.mu.Lock()
	defer t.mu.Unlock()
	cancel()

	if id != t.seq {
		t.logger.Debug("Discarding superseded quote", zap.Uint64("requestId", id), zap.Uint64("current", t.seq))
		return nil, fmt.Errorf("%w: request %d superseded by %d", domain.ErrStaleQuote, id, t.seq)
	}
	t.cancel = nil

	if err != nil {
		return nil, err
	}

	fresh := *quote
	fresh.RequestID = id
	t.latest = &fresh
	return &fresh, nil
}

// Latest returns the newest quote, if the newest request succeeded.
func (t *QuoteTracker) Latest() (*entity.SwapQuote, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest, t.latest != nil
}

// Reset cancels any request in flight and forgets the latest quote.
func (t *QuoteTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.latest = nil
}
