package application

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
)

// scriptedQuoter answers by AmountIn; "slow" blocks until release is closed.
type scriptedQuoter struct {
	release chan struct{}
	started chan struct{}
	fail    bool
}

func (q *scriptedQuoter) GetSwapQuote(ctx context.Context, params entity.SwapParams) (*entity.SwapQuote, error) {
	if params.AmountIn == "slow" {
		close(q.started)
		<-q.release
	}
	if q.fail {
		return nil, domain.ErrQuoteUnavailable
	}
	return &entity.SwapQuote{
		AmountOut:        big.NewInt(int64(len(params.AmountIn))),
		MinimumAmountOut: big.NewInt(1),
		Params:           params,
	}, nil
}

func TestQuoteTrackerNewestRequestWins(t *testing.T) {
	quoter := &scriptedQuoter{release: make(chan struct{}), started: make(chan struct{})}
	tracker := NewQuoteTracker(quoter, zap.NewNop())

	var (
		wg      sync.WaitGroup
		slowErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = tracker.Request(context.Background(), entity.SwapParams{AmountIn: "slow"})
	}()

	select {
	case <-quoter.started:
	case <-time.After(time.Second):
		t.Fatal("first request never reached the quoter")
	}

	fast, err := tracker.Request(context.Background(), entity.SwapParams{AmountIn: "2"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), fast.RequestID)

	close(quoter.release)
	wg.Wait()
	require.ErrorIs(t, slowErr, domain.ErrStaleQuote)

	latest, ok := tracker.Latest()
	require.True(t, ok)
	assert.Equal(t, "2", latest.Params.AmountIn)
	assert.Equal(t, uint64(2), latest.RequestID)
}

func TestQuoteTrackerFailureLeavesNoQuote(t *testing.T) {
	quoter := &scriptedQuoter{}
	tracker := NewQuoteTracker(quoter, zap.NewNop())

	_, err := tracker.Request(context.Background(), entity.SwapParams{AmountIn: "1"})
	require.NoError(t, err)
	_, ok := tracker.Latest()
	require.True(t, ok)

	quoter.fail = true
	_, err = tracker.Request(context.Background(), entity.SwapParams{AmountIn: "3"})
	require.ErrorIs(t, err, domain.ErrQuoteUnavailable)

	latest, ok := tracker.Latest()
	assert.False(t, ok)
	assert.Nil(t, latest)
}

func TestQuoteTrackerReset(t *testing.T) {
	tracker := NewQuoteTracker(&scriptedQuoter{}, zap.NewNop())

	_, err := tracker.Request(context.Background(), entity.SwapParams{AmountIn: "1"})
	require.NoError(t, err)

	tracker.Reset()
	_, ok := tracker.Latest()
	assert.False(t, ok)
}
