package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	s := NewSponsoredTransactionStatus()
	assert.Equal(t, StatusSnapshot{State: StateIdle}, s.Snapshot())

	s.BeginEligibilityCheck()
	assert.True(t, s.Snapshot().IsLoading)

	s.BeginSubmission(false)
	snap := s.Snapshot()
	assert.Equal(t, StateFallbackPending, snap.State)
	assert.False(t, snap.IsSponsored)

	s.Succeed("0xabc")
	snap = s.Snapshot()
	assert.Equal(t, StateSucceeded, snap.State)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, "0xabc", snap.TransactionHash)
	assert.True(t, snap.State.Terminal())

	assert.Equal(t, []TxState{
		StateIdle, StateCheckingEligibility, StateFallbackPending, StateSucceeded,
	}, s.History())
}

func TestStatusFailRecordsStage(t *testing.T) {
	s := NewSponsoredTransactionStatus()
	s.BeginEligibilityCheck()
	s.BeginSubmission(true)
	s.Fail(StageApproval, errors.New("user rejected"))

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.True(t, snap.IsSponsored)
	assert.Equal(t, "user rejected", snap.Error)
	assert.Equal(t, StageApproval, snap.FailedStage)

	s.Fail(StageSwap, nil)
	assert.Equal(t, "unknown error occurred", s.Snapshot().Error)
}

func TestStatusResetFromAnyState(t *testing.T) {
	drive := map[string]func(*SponsoredTransactionStatus){
		"failed": func(s *SponsoredTransactionStatus) {
			s.BeginEligibilityCheck()
			s.Fail(StageTransfer, errors.New("x"))
		},
		"succeeded": func(s *SponsoredTransactionStatus) {
			s.BeginEligibilityCheck()
			s.BeginSubmission(true)
			s.Succeed("0x1")
		},
		"pending": func(s *SponsoredTransactionStatus) {
			s.BeginEligibilityCheck()
			s.BeginSubmission(true)
		},
		"checking": func(s *SponsoredTransactionStatus) {
			s.BeginEligibilityCheck()
		},
	}

	for name, fn := range drive {
		t.Run(name, func(t *testing.T) {
			s := NewSponsoredTransactionStatus()
			fn(s)
			s.Reset()
			assert.Equal(t, StatusSnapshot{State: StateIdle}, s.Snapshot())
			assert.Equal(t, []TxState{StateIdle}, s.History())
		})
	}
}

func TestBeginEligibilityCheckClearsPreviousOutcome(t *testing.T) {
	s := NewSponsoredTransactionStatus()
	s.BeginEligibilityCheck()
	s.Fail(StageApproval, errors.New("boom"))

	s.BeginEligibilityCheck()
	snap := s.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.FailedStage)
	assert.Empty(t, snap.TransactionHash)

	s.BeginSubmission(true)
	s.Succeed("0xabc")
	require.True(t, s.Snapshot().IsSponsored)

	s.BeginEligibilityCheck()
	s.Fail(StageTransfer, errors.New("invalid amount"))
	snap = s.Snapshot()
	assert.False(t, snap.IsSponsored)
	assert.Empty(t, snap.TransactionHash)
	assert.Equal(t, StageTransfer, snap.FailedStage)
}

func TestReenteringEligibilityCheckIsRecordedOnce(t *testing.T) {
	s := NewSponsoredTransactionStatus()
	s.BeginEligibilityCheck()
	s.BeginEligibilityCheck()
	s.BeginSubmission(false)
	s.Succeed("0xabc")

	assert.Equal(t, []TxState{
		StateIdle, StateCheckingEligibility, StateFallbackPending, StateSucceeded,
	}, s.History())
}

func TestStageOf(t *testing.T) {
	base := errors.New("reverted")
	err := fmt.Errorf("swap action: %w", &StageError{Stage: StageApproval, Err: base})

	assert.Equal(t, StageApproval, StageOf(err))
	require.ErrorIs(t, err, base)
	assert.Equal(t, Stage(""), StageOf(base))
	assert.Equal(t, "approval: reverted", (&StageError{Stage: StageApproval, Err: base}).Error())
}

func TestSwapParamsSameTrade(t *testing.T) {
	a := SwapParams{TokenIn: "0xAbC", TokenOut: "0xdef", AmountIn: "1", ChainID: 1, SlippagePercent: 0.5}
	b := a
	b.TokenIn = "0xabc"
	b.SlippagePercent = 1
	b.Recipient = "0x1"
	assert.True(t, a.SameTrade(b))

	b.AmountIn = "1.0"
	assert.False(t, a.SameTrade(b))
	assert.True(t, SwapParams{TokenIn: NativeTokenAddress}.NativeIn())
}
