package application

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	"wallet-orchestrator/internal/pkg/calldata"
)

func TestSponsoredTokenTransferScenario(t *testing.T) {
	activity := &fakeActivity{}
	svc := newTestTransactionService(t, newFakeReader(), &fakePolicy{eligible: true}, activity)
	wallet := newFakeWallet()
	status := entity.NewSponsoredTransactionStatus()

	res, err := svc.SendSponsoredTransaction(context.Background(), wallet, entity.TransferParams{
		Recipient:    otherAddr,
		Amount:       "50",
		TokenAddress: usdcAddr,
		Decimals:     6,
		ChainID:      sepolia,
	}, status)
	require.NoError(t, err)

	assert.Equal(t, []entity.TxState{
		entity.StateIdle,
		entity.StateCheckingEligibility,
		entity.StateSponsoredPending,
		entity.StateSucceeded,
	}, status.History())

	snap := status.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.True(t, snap.IsSponsored)
	assert.Equal(t, res.Hash, snap.TransactionHash)
	assert.Empty(t, snap.Error)
	assert.True(t, res.Sponsored)
	assert.Contains(t, res.ExplorerURL, "https://sepolia.etherscan.io/tx/0x")

	sent := wallet.submissions()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Sponsored)
	assert.Equal(t, common.HexToAddress(usdcAddr), sent[0].To)
	assert.Equal(t, calldata.TransferSelector, selOf(sent[0]))
	assert.Equal(t, int64(50000000), new(big.Int).SetBytes(sent[0].Data[36:68]).Int64())

	require.Len(t, activity.records, 1)
	assert.Equal(t, "transfer", activity.records[0].Kind)
	assert.Equal(t, entity.StateSucceeded, activity.records[0].State)
}

func TestNativeTransferFallsBackWhenNotEligible(t *testing.T) {
	svc := newTestTransactionService(t, newFakeReader(), &fakePolicy{eligible: false}, nil)
	wallet := newFakeWallet()
	status := entity.NewSponsoredTransactionStatus()

	res, err := svc.SendSponsoredTransaction(context.Background(), wallet, entity.TransferParams{
		Recipient: otherAddr,
		Amount:    "0.01",
		ChainID:   sepolia,
	}, status)
	require.NoError(t, err)
	assert.False(t, res.Sponsored)

	assert.Contains(t, status.History(), entity.StateFallbackPending)
	sent := wallet.submissions()
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].Data)
	assert.Equal(t, "10000000000000000", sent[0].Value.String())
	assert.False(t, sent[0].Sponsored)
}

func TestSponsorshipFailsClosed(t *testing.T) {
	wallet := newFakeWallet()
	candidate := entity.SponsorshipCandidate{To: common.HexToAddress(usdcAddr), ChainID: sepolia}

	errSvc := newTestTransactionService(t, newFakeReader(), &fakePolicy{eligible: true, err: errBoom}, nil)
	assert.False(t, errSvc.IsGasSponsorshipAvailable(context.Background(), candidate, wallet))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blockSvc := newTestTransactionService(t, newFakeReader(), &fakePolicy{block: true}, nil)
	assert.False(t, blockSvc.IsGasSponsorshipAvailable(ctx, candidate, wallet))

	noPolicy := newTestTransactionService(t, newFakeReader(), nil, nil)
	assert.False(t, noPolicy.IsGasSponsorshipAvailable(context.Background(), candidate, wallet))
	assert.False(t, errSvc.IsGasSponsorshipAvailable(context.Background(), candidate, nil))
}

func TestPolicyErrorStillSubmitsUnsponsored(t *testing.T) {
	svc := newTestTransactionService(t, newFakeReader(), &fakePolicy{eligible: true, err: errBoom}, nil)
	wallet := newFakeWallet()
	status := entity.NewSponsoredTransactionStatus()

	_, err := svc.SendSponsoredTransaction(context.Background(), wallet, entity.TransferParams{
		Recipient: otherAddr, Amount: "1", TokenAddress: usdcAddr, Decimals: 6, ChainID: sepolia,
	}, status)
	require.NoError(t, err)
	assert.Equal(t, entity.StateFallbackPending, status.History()[2])
	assert.False(t, wallet.submissions()[0].Sponsored)
}

func TestSendWithoutWallet(t *testing.T) {
	policy := &fakePolicy{eligible: true}
	svc := newTestTransactionService(t, newFakeReader(), policy, nil)
	status := entity.NewSponsoredTransactionStatus()

	_, err := svc.SendSponsoredTransaction(context.Background(), nil, entity.TransferParams{
		Recipient: otherAddr, Amount: "1", ChainID: sepolia,
	}, status)
	require.ErrorIs(t, err, domain.ErrNoWallet)
	assert.Equal(t, entity.StageTransfer, entity.StageOf(err))
	assert.Equal(t, entity.StateFailed, status.Snapshot().State)
	assert.Zero(t, policy.calls)
}

func TestInvalidParamsRejectedBeforeNetwork(t *testing.T) {
	cases := []struct {
		name   string
		params entity.TransferParams
		target error
	}{
		{"bad recipient", entity.TransferParams{Recipient: "0x123", Amount: "1", ChainID: sepolia}, domain.ErrInvalidAddress},
		{"zero amount", entity.TransferParams{Recipient: otherAddr, Amount: "0", ChainID: sepolia}, domain.ErrInvalidAmount},
		{"not a number", entity.TransferParams{Recipient: otherAddr, Amount: "1,5", ChainID: sepolia}, domain.ErrInvalidAmount},
		{"too precise", entity.TransferParams{
			Recipient: otherAddr, Amount: "1.0000001", TokenAddress: usdcAddr, Decimals: 6, ChainID: sepolia,
		}, domain.ErrInvalidAmount},
		{"bad token", entity.TransferParams{
			Recipient: otherAddr, Amount: "1", TokenAddress: "usdc", Decimals: 6, ChainID: sepolia,
		}, domain.ErrInvalidAddress},
		{"unknown chain", entity.TransferParams{Recipient: otherAddr, Amount: "1", ChainID: 42}, domain.ErrChainNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := &fakePolicy{eligible: true}
			svc := newTestTransactionService(t, newFakeReader(), policy, nil)
			wallet := newFakeWallet()
			status := entity.NewSponsoredTransactionStatus()

			_, err := svc.SendSponsoredTransaction(context.Background(), wallet, tc.params, status)
			require.ErrorIs(t, err, tc.target)
			assert.Zero(t, policy.calls)
			assert.Empty(t, wallet.submissions())
			assert.Equal(t, entity.StateFailed, status.Snapshot().State)
		})
	}
}

func TestRejectedSubmissionIsTerminal(t *testing.T) {
	activity := &fakeActivity{}
	svc := newTestTransactionService(t, newFakeReader(), &fakePolicy{eligible: true}, activity)
	wallet := newFakeWallet()
	wallet.fail = func(entity.TxRequest) error { return errBoom }
	status := entity.NewSponsoredTransactionStatus()

	_, err := svc.SendSponsoredTransaction(context.Background(), wallet, entity.TransferParams{
		Recipient: otherAddr, Amount: "1", ChainID: sepolia,
	}, status)
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)
	require.ErrorIs(t, err, errBoom)

	snap := status.Snapshot()
	assert.Equal(t, entity.StateFailed, snap.State)
	assert.False(t, snap.IsLoading)
	assert.Contains(t, snap.Error, "boom")
	assert.Len(t, wallet.submissions(), 1)

	require.Len(t, activity.records, 1)
	assert.Equal(t, entity.StateFailed, activity.records[0].State)
}

func TestCheckTokenApproval(t *testing.T) {
	allowance := big.NewInt(1_000_000)
	reader := newFakeReader().on(selAllowance, func(to common.Address, data []byte) ([]byte, error) {
		assert.Equal(t, common.HexToAddress(usdcAddr), to)
		assert.Equal(t, common.HexToAddress(walletAddr), common.BytesToAddress(data[4:36]))
		assert.Equal(t, common.HexToAddress(routerAddr), common.BytesToAddress(data[36:68]))
		return uintWord(allowance), nil
	})
	svc := newTestTransactionService(t, reader, nil, nil)
	ctx := context.Background()

	ok, err := svc.CheckTokenApproval(ctx, usdcAddr, walletAddr, routerAddr, big.NewInt(1_000_000), sepolia)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckTokenApproval(ctx, usdcAddr, walletAddr, routerAddr, big.NewInt(1_000_001), sepolia)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckTokenApproval(ctx, copeAddr, walletAddr, routerAddr, big.NewInt(1), 84532)
	require.ErrorIs(t, err, domain.ErrAllowanceCheckFailed)
}

func TestCheckTokenApprovalReadFailure(t *testing.T) {
	svc := newTestTransactionService(t, newFakeReader(), nil, nil)

	_, err := svc.CheckTokenApproval(context.Background(), usdcAddr, walletAddr, routerAddr, big.NewInt(1), sepolia)
	require.ErrorIs(t, err, domain.ErrAllowanceCheckFailed)
}

func TestRecentActivityWithoutLedger(t *testing.T) {
	svc := newTestTransactionService(t, newFakeReader(), nil, nil)
	recs, err := svc.RecentActivity(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
