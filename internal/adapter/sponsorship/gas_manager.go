package sponsorship

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/adapter/rpc"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/pkg/apperrors"
	"wallet-orchestrator/internal/pkg/calldata"
)

// Compile-time check
var _ domainService.SponsorshipPolicy = (*GasManager)(nil)

const requestGasMethod = "alchemy_requestGasAndPaymasterAndData"

// dummySignature has the length of a real ECDSA signature so gas estimation matches.
var dummySignature = "0x" + strings.Repeat("ff", 64) + "1c"

type userOperation struct {
	Sender   common.Address `json:"sender"`
	Nonce    *hexutil.Big   `json:"nonce"`
	InitCode hexutil.Bytes  `json:"initCode"`
	CallData hexutil.Bytes  `json:"callData"`
}

type gasRequest struct {
	PolicyID       string        `json:"policyId"`
	EntryPoint     string        `json:"entryPoint"`
	DummySignature string        `json:"dummySignature"`
	UserOperation  userOperation `json:"userOperation"`
}

type gasResponse struct {
	PaymasterAndData     string `json:"paymasterAndData"`
	CallGasLimit         string `json:"callGasLimit,omitempty"`
	VerificationGasLimit string `json:"verificationGasLimit,omitempty"`
	PreVerificationGas   string `json:"preVerificationGas,omitempty"`
}

// GasManager asks an Alchemy Gas Manager policy whether it would pay for a call.
type GasManager struct {
	cfg     config.SponsorshipConfig
	caller  *rpc.Caller
	readers domainService.ChainReaderProvider
	logger  *zap.Logger
}

// NewGasManager creates a policy client. readers is used for the entry point
// nonce and may be nil, in which case nonce 0 is sent.
func NewGasManager(
	cfg config.SponsorshipConfig,
	caller *rpc.Caller,
	readers domainService.ChainReaderProvider,
	logger *zap.Logger,
) *GasManager {
	return &GasManager{
		cfg:     cfg,
		caller:  caller,
		readers: readers,
		logger:  logger.Named("GasManager"),
	}
}

// IsEligible reports whether the policy sponsors candidate for wallet. Any
// error is returned alongside false; callers must treat it as not eligible.
func (g *GasManager) IsEligible(
	ctx context.Context,
	candidate entity.SponsorshipCandidate,
	wallet common.Address,
) (bool, error) {
	if !g.cfg.Enabled {
		return false, nil
	}
	if g.cfg.APIKey == "" || g.cfg.PolicyID == "" {
		return false, fmt.Errorf("%w: sponsorship api key or policy id missing", apperrors.ErrConfiguration)
	}
	network, ok := g.cfg.NetworkFor(candidate.ChainID)
	if !ok {
		g.logger.Debug("No gas manager network for chain", zap.Int64("chainId", candidate.ChainID))
		return false, nil
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	callData, err := calldata.EncodeExecute(candidate.To, candidate.Value, candidate.Data)
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}

	nonce, err := g.nonce(ctx, candidate.ChainID, wallet)
	if err != nil {
		return false, err
	}

	req := gasRequest{
		PolicyID:       g.cfg.PolicyID,
		EntryPoint:     g.cfg.EntryPoint,
		DummySignature: dummySignature,
		UserOperation: userOperation{
			Sender:   wallet,
			Nonce:    (*hexutil.Big)(nonce),
			InitCode: hexutil.Bytes{},
			CallData: callData,
		},
	}

	url := fmt.Sprintf(g.cfg.BaseURL, network, g.cfg.APIKey)
	var resp gasResponse
	if err := g.caller.Call(ctx, url, requestGasMethod, []interface{}{req}, &resp); err != nil {
		return false, fmt.Errorf("gas manager %s request: %w", network, err)
	}

	eligible := resp.PaymasterAndData != "" && resp.PaymasterAndData != "0x"
	g.logger.Debug("Gas manager answered",
		zap.Int64("chainId", candidate.ChainID),
		zap.String("to", candidate.To.Hex()),
		zap.Bool("eligible", eligible),
	)
	return eligible, nil
}

func (g *GasManager) nonce(ctx context.Context, chainID int64, sender common.Address) (*big.Int, error) {
	if g.readers == nil || g.cfg.EntryPoint == "" {
		return new(big.Int), nil
	}
	reader, err := g.readers.ReaderFor(chainID)
	if err != nil {
		return nil, err
	}
	data, err := calldata.EncodeGetNonce(sender)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}
	ret, err := reader.Call(ctx, common.HexToAddress(g.cfg.EntryPoint), data)
	if err != nil {
		return nil, fmt.Errorf("entry point nonce: %w", err)
	}
	return calldata.DecodeGetNonce(ret)
}
