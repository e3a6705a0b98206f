package wallet

import (
	"context"
	"fmt"
	"math/big"

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
var _ domainService.Wallet = (*RemoteSigner)(nil)

type sendArgs struct {
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Data    hexutil.Bytes  `json:"data,omitempty"`
	Value   *hexutil.Big   `json:"value"`
	ChainID *hexutil.Big   `json:"chainId"`
}

// RemoteSigner is a wallet whose keys live behind an eth_sendTransaction
// endpoint. Sponsored requests go to a separate endpoint that attaches the
// paymaster.
type RemoteSigner struct {
	address      common.Address
	signerURL    string
	sponsoredURL string
	caller       *rpc.Caller
	logger       *zap.Logger
}

// NewRemoteSigner validates cfg and creates the wallet.
func NewRemoteSigner(cfg config.WalletConfig, caller *rpc.Caller, logger *zap.Logger) (*RemoteSigner, error) {
	addr, err := calldata.ParseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: wallet address: %v", apperrors.ErrConfiguration, err)
	}
	if _, err := entity.NewRPCURL(cfg.SignerURL); err != nil {
		return nil, fmt.Errorf("%w: wallet signer url: %v", apperrors.ErrConfiguration, err)
	}
	if cfg.SponsoredSignerURL != "" {
		if _, err := entity.NewRPCURL(cfg.SponsoredSignerURL); err != nil {
			return nil, fmt.Errorf("%w: sponsored signer url: %v", apperrors.ErrConfiguration, err)
		}
	}

	return &RemoteSigner{
		address:      addr,
		signerURL:    cfg.SignerURL,
		sponsoredURL: cfg.SponsoredSignerURL,
		caller:       caller,
		logger:       logger.Named("RemoteSigner"),
	}, nil
}

// Address returns the account the signer sends from.
func (s *RemoteSigner) Address() common.Address {
	return s.address
}

// CanSponsor reports whether a sponsored endpoint is configured.
func (s *RemoteSigner) CanSponsor() bool {
	return s.sponsoredURL != ""
}

// SendTransaction submits req and returns the transaction hash.
func (s *RemoteSigner) SendTransaction(ctx context.Context, req entity.TxRequest) (common.Hash, error) {
	url := s.signerURL
	if req.Sponsored {
		if s.sponsoredURL == "" {
			return common.Hash{}, fmt.Errorf("%w: no sponsored signer endpoint", apperrors.ErrConfiguration)
		}
		url = s.sponsoredURL
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	args := sendArgs{
		From:    s.address,
		To:      req.To,
		Data:    req.Data,
		Value:   (*hexutil.Big)(value),
		ChainID: (*hexutil.Big)(big.NewInt(req.ChainID)),
	}

	var hash common.Hash
	if err := s.caller.Call(ctx, url, "eth_sendTransaction", []interface{}{args}, &hash); err != nil {
		s.logger.Warn("Signer rejected transaction",
			zap.Int64("chainId", req.ChainID),
			zap.Bool("sponsored", req.Sponsored),
			zap.Error(err),
		)
		return common.Hash{}, err
	}

	s.logger.Info("Transaction submitted",
		zap.Int64("chainId", req.ChainID),
		zap.Bool("sponsored", req.Sponsored),
		zap.String("hash", hash.Hex()),
	)
	return hash, nil
}
