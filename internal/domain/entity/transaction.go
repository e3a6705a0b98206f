package entity

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransferParams describes a native or ERC-20 transfer requested by the user.
// An empty TokenAddress means a native value transfer.
type TransferParams struct {
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
	TokenAddress string `json:"tokenAddress,omitempty"`
	Decimals     int    `json:"decimals,omitempty"`
	ChainID      int64  `json:"chainId"`
}

// IsNative reports whether the transfer moves the chain's native currency.
func (p TransferParams) IsNative() bool {
	return p.TokenAddress == ""
}

// SponsorshipCandidate is the prospective call submitted to the sponsorship policy.
type SponsorshipCandidate struct {
	To      common.Address
	Data    []byte
	Value   *big.Int
	ChainID int64
}

// TxRequest is a transaction handed to the wallet for submission.
type TxRequest struct {
	ChainID   int64
	To        common.Address
	Data      []byte
	Value     *big.Int
	Sponsored bool
}

// Receipt is the subset of a transaction receipt the orchestrator relies on.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Success     bool
}

// TxResult is returned for an accepted submission.
type TxResult struct {
	Hash        string `json:"hash"`
	Sponsored   bool   `json:"sponsored"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// Stage names the step of a user action a failure belongs to.
type Stage string

const (
	StageTransfer Stage = "transfer"
	StageApproval Stage = "approval"
	StageSwap     Stage = "swap"
)

// StageError attributes a failure to a stage of an action.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage an error is attributed to, or "" if none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// ActivityRecord is a persisted outcome of one submitted stage.
type ActivityRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Stage     Stage     `json:"stage"`
	ChainID   int64     `json:"chainId"`
	Sponsored bool      `json:"sponsored"`
	TxHash    string    `json:"txHash,omitempty"`
	State     TxState   `json:"state"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
