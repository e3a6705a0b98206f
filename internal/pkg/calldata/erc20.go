// Package calldata encodes and decodes the contract calls used by the
// orchestrator: ERC-20, Uniswap V3 and the smart account execute wrapper.
package calldata

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC-20 function selectors.
const (
	TransferSelector  = "0xa9059cbb"
	ApproveSelector   = "0x095ea7b3"
	BalanceOfSelector = "0x70a08231"
	AllowanceSelector = "0xdd62ed3e"
)

// BuildTransferCallData encodes transfer(recipient, amount) with amount
// scaled by decimals.
func BuildTransferCallData(recipient, amount string, decimals int) ([]byte, error) {
	to, err := ParseAddress(recipient)
	if err != nil {
		return nil, err
	}
	value, err := ParseAmount(amount, decimals)
	if err != nil {
		return nil, err
	}
	return EncodeTransfer(to, value)
}

// BuildApprovalCallData encodes approve(spender, amount) with amount scaled by decimals.
func BuildApprovalCallData(spender, amount string, decimals int) ([]byte, error) {
	sp, err := ParseAddress(spender)
	if err != nil {
		return nil, err
	}
	value, err := ParseAmount(amount, decimals)
	if err != nil {
		return nil, err
	}
	return EncodeApprove(sp, value)
}

// EncodeTransfer encodes transfer(to, value) with value already in base units.
func EncodeTransfer(to common.Address, value *big.Int) ([]byte, error) {
	return pack(erc20ABI, "transfer", to, value)
}

// EncodeApprove encodes approve(spender, value) with value already in base units.
func EncodeApprove(spender common.Address, value *big.Int) ([]byte, error) {
	return pack(erc20ABI, "approve", spender, value)
}

// EncodeBalanceOf encodes a balanceOf(owner) read.
func EncodeBalanceOf(owner common.Address) ([]byte, error) {
	return pack(erc20ABI, "balanceOf", owner)
}

// EncodeAllowance encodes an allowance(owner, spender) read.
func EncodeAllowance(owner, spender common.Address) ([]byte, error) {
	return pack(erc20ABI, "allowance", owner, spender)
}

// DecodeBalanceOf returns the uint256 from a balanceOf result.
func DecodeBalanceOf(ret []byte) (*big.Int, error) {
	return unpackUint(erc20ABI, "balanceOf", ret)
}

// DecodeAllowance returns the uint256 from an allowance result.
func DecodeAllowance(ret []byte) (*big.Int, error) {
	return unpackUint(erc20ABI, "allowance", ret)
}

func pack(a abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func unpackUint(a abi.ABI, method string, ret []byte) (*big.Int, error) {
	out, err := a.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, out[0])
	}
	return v, nil
}
