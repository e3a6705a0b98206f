package calldata

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// q192 is 2^192, the scale of a squared Q64.96 sqrt price.
var q192 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 192))

// MidPrice converts a pool sqrtPriceX96 into base units of quote per base unit
// of base. Pools order their tokens by address; a zero price yields zero.
func MidPrice(sqrtPriceX96 *big.Int, base, quote common.Address) *big.Float {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return new(big.Float)
	}
	sq := new(big.Float).SetInt(sqrtPriceX96)
	price := new(big.Float).Quo(new(big.Float).Mul(sq, sq), q192)
	if bytes.Compare(base.Bytes(), quote.Bytes()) > 0 {
		price.Quo(big.NewFloat(1), price)
	}
	return price
}

// ExactInputSingleParams describes one exact-input swap through a single pool.
// Deadline is enforced by the multicall wrapper, not by the swap itself.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               uint32
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// abiExactInputSingle matches the SwapRouter02 tuple field for field, using the
// Go types go-ethereum binds uint24 and uint160 to.
type abiExactInputSingle struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type abiQuoteExactInputSingle struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// EncodeQuoteExactInputSingle encodes a QuoterV2 quoteExactInputSingle call
// with no price limit.
func EncodeQuoteExactInputSingle(tokenIn, tokenOut common.Address, fee uint32, amountIn *big.Int) ([]byte, error) {
	return pack(quoterABI, "quoteExactInputSingle", abiQuoteExactInputSingle{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: new(big.Int),
	})
}

// DecodeQuoteExactInputSingle returns amountOut from a QuoterV2 result.
func DecodeQuoteExactInputSingle(ret []byte) (*big.Int, error) {
	return unpackUint(quoterABI, "quoteExactInputSingle", ret)
}

// EncodeExactInputSingle encodes the swap as SwapRouter02
// multicall(deadline, [exactInputSingle(params)]).
func EncodeExactInputSingle(p ExactInputSingleParams) ([]byte, error) {
	if p.Deadline == nil {
		return nil, fmt.Errorf("pack exactInputSingle: missing deadline")
	}
	limit := p.SqrtPriceLimitX96
	if limit == nil {
		limit = new(big.Int)
	}
	swap, err := pack(routerABI, "exactInputSingle", abiExactInputSingle{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		Fee:               new(big.Int).SetUint64(uint64(p.Fee)),
		Recipient:         p.Recipient,
		AmountIn:          p.AmountIn,
		AmountOutMinimum:  p.AmountOutMinimum,
		SqrtPriceLimitX96: limit,
	})
	if err != nil {
		return nil, err
	}
	return pack(routerABI, "multicall", p.Deadline, [][]byte{swap})
}

// DecodeExactInputSingle reverses EncodeExactInputSingle.
func DecodeExactInputSingle(data []byte) (ExactInputSingleParams, error) {
	deadline, calls, err := decodeMulticall(data)
	if err != nil {
		return ExactInputSingleParams{}, err
	}
	if len(calls) != 1 {
		return ExactInputSingleParams{}, fmt.Errorf("unpack multicall: want 1 call, got %d", len(calls))
	}

	method := routerABI.Methods["exactInputSingle"]
	call := calls[0]
	if len(call) < 4 || !bytes.Equal(call[:4], method.ID) {
		return ExactInputSingleParams{}, fmt.Errorf("unpack exactInputSingle: unexpected selector")
	}
	vals, err := method.Inputs.Unpack(call[4:])
	if err != nil {
		return ExactInputSingleParams{}, fmt.Errorf("unpack exactInputSingle: %w", err)
	}
	raw := *abi.ConvertType(vals[0], new(abiExactInputSingle)).(*abiExactInputSingle)
	return ExactInputSingleParams{
		TokenIn:           raw.TokenIn,
		TokenOut:          raw.TokenOut,
		Fee:               uint32(raw.Fee.Uint64()),
		Recipient:         raw.Recipient,
		Deadline:          deadline,
		AmountIn:          raw.AmountIn,
		AmountOutMinimum:  raw.AmountOutMinimum,
		SqrtPriceLimitX96: raw.SqrtPriceLimitX96,
	}, nil
}

func decodeMulticall(data []byte) (*big.Int, [][]byte, error) {
	method := routerABI.Methods["multicall"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return nil, nil, fmt.Errorf("unpack multicall: unexpected selector")
	}
	vals, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("unpack multicall: %w", err)
	}
	deadline, ok := vals[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("unpack multicall: unexpected deadline type %T", vals[0])
	}
	calls, ok := vals[1].([][]byte)
	if !ok {
		return nil, nil, fmt.Errorf("unpack multicall: unexpected data type %T", vals[1])
	}
	return deadline, calls, nil
}

// EncodeGetPool encodes a factory getPool(tokenA, tokenB, fee) lookup.
func EncodeGetPool(tokenA, tokenB common.Address, fee uint32) ([]byte, error) {
	return pack(poolABI, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
}

// DecodeGetPool returns the pool address; the zero address means no pool.
func DecodeGetPool(ret []byte) (common.Address, error) {
	out, err := poolABI.Unpack("getPool", ret)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack getPool: %w", err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unpack getPool: unexpected type %T", out[0])
	}
	return addr, nil
}

// EncodeSlot0 encodes a pool slot0() read.
func EncodeSlot0() ([]byte, error) {
	return pack(poolABI, "slot0")
}

// DecodeSlot0 returns sqrtPriceX96 from a slot0 result.
func DecodeSlot0(ret []byte) (*big.Int, error) {
	return unpackUint(poolABI, "slot0", ret)
}
