package entity

import (
	"math/big"
	"strings"
	"time"
)

// NativeTokenAddress marks the chain's native currency in swap params.
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"

// SwapParams is a trade intent.
type SwapParams struct {
	TokenIn         string  `json:"tokenIn"`
	TokenOut        string  `json:"tokenOut"`
	AmountIn        string  `json:"amountIn"`
	SlippagePercent float64 `json:"slippagePercent"`
	Recipient       string  `json:"recipient"`
	ChainID         int64   `json:"chainId"`
}

// NativeIn reports whether the input side is the chain's native currency.
func (p SwapParams) NativeIn() bool {
	return strings.EqualFold(p.TokenIn, NativeTokenAddress)
}

// SameTrade reports whether other describes the same pair, amount and chain.
func (p SwapParams) SameTrade(other SwapParams) bool {
	return p.ChainID == other.ChainID &&
		strings.EqualFold(p.TokenIn, other.TokenIn) &&
		strings.EqualFold(p.TokenOut, other.TokenOut) &&
		p.AmountIn == other.AmountIn
}

// SwapQuote is an ephemeral quote for a SwapParams. Quotes are replaced, never mutated.
type SwapQuote struct {
	AmountIn           *big.Int   `json:"-"`
	AmountOut          *big.Int   `json:"-"`
	AmountOutFormatted string     `json:"amountOutFormatted"`
	PriceImpact        float64    `json:"priceImpact"`
	MinimumAmountOut   *big.Int   `json:"-"`
	Route              string     `json:"route"`
	FeeTier            uint32     `json:"feeTier"`
	QuotedAt           time.Time  `json:"quotedAt"`
	Params             SwapParams `json:"params"`
	RequestID          uint64     `json:"requestId,omitempty"`
}

// SwapResult is the combined outcome of an executed swap action.
type SwapResult struct {
	Approval *TxResult `json:"approval,omitempty"`
	Swap     *TxResult `json:"swap"`
}
