package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolToken is one side of a liquidity pool.
type PoolToken struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// PoolDay is one day of pool activity, newest first in PoolAnalytics.History.
type PoolDay struct {
	Date      time.Time       `json:"date"`
	VolumeUSD decimal.Decimal `json:"volumeUSD"`
	FeesUSD   decimal.Decimal `json:"feesUSD"`
	TVLUSD    decimal.Decimal `json:"tvlUSD"`
}

// PoolAnalytics summarises a Uniswap V3 pool. Volume24hUSD and Fees24hUSD come
// from the latest day; APR annualises those fees over the current TVL.
type PoolAnalytics struct {
	PoolID       string          `json:"poolId"`
	Token0       PoolToken       `json:"token0"`
	Token1       PoolToken       `json:"token1"`
	FeeTier      uint32          `json:"feeTier"`
	Liquidity    string          `json:"liquidity"`
	Token0Price  decimal.Decimal `json:"token0Price"`
	Token1Price  decimal.Decimal `json:"token1Price"`
	TVLUSD       decimal.Decimal `json:"tvlUSD"`
	TVLToken0    decimal.Decimal `json:"totalValueLockedToken0"`
	TVLToken1    decimal.Decimal `json:"totalValueLockedToken1"`
	VolumeUSD    decimal.Decimal `json:"volumeUSD"`
	FeesUSD      decimal.Decimal `json:"feesUSD"`
	Volume24hUSD decimal.Decimal `json:"volume24H"`
	Fees24hUSD   decimal.Decimal `json:"fees24H"`
	APR          decimal.Decimal `json:"apr"`
	History      []PoolDay       `json:"historicalData"`
}
