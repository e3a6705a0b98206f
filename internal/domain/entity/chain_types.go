package entity

import "strings"

// Currency defines the native currency details of a chain.
type Currency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int    `json:"decimals" yaml:"decimals"`
}

// TokenContract describes a well-known ERC-20 deployment on a chain.
type TokenContract struct {
	Address  string `json:"address" yaml:"address"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Decimals int    `json:"decimals" yaml:"decimals"`
}

// SameAddress reports whether addr refers to this token, ignoring hex case.
func (t TokenContract) SameAddress(addr string) bool {
	return strings.EqualFold(t.Address, addr)
}

// DEXConfig holds the Uniswap V3 deployment used for quoting and swapping on a chain.
type DEXConfig struct {
	Router        string `json:"router" yaml:"router"`
	Quoter        string `json:"quoter" yaml:"quoter"`
	Factory       string `json:"factory" yaml:"factory"`
	WrappedNative string `json:"wrappedNative" yaml:"wrappedNative"`
	FeeTier       uint32 `json:"feeTier" yaml:"feeTier"`
}

// ChainConfig is the static description of a supported chain.
type ChainConfig struct {
	ChainID        int64           `json:"chainId" yaml:"chainId"`
	Name           string          `json:"name" yaml:"name"`
	ShortName      string          `json:"shortName" yaml:"shortName"`
	NativeCurrency Currency        `json:"nativeCurrency" yaml:"nativeCurrency"`
	RPCURL         RPCURL          `json:"rpcUrl" yaml:"rpcUrl"`
	BlockExplorer  string          `json:"blockExplorer" yaml:"blockExplorer"`
	BundlerURL     string          `json:"bundlerUrl" yaml:"bundlerUrl"`
	Tokens         []TokenContract `json:"tokens" yaml:"tokens"`
	DEX            *DEXConfig      `json:"dex,omitempty" yaml:"dex,omitempty"`
	IsDefault      bool            `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`
}

// TxURL returns the explorer link for a transaction hash.
func (c ChainConfig) TxURL(hash string) string {
	if c.BlockExplorer == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(c.BlockExplorer, "/") + "/tx/" + hash
}
