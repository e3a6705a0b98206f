package registry

import "wallet-orchestrator/internal/domain/entity"

const (
	sepoliaChainID     int64 = 11155111
	unichainSepoliaID  int64 = 1301
	optimismSepoliaID  int64 = 11155420
	baseSepoliaChainID int64 = 84532
)

var sepoliaEther = entity.Currency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18}

// DefaultChains returns the built-in testnet registry.
func DefaultChains() []entity.ChainConfig {
	return []entity.ChainConfig{
		{
			ChainID:        sepoliaChainID,
			Name:           "Ethereum Sepolia",
			ShortName:      "sepolia",
			NativeCurrency: sepoliaEther,
			RPCURL:         "https://rpc.sepolia.org",
			BlockExplorer:  "https://sepolia.etherscan.io",
			BundlerURL:     "https://public.pimlico.io/v2/11155111/rpc",
			Tokens: []entity.TokenContract{
				{
					Address:  "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
					Symbol:   "USDC",
					Name:     "USD Coin",
					Decimals: 6,
				},
				{
					Address:  "0x9B063Cfa8BDC03492933caA8BEa7c3d89846b2a7",
					Symbol:   "COPE",
					Name:     "Cope Token",
					Decimals: 18,
				},
			},
			DEX: &entity.DEXConfig{
				Router:        "0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E",
				Quoter:        "0xEd1f6473345F45b75F8179591dd5bA1888cf2FB3",
				Factory:       "0x0227628f3F023bb0B980b67D528571c95c6DaC1c",
				WrappedNative: "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14",
				FeeTier:       3000,
			},
			IsDefault: true,
		},
		{
			ChainID:        unichainSepoliaID,
			Name:           "Unichain Sepolia",
			ShortName:      "unichain-sepolia",
			NativeCurrency: entity.Currency{Name: "Unichain Ether", Symbol: "ETH", Decimals: 18},
			RPCURL:         "https://sepolia.unichain.org",
			BlockExplorer:  "https://unichain-sepolia.blockscout.com",
			BundlerURL:     "https://public.pimlico.io/v2/1301/rpc",
			Tokens: []entity.TokenContract{
				{
					Address:  "0x078d782b760474a361dda0af3839290b0ef57ad6",
					Symbol:   "USDC",
					Name:     "USD Coin",
					Decimals: 6,
				},
			},
		},
		{
			ChainID:        optimismSepoliaID,
			Name:           "OP Sepolia",
			ShortName:      "op-sepolia",
			NativeCurrency: sepoliaEther,
			RPCURL:         "https://sepolia.optimism.io",
			BlockExplorer:  "https://sepolia-optimism.etherscan.io",
			BundlerURL:     "https://public.pimlico.io/v2/11155420/rpc",
			Tokens: []entity.TokenContract{
				{
					Address:  "0x5fd84259d66Cd46123540766Be93DFE6D43130D7",
					Symbol:   "USDC",
					Name:     "USD Coin",
					Decimals: 6,
				},
			},
		},
		{
			ChainID:        baseSepoliaChainID,
			Name:           "Base Sepolia",
			ShortName:      "base-sepolia",
			NativeCurrency: sepoliaEther,
			RPCURL:         "https://sepolia.base.org",
			BlockExplorer:  "https://sepolia.basescan.org",
			BundlerURL:     "https://public.pimlico.io/v2/84532/rpc",
			Tokens: []entity.TokenContract{
				{
					Address:  "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
					Symbol:   "USDC",
					Name:     "USD Coin",
					Decimals: 6,
				},
			},
		},
	}
}
