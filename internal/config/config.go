package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	RPC         RPCConfig         `mapstructure:"rpc"`
	Checker     CheckerConfig     `mapstructure:"checker"`
	Sponsorship SponsorshipConfig `mapstructure:"sponsorship"`
	Wallet      WalletConfig      `mapstructure:"wallet"`
	Swap        SwapConfig        `mapstructure:"swap"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
	Output   string `mapstructure:"output"`
}

// RPCConfig holds timeouts for chain reads and transaction submission.
type RPCConfig struct {
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
}

// CheckerConfig holds settings for the startup RPC health check.
type CheckerConfig struct {
	CheckTimeout time.Duration `mapstructure:"check_timeout"`
	RunOnStartup bool          `mapstructure:"run_on_startup"`
}

// SponsorshipConfig holds the gas manager policy settings.
type SponsorshipConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	APIKey     string            `mapstructure:"api_key"`
	PolicyID   string            `mapstructure:"policy_id"`
	EntryPoint string            `mapstructure:"entry_point"`
	BaseURL    string            `mapstructure:"base_url"`
	Networks   map[string]string `mapstructure:"networks"`
	Timeout    time.Duration     `mapstructure:"timeout"`
}

// WalletConfig holds the remote signer used by the HTTP service.
type WalletConfig struct {
	Address            string `mapstructure:"address"`
	SignerURL          string `mapstructure:"signer_url"`
	SponsoredSignerURL string `mapstructure:"sponsored_signer_url"`
}

// SwapConfig holds swap quoting and execution settings.
type SwapConfig struct {
	DefaultSlippage     float64       `mapstructure:"default_slippage"`
	FeeTier             uint32        `mapstructure:"fee_tier"`
	Deadline            time.Duration `mapstructure:"deadline"`
	QuoteMaxAge         time.Duration `mapstructure:"quote_max_age"`
	ConfirmationPoll    time.Duration `mapstructure:"confirmation_poll"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
}

// CacheConfig holds settings for the caching layer.
type CacheConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	BalanceTTL        time.Duration `mapstructure:"balance_ttl"`
	PriceTTL          time.Duration `mapstructure:"price_ttl"`
}

// PricingConfig holds the USD price source settings.
type PricingConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	IDs     map[string]string `mapstructure:"ids"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Pool    PoolPricingConfig `mapstructure:"pool"`
}

// PoolPricingConfig prices Symbols from their Uniswap pool against Quote, a
// dollar stablecoin. ChainID 0 selects the default chain.
type PoolPricingConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	ChainID int64    `mapstructure:"chain_id"`
	Quote   string   `mapstructure:"quote"`
	Symbols []string `mapstructure:"symbols"`
}

// AnalyticsConfig holds the pool analytics subgraph settings. URL may carry
// one %s verb for the API key.
type AnalyticsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	PoolID   string        `mapstructure:"pool_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RegistryConfig points at an optional YAML chain registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LedgerConfig holds the activity ledger location. An empty path disables it.
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "wallet-orchestrator")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("rpc.read_timeout", "10s")
	v.SetDefault("rpc.submit_timeout", "60s")
	v.SetDefault("checker.check_timeout", "5s")
	v.SetDefault("checker.run_on_startup", false)
	v.SetDefault("sponsorship.enabled", true)
	v.SetDefault("sponsorship.entry_point", "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	v.SetDefault("sponsorship.base_url", "https://%s.g.alchemy.com/v2/%s")
	v.SetDefault("sponsorship.networks", map[string]string{
		"11155111": "eth-sepolia",
		"11155420": "opt-sepolia",
		"84532":    "base-sepolia",
		"1301":     "unichain-sepolia",
	})
	v.SetDefault("sponsorship.timeout", "5s")
	v.SetDefault("swap.default_slippage", 0.5)
	v.SetDefault("swap.fee_tier", 3000)
	v.SetDefault("swap.deadline", "20m")
	v.SetDefault("swap.quote_max_age", "30s")
	v.SetDefault("swap.confirmation_poll", "2s")
	v.SetDefault("swap.confirmation_timeout", "2m")
	v.SetDefault("cache.default_expiration", "30s")
	v.SetDefault("cache.cleanup_interval", "5m")
	v.SetDefault("cache.balance_ttl", "15s")
	v.SetDefault("cache.price_ttl", "5m")
	v.SetDefault("pricing.enabled", true)
	v.SetDefault("pricing.url", "https://api.coingecko.com/api/v3/simple/price")
	v.SetDefault("pricing.ids", map[string]string{"ETH": "ethereum", "COPE": "cope"})
	v.SetDefault("pricing.timeout", "5s")
	v.SetDefault("pricing.pool.enabled", true)
	v.SetDefault("pricing.pool.chain_id", 0)
	v.SetDefault("pricing.pool.quote", "USDC")
	v.SetDefault("pricing.pool.symbols", []string{"COPE"})
	v.SetDefault("analytics.enabled", false)
	v.SetDefault("analytics.url", "https://gateway-arbitrum.network.thegraph.com/api/%s/subgraphs/id/5zvR82QoaXYFyDEKLZ9t6v9adgnptxYpKpSbxtgVENFV")
	v.SetDefault("analytics.api_key", "public")
	v.SetDefault("analytics.pool_id", "")
	v.SetDefault("analytics.timeout", "10s")
	v.SetDefault("analytics.cache_ttl", "1m")
	v.SetDefault("ledger.path", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Printf("Warning: Config file not found in %s or '.', using defaults/env vars\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("WALLET_ORCHESTRATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c RPCConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ReadTimeout
}

func (c RPCConfig) GetSubmitTimeout() time.Duration {
	if c.SubmitTimeout <= 0 {
		return 60 * time.Second
	}
	return c.SubmitTimeout
}

func (c CacheConfig) GetDefaultExpiration() time.Duration {
	return c.DefaultExpiration
}

func (c CacheConfig) GetCleanupInterval() time.Duration {
	return c.CleanupInterval
}

// NetworkFor returns the gas manager network slug for a chain id.
func (c SponsorshipConfig) NetworkFor(chainID int64) (string, bool) {
	slug, ok := c.Networks[fmt.Sprintf("%d", chainID)]
	return slug, ok && slug != ""
}
