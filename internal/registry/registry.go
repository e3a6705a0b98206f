package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"wallet-orchestrator/internal/domain/entity"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	"wallet-orchestrator/internal/pkg/apperrors"
)

// Compile-time check
var _ domainRepo.ChainRepository = (*Registry)(nil)

// Registry is the immutable set of supported chains and their tokens.
// All methods are safe for concurrent use.
type Registry struct {
	chains []entity.ChainConfig
	byID   map[int64]int
}

// New validates chains and builds a registry from them.
func New(chains []entity.ChainConfig) (*Registry, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("%w: registry has no chains", apperrors.ErrConfiguration)
	}

	sorted := make([]entity.ChainConfig, len(chains))
	for i, c := range chains {
		sorted[i] = cloneChain(c)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsDefault != sorted[j].IsDefault {
			return sorted[i].IsDefault
		}
		return sorted[i].ChainID < sorted[j].ChainID
	})

	r := &Registry{
		chains: sorted,
		byID:   make(map[int64]int, len(sorted)),
	}
	defaults := 0
	for i, c := range sorted {
		if _, dup := r.byID[c.ChainID]; dup {
			return nil, fmt.Errorf("%w: duplicate chain id %d", apperrors.ErrConfiguration, c.ChainID)
		}
		if _, err := entity.NewRPCURL(c.RPCURL.String()); err != nil {
			return nil, fmt.Errorf("%w: chain %d: %v", apperrors.ErrConfiguration, c.ChainID, err)
		}
		if c.NativeCurrency.Decimals < 0 {
			return nil, fmt.Errorf("%w: chain %d: negative native decimals", apperrors.ErrConfiguration, c.ChainID)
		}
		if c.IsDefault {
			defaults++
		}
		r.byID[c.ChainID] = i
	}
	if defaults > 1 {
		return nil, fmt.Errorf("%w: %d chains marked as default", apperrors.ErrConfiguration, defaults)
	}

	return r, nil
}

// NewDefault returns the built-in registry.
func NewDefault() *Registry {
	r, err := New(DefaultChains())
	if err != nil {
		panic(err)
	}
	return r
}

type fileFormat struct {
	Chains []entity.ChainConfig `yaml:"chains"`
}

// LoadFile reads a YAML registry. An empty path yields the built-in registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return NewDefault(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read registry file %s: %v", apperrors.ErrConfiguration, path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: parse registry file %s: %v", apperrors.ErrConfiguration, path, err)
	}

	return New(f.Chains)
}

// GetChainByID returns the chain with the given id.
func (r *Registry) GetChainByID(chainID int64) (entity.ChainConfig, bool) {
	i, ok := r.byID[chainID]
	if !ok {
		return entity.ChainConfig{}, false
	}
	return cloneChain(r.chains[i]), true
}

// GetAllChains returns every chain, the default first and the rest by ascending id.
func (r *Registry) GetAllChains() []entity.ChainConfig {
	out := make([]entity.ChainConfig, len(r.chains))
	for i, c := range r.chains {
		out[i] = cloneChain(c)
	}
	return out
}

// GetChainTokens returns the tokens of a chain in registry order, or an empty slice.
func (r *Registry) GetChainTokens(chainID int64) []entity.TokenContract {
	i, ok := r.byID[chainID]
	if !ok {
		return []entity.TokenContract{}
	}
	out := make([]entity.TokenContract, len(r.chains[i].Tokens))
	copy(out, r.chains[i].Tokens)
	return out
}

// FindToken looks a token up by address on a chain.
func (r *Registry) FindToken(chainID int64, address string) (entity.TokenContract, bool) {
	i, ok := r.byID[chainID]
	if !ok {
		return entity.TokenContract{}, false
	}
	for _, t := range r.chains[i].Tokens {
		if t.SameAddress(address) {
			return t, true
		}
	}
	return entity.TokenContract{}, false
}

// DefaultChain returns the chain marked as default, or the first chain.
func (r *Registry) DefaultChain() entity.ChainConfig {
	return cloneChain(r.chains[0])
}

func cloneChain(c entity.ChainConfig) entity.ChainConfig {
	if c.Tokens != nil {
		tokens := make([]entity.TokenContract, len(c.Tokens))
		copy(tokens, c.Tokens)
		c.Tokens = tokens
	}
	if c.DEX != nil {
		dex := *c.DEX
		c.DEX = &dex
	}
	return c
}
