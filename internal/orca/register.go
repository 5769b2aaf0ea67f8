package orca

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// LegacyPoolConfig represents a pool entry in the JSON config. Only the mint,
// vault and fee fields are needed by the in-memory gateway; the program
// accounts are required when the pool is swapped on chain.
type LegacyPoolConfig struct {
	Name           string `json:"name"`
	ProgramID      string `json:"program_id,omitempty"`
	SwapAccount    string `json:"swap_account,omitempty"`
	Authority      string `json:"authority,omitempty"`
	TokenMintA     string `json:"token_mint_a"`
	TokenMintB     string `json:"token_mint_b"`
	VaultA         string `json:"vault_a"`
	VaultB         string `json:"vault_b"`
	PoolMint       string `json:"pool_mint,omitempty"`
	FeeAccount     string `json:"fee_account,omitempty"`
	HostFeeAccount string `json:"host_fee_account,omitempty"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`

	// Initial vault liquidity minted by the in-memory backend.
	SeedReserveA uint64 `json:"seed_reserve_a,omitempty"`
	SeedReserveB uint64 `json:"seed_reserve_b,omitempty"`
}

// LegacyPool represents a parsed, ready-to-use pool configuration
type LegacyPool struct {
	Name           string
	ProgramID      solana.PublicKey
	SwapAccount    solana.PublicKey
	Authority      solana.PublicKey
	TokenMintA     solana.PublicKey
	TokenMintB     solana.PublicKey
	VaultA         solana.PublicKey
	VaultB         solana.PublicKey
	PoolMint       solana.PublicKey
	FeeAccount     solana.PublicKey
	HostFeeAccount *solana.PublicKey
	FeeNumerator   uint64
	FeeDenominator uint64
	SeedReserveA   uint64
	SeedReserveB   uint64
}

// OnChain reports whether the pool carries every account the swap
// instruction needs.
func (p *LegacyPool) OnChain() bool {
	return !p.ProgramID.IsZero() && !p.SwapAccount.IsZero() && !p.Authority.IsZero() &&
		!p.PoolMint.IsZero() && !p.FeeAccount.IsZero()
}

// PoolRegistry holds all configured pools
type PoolRegistry struct {
	pools []LegacyPool
}

// NewPoolRegistry loads pools from a JSON file
func NewPoolRegistry(configPath string) (*PoolRegistry, error) {
	pools, err := LoadLegacyPoolsFromJSON(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}
	return &PoolRegistry{pools: pools}, nil
}

// NewPoolRegistryFromPools wraps already parsed pools.
func NewPoolRegistryFromPools(pools ...LegacyPool) *PoolRegistry {
	return &PoolRegistry{pools: pools}
}

// LoadLegacyPoolsFromJSON reads and parses pool configurations
func LoadLegacyPoolsFromJSON(path string) ([]LegacyPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseLegacyPools(data)
}

// ParseLegacyPools parses a JSON array of pool entries.
func ParseLegacyPools(data []byte) ([]LegacyPool, error) {
	var configs []LegacyPoolConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	pools := make([]LegacyPool, 0, len(configs))
	for i, cfg := range configs {
		pool, err := parsePoolConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// parsePoolConfig converts a config struct to a LegacyPool with validation
func parsePoolConfig(cfg LegacyPoolConfig) (LegacyPool, error) {
	if cfg.FeeDenominator == 0 {
		return LegacyPool{}, fmt.Errorf("fee_denominator must be > 0")
	}
	if cfg.FeeNumerator >= cfg.FeeDenominator {
		return LegacyPool{}, fmt.Errorf("fee_numerator must be < fee_denominator")
	}

	var err error
	pool := LegacyPool{
		Name:           cfg.Name,
		FeeNumerator:   cfg.FeeNumerator,
		FeeDenominator: cfg.FeeDenominator,
		SeedReserveA:   cfg.SeedReserveA,
		SeedReserveB:   cfg.SeedReserveB,
	}

	required := []struct {
		field string
		value string
		dst   *solana.PublicKey
	}{
		{"token_mint_a", cfg.TokenMintA, &pool.TokenMintA},
		{"token_mint_b", cfg.TokenMintB, &pool.TokenMintB},
		{"vault_a", cfg.VaultA, &pool.VaultA},
		{"vault_b", cfg.VaultB, &pool.VaultB},
	}
	for _, r := range required {
		if *r.dst, err = solana.PublicKeyFromBase58(r.value); err != nil {
			return LegacyPool{}, fmt.Errorf("%s: %w", r.field, err)
		}
	}
	if pool.TokenMintA.Equals(pool.TokenMintB) {
		return LegacyPool{}, fmt.Errorf("token_mint_a and token_mint_b are the same")
	}

	optional := []struct {
		field string
		value string
		dst   *solana.PublicKey
	}{
		{"program_id", cfg.ProgramID, &pool.ProgramID},
		{"swap_account", cfg.SwapAccount, &pool.SwapAccount},
		{"authority", cfg.Authority, &pool.Authority},
		{"pool_mint", cfg.PoolMint, &pool.PoolMint},
		{"fee_account", cfg.FeeAccount, &pool.FeeAccount},
	}
	for _, o := range optional {
		if o.value == "" {
			continue
		}
		if *o.dst, err = solana.PublicKeyFromBase58(o.value); err != nil {
			return LegacyPool{}, fmt.Errorf("%s: %w", o.field, err)
		}
	}

	if cfg.HostFeeAccount != "" {
		hostFee, err := solana.PublicKeyFromBase58(cfg.HostFeeAccount)
		if err != nil {
			return LegacyPool{}, fmt.Errorf("host_fee_account: %w", err)
		}
		pool.HostFeeAccount = &hostFee
	}

	return pool, nil
}

// FindPoolByMints searches for a pool matching the given token pair
func (r *PoolRegistry) FindPoolByMints(
	mintA, mintB solana.PublicKey,
) (*LegacyPool, error) {

	for i := range r.pools {
		pool := &r.pools[i]

		// Check both directions: A->B and B->A
		if (pool.TokenMintA.Equals(mintA) && pool.TokenMintB.Equals(mintB)) ||
			(pool.TokenMintA.Equals(mintB) && pool.TokenMintB.Equals(mintA)) {
			return pool, nil
		}
	}

	return nil, fmt.Errorf("no pool found for mints %s / %s", mintA, mintB)
}

// FindPoolByName searches for a pool by its name
func (r *PoolRegistry) FindPoolByName(name string) (*LegacyPool, error) {
	for i := range r.pools {
		if r.pools[i].Name == name {
			return &r.pools[i], nil
		}
	}
	return nil, fmt.Errorf("pool not found: %s", name)
}

// GetAllPools returns all registered pools
func (r *PoolRegistry) GetAllPools() []LegacyPool {
	return r.pools
}

// PoolCount returns the number of registered pools
func (r *PoolRegistry) PoolCount() int {
	return len(r.pools)
}
