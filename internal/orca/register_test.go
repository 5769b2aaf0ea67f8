package orca

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyPools(t *testing.T) {
	mintA, mintB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	vaultA, vaultB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	data := fmt.Sprintf(`[{
		"name": "SRC/DST",
		"token_mint_a": %q,
		"token_mint_b": %q,
		"vault_a": %q,
		"vault_b": %q,
		"fee_numerator": 3,
		"fee_denominator": 1000,
		"seed_reserve_a": 5000,
		"seed_reserve_b": 7000
	}]`, mintA, mintB, vaultA, vaultB)

	pools, err := ParseLegacyPools([]byte(data))
	require.NoError(t, err)
	require.Len(t, pools, 1)

	p := pools[0]
	assert.Equal(t, "SRC/DST", p.Name)
	assert.True(t, p.TokenMintA.Equals(mintA))
	assert.True(t, p.VaultB.Equals(vaultB))
	assert.Equal(t, uint64(5000), p.SeedReserveA)
	assert.Equal(t, uint64(7000), p.SeedReserveB)
	assert.False(t, p.OnChain())
	assert.Nil(t, p.HostFeeAccount)
}

func TestParseLegacyPools_Errors(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	vault := solana.NewWallet().PublicKey().String()

	tests := []struct {
		name string
		json string
	}{
		{"bad json", `{`},
		{"zero denominator", fmt.Sprintf(`[{"token_mint_a":%q,"token_mint_b":%q,"vault_a":%q,"vault_b":%q,"fee_numerator":0,"fee_denominator":0}]`,
			mint, solana.NewWallet().PublicKey(), vault, vault)},
		{"fee above denominator", fmt.Sprintf(`[{"token_mint_a":%q,"token_mint_b":%q,"vault_a":%q,"vault_b":%q,"fee_numerator":5,"fee_denominator":5}]`,
			mint, solana.NewWallet().PublicKey(), vault, vault)},
		{"invalid key", fmt.Sprintf(`[{"token_mint_a":"not-a-key","token_mint_b":%q,"vault_a":%q,"vault_b":%q,"fee_numerator":3,"fee_denominator":1000}]`,
			mint, vault, vault)},
		{"same mints", fmt.Sprintf(`[{"token_mint_a":%q,"token_mint_b":%q,"vault_a":%q,"vault_b":%q,"fee_numerator":3,"fee_denominator":1000}]`,
			mint, mint, vault, vault)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLegacyPools([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestPoolRegistry_Lookup(t *testing.T) {
	pool := LegacyPool{
		Name:           "A/B",
		TokenMintA:     solana.NewWallet().PublicKey(),
		TokenMintB:     solana.NewWallet().PublicKey(),
		FeeNumerator:   3,
		FeeDenominator: 1000,
	}
	reg := NewPoolRegistryFromPools(pool)

	found, err := reg.FindPoolByMints(pool.TokenMintB, pool.TokenMintA)
	require.NoError(t, err)
	assert.Equal(t, "A/B", found.Name)

	_, err = reg.FindPoolByMints(pool.TokenMintA, solana.NewWallet().PublicKey())
	assert.Error(t, err)

	found, err = reg.FindPoolByName("A/B")
	require.NoError(t, err)
	assert.True(t, found.TokenMintA.Equals(pool.TokenMintA))
	assert.Equal(t, 1, reg.PoolCount())
}

func TestNewPoolRegistry_File(t *testing.T) {
	_, err := NewPoolRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))
	reg, err := NewPoolRegistry(path)
	require.NoError(t, err)
	assert.Zero(t, reg.PoolCount())
}
