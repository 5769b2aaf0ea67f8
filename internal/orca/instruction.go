package orca

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const swapDiscriminator = 1

// SwapAccounts are the caller-side accounts of a legacy pool swap.
type SwapAccounts struct {
	// TransferAuthority signs the swap; it is the source account owner or
	// its approved delegate.
	TransferAuthority solana.PublicKey
	Source            solana.PublicKey
	Destination       solana.PublicKey
}

// BuildLegacySwapInstruction constructs an SPL Token Swap style instruction
// for Orca legacy pools
func BuildLegacySwapInstruction(
	pool *LegacyPool,
	amountIn uint64,
	minAmountOut uint64,
	accts SwapAccounts,
	aToB bool,
) (solana.Instruction, error) {

	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if !pool.OnChain() {
		return nil, fmt.Errorf("pool %s lacks on-chain program accounts", pool.Name)
	}

	poolSource, poolDest := pool.Vaults(aToB)

	// Account order:
	// swap_state, authority, user_transfer_authority (signer), user_source,
	// pool_source, pool_destination, user_destination, pool_mint,
	// fee_account, token_program, [host_fee_account]
	accounts := []*solana.AccountMeta{
		{PublicKey: pool.SwapAccount, IsWritable: true},
		{PublicKey: pool.Authority},
		{PublicKey: accts.TransferAuthority, IsSigner: true},
		{PublicKey: accts.Source, IsWritable: true},
		{PublicKey: poolSource, IsWritable: true},
		{PublicKey: poolDest, IsWritable: true},
		{PublicKey: accts.Destination, IsWritable: true},
		{PublicKey: pool.PoolMint, IsWritable: true},
		{PublicKey: pool.FeeAccount, IsWritable: true},
		{PublicKey: solana.TokenProgramID},
	}

	if pool.HostFeeAccount != nil {
		accounts = append(accounts, &solana.AccountMeta{
			PublicKey:  *pool.HostFeeAccount,
			IsWritable: true,
		})
	}

	// [u8 discriminator][u64 amount_in LE][u64 minimum_amount_out LE]
	data := make([]byte, 17)
	data[0] = swapDiscriminator
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	return solana.NewInstruction(pool.ProgramID, accounts, data), nil
}

// DetermineSwapDirection determines if swap is A->B based on input mint
func DetermineSwapDirection(pool *LegacyPool, inputMint solana.PublicKey) (bool, error) {
	if pool.TokenMintA.Equals(inputMint) {
		return true, nil
	}
	if pool.TokenMintB.Equals(inputMint) {
		return false, nil
	}
	return false, fmt.Errorf("input mint %s does not match pool mints", inputMint)
}
