package asset

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var (
	// SPL Associated Token Account program
	associatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// SPL Token program instruction indexes
const (
	tokenIxTransfer = 3
	tokenIxApprove  = 4
	tokenIxRevoke   = 5
)

// FindAssociatedTokenAddress derives the ATA PDA for (owner, mint).
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	// Seeds: [owner, token_program, mint]
	ata, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			solana.TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		associatedTokenProgramID,
	)
	return ata, err
}

// NewCreateAssociatedTokenAccountIx builds an instruction to create an ATA.
// Account order (ATA program):
// 0. payer (signer, writable)
// 1. ata (writable)
// 2. owner
// 3. mint
// 4. system_program
// 5. token_program
func NewCreateAssociatedTokenAccountIx(payer, ata, owner, mint solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsWritable: true},
		{PublicKey: owner},
		{PublicKey: mint},
		{PublicKey: solana.SystemProgramID},
		{PublicKey: solana.TokenProgramID},
	}
	return solana.NewInstruction(associatedTokenProgramID, accounts, nil)
}

// NewTokenTransferIx moves amount from source to destination; authority is
// either the source owner or its approved delegate.
func NewTokenTransferIx(source, destination, authority solana.PublicKey, amount uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsWritable: true},
		{PublicKey: destination, IsWritable: true},
		{PublicKey: authority, IsSigner: true},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, amountData(tokenIxTransfer, amount))
}

// NewTokenApproveIx sets delegate's allowance on source to amount.
func NewTokenApproveIx(source, delegate, owner solana.PublicKey, amount uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsWritable: true},
		{PublicKey: delegate},
		{PublicKey: owner, IsSigner: true},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, amountData(tokenIxApprove, amount))
}

// NewTokenRevokeIx clears the delegate of source.
func NewTokenRevokeIx(source, owner solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsWritable: true},
		{PublicKey: owner, IsSigner: true},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, []byte{tokenIxRevoke})
}

// amountData lays out [u8 instruction][u64 amount LE].
func amountData(ix byte, amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = ix
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}
