// Package escrow is the client binding for the on-chain escrow program.
//
// It covers account layouts, program derived addresses, and the three
// instructions the program exposes: initialize, exchange, and cancel.
package escrow

import (
	"crypto/ed25519"
	"errors"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

// Well known program and sysvar addresses referenced by escrow instructions.
var (
	SYSTEM_PROGRAM_ID               = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID            = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))
	SPL_ASSOCIATED_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"))

	SYSVAR_RENT_PUBKEY = ed25519.PublicKey(mustBase58Decode("SysvarRent111111111111111111111111111111111"))
)

// AccountMeta represents the account information required
// for building transactions.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsWritable bool
	IsSigner   bool
}

// Instruction represents a transaction instruction.
//
// The program is carried explicitly so the same binding drives any
// deployment of the escrow program (devnet, mainnet, forks).
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// ToLegacyInstruction converts the instruction into the form the
// transaction builder in the solana package consumes.
func (i Instruction) ToLegacyInstruction() solana.Instruction {
	metas := make([]solana.AccountMeta, len(i.Accounts))
	for n, meta := range i.Accounts {
		metas[n] = solana.AccountMeta{
			PublicKey:  meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}

	return solana.Instruction{
		Program:  i.Program,
		Accounts: metas,
		Data:     i.Data,
	}
}
