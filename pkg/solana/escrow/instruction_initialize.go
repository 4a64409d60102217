package escrow

import (
	"bytes"
	"crypto/ed25519"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
)

var initializeInstructionDiscriminator = []byte{
	175, 175, 109, 31, 13, 152, 155, 237,
}

const (
	InitializeInstructionArgsSize = (8 + // offered_amount
		8 + // requested_amount
		1 + // allow_partial_fill
		8 + // expires_at
		1 + // whitelist_required
		8) // nonce
)

type InitializeInstructionArgs struct {
	OfferedAmount     uint64
	RequestedAmount   uint64
	AllowPartialFill  bool
	ExpiresAt         int64
	WhitelistRequired bool
	Nonce             uint64
}

type InitializeInstructionAccounts struct {
	Maker         ed25519.PublicKey
	Escrow        ed25519.PublicKey
	Vault         ed25519.PublicKey
	OfferedMint   ed25519.PublicKey
	RequestedMint ed25519.PublicKey
	WhitelistMint ed25519.PublicKey
}

// NewInitializeInstruction opens an escrow. The vault must already hold
// the offered amount; the program verifies the balance, so the funding
// transfer has to precede this instruction in the same transaction.
func NewInitializeInstruction(
	program ed25519.PublicKey,
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeInstructionDiscriminator)+
			InitializeInstructionArgsSize)

	putDiscriminator(data, initializeInstructionDiscriminator, &offset)
	putUint64(data, args.OfferedAmount, &offset)
	putUint64(data, args.RequestedAmount, &offset)
	putBool(data, args.AllowPartialFill, &offset)
	putInt64(data, args.ExpiresAt, &offset)
	putBool(data, args.WhitelistRequired, &offset)
	putUint64(data, args.Nonce, &offset)

	return Instruction{
		Program: program,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Maker,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Escrow,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Vault,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.OfferedMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.RequestedMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.WhitelistMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

func InitializeInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*InitializeInstructionArgs, *InitializeInstructionAccounts, error) {
	if idx >= len(txn.Message.Instructions) {
		return nil, nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte

	instruction := txn.Message.Instructions[idx]

	if len(instruction.Data) < len(initializeInstructionDiscriminator)+InitializeInstructionArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}

	getDiscriminator(instruction.Data, &discriminator, &offset)

	if !bytes.Equal(discriminator, initializeInstructionDiscriminator) {
		return nil, nil, ErrInvalidInstructionData
	}

	if len(instruction.Accounts) < 6 {
		return nil, nil, ErrInvalidInstructionData
	}

	var args InitializeInstructionArgs
	var accounts InitializeInstructionAccounts

	// Instruction Args
	getUint64(instruction.Data, &args.OfferedAmount, &offset)
	getUint64(instruction.Data, &args.RequestedAmount, &offset)
	getBool(instruction.Data, &args.AllowPartialFill, &offset)
	getInt64(instruction.Data, &args.ExpiresAt, &offset)
	getBool(instruction.Data, &args.WhitelistRequired, &offset)
	getUint64(instruction.Data, &args.Nonce, &offset)

	// Instruction Accounts
	accounts.Maker = txn.Message.Accounts[instruction.Accounts[0]]
	accounts.Escrow = txn.Message.Accounts[instruction.Accounts[1]]
	accounts.Vault = txn.Message.Accounts[instruction.Accounts[2]]
	accounts.OfferedMint = txn.Message.Accounts[instruction.Accounts[3]]
	accounts.RequestedMint = txn.Message.Accounts[instruction.Accounts[4]]
	accounts.WhitelistMint = txn.Message.Accounts[instruction.Accounts[5]]

	return &args, &accounts, nil
}
