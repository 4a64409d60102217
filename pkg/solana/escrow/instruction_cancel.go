package escrow

import (
	"bytes"
	"crypto/ed25519"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
)

var cancelInstructionDiscriminator = []byte{
	232, 219, 223, 41, 219, 236, 220, 190,
}

type CancelInstructionAccounts struct {
	Maker       ed25519.PublicKey
	Escrow      ed25519.PublicKey
	Vault       ed25519.PublicKey
	MakerRefund ed25519.PublicKey
}

// NewCancelInstruction returns the unfilled remainder of the vault to the
// maker's refund token account and closes the vault and escrow state.
// There are no arguments and no fee on cancel.
func NewCancelInstruction(
	program ed25519.PublicKey,
	accounts *CancelInstructionAccounts,
) Instruction {
	var offset int

	data := make([]byte, len(cancelInstructionDiscriminator))
	putDiscriminator(data, cancelInstructionDiscriminator, &offset)

	return Instruction{
		Program: program,

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
				PublicKey:  accounts.MakerRefund,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

func CancelInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*CancelInstructionAccounts, error) {
	if idx >= len(txn.Message.Instructions) {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte

	instruction := txn.Message.Instructions[idx]

	if len(instruction.Data) < len(cancelInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	getDiscriminator(instruction.Data, &discriminator, &offset)

	if !bytes.Equal(discriminator, cancelInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	if len(instruction.Accounts) < 4 {
		return nil, ErrInvalidInstructionData
	}

	var accounts CancelInstructionAccounts

	// Instruction Accounts
	accounts.Maker = txn.Message.Accounts[instruction.Accounts[0]]
	accounts.Escrow = txn.Message.Accounts[instruction.Accounts[1]]
	accounts.Vault = txn.Message.Accounts[instruction.Accounts[2]]
	accounts.MakerRefund = txn.Message.Accounts[instruction.Accounts[3]]

	return &accounts, nil
}
