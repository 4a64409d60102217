package escrow

import (
	"bytes"
	"crypto/ed25519"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
)

var exchangeInstructionDiscriminator = []byte{
	47, 3, 27, 97, 215, 236, 219, 144,
}

const (
	ExchangeInstructionArgsSize = (8) // amount
)

type ExchangeInstructionArgs struct {
	// Amount is denominated in the offered mint. A full fill equals the
	// escrow's unfilled remainder and closes the vault and state.
	Amount uint64
}

type ExchangeInstructionAccounts struct {
	Taker          ed25519.PublicKey
	Escrow         ed25519.PublicKey
	Vault          ed25519.PublicKey
	TakerReceive   ed25519.PublicKey
	TakerPay       ed25519.PublicKey
	MakerReceive   ed25519.PublicKey
	WhitelistEntry ed25519.PublicKey
}

func NewExchangeInstruction(
	program ed25519.PublicKey,
	accounts *ExchangeInstructionAccounts,
	args *ExchangeInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(exchangeInstructionDiscriminator)+
			ExchangeInstructionArgsSize)

	putDiscriminator(data, exchangeInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	return Instruction{
		Program: program,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Taker,
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
				PublicKey:  accounts.TakerReceive,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TakerPay,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MakerReceive,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.WhitelistEntry,
				IsWritable: false,
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

func ExchangeInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*ExchangeInstructionArgs, *ExchangeInstructionAccounts, error) {
	if idx >= len(txn.Message.Instructions) {
		return nil, nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte

	instruction := txn.Message.Instructions[idx]

	if len(instruction.Data) < len(exchangeInstructionDiscriminator)+ExchangeInstructionArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}

	getDiscriminator(instruction.Data, &discriminator, &offset)

	if !bytes.Equal(discriminator, exchangeInstructionDiscriminator) {
		return nil, nil, ErrInvalidInstructionData
	}

	if len(instruction.Accounts) < 7 {
		return nil, nil, ErrInvalidInstructionData
	}

	var args ExchangeInstructionArgs
	var accounts ExchangeInstructionAccounts

	// Instruction Args
	getUint64(instruction.Data, &args.Amount, &offset)

	// Instruction Accounts
	accounts.Taker = txn.Message.Accounts[instruction.Accounts[0]]
	accounts.Escrow = txn.Message.Accounts[instruction.Accounts[1]]
	accounts.Vault = txn.Message.Accounts[instruction.Accounts[2]]
	accounts.TakerReceive = txn.Message.Accounts[instruction.Accounts[3]]
	accounts.TakerPay = txn.Message.Accounts[instruction.Accounts[4]]
	accounts.MakerReceive = txn.Message.Accounts[instruction.Accounts[5]]
	accounts.WhitelistEntry = txn.Message.Accounts[instruction.Accounts[6]]

	return &args, &accounts, nil
}
