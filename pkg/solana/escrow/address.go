package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
	"github.com/DecentraGuild/escrow-go/pkg/solana/token"
)

var (
	statePrefix          = []byte("escrow_state")
	whitelistEntryPrefix = []byte("whitelist_entry")
)

type GetStateAddressArgs struct {
	Maker         ed25519.PublicKey
	OfferedMint   ed25519.PublicKey
	RequestedMint ed25519.PublicKey
	Nonce         uint64
}

type GetWhitelistEntryAddressArgs struct {
	Entity ed25519.PublicKey
}

func GetStateAddress(program ed25519.PublicKey, args *GetStateAddressArgs) (ed25519.PublicKey, uint8, error) {
	nonce := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonce, args.Nonce)

	return solana.FindProgramAddressAndBump(
		program,
		statePrefix,
		args.Maker,
		args.OfferedMint,
		args.RequestedMint,
		nonce,
	)
}

func GetWhitelistEntryAddress(program ed25519.PublicKey, args *GetWhitelistEntryAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		program,
		whitelistEntryPrefix,
		args.Entity,
	)
}

// GetVaultAddress returns the vault for an escrow state account. The vault
// is the state's associated token account for the offered mint, so it can
// be created and funded by the maker in the same transaction that runs the
// initialize instruction.
func GetVaultAddress(state, offeredMint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(state, offeredMint)
}
