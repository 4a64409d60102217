package trade

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/DecentraGuild/escrow-go/pkg/solana/escrow"
)

// DerivedAddresses is the full set of program derived addresses for a
// single escrow.
type DerivedAddresses struct {
	Escrow     ed25519.PublicKey
	EscrowBump uint8
	Vault      ed25519.PublicKey
}

// AccountDeriver derives escrow PDAs for a specific program deployment.
type AccountDeriver struct {
	program ed25519.PublicKey
}

func NewAccountDeriver(program ed25519.PublicKey) *AccountDeriver {
	return &AccountDeriver{
		program: program,
	}
}

// Program returns the program id derivations are bound to.
func (d *AccountDeriver) Program() ed25519.PublicKey {
	return d.program
}

// DeriveEscrowAccounts derives the escrow state account and its vault.
func (d *AccountDeriver) DeriveEscrowAccounts(maker, offeredMint, requestedMint ed25519.PublicKey, nonce uint64) (*DerivedAddresses, error) {
	if len(maker) != ed25519.PublicKeySize ||
		len(offeredMint) != ed25519.PublicKeySize ||
		len(requestedMint) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidIntent, "invalid key length")
	}

	state, bump, err := escrow.GetStateAddress(d.program, &escrow.GetStateAddressArgs{
		Maker:         maker,
		OfferedMint:   offeredMint,
		RequestedMint: requestedMint,
		Nonce:         nonce,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive escrow state address")
	}

	vault, err := escrow.GetVaultAddress(state, offeredMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive vault address")
	}

	return &DerivedAddresses{
		Escrow:     state,
		EscrowBump: bump,
		Vault:      vault,
	}, nil
}

// DeriveWhitelistEntry derives the whitelist entry account for an entity.
func (d *AccountDeriver) DeriveWhitelistEntry(entity ed25519.PublicKey) (ed25519.PublicKey, error) {
	if len(entity) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidIntent, "invalid entity key")
	}

	address, _, err := escrow.GetWhitelistEntryAddress(d.program, &escrow.GetWhitelistEntryAddressArgs{
		Entity: entity,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive whitelist entry address")
	}
	return address, nil
}
