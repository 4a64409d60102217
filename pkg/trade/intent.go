package trade

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Intent describes a maker's offer before it is turned into an on-chain
// escrow. Amounts are in base units of their respective mints.
type Intent struct {
	Maker ed25519.PublicKey

	OfferedMint   ed25519.PublicKey
	RequestedMint ed25519.PublicKey

	OfferedAmount   uint64
	RequestedAmount uint64

	// AllowPartialFill overrides the configured default when set.
	AllowPartialFill *bool
	ExpiresAt        time.Time

	WhitelistRequired bool
	WhitelistMint     ed25519.PublicKey

	// Nonce disambiguates otherwise identical escrows from the same maker.
	// When nil, a nonce is derived from the intent itself.
	Nonce *uint64
}

// Validate checks the intent against the minimum expiration window.
func (i *Intent) Validate(minExpiration time.Duration, now time.Time) error {
	if len(i.Maker) != ed25519.PublicKeySize {
		return errors.Wrap(ErrInvalidIntent, "invalid maker key")
	}
	if len(i.OfferedMint) != ed25519.PublicKeySize {
		return errors.Wrap(ErrInvalidIntent, "invalid offered mint")
	}
	if len(i.RequestedMint) != ed25519.PublicKeySize {
		return errors.Wrap(ErrInvalidIntent, "invalid requested mint")
	}
	if i.OfferedAmount == 0 {
		return errors.Wrap(ErrInvalidIntent, "offered amount must be positive")
	}
	if i.RequestedAmount == 0 {
		return errors.Wrap(ErrInvalidIntent, "requested amount must be positive")
	}
	if i.WhitelistRequired && len(i.WhitelistMint) != ed25519.PublicKeySize {
		return errors.Wrap(ErrInvalidIntent, "invalid whitelist mint")
	}
	if i.ExpiresAt.Before(now.Add(minExpiration)) {
		return errors.Wrapf(ErrInvalidIntent, "expiration must be at least %s away", minExpiration)
	}
	return nil
}

// GetNonce returns the explicit nonce, or one derived deterministically
// from the intent's identity fields.
func (i *Intent) GetNonce() uint64 {
	if i.Nonce != nil {
		return *i.Nonce
	}

	h := sha256.New()
	h.Write(i.Maker)
	h.Write(i.OfferedMint)
	h.Write(i.RequestedMint)

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(i.ExpiresAt.Unix()))
	h.Write(ts[:])

	return binary.LittleEndian.Uint64(h.Sum(nil)[:8])
}
