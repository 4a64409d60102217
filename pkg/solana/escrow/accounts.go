package escrow

import (
	"bytes"
	"crypto/ed25519"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
)

// EscrowAccount is the on-chain record of an open trade. The maker's
// offered tokens sit in the vault until the escrow is cancelled, expires,
// or a taker fills it.
type EscrowAccount struct {
	DataVersion       EscrowDataVersion
	Maker             ed25519.PublicKey
	OfferedMint       ed25519.PublicKey
	RequestedMint     ed25519.PublicKey
	OfferedAmount     uint64
	RequestedAmount   uint64
	FilledAmount      uint64
	AllowPartialFill  bool
	ExpiresAt         int64
	WhitelistRequired bool
	WhitelistMint     ed25519.PublicKey
	Nonce             uint64
	VaultBump         uint8
	StateBump         uint8
}

const EscrowAccountSize = (8 + // discriminator
	1 + // data_version
	32 + // maker
	32 + // offered_mint
	32 + // requested_mint
	8 + // offered_amount
	8 + // requested_amount
	8 + // filled_amount
	1 + // allow_partial_fill
	8 + // expires_at
	1 + // whitelist_required
	32 + // whitelist_mint
	8 + // nonce
	1 + // vault_bump
	1) // state_bump

var escrowAccountDiscriminator = []byte{36, 69, 48, 18, 128, 225, 125, 135}

// EscrowAccountDiscriminator returns the discriminator bytes that prefix
// every escrow state account. Callers use it for server-side memcmp filters.
func EscrowAccountDiscriminator() []byte {
	discriminator := make([]byte, 8)
	copy(discriminator, escrowAccountDiscriminator)
	return discriminator
}

// Remaining returns the unfilled portion of the offered amount.
func (obj *EscrowAccount) Remaining() uint64 {
	return obj.OfferedAmount - obj.FilledAmount
}

// State classifies the escrow as observed at the given time.
func (obj *EscrowAccount) State(now time.Time) EscrowState {
	switch {
	case obj.FilledAmount == obj.OfferedAmount:
		return StateFilled
	case now.Unix() >= obj.ExpiresAt:
		return StateExpired
	case obj.FilledAmount > 0:
		return StatePartiallyFilled
	default:
		return StateOpen
	}
}

func (obj *EscrowAccount) ToString() string {
	var maker, offeredMint, requestedMint, whitelistMint string

	if obj.Maker != nil {
		maker = base58.Encode(obj.Maker)
	}
	if obj.OfferedMint != nil {
		offeredMint = base58.Encode(obj.OfferedMint)
	}
	if obj.RequestedMint != nil {
		requestedMint = base58.Encode(obj.RequestedMint)
	}
	if obj.WhitelistMint != nil {
		whitelistMint = base58.Encode(obj.WhitelistMint)
	}

	return "EscrowAccount{" +
		", data_version='" + strconv.Itoa(int(obj.DataVersion)) + "'" +
		", maker='" + maker + "'" +
		", offered_mint='" + offeredMint + "'" +
		", requested_mint='" + requestedMint + "'" +
		", offered_amount='" + strconv.FormatUint(obj.OfferedAmount, 10) + "'" +
		", requested_amount='" + strconv.FormatUint(obj.RequestedAmount, 10) + "'" +
		", filled_amount='" + strconv.FormatUint(obj.FilledAmount, 10) + "'" +
		", allow_partial_fill='" + strconv.FormatBool(obj.AllowPartialFill) + "'" +
		", expires_at='" + time.Unix(obj.ExpiresAt, 0).String() + "'" +
		", whitelist_required='" + strconv.FormatBool(obj.WhitelistRequired) + "'" +
		", whitelist_mint='" + whitelistMint + "'" +
		", nonce='" + strconv.FormatUint(obj.Nonce, 10) + "'" +
		", vault_bump='" + strconv.Itoa(int(obj.VaultBump)) + "'" +
		", state_bump='" + strconv.Itoa(int(obj.StateBump)) + "'" +
		"}"
}

// Serializes the EscrowAccount into its fixed on-chain layout.
func (obj *EscrowAccount) Marshal() []byte {
	data := make([]byte, EscrowAccountSize)

	var offset int

	putDiscriminator(data, escrowAccountDiscriminator, &offset)

	putEscrowDataVersion(data, obj.DataVersion, &offset)
	putKey(data, obj.Maker, &offset)
	putKey(data, obj.OfferedMint, &offset)
	putKey(data, obj.RequestedMint, &offset)
	putUint64(data, obj.OfferedAmount, &offset)
	putUint64(data, obj.RequestedAmount, &offset)
	putUint64(data, obj.FilledAmount, &offset)
	putBool(data, obj.AllowPartialFill, &offset)
	putInt64(data, obj.ExpiresAt, &offset)
	putBool(data, obj.WhitelistRequired, &offset)
	putKey(data, obj.WhitelistMint, &offset)
	putUint64(data, obj.Nonce, &offset)
	putUint8(data, obj.VaultBump, &offset)
	putUint8(data, obj.StateBump, &offset)

	return data
}

// Deserializes the EscrowAccount from the provided account data.
// Discriminator, version, and fill invariant violations are rejected
// rather than partially applied.
func (obj *EscrowAccount) Unmarshal(data []byte) error {
	if len(data) != EscrowAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	var discriminator []byte

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, escrowAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getEscrowDataVersion(data, &obj.DataVersion, &offset)
	if obj.DataVersion != DataVersion1 {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Maker, &offset)
	getKey(data, &obj.OfferedMint, &offset)
	getKey(data, &obj.RequestedMint, &offset)
	getUint64(data, &obj.OfferedAmount, &offset)
	getUint64(data, &obj.RequestedAmount, &offset)
	getUint64(data, &obj.FilledAmount, &offset)
	getBool(data, &obj.AllowPartialFill, &offset)
	getInt64(data, &obj.ExpiresAt, &offset)
	getBool(data, &obj.WhitelistRequired, &offset)
	getKey(data, &obj.WhitelistMint, &offset)
	getUint64(data, &obj.Nonce, &offset)
	getUint8(data, &obj.VaultBump, &offset)
	getUint8(data, &obj.StateBump, &offset)

	if obj.FilledAmount > obj.OfferedAmount {
		return ErrInvalidAccountData
	}

	return nil
}
