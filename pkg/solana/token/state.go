package token

import (
	"crypto/ed25519"

	"github.com/DecentraGuild/escrow-go/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// AccountSize is the serialized size of a token account.
const AccountSize = 165

// optionSize is the COption tag width in the account layout.
const optionSize = 4

// Account mirrors the on-chain token account layout.
type Account struct {
	Mint  ed25519.PublicKey
	Owner ed25519.PublicKey
	// Amount of tokens this account holds.
	Amount uint64
	// Delegate authorized to spend up to DelegatedAmount, if set.
	Delegate ed25519.PublicKey
	State    AccountState
	// IsNative is set for wrapped SOL accounts, holding the rent-exempt
	// reserve the account balance may not drop below.
	IsNative        *uint64
	DelegatedAmount uint64
	// CloseAuthority may close the account, if set.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	binary.PutKey32(b, a.Mint, &offset)
	binary.PutKey32(b[offset:], a.Owner, &offset)
	binary.PutUint64(b[offset:], a.Amount, &offset)
	binary.PutOptionalKey32(b[offset:], a.Delegate, &offset, optionSize)
	b[offset] = byte(a.State)
	offset++
	binary.PutOptionalUint64(b[offset:], a.IsNative, &offset, optionSize)
	binary.PutUint64(b[offset:], a.DelegatedAmount, &offset)
	binary.PutOptionalKey32(b[offset:], a.CloseAuthority, &offset, optionSize)

	return b
}

func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	var offset int
	binary.GetKey32(b, &a.Mint, &offset)
	binary.GetKey32(b[offset:], &a.Owner, &offset)
	binary.GetUint64(b[offset:], &a.Amount, &offset)
	binary.GetOptionalKey32(b[offset:], &a.Delegate, &offset, optionSize)
	a.State = AccountState(b[offset])
	offset++
	binary.GetOptionalUint64(b[offset:], &a.IsNative, &offset, optionSize)
	binary.GetUint64(b[offset:], &a.DelegatedAmount, &offset)
	binary.GetOptionalKey32(b[offset:], &a.CloseAuthority, &offset, optionSize)

	return true
}
