package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

// RentSysVar is the address of the Rent system variable, which account
// creation instructions reference to compute rent exemption.
var RentSysVar = mustDecode("SysvarRent111111111111111111111111111111111")

func mustDecode(s string) ed25519.PublicKey {
	key, err := base58.Decode(s)
	if err != nil {
		panic(err)
	}
	return key
}
