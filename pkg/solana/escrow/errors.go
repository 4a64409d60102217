package escrow

type EscrowProgramError uint32

const (
	// The escrow has passed its expiration timestamp
	ErrEscrowExpired EscrowProgramError = iota + 0x1770

	// The fill amount exceeds the unfilled remainder
	ErrInsufficientRemainingAmount

	// The escrow does not allow partial fills
	ErrPartialFillNotAllowed

	// The vault balance does not match the offered amount
	ErrInvalidVaultBalance

	// The vault account does not match the derived address
	ErrInvalidVaultAccount

	// The escrow account does not match the derived address
	ErrInvalidEscrowAccount

	// The signer is not the maker of this escrow
	ErrInvalidMaker

	// A token account's mint does not match the escrow terms
	ErrInvalidTokenMint

	// The taker does not hold a whitelist entry for this escrow
	ErrWhitelistEntryMissing
)
