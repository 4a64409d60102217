package trade

import "github.com/pkg/errors"

var (
	// ErrInvalidIntent indicates the trade intent failed validation before
	// any instructions were generated.
	ErrInvalidIntent = errors.New("invalid trade intent")

	// ErrInvalidFeeSchedule indicates a fee schedule with an out of range
	// percentage component.
	ErrInvalidFeeSchedule = errors.New("invalid fee schedule")

	// ErrAmbiguousWrappedAccount indicates the wallet's wrapped SOL account
	// already holds a balance, making the wrap amount ambiguous.
	ErrAmbiguousWrappedAccount = errors.New("wrapped sol account already holds a balance")

	// ErrWhitelistRejected indicates the taker has no whitelist entry for a
	// whitelist gated escrow.
	ErrWhitelistRejected = errors.New("taker is not whitelisted")

	// ErrSlippageExceeded indicates the effective exchange rate deviates from
	// the posted rate by more than the configured tolerance.
	ErrSlippageExceeded = errors.New("exchange rate outside slippage tolerance")

	// ErrInsufficientRemaining indicates the requested fill exceeds the
	// escrow's remaining amount.
	ErrInsufficientRemaining = errors.New("fill amount exceeds remaining escrow amount")

	// ErrPartialFillNotAllowed indicates a fill below the full remaining
	// amount against an escrow that requires complete fills.
	ErrPartialFillNotAllowed = errors.New("escrow does not allow partial fills")

	// ErrEscrowExpired indicates the escrow's expiration has passed.
	ErrEscrowExpired = errors.New("escrow has expired")

	// ErrEscrowFilled indicates a cancel against an escrow that has been
	// completely filled and holds nothing to refund.
	ErrEscrowFilled = errors.New("escrow is fully filled")

	// ErrInsufficientNativeBalance indicates the wallet holds fewer
	// lamports than a wrap requires, including rent for a new account.
	ErrInsufficientNativeBalance = errors.New("insufficient native sol balance")

	ErrEscrowNotFound    = errors.New("escrow account not found")
	ErrInvalidEscrowData = errors.New("invalid escrow account data")

	// ErrTransactionRejected indicates the cluster rejected the transaction
	// with a non-retriable error.
	ErrTransactionRejected = errors.New("transaction rejected")

	// ErrUnknownOutcome indicates confirmation polling gave out before the
	// signature was observed. The transaction may still land.
	ErrUnknownOutcome = errors.New("transaction outcome unknown")
)
