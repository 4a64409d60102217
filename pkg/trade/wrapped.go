package trade

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
	"github.com/DecentraGuild/escrow-go/pkg/solana/system"
	"github.com/DecentraGuild/escrow-go/pkg/solana/token"
)

// IsWrappedSol reports whether the mint is the native SOL wrapper.
func IsWrappedSol(mint ed25519.PublicKey) bool {
	return bytes.Equal(mint, token.NativeMint)
}

// GetWrappedSolAccount returns the owner's associated wrapped SOL account.
func GetWrappedSolAccount(owner ed25519.PublicKey) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(owner, token.NativeMint)
}

// RequestAmountToLamports converts a human denominated amount to base
// units for a mint with the given decimals, truncating any fraction of a
// base unit.
func RequestAmountToLamports(amount decimal.Decimal, decimals uint32) (uint64, error) {
	if amount.IsNegative() {
		return 0, errors.Wrap(ErrInvalidIntent, "amount cannot be negative")
	}

	shifted := amount.Shift(int32(decimals)).Truncate(0)
	if !shifted.BigInt().IsUint64() {
		return 0, errors.Wrap(ErrInvalidIntent, "amount out of range")
	}
	return shifted.BigInt().Uint64(), nil
}

// WrappedSolHandler generates the setup and cleanup instructions needed to
// trade native SOL through the SPL token interface.
type WrappedSolHandler struct {
	log         *logrus.Entry
	sc          solana.Client
	tokenClient *token.Client
}

func NewWrappedSolHandler(sc solana.Client) *WrappedSolHandler {
	return &WrappedSolHandler{
		log:         logrus.StandardLogger().WithField("type", "trade/wrapped"),
		sc:          sc,
		tokenClient: token.NewClient(sc, token.NativeMint),
	}
}

// CalculateSolToTransfer returns the total lamports a wallet must hold to
// wrap the provided amount, including rent for the wrapped account.
func (h *WrappedSolHandler) CalculateSolToTransfer(amount uint64) (uint64, error) {
	rent, err := h.sc.GetMinimumBalanceForRentExemption(token.AccountSize)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rent for token account")
	}
	return amount + rent, nil
}

// WrapInstructions returns the instructions that fund the owner's wrapped
// SOL account with amount lamports, along with the cleanup instructions
// that unwrap any remainder back to native SOL.
//
// If the wrapped account already exists with a non-zero balance the wrap
// is refused, since mixing pre-existing wrapped funds with the trade
// amount makes the cleanup sweep ambiguous.
func (h *WrappedSolHandler) WrapInstructions(owner ed25519.PublicKey, amount uint64, commitment solana.Commitment) (setup, cleanup []solana.Instruction, account ed25519.PublicKey, err error) {
	account, err = GetWrappedSolAccount(owner)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to derive wrapped sol account")
	}

	required := amount

	existing, err := h.tokenClient.GetAccount(account, commitment)
	switch err {
	case nil:
		if existing.Amount > 0 {
			return nil, nil, nil, ErrAmbiguousWrappedAccount
		}
	case token.ErrAccountNotFound:
		createIx, _, err := token.CreateAssociatedTokenAccount(owner, owner, token.NativeMint)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "failed to create wrapped sol account instruction")
		}
		setup = append(setup, createIx)

		required, err = h.CalculateSolToTransfer(amount)
		if err != nil {
			return nil, nil, nil, err
		}
	case token.ErrInvalidTokenAccount:
		return nil, nil, nil, errors.Wrap(ErrAmbiguousWrappedAccount, "existing account is not a wrapped sol account")
	default:
		return nil, nil, nil, errors.Wrap(err, "failed to check wrapped sol account")
	}

	balance, err := h.sc.GetBalance(owner)
	if err == solana.ErrNoBalance {
		balance = 0
	} else if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to get owner balance")
	}
	if balance < required {
		return nil, nil, nil, errors.Wrapf(ErrInsufficientNativeBalance, "have %d lamports, need %d", balance, required)
	}

	setup = append(setup,
		system.Transfer(owner, account, amount),
		token.SyncNative(account),
	)
	cleanup = append(cleanup, token.CloseAccount(account, owner, owner))

	h.log.WithFields(logrus.Fields{
		"account": base58.Encode(account),
		"amount":  amount,
	}).Debug("generated wrapped sol instructions")

	return setup, cleanup, account, nil
}

// UnwrapInstructions returns the instructions that recover native SOL from
// the owner's wrapped account after it has received funds. If the account
// doesn't exist yet, creation instructions are included so it can receive
// the incoming transfer.
func (h *WrappedSolHandler) UnwrapInstructions(owner ed25519.PublicKey, commitment solana.Commitment) (setup, cleanup []solana.Instruction, account ed25519.PublicKey, err error) {
	account, err = GetWrappedSolAccount(owner)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to derive wrapped sol account")
	}

	_, err = h.sc.GetAccountInfo(account, commitment)
	if err == solana.ErrNoAccountInfo {
		createIx, _, err := token.CreateAssociatedTokenAccount(owner, owner, token.NativeMint)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "failed to create wrapped sol account instruction")
		}
		setup = append(setup, createIx)
	} else if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to check wrapped sol account")
	}

	cleanup = append(cleanup, token.CloseAccount(account, owner, owner))
	return setup, cleanup, account, nil
}
