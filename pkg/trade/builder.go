package trade

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
	"github.com/DecentraGuild/escrow-go/pkg/solana/escrow"
	"github.com/DecentraGuild/escrow-go/pkg/solana/memo"
	"github.com/DecentraGuild/escrow-go/pkg/solana/token"
)

const memoVersion = 1

var zeroKey = make([]byte, ed25519.PublicKeySize)

// escrowMemo is attached to every generated transaction so indexers can
// correlate on-chain activity with escrows without decoding instructions.
type escrowMemo struct {
	Version int    `json:"v"`
	Kind    string `json:"kind"`
	Escrow  string `json:"escrow"`
	Nonce   uint64 `json:"nonce"`
}

// TransactionBuilder assembles unsigned instruction sequences for the
// escrow lifecycle. Builders only read from the chain to resolve account
// existence; they never submit anything.
type TransactionBuilder struct {
	log     *logrus.Entry
	sc      solana.Client
	deriver *AccountDeriver
	wrapped *WrappedSolHandler

	feeCollector         ed25519.PublicKey
	minExpiration        time.Duration
	slippageMilliPercent uint64
	defaultPartialFill   bool
	commitment           solana.Commitment
}

func NewTransactionBuilder(sc solana.Client, deriver *AccountDeriver, feeCollector ed25519.PublicKey, conf *Config) *TransactionBuilder {
	return &TransactionBuilder{
		log:     logrus.StandardLogger().WithField("type", "trade/builder"),
		sc:      sc,
		deriver: deriver,
		wrapped: NewWrappedSolHandler(sc),

		feeCollector:         feeCollector,
		minExpiration:        conf.MinExpiration,
		slippageMilliPercent: conf.SlippageMilliPercent,
		defaultPartialFill:   conf.DefaultPartialFill,
		commitment:           conf.CommitmentLevel(),
	}
}

// BuildInitialize generates the instruction sequence that opens an escrow
// for the provided intent: wrap native SOL if needed, create and fund the
// vault, pay the maker fee, then initialize the escrow state. No
// instructions are returned on any error.
func (b *TransactionBuilder) BuildInitialize(intent *Intent, fee ShopFee) ([]solana.Instruction, *DerivedAddresses, error) {
	if err := intent.Validate(b.minExpiration, time.Now()); err != nil {
		return nil, nil, err
	}

	makerFee, err := CalculateMakerFee(intent.OfferedAmount, fee)
	if err != nil {
		return nil, nil, err
	}

	allowPartialFill := b.defaultPartialFill
	if intent.AllowPartialFill != nil {
		allowPartialFill = *intent.AllowPartialFill
	}

	nonce := intent.GetNonce()
	derived, err := b.deriver.DeriveEscrowAccounts(intent.Maker, intent.OfferedMint, intent.RequestedMint, nonce)
	if err != nil {
		return nil, nil, err
	}

	var instructions []solana.Instruction
	var cleanup []solana.Instruction

	makerSource, err := token.GetAssociatedAccount(intent.Maker, intent.OfferedMint)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to derive maker token account")
	}

	if IsWrappedSol(intent.OfferedMint) {
		wrapSetup, wrapCleanup, wrapped, err := b.wrapped.WrapInstructions(intent.Maker, intent.OfferedAmount+makerFee, b.commitment)
		if err != nil {
			return nil, nil, err
		}

		makerSource = wrapped
		instructions = append(instructions, wrapSetup...)
		cleanup = append(cleanup, wrapCleanup...)
	}

	createVault, _, err := token.CreateAssociatedTokenAccountIdempotent(intent.Maker, derived.Escrow, intent.OfferedMint)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create vault instruction")
	}
	instructions = append(instructions,
		createVault,
		token.Transfer(makerSource, derived.Vault, intent.Maker, intent.OfferedAmount),
	)

	if makerFee > 0 {
		feeInstructions, err := b.feeTransfer(intent.Maker, makerSource, intent.OfferedMint, makerFee)
		if err != nil {
			return nil, nil, err
		}
		instructions = append(instructions, feeInstructions...)
	}

	memoIx, err := b.memoInstruction("escrow_init", derived.Escrow, nonce)
	if err != nil {
		return nil, nil, err
	}
	instructions = append(instructions, memoIx)

	whitelistMint := intent.WhitelistMint
	if !intent.WhitelistRequired {
		whitelistMint = zeroKey
	}

	instructions = append(instructions, escrow.NewInitializeInstruction(
		b.deriver.Program(),
		&escrow.InitializeInstructionAccounts{
			Maker:         intent.Maker,
			Escrow:        derived.Escrow,
			Vault:         derived.Vault,
			OfferedMint:   intent.OfferedMint,
			RequestedMint: intent.RequestedMint,
			WhitelistMint: whitelistMint,
		},
		&escrow.InitializeInstructionArgs{
			OfferedAmount:     intent.OfferedAmount,
			RequestedAmount:   intent.RequestedAmount,
			AllowPartialFill:  allowPartialFill,
			ExpiresAt:         intent.ExpiresAt.Unix(),
			WhitelistRequired: intent.WhitelistRequired,
			Nonce:             nonce,
		},
	).ToLegacyInstruction())

	instructions = append(instructions, cleanup...)

	b.log.WithFields(logrus.Fields{
		"escrow": base58.Encode(derived.Escrow),
		"nonce":  nonce,
	}).Debug("built initialize instructions")

	return instructions, derived, nil
}

// BuildCancel generates the instruction sequence that closes an open
// escrow and refunds the unfilled remainder to the maker.
func (b *TransactionBuilder) BuildCancel(escrowAddress ed25519.PublicKey, account *escrow.EscrowAccount) ([]solana.Instruction, error) {
	if len(escrowAddress) != ed25519.PublicKeySize || account == nil {
		return nil, errors.Wrap(ErrInvalidIntent, "invalid escrow")
	}
	if account.Remaining() == 0 {
		return nil, errors.Wrap(ErrEscrowFilled, "nothing to refund")
	}

	vault, err := escrow.GetVaultAddress(escrowAddress, account.OfferedMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive vault address")
	}

	var instructions []solana.Instruction
	var cleanup []solana.Instruction

	var refund ed25519.PublicKey
	if IsWrappedSol(account.OfferedMint) {
		setup, unwrapCleanup, wrapped, err := b.wrapped.UnwrapInstructions(account.Maker, b.commitment)
		if err != nil {
			return nil, err
		}

		refund = wrapped
		instructions = append(instructions, setup...)
		cleanup = append(cleanup, unwrapCleanup...)
	} else {
		setup, created, err := b.ensureTokenAccount(account.Maker, account.Maker, account.OfferedMint)
		if err != nil {
			return nil, err
		}

		refund = created
		instructions = append(instructions, setup...)
	}

	memoIx, err := b.memoInstruction("escrow_cancel", escrowAddress, account.Nonce)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, memoIx)

	instructions = append(instructions, escrow.NewCancelInstruction(
		b.deriver.Program(),
		&escrow.CancelInstructionAccounts{
			Maker:       account.Maker,
			Escrow:      escrowAddress,
			Vault:       vault,
			MakerRefund: refund,
		},
	).ToLegacyInstruction())

	instructions = append(instructions, cleanup...)
	return instructions, nil
}

// BuildExchange generates the instruction sequence that fills an escrow
// for amount base units of the offered mint. All invariants are checked
// before any instructions are generated: expiration, remaining amount,
// partial fill policy, whitelist membership, and slippage.
func (b *TransactionBuilder) BuildExchange(taker, escrowAddress ed25519.PublicKey, account *escrow.EscrowAccount, amount uint64, fee ShopFee) ([]solana.Instruction, error) {
	if len(taker) != ed25519.PublicKeySize || len(escrowAddress) != ed25519.PublicKeySize || account == nil {
		return nil, errors.Wrap(ErrInvalidIntent, "invalid exchange parameters")
	}
	if amount == 0 {
		return nil, errors.Wrap(ErrInvalidIntent, "fill amount must be positive")
	}
	if bytes.Equal(taker, account.Maker) {
		return nil, errors.Wrap(ErrInvalidIntent, "maker cannot fill own escrow")
	}

	if account.ExpiresAt > 0 && !time.Now().Before(time.Unix(account.ExpiresAt, 0)) {
		return nil, ErrEscrowExpired
	}

	remaining := account.Remaining()
	if amount > remaining {
		return nil, errors.Wrapf(ErrInsufficientRemaining, "requested %d of %d remaining", amount, remaining)
	}
	if !account.AllowPartialFill && amount != remaining {
		return nil, ErrPartialFillNotAllowed
	}

	whitelistEntry, err := b.deriver.DeriveWhitelistEntry(taker)
	if err != nil {
		return nil, err
	}
	if account.WhitelistRequired {
		if _, err := b.sc.GetAccountInfo(whitelistEntry, b.commitment); err == solana.ErrNoAccountInfo {
			return nil, ErrWhitelistRejected
		} else if err != nil {
			return nil, errors.Wrap(err, "failed to check whitelist entry")
		}
	}

	payment, err := calculatePayment(amount, account.OfferedAmount, account.RequestedAmount)
	if err != nil {
		return nil, err
	}
	if err := b.checkSlippage(amount, payment, account.OfferedAmount, account.RequestedAmount); err != nil {
		return nil, err
	}

	takerFee, err := CalculateTakerFee(payment, fee)
	if err != nil {
		return nil, err
	}

	vault, err := escrow.GetVaultAddress(escrowAddress, account.OfferedMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive vault address")
	}

	// The vault must still hold the requested amount. A shortfall means
	// the caller's view of the escrow is stale relative to the chain.
	vaultBalance, _, err := b.sc.GetTokenAccountBalance(vault)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get vault balance")
	}
	if vaultBalance < amount {
		return nil, errors.Wrapf(ErrInvalidEscrowData, "vault holds %d of %d requested", vaultBalance, amount)
	}

	var instructions []solana.Instruction
	var cleanup []solana.Instruction

	// Account receiving the offered asset.
	var takerReceive ed25519.PublicKey
	if IsWrappedSol(account.OfferedMint) {
		setup, unwrapCleanup, wrapped, err := b.wrapped.UnwrapInstructions(taker, b.commitment)
		if err != nil {
			return nil, err
		}

		takerReceive = wrapped
		instructions = append(instructions, setup...)
		cleanup = append(cleanup, unwrapCleanup...)
	} else {
		setup, created, err := b.ensureTokenAccount(taker, taker, account.OfferedMint)
		if err != nil {
			return nil, err
		}

		takerReceive = created
		instructions = append(instructions, setup...)
	}

	// Account paying the requested asset.
	var takerPay ed25519.PublicKey
	if IsWrappedSol(account.RequestedMint) {
		setup, wrapCleanup, wrapped, err := b.wrapped.WrapInstructions(taker, payment+takerFee, b.commitment)
		if err != nil {
			return nil, err
		}

		takerPay = wrapped
		instructions = append(instructions, setup...)
		cleanup = append(cleanup, wrapCleanup...)
	} else {
		takerPay, err = token.GetAssociatedAccount(taker, account.RequestedMint)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive taker pay account")
		}
	}

	// The maker receives payment directly during the exchange, so their
	// token account has to exist up front. The taker subsidizes it.
	makerSetup, makerReceive, err := b.ensureTokenAccount(taker, account.Maker, account.RequestedMint)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, makerSetup...)

	if takerFee > 0 {
		feeInstructions, err := b.feeTransfer(taker, takerPay, account.RequestedMint, takerFee)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, feeInstructions...)
	}

	memoIx, err := b.memoInstruction("escrow_exchange", escrowAddress, account.Nonce)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, memoIx)

	instructions = append(instructions, escrow.NewExchangeInstruction(
		b.deriver.Program(),
		&escrow.ExchangeInstructionAccounts{
			Taker:          taker,
			Escrow:         escrowAddress,
			Vault:          vault,
			TakerReceive:   takerReceive,
			TakerPay:       takerPay,
			MakerReceive:   makerReceive,
			WhitelistEntry: whitelistEntry,
		},
		&escrow.ExchangeInstructionArgs{
			Amount: amount,
		},
	).ToLegacyInstruction())

	instructions = append(instructions, cleanup...)

	b.log.WithFields(logrus.Fields{
		"escrow":  base58.Encode(escrowAddress),
		"amount":  amount,
		"payment": payment,
	}).Debug("built exchange instructions")

	return instructions, nil
}

// calculatePayment computes floor(amount * requested / offered), the
// requested mint base units owed for a fill of amount offered units.
func calculatePayment(amount, offered, requested uint64) (uint64, error) {
	product := decimal.NewFromUint64(amount).Mul(decimal.NewFromUint64(requested))
	quotient, _ := product.QuoRem(decimal.NewFromUint64(offered), 0)

	payment := quotient.BigInt().Uint64()
	if payment == 0 {
		return 0, errors.Wrap(ErrInvalidIntent, "fill amount rounds to zero payment")
	}
	return payment, nil
}

// checkSlippage verifies the rounded payment doesn't move the effective
// rate away from the posted rate by more than the tolerance. The check is
// cross-multiplied so it stays exact:
//
//	|payment/amount - requested/offered| / (requested/offered) <= tolerance
func (b *TransactionBuilder) checkSlippage(amount, payment, offered, requested uint64) error {
	exact := decimal.NewFromUint64(amount).Mul(decimal.NewFromUint64(requested))
	actual := decimal.NewFromUint64(payment).Mul(decimal.NewFromUint64(offered))

	deviation := actual.Sub(exact).Abs().Mul(decimal.NewFromInt(PercentFeeDivisor))
	tolerance := exact.Mul(decimal.NewFromUint64(b.slippageMilliPercent))

	if deviation.GreaterThan(tolerance) {
		return ErrSlippageExceeded
	}
	return nil
}

// ensureTokenAccount returns the associated token account for the wallet
// and mint, with a creation instruction when it doesn't exist yet.
func (b *TransactionBuilder) ensureTokenAccount(payer, wallet, mint ed25519.PublicKey) ([]solana.Instruction, ed25519.PublicKey, error) {
	account, err := token.GetAssociatedAccount(wallet, mint)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to derive associated token account")
	}

	_, err = b.sc.GetAccountInfo(account, b.commitment)
	if err == solana.ErrNoAccountInfo {
		// The idempotent variant tolerates the account landing between
		// this check and submission.
		createIx, _, err := token.CreateAssociatedTokenAccountIdempotent(payer, wallet, mint)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create token account instruction")
		}
		return []solana.Instruction{createIx}, account, nil
	} else if err != nil {
		return nil, nil, errors.Wrap(err, "failed to check token account")
	}

	return nil, account, nil
}

// feeTransfer moves fee base units from source to the fee collector's
// token account for the mint, creating the collector account if needed.
func (b *TransactionBuilder) feeTransfer(payer, source, mint ed25519.PublicKey, fee uint64) ([]solana.Instruction, error) {
	setup, collector, err := b.ensureTokenAccount(payer, b.feeCollector, mint)
	if err != nil {
		return nil, err
	}
	return append(setup, token.Transfer(source, collector, payer, fee)), nil
}

func (b *TransactionBuilder) memoInstruction(kind string, escrowAddress ed25519.PublicKey, nonce uint64) (solana.Instruction, error) {
	data, err := json.Marshal(escrowMemo{
		Version: memoVersion,
		Kind:    kind,
		Escrow:  base58.Encode(escrowAddress),
		Nonce:   nonce,
	})
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "failed to marshal memo")
	}
	return memo.Instruction(string(data)), nil
}
