package trade

import (
	"bytes"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
	"github.com/DecentraGuild/escrow-go/pkg/solana/escrow"
)

// makerOffset is the byte offset of the maker key within an escrow state
// account, used for server-side memcmp filtering.
const makerOffset = 9

// EscrowWithAddress pairs a decoded escrow state account with its address
// and the slot it was observed at.
type EscrowWithAddress struct {
	Address ed25519.PublicKey
	Slot    uint64
	Account *escrow.EscrowAccount
}

// EscrowFetcher reads escrow state accounts from the chain.
type EscrowFetcher struct {
	log        *logrus.Entry
	sc         solana.Client
	program    ed25519.PublicKey
	commitment solana.Commitment
}

func NewEscrowFetcher(sc solana.Client, program ed25519.PublicKey, commitment solana.Commitment) *EscrowFetcher {
	return &EscrowFetcher{
		log:        logrus.StandardLogger().WithField("type", "trade/fetcher"),
		sc:         sc,
		program:    program,
		commitment: commitment,
	}
}

// FetchEscrow returns the escrow state at the provided address.
func (f *EscrowFetcher) FetchEscrow(address ed25519.PublicKey) (*escrow.EscrowAccount, error) {
	info, err := f.sc.GetAccountInfo(address, f.commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrEscrowNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow account")
	}

	if !bytes.Equal(info.Owner, f.program) {
		return nil, errors.Wrap(ErrInvalidEscrowData, "account not owned by escrow program")
	}

	var account escrow.EscrowAccount
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(ErrInvalidEscrowData, err.Error())
	}
	return &account, nil
}

// FetchAllEscrows returns every escrow state account for the program,
// optionally narrowed by filters. Accounts that fail to decode are
// skipped and logged rather than failing the whole listing.
func (f *EscrowFetcher) FetchAllEscrows(filters ...FetchFilter) ([]EscrowWithAddress, error) {
	memcmps := []solana.MemcmpFilter{
		{
			Offset: 0,
			Bytes:  escrow.EscrowAccountDiscriminator(),
		},
	}
	for _, filter := range filters {
		memcmps = append(memcmps, filter())
	}

	programAccounts, slot, err := f.sc.GetProgramAccounts(f.program, f.commitment, memcmps...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get program accounts")
	}

	escrows := make([]EscrowWithAddress, 0, len(programAccounts))
	for _, programAccount := range programAccounts {
		var account escrow.EscrowAccount
		if err := account.Unmarshal(programAccount.Account.Data); err != nil {
			f.log.WithError(err).WithField("address", base58.Encode(programAccount.PublicKey)).Warn("skipping malformed escrow account")
			continue
		}

		escrows = append(escrows, EscrowWithAddress{
			Address: programAccount.PublicKey,
			Slot:    slot,
			Account: &account,
		})
	}
	return escrows, nil
}

// TradeEventKind classifies what a historical transaction did to an
// escrow.
type TradeEventKind string

const (
	TradeEventInitialize TradeEventKind = "initialize"
	TradeEventExchange   TradeEventKind = "exchange"
	TradeEventCancel     TradeEventKind = "cancel"

	// TradeEventUnknown covers transactions that touched the escrow but
	// carry no recognizable escrow program instruction, and transactions
	// the node has already pruned.
	TradeEventUnknown TradeEventKind = "unknown"
)

// TradeEvent is one entry in an escrow's transaction history.
type TradeEvent struct {
	Kind      TradeEventKind
	Signature solana.Signature
	Slot      uint64
	BlockTime *time.Time
	Err       *solana.TransactionError

	// Amount is set for exchange events only, denominated in the offered
	// mint.
	Amount *uint64
}

// FetchHistory returns the most recent transactions that referenced the
// escrow address, newest first, classified by the escrow instruction
// they carried. The returned slot is the slot the listing was observed
// at.
func (f *EscrowFetcher) FetchHistory(escrowAddress ed25519.PublicKey, limit uint64) ([]TradeEvent, uint64, error) {
	slot, err := f.sc.GetSlot(f.commitment)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get slot")
	}

	sigs, err := f.sc.GetSignaturesForAddress(escrowAddress, f.commitment, limit, "", "")
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get signatures for escrow")
	}

	events := make([]TradeEvent, 0, len(sigs))
	for _, sig := range sigs {
		event := TradeEvent{
			Kind:      TradeEventUnknown,
			Signature: sig.Signature,
			Slot:      sig.Slot,
			BlockTime: sig.BlockTime,
			Err:       sig.Err,
		}

		txn, err := f.sc.GetTransaction(sig.Signature, f.commitment)
		if err == solana.ErrSignatureNotFound {
			f.log.WithField("signature", base58.Encode(sig.Signature[:])).Debug("transaction pruned from node history")
			events = append(events, event)
			continue
		} else if err != nil {
			return nil, 0, errors.Wrap(err, "failed to get transaction")
		}

		event.Kind, event.Amount = f.classifyTransaction(txn.Transaction)
		events = append(events, event)
	}
	return events, slot, nil
}

// classifyTransaction finds the first escrow program instruction in the
// transaction and reports which operation it was.
func (f *EscrowFetcher) classifyTransaction(txn solana.Transaction) (TradeEventKind, *uint64) {
	for i, instruction := range txn.Message.Instructions {
		program := int(instruction.ProgramIndex)
		if program >= len(txn.Message.Accounts) || !bytes.Equal(txn.Message.Accounts[program], f.program) {
			continue
		}

		if args, _, err := escrow.ExchangeInstructionFromLegacyInstruction(txn, i); err == nil {
			return TradeEventExchange, &args.Amount
		}
		if _, _, err := escrow.InitializeInstructionFromLegacyInstruction(txn, i); err == nil {
			return TradeEventInitialize, nil
		}
		if _, err := escrow.CancelInstructionFromLegacyInstruction(txn, i); err == nil {
			return TradeEventCancel, nil
		}
	}
	return TradeEventUnknown, nil
}

// FetchFilter narrows a FetchAllEscrows listing server-side.
type FetchFilter func() solana.MemcmpFilter

// WithMaker restricts the listing to escrows opened by the maker.
func WithMaker(maker ed25519.PublicKey) FetchFilter {
	return func() solana.MemcmpFilter {
		return solana.MemcmpFilter{
			Offset: makerOffset,
			Bytes:  maker,
		}
	}
}
