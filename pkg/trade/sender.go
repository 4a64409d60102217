package trade

import (
	"context"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
	computebudget "github.com/DecentraGuild/escrow-go/pkg/solana/computebudget"
)

// SendOptions control how a transaction is submitted and confirmed.
// Zero values fall back to the defaults.
type SendOptions struct {
	Commitment       solana.Commitment
	MaxRetries       uint
	Timeout          time.Duration
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
}

var defaultSendOptions = SendOptions{
	Commitment:       solana.CommitmentConfirmed,
	MaxRetries:       3,
	Timeout:          90 * time.Second,
	ComputeUnitLimit: 400_000,
}

// TransactionSender signs, submits, and confirms transactions, retrying
// with a fresh blockhash when the previous one expires before landing.
type TransactionSender struct {
	log *logrus.Entry
	sc  solana.Client
}

func NewTransactionSender(sc solana.Client) *TransactionSender {
	return &TransactionSender{
		log: logrus.StandardLogger().WithField("type", "trade/sender"),
		sc:  sc,
	}
}

// SendAndConfirm assembles the instructions into a transaction paid and
// signed by the wallet, submits it, and polls until the requested
// commitment is reached.
//
// Cluster rejections surface as ErrTransactionRejected. If confirmation
// polling gives out before the signature is observed, ErrUnknownOutcome
// is returned along with the signature so callers can keep watching.
func (s *TransactionSender) SendAndConfirm(ctx context.Context, wallet Wallet, instructions []solana.Instruction, opts SendOptions) (solana.Signature, error) {
	if opts.Commitment.Commitment == "" {
		opts.Commitment = defaultSendOptions.Commitment
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultSendOptions.MaxRetries
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultSendOptions.Timeout
	}
	if opts.ComputeUnitLimit == 0 {
		opts.ComputeUnitLimit = defaultSendOptions.ComputeUnitLimit
	}

	budget := []solana.Instruction{computebudget.SetComputeUnitLimit(opts.ComputeUnitLimit)}
	if opts.ComputeUnitPrice > 0 {
		budget = append(budget, computebudget.SetComputeUnitPrice(opts.ComputeUnitPrice))
	}
	instructions = append(budget, instructions...)

	deadline := time.Now().Add(opts.Timeout)

	var sig solana.Signature
	var lastErr error
	for attempt := uint(0); attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return sig, err
		}

		txn := solana.NewTransaction(wallet.PublicKey(), instructions...)

		bh, err := s.sc.GetLatestBlockhash()
		if err != nil {
			lastErr = errors.Wrap(err, "failed to get latest blockhash")
			continue
		}
		txn.SetBlockhash(bh)

		if err := wallet.SignTransaction(&txn); err != nil {
			return sig, errors.Wrap(err, "failed to sign transaction")
		}

		sig, err = s.sc.SubmitTransaction(txn, opts.Commitment)
		if err != nil {
			if isFatalSubmitError(err) {
				return sig, errors.Wrap(ErrTransactionRejected, err.Error())
			}

			s.log.WithError(err).WithField("attempt", attempt).Warn("transaction submit failed, retrying")
			lastErr = err
			continue
		}

		confirmed, err := s.confirm(ctx, sig, opts.Commitment, deadline)
		if err != nil {
			return sig, err
		}
		if confirmed {
			s.log.WithField("signature", base58.Encode(sig[:])).Debug("transaction confirmed")
			return sig, nil
		}

		// The signature never landed, most likely because the blockhash
		// expired. Resubmit with a fresh one if the deadline allows.
		lastErr = ErrUnknownOutcome
		if time.Now().After(deadline) {
			break
		}
	}

	if lastErr == nil {
		lastErr = ErrUnknownOutcome
	}
	if errors.Is(lastErr, ErrUnknownOutcome) {
		return sig, errors.Wrapf(ErrUnknownOutcome, "signature %s", base58.Encode(sig[:]))
	}
	return sig, lastErr
}

// ConfirmSignature re-checks a previously submitted signature, blocking
// until the commitment is reached or the client's poll budget runs out.
// It is the recovery path for ErrUnknownOutcome results from
// SendAndConfirm: callers hold on to the signature and ask again later.
func (s *TransactionSender) ConfirmSignature(sig solana.Signature, commitment solana.Commitment) error {
	status, err := s.sc.GetSignatureStatus(sig, commitment)
	if status != nil && status.ErrorResult != nil {
		return errors.Wrap(ErrTransactionRejected, status.ErrorResult.Error())
	}
	if err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			return errors.Wrap(ErrTransactionRejected, txErr.Error())
		}
		return errors.Wrapf(ErrUnknownOutcome, "signature %s", base58.Encode(sig[:]))
	}
	return nil
}

// confirm polls signature statuses until the commitment is reached, the
// transaction fails, or the deadline passes. It returns false with no
// error when the signature was never observed.
func (s *TransactionSender) confirm(ctx context.Context, sig solana.Signature, commitment solana.Commitment, deadline time.Time) (bool, error) {
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		statuses, err := s.sc.GetSignatureStatuses([]solana.Signature{sig})
		if err != nil {
			s.log.WithError(err).Warn("failed to poll signature status")
			time.Sleep(solana.PollRate)
			continue
		}

		status := statuses[0]
		if status == nil {
			time.Sleep(solana.PollRate)
			continue
		}

		if status.ErrorResult != nil {
			return false, errors.Wrap(ErrTransactionRejected, status.ErrorResult.Error())
		}

		switch commitment {
		case solana.CommitmentProcessed:
			return true, nil
		case solana.CommitmentFinalized:
			if status.Finalized() {
				return true, nil
			}
		default:
			if status.Confirmed() {
				return true, nil
			}
		}

		time.Sleep(solana.PollRate)
	}

	return false, nil
}

// isFatalSubmitError reports whether a sendTransaction error is a cluster
// rejection that a resubmission cannot fix.
func isFatalSubmitError(err error) bool {
	if _, ok := err.(*solana.InstructionError); ok {
		return true
	}

	switch solana.TransactionErrorKey(err.Error()) {
	case solana.TransactionErrorBlockhashNotFound,
		solana.TransactionErrorAccountInUse,
		solana.TransactionErrorClusterMaintenance:
		return false
	case solana.TransactionErrorDuplicateSignature,
		solana.TransactionErrorAccountNotFound,
		solana.TransactionErrorInsufficientFundsForFee,
		solana.TransactionErrorSignatureFailure,
		solana.TransactionErrorSanitizeFailure,
		solana.TransactionErrorInstructionError:
		return true
	}

	return false
}
