package trade

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
	computebudget "github.com/DecentraGuild/escrow-go/pkg/solana/computebudget"
	"github.com/DecentraGuild/escrow-go/pkg/solana/memo"
)

func newTestWallet(t *testing.T) *LocalWallet {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	wallet, err := NewLocalWallet(priv)
	require.NoError(t, err)
	return wallet
}

func confirmedStatus() []*solana.SignatureStatus {
	confirmations := 5
	return []*solana.SignatureStatus{
		{
			Slot:               100,
			Confirmations:      &confirmations,
			ConfirmationStatus: "confirmed",
		},
	}
}

func TestSendAndConfirm(t *testing.T) {
	wallet := newTestWallet(t)

	var submitted solana.Transaction
	sc := newFakeClient(t)
	sc.getBlockhash = func() (solana.Blockhash, error) {
		return solana.Blockhash{1, 2, 3}, nil
	}
	sc.submitTransaction = func(txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
		submitted = txn
		return txn.Signatures[0], nil
	}
	sc.getSigStatuses = func([]solana.Signature) ([]*solana.SignatureStatus, error) {
		return confirmedStatus(), nil
	}

	sender := NewTransactionSender(sc)
	sig, err := sender.SendAndConfirm(context.Background(), wallet, []solana.Instruction{memo.Instruction("test")}, SendOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, solana.Signature{}, sig)

	// The compute budget limit is prepended to the instruction list.
	limit, err := computebudget.ParseSetComputeUnitLimitIxnData(submitted.Message.Instructions[0].Data)
	require.NoError(t, err)
	assert.Equal(t, defaultSendOptions.ComputeUnitLimit, limit)
}

func TestSendAndConfirm_ComputeUnitPrice(t *testing.T) {
	wallet := newTestWallet(t)

	var submitted solana.Transaction
	sc := newFakeClient(t)
	sc.getBlockhash = func() (solana.Blockhash, error) {
		return solana.Blockhash{1}, nil
	}
	sc.submitTransaction = func(txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
		submitted = txn
		return txn.Signatures[0], nil
	}
	sc.getSigStatuses = func([]solana.Signature) ([]*solana.SignatureStatus, error) {
		return confirmedStatus(), nil
	}

	sender := NewTransactionSender(sc)
	_, err := sender.SendAndConfirm(context.Background(), wallet, []solana.Instruction{memo.Instruction("test")}, SendOptions{
		ComputeUnitPrice: 1_000,
	})
	require.NoError(t, err)

	price, err := computebudget.ParseSetComputeUnitPriceIxnData(submitted.Message.Instructions[1].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000, price)
}

func TestSendAndConfirm_Rejected(t *testing.T) {
	wallet := newTestWallet(t)

	var submissions int
	sc := newFakeClient(t)
	sc.getBlockhash = func() (solana.Blockhash, error) {
		return solana.Blockhash{1}, nil
	}
	sc.submitTransaction = func(txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
		submissions++
		return txn.Signatures[0], &solana.InstructionError{
			Index: 0,
			Err:   errors.New("InvalidArgument"),
		}
	}

	sender := NewTransactionSender(sc)
	_, err := sender.SendAndConfirm(context.Background(), wallet, []solana.Instruction{memo.Instruction("test")}, SendOptions{})
	assert.ErrorIs(t, err, ErrTransactionRejected)

	// Cluster rejections are not retried.
	assert.Equal(t, 1, submissions)
}

func TestSendAndConfirm_BlockhashExpiredRetry(t *testing.T) {
	wallet := newTestWallet(t)

	var submissions int
	sc := newFakeClient(t)
	sc.getBlockhash = func() (solana.Blockhash, error) {
		return solana.Blockhash{byte(submissions)}, nil
	}
	sc.submitTransaction = func(txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
		submissions++
		if submissions == 1 {
			return txn.Signatures[0], errors.New(string(solana.TransactionErrorBlockhashNotFound))
		}
		return txn.Signatures[0], nil
	}
	sc.getSigStatuses = func([]solana.Signature) ([]*solana.SignatureStatus, error) {
		return confirmedStatus(), nil
	}

	sender := NewTransactionSender(sc)
	_, err := sender.SendAndConfirm(context.Background(), wallet, []solana.Instruction{memo.Instruction("test")}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, submissions)
}

func TestSendAndConfirm_FailedOnChain(t *testing.T) {
	wallet := newTestWallet(t)

	sc := newFakeClient(t)
	sc.getBlockhash = func() (solana.Blockhash, error) {
		return solana.Blockhash{1}, nil
	}
	sc.submitTransaction = func(txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
		return txn.Signatures[0], nil
	}
	sc.getSigStatuses = func([]solana.Signature) ([]*solana.SignatureStatus, error) {
		return []*solana.SignatureStatus{
			{
				Slot:        100,
				ErrorResult: solana.NewTransactionError(solana.TransactionErrorAccountInUse),
			},
		}, nil
	}

	sender := NewTransactionSender(sc)
	_, err := sender.SendAndConfirm(context.Background(), wallet, []solana.Instruction{memo.Instruction("test")}, SendOptions{})
	assert.ErrorIs(t, err, ErrTransactionRejected)
}

func TestSendAndConfirm_UnknownOutcome(t *testing.T) {
	wallet := newTestWallet(t)

	sc := newFakeClient(t)
	sc.getBlockhash = func() (solana.Blockhash, error) {
		return solana.Blockhash{1}, nil
	}
	sc.submitTransaction = func(txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
		return txn.Signatures[0], nil
	}
	sc.getSigStatuses = func(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
		return make([]*solana.SignatureStatus, len(sigs)), nil
	}

	sender := NewTransactionSender(sc)
	sig, err := sender.SendAndConfirm(context.Background(), wallet, []solana.Instruction{memo.Instruction("test")}, SendOptions{
		Timeout:    100 * time.Millisecond,
		MaxRetries: 1,
	})
	assert.ErrorIs(t, err, ErrUnknownOutcome)
	assert.NotEqual(t, solana.Signature{}, sig)
}

func TestConfirmSignature(t *testing.T) {
	sc := newFakeClient(t)
	sc.getSigStatus = func(sig solana.Signature, commitment solana.Commitment) (*solana.SignatureStatus, error) {
		assert.Equal(t, solana.CommitmentConfirmed, commitment)
		return confirmedStatus()[0], nil
	}

	sender := NewTransactionSender(sc)
	assert.NoError(t, sender.ConfirmSignature(solana.Signature{1}, solana.CommitmentConfirmed))
}

func TestConfirmSignature_FailedOnChain(t *testing.T) {
	sc := newFakeClient(t)
	sc.getSigStatus = func(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error) {
		status := &solana.SignatureStatus{
			Slot:        100,
			ErrorResult: solana.NewTransactionError(solana.TransactionErrorAccountInUse),
		}
		return status, status.ErrorResult
	}

	sender := NewTransactionSender(sc)
	err := sender.ConfirmSignature(solana.Signature{1}, solana.CommitmentConfirmed)
	assert.ErrorIs(t, err, ErrTransactionRejected)
}

func TestConfirmSignature_NotFound(t *testing.T) {
	sc := newFakeClient(t)
	sc.getSigStatus = func(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error) {
		return nil, solana.ErrSignatureNotFound
	}

	sender := NewTransactionSender(sc)
	err := sender.ConfirmSignature(solana.Signature{1}, solana.CommitmentConfirmed)
	assert.ErrorIs(t, err, ErrUnknownOutcome)
}

func TestSendAndConfirm_ContextCancelled(t *testing.T) {
	wallet := newTestWallet(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := NewTransactionSender(newFakeClient(t))
	_, err := sender.SendAndConfirm(ctx, wallet, []solana.Instruction{memo.Instruction("test")}, SendOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
