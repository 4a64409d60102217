package solana

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureStatus(t *testing.T) {
	zero, one := 0, 1

	testCases := []struct {
		name      string
		s         SignatureStatus
		confirmed bool
		finalized bool
	}{
		{
			name: "no confirmations",
			s: SignatureStatus{
				Slot:          10,
				Confirmations: &zero,
			},
		},
		{
			name: "unknown status string",
			s: SignatureStatus{
				Slot:               10,
				Confirmations:      &zero,
				ConfirmationStatus: "random",
			},
		},
		{
			name: "processed",
			s: SignatureStatus{
				Slot:               10,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusProcessed,
			},
		},
		{
			name: "confirmed by count",
			s: SignatureStatus{
				Slot:          10,
				Confirmations: &one,
			},
			confirmed: true,
		},
		{
			name: "confirmed by status",
			s: SignatureStatus{
				Slot:               10,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusConfirmed,
			},
			confirmed: true,
		},
		{
			name: "finalized by status",
			s: SignatureStatus{
				Slot:               10,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusFinalized,
			},
			confirmed: true,
			finalized: true,
		},
		{
			name: "finalized by nil confirmations",
			s: SignatureStatus{
				Slot: 10,
			},
			confirmed: true,
			finalized: true,
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.confirmed, tc.s.Confirmed(), tc.name)
		assert.Equal(t, tc.finalized, tc.s.Finalized(), tc.name)
	}
}

func TestSignatureStatusError(t *testing.T) {
	zero := 0
	notReached := errors.New("not reached")

	assert.Equal(t, ErrSignatureNotFound, signatureStatusError(nil, CommitmentConfirmed, notReached))

	// A transaction that failed on chain surfaces its own error rather
	// than keeping the poll loop going.
	failed := &SignatureStatus{
		Slot:          10,
		Confirmations: &zero,
		ErrorResult:   NewTransactionError(TransactionErrorAccountInUse),
	}
	err := signatureStatusError(failed, CommitmentFinalized, notReached)
	require.Error(t, err)
	assert.Equal(t, failed.ErrorResult, err)

	pending := &SignatureStatus{
		Slot:          10,
		Confirmations: &zero,
	}
	assert.NoError(t, signatureStatusError(pending, CommitmentProcessed, notReached))
	assert.Equal(t, notReached, signatureStatusError(pending, CommitmentConfirmed, notReached))
	assert.Equal(t, notReached, signatureStatusError(pending, CommitmentFinalized, notReached))

	rooted := &SignatureStatus{Slot: 10}
	assert.NoError(t, signatureStatusError(rooted, CommitmentConfirmed, notReached))
	assert.NoError(t, signatureStatusError(rooted, CommitmentFinalized, notReached))
}
