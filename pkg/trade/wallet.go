package trade

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
)

// Wallet signs transactions on behalf of a keypair. Implementations may
// hold the key locally or delegate to an external signer.
type Wallet interface {
	PublicKey() ed25519.PublicKey
	SignTransaction(txn *solana.Transaction) error
	SignAllTransactions(txns []*solana.Transaction) error
}

// LocalWallet is a Wallet backed by an in-memory ed25519 private key.
type LocalWallet struct {
	priv ed25519.PrivateKey
}

func NewLocalWallet(priv ed25519.PrivateKey) (*LocalWallet, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	return &LocalWallet{priv: priv}, nil
}

func (w *LocalWallet) PublicKey() ed25519.PublicKey {
	return w.priv.Public().(ed25519.PublicKey)
}

func (w *LocalWallet) SignTransaction(txn *solana.Transaction) error {
	return txn.Sign(w.priv)
}

func (w *LocalWallet) SignAllTransactions(txns []*solana.Transaction) error {
	for _, txn := range txns {
		if err := txn.Sign(w.priv); err != nil {
			return err
		}
	}
	return nil
}
