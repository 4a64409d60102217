package trade

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
)

// fakeClient implements solana.Client with overridable functions for the
// methods exercised in tests. Unconfigured methods fail the test.
type fakeClient struct {
	t *testing.T

	getAccountInfo      func(ed25519.PublicKey, solana.Commitment) (solana.AccountInfo, error)
	getBalance          func(ed25519.PublicKey) (uint64, error)
	getMinBalance       func(uint64) (uint64, error)
	getBlockhash        func() (solana.Blockhash, error)
	getProgramAccts     func(ed25519.PublicKey, solana.Commitment, ...solana.MemcmpFilter) ([]solana.ProgramAccount, uint64, error)
	getSigStatus        func(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error)
	getSigStatuses      func([]solana.Signature) ([]*solana.SignatureStatus, error)
	getSigsForAddr      func(ed25519.PublicKey, solana.Commitment, uint64, string, string) ([]*solana.TransactionSignature, error)
	getSlot             func(solana.Commitment) (uint64, error)
	getTokenAcctBalance func(ed25519.PublicKey) (uint64, uint64, error)
	getTransaction      func(solana.Signature, solana.Commitment) (solana.ConfirmedTransaction, error)
	submitTransaction   func(solana.Transaction, solana.Commitment) (solana.Signature, error)
}

func newFakeClient(t *testing.T) *fakeClient {
	return &fakeClient{t: t}
}

func (f *fakeClient) GetAccountInfo(account ed25519.PublicKey, commitment solana.Commitment) (solana.AccountInfo, error) {
	if f.getAccountInfo == nil {
		f.t.Fatal("unexpected GetAccountInfo call")
	}
	return f.getAccountInfo(account, commitment)
}

func (f *fakeClient) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	if f.getMinBalance == nil {
		f.t.Fatal("unexpected GetMinimumBalanceForRentExemption call")
	}
	return f.getMinBalance(size)
}

func (f *fakeClient) GetLatestBlockhash() (solana.Blockhash, error) {
	if f.getBlockhash == nil {
		f.t.Fatal("unexpected GetLatestBlockhash call")
	}
	return f.getBlockhash()
}

func (f *fakeClient) GetProgramAccounts(program ed25519.PublicKey, commitment solana.Commitment, filters ...solana.MemcmpFilter) ([]solana.ProgramAccount, uint64, error) {
	if f.getProgramAccts == nil {
		f.t.Fatal("unexpected GetProgramAccounts call")
	}
	return f.getProgramAccts(program, commitment, filters...)
}

func (f *fakeClient) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	if f.getSigStatuses == nil {
		f.t.Fatal("unexpected GetSignatureStatuses call")
	}
	return f.getSigStatuses(sigs)
}

func (f *fakeClient) SubmitTransaction(txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
	if f.submitTransaction == nil {
		f.t.Fatal("unexpected SubmitTransaction call")
	}
	return f.submitTransaction(txn, commitment)
}

func (f *fakeClient) GetBalance(account ed25519.PublicKey) (uint64, error) {
	if f.getBalance == nil {
		f.t.Fatal("unexpected GetBalance call")
	}
	return f.getBalance(account)
}

func (f *fakeClient) GetSignatureStatus(sig solana.Signature, commitment solana.Commitment) (*solana.SignatureStatus, error) {
	if f.getSigStatus == nil {
		f.t.Fatal("unexpected GetSignatureStatus call")
	}
	return f.getSigStatus(sig, commitment)
}

func (f *fakeClient) GetSignaturesForAddress(account ed25519.PublicKey, commitment solana.Commitment, limit uint64, before, until string) ([]*solana.TransactionSignature, error) {
	if f.getSigsForAddr == nil {
		f.t.Fatal("unexpected GetSignaturesForAddress call")
	}
	return f.getSigsForAddr(account, commitment, limit, before, until)
}

func (f *fakeClient) GetSlot(commitment solana.Commitment) (uint64, error) {
	if f.getSlot == nil {
		f.t.Fatal("unexpected GetSlot call")
	}
	return f.getSlot(commitment)
}

func (f *fakeClient) GetTokenAccountBalance(account ed25519.PublicKey) (uint64, uint64, error) {
	if f.getTokenAcctBalance == nil {
		f.t.Fatal("unexpected GetTokenAccountBalance call")
	}
	return f.getTokenAcctBalance(account)
}

func (f *fakeClient) GetTransaction(sig solana.Signature, commitment solana.Commitment) (solana.ConfirmedTransaction, error) {
	if f.getTransaction == nil {
		f.t.Fatal("unexpected GetTransaction call")
	}
	return f.getTransaction(sig, commitment)
}

func (f *fakeClient) RequestAirdrop(ed25519.PublicKey, uint64, solana.Commitment) (solana.Signature, error) {
	f.t.Fatal("unexpected RequestAirdrop call")
	return solana.Signature{}, nil
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

func testConfig() *Config {
	conf := defaultConfig
	return &conf
}

func boolPtr(b bool) *bool {
	return &b
}
