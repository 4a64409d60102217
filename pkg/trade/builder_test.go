package trade

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
	"github.com/DecentraGuild/escrow-go/pkg/solana/escrow"
	"github.com/DecentraGuild/escrow-go/pkg/solana/token"
)

type builderTestEnv struct {
	program      ed25519.PublicKey
	feeCollector ed25519.PublicKey
	sc           *fakeClient
	builder      *TransactionBuilder
}

func newBuilderTestEnv(t *testing.T) *builderTestEnv {
	program := generateKey(t)
	feeCollector := generateKey(t)
	sc := newFakeClient(t)

	return &builderTestEnv{
		program:      program,
		feeCollector: feeCollector,
		sc:           sc,
		builder:      NewTransactionBuilder(sc, NewAccountDeriver(program), feeCollector, testConfig()),
	}
}

func (env *builderTestEnv) noAccounts() {
	env.sc.getAccountInfo = func(ed25519.PublicKey, solana.Commitment) (solana.AccountInfo, error) {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
}

func (env *builderTestEnv) allAccountsExist() {
	env.sc.getAccountInfo = func(ed25519.PublicKey, solana.Commitment) (solana.AccountInfo, error) {
		return solana.AccountInfo{Owner: token.ProgramKey}, nil
	}
}

func (env *builderTestEnv) vaultBalance(amount uint64) {
	env.sc.getTokenAcctBalance = func(ed25519.PublicKey) (uint64, uint64, error) {
		return amount, 0, nil
	}
}

func (env *builderTestEnv) fundedWallet() {
	env.sc.getBalance = func(ed25519.PublicKey) (uint64, error) {
		return 1_000_000_000, nil
	}
	env.sc.getMinBalance = func(uint64) (uint64, error) {
		return 2_039_280, nil
	}
}

func testIntent(t *testing.T) *Intent {
	return &Intent{
		Maker:            generateKey(t),
		OfferedMint:      generateKey(t),
		RequestedMint:    generateKey(t),
		OfferedAmount:    600,
		RequestedAmount:  300,
		AllowPartialFill: boolPtr(true),
		ExpiresAt:        time.Now().Add(time.Hour),
	}
}

func testEscrowAccount(t *testing.T) *escrow.EscrowAccount {
	return &escrow.EscrowAccount{
		DataVersion:      escrow.DataVersion1,
		Maker:            generateKey(t),
		OfferedMint:      generateKey(t),
		RequestedMint:    generateKey(t),
		OfferedAmount:    600,
		RequestedAmount:  300,
		AllowPartialFill: true,
		ExpiresAt:        time.Now().Add(time.Hour).Unix(),
		WhitelistMint:    make([]byte, ed25519.PublicKeySize),
		Nonce:            42,
	}
}

func TestBuildInitialize(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.noAccounts()

	intent := testIntent(t)
	fee := ShopFee{MakerFlatFee: 10, MakerPercentFee: 50}

	instructions, derived, err := env.builder.BuildInitialize(intent, fee)
	require.NoError(t, err)
	require.NotNil(t, derived)

	// Create vault, fund vault, create collector account, pay fee, memo,
	// initialize.
	require.Len(t, instructions, 6)

	// The vault is created idempotently so a retried initialize does not
	// fail on the already existing account.
	assert.Equal(t, []byte{1}, instructions[0].Data)

	txn := solana.NewTransaction(intent.Maker, instructions...)
	args, accounts, err := escrow.InitializeInstructionFromLegacyInstruction(txn, 5)
	require.NoError(t, err)

	assert.Equal(t, intent.OfferedAmount, args.OfferedAmount)
	assert.Equal(t, intent.RequestedAmount, args.RequestedAmount)
	assert.True(t, args.AllowPartialFill)
	assert.Equal(t, intent.ExpiresAt.Unix(), args.ExpiresAt)
	assert.False(t, args.WhitelistRequired)
	assert.Equal(t, intent.GetNonce(), args.Nonce)

	assert.EqualValues(t, intent.Maker, accounts.Maker)
	assert.EqualValues(t, derived.Escrow, accounts.Escrow)
	assert.EqualValues(t, derived.Vault, accounts.Vault)
	assert.EqualValues(t, intent.OfferedMint, accounts.OfferedMint)
	assert.EqualValues(t, intent.RequestedMint, accounts.RequestedMint)
}

func TestBuildInitialize_NoFee(t *testing.T) {
	env := newBuilderTestEnv(t)

	instructions, _, err := env.builder.BuildInitialize(testIntent(t), ShopFee{})
	require.NoError(t, err)

	// No fee transfer and no collector account check.
	require.Len(t, instructions, 4)
}

func TestBuildInitialize_DefaultPartialFill(t *testing.T) {
	env := newBuilderTestEnv(t)

	intent := testIntent(t)
	intent.AllowPartialFill = nil

	instructions, _, err := env.builder.BuildInitialize(intent, ShopFee{})
	require.NoError(t, err)

	txn := solana.NewTransaction(intent.Maker, instructions...)
	args, _, err := escrow.InitializeInstructionFromLegacyInstruction(txn, len(instructions)-1)
	require.NoError(t, err)

	// Partial fills are off by default.
	assert.False(t, args.AllowPartialFill)
}

func TestBuildInitialize_WrappedOffered(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.noAccounts()
	env.fundedWallet()

	intent := testIntent(t)
	intent.OfferedMint = token.NativeMint

	instructions, _, err := env.builder.BuildInitialize(intent, ShopFee{})
	require.NoError(t, err)

	// Create wrapped account, fund it, sync, create vault, fund vault,
	// memo, initialize, close wrapped account.
	require.Len(t, instructions, 8)

	wrapped, err := GetWrappedSolAccount(intent.Maker)
	require.NoError(t, err)

	closeIx := instructions[len(instructions)-1]
	assert.Equal(t, token.CloseAccount(wrapped, intent.Maker, intent.Maker).Data, closeIx.Data)
}

func TestBuildInitialize_InvalidIntent(t *testing.T) {
	env := newBuilderTestEnv(t)

	intent := testIntent(t)
	intent.ExpiresAt = time.Now().Add(time.Second)

	instructions, _, err := env.builder.BuildInitialize(intent, ShopFee{})
	assert.ErrorIs(t, err, ErrInvalidIntent)
	assert.Nil(t, instructions)

	intent = testIntent(t)
	intent.OfferedAmount = 0

	_, _, err = env.builder.BuildInitialize(intent, ShopFee{})
	assert.ErrorIs(t, err, ErrInvalidIntent)
}

func TestBuildCancel(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.allAccountsExist()

	account := testEscrowAccount(t)
	escrowAddress := generateKey(t)

	instructions, err := env.builder.BuildCancel(escrowAddress, account)
	require.NoError(t, err)

	// Memo and cancel; the refund account already exists.
	require.Len(t, instructions, 2)

	txn := solana.NewTransaction(account.Maker, instructions...)
	accounts, err := escrow.CancelInstructionFromLegacyInstruction(txn, 1)
	require.NoError(t, err)

	assert.EqualValues(t, account.Maker, accounts.Maker)
	assert.EqualValues(t, escrowAddress, accounts.Escrow)

	expectedRefund, err := token.GetAssociatedAccount(account.Maker, account.OfferedMint)
	require.NoError(t, err)
	assert.EqualValues(t, expectedRefund, accounts.MakerRefund)
}

func TestBuildCancel_Filled(t *testing.T) {
	env := newBuilderTestEnv(t)

	account := testEscrowAccount(t)
	account.FilledAmount = account.OfferedAmount

	instructions, err := env.builder.BuildCancel(generateKey(t), account)
	assert.ErrorIs(t, err, ErrEscrowFilled)
	assert.Nil(t, instructions)
}

func TestBuildCancel_WrappedRefund(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.noAccounts()

	account := testEscrowAccount(t)
	account.OfferedMint = token.NativeMint

	instructions, err := env.builder.BuildCancel(generateKey(t), account)
	require.NoError(t, err)

	// Create wrapped account, memo, cancel, close wrapped account.
	require.Len(t, instructions, 4)
}

func TestBuildExchange(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.noAccounts()
	env.vaultBalance(600)

	taker := generateKey(t)
	account := testEscrowAccount(t)
	escrowAddress := generateKey(t)

	instructions, err := env.builder.BuildExchange(taker, escrowAddress, account, 200, ShopFee{})
	require.NoError(t, err)

	// Create taker receive account, create maker receive account, memo,
	// exchange.
	require.Len(t, instructions, 4)

	txn := solana.NewTransaction(taker, instructions...)
	args, accounts, err := escrow.ExchangeInstructionFromLegacyInstruction(txn, 3)
	require.NoError(t, err)

	assert.EqualValues(t, 200, args.Amount)
	assert.EqualValues(t, taker, accounts.Taker)
	assert.EqualValues(t, escrowAddress, accounts.Escrow)

	expectedPay, err := token.GetAssociatedAccount(taker, account.RequestedMint)
	require.NoError(t, err)
	assert.EqualValues(t, expectedPay, accounts.TakerPay)
}

func TestBuildExchange_TakerFee(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.noAccounts()
	env.vaultBalance(600)

	account := testEscrowAccount(t)

	// 200 of 600 offered costs 100 requested; flat taker fee on top.
	instructions, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 200, ShopFee{TakerFlatFee: 5})
	require.NoError(t, err)

	// Taker receive, maker receive, collector account, fee transfer,
	// memo, exchange.
	require.Len(t, instructions, 6)
}

func TestBuildExchange_Expired(t *testing.T) {
	env := newBuilderTestEnv(t)

	account := testEscrowAccount(t)
	account.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	instructions, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 200, ShopFee{})
	assert.ErrorIs(t, err, ErrEscrowExpired)
	assert.Nil(t, instructions)
}

func TestBuildExchange_InsufficientRemaining(t *testing.T) {
	env := newBuilderTestEnv(t)

	account := testEscrowAccount(t)
	account.FilledAmount = 500

	_, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 200, ShopFee{})
	assert.ErrorIs(t, err, ErrInsufficientRemaining)
}

func TestBuildExchange_PartialFillNotAllowed(t *testing.T) {
	env := newBuilderTestEnv(t)

	account := testEscrowAccount(t)
	account.AllowPartialFill = false

	_, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 200, ShopFee{})
	assert.ErrorIs(t, err, ErrPartialFillNotAllowed)

	// The exact remainder is still fine.
	env.noAccounts()
	env.vaultBalance(600)
	_, err = env.builder.BuildExchange(generateKey(t), generateKey(t), account, 600, ShopFee{})
	assert.NoError(t, err)
}

func TestBuildExchange_VaultDrained(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.vaultBalance(100)

	account := testEscrowAccount(t)

	_, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 200, ShopFee{})
	assert.ErrorIs(t, err, ErrInvalidEscrowData)
}

func TestBuildExchange_WhitelistRejected(t *testing.T) {
	env := newBuilderTestEnv(t)
	env.noAccounts()

	account := testEscrowAccount(t)
	account.WhitelistRequired = true
	account.WhitelistMint = generateKey(t)

	_, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 200, ShopFee{})
	assert.ErrorIs(t, err, ErrWhitelistRejected)
}

func TestBuildExchange_SlippageExceeded(t *testing.T) {
	env := newBuilderTestEnv(t)

	account := testEscrowAccount(t)
	account.OfferedAmount = 3
	account.RequestedAmount = 2

	// floor(2 * 2 / 3) = 1, a 25% deviation from the posted rate.
	_, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 2, ShopFee{})
	assert.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestBuildExchange_ZeroPayment(t *testing.T) {
	env := newBuilderTestEnv(t)

	account := testEscrowAccount(t)
	account.OfferedAmount = 1000
	account.RequestedAmount = 1

	_, err := env.builder.BuildExchange(generateKey(t), generateKey(t), account, 500, ShopFee{})
	assert.ErrorIs(t, err, ErrInvalidIntent)
}

func TestBuildExchange_MakerCannotFill(t *testing.T) {
	env := newBuilderTestEnv(t)

	account := testEscrowAccount(t)

	_, err := env.builder.BuildExchange(account.Maker, generateKey(t), account, 200, ShopFee{})
	assert.ErrorIs(t, err, ErrInvalidIntent)
}
