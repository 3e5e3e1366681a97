package escrow_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/svm"
	"github.com/code-payments/code-escrow/pkg/svm/svmtest"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

type testEnv struct {
	ctx  context.Context
	bank *svm.Bank

	tokenProgram ed25519.PublicKey

	authority ed25519.PrivateKey
	maker     ed25519.PrivateKey
	taker     ed25519.PrivateKey

	mintA ed25519.PublicKey
	mintB ed25519.PublicKey

	makerAtaA ed25519.PublicKey
	takerAtaB ed25519.PublicKey
}

func setup(t *testing.T, tokenProgram ed25519.PublicKey, makerBalance, takerBalance uint64) *testEnv {
	bank := svmtest.NewBank(t)
	bank.RegisterProgram("escrow", escrow.PROGRAM_ID, escrow.NewProcessor())

	env := &testEnv{
		ctx:          context.Background(),
		bank:         bank,
		tokenProgram: tokenProgram,
		authority:    svmtest.NewFundedKey(t, bank),
		maker:        svmtest.NewFundedKey(t, bank),
		taker:        svmtest.NewFundedKey(t, bank),
	}

	env.mintA = svmtest.CreateMint(t, bank, env.authority, svmtest.Public(env.authority), 6, tokenProgram)
	env.mintB = svmtest.CreateMint(t, bank, env.authority, svmtest.Public(env.authority), 6, tokenProgram)

	env.makerAtaA = svmtest.CreateAssociatedAccount(t, bank, env.authority, svmtest.Public(env.maker), env.mintA, tokenProgram)
	env.takerAtaB = svmtest.CreateAssociatedAccount(t, bank, env.authority, svmtest.Public(env.taker), env.mintB, tokenProgram)

	if makerBalance > 0 {
		svmtest.MintTo(t, bank, env.authority, env.mintA, env.makerAtaA, makerBalance, tokenProgram)
	}
	if takerBalance > 0 {
		svmtest.MintTo(t, bank, env.authority, env.mintB, env.takerAtaB, takerBalance, tokenProgram)
	}

	return env
}

func (env *testEnv) makeAccounts(t *testing.T, seed uint64) *escrow.MakeInstructionAccounts {
	accounts, err := escrow.GetMakeInstructionAccounts(svmtest.Public(env.maker), env.mintA, env.mintB, seed, env.tokenProgram)
	require.NoError(t, err)
	return accounts
}

func (env *testEnv) make(seed, receive, amount uint64) (*svm.Result, error) {
	accounts, err := escrow.GetMakeInstructionAccounts(svmtest.Public(env.maker), env.mintA, env.mintB, seed, env.tokenProgram)
	if err != nil {
		return nil, err
	}

	ix := escrow.NewMakeInstruction(accounts, &escrow.MakeInstructionArgs{
		Seed:    seed,
		Receive: receive,
		Amount:  amount,
	})
	return svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.maker}, ix)
}

func (env *testEnv) record(t *testing.T, address ed25519.PublicKey) *escrow.EscrowAccount {
	account, err := env.bank.GetAccount(env.ctx, address)
	require.NoError(t, err)
	assert.Equal(t, escrow.PROGRAM_ID, account.Owner)

	var record escrow.EscrowAccount
	require.NoError(t, record.Unmarshal(account.Data))
	return &record
}

func (env *testEnv) takeAccounts(t *testing.T, seed uint64) *escrow.TakeInstructionAccounts {
	address := env.makeAccounts(t, seed).Escrow

	accounts, err := escrow.GetTakeInstructionAccounts(svmtest.Public(env.taker), address, env.record(t, address), env.tokenProgram)
	require.NoError(t, err)
	return accounts
}

func (env *testEnv) refundAccounts(t *testing.T, seed uint64) *escrow.RefundInstructionAccounts {
	address := env.makeAccounts(t, seed).Escrow

	accounts, err := escrow.GetRefundInstructionAccounts(address, env.record(t, address), env.tokenProgram)
	require.NoError(t, err)
	return accounts
}

func TestEscrow_TakeExample(t *testing.T) {
	for _, tokenProgram := range []ed25519.PublicKey{token.ProgramKey, token.Token2022ProgramKey} {
		env := setup(t, tokenProgram, 500, 1000)
		accounts := env.makeAccounts(t, 1)

		result, err := env.make(1, 1000, 500)
		require.NoError(t, err)
		assert.Contains(t, result.Logs, "Program log: Instruction: Make")
		assert.Contains(t, result.Logs, "Program log: escrow 1 opened: 500 deposited for 1000")

		record := env.record(t, accounts.Escrow)
		_, bump, err := escrow.GetEscrowAddress(&escrow.GetEscrowAddressArgs{Maker: svmtest.Public(env.maker), Seed: 1})
		require.NoError(t, err)
		assert.Equal(t, &escrow.EscrowAccount{
			Seed:    1,
			Maker:   svmtest.Public(env.maker),
			MintA:   env.mintA,
			MintB:   env.mintB,
			Receive: 1000,
			Bump:    bump,
		}, record)

		vault := svmtest.TokenAccount(t, env.bank, accounts.Vault)
		assert.Equal(t, accounts.Escrow, vault.Owner)
		assert.EqualValues(t, 500, vault.Amount)
		assert.EqualValues(t, 0, svmtest.TokenBalance(t, env.bank, env.makerAtaA))

		open, err := env.bank.GetProgramAccounts(env.ctx, escrow.PROGRAM_ID)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, accounts.Escrow, open[0].Address)

		makerLamports := svmtest.Lamports(t, env.bank, svmtest.Public(env.maker))
		reserves := svmtest.Lamports(t, env.bank, accounts.Escrow) + svmtest.Lamports(t, env.bank, accounts.Vault)
		assert.Equal(t, env.bank.MinimumBalance(env.ctx, escrow.EscrowAccountSize)+env.bank.MinimumBalance(env.ctx, token.AccountSize), reserves)

		take := env.takeAccounts(t, 1)
		result = svmtest.MustSend(t, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewTakeInstruction(take))
		assert.Contains(t, result.Logs, "Program log: escrow 1 taken: 1000 paid for 500")

		assert.EqualValues(t, 500, svmtest.TokenBalance(t, env.bank, take.TakerAtaA))
		assert.EqualValues(t, 0, svmtest.TokenBalance(t, env.bank, take.TakerAtaB))
		assert.EqualValues(t, 1000, svmtest.TokenBalance(t, env.bank, take.MakerAtaB))

		assert.False(t, svmtest.Exists(t, env.bank, accounts.Escrow))
		assert.False(t, svmtest.Exists(t, env.bank, accounts.Vault))
		assert.Equal(t, makerLamports+reserves, svmtest.Lamports(t, env.bank, svmtest.Public(env.maker)))

		open, err = env.bank.GetProgramAccounts(env.ctx, escrow.PROGRAM_ID)
		require.NoError(t, err)
		assert.Empty(t, open)
	}
}

func TestEscrow_RefundRoundTrip(t *testing.T) {
	for _, tokenProgram := range []ed25519.PublicKey{token.ProgramKey, token.Token2022ProgramKey} {
		env := setup(t, tokenProgram, 750, 0)
		makerLamports := svmtest.Lamports(t, env.bank, svmtest.Public(env.maker))

		_, err := env.make(42, 10, 300)
		require.NoError(t, err)
		assert.EqualValues(t, 450, svmtest.TokenBalance(t, env.bank, env.makerAtaA))

		refund := env.refundAccounts(t, 42)
		result := svmtest.MustSend(t, env.bank, []ed25519.PrivateKey{env.maker}, escrow.NewRefundInstruction(refund))
		assert.Contains(t, result.Logs, "Program log: escrow 42 refunded: 300 returned")

		assert.EqualValues(t, 750, svmtest.TokenBalance(t, env.bank, env.makerAtaA))
		assert.Equal(t, makerLamports, svmtest.Lamports(t, env.bank, svmtest.Public(env.maker)))
		assert.False(t, svmtest.Exists(t, env.bank, refund.Escrow))
		assert.False(t, svmtest.Exists(t, env.bank, refund.Vault))
	}
}

func TestEscrow_RefundRecreatesClosedAccount(t *testing.T) {
	env := setup(t, token.ProgramKey, 300, 0)

	_, err := env.make(1, 10, 300)
	require.NoError(t, err)

	closeAccount := token.CloseAccount(env.makerAtaA, svmtest.Public(env.maker), svmtest.Public(env.maker))
	svmtest.MustSend(t, env.bank, []ed25519.PrivateKey{env.maker}, closeAccount)
	require.False(t, svmtest.Exists(t, env.bank, env.makerAtaA))

	refund := env.refundAccounts(t, 1)
	svmtest.MustSend(t, env.bank, []ed25519.PrivateKey{env.maker}, escrow.NewRefundInstruction(refund))

	assert.EqualValues(t, 300, svmtest.TokenBalance(t, env.bank, env.makerAtaA))
	assert.Equal(t, svmtest.Public(env.maker), svmtest.TokenAccount(t, env.bank, env.makerAtaA).Owner)
}

func TestEscrow_MakeRejected(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 0)
	accounts := env.makeAccounts(t, 5)
	makerLamports := svmtest.Lamports(t, env.bank, svmtest.Public(env.maker))

	_, err := env.make(5, 1000, 0)
	testutil.AssertInstructionError(t, err, 0, program.ErrInvalidInstructionData)

	_, err = env.make(5, 1000, 501)
	testutil.AssertInstructionError(t, err, 0, token.ErrorInsufficientFunds)

	assert.False(t, svmtest.Exists(t, env.bank, accounts.Escrow))
	assert.False(t, svmtest.Exists(t, env.bank, accounts.Vault))
	assert.EqualValues(t, 500, svmtest.TokenBalance(t, env.bank, env.makerAtaA))
	assert.Equal(t, makerLamports, svmtest.Lamports(t, env.bank, svmtest.Public(env.maker)))

	_, err = env.make(5, 1000, 200)
	require.NoError(t, err)

	_, err = env.make(5, 1000, 200)
	testutil.AssertInstructionError(t, err, 0, program.ErrAccountAlreadyInitialized)
	assert.EqualValues(t, 300, svmtest.TokenBalance(t, env.bank, env.makerAtaA))
}

func TestEscrow_MakeRequiresOneTokenProgram(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 0)
	env.mintB = svmtest.CreateMint(t, env.bank, env.authority, svmtest.Public(env.authority), 6, token.Token2022ProgramKey)

	_, err := env.make(1, 10, 100)
	testutil.AssertInstructionError(t, err, 0, program.ErrIncorrectProgramID)
}

func TestEscrow_MakeRequiresMakerSignature(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 0)

	ix := escrow.NewMakeInstruction(env.makeAccounts(t, 1), &escrow.MakeInstructionArgs{Seed: 1, Receive: 10, Amount: 100})
	for i := range ix.Accounts {
		ix.Accounts[i].IsSigner = false
	}

	// The taker pays for the transaction, the maker never signs.
	_, err := svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.taker}, ix)
	testutil.AssertInstructionError(t, err, 0, escrow.ErrNotSigner)
}

func TestEscrow_MakeRequiresAssociatedTokenProgram(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 0)
	accounts := env.makeAccounts(t, 1)

	ix := escrow.NewMakeInstruction(accounts, &escrow.MakeInstructionArgs{Seed: 1, Receive: 10, Amount: 100})
	ix.Accounts = ix.Accounts[:8]

	_, err := svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.maker}, ix)
	testutil.AssertInstructionError(t, err, 0, program.ErrNotEnoughAccountKeys)

	assert.False(t, svmtest.Exists(t, env.bank, accounts.Escrow))
	assert.False(t, svmtest.Exists(t, env.bank, accounts.Vault))
	assert.EqualValues(t, 500, svmtest.TokenBalance(t, env.bank, env.makerAtaA))
}

func TestEscrow_TakeRejectsHoldingOfAnotherWallet(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 1000)

	_, err := env.make(1, 1000, 500)
	require.NoError(t, err)

	take := env.takeAccounts(t, 1)

	// A token account already sits at the taker's derived address but
	// belongs to the maker.
	require.NoError(t, env.bank.SetAccount(env.ctx, &svm.Account{
		Address:  take.TakerAtaA,
		Owner:    env.tokenProgram,
		Lamports: 2_039_280,
		Data: (&token.Account{
			Mint:  env.mintA,
			Owner: svmtest.Public(env.maker),
			State: token.AccountStateInitialized,
		}).Marshal(),
	}))

	_, err = svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewTakeInstruction(take))
	testutil.AssertInstructionError(t, err, 0, program.ErrIllegalOwner)

	assert.EqualValues(t, 500, svmtest.TokenBalance(t, env.bank, take.Vault))
	assert.EqualValues(t, 0, svmtest.TokenBalance(t, env.bank, take.TakerAtaA))
	assert.EqualValues(t, 1000, svmtest.TokenBalance(t, env.bank, take.TakerAtaB))
}

func TestEscrow_TakeIsAtomic(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 999)

	_, err := env.make(1, 1000, 500)
	require.NoError(t, err)

	take := env.takeAccounts(t, 1)
	takerLamports := svmtest.Lamports(t, env.bank, svmtest.Public(env.taker))

	_, err = svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewTakeInstruction(take))
	testutil.AssertInstructionError(t, err, 0, token.ErrorInsufficientFunds)

	// Neither the accounts created for the taker nor any transfer survive.
	assert.False(t, svmtest.Exists(t, env.bank, take.TakerAtaA))
	assert.False(t, svmtest.Exists(t, env.bank, take.MakerAtaB))
	assert.EqualValues(t, 999, svmtest.TokenBalance(t, env.bank, take.TakerAtaB))
	assert.EqualValues(t, 500, svmtest.TokenBalance(t, env.bank, take.Vault))
	assert.Equal(t, takerLamports, svmtest.Lamports(t, env.bank, svmtest.Public(env.taker)))
	assert.True(t, svmtest.Exists(t, env.bank, take.Escrow))
}

func TestEscrow_IdentityEnforcement(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 1000)

	_, err := env.make(1, 1000, 500)
	require.NoError(t, err)

	// The taker poses as the maker to reclaim the deposit.
	refund := env.refundAccounts(t, 1)
	refund.Maker = svmtest.Public(env.taker)
	refund.MakerAtaA = svmtest.CreateAssociatedAccount(t, env.bank, env.taker, svmtest.Public(env.taker), env.mintA, env.tokenProgram)

	_, err = svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewRefundInstruction(refund))
	testutil.AssertInstructionError(t, err, 0, program.ErrInvalidAccountOwner)

	// Payment is redirected by naming the taker as the maker.
	take := env.takeAccounts(t, 1)
	take.Maker = svmtest.Public(env.taker)
	take.MakerAtaB = take.TakerAtaB

	_, err = svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewTakeInstruction(take))
	testutil.AssertInstructionError(t, err, 0, program.ErrInvalidAccountOwner)

	assert.EqualValues(t, 500, svmtest.TokenBalance(t, env.bank, take.Vault))
}

func TestEscrow_SingleConsumption(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 2000)

	_, err := env.make(1, 1000, 500)
	require.NoError(t, err)

	take := env.takeAccounts(t, 1)
	refund := env.refundAccounts(t, 1)

	svmtest.MustSend(t, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewTakeInstruction(take))

	_, err = svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewTakeInstruction(take))
	testutil.AssertInstructionError(t, err, 0, escrow.ErrInvalidAccountData)

	_, err = svmtest.Send(env.ctx, env.bank, []ed25519.PrivateKey{env.maker}, escrow.NewRefundInstruction(refund))
	testutil.AssertInstructionError(t, err, 0, escrow.ErrInvalidAccountData)

	assert.EqualValues(t, 1000, svmtest.TokenBalance(t, env.bank, take.TakerAtaB))
	assert.EqualValues(t, 1000, svmtest.TokenBalance(t, env.bank, take.MakerAtaB))
}

func TestEscrow_IndependentOffers(t *testing.T) {
	env := setup(t, token.ProgramKey, 500, 1000)

	for seed := uint64(1); seed <= 3; seed++ {
		_, err := env.make(seed, 100*seed, 100)
		require.NoError(t, err)
	}

	open, err := env.bank.GetProgramAccounts(env.ctx, escrow.PROGRAM_ID)
	require.NoError(t, err)
	assert.Len(t, open, 3)

	svmtest.MustSend(t, env.bank, []ed25519.PrivateKey{env.taker}, escrow.NewTakeInstruction(env.takeAccounts(t, 2)))
	svmtest.MustSend(t, env.bank, []ed25519.PrivateKey{env.maker}, escrow.NewRefundInstruction(env.refundAccounts(t, 3)))

	open, err = env.bank.GetProgramAccounts(env.ctx, escrow.PROGRAM_ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, env.makeAccounts(t, 1).Escrow, open[0].Address)

	assert.EqualValues(t, 300, svmtest.TokenBalance(t, env.bank, env.makerAtaA))
	assert.EqualValues(t, 800, svmtest.TokenBalance(t, env.bank, env.takerAtaB))
}
