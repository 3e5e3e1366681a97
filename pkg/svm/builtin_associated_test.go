package svm_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/svm/svmtest"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

func TestAssociatedToken_Create(t *testing.T) {
	ctx := context.Background()
	bank := svmtest.NewBank(t)

	payer := svmtest.NewFundedKey(t, bank)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]
	mint := svmtest.CreateMint(t, bank, payer, svmtest.Public(payer), 0, token.ProgramKey)

	ix, address, err := token.CreateAssociatedTokenAccount(svmtest.Public(payer), wallet, mint)
	require.NoError(t, err)

	result := svmtest.MustSend(t, bank, []ed25519.PrivateKey{payer}, ix)
	assert.Contains(t, result.Logs, "Program 11111111111111111111111111111111 invoke [2]")
	assert.Contains(t, result.Logs, "Program TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA invoke [2]")

	account := svmtest.TokenAccount(t, bank, address)
	assert.Equal(t, wallet, account.Owner)
	assert.Equal(t, mint, account.Mint)
	assert.Equal(t, bank.MinimumBalance(ctx, token.AccountSize), svmtest.Lamports(t, bank, address))

	// Only the idempotent variant tolerates an existing account
	_, err = svmtest.Send(ctx, bank, []ed25519.PrivateKey{payer}, ix)
	testutil.AssertInstructionError(t, err, 0, program.ErrIllegalOwner)

	idempotent, _, err := token.CreateAssociatedTokenAccountIdempotent(svmtest.Public(payer), wallet, mint, token.ProgramKey)
	require.NoError(t, err)
	svmtest.MustSend(t, bank, []ed25519.PrivateKey{payer}, idempotent)
}

func TestAssociatedToken_Prefunded(t *testing.T) {
	ctx := context.Background()
	bank := svmtest.NewBank(t)

	payer := svmtest.NewFundedKey(t, bank)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]
	mint := svmtest.CreateMint(t, bank, payer, svmtest.Public(payer), 0, token.Token2022ProgramKey)

	address, err := token.GetAssociatedAccountForProgram(wallet, mint, token.Token2022ProgramKey)
	require.NoError(t, err)
	svmtest.Airdrop(t, bank, address, 1_000)

	created := svmtest.CreateAssociatedAccount(t, bank, payer, wallet, mint, token.Token2022ProgramKey)
	assert.Equal(t, address, created)

	stored, err := bank.GetAccount(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, token.Token2022ProgramKey, stored.Owner)
	assert.Equal(t, bank.MinimumBalance(ctx, token.AccountSize), stored.Lamports)
	assert.Equal(t, wallet, svmtest.TokenAccount(t, bank, address).Owner)
}

func TestAssociatedToken_Validation(t *testing.T) {
	bank := svmtest.NewBank(t)

	payer := svmtest.NewFundedKey(t, bank)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]
	mint := svmtest.CreateMint(t, bank, payer, svmtest.Public(payer), 0, token.ProgramKey)

	send := func(modify func(accounts []ed25519.PublicKey)) error {
		ix, _, err := token.CreateAssociatedTokenAccountIdempotent(svmtest.Public(payer), wallet, mint, token.ProgramKey)
		require.NoError(t, err)

		keys := make([]ed25519.PublicKey, len(ix.Accounts))
		for i := range ix.Accounts {
			keys[i] = ix.Accounts[i].PublicKey
		}
		modify(keys)
		for i := range ix.Accounts {
			ix.Accounts[i].PublicKey = keys[i]
		}

		_, err = svmtest.Send(context.Background(), bank, []ed25519.PrivateKey{payer}, ix)
		return err
	}

	err := send(func(accounts []ed25519.PublicKey) {
		accounts[1] = testutil.GenerateSolanaKeys(t, 1)[0]
	})
	testutil.AssertInstructionError(t, err, 0, program.ErrInvalidSeeds)

	err = send(func(accounts []ed25519.PublicKey) {
		accounts[5] = token.Token2022ProgramKey
	})
	testutil.AssertInstructionError(t, err, 0, program.ErrIllegalOwner)

	err = send(func(accounts []ed25519.PublicKey) {
		accounts[5] = token.AssociatedTokenAccountProgramKey
	})
	testutil.AssertInstructionError(t, err, 0, program.ErrIncorrectProgramID)
}

func TestAssociatedToken_IdempotentRejectsForeignAccount(t *testing.T) {
	ctx := context.Background()
	bank := svmtest.NewBank(t)

	payer := svmtest.NewFundedKey(t, bank)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]
	mint := svmtest.CreateMint(t, bank, payer, svmtest.Public(payer), 0, token.ProgramKey)

	address := svmtest.CreateAssociatedAccount(t, bank, payer, wallet, mint, token.ProgramKey)

	// Rewrite the account so it belongs to someone else
	stored, err := bank.GetAccount(ctx, address)
	require.NoError(t, err)

	var state token.Account
	require.True(t, state.Unmarshal(stored.Data))
	state.Owner = svmtest.Public(payer)
	stored.Data = state.Marshal()
	require.NoError(t, bank.SetAccount(ctx, stored))

	ix, _, err := token.CreateAssociatedTokenAccountIdempotent(svmtest.Public(payer), wallet, mint, token.ProgramKey)
	require.NoError(t, err)

	_, err = svmtest.Send(ctx, bank, []ed25519.PrivateKey{payer}, ix)
	testutil.AssertInstructionError(t, err, 0, program.ErrIllegalOwner)
}
