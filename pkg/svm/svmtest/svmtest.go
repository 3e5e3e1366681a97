// Package svmtest provides fixtures for tests that execute transactions
// against an in-memory bank.
package svmtest

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/svm"
	memory_store "github.com/code-payments/code-escrow/pkg/svm/store/memory"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

// DefaultAirdrop is enough lamports to pay rent for a handful of accounts.
const DefaultAirdrop = 10_000_000_000

// NewBank returns a bank backed by a fresh memory store.
func NewBank(t testing.TB) *svm.Bank {
	return svm.New(memory_store.New(), svm.WithOverrides(&svm.Overrides{}))
}

// NewKey returns a new random keypair.
func NewKey(t testing.TB) ed25519.PrivateKey {
	return testutil.GenerateSolanaKeypair(t)
}

// NewFundedKey returns a new keypair whose account holds DefaultAirdrop lamports.
func NewFundedKey(t testing.TB, bank *svm.Bank) ed25519.PrivateKey {
	key := NewKey(t)
	Airdrop(t, bank, Public(key), DefaultAirdrop)
	return key
}

func Public(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}

func Airdrop(t testing.TB, bank *svm.Bank, address ed25519.PublicKey, lamports uint64) {
	_, err := bank.Airdrop(context.Background(), address, lamports)
	require.NoError(t, err)
}

// Send signs and processes a transaction paid by the first signer. Every
// transaction gets a random blockhash so identical instructions can be sent
// more than once.
func Send(ctx context.Context, bank *svm.Bank, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (*svm.Result, error) {
	txn := solana.NewTransaction(Public(signers[0]), instructions...)

	var blockhash solana.Blockhash
	if _, err := rand.Read(blockhash[:]); err != nil {
		return nil, err
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(signers...); err != nil {
		return nil, err
	}
	return bank.ProcessTransaction(ctx, txn)
}

// MustSend is Send for transactions expected to succeed.
func MustSend(t testing.TB, bank *svm.Bank, signers []ed25519.PrivateKey, instructions ...solana.Instruction) *svm.Result {
	result, err := Send(context.Background(), bank, signers, instructions...)
	require.NoError(t, err)
	return result
}

// CreateMint creates and initializes a mint under tokenProgram with authority
// as its mint and freeze authority.
func CreateMint(t testing.TB, bank *svm.Bank, payer ed25519.PrivateKey, authority ed25519.PublicKey, decimals byte, tokenProgram ed25519.PublicKey) ed25519.PublicKey {
	mint := NewKey(t)

	create := system.CreateAccount(
		Public(payer),
		Public(mint),
		tokenProgram,
		bank.MinimumBalance(context.Background(), token.MintSize),
		token.MintSize,
	)

	initialize := token.InitializeMint2(Public(mint), authority, authority, decimals)
	initialize.Program = tokenProgram

	MustSend(t, bank, []ed25519.PrivateKey{payer, mint}, create, initialize)
	return Public(mint)
}

// CreateAssociatedAccount creates the associated token account of (wallet,
// mint) funded by payer.
func CreateAssociatedAccount(t testing.TB, bank *svm.Bank, payer ed25519.PrivateKey, wallet, mint, tokenProgram ed25519.PublicKey) ed25519.PublicKey {
	ix, address, err := token.CreateAssociatedTokenAccountIdempotent(Public(payer), wallet, mint, tokenProgram)
	require.NoError(t, err)

	MustSend(t, bank, []ed25519.PrivateKey{payer}, ix)
	return address
}

// MintTo mints amount tokens into destination. The authority pays for the
// transaction.
func MintTo(t testing.TB, bank *svm.Bank, authority ed25519.PrivateKey, mint, destination ed25519.PublicKey, amount uint64, tokenProgram ed25519.PublicKey) {
	ix := token.MintTo(mint, destination, Public(authority), amount)
	ix.Program = tokenProgram

	MustSend(t, bank, []ed25519.PrivateKey{authority}, ix)
}

// Lamports returns the balance of address, or zero if it doesn't exist.
func Lamports(t testing.TB, bank *svm.Bank, address ed25519.PublicKey) uint64 {
	account, err := bank.GetAccount(context.Background(), address)
	if err == svm.ErrAccountNotFound {
		return 0
	}
	require.NoError(t, err)
	return account.Lamports
}

// Exists reports whether an account is stored at address.
func Exists(t testing.TB, bank *svm.Bank, address ed25519.PublicKey) bool {
	_, err := bank.GetAccount(context.Background(), address)
	if err == svm.ErrAccountNotFound {
		return false
	}
	require.NoError(t, err)
	return true
}

// TokenAccount decodes the token account at address.
func TokenAccount(t testing.TB, bank *svm.Bank, address ed25519.PublicKey) *token.Account {
	account, err := bank.GetAccount(context.Background(), address)
	require.NoError(t, err)
	require.True(t, token.IsTokenProgram(account.Owner))

	var state token.Account
	require.True(t, state.Unmarshal(account.Data))
	return &state
}

// TokenBalance returns the amount held by the token account at address.
func TokenBalance(t testing.TB, bank *svm.Bank, address ed25519.PublicKey) uint64 {
	return TokenAccount(t, bank, address).Amount
}

// Mint decodes the mint at address.
func Mint(t testing.TB, bank *svm.Bank, address ed25519.PublicKey) *token.Mint {
	account, err := bank.GetAccount(context.Background(), address)
	require.NoError(t, err)

	var state token.Mint
	require.True(t, state.Unmarshal(account.Data))
	return &state
}
