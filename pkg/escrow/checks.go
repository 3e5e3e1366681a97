package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// Account role checks. Each one inspects a single account, never mutates it,
// and fails with the error for the first violated property.

// SignerAccount requires the account to have signed the transaction.
type SignerAccount struct{}

func (SignerAccount) Check(account *program.AccountInfo) error {
	if !account.IsSigner {
		return ErrNotSigner
	}
	return nil
}

// ProgramAccount requires an escrow record owned by the executing program.
type ProgramAccount struct {
	Program ed25519.PublicKey
}

func (c ProgramAccount) Check(account *program.AccountInfo) error {
	if !account.IsOwnedBy(c.Program) {
		return ErrInvalidOwner
	}
	if len(account.Data) != EscrowAccountSize {
		return ErrInvalidAccountData
	}
	return nil
}

// MintAccount requires a mint owned by either token program.
type MintAccount struct{}

func (MintAccount) Check(account *program.AccountInfo) error {
	if !token.IsTokenProgram(account.Owner) {
		return ErrInvalidOwner
	}
	if !token.IsMintData(account.Data) {
		return ErrInvalidAccountData
	}
	return nil
}

// TokenAccount requires an existing token account owned by either token program.
type TokenAccount struct{}

func (TokenAccount) Check(account *program.AccountInfo) error {
	if !token.IsTokenProgram(account.Owner) {
		return ErrInvalidOwner
	}
	if !token.IsAccountData(account.Data) {
		return ErrInvalidAccountData
	}
	return nil
}

// AssociatedTokenAccount requires the account's address to be the associated
// token account of (Authority, Mint) under TokenProgram. It does not require
// the account to exist yet.
type AssociatedTokenAccount struct {
	Authority    ed25519.PublicKey
	Mint         ed25519.PublicKey
	TokenProgram ed25519.PublicKey
}

func (c AssociatedTokenAccount) Check(account *program.AccountInfo) error {
	expected, err := token.GetAssociatedAccountForProgram(c.Authority, c.Mint, c.TokenProgram)
	if err != nil {
		return ErrInvalidAddress
	}
	if !account.HasKey(expected) {
		return ErrInvalidAddress
	}
	return nil
}

// UninitializedAccount requires an account that has never been allocated: no
// data and owned by the system program.
type UninitializedAccount struct{}

func (UninitializedAccount) Check(account *program.AccountInfo) error {
	if len(account.Data) != 0 || !account.IsOwnedBy(SYSTEM_PROGRAM_ID) {
		return program.ErrAccountAlreadyInitialized
	}
	return nil
}

// ProgramInterface requires a program account whose address is one of Expected.
type ProgramInterface struct {
	Expected []ed25519.PublicKey
}

func (c ProgramInterface) Check(account *program.AccountInfo) error {
	for _, expected := range c.Expected {
		if account.HasKey(expected) {
			return nil
		}
	}
	return program.ErrIncorrectProgramID
}

// isUninitialized reports whether account has never been allocated. Token
// accounts created by init-if-needed flows are detected this way.
func isUninitialized(account *program.AccountInfo) bool {
	return UninitializedAccount{}.Check(account) == nil
}

// tokenAmount reads the balance of an existing token account.
func tokenAmount(account *program.AccountInfo) (uint64, error) {
	var state token.Account
	if !state.Unmarshal(account.Data) {
		return 0, ErrInvalidAccountData
	}
	return state.Amount, nil
}
