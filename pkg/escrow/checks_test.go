package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

func TestChecks(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 4)
	authority, mint, other := keys[0], keys[1], keys[2]

	ata, err := token.GetAssociatedAccountForProgram(authority, mint, TOKEN_PROGRAM_ID)
	require.NoError(t, err)

	mintData := (&token.Mint{IsInitialized: true}).Marshal()
	accountData := (&token.Account{Mint: mint, Owner: authority, State: token.AccountStateInitialized}).Marshal()

	for _, tc := range []struct {
		name     string
		check    accountCheck
		account  *program.AccountInfo
		expected error
	}{
		{"signer", SignerAccount{}, &program.AccountInfo{IsSigner: true}, nil},
		{"not signer", SignerAccount{}, &program.AccountInfo{IsWritable: true}, ErrNotSigner},

		{"program account", ProgramAccount{Program: PROGRAM_ID}, &program.AccountInfo{Owner: PROGRAM_ID, Data: make([]byte, EscrowAccountSize)}, nil},
		{"program account wrong owner", ProgramAccount{Program: PROGRAM_ID}, &program.AccountInfo{Owner: other, Data: make([]byte, EscrowAccountSize)}, ErrInvalidOwner},
		{"program account wrong size", ProgramAccount{Program: PROGRAM_ID}, &program.AccountInfo{Owner: PROGRAM_ID, Data: make([]byte, 8)}, ErrInvalidAccountData},

		{"mint", MintAccount{}, &program.AccountInfo{Owner: TOKEN_PROGRAM_ID, Data: mintData}, nil},
		{"mint token-2022", MintAccount{}, &program.AccountInfo{Owner: TOKEN_2022_PROGRAM_ID, Data: mintData}, nil},
		{"mint wrong owner", MintAccount{}, &program.AccountInfo{Owner: SYSTEM_PROGRAM_ID, Data: mintData}, ErrInvalidOwner},
		{"mint wrong layout", MintAccount{}, &program.AccountInfo{Owner: TOKEN_PROGRAM_ID, Data: accountData}, ErrInvalidAccountData},

		{"token account", TokenAccount{}, &program.AccountInfo{Owner: TOKEN_PROGRAM_ID, Data: accountData}, nil},
		{"token account missing", TokenAccount{}, &program.AccountInfo{Owner: SYSTEM_PROGRAM_ID}, ErrInvalidOwner},
		{"token account wrong layout", TokenAccount{}, &program.AccountInfo{Owner: TOKEN_PROGRAM_ID, Data: mintData}, ErrInvalidAccountData},

		{"associated", AssociatedTokenAccount{Authority: authority, Mint: mint, TokenProgram: TOKEN_PROGRAM_ID}, &program.AccountInfo{Key: ata}, nil},
		{"associated wrong address", AssociatedTokenAccount{Authority: authority, Mint: mint, TokenProgram: TOKEN_PROGRAM_ID}, &program.AccountInfo{Key: other}, ErrInvalidAddress},
		{"associated wrong program", AssociatedTokenAccount{Authority: authority, Mint: mint, TokenProgram: TOKEN_2022_PROGRAM_ID}, &program.AccountInfo{Key: ata}, ErrInvalidAddress},

		{"uninitialized", UninitializedAccount{}, &program.AccountInfo{Owner: SYSTEM_PROGRAM_ID}, nil},
		{"uninitialized with data", UninitializedAccount{}, &program.AccountInfo{Owner: SYSTEM_PROGRAM_ID, Data: []byte{1}}, program.ErrAccountAlreadyInitialized},
		{"uninitialized wrong owner", UninitializedAccount{}, &program.AccountInfo{Owner: PROGRAM_ID}, program.ErrAccountAlreadyInitialized},

		{"program interface", tokenProgramInterface, &program.AccountInfo{Key: TOKEN_2022_PROGRAM_ID}, nil},
		{"program interface mismatch", systemProgramInterface, &program.AccountInfo{Key: TOKEN_PROGRAM_ID}, program.ErrIncorrectProgramID},
	} {
		t.Run(tc.name, func(t *testing.T) {
			before := *tc.account
			assert.Equal(t, tc.expected, tc.check.Check(tc.account))
			assert.Equal(t, before, *tc.account)
		})
	}
}

func TestCheck_StopsAtFirstFailure(t *testing.T) {
	account := &program.AccountInfo{Owner: SYSTEM_PROGRAM_ID}

	assert.NoError(t, check(account))
	assert.Equal(t, ErrNotSigner, check(account, UninitializedAccount{}, SignerAccount{}, TokenAccount{}))
	assert.Equal(t, ErrInvalidOwner, check(account, TokenAccount{}, SignerAccount{}))
}

func TestCheckTokenProgram(t *testing.T) {
	tokenProgram := &program.AccountInfo{Key: TOKEN_PROGRAM_ID}
	legacyMint := &program.AccountInfo{Owner: TOKEN_PROGRAM_ID}
	extendedMint := &program.AccountInfo{Owner: TOKEN_2022_PROGRAM_ID}

	assert.NoError(t, checkTokenProgram(tokenProgram, legacyMint, legacyMint))
	assert.Equal(t, program.ErrIncorrectProgramID, checkTokenProgram(tokenProgram, legacyMint, extendedMint))
	assert.Equal(t, program.ErrIncorrectProgramID, checkTokenProgram(&program.AccountInfo{Key: SYSTEM_PROGRAM_ID}))
}

func TestTokenAmount(t *testing.T) {
	amount, err := tokenAmount(&program.AccountInfo{Data: (&token.Account{Amount: 500, State: token.AccountStateInitialized}).Marshal()})
	require.NoError(t, err)
	assert.EqualValues(t, 500, amount)

	_, err = tokenAmount(&program.AccountInfo{})
	assert.Equal(t, ErrInvalidAccountData, err)
}
