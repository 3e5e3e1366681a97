package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// ProgramKey is the address of the token program.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

// Token2022ProgramKey is the address of the token extensions program. Its base
// mint and account layouts are compatible with ProgramKey's.
var Token2022ProgramKey = mustBase58Decode("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// IsTokenProgram reports whether key is one of the supported token programs.
func IsTokenProgram(key ed25519.PublicKey) bool {
	return bytes.Equal(key, ProgramKey) || bytes.Equal(key, Token2022ProgramKey)
}

type Command byte

const (
	CommandInitializeMint Command = iota
	CommandInitializeAccount
	CommandInitializeMultisig
	CommandTransfer
	CommandApprove
	CommandRevoke
	CommandSetAuthority
	CommandMintTo
	CommandBurn
	CommandCloseAccount
	CommandFreezeAccount
	CommandThawAccount
	CommandTransfer2
	CommandApprove2
	CommandMintTo2
	CommandBurn2
	CommandInitializeAccount2
	CommandSyncNative
	CommandInitializeAccount3
	CommandInitializeMultisig2
	CommandInitializeMint2

	CommandUnknown = Command(math.MaxUint8)
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/error.rs
const (
	ErrorNotRentExempt solana.CustomError = iota
	ErrorInsufficientFunds
	ErrorInvalidMint
	ErrorMintMismatch
	ErrorOwnerMismatch
	ErrorFixedSupply
	ErrorAlreadyInUse
	ErrorInvalidNumberOfProvidedSigners
	ErrorInvalidNumberOfRequiredSigners
	ErrorUninitializedState
	ErrorNativeNotSupported
	ErrorNonNativeHasBalance
	ErrorInvalidInstruction
	ErrorInvalidState
	ErrorOverflow
	ErrorAuthorityTypeNotSupported
	ErrorMintCannotFreeze
	ErrorAccountFrozen
	ErrorMintDecimalsMismatch
)

func GetCommand(m solana.Message, index int) (Command, error) {
	if index >= len(m.Instructions) {
		return CommandUnknown, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !IsTokenProgram(m.Accounts[i.ProgramIndex]) {
		return CommandUnknown, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}

	return Command(i.Data[0]), nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L468
func InitializeMint2(mint, mintAuthority, freezeAuthority ed25519.PublicKey, decimals byte) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	args := InitializeMint2Args{
		Decimals:        decimals,
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}

	return solana.NewInstruction(
		ProgramKey,
		args.Marshal(),
		solana.NewAccountMeta(mint, false),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L443
func InitializeAccount3(account, mint, owner ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]`  The account to initialize.
	//   1. `[]` The mint this account will be associated with.
	data := make([]byte, 1+ed25519.PublicKeySize)
	data[0] = byte(CommandInitializeAccount3)
	copy(data[1:], owner)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L76-L91
func Transfer(source, dest, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The source account's owner.
	return solana.NewInstruction(
		ProgramKey,
		amountData(CommandTransfer, amount),
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L155-L166
func MintTo(mint, dest, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint.
	//   1. `[writable]` The account to mint tokens to.
	//   2. `[signer]` The mint's minting authority.
	return solana.NewInstruction(
		ProgramKey,
		amountData(CommandMintTo, amount),
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L183-L197
func CloseAccount(account, dest, owner ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to close.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The account's owner.
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// FreezeAccount freezes a token account using the mint's freeze authority.
func FreezeAccount(account, mint, freezeAuthority ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandFreezeAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(freezeAuthority, true),
	)
}

// ThawAccount reverses FreezeAccount.
func ThawAccount(account, mint, freezeAuthority ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandThawAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(freezeAuthority, true),
	)
}

type InitializeMint2Args struct {
	Decimals        byte
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
}

const initializeMint2DataSize = 1 + 1 + ed25519.PublicKeySize + 1 + ed25519.PublicKeySize

func (a *InitializeMint2Args) Marshal() []byte {
	data := make([]byte, initializeMint2DataSize)
	data[0] = byte(CommandInitializeMint2)
	data[1] = a.Decimals
	copy(data[2:], a.MintAuthority)
	if len(a.FreezeAuthority) > 0 {
		data[2+ed25519.PublicKeySize] = 1
		copy(data[3+ed25519.PublicKeySize:], a.FreezeAuthority)
	}
	return data
}

// Unmarshal accepts both the full encoding and the short form where an absent
// freeze authority is a single zero byte.
func (a *InitializeMint2Args) Unmarshal(data []byte) error {
	if len(data) < 3+ed25519.PublicKeySize || data[0] != byte(CommandInitializeMint2) {
		return errors.New("invalid initialize mint data")
	}

	a.Decimals = data[1]
	a.MintAuthority = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(a.MintAuthority, data[2:])

	a.FreezeAuthority = nil
	switch data[2+ed25519.PublicKeySize] {
	case 0:
	case 1:
		if len(data) < initializeMint2DataSize {
			return errors.New("invalid initialize mint freeze authority")
		}
		a.FreezeAuthority = make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(a.FreezeAuthority, data[3+ed25519.PublicKeySize:])
	default:
		return errors.New("invalid initialize mint freeze authority option")
	}
	return nil
}

type InitializeAccount3Args struct {
	Owner ed25519.PublicKey
}

func (a *InitializeAccount3Args) Unmarshal(data []byte) error {
	if len(data) != 1+ed25519.PublicKeySize || data[0] != byte(CommandInitializeAccount3) {
		return errors.New("invalid initialize account data")
	}

	a.Owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(a.Owner, data[1:])
	return nil
}

// GetAmount parses instructions of the form `command | u64 amount`, such as
// Transfer and MintTo.
func GetAmount(data []byte, command Command) (uint64, error) {
	if len(data) != 1+8 || data[0] != byte(command) {
		return 0, errors.Errorf("invalid %d instruction data", command)
	}

	return binary.LittleEndian.Uint64(data[1:]), nil
}

func amountData(command Command, amount uint64) []byte {
	data := make([]byte, 1+8)
	data[0] = byte(command)
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

type DecompiledTransfer struct {
	Source      ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
	Amount      uint64
}

func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	i, err := getInstruction(m, index, CommandTransfer)
	if err != nil {
		return nil, err
	}

	// note: we do < 3 instead of != 3 in order to support multisig cases.
	if len(i.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	amount, err := GetAmount(i.Data, CommandTransfer)
	if err != nil {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	return &DecompiledTransfer{
		Source:      m.Accounts[i.Accounts[0]],
		Destination: m.Accounts[i.Accounts[1]],
		Owner:       m.Accounts[i.Accounts[2]],
		Amount:      amount,
	}, nil
}

type DecompiledCloseAccount struct {
	Account     ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
}

func DecompileCloseAccount(m solana.Message, index int) (*DecompiledCloseAccount, error) {
	i, err := getInstruction(m, index, CommandCloseAccount)
	if err != nil {
		return nil, err
	}

	if len(i.Data) != 1 {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	return &DecompiledCloseAccount{
		Account:     m.Accounts[i.Accounts[0]],
		Destination: m.Accounts[i.Accounts[1]],
		Owner:       m.Accounts[i.Accounts[2]],
	}, nil
}

func getInstruction(m solana.Message, index int, command Command) (*solana.CompiledInstruction, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !IsTokenProgram(m.Accounts[i.ProgramIndex]) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || Command(i.Data[0]) != command {
		return nil, solana.ErrIncorrectInstruction
	}

	return &i, nil
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
