package system

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

var ProgramKey [32]byte

// Command is the u32 instruction tag used by the system program.
type Command uint32

const (
	CommandCreateAccount Command = iota
	CommandAssign
	CommandTransfer
	CommandCreateAccountWithSeed
	CommandAdvanceNonceAccount
	CommandWithdrawNonceAccount
	CommandInitializeNonceAccount
	CommandAuthorizeNonceAccount
	CommandAllocate
	CommandAllocateWithSeed
	CommandAssignWithSeed
	CommandTransferWithSeed
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/system_instruction.rs#L22
const (
	ErrorAccountAlreadyInUse solana.CustomError = iota
	ErrorResultWithNegativeLamports
	ErrorInvalidProgramId
	ErrorInvalidAccountDataLength
	ErrorMaxSeedLengthExceeded
	ErrorAddressWithSeedMismatch
)

// MaxPermittedDataLength is the largest allocation the system program allows.
const MaxPermittedDataLength = 10 * 1024 * 1024

const (
	createAccountDataSize = 4 + 2*8 + ed25519.PublicKeySize
	assignDataSize        = 4 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
	allocateDataSize      = 4 + 8
)

// GetCommand returns the command tag of system program instruction data.
func GetCommand(data []byte) (Command, error) {
	if len(data) < 4 {
		return 0, errors.New("instruction data too short for command")
	}

	return Command(binary.LittleEndian.Uint32(data)), nil
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	data := make([]byte, createAccountDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandCreateAccount))
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[4+8:], size)
	copy(data[4+2*8:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

// Assign changes the owner of a system account that has signed.
func Assign(address, owner ed25519.PublicKey) solana.Instruction {
	data := make([]byte, assignDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandAssign))
	copy(data[4:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(address, true),
	)
}

// Transfer moves lamports out of a system owned account.
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Recipient account
	data := make([]byte, transferDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandTransfer))
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

// Allocate sizes the data of a system account that has signed.
func Allocate(address ed25519.PublicKey, size uint64) solana.Instruction {
	data := make([]byte, allocateDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandAllocate))
	binary.LittleEndian.PutUint64(data[4:], size)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(address, true),
	)
}

type CreateAccountArgs struct {
	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func (a *CreateAccountArgs) Unmarshal(data []byte) error {
	if len(data) != createAccountDataSize {
		return errors.Errorf("invalid create account data size: %d", len(data))
	}

	a.Lamports = binary.LittleEndian.Uint64(data[4:])
	a.Size = binary.LittleEndian.Uint64(data[4+8:])
	a.Owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(a.Owner, data[4+2*8:])
	return nil
}

type AssignArgs struct {
	Owner ed25519.PublicKey
}

func (a *AssignArgs) Unmarshal(data []byte) error {
	if len(data) != assignDataSize {
		return errors.Errorf("invalid assign data size: %d", len(data))
	}

	a.Owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(a.Owner, data[4:])
	return nil
}

type TransferArgs struct {
	Lamports uint64
}

func (a *TransferArgs) Unmarshal(data []byte) error {
	if len(data) != transferDataSize {
		return errors.Errorf("invalid transfer data size: %d", len(data))
	}

	a.Lamports = binary.LittleEndian.Uint64(data[4:])
	return nil
}

type AllocateArgs struct {
	Size uint64
}

func (a *AllocateArgs) Unmarshal(data []byte) error {
	if len(data) != allocateDataSize {
		return errors.Errorf("invalid allocate data size: %d", len(data))
	}

	a.Size = binary.LittleEndian.Uint64(data[4:])
	return nil
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	CreateAccountArgs
}

func DecompileCreateAccount(m solana.Message, index int) (*DecompiledCreateAccount, error) {
	i, err := getInstruction(m, index, CommandCreateAccount)
	if err != nil {
		return nil, err
	}

	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	v := &DecompiledCreateAccount{
		Funder:  m.Accounts[i.Accounts[0]],
		Address: m.Accounts[i.Accounts[1]],
	}
	if err := v.CreateAccountArgs.Unmarshal(i.Data); err != nil {
		return nil, err
	}
	return v, nil
}

type DecompiledTransfer struct {
	From ed25519.PublicKey
	To   ed25519.PublicKey

	Lamports uint64
}

func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	i, err := getInstruction(m, index, CommandTransfer)
	if err != nil {
		return nil, err
	}

	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	var args TransferArgs
	if err := args.Unmarshal(i.Data); err != nil {
		return nil, err
	}

	return &DecompiledTransfer{
		From:     m.Accounts[i.Accounts[0]],
		To:       m.Accounts[i.Accounts[1]],
		Lamports: args.Lamports,
	}, nil
}

func getInstruction(m solana.Message, index int, command Command) (*solana.CompiledInstruction, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey[:]) {
		return nil, solana.ErrIncorrectProgram
	}

	actual, err := GetCommand(i.Data)
	if err != nil || actual != command {
		return nil, solana.ErrIncorrectInstruction
	}

	return &i, nil
}
