// Package program defines the interface between on-chain programs and the
// runtime that executes them.
package program

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// AccountInfo is a program's view of an account passed to an instruction.
//
// Programs mutate Lamports, Data and Owner in place. The runtime verifies the
// changes against the account's privileges once the program returns or
// performs a cross-program invocation.
type AccountInfo struct {
	Key        ed25519.PublicKey
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool

	IsSigner   bool
	IsWritable bool
}

// IsOwnedBy reports whether the account is owned by program.
func (a *AccountInfo) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner, program)
}

// HasKey reports whether the account's address is key.
func (a *AccountInfo) HasKey(key ed25519.PublicKey) bool {
	return bytes.Equal(a.Key, key)
}

// Seeds are the signer seeds, including the bump, of a program derived
// address the invoking program signs for.
type Seeds [][]byte

// Context is the runtime surface available to a program while it processes an
// instruction.
type Context interface {
	// ProgramID is the address of the executing program.
	ProgramID() ed25519.PublicKey

	// Invoke performs a cross-program invocation. Accounts referenced by the
	// instruction must have been passed to the current instruction, and their
	// privileges can only be extended by signers for program derived addresses
	// of the current program.
	Invoke(instruction solana.Instruction, signers ...Seeds) error

	// MinimumBalance returns the lamports needed for an account of the provided
	// data size to be rent exempt.
	MinimumBalance(size uint64) uint64

	// Log records a program log message for the transaction.
	Log(format string, args ...interface{})
}

// Processor executes instructions for a single program.
type Processor interface {
	Process(ctx Context, accounts []*AccountInfo, data []byte) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(ctx Context, accounts []*AccountInfo, data []byte) error

func (f ProcessorFunc) Process(ctx Context, accounts []*AccountInfo, data []byte) error {
	return f(ctx, accounts, data)
}
