package program

import (
	"github.com/code-payments/code-escrow/pkg/solana"
)

// Builtin program errors. They compare equal to the runtime's instruction
// error keys, so they survive wrapping in solana.InstructionError.
var (
	ErrInvalidArgument             error = solana.InstructionErrorInvalidArgument
	ErrInvalidInstructionData      error = solana.InstructionErrorInvalidInstructionData
	ErrInvalidAccountData          error = solana.InstructionErrorInvalidAccountData
	ErrAccountDataTooSmall         error = solana.InstructionErrorAccountDataTooSmall
	ErrInsufficientFunds           error = solana.InstructionErrorInsufficientFunds
	ErrIncorrectProgramID          error = solana.InstructionErrorIncorrectProgramID
	ErrMissingRequiredSignature    error = solana.InstructionErrorMissingRequiredSignature
	ErrAccountAlreadyInitialized   error = solana.InstructionErrorAccountAlreadyInitialized
	ErrUninitializedAccount        error = solana.InstructionErrorUninitializedAccount
	ErrNotEnoughAccountKeys        error = solana.InstructionErrorNotEnoughAccountKeys
	ErrMaxSeedLengthExceeded       error = solana.InstructionErrorMaxSeedLengthExceeded
	ErrInvalidSeeds                error = solana.InstructionErrorInvalidSeeds
	ErrIllegalOwner                error = solana.InstructionErrorIllegalOwner
	ErrInvalidAccountOwner         error = solana.InstructionErrorInvalidAccountOwner
	ErrArithmeticOverflow          error = solana.InstructionErrorArithmeticOverflow
	ErrUnsupportedProgramID        error = solana.InstructionErrorUnsupportedProgramID
	ErrMissingAccount              error = solana.InstructionErrorMissingAccount
	ErrPrivilegeEscalation         error = solana.InstructionErrorPrivilegeEscalation
	ErrCallDepth                   error = solana.InstructionErrorCallDepth
	ErrReentrancyNotAllowed        error = solana.InstructionErrorReentrancyNotAllowed
	ErrUnbalancedInstruction       error = solana.InstructionErrorUnbalancedInstruction
	ErrModifiedProgramID           error = solana.InstructionErrorModifiedProgramID
	ErrExternalAccountLamportSpend error = solana.InstructionErrorExternalAccountLamportSpend
	ErrExternalAccountDataModified error = solana.InstructionErrorExternalAccountDataModified
	ErrReadonlyLamportChange       error = solana.InstructionErrorReadonlyLamportChange
	ErrReadonlyDataModified        error = solana.InstructionErrorReadonlyDataModified
	ErrExecutableModified          error = solana.InstructionErrorExecutableModified
	ErrAccountNotExecutable        error = solana.InstructionErrorAccountNotExecutable
)
