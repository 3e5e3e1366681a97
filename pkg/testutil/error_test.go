package testutil

import (
	"testing"

	"github.com/code-payments/code-escrow/pkg/solana"
)

func TestAssertInstructionError(t *testing.T) {
	err, convErr := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: 2,
		Err:   solana.CustomError(5),
	})
	if convErr != nil {
		t.Fatal(convErr)
	}

	AssertInstructionError(t, err, 2, solana.CustomError(5))
	AssertTransactionError(t, err, solana.TransactionErrorInstructionError)
}

func TestAssertTransactionError(t *testing.T) {
	AssertTransactionError(t, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature), solana.TransactionErrorDuplicateSignature)
}
