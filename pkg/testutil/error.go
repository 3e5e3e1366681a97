package testutil

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// AssertInstructionError verifies that err is a transaction error caused by
// the instruction at index failing with expected.
func AssertInstructionError(t testing.TB, err error, index int, expected error) {
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "expected a transaction error, got %v", err)
	require.Equal(t, solana.TransactionErrorInstructionError, txErr.ErrorKey())

	instructionErr := txErr.InstructionError()
	require.NotNil(t, instructionErr)
	assert.Equal(t, index, instructionErr.Index)
	assert.Equal(t, expected, instructionErr.Err)
}

// AssertTransactionError verifies that err is a transaction error with key.
func AssertTransactionError(t testing.TB, err error, key solana.TransactionErrorKey) {
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "expected a transaction error, got %v", err)
	assert.Equal(t, key, txErr.ErrorKey())
}
