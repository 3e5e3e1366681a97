package escrow

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
)

func TestDescribeError(t *testing.T) {
	assert.Empty(t, DescribeError(nil))
	assert.Equal(t, "InvalidAddress (custom program error: 5)", DescribeError(ErrInvalidAddress))
	assert.Equal(t, "NotSigner (custom program error: 1)", DescribeError(errors.Wrap(ErrNotSigner, "make")))
	assert.Equal(t, string(solana.InstructionErrorInvalidAccountOwner), DescribeError(solana.InstructionErrorInvalidAccountOwner))
	assert.Equal(t, "boom", DescribeError(errors.New("boom")))

	txErr, err := solana.TransactionErrorFromInstructionError(&solana.InstructionError{Index: 0, Err: ErrNotRentExempt})
	require.NoError(t, err)
	assert.Equal(t, "NotRentExempt (custom program error: 0)", DescribeError(txErr))
}
