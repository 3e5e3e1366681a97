package solana

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	d := json.NewDecoder(bytes.NewBufferString(`"DuplicateSignature"`))
	var expected interface{}
	assert.NoError(t, d.Decode(&expected))

	e := NewTransactionError(TransactionErrorDuplicateSignature)
	assert.Equal(t, expected, e.raw)

	d = json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[0,"InvalidArgument"]}`))
	assert.NoError(t, d.Decode(&expected))
	e, err := TransactionErrorFromInstructionError(&InstructionError{
		Index: 0,
		Err:   errors.New(string(InstructionErrorInvalidArgument)),
	})
	assert.NoError(t, err)
	assert.Equal(t, expected, e.raw)

	d = json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[2,{"Custom":3}]}`))
	assert.NoError(t, d.Decode(&expected))
	e, err = TransactionErrorFromInstructionError(&InstructionError{
		Index: 2,
		Err:   CustomError(3),
	})
	assert.NoError(t, err)
	assert.Equal(t, expected, e.raw)
}

func TestInstructionErrorKeyAsError(t *testing.T) {
	ixnErr := &InstructionError{
		Index: 1,
		Err:   InstructionErrorNotEnoughAccountKeys,
	}
	assert.Equal(t, InstructionErrorNotEnoughAccountKeys, ixnErr.ErrorKey())
	assert.Nil(t, ixnErr.CustomError())
	assert.Equal(t, `[1, "NotEnoughAccountKeys"]`, ixnErr.JSONString())

	txnErr, err := TransactionErrorFromInstructionError(ixnErr)
	assert.NoError(t, err)
	assert.True(t, errors.Is(txnErr, InstructionErrorNotEnoughAccountKeys))
	assert.False(t, errors.Is(txnErr, InstructionErrorInvalidAccountOwner))

	txnErr, err = TransactionErrorFromInstructionError(&InstructionError{Index: 0, Err: CustomError(5)})
	assert.NoError(t, err)
	assert.True(t, errors.Is(txnErr, CustomError(5)))

	var custom CustomError
	assert.True(t, errors.As(txnErr, &custom))
	assert.EqualValues(t, 5, custom)
}
