package binary

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedFields(t *testing.T) {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}

	b := make([]byte, 32+8+1+1)
	var offset int
	PutKey32(b, key, &offset)
	PutUint64(b[offset:], 0x0102030405060708, &offset)
	PutUint8(b[offset:], 254, &offset)
	PutBool(b[offset:], true, &offset)
	require.Equal(t, len(b), offset)

	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b[32:40])

	var (
		actualKey ed25519.PublicKey
		actualU64 uint64
		actualU8  uint8
		actualB   bool
	)
	offset = 0
	GetKey32(b, &actualKey, &offset)
	GetUint64(b[offset:], &actualU64, &offset)
	GetUint8(b[offset:], &actualU8, &offset)
	GetBool(b[offset:], &actualB, &offset)
	require.Equal(t, len(b), offset)

	assert.Equal(t, key, actualKey)
	assert.EqualValues(t, 0x0102030405060708, actualU64)
	assert.EqualValues(t, 254, actualU8)
	assert.True(t, actualB)

	// Decoded keys don't alias the buffer
	b[0] = 0xff
	assert.EqualValues(t, 1, actualKey[0])
}

func TestOptionalFields(t *testing.T) {
	const optionSize = 4

	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	key[0] = 9
	value := uint64(42)

	b := make([]byte, 2*(optionSize+32)+2*(optionSize+8))
	for i := range b {
		b[i] = 0xaa
	}

	var offset int
	PutOptionalKey32(b, key, &offset, optionSize)
	PutOptionalKey32(b[offset:], nil, &offset, optionSize)
	PutOptionalUint64(b[offset:], &value, &offset, optionSize)
	PutOptionalUint64(b[offset:], nil, &offset, optionSize)
	require.Equal(t, len(b), offset)

	assert.Equal(t, []byte{1, 0, 0, 0}, b[:optionSize])
	assert.Equal(t, make([]byte, optionSize+32), b[optionSize+32:2*(optionSize+32)])

	var (
		presentKey, absentKey ed25519.PublicKey
		presentU64, absentU64 *uint64
	)
	offset = 0
	GetOptionalKey32(b, &presentKey, &offset, optionSize)
	GetOptionalKey32(b[offset:], &absentKey, &offset, optionSize)
	GetOptionalUint64(b[offset:], &presentU64, &offset, optionSize)
	GetOptionalUint64(b[offset:], &absentU64, &offset, optionSize)
	require.Equal(t, len(b), offset)

	assert.Equal(t, key, presentKey)
	assert.Nil(t, absentKey)
	require.NotNil(t, presentU64)
	assert.EqualValues(t, 42, *presentU64)
	assert.Nil(t, absentU64)
}
