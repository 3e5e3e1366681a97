// Package binary reads and writes the little endian fields of account and
// instruction layouts. Every function advances offset by the size of the
// field it handles, so layouts read as a flat list of calls.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

const (
	keySize    = ed25519.PublicKeySize
	uint64Size = 8

	optionNone byte = 0
	optionSome byte = 1
)

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst[:keySize], src)
	*offset += keySize
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = cloneKey(src)
	*offset += keySize
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += uint64Size
}

func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src)
	*offset += uint64Size
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[0] = v
	*offset++
}

func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[0]
	*offset++
}

func PutBool(dst []byte, v bool, offset *int) {
	var b uint8
	if v {
		b = 1
	}
	PutUint8(dst, b, offset)
}

func GetBool(src []byte, dst *bool, offset *int) {
	var b uint8
	GetUint8(src, &b, offset)
	*dst = b != 0
}

// Optional fields are a tag of optionSize bytes followed by the value, which
// is zeroed when absent. The tag's first byte is 1 when the value is present.

func PutOptionalKey32(dst []byte, src []byte, offset *int, optionSize int) {
	if putOptionTag(dst, optionSize+keySize, len(src) > 0) {
		copy(dst[optionSize:optionSize+keySize], src)
	}
	*offset += optionSize + keySize
}

func GetOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int, optionSize int) {
	if src[0] == optionSome {
		*dst = cloneKey(src[optionSize:])
	}
	*offset += optionSize + keySize
}

func PutOptionalUint64(dst []byte, v *uint64, offset *int, optionSize int) {
	if putOptionTag(dst, optionSize+uint64Size, v != nil) {
		binary.LittleEndian.PutUint64(dst[optionSize:], *v)
	}
	*offset += optionSize + uint64Size
}

func GetOptionalUint64(src []byte, dst **uint64, offset *int, optionSize int) {
	if src[0] == optionSome {
		val := binary.LittleEndian.Uint64(src[optionSize:])
		*dst = &val
	}
	*offset += optionSize + uint64Size
}

func putOptionTag(dst []byte, size int, present bool) bool {
	for i := range dst[:size] {
		dst[i] = 0
	}
	if present {
		dst[0] = optionSome
	} else {
		dst[0] = optionNone
	}
	return present
}

func cloneKey(src []byte) ed25519.PublicKey {
	key := make(ed25519.PublicKey, keySize)
	copy(key, src[:keySize])
	return key
}
