// Package shortvec implements the compact-u16 length prefix used by the
// transaction wire format: seven bits per byte, least significant group
// first, at most three bytes.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedLen = 3

var (
	ErrLenOutOfRange = errors.New("len out of range")
	ErrNonCanonical  = errors.New("non-canonical encoding")
	ErrTooLong       = errors.Errorf("encoding exceeds %d bytes", maxEncodedLen)
)

// EncodeLen writes n to w and returns the number of bytes written.
func EncodeLen(w io.ByteWriter, n int) (int, error) {
	if n < 0 || n > math.MaxUint16 {
		return 0, errors.Wrapf(ErrLenOutOfRange, "%d", n)
	}

	written := 0
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}

		if err := w.WriteByte(b); err != nil {
			return written, err
		}
		written++

		if n == 0 {
			return written, nil
		}
	}
}

// DecodeLen reads a length from r. Encodings with redundant trailing groups
// are rejected so every length has exactly one encoding.
func DecodeLen(r io.ByteReader) (int, error) {
	var val int
	for i := 0; i < maxEncodedLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		if i > 0 && b == 0 {
			return 0, ErrNonCanonical
		}

		val |= int(b&0x7f) << (7 * i)
		if val > math.MaxUint16 {
			return 0, errors.Wrapf(ErrLenOutOfRange, "%d", val)
		}

		if b&0x80 == 0 {
			return val, nil
		}
	}

	return 0, ErrTooLong
}
