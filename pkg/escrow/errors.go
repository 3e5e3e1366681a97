package escrow

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// Custom errors returned by the escrow program. The runtime reports them as
// solana.CustomError values at the failing instruction.
const (
	ErrNotRentExempt solana.CustomError = iota
	ErrNotSigner
	ErrInvalidOwner
	ErrNotProgramOwner
	ErrInvalidAccountData
	ErrInvalidAddress
)

var customErrorNames = map[solana.CustomError]string{
	ErrNotRentExempt:      "NotRentExempt",
	ErrNotSigner:          "NotSigner",
	ErrInvalidOwner:       "InvalidOwner",
	ErrNotProgramOwner:    "NotProgramOwner",
	ErrInvalidAccountData: "InvalidAccountData",
	ErrInvalidAddress:     "InvalidAddress",
}

// DescribeError names the failure carried by err when it originated in the
// escrow program. Errors raised by other programs, such as the token program,
// share the custom code space and should be inspected with the index of the
// failing instruction in mind.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var custom solana.CustomError
	if errors.As(err, &custom) {
		if name, ok := customErrorNames[custom]; ok {
			return fmt.Sprintf("%s (custom program error: %d)", name, int(custom))
		}
		return custom.Error()
	}

	var key solana.InstructionErrorKey
	if errors.As(err, &key) {
		return string(key)
	}

	return err.Error()
}
