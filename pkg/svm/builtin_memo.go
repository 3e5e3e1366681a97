package svm

import (
	"unicode/utf8"

	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// memoProgram accepts UTF-8 memos. Every account passed to it must have
// signed the transaction.
type memoProgram struct{}

func (p *memoProgram) Process(ctx program.Context, accounts []*program.AccountInfo, data []byte) error {
	for _, account := range accounts {
		if !account.IsSigner {
			return program.ErrMissingRequiredSignature
		}
	}

	if !utf8.Valid(data) {
		return program.ErrInvalidInstructionData
	}

	ctx.Log("Memo (len %d): %q", len(data), string(data))
	return nil
}
