package svm

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// verifyAccount checks the changes program made to an account against the
// account's privileges. pre is the state the program was handed.
func verifyAccount(programID ed25519.PublicKey, pre *Account, post *program.AccountInfo) error {
	ownedByProgram := bytes.Equal(pre.Owner, programID)

	if !bytes.Equal(pre.Owner, post.Owner) {
		if !post.IsWritable || !ownedByProgram || pre.Executable || !isZeroed(post.Data) {
			return program.ErrModifiedProgramID
		}
	}

	if pre.Executable != post.Executable {
		return program.ErrExecutableModified
	}

	if pre.Lamports != post.Lamports {
		if !post.IsWritable {
			return program.ErrReadonlyLamportChange
		}
		if post.Lamports < pre.Lamports && !ownedByProgram {
			return program.ErrExternalAccountLamportSpend
		}
	}

	if !bytes.Equal(pre.Data, post.Data) {
		if !post.IsWritable {
			return program.ErrReadonlyDataModified
		}
		if !ownedByProgram {
			return program.ErrExternalAccountDataModified
		}
	}

	return nil
}

// verifyBalanced requires the total lamports across the accounts to be
// unchanged by an instruction.
func verifyBalanced(pre []*Account, post []*program.AccountInfo) error {
	var before, after, carry uint64
	for _, account := range pre {
		before, carry = bits.Add64(before, account.Lamports, 0)
		if carry != 0 {
			return program.ErrArithmeticOverflow
		}
	}
	for _, account := range post {
		after, carry = bits.Add64(after, account.Lamports, 0)
		if carry != 0 {
			return program.ErrArithmeticOverflow
		}
	}

	if before != after {
		return program.ErrUnbalancedInstruction
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
