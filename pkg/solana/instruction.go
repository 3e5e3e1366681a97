package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"sort"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta is an account referenced by an instruction along with the
// privileges the instruction needs for it.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
	isPayer    bool
	isProgram  bool
}

// NewAccountMeta returns a writable AccountMeta.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta returns a readonly AccountMeta.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// rank orders accounts within a message: payer, writable signers, readonly
// signers, writable non-signers, readonly non-signers, then programs.
func (a AccountMeta) rank() int {
	switch {
	case a.isPayer:
		return 0
	case a.isProgram:
		return 5
	case a.IsSigner && a.IsWritable:
		return 1
	case a.IsSigner:
		return 2
	case a.IsWritable:
		return 3
	default:
		return 4
	}
}

// mergeAccountMetas collapses repeated keys into one entry holding the union
// of their privileges, keeping first-seen order. Whether a key is treated as a
// program is decided by its first occurrence.
func mergeAccountMetas(accounts []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(accounts))
	positions := make(map[string]int, len(accounts))

	for _, account := range accounts {
		i, ok := positions[string(account.PublicKey)]
		if !ok {
			positions[string(account.PublicKey)] = len(merged)
			merged = append(merged, account)
			continue
		}

		merged[i].IsSigner = merged[i].IsSigner || account.IsSigner
		merged[i].IsWritable = merged[i].IsWritable || account.IsWritable
		merged[i].isPayer = merged[i].isPayer || account.isPayer
	}

	return merged
}

// sortAccountMetas puts accounts into message order. Ties are broken by key so
// compilation is deterministic.
func sortAccountMetas(accounts []AccountMeta) {
	sort.SliceStable(accounts, func(i, j int) bool {
		ri, rj := accounts[i].rank(), accounts[j].rank()
		if ri != rj {
			return ri < rj
		}
		return bytes.Compare(accounts[i].PublicKey, accounts[j].PublicKey) < 0
	})
}

// Instruction is a single program call within a transaction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction is an Instruction whose program and accounts are
// indexes into the message's account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
