package svm

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/svm/store"
)

// NativeLoaderKey owns the builtin program accounts.
var NativeLoaderKey = mustBase58Decode("NativeLoader1111111111111111111111111111111")

// Account is the state of a single account as seen by the runtime.
type Account struct {
	Address    ed25519.PublicKey
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

func (a *Account) Clone() *Account {
	return &Account{
		Address:    cloneKey(a.Address),
		Owner:      cloneKey(a.Owner),
		Lamports:   a.Lamports,
		Data:       cloneBytes(a.Data),
		Executable: a.Executable,
	}
}

func (a *Account) String() string {
	return base58.Encode(a.Address)
}

func (a *Account) equal(other *Account) bool {
	return bytes.Equal(a.Owner, other.Owner) &&
		a.Lamports == other.Lamports &&
		bytes.Equal(a.Data, other.Data) &&
		a.Executable == other.Executable
}

func newSystemAccount(address ed25519.PublicKey) *Account {
	return &Account{
		Address: cloneKey(address),
		Owner:   cloneKey(system.ProgramKey[:]),
	}
}

func newProgramAccount(address ed25519.PublicKey) *Account {
	return &Account{
		Address:    cloneKey(address),
		Owner:      cloneKey(NativeLoaderKey),
		Lamports:   1,
		Executable: true,
	}
}

func fromRecord(record *store.Record) (*Account, error) {
	address, err := base58.Decode(record.Address)
	if err != nil {
		return nil, errors.Wrap(err, "invalid stored address")
	}
	owner, err := base58.Decode(record.Owner)
	if err != nil {
		return nil, errors.Wrap(err, "invalid stored owner")
	}

	return &Account{
		Address:    address,
		Owner:      owner,
		Lamports:   record.Lamports,
		Data:       cloneBytes(record.Data),
		Executable: record.Executable,
	}, nil
}

func (a *Account) toRecord() *store.Record {
	return &store.Record{
		Address:    base58.Encode(a.Address),
		Owner:      base58.Encode(a.Owner),
		Lamports:   a.Lamports,
		Data:       cloneBytes(a.Data),
		Executable: a.Executable,
	}
}

// view returns the program facing copy of the account.
func (a *Account) view(isSigner, isWritable bool) *program.AccountInfo {
	return &program.AccountInfo{
		Key:        cloneKey(a.Address),
		Owner:      cloneKey(a.Owner),
		Lamports:   a.Lamports,
		Data:       cloneBytes(a.Data),
		Executable: a.Executable,
		IsSigner:   isSigner,
		IsWritable: isWritable,
	}
}

// load overwrites the state of view with the account's, keeping its privileges.
func (a *Account) load(view *program.AccountInfo) {
	view.Owner = cloneKey(a.Owner)
	view.Lamports = a.Lamports
	view.Data = cloneBytes(a.Data)
	view.Executable = a.Executable
}

func fromView(view *program.AccountInfo) *Account {
	return &Account{
		Address:    cloneKey(view.Key),
		Owner:      cloneKey(view.Owner),
		Lamports:   view.Lamports,
		Data:       cloneBytes(view.Data),
		Executable: view.Executable,
	}
}

func cloneKey(key ed25519.PublicKey) ed25519.PublicKey {
	if key == nil {
		return nil
	}
	cloned := make(ed25519.PublicKey, len(key))
	copy(cloned, key)
	return cloned
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	cloned := make([]byte, len(b))
	copy(cloned, b)
	return cloned
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
