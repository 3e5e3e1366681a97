package store

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrCommitNotFound  = errors.New("commit not found")
	ErrCommitExists    = errors.New("commit already exists")
)

// Store is the durable account ledger behind the runtime. Accounts only
// change through Commit, which applies a whole batch or nothing.
type Store interface {
	// Get returns the account at address.
	//
	// Returns ErrAccountNotFound if the account doesn't exist.
	Get(ctx context.Context, address string) (*Record, error)

	// GetAllByOwner returns every account owned by owner, ordered by address.
	//
	// Returns ErrAccountNotFound if no accounts are found.
	GetAllByOwner(ctx context.Context, owner string) ([]*Record, error)

	// Commit atomically writes the batch's upserts, removes its deletes and
	// journals the batch under its signature.
	//
	// Returns ErrCommitExists if a batch with the same signature was committed.
	Commit(ctx context.Context, batch *Batch) error

	// GetCommit returns the journal entry for a committed batch.
	//
	// Returns ErrCommitNotFound if no batch was committed under signature.
	GetCommit(ctx context.Context, signature string) (*Commit, error)
}

// Record is the persisted state of a single account. Addresses and owners are
// base58 encoded public keys.
type Record struct {
	Address    string
	Owner      string
	Lamports   uint64
	Data       []byte
	Executable bool

	UpdatedAt time.Time
}

func (r *Record) Validate() error {
	if err := validateKey(r.Address); err != nil {
		return errors.Wrap(err, "invalid address")
	}
	if err := validateKey(r.Owner); err != nil {
		return errors.Wrap(err, "invalid owner")
	}

	// Postgres stores lamports as BIGINT
	if r.Lamports > math.MaxInt64 {
		return errors.New("lamports exceed the storable maximum")
	}
	if r.Lamports == 0 {
		return errors.New("accounts without lamports must be deleted")
	}
	return nil
}

func (r *Record) Clone() *Record {
	data := make([]byte, len(r.Data))
	copy(data, r.Data)

	return &Record{
		Address:    r.Address,
		Owner:      r.Owner,
		Lamports:   r.Lamports,
		Data:       data,
		Executable: r.Executable,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Address = r.Address
	dst.Owner = r.Owner
	dst.Lamports = r.Lamports
	dst.Data = make([]byte, len(r.Data))
	copy(dst.Data, r.Data)
	dst.Executable = r.Executable
	dst.UpdatedAt = r.UpdatedAt
}

// Batch is the set of account changes produced by one transaction.
type Batch struct {
	Id        uuid.UUID
	Signature string
	Upserts   []*Record
	Deletes   []string
	// Message is the compiled message of the transaction, when there is one.
	Message   []byte
	CreatedAt time.Time
}

// NewBatch returns an empty batch for the transaction with signature.
func NewBatch(signature string) *Batch {
	return &Batch{
		Id:        uuid.New(),
		Signature: signature,
		CreatedAt: time.Now().UTC(),
	}
}

func (b *Batch) Validate() error {
	if b.Id == uuid.Nil {
		return errors.New("batch id is required")
	}
	if len(b.Signature) == 0 {
		return errors.New("batch signature is required")
	}

	seen := make(map[string]struct{})
	for _, record := range b.Upserts {
		if err := record.Validate(); err != nil {
			return err
		}
		if _, ok := seen[record.Address]; ok {
			return errors.Errorf("account %s appears more than once", record.Address)
		}
		seen[record.Address] = struct{}{}
	}
	for _, address := range b.Deletes {
		if err := validateKey(address); err != nil {
			return errors.Wrap(err, "invalid deleted address")
		}
		if _, ok := seen[address]; ok {
			return errors.Errorf("account %s appears more than once", address)
		}
		seen[address] = struct{}{}
	}
	return nil
}

// Commit creates the journal entry for b.
func (b *Batch) Commit() *Commit {
	accounts := make([]string, 0, len(b.Upserts)+len(b.Deletes))
	for _, record := range b.Upserts {
		accounts = append(accounts, record.Address)
	}
	accounts = append(accounts, b.Deletes...)
	sort.Strings(accounts)

	return &Commit{
		Id:        b.Id,
		Signature: b.Signature,
		Accounts:  accounts,
		Message:   b.Message,
		CreatedAt: b.CreatedAt,
	}
}

// Commit is the journal entry of a committed batch.
type Commit struct {
	Id        uuid.UUID
	Signature string
	Accounts  []string
	Message   []byte
	CreatedAt time.Time
}

func validateKey(key string) error {
	decoded, err := base58.Decode(key)
	if err != nil {
		return err
	}
	if len(decoded) != 32 {
		return errors.Errorf("invalid key length: %d", len(decoded))
	}
	return nil
}
