package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/code-escrow/pkg/svm/store"
)

type memoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*store.Record
	commits  map[string]*store.Commit
}

// New returns a new in memory store.Store
func New() store.Store {
	return &memoryStore{
		accounts: make(map[string]*store.Record),
		commits:  make(map[string]*store.Commit),
	}
}

func (s *memoryStore) reset() {
	s.mu.Lock()
	s.accounts = make(map[string]*store.Record)
	s.commits = make(map[string]*store.Commit)
	s.mu.Unlock()
}

// Get implements store.Store.Get
func (s *memoryStore) Get(_ context.Context, address string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.accounts[address]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return record.Clone(), nil
}

// GetAllByOwner implements store.Store.GetAllByOwner
func (s *memoryStore) GetAllByOwner(_ context.Context, owner string) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []*store.Record
	for _, record := range s.accounts {
		if record.Owner == owner {
			res = append(res, record.Clone())
		}
	}
	if len(res) == 0 {
		return nil, store.ErrAccountNotFound
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Address < res[j].Address
	})
	return res, nil
}

// Commit implements store.Store.Commit
func (s *memoryStore) Commit(_ context.Context, batch *store.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.commits[batch.Signature]; ok {
		return store.ErrCommitExists
	}

	now := time.Now().UTC()
	for _, record := range batch.Upserts {
		cloned := record.Clone()
		cloned.UpdatedAt = now
		s.accounts[record.Address] = cloned
		record.UpdatedAt = now
	}
	for _, address := range batch.Deletes {
		delete(s.accounts, address)
	}

	commit := batch.Commit()
	commit.Message = append([]byte(nil), batch.Message...)
	s.commits[batch.Signature] = commit
	return nil
}

// GetCommit implements store.Store.GetCommit
func (s *memoryStore) GetCommit(_ context.Context, signature string) (*store.Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commit, ok := s.commits[signature]
	if !ok {
		return nil, store.ErrCommitNotFound
	}

	cloned := *commit
	cloned.Accounts = append([]string(nil), commit.Accounts...)
	cloned.Message = append([]byte(nil), commit.Message...)
	return &cloned, nil
}
