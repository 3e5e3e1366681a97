package badger

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/svm/store"
)

type accountModel struct {
	Address    string
	Owner      string `badgerhold:"index"`
	Lamports   uint64
	Data       []byte
	Executable bool
	UpdatedAt  time.Time
}

type commitModel struct {
	Id        uuid.UUID
	Signature string
	Accounts  []string
	Message   []byte
	CreatedAt time.Time
}

type badgerStore struct {
	db *badgerhold.Store
}

// Open opens, or creates, a badger backed store.Store in dir. An empty dir
// keeps the ledger in memory.
func Open(dir string, log *logrus.Entry) (store.Store, func() error, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = &logger{log: log}
	opts.Compression = options.ZSTD
	if len(dir) == 0 {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "error opening badger store")
	}

	return &badgerStore{db: db}, db.Close, nil
}

// Get implements store.Store.Get
func (s *badgerStore) Get(_ context.Context, address string) (*store.Record, error) {
	var model accountModel
	if err := s.db.Get(address, &model); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, store.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(&model), nil
}

// GetAllByOwner implements store.Store.GetAllByOwner
func (s *badgerStore) GetAllByOwner(_ context.Context, owner string) ([]*store.Record, error) {
	var models []accountModel
	query := badgerhold.Where("Owner").Eq(owner).Index("Owner")
	if err := s.db.Find(&models, query); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, store.ErrAccountNotFound
	}

	res := make([]*store.Record, len(models))
	for i := range models {
		res[i] = fromAccountModel(&models[i])
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Address < res[j].Address
	})
	return res, nil
}

// Commit implements store.Store.Commit
func (s *badgerStore) Commit(ctx context.Context, batch *store.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		var existing commitModel
		err := s.db.TxGet(tx, batch.Signature, &existing)
		if err == nil {
			return store.ErrCommitExists
		} else if err != badgerhold.ErrNotFound {
			return err
		}

		now := time.Now().UTC()
		for _, record := range batch.Upserts {
			model := toAccountModel(record)
			model.UpdatedAt = now
			if err := s.db.TxUpsert(tx, record.Address, *model); err != nil {
				return err
			}
		}

		for _, address := range batch.Deletes {
			err := s.db.TxDelete(tx, address, accountModel{})
			if err != nil && err != badgerhold.ErrNotFound {
				return err
			}
		}

		commit := batch.Commit()
		return s.db.TxInsert(tx, commit.Signature, commitModel{
			Id:        commit.Id,
			Signature: commit.Signature,
			Accounts:  commit.Accounts,
			Message:   commit.Message,
			CreatedAt: commit.CreatedAt,
		})
	})

	metrics.StoreCommits.WithLabelValues("badger", metrics.Result(err)).Inc()
	return err
}

// GetCommit implements store.Store.GetCommit
func (s *badgerStore) GetCommit(_ context.Context, signature string) (*store.Commit, error) {
	var model commitModel
	if err := s.db.Get(signature, &model); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, store.ErrCommitNotFound
		}
		return nil, err
	}

	return &store.Commit{
		Id:        model.Id,
		Signature: model.Signature,
		Accounts:  model.Accounts,
		Message:   model.Message,
		CreatedAt: model.CreatedAt.UTC(),
	}, nil
}

func (s *badgerStore) reset() error {
	return s.db.Badger().DropAll()
}

func toAccountModel(obj *store.Record) *accountModel {
	return &accountModel{
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   obj.Lamports,
		Data:       obj.Data,
		Executable: obj.Executable,
		UpdatedAt:  obj.UpdatedAt,
	}
}

func fromAccountModel(obj *accountModel) *store.Record {
	return &store.Record{
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   obj.Lamports,
		Data:       obj.Data,
		Executable: obj.Executable,
		UpdatedAt:  obj.UpdatedAt.UTC(),
	}
}

// logger routes badger's internal logging through logrus.
type logger struct {
	log *logrus.Entry
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}

func (l *logger) Warningf(format string, args ...interface{}) {
	l.log.Warnf(format, args...)
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

func (l *logger) Debugf(format string, args ...interface{}) {
	l.log.Tracef(format, args...)
}
