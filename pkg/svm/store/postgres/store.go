package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/svm/store"

	pgutil "github.com/code-payments/code-escrow/pkg/database/postgres"
)

const metricsStructName = "postgres.store"

type pgStore struct {
	db *sqlx.DB
}

// New returns a store.Store backed by the escrow__core_account and
// escrow__core_commit tables.
func New(db *sql.DB) store.Store {
	return &pgStore{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Get implements store.Store.Get
func (s *pgStore) Get(ctx context.Context, address string) (*store.Record, error) {
	model, err := dbGetAccount(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromAccountModel(model), nil
}

// GetAllByOwner implements store.Store.GetAllByOwner
func (s *pgStore) GetAllByOwner(ctx context.Context, owner string) ([]*store.Record, error) {
	models, err := dbGetAllAccountsByOwner(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}

	res := make([]*store.Record, len(models))
	for i, model := range models {
		res[i] = fromAccountModel(model)
	}
	return res, nil
}

// Commit implements store.Store.Commit
//
// The batch is applied in a single serializable transaction, together with its
// journal row, so a duplicate signature rolls back every account write.
func (s *pgStore) Commit(ctx context.Context, batch *store.Batch) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Commit")
	defer tracer.End()

	if err := batch.Validate(); err != nil {
		return err
	}

	err := pgutil.ExecuteRetryable(func() error {
		return pgutil.ExecuteInTx(ctx, s.db, sql.LevelSerializable, func(tx *sqlx.Tx) error {
			now := time.Now().UTC()

			for _, record := range batch.Upserts {
				model := toAccountModel(record)
				model.UpdatedAt = now
				if err := model.txUpsert(ctx, tx); err != nil {
					return err
				}
			}

			for _, address := range batch.Deletes {
				if err := txDeleteAccount(ctx, tx, address); err != nil {
					return err
				}
			}

			return toCommitModel(batch.Commit()).txInsert(ctx, tx)
		})
	})

	metrics.StoreCommits.WithLabelValues("postgres", metrics.Result(err)).Inc()
	tracer.OnError(err)
	return err
}

// GetCommit implements store.Store.GetCommit
func (s *pgStore) GetCommit(ctx context.Context, signature string) (*store.Commit, error) {
	model, err := dbGetCommit(ctx, s.db, signature)
	if err != nil {
		return nil, err
	}
	return fromCommitModel(model), nil
}
