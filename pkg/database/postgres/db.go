package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/retry"
	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

const maxSerializationRetries = 5

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")

	errInsufficientIsolation = errors.New("current tx doesn't meet isolation level requirements")
)

type txContextKey struct{}

// txScope is the transaction carried by a context created in ExecuteTxWithinCtx.
type txScope struct {
	tx        *sqlx.Tx
	isolation sql.IsolationLevel
}

// ExecuteRetryable runs fn, retrying it while it fails with a serialization
// failure. fn must be safe to run more than once.
func ExecuteRetryable(fn func() error) error {
	_, err := retry.Retry(
		fn,
		retry.Limit(maxSerializationRetries),
		retry.Retriable(IsSerializationFailure),
		retry.BackoffWithJitter(backoff.Exponential(10*time.Millisecond, 2), time.Second, 0.1),
	)
	return err
}

// ExecuteTxWithinCtx runs fn within a new transaction that is carried by the
// context passed to it. Stores called with that context join the transaction
// through ExecuteInTx. The transaction commits if fn succeeds.
func ExecuteTxWithinCtx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*txScope); ok {
		return ErrAlreadyInTx
	}

	scope, err := begin(ctx, db, isolation)
	if err != nil {
		return err
	}

	return scope.finish(fn(context.WithValue(ctx, txContextKey{}, scope)))
}

// ExecuteInTx runs fn within the transaction carried by ctx, or within a new
// one when ctx has none. Only a transaction started here is committed or
// rolled back here.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	existing, err := scopeFromCtx(ctx, normalizeIsolation(isolation))
	if err == nil {
		return fn(existing.tx)
	} else if err != ErrNotInTx {
		return err
	}

	scope, err := begin(ctx, db, isolation)
	if err != nil {
		return err
	}
	return scope.finish(fn(scope.tx))
}

func begin(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel) (*txScope, error) {
	isolation = normalizeIsolation(isolation)

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return nil, err
	}
	return &txScope{tx: tx, isolation: isolation}, nil
}

// finish commits when err is nil and rolls back otherwise. A rollback is always
// issued on failure so the connection is released.
func (s *txScope) finish(err error) error {
	if err != nil {
		if rollbackErr := s.tx.Rollback(); rollbackErr != nil {
			return errors.Wrap(rollbackErr, "failed to rollback transaction")
		}
		return err
	}
	return s.tx.Commit()
}

func scopeFromCtx(ctx context.Context, desiredIsolation sql.IsolationLevel) (*txScope, error) {
	scope, ok := ctx.Value(txContextKey{}).(*txScope)
	if !ok {
		return nil, ErrNotInTx
	}
	if scope.isolation < desiredIsolation {
		return nil, errInsufficientIsolation
	}
	return scope, nil
}

// normalizeIsolation maps the driver default to Postgres' default level.
func normalizeIsolation(isolation sql.IsolationLevel) sql.IsolationLevel {
	if isolation == sql.LevelDefault {
		return sql.LevelReadCommitted
	}
	return isolation
}
