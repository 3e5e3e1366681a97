package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-escrow/pkg/svm/store"

	pgutil "github.com/code-payments/code-escrow/pkg/database/postgres"
)

const (
	accountTableName = "escrow__core_account"
	commitTableName  = "escrow__core_commit"
)

type accountModel struct {
	Address    string    `db:"address"`
	Owner      string    `db:"owner"`
	Lamports   int64     `db:"lamports"`
	Data       []byte    `db:"data"`
	Executable bool      `db:"executable"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type commitModel struct {
	Id        uuid.UUID `db:"id"`
	Signature string    `db:"signature"`
	Accounts  string    `db:"accounts"`
	Message   []byte    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

func toAccountModel(obj *store.Record) *accountModel {
	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	return &accountModel{
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   int64(obj.Lamports),
		Data:       data,
		Executable: obj.Executable,
		UpdatedAt:  obj.UpdatedAt,
	}
}

func fromAccountModel(obj *accountModel) *store.Record {
	return &store.Record{
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   uint64(obj.Lamports),
		Data:       obj.Data,
		Executable: obj.Executable,
		UpdatedAt:  obj.UpdatedAt.UTC(),
	}
}

func toCommitModel(obj *store.Commit) *commitModel {
	message := obj.Message
	if message == nil {
		message = []byte{}
	}

	return &commitModel{
		Id:        obj.Id,
		Signature: obj.Signature,
		Accounts:  strings.Join(obj.Accounts, ","),
		Message:   message,
		CreatedAt: obj.CreatedAt,
	}
}

func fromCommitModel(obj *commitModel) *store.Commit {
	var accounts []string
	if len(obj.Accounts) > 0 {
		accounts = strings.Split(obj.Accounts, ",")
	}

	return &store.Commit{
		Id:        obj.Id,
		Signature: obj.Signature,
		Accounts:  accounts,
		Message:   obj.Message,
		CreatedAt: obj.CreatedAt.UTC(),
	}
}

func (m *accountModel) txUpsert(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + accountTableName + `
		(address, owner, lamports, data, executable, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address)
		DO UPDATE
			SET owner = $2, lamports = $3, data = $4, executable = $5, updated_at = $6
			WHERE ` + accountTableName + `.address = $1`

	_, err := tx.ExecContext(
		ctx,
		query,
		m.Address,
		m.Owner,
		m.Lamports,
		m.Data,
		m.Executable,
		m.UpdatedAt,
	)
	return err
}

func (m *commitModel) txInsert(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + commitTableName + `
		(id, signature, accounts, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.ExecContext(
		ctx,
		query,
		m.Id,
		m.Signature,
		m.Accounts,
		m.Message,
		m.CreatedAt,
	)
	return pgutil.CheckUniqueViolation(err, store.ErrCommitExists)
}

func txDeleteAccount(ctx context.Context, tx *sqlx.Tx, address string) error {
	query := `DELETE FROM ` + accountTableName + ` WHERE address = $1`

	_, err := tx.ExecContext(ctx, query, address)
	return err
}

func dbGetAccount(ctx context.Context, db *sqlx.DB, address string) (*accountModel, error) {
	res := &accountModel{}

	query := `SELECT
		address, owner, lamports, data, executable, updated_at
		FROM ` + accountTableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, store.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetAllAccountsByOwner(ctx context.Context, db *sqlx.DB, owner string) ([]*accountModel, error) {
	res := []*accountModel{}

	query := `SELECT
		address, owner, lamports, data, executable, updated_at
		FROM ` + accountTableName + `
		WHERE owner = $1
		ORDER BY address COLLATE "C" ASC`

	err := db.SelectContext(ctx, &res, query, owner)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, store.ErrAccountNotFound)
	}

	if len(res) == 0 {
		return nil, store.ErrAccountNotFound
	}
	return res, nil
}

func dbGetCommit(ctx context.Context, db *sqlx.DB, signature string) (*commitModel, error) {
	res := &commitModel{}

	query := `SELECT
		id, signature, accounts, message, created_at
		FROM ` + commitTableName + `
		WHERE signature = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, signature)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, store.ErrCommitNotFound)
	}
	return res, nil
}
