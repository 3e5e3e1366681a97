package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	pg "github.com/code-payments/code-escrow/pkg/database/postgres"
	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/svm"
	"github.com/code-payments/code-escrow/pkg/svm/store"
	badger_store "github.com/code-payments/code-escrow/pkg/svm/store/badger"
	memory_store "github.com/code-payments/code-escrow/pkg/svm/store/memory"
	postgres_store "github.com/code-payments/code-escrow/pkg/svm/store/postgres"
)

// openStore opens the configured ledger backend. The returned close function
// is never nil.
func openStore() (store.Store, func() error, error) {
	log := logrus.StandardLogger().WithField("type", "escrowctl/ledger")

	switch config.Store {
	case storeMemory:
		log.Warn("memory ledger is discarded when the command exits")
		return memory_store.New(), func() error { return nil }, nil
	case storeBadger:
		return badger_store.Open(config.DataDir, log.WithField("store", storeBadger))
	case storePostgres:
		if len(config.PostgresDSN) == 0 {
			return nil, nil, errors.New("postgres ledger requires a dsn")
		}

		db, err := pg.NewWithDSN(config.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres_store.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, errors.Wrap(err, "error migrating postgres ledger")
		}
		return postgres_store.New(db), db.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown store: %s", config.Store)
	}
}

// withBank runs fn against a bank over the configured ledger with the escrow
// program registered.
func withBank(fn func(bank *svm.Bank) error) error {
	accounts, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logrus.WithError(err).Warn("error closing ledger")
		}
	}()

	bank := svm.New(accounts, svm.WithEnvConfigs())
	bank.RegisterProgram("escrow", escrow.PROGRAM_ID, escrow.NewProcessor())

	return fn(bank)
}

// send signs and processes a transaction paid by the first signer, printing
// its signature and program logs to out.
func send(out io.Writer, bank *svm.Bank, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (*svm.Result, error) {
	txn := solana.NewTransaction(signers[0].Public().(ed25519.PublicKey), instructions...)

	// The ledger doesn't track recent blockhashes. A random one keeps
	// identical instructions from colliding on the same signature.
	var blockhash solana.Blockhash
	if _, err := rand.Read(blockhash[:]); err != nil {
		return nil, errors.Wrap(err, "error generating blockhash")
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(signers...); err != nil {
		return nil, errors.Wrap(err, "error signing transaction")
	}

	result, err := bank.ProcessTransaction(ctx, txn)
	if result != nil {
		for _, line := range result.Logs {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	if err != nil {
		return result, errors.Errorf("transaction failed: %s", escrow.DescribeError(err))
	}

	fmt.Fprintf(out, "signature: %s\n", result.Signature)
	return result, nil
}
