package svm

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"math"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/memo"
	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/svm/store"
)

const (
	metricsStructName = "svm.bank"

	transactionCountMetricName    = "Custom/svm/transactions"
	transactionDurationMetricName = "Custom/svm/transaction_duration"
)

var (
	ErrAccountNotFound = store.ErrAccountNotFound
	ErrCommitNotFound  = store.ErrCommitNotFound
)

// Result is the outcome of a processed transaction. It is returned alongside
// transaction errors so the program logs of failed transactions are available.
type Result struct {
	Signature string
	Logs      []string
}

// Bank executes transactions against accounts held in a store. Each
// transaction either commits all of its account changes or none of them.
type Bank struct {
	log      *logrus.Entry
	conf     *conf
	accounts store.Store

	// Serializes transactions from load to commit
	txMu sync.Mutex

	programsMu sync.RWMutex
	programs   map[string]*registeredProgram
}

type registeredProgram struct {
	name      string
	processor program.Processor
}

// New returns a bank with the system, token, token-2022, associated token
// account and memo programs registered.
func New(accounts store.Store, configProvider ConfigProvider) *Bank {
	b := &Bank{
		log:      logrus.StandardLogger().WithField("type", "svm/bank"),
		conf:     configProvider(),
		accounts: accounts,
		programs: make(map[string]*registeredProgram),
	}

	tokenProcessor := &tokenProgram{}
	b.register("system", systemProgramKey, &systemProgram{})
	b.register("token", token.ProgramKey, tokenProcessor)
	b.register("token-2022", token.Token2022ProgramKey, tokenProcessor)
	b.register("associated-token", token.AssociatedTokenAccountProgramKey, &associatedTokenProgram{})
	b.register("memo", memo.ProgramKey, &memoProgram{})

	return b
}

// RegisterProgram makes processor executable at id. Program accounts are not
// stored; they exist for as long as the bank does.
func (b *Bank) RegisterProgram(name string, id ed25519.PublicKey, processor program.Processor) {
	b.register(name, id, processor)
}

func (b *Bank) register(name string, id ed25519.PublicKey, processor program.Processor) {
	b.programsMu.Lock()
	defer b.programsMu.Unlock()

	b.programs[string(id)] = &registeredProgram{
		name:      name,
		processor: processor,
	}
}

func (b *Bank) processor(id ed25519.PublicKey) (program.Processor, bool) {
	b.programsMu.RLock()
	defer b.programsMu.RUnlock()

	registered, ok := b.programs[string(id)]
	if !ok {
		return nil, false
	}
	return registered.processor, true
}

func (b *Bank) programName(id ed25519.PublicKey) string {
	b.programsMu.RLock()
	defer b.programsMu.RUnlock()

	registered, ok := b.programs[string(id)]
	if !ok {
		return base58.Encode(id)
	}
	return registered.name
}

// MinimumBalance returns the lamports an account with size bytes of data needs
// to be rent exempt.
func (b *Bank) MinimumBalance(ctx context.Context, size uint64) uint64 {
	rent := system.Rent{
		LamportsPerByteYear: b.conf.rentLamportsPerByteYear.Get(ctx),
		ExemptionThreshold:  b.conf.rentExemptionThreshold.Get(ctx),
	}
	return rent.MinimumBalance(size)
}

// GetAccount returns the account at address.
//
// Returns ErrAccountNotFound if the account doesn't exist.
func (b *Bank) GetAccount(ctx context.Context, address ed25519.PublicKey) (*Account, error) {
	if _, ok := b.processor(address); ok {
		return newProgramAccount(address), nil
	}

	record, err := b.accounts.Get(ctx, base58.Encode(address))
	if err != nil {
		return nil, err
	}
	return fromRecord(record)
}

// GetProgramAccounts returns every account owned by owner, ordered by address.
func (b *Bank) GetProgramAccounts(ctx context.Context, owner ed25519.PublicKey) ([]*Account, error) {
	records, err := b.accounts.GetAllByOwner(ctx, base58.Encode(owner))
	if err == store.ErrAccountNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	accounts := make([]*Account, len(records))
	for i, record := range records {
		accounts[i], err = fromRecord(record)
		if err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// GetCommit returns the journal entry of a processed transaction.
//
// Returns ErrCommitNotFound if no transaction was committed with signature.
func (b *Bank) GetCommit(ctx context.Context, signature string) (*store.Commit, error) {
	return b.accounts.GetCommit(ctx, signature)
}

// Airdrop credits lamports to address, creating a system account if needed.
// It returns the signature the credit was journaled under.
func (b *Bank) Airdrop(ctx context.Context, address ed25519.PublicKey, lamports uint64) (string, error) {
	if lamports == 0 {
		return "", errors.New("airdrop requires a non-zero amount")
	}
	if _, ok := b.processor(address); ok {
		return "", errors.New("cannot airdrop to a program account")
	}

	b.txMu.Lock()
	defer b.txMu.Unlock()

	account, err := b.GetAccount(ctx, address)
	if err == store.ErrAccountNotFound {
		account = newSystemAccount(address)
	} else if err != nil {
		return "", err
	}

	if account.Lamports > math.MaxUint64-lamports {
		return "", errors.New("airdrop overflows account balance")
	}
	account.Lamports += lamports

	return b.commitAccounts(ctx, account)
}

// SetAccount overwrites the state of an account. Used to load fixtures.
func (b *Bank) SetAccount(ctx context.Context, account *Account) error {
	if _, ok := b.processor(account.Address); ok {
		return errors.New("cannot overwrite a program account")
	}
	if account.Lamports == 0 {
		return errors.New("accounts require lamports")
	}

	b.txMu.Lock()
	defer b.txMu.Unlock()

	_, err := b.commitAccounts(ctx, account.Clone())
	return err
}

func (b *Bank) commitAccounts(ctx context.Context, accounts ...*Account) (string, error) {
	signature, err := randomSignature()
	if err != nil {
		return "", err
	}

	batch := store.NewBatch(signature)
	for _, account := range accounts {
		batch.Upserts = append(batch.Upserts, account.toRecord())
	}

	if err := b.accounts.Commit(ctx, batch); err != nil {
		return "", errors.Wrap(err, "failed to commit accounts")
	}
	return signature, nil
}

// ProcessTransaction executes the instructions of txn in order and commits
// their combined account changes. The first failing instruction aborts the
// transaction, leaving every account untouched, and is reported as a
// *solana.TransactionError wrapping the instruction's error.
func (b *Bank) ProcessTransaction(ctx context.Context, txn solana.Transaction) (result *Result, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ProcessTransaction")
	defer tracer.End()

	start := time.Now()

	if len(txn.Signatures) == 0 || txn.Signatures[0] == (solana.Signature{}) {
		return nil, solana.NewTransactionError(solana.TransactionErrorMissingSignatureForFee)
	}

	signature := txn.Signatures[0].String()
	result = &Result{Signature: signature}

	log := b.log.WithFields(logrus.Fields{
		"method":       "ProcessTransaction",
		"signature":    signature,
		"instructions": len(txn.Message.Instructions),
	})
	tracer.AddAttributes(map[string]interface{}{
		"signature":    signature,
		"instructions": len(txn.Message.Instructions),
	})

	defer func() {
		duration := time.Since(start)

		metrics.TransactionsProcessed.WithLabelValues(metrics.Result(err)).Inc()
		metrics.TransactionDuration.Observe(duration.Seconds())
		metrics.RecordCount(ctx, transactionCountMetricName, 1)
		metrics.RecordDuration(ctx, transactionDurationMetricName, duration)
		tracer.OnError(err)

		for _, line := range result.Logs {
			log.Trace(line)
		}

		if err != nil {
			log.WithError(err).Info("transaction failed")
			return
		}
		log.WithField("duration", duration).Debug("transaction processed")
	}()

	if err := b.sanitize(&txn); err != nil {
		return result, err
	}

	if b.conf.verifySignatures.Get(ctx) {
		if err := txn.VerifySignatures(); err != nil {
			log.WithError(err).Debug("signature verification failed")
			return result, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
		}
	}

	b.txMu.Lock()
	defer b.txMu.Unlock()

	_, err = b.accounts.GetCommit(ctx, signature)
	if err == nil {
		return result, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	} else if err != store.ErrCommitNotFound {
		return result, errors.Wrap(err, "failed to check for a duplicate signature")
	}

	loaded, err := b.load(ctx, &txn.Message)
	if err != nil {
		return result, err
	}

	exec := &executor{
		ctx:      ctx,
		bank:     b,
		accounts: make([]*Account, len(loaded)),
		maxDepth: int(b.conf.maxInvokeDepth.Get(ctx)),
	}
	for i, account := range loaded {
		exec.accounts[i] = account.state.Clone()
	}

	for i, instruction := range txn.Message.Instructions {
		refs := make([]accountRef, len(instruction.Accounts))
		for j, index := range instruction.Accounts {
			refs[j] = accountRef{
				index:      int(index),
				isSigner:   loaded[index].isSigner,
				isWritable: loaded[index].isWritable,
			}
		}

		programID := txn.Message.Accounts[instruction.ProgramIndex]
		if err := exec.invoke(programID, refs, instruction.Data); err != nil {
			result.Logs = exec.logs
			return result, instructionError(i, err)
		}
	}
	result.Logs = exec.logs

	batch := store.NewBatch(signature)
	batch.Message = txn.Message.Marshal()
	for i, account := range loaded {
		updated := exec.accounts[i]
		if !account.isWritable || account.state.equal(updated) {
			continue
		}

		if updated.Lamports > 0 {
			batch.Upserts = append(batch.Upserts, updated.toRecord())
		} else if account.exists {
			batch.Deletes = append(batch.Deletes, base58.Encode(updated.Address))
		}
	}

	err = b.accounts.Commit(ctx, batch)
	if err == store.ErrCommitExists {
		return result, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	} else if err != nil {
		return result, errors.Wrap(err, "failed to commit transaction")
	}

	return result, nil
}

// sanitize rejects messages that can't be executed at all.
func (b *Bank) sanitize(txn *solana.Transaction) error {
	m := &txn.Message

	if len(txn.Signatures) != int(m.Header.NumSignatures) ||
		int(m.Header.NumSignatures) > len(m.Accounts) ||
		m.Header.NumReadonlySigned >= m.Header.NumSignatures ||
		int(m.Header.NumSignatures)+int(m.Header.NumReadOnly) > len(m.Accounts) {
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}

	for i := range m.Accounts {
		if len(m.Accounts[i]) != ed25519.PublicKeySize {
			return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
		}
		for j := 0; j < i; j++ {
			if bytes.Equal(m.Accounts[i], m.Accounts[j]) {
				return solana.NewTransactionError(solana.TransactionErrorAccountLoadedTwice)
			}
		}
	}

	for _, instruction := range m.Instructions {
		if int(instruction.ProgramIndex) >= len(m.Accounts) {
			return solana.NewTransactionError(solana.TransactionErrorInvalidAccountIndex)
		}
		for _, index := range instruction.Accounts {
			if int(index) >= len(m.Accounts) {
				return solana.NewTransactionError(solana.TransactionErrorInvalidAccountIndex)
			}
		}

		if _, ok := b.processor(m.Accounts[instruction.ProgramIndex]); !ok {
			return solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}
	}

	return nil
}

type loadedAccount struct {
	state      *Account
	exists     bool
	isSigner   bool
	isWritable bool
}

// load reads every account of the message. Missing accounts are empty system
// accounts and program accounts are always readonly.
func (b *Bank) load(ctx context.Context, m *solana.Message) ([]*loadedAccount, error) {
	loaded := make([]*loadedAccount, len(m.Accounts))
	for i, address := range m.Accounts {
		account := &loadedAccount{
			isSigner:   m.IsSigner(i),
			isWritable: m.IsWritable(i),
		}

		if _, ok := b.processor(address); ok {
			account.state = newProgramAccount(address)
			account.isWritable = false
			loaded[i] = account
			continue
		}

		record, err := b.accounts.Get(ctx, base58.Encode(address))
		switch err {
		case nil:
			account.state, err = fromRecord(record)
			if err != nil {
				return nil, err
			}
			account.exists = true
		case store.ErrAccountNotFound:
			account.state = newSystemAccount(address)
		default:
			return nil, errors.Wrapf(err, "failed to load account %s", base58.Encode(address))
		}

		loaded[i] = account
	}
	return loaded, nil
}

// instructionError reports err as the failure of the instruction at index.
// Errors that aren't instruction errors are reported as generic errors.
func instructionError(index int, err error) error {
	var custom solana.CustomError
	var key solana.InstructionErrorKey
	switch {
	case errors.As(err, &custom):
		err = custom
	case errors.As(err, &key):
		err = key
	default:
		err = solana.InstructionErrorGenericError
	}

	txErr, convErr := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: index,
		Err:   err,
	})
	if convErr != nil {
		return errors.Wrap(convErr, "failed to convert instruction error")
	}
	return txErr
}

func randomSignature() (string, error) {
	var signature solana.Signature
	if _, err := rand.Read(signature[:]); err != nil {
		return "", errors.Wrap(err, "failed to generate signature")
	}
	return signature.String(), nil
}
