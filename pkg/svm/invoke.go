package svm

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// executor runs the instructions of one transaction against its loaded
// accounts. Accounts are indexed like the message's account list.
type executor struct {
	ctx  context.Context
	bank *Bank

	accounts []*Account
	maxDepth int

	stack []*frame
	logs  []string
}

// accountRef is an account passed to an instruction, by message index.
type accountRef struct {
	index      int
	isSigner   bool
	isWritable bool
}

// frame is a single program invocation. Accounts passed more than once share
// a view, so a program observes its own writes through every alias.
type frame struct {
	exec      *executor
	programID ed25519.PublicKey

	infos []*program.AccountInfo
	order []int
	views map[int]*program.AccountInfo
	pre   map[int]*Account
}

func (e *executor) invoke(programID ed25519.PublicKey, refs []accountRef, data []byte) error {
	processor, ok := e.bank.processor(programID)
	if !ok {
		return program.ErrUnsupportedProgramID
	}

	if len(e.stack) >= e.maxDepth {
		return program.ErrCallDepth
	}
	// Programs may only call themselves directly.
	if len(e.stack) > 0 && !bytes.Equal(e.stack[len(e.stack)-1].programID, programID) {
		for _, caller := range e.stack {
			if bytes.Equal(caller.programID, programID) {
				return program.ErrReentrancyNotAllowed
			}
		}
	}

	f := e.newFrame(programID, refs)

	e.stack = append(e.stack, f)
	defer func() {
		e.stack = e.stack[:len(e.stack)-1]
	}()

	name := base58.Encode(programID)
	e.log("Program %s invoke [%d]", name, len(e.stack))

	err := processor.Process(f, f.infos, data)
	if err == nil {
		err = f.sync()
	}

	metrics.InstructionsProcessed.WithLabelValues(e.bank.programName(programID), metrics.Result(err)).Inc()

	if err != nil {
		e.log("Program %s failed: %v", name, err)
		return err
	}

	e.log("Program %s success", name)
	return nil
}

func (e *executor) newFrame(programID ed25519.PublicKey, refs []accountRef) *frame {
	f := &frame{
		exec:      e,
		programID: programID,
		infos:     make([]*program.AccountInfo, len(refs)),
		views:     make(map[int]*program.AccountInfo),
		pre:       make(map[int]*Account),
	}

	for i, ref := range refs {
		view, ok := f.views[ref.index]
		if !ok {
			account := e.accounts[ref.index]
			view = account.view(ref.isSigner, ref.isWritable)
			f.views[ref.index] = view
			f.pre[ref.index] = account.Clone()
			f.order = append(f.order, ref.index)
		} else {
			view.IsSigner = view.IsSigner || ref.isSigner
			view.IsWritable = view.IsWritable || ref.isWritable
		}
		f.infos[i] = view
	}

	return f
}

func (e *executor) log(format string, args ...interface{}) {
	e.logs = append(e.logs, fmt.Sprintf(format, args...))
}

// ProgramID implements program.Context.
func (f *frame) ProgramID() ed25519.PublicKey {
	return cloneKey(f.programID)
}

// MinimumBalance implements program.Context.
func (f *frame) MinimumBalance(size uint64) uint64 {
	return f.exec.bank.MinimumBalance(f.exec.ctx, size)
}

// Log implements program.Context.
func (f *frame) Log(format string, args ...interface{}) {
	f.exec.log("Program log: "+format, args...)
}

// Invoke implements program.Context.
func (f *frame) Invoke(instruction solana.Instruction, signers ...program.Seeds) error {
	if _, ok := f.indexOf(instruction.Program); !ok {
		return program.ErrMissingAccount
	}

	derived := make([]ed25519.PublicKey, 0, len(signers))
	for _, seeds := range signers {
		address, err := solana.CreateProgramAddress(f.programID, seeds...)
		if err == solana.ErrMaxSeedLengthExceeded {
			return program.ErrMaxSeedLengthExceeded
		} else if err != nil {
			return program.ErrInvalidSeeds
		}
		derived = append(derived, address)
	}

	refs := make([]accountRef, len(instruction.Accounts))
	for i, meta := range instruction.Accounts {
		index, ok := f.indexOf(meta.PublicKey)
		if !ok {
			return program.ErrMissingAccount
		}

		caller := f.views[index]
		if meta.IsWritable && !caller.IsWritable {
			return program.ErrPrivilegeEscalation
		}
		if meta.IsSigner && !caller.IsSigner && !containsKey(derived, meta.PublicKey) {
			return program.ErrPrivilegeEscalation
		}

		refs[i] = accountRef{
			index:      index,
			isSigner:   meta.IsSigner,
			isWritable: meta.IsWritable,
		}
	}

	if err := f.sync(); err != nil {
		return err
	}

	if err := f.exec.invoke(instruction.Program, refs, instruction.Data); err != nil {
		return err
	}

	f.refresh()
	return nil
}

// sync verifies the frame's changes since its last sync and publishes them
// to the executor.
func (f *frame) sync() error {
	pre := make([]*Account, 0, len(f.order))
	post := make([]*program.AccountInfo, 0, len(f.order))
	for _, index := range f.order {
		if err := verifyAccount(f.programID, f.pre[index], f.views[index]); err != nil {
			return err
		}
		pre = append(pre, f.pre[index])
		post = append(post, f.views[index])
	}
	if err := verifyBalanced(pre, post); err != nil {
		return err
	}

	for _, index := range f.order {
		updated := fromView(f.views[index])
		f.exec.accounts[index] = updated
		f.pre[index] = updated.Clone()
	}
	return nil
}

// refresh reloads the frame's views after a cross-program invocation. Views
// are updated in place since the program holds on to them.
func (f *frame) refresh() {
	for _, index := range f.order {
		account := f.exec.accounts[index]
		account.load(f.views[index])
		f.pre[index] = account.Clone()
	}
}

func (f *frame) indexOf(key ed25519.PublicKey) (int, bool) {
	for _, index := range f.order {
		if bytes.Equal(f.views[index].Key, key) {
			return index, true
		}
	}
	return 0, false
}

func containsKey(keys []ed25519.PublicKey, key ed25519.PublicKey) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
