package svm

import (
	"math"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// systemProgram implements the subset of the system program needed to create
// and fund accounts.
type systemProgram struct{}

func (p *systemProgram) Process(ctx program.Context, accounts []*program.AccountInfo, data []byte) error {
	command, err := system.GetCommand(data)
	if err != nil {
		return program.ErrInvalidInstructionData
	}

	switch command {
	case system.CommandCreateAccount:
		var args system.CreateAccountArgs
		if err := args.Unmarshal(data); err != nil {
			return program.ErrInvalidInstructionData
		}
		return p.createAccount(ctx, accounts, &args)
	case system.CommandAssign:
		var args system.AssignArgs
		if err := args.Unmarshal(data); err != nil {
			return program.ErrInvalidInstructionData
		}
		return p.assign(accounts, &args)
	case system.CommandTransfer:
		var args system.TransferArgs
		if err := args.Unmarshal(data); err != nil {
			return program.ErrInvalidInstructionData
		}
		return p.transfer(accounts, &args)
	case system.CommandAllocate:
		var args system.AllocateArgs
		if err := args.Unmarshal(data); err != nil {
			return program.ErrInvalidInstructionData
		}
		return p.allocate(accounts, &args)
	default:
		return program.ErrInvalidInstructionData
	}
}

//	0. [WRITE, SIGNER] Funding account
//	1. [WRITE, SIGNER] New account
func (p *systemProgram) createAccount(ctx program.Context, accounts []*program.AccountInfo, args *system.CreateAccountArgs) error {
	if len(accounts) < 2 {
		return program.ErrNotEnoughAccountKeys
	}

	funder, account := accounts[0], accounts[1]
	if !funder.IsSigner || !account.IsSigner {
		return program.ErrMissingRequiredSignature
	}
	if account.Lamports > 0 {
		return system.ErrorAccountAlreadyInUse
	}
	if args.Lamports < ctx.MinimumBalance(args.Size) {
		return program.ErrInsufficientFunds
	}

	if err := p.allocate([]*program.AccountInfo{account}, &system.AllocateArgs{Size: args.Size}); err != nil {
		return err
	}
	account.Owner = cloneKey(args.Owner)

	return p.transfer(accounts, &system.TransferArgs{Lamports: args.Lamports})
}

//	0. [WRITE, SIGNER] Assigned account
func (p *systemProgram) assign(accounts []*program.AccountInfo, args *system.AssignArgs) error {
	if len(accounts) < 1 {
		return program.ErrNotEnoughAccountKeys
	}

	account := accounts[0]
	if account.IsOwnedBy(args.Owner) {
		return nil
	}
	if !account.IsSigner {
		return program.ErrMissingRequiredSignature
	}

	account.Owner = cloneKey(args.Owner)
	return nil
}

//	0. [WRITE, SIGNER] Funding account
//	1. [WRITE] Recipient account
func (p *systemProgram) transfer(accounts []*program.AccountInfo, args *system.TransferArgs) error {
	if len(accounts) < 2 {
		return program.ErrNotEnoughAccountKeys
	}

	from, to := accounts[0], accounts[1]
	if !from.IsSigner {
		return program.ErrMissingRequiredSignature
	}
	if len(from.Data) > 0 {
		return program.ErrInvalidArgument
	}
	if from.Lamports < args.Lamports {
		return system.ErrorResultWithNegativeLamports
	}

	from.Lamports -= args.Lamports
	if to.Lamports > math.MaxUint64-args.Lamports {
		return program.ErrArithmeticOverflow
	}
	to.Lamports += args.Lamports
	return nil
}

//	0. [WRITE, SIGNER] Allocated account
func (p *systemProgram) allocate(accounts []*program.AccountInfo, args *system.AllocateArgs) error {
	if len(accounts) < 1 {
		return program.ErrNotEnoughAccountKeys
	}

	account := accounts[0]
	if !account.IsSigner {
		return program.ErrMissingRequiredSignature
	}
	if len(account.Data) > 0 || !account.IsOwnedBy(systemProgramKey) {
		return system.ErrorAccountAlreadyInUse
	}
	if args.Size > system.MaxPermittedDataLength {
		return system.ErrorInvalidAccountDataLength
	}

	account.Data = make([]byte, args.Size)
	return nil
}

var systemProgramKey = cloneKey(system.ProgramKey[:])
