package svm

import (
	"bytes"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// associatedTokenProgram creates token accounts at the address derived from
// their owner, mint and token program.
type associatedTokenProgram struct{}

//	0. [WRITE, SIGNER] Funding account
//	1. [WRITE] Associated token account
//	2. [] Wallet
//	3. [] Mint
//	4. [] System program
//	5. [] Token program
func (p *associatedTokenProgram) Process(ctx program.Context, accounts []*program.AccountInfo, data []byte) error {
	var idempotent bool
	switch {
	case len(data) == 0 || data[0] == byte(token.AssociatedCommandCreate):
	case data[0] == byte(token.AssociatedCommandCreateIdempotent):
		idempotent = true
	default:
		return program.ErrInvalidInstructionData
	}

	if len(accounts) < 6 {
		return program.ErrNotEnoughAccountKeys
	}

	var (
		funder        = accounts[0]
		associated    = accounts[1]
		wallet        = accounts[2]
		mint          = accounts[3]
		systemProgram = accounts[4]
		tokenProgram  = accounts[5]
	)

	if !systemProgram.HasKey(systemProgramKey) || !token.IsTokenProgram(tokenProgram.Key) {
		return program.ErrIncorrectProgramID
	}
	if !mint.IsOwnedBy(tokenProgram.Key) {
		return program.ErrIllegalOwner
	}

	address, bump, err := token.GetAssociatedAccountAndBump(wallet.Key, mint.Key, tokenProgram.Key)
	if err != nil || !associated.HasKey(address) {
		return program.ErrInvalidSeeds
	}

	if idempotent && associated.IsOwnedBy(tokenProgram.Key) {
		var existing token.Account
		if existing.Unmarshal(associated.Data) && existing.State != token.AccountStateUninitialized {
			if !bytes.Equal(existing.Owner, wallet.Key) || !bytes.Equal(existing.Mint, mint.Key) {
				return program.ErrIllegalOwner
			}
			return nil
		}
	}

	if !associated.IsOwnedBy(systemProgramKey) {
		return program.ErrIllegalOwner
	}

	seeds := program.Seeds{wallet.Key, tokenProgram.Key, mint.Key, {bump}}
	rent := ctx.MinimumBalance(token.AccountSize)

	if associated.Lamports == 0 {
		create := system.CreateAccount(funder.Key, associated.Key, tokenProgram.Key, rent, token.AccountSize)
		if err := ctx.Invoke(create, seeds); err != nil {
			return err
		}
	} else {
		// A prefunded address can't be created. It's topped up and taken over.
		if associated.Lamports < rent {
			if err := ctx.Invoke(system.Transfer(funder.Key, associated.Key, rent-associated.Lamports)); err != nil {
				return err
			}
		}
		if err := ctx.Invoke(system.Allocate(associated.Key, token.AccountSize), seeds); err != nil {
			return err
		}
		if err := ctx.Invoke(system.Assign(associated.Key, tokenProgram.Key), seeds); err != nil {
			return err
		}
	}

	initialize := token.InitializeAccount3(associated.Key, mint.Key, wallet.Key)
	initialize.Program = tokenProgram.Key
	return ctx.Invoke(initialize)
}
