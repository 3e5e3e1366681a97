package escrow

import (
	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// processRefund cancels an offer and returns the deposit to the maker. Only
// the maker the escrow was derived from can refund it.
//
// Accounts:
//
//	0. maker          signer, writable
//	1. escrow         writable
//	2. mint_a
//	3. vault          writable
//	4. maker_ata_a    writable
//	5. system_program
//	6. token_program
//	7. associated_token_program (optional, needed when maker_ata_a was closed)
func (p *Processor) processRefund(ctx program.Context, accounts []*program.AccountInfo) error {
	if len(accounts) < refundInstructionMinAccounts {
		return program.ErrNotEnoughAccountKeys
	}

	var (
		maker         = accounts[0]
		escrow        = accounts[1]
		mintA         = accounts[2]
		vault         = accounts[3]
		makerAtaA     = accounts[4]
		systemProgram = accounts[5]
		tokenProgram  = accounts[6]
	)

	var associatedTokenProgram *program.AccountInfo
	if len(accounts) > refundInstructionMinAccounts {
		associatedTokenProgram = accounts[7]
		if err := associatedTokenProgramInterface.Check(associatedTokenProgram); err != nil {
			return err
		}
	}

	if err := check(maker, SignerAccount{}); err != nil {
		return err
	}

	record, authority, err := loadEscrowAuthority(ctx, escrow, maker)
	if err != nil {
		return err
	}

	if err := check(mintA, MintAccount{}); err != nil {
		return err
	}
	if !mintA.HasKey(record.MintA) {
		return ErrInvalidAccountData
	}

	if err := systemProgramInterface.Check(systemProgram); err != nil {
		return err
	}
	if err := checkTokenProgram(tokenProgram, mintA); err != nil {
		return err
	}

	err = check(
		vault,
		AssociatedTokenAccount{Authority: escrow.Key, Mint: mintA.Key, TokenProgram: tokenProgram.Key},
		TokenAccount{},
	)
	if err != nil {
		return err
	}

	err = check(
		makerAtaA,
		AssociatedTokenAccount{Authority: maker.Key, Mint: mintA.Key, TokenProgram: tokenProgram.Key},
	)
	if err != nil {
		return err
	}

	custody, _ := p.collaborators(ctx, Programs{
		System:          systemProgram,
		Token:           tokenProgram,
		AssociatedToken: associatedTokenProgram,
	})

	if err := custody.CreateAssociatedAccount(maker, makerAtaA, maker, mintA, true); err != nil {
		return err
	}

	deposit, err := tokenAmount(vault)
	if err != nil {
		return err
	}
	if err := custody.Transfer(vault, makerAtaA, escrow, deposit, authority); err != nil {
		return err
	}

	if err := custody.CloseAccount(vault, maker, escrow, authority); err != nil {
		return err
	}

	if err := closeProgramAccount(escrow, maker); err != nil {
		return err
	}

	ctx.Log("escrow %d refunded: %d returned", record.Seed, deposit)
	return nil
}
