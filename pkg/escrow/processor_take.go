package escrow

import (
	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// processTake settles an offer: the taker pays the maker the requested amount
// of mint B and receives the vault's deposit of mint A. The vault and the
// escrow record are closed with their rent returned to the maker.
//
// Accounts:
//
//	 0. taker          signer, writable
//	 1. maker          writable
//	 2. escrow         writable
//	 3. mint_a
//	 4. mint_b
//	 5. vault          writable
//	 6. taker_ata_a    writable
//	 7. taker_ata_b    writable
//	 8. maker_ata_b    writable
//	 9. system_program
//	10. token_program
//	11. associated_token_program
func (p *Processor) processTake(ctx program.Context, accounts []*program.AccountInfo) error {
	if len(accounts) < takeInstructionMinAccounts {
		return program.ErrNotEnoughAccountKeys
	}

	var (
		taker                  = accounts[0]
		maker                  = accounts[1]
		escrow                 = accounts[2]
		mintA                  = accounts[3]
		mintB                  = accounts[4]
		vault                  = accounts[5]
		takerAtaA              = accounts[6]
		takerAtaB              = accounts[7]
		makerAtaB              = accounts[8]
		systemProgram          = accounts[9]
		tokenProgram           = accounts[10]
		associatedTokenProgram = accounts[11]
	)

	if err := check(taker, SignerAccount{}); err != nil {
		return err
	}

	record, authority, err := loadEscrowAuthority(ctx, escrow, maker)
	if err != nil {
		return err
	}

	if err := check(mintA, MintAccount{}); err != nil {
		return err
	}
	if err := check(mintB, MintAccount{}); err != nil {
		return err
	}
	if !mintA.HasKey(record.MintA) || !mintB.HasKey(record.MintB) {
		return ErrInvalidAccountData
	}

	if err := systemProgramInterface.Check(systemProgram); err != nil {
		return err
	}
	if err := checkTokenProgram(tokenProgram, mintA, mintB); err != nil {
		return err
	}
	if err := associatedTokenProgramInterface.Check(associatedTokenProgram); err != nil {
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
		takerAtaA,
		AssociatedTokenAccount{Authority: taker.Key, Mint: mintA.Key, TokenProgram: tokenProgram.Key},
	)
	if err != nil {
		return err
	}

	err = check(
		takerAtaB,
		AssociatedTokenAccount{Authority: taker.Key, Mint: mintB.Key, TokenProgram: tokenProgram.Key},
		TokenAccount{},
	)
	if err != nil {
		return err
	}

	err = check(
		makerAtaB,
		AssociatedTokenAccount{Authority: maker.Key, Mint: mintB.Key, TokenProgram: tokenProgram.Key},
	)
	if err != nil {
		return err
	}

	custody, _ := p.collaborators(ctx, Programs{
		System:          systemProgram,
		Token:           tokenProgram,
		AssociatedToken: associatedTokenProgram,
	})

	if err := custody.CreateAssociatedAccount(taker, takerAtaA, taker, mintA, true); err != nil {
		return err
	}
	if err := custody.CreateAssociatedAccount(taker, makerAtaB, maker, mintB, true); err != nil {
		return err
	}

	if err := custody.Transfer(takerAtaB, makerAtaB, taker, record.Receive, nil); err != nil {
		return err
	}

	deposit, err := tokenAmount(vault)
	if err != nil {
		return err
	}
	if err := custody.Transfer(vault, takerAtaA, escrow, deposit, authority); err != nil {
		return err
	}

	if err := custody.CloseAccount(vault, maker, escrow, authority); err != nil {
		return err
	}

	if err := closeProgramAccount(escrow, maker); err != nil {
		return err
	}

	ctx.Log("escrow %d taken: %d paid for %d", record.Seed, record.Receive, deposit)
	return nil
}
