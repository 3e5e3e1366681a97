package escrow

import (
	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// processMake opens an offer: it allocates the escrow record, creates the
// vault owned by the escrow and moves the deposit into it.
//
// Accounts:
//
//	0. maker          signer, writable
//	1. escrow         writable
//	2. mint_a
//	3. mint_b
//	4. maker_ata_a    writable
//	5. vault          writable
//	6. system_program
//	7. token_program
//	8. associated_token_program
func (p *Processor) processMake(ctx program.Context, accounts []*program.AccountInfo, data []byte) error {
	var args MakeInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return err
	}
	if args.Amount == 0 {
		return program.ErrInvalidInstructionData
	}

	if len(accounts) < makeInstructionMinAccounts {
		return program.ErrNotEnoughAccountKeys
	}

	var (
		maker         = accounts[0]
		escrow        = accounts[1]
		mintA         = accounts[2]
		mintB         = accounts[3]
		makerAtaA     = accounts[4]
		vault         = accounts[5]
		systemProgram = accounts[6]
		tokenProgram  = accounts[7]

		associatedTokenProgram = accounts[8]
	)

	if err := associatedTokenProgramInterface.Check(associatedTokenProgram); err != nil {
		return err
	}

	if err := check(maker, SignerAccount{}); err != nil {
		return err
	}
	if err := check(mintA, MintAccount{}); err != nil {
		return err
	}
	if err := check(mintB, MintAccount{}); err != nil {
		return err
	}
	if err := systemProgramInterface.Check(systemProgram); err != nil {
		return err
	}
	if err := checkTokenProgram(tokenProgram, mintA, mintB); err != nil {
		return err
	}

	authority, err := findEscrowAuthority(ctx.ProgramID(), maker.Key, args.Seed)
	if err != nil {
		return err
	}
	if !escrow.HasKey(authority.Address()) {
		return ErrInvalidAddress
	}
	if err := check(escrow, UninitializedAccount{}); err != nil {
		return err
	}

	err = check(vault, AssociatedTokenAccount{
		Authority:    escrow.Key,
		Mint:         mintA.Key,
		TokenProgram: tokenProgram.Key,
	})
	if err != nil {
		return err
	}

	err = check(
		makerAtaA,
		AssociatedTokenAccount{
			Authority:    maker.Key,
			Mint:         mintA.Key,
			TokenProgram: tokenProgram.Key,
		},
		TokenAccount{},
	)
	if err != nil {
		return err
	}

	custody, allocator := p.collaborators(ctx, Programs{
		System:          systemProgram,
		Token:           tokenProgram,
		AssociatedToken: associatedTokenProgram,
	})

	err = allocator.CreateAccount(maker, escrow, EscrowAccountSize, ctx.ProgramID(), authority)
	if err != nil {
		return err
	}

	record := &EscrowAccount{
		Seed:    args.Seed,
		Maker:   maker.Key,
		MintA:   mintA.Key,
		MintB:   mintB.Key,
		Receive: args.Receive,
		Bump:    authority.Bump(),
	}
	if err := storeEscrow(escrow, record); err != nil {
		return err
	}

	if err := custody.CreateAssociatedAccount(maker, vault, escrow, mintA, false); err != nil {
		return err
	}

	if err := custody.Transfer(makerAtaA, vault, maker, args.Amount, nil); err != nil {
		return err
	}

	ctx.Log("escrow %d opened: %d deposited for %d", args.Seed, args.Amount, args.Receive)
	return nil
}
