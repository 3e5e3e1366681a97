package svm

import (
	"bytes"
	"math"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// tokenProgram implements the base instructions of the token program. It is
// registered under both the token and token-2022 program ids and only
// operates on accounts owned by the id it was invoked as.
type tokenProgram struct{}

func (p *tokenProgram) Process(ctx program.Context, accounts []*program.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return token.ErrorInvalidInstruction
	}

	switch command := token.Command(data[0]); command {
	case token.CommandInitializeMint2:
		var args token.InitializeMint2Args
		if err := args.Unmarshal(data); err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.initializeMint(ctx, accounts, &args)
	case token.CommandInitializeAccount3:
		var args token.InitializeAccount3Args
		if err := args.Unmarshal(data); err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.initializeAccount(ctx, accounts, &args)
	case token.CommandTransfer:
		amount, err := token.GetAmount(data, command)
		if err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.transfer(ctx, accounts, amount)
	case token.CommandMintTo:
		amount, err := token.GetAmount(data, command)
		if err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.mintTo(ctx, accounts, amount)
	case token.CommandCloseAccount:
		return p.closeAccount(ctx, accounts)
	case token.CommandFreezeAccount:
		return p.setFrozen(ctx, accounts, true)
	case token.CommandThawAccount:
		return p.setFrozen(ctx, accounts, false)
	default:
		return token.ErrorInvalidInstruction
	}
}

//	0. [WRITE] Mint
func (p *tokenProgram) initializeMint(ctx program.Context, accounts []*program.AccountInfo, args *token.InitializeMint2Args) error {
	if len(accounts) < 1 {
		return program.ErrNotEnoughAccountKeys
	}

	mintInfo := accounts[0]
	if !mintInfo.IsOwnedBy(ctx.ProgramID()) {
		return program.ErrIncorrectProgramID
	}

	var mint token.Mint
	if !mint.Unmarshal(mintInfo.Data) {
		return program.ErrInvalidAccountData
	}
	if mint.IsInitialized {
		return token.ErrorAlreadyInUse
	}
	if mintInfo.Lamports < ctx.MinimumBalance(uint64(len(mintInfo.Data))) {
		return token.ErrorNotRentExempt
	}

	mint = token.Mint{
		MintAuthority:   args.MintAuthority,
		Decimals:        args.Decimals,
		IsInitialized:   true,
		FreezeAuthority: args.FreezeAuthority,
	}
	mint.MarshalInto(mintInfo.Data)
	return nil
}

//	0. [WRITE] Account
//	1. [] Mint
func (p *tokenProgram) initializeAccount(ctx program.Context, accounts []*program.AccountInfo, args *token.InitializeAccount3Args) error {
	if len(accounts) < 2 {
		return program.ErrNotEnoughAccountKeys
	}

	accountInfo, mintInfo := accounts[0], accounts[1]
	if !accountInfo.IsOwnedBy(ctx.ProgramID()) {
		return program.ErrIncorrectProgramID
	}

	var account token.Account
	if !account.Unmarshal(accountInfo.Data) {
		return program.ErrInvalidAccountData
	}
	if account.State != token.AccountStateUninitialized {
		return token.ErrorAlreadyInUse
	}
	if accountInfo.Lamports < ctx.MinimumBalance(uint64(len(accountInfo.Data))) {
		return token.ErrorNotRentExempt
	}

	if _, err := p.loadMint(ctx, mintInfo); err != nil {
		if err == token.ErrorUninitializedState {
			return token.ErrorInvalidMint
		}
		return err
	}

	account = token.Account{
		Mint:  cloneKey(mintInfo.Key),
		Owner: cloneKey(args.Owner),
		State: token.AccountStateInitialized,
	}
	account.MarshalInto(accountInfo.Data)
	return nil
}

//	0. [WRITE] Source
//	1. [WRITE] Destination
//	2. [SIGNER] Source owner
func (p *tokenProgram) transfer(ctx program.Context, accounts []*program.AccountInfo, amount uint64) error {
	if len(accounts) < 3 {
		return program.ErrNotEnoughAccountKeys
	}

	sourceInfo, destinationInfo, authority := accounts[0], accounts[1], accounts[2]

	source, err := p.loadAccount(ctx, sourceInfo)
	if err != nil {
		return err
	}
	destination, err := p.loadAccount(ctx, destinationInfo)
	if err != nil {
		return err
	}

	if source.State == token.AccountStateFrozen || destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if source.Amount < amount {
		return token.ErrorInsufficientFunds
	}
	if !bytes.Equal(source.Mint, destination.Mint) {
		return token.ErrorMintMismatch
	}
	if err := validateOwner(source.Owner, authority); err != nil {
		return err
	}

	if sourceInfo.HasKey(destinationInfo.Key) {
		return nil
	}
	if destination.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	source.Amount -= amount
	destination.Amount += amount

	source.MarshalInto(sourceInfo.Data)
	destination.MarshalInto(destinationInfo.Data)
	return nil
}

//	0. [WRITE] Mint
//	1. [WRITE] Destination
//	2. [SIGNER] Mint authority
func (p *tokenProgram) mintTo(ctx program.Context, accounts []*program.AccountInfo, amount uint64) error {
	if len(accounts) < 3 {
		return program.ErrNotEnoughAccountKeys
	}

	mintInfo, destinationInfo, authority := accounts[0], accounts[1], accounts[2]

	destination, err := p.loadAccount(ctx, destinationInfo)
	if err != nil {
		return err
	}
	if destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if !mintInfo.HasKey(destination.Mint) {
		return token.ErrorMintMismatch
	}

	mint, err := p.loadMint(ctx, mintInfo)
	if err != nil {
		return err
	}
	if len(mint.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}
	if err := validateOwner(mint.MintAuthority, authority); err != nil {
		return err
	}

	if mint.Supply > math.MaxUint64-amount || destination.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	mint.Supply += amount
	destination.Amount += amount

	mint.MarshalInto(mintInfo.Data)
	destination.MarshalInto(destinationInfo.Data)
	return nil
}

//	0. [WRITE] Account
//	1. [WRITE] Destination
//	2. [SIGNER] Account owner or close authority
func (p *tokenProgram) closeAccount(ctx program.Context, accounts []*program.AccountInfo) error {
	if len(accounts) < 3 {
		return program.ErrNotEnoughAccountKeys
	}

	accountInfo, destinationInfo, authority := accounts[0], accounts[1], accounts[2]
	if accountInfo.HasKey(destinationInfo.Key) {
		return program.ErrInvalidAccountData
	}

	account, err := p.loadAccount(ctx, accountInfo)
	if err != nil {
		return err
	}
	if account.IsNative == nil && account.Amount != 0 {
		return token.ErrorNonNativeHasBalance
	}

	closeAuthority := account.Owner
	if len(account.CloseAuthority) > 0 {
		closeAuthority = account.CloseAuthority
	}
	if err := validateOwner(closeAuthority, authority); err != nil {
		return err
	}

	if destinationInfo.Lamports > math.MaxUint64-accountInfo.Lamports {
		return token.ErrorOverflow
	}

	destinationInfo.Lamports += accountInfo.Lamports
	accountInfo.Lamports = 0
	accountInfo.Data = nil
	accountInfo.Owner = cloneKey(systemProgramKey)
	return nil
}

//	0. [WRITE] Account
//	1. [] Mint
//	2. [SIGNER] Mint freeze authority
func (p *tokenProgram) setFrozen(ctx program.Context, accounts []*program.AccountInfo, frozen bool) error {
	if len(accounts) < 3 {
		return program.ErrNotEnoughAccountKeys
	}

	accountInfo, mintInfo, authority := accounts[0], accounts[1], accounts[2]

	account, err := p.loadAccount(ctx, accountInfo)
	if err != nil {
		return err
	}
	if frozen && account.State != token.AccountStateInitialized {
		return token.ErrorInvalidState
	}
	if !frozen && account.State != token.AccountStateFrozen {
		return token.ErrorInvalidState
	}
	if !mintInfo.HasKey(account.Mint) {
		return token.ErrorMintMismatch
	}

	mint, err := p.loadMint(ctx, mintInfo)
	if err != nil {
		return err
	}
	if len(mint.FreezeAuthority) == 0 {
		return token.ErrorMintCannotFreeze
	}
	if err := validateOwner(mint.FreezeAuthority, authority); err != nil {
		return err
	}

	account.State = token.AccountStateInitialized
	if frozen {
		account.State = token.AccountStateFrozen
	}
	account.MarshalInto(accountInfo.Data)
	return nil
}

func (p *tokenProgram) loadAccount(ctx program.Context, info *program.AccountInfo) (*token.Account, error) {
	if !info.IsOwnedBy(ctx.ProgramID()) {
		return nil, program.ErrIncorrectProgramID
	}

	var account token.Account
	if !account.Unmarshal(info.Data) {
		return nil, program.ErrInvalidAccountData
	}
	if account.State == token.AccountStateUninitialized {
		return nil, token.ErrorUninitializedState
	}
	return &account, nil
}

func (p *tokenProgram) loadMint(ctx program.Context, info *program.AccountInfo) (*token.Mint, error) {
	if !info.IsOwnedBy(ctx.ProgramID()) {
		return nil, program.ErrIncorrectProgramID
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data) {
		return nil, program.ErrInvalidAccountData
	}
	if !mint.IsInitialized {
		return nil, token.ErrorUninitializedState
	}
	return &mint, nil
}

func validateOwner(expected []byte, authority *program.AccountInfo) error {
	if !authority.HasKey(expected) {
		return token.ErrorOwnerMismatch
	}
	if !authority.IsSigner {
		return program.ErrMissingRequiredSignature
	}
	return nil
}
