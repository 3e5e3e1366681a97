package escrow

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// Custody holds and moves assets on behalf of escrows.
type Custody interface {
	// Transfer moves amount from one holding account to another. When signer
	// is set, the transfer is authorized by the escrow's derived authority
	// rather than by a transaction signer.
	Transfer(from, to, authority *program.AccountInfo, amount uint64, signer *Authority) error

	// CloseAccount closes an empty holding account, returning its rent to
	// destination.
	CloseAccount(account, destination, authority *program.AccountInfo, signer *Authority) error

	// CreateAssociatedAccount creates the holding account of (owner, mint)
	// funded by funder. With idempotent set, an existing valid account is
	// left unchanged.
	CreateAssociatedAccount(funder, account, owner, mint *program.AccountInfo, idempotent bool) error
}

// Allocator creates new program owned accounts.
type Allocator interface {
	CreateAccount(funder, account *program.AccountInfo, space uint64, owner ed25519.PublicKey, signer *Authority) error
}

// Programs are the collaborator program accounts passed to an instruction.
// AssociatedToken is nil when the instruction was sent without it.
type Programs struct {
	System          *program.AccountInfo
	Token           *program.AccountInfo
	AssociatedToken *program.AccountInfo
}

// CollaboratorFactory builds the custody and allocator used for a single
// instruction.
type CollaboratorFactory func(ctx program.Context, programs Programs) (Custody, Allocator)

// NewCPICollaborators returns collaborators that invoke the system, token and
// associated token account programs.
func NewCPICollaborators(ctx program.Context, programs Programs) (Custody, Allocator) {
	return &cpiCustody{ctx: ctx, programs: programs}, &cpiAllocator{ctx: ctx, programs: programs}
}

type cpiCustody struct {
	ctx      program.Context
	programs Programs
}

func (c *cpiCustody) Transfer(from, to, authority *program.AccountInfo, amount uint64, signer *Authority) error {
	ix := token.Transfer(from.Key, to.Key, authority.Key, amount)
	ix.Program = c.programs.Token.Key
	return c.ctx.Invoke(ix, signerSeeds(signer)...)
}

func (c *cpiCustody) CloseAccount(account, destination, authority *program.AccountInfo, signer *Authority) error {
	ix := token.CloseAccount(account.Key, destination.Key, authority.Key)
	ix.Program = c.programs.Token.Key
	return c.ctx.Invoke(ix, signerSeeds(signer)...)
}

func (c *cpiCustody) CreateAssociatedAccount(funder, account, owner, mint *program.AccountInfo, idempotent bool) error {
	if idempotent && !isUninitialized(account) {
		return checkExistingHolding(account, owner, mint)
	}

	if c.programs.AssociatedToken == nil {
		return program.ErrNotEnoughAccountKeys
	}

	ix, _, err := token.CreateAssociatedTokenAccountIdempotent(funder.Key, owner.Key, mint.Key, c.programs.Token.Key)
	if err != nil {
		return err
	}
	if !idempotent {
		ix.Data = []byte{byte(token.AssociatedCommandCreate)}
	}
	ix.Program = c.programs.AssociatedToken.Key

	return c.ctx.Invoke(ix)
}

// checkExistingHolding requires an already created holding account to belong
// to owner and hold mint.
func checkExistingHolding(account, owner, mint *program.AccountInfo) error {
	if err := (TokenAccount{}).Check(account); err != nil {
		return err
	}

	var state token.Account
	if !state.Unmarshal(account.Data) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(state.Owner, owner.Key) || !bytes.Equal(state.Mint, mint.Key) {
		return program.ErrIllegalOwner
	}
	return nil
}

type cpiAllocator struct {
	ctx      program.Context
	programs Programs
}

func (a *cpiAllocator) CreateAccount(funder, account *program.AccountInfo, space uint64, owner ed25519.PublicKey, signer *Authority) error {
	ix := system.CreateAccount(funder.Key, account.Key, owner, a.ctx.MinimumBalance(space), space)
	ix.Program = a.programs.System.Key
	return a.ctx.Invoke(ix, signerSeeds(signer)...)
}

func signerSeeds(signer *Authority) []program.Seeds {
	if signer == nil {
		return nil
	}
	return []program.Seeds{signer.signerSeeds()}
}
