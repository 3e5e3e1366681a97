package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// Processor executes escrow program instructions.
type Processor struct {
	collaborators CollaboratorFactory
}

type Option func(*Processor)

// WithCollaborators overrides how custody and allocation are performed. By
// default both are cross-program invocations into the system, token and
// associated token account programs.
func WithCollaborators(factory CollaboratorFactory) Option {
	return func(p *Processor) {
		p.collaborators = factory
	}
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		collaborators: NewCPICollaborators,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process implements program.Processor.
func (p *Processor) Process(ctx program.Context, accounts []*program.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return program.ErrInvalidInstructionData
	}

	switch data[0] {
	case MakeInstructionDiscriminator:
		ctx.Log("Instruction: Make")
		return p.processMake(ctx, accounts, data[1:])
	case TakeInstructionDiscriminator:
		ctx.Log("Instruction: Take")
		return p.processTake(ctx, accounts)
	case RefundInstructionDiscriminator:
		ctx.Log("Instruction: Refund")
		return p.processRefund(ctx, accounts)
	default:
		return program.ErrInvalidInstructionData
	}
}

type accountCheck interface {
	Check(account *program.AccountInfo) error
}

// check applies each check to account in order, stopping at the first failure.
func check(account *program.AccountInfo, checks ...accountCheck) error {
	for _, c := range checks {
		if err := c.Check(account); err != nil {
			return err
		}
	}
	return nil
}

var (
	systemProgramInterface          = ProgramInterface{Expected: []ed25519.PublicKey{SYSTEM_PROGRAM_ID}}
	tokenProgramInterface           = ProgramInterface{Expected: []ed25519.PublicKey{TOKEN_PROGRAM_ID, TOKEN_2022_PROGRAM_ID}}
	associatedTokenProgramInterface = ProgramInterface{Expected: []ed25519.PublicKey{ASSOCIATED_TOKEN_PROGRAM_ID}}
)

// checkTokenProgram requires every mint to be owned by the token program the
// instruction was sent with.
func checkTokenProgram(tokenProgram *program.AccountInfo, mints ...*program.AccountInfo) error {
	if err := tokenProgramInterface.Check(tokenProgram); err != nil {
		return err
	}
	for _, mint := range mints {
		if !mint.IsOwnedBy(tokenProgram.Key) {
			return program.ErrIncorrectProgramID
		}
	}
	return nil
}

// loadEscrowAuthority decodes the record in escrow and recreates its authority
// from maker and the stored seed and bump. The escrow's address must be the
// one that derivation produces.
func loadEscrowAuthority(ctx program.Context, escrow, maker *program.AccountInfo) (*EscrowAccount, *Authority, error) {
	record, err := LoadEscrow(escrow)
	if err != nil {
		return nil, nil, err
	}

	authority, err := newEscrowAuthority(ctx.ProgramID(), maker.Key, record.Seed, record.Bump)
	if err != nil {
		return nil, nil, program.ErrInvalidAccountOwner
	}
	if !escrow.HasKey(authority.Address()) {
		return nil, nil, program.ErrInvalidAccountOwner
	}

	if err := check(escrow, ProgramAccount{Program: ctx.ProgramID()}); err != nil {
		return nil, nil, err
	}

	return record, authority, nil
}
