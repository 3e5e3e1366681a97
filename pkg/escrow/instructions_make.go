package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/binary"
	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	MakeInstructionArgsSize = (8 + // seed
		8 + // receive
		8) // amount

	makeInstructionMinAccounts = 9
)

type MakeInstructionArgs struct {
	Seed    uint64
	Receive uint64
	Amount  uint64
}

type MakeInstructionAccounts struct {
	Maker     ed25519.PublicKey
	Escrow    ed25519.PublicKey
	MintA     ed25519.PublicKey
	MintB     ed25519.PublicKey
	MakerAtaA ed25519.PublicKey
	Vault     ed25519.PublicKey

	// Optional, defaults to TOKEN_PROGRAM_ID
	TokenProgram ed25519.PublicKey
}

// GetMakeInstructionAccounts derives the escrow, vault and maker holding
// addresses for a new offer.
func GetMakeInstructionAccounts(maker, mintA, mintB ed25519.PublicKey, seed uint64, tokenProgram ed25519.PublicKey) (*MakeInstructionAccounts, error) {
	tokenProgram = tokenProgramOrDefault(tokenProgram)

	escrow, _, err := GetEscrowAddress(&GetEscrowAddressArgs{
		Maker: maker,
		Seed:  seed,
	})
	if err != nil {
		return nil, err
	}

	vault, err := GetVaultAddress(&GetVaultAddressArgs{
		Escrow:       escrow,
		Mint:         mintA,
		TokenProgram: tokenProgram,
	})
	if err != nil {
		return nil, err
	}

	makerAtaA, err := token.GetAssociatedAccountForProgram(maker, mintA, tokenProgram)
	if err != nil {
		return nil, err
	}

	return &MakeInstructionAccounts{
		Maker:        maker,
		Escrow:       escrow,
		MintA:        mintA,
		MintB:        mintB,
		MakerAtaA:    makerAtaA,
		Vault:        vault,
		TokenProgram: tokenProgram,
	}, nil
}

func NewMakeInstruction(
	accounts *MakeInstructionAccounts,
	args *MakeInstructionArgs,
) solana.Instruction {
	data := newInstructionData(MakeInstructionDiscriminator, MakeInstructionArgsSize)
	copy(data[1:], args.Marshal())

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.MakerAtaA, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(tokenProgramOrDefault(accounts.TokenProgram), false),
		solana.NewReadonlyAccountMeta(ASSOCIATED_TOKEN_PROGRAM_ID, false),
	)
}

func (args *MakeInstructionArgs) Marshal() []byte {
	data := make([]byte, MakeInstructionArgsSize)

	var offset int
	binary.PutUint64(data[offset:], args.Seed, &offset)
	binary.PutUint64(data[offset:], args.Receive, &offset)
	binary.PutUint64(data[offset:], args.Amount, &offset)

	return data
}

// Unmarshal decodes the payload that follows the discriminator.
func (args *MakeInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != MakeInstructionArgsSize {
		return program.ErrInvalidInstructionData
	}

	var offset int
	binary.GetUint64(data[offset:], &args.Seed, &offset)
	binary.GetUint64(data[offset:], &args.Receive, &offset)
	binary.GetUint64(data[offset:], &args.Amount, &offset)

	return nil
}

type DecompiledMakeInstruction struct {
	Accounts MakeInstructionAccounts
	Args     MakeInstructionArgs
}

func DecompileMakeInstruction(m solana.Message, index int) (*DecompiledMakeInstruction, error) {
	i, err := getCompiledInstruction(m, index, MakeInstructionDiscriminator, makeInstructionMinAccounts)
	if err != nil {
		return nil, err
	}

	var decompiled DecompiledMakeInstruction
	if err := decompiled.Args.Unmarshal(i.Data[1:]); err != nil {
		return nil, err
	}

	decompiled.Accounts = MakeInstructionAccounts{
		Maker:        m.Accounts[i.Accounts[0]],
		Escrow:       m.Accounts[i.Accounts[1]],
		MintA:        m.Accounts[i.Accounts[2]],
		MintB:        m.Accounts[i.Accounts[3]],
		MakerAtaA:    m.Accounts[i.Accounts[4]],
		Vault:        m.Accounts[i.Accounts[5]],
		TokenProgram: m.Accounts[i.Accounts[7]],
	}
	return &decompiled, nil
}
