package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	takeInstructionMinAccounts = 12
)

type TakeInstructionAccounts struct {
	Taker     ed25519.PublicKey
	Maker     ed25519.PublicKey
	Escrow    ed25519.PublicKey
	MintA     ed25519.PublicKey
	MintB     ed25519.PublicKey
	Vault     ed25519.PublicKey
	TakerAtaA ed25519.PublicKey
	TakerAtaB ed25519.PublicKey
	MakerAtaB ed25519.PublicKey

	// Optional, defaults to TOKEN_PROGRAM_ID
	TokenProgram ed25519.PublicKey
}

// GetTakeInstructionAccounts derives the accounts needed to take the offer
// stored at escrow.
func GetTakeInstructionAccounts(taker, escrow ed25519.PublicKey, record *EscrowAccount, tokenProgram ed25519.PublicKey) (*TakeInstructionAccounts, error) {
	tokenProgram = tokenProgramOrDefault(tokenProgram)

	vault, err := GetVaultAddress(&GetVaultAddressArgs{
		Escrow:       escrow,
		Mint:         record.MintA,
		TokenProgram: tokenProgram,
	})
	if err != nil {
		return nil, err
	}

	takerAtaA, err := token.GetAssociatedAccountForProgram(taker, record.MintA, tokenProgram)
	if err != nil {
		return nil, err
	}
	takerAtaB, err := token.GetAssociatedAccountForProgram(taker, record.MintB, tokenProgram)
	if err != nil {
		return nil, err
	}
	makerAtaB, err := token.GetAssociatedAccountForProgram(record.Maker, record.MintB, tokenProgram)
	if err != nil {
		return nil, err
	}

	return &TakeInstructionAccounts{
		Taker:        taker,
		Maker:        record.Maker,
		Escrow:       escrow,
		MintA:        record.MintA,
		MintB:        record.MintB,
		Vault:        vault,
		TakerAtaA:    takerAtaA,
		TakerAtaB:    takerAtaB,
		MakerAtaB:    makerAtaB,
		TokenProgram: tokenProgram,
	}, nil
}

func NewTakeInstruction(accounts *TakeInstructionAccounts) solana.Instruction {
	return solana.NewInstruction(
		PROGRAM_ID,
		newInstructionData(TakeInstructionDiscriminator, 0),
		solana.NewAccountMeta(accounts.Taker, true),
		solana.NewAccountMeta(accounts.Maker, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.TakerAtaA, false),
		solana.NewAccountMeta(accounts.TakerAtaB, false),
		solana.NewAccountMeta(accounts.MakerAtaB, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(tokenProgramOrDefault(accounts.TokenProgram), false),
		solana.NewReadonlyAccountMeta(ASSOCIATED_TOKEN_PROGRAM_ID, false),
	)
}

func DecompileTakeInstruction(m solana.Message, index int) (*TakeInstructionAccounts, error) {
	i, err := getCompiledInstruction(m, index, TakeInstructionDiscriminator, takeInstructionMinAccounts)
	if err != nil {
		return nil, err
	}

	return &TakeInstructionAccounts{
		Taker:        m.Accounts[i.Accounts[0]],
		Maker:        m.Accounts[i.Accounts[1]],
		Escrow:       m.Accounts[i.Accounts[2]],
		MintA:        m.Accounts[i.Accounts[3]],
		MintB:        m.Accounts[i.Accounts[4]],
		Vault:        m.Accounts[i.Accounts[5]],
		TakerAtaA:    m.Accounts[i.Accounts[6]],
		TakerAtaB:    m.Accounts[i.Accounts[7]],
		MakerAtaB:    m.Accounts[i.Accounts[8]],
		TokenProgram: m.Accounts[i.Accounts[10]],
	}, nil
}
