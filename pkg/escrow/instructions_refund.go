package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	refundInstructionMinAccounts = 7
)

type RefundInstructionAccounts struct {
	Maker     ed25519.PublicKey
	Escrow    ed25519.PublicKey
	MintA     ed25519.PublicKey
	Vault     ed25519.PublicKey
	MakerAtaA ed25519.PublicKey

	// Optional, defaults to TOKEN_PROGRAM_ID
	TokenProgram ed25519.PublicKey
}

// GetRefundInstructionAccounts derives the accounts needed to cancel the offer
// stored at escrow.
func GetRefundInstructionAccounts(escrow ed25519.PublicKey, record *EscrowAccount, tokenProgram ed25519.PublicKey) (*RefundInstructionAccounts, error) {
	tokenProgram = tokenProgramOrDefault(tokenProgram)

	vault, err := GetVaultAddress(&GetVaultAddressArgs{
		Escrow:       escrow,
		Mint:         record.MintA,
		TokenProgram: tokenProgram,
	})
	if err != nil {
		return nil, err
	}

	makerAtaA, err := token.GetAssociatedAccountForProgram(record.Maker, record.MintA, tokenProgram)
	if err != nil {
		return nil, err
	}

	return &RefundInstructionAccounts{
		Maker:        record.Maker,
		Escrow:       escrow,
		MintA:        record.MintA,
		Vault:        vault,
		MakerAtaA:    makerAtaA,
		TokenProgram: tokenProgram,
	}, nil
}

func NewRefundInstruction(accounts *RefundInstructionAccounts) solana.Instruction {
	return solana.NewInstruction(
		PROGRAM_ID,
		newInstructionData(RefundInstructionDiscriminator, 0),
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.MakerAtaA, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(tokenProgramOrDefault(accounts.TokenProgram), false),
		solana.NewReadonlyAccountMeta(ASSOCIATED_TOKEN_PROGRAM_ID, false),
	)
}

func DecompileRefundInstruction(m solana.Message, index int) (*RefundInstructionAccounts, error) {
	i, err := getCompiledInstruction(m, index, RefundInstructionDiscriminator, refundInstructionMinAccounts)
	if err != nil {
		return nil, err
	}

	return &RefundInstructionAccounts{
		Maker:        m.Accounts[i.Accounts[0]],
		Escrow:       m.Accounts[i.Accounts[1]],
		MintA:        m.Accounts[i.Accounts[2]],
		Vault:        m.Accounts[i.Accounts[3]],
		MakerAtaA:    m.Accounts[i.Accounts[4]],
		TokenProgram: m.Accounts[i.Accounts[6]],
	}, nil
}
