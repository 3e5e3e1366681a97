package cmd

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/memo"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// describeInstructions returns a one line summary of every instruction in m.
// Instructions of unknown programs, or that fail to decode, are summarized by
// program and size.
func describeInstructions(m solana.Message) []string {
	lines := make([]string, len(m.Instructions))
	for i := range m.Instructions {
		lines[i] = describeInstruction(m, i)
	}
	return lines
}

func describeInstruction(m solana.Message, index int) string {
	i := m.Instructions[index]
	if int(i.ProgramIndex) >= len(m.Accounts) {
		return "invalid program index"
	}
	program := m.Accounts[i.ProgramIndex]

	switch {
	case bytes.Equal(program, system.ProgramKey[:]):
		if v, err := system.DecompileCreateAccount(m, index); err == nil {
			return fmt.Sprintf("system create-account: funder=%s address=%s lamports=%d size=%d owner=%s",
				base58.Encode(v.Funder), base58.Encode(v.Address), v.Lamports, v.Size, base58.Encode(v.Owner))
		}
		if v, err := system.DecompileTransfer(m, index); err == nil {
			return fmt.Sprintf("system transfer: from=%s to=%s lamports=%d",
				base58.Encode(v.From), base58.Encode(v.To), v.Lamports)
		}
	case token.IsTokenProgram(program):
		if v, err := token.DecompileTransfer(m, index); err == nil {
			return fmt.Sprintf("token transfer: source=%s destination=%s owner=%s amount=%d",
				base58.Encode(v.Source), base58.Encode(v.Destination), base58.Encode(v.Owner), v.Amount)
		}
		if v, err := token.DecompileCloseAccount(m, index); err == nil {
			return fmt.Sprintf("token close-account: account=%s destination=%s owner=%s",
				base58.Encode(v.Account), base58.Encode(v.Destination), base58.Encode(v.Owner))
		}
	case bytes.Equal(program, token.AssociatedTokenAccountProgramKey):
		if v, err := token.DecompileCreateAssociatedAccount(m, index); err == nil {
			return fmt.Sprintf("associated-token create: address=%s owner=%s mint=%s idempotent=%t",
				base58.Encode(v.Address), base58.Encode(v.Owner), base58.Encode(v.Mint), v.Idempotent)
		}
	case bytes.Equal(program, memo.ProgramKey):
		if v, err := memo.DecompileMemo(m, index); err == nil {
			return fmt.Sprintf("memo: %q", v.Data)
		}
	case bytes.Equal(program, escrow.PROGRAM_ID):
		if v, err := escrow.DecompileMakeInstruction(m, index); err == nil {
			return fmt.Sprintf("escrow make: maker=%s escrow=%s seed=%d amount=%d receive=%d",
				base58.Encode(v.Accounts.Maker), base58.Encode(v.Accounts.Escrow), v.Args.Seed, v.Args.Amount, v.Args.Receive)
		}
		if v, err := escrow.DecompileTakeInstruction(m, index); err == nil {
			return fmt.Sprintf("escrow take: taker=%s maker=%s escrow=%s",
				base58.Encode(v.Taker), base58.Encode(v.Maker), base58.Encode(v.Escrow))
		}
		if v, err := escrow.DecompileRefundInstruction(m, index); err == nil {
			return fmt.Sprintf("escrow refund: maker=%s escrow=%s",
				base58.Encode(v.Maker), base58.Encode(v.Escrow))
		}
	}

	return fmt.Sprintf("%s: %d accounts, %d bytes", base58.Encode(program), len(i.Accounts), len(i.Data))
}
