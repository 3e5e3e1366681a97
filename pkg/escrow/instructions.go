package escrow

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

func newInstructionData(discriminator uint8, argsSize int) []byte {
	data := make([]byte, 1+argsSize)
	data[0] = discriminator
	return data
}

func tokenProgramOrDefault(tokenProgram ed25519.PublicKey) ed25519.PublicKey {
	if len(tokenProgram) == 0 {
		return TOKEN_PROGRAM_ID
	}
	return tokenProgram
}

func getCompiledInstruction(m solana.Message, index int, discriminator uint8, minAccounts int) (*solana.CompiledInstruction, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !bytes.Equal(m.Accounts[i.ProgramIndex], PROGRAM_ID) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || i.Data[0] != discriminator {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Accounts) < minAccounts {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	return &i, nil
}
