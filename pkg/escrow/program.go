package escrow

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("22222222222222222222222222222222222222222222")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID           = ed25519.PublicKey(system.ProgramKey[:])
	TOKEN_PROGRAM_ID            = token.ProgramKey
	TOKEN_2022_PROGRAM_ID       = token.Token2022ProgramKey
	ASSOCIATED_TOKEN_PROGRAM_ID = token.AssociatedTokenAccountProgramKey
)

const (
	MakeInstructionDiscriminator uint8 = iota
	TakeInstructionDiscriminator
	RefundInstructionDiscriminator
)

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
