package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

var (
	EscrowPrefix = []byte("escrow")
)

type GetEscrowAddressArgs struct {
	Maker ed25519.PublicKey
	Seed  uint64
}

// GetEscrowAddress finds the canonical escrow address and bump for a maker and
// seed under PROGRAM_ID.
func GetEscrowAddress(args *GetEscrowAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		EscrowPrefix,
		args.Maker,
		seedBytes(args.Seed),
	)
}

type CreateEscrowAddressArgs struct {
	Maker ed25519.PublicKey
	Seed  uint64
	Bump  uint8
}

// CreateEscrowAddress recreates an escrow address from a stored bump.
func CreateEscrowAddress(args *CreateEscrowAddressArgs) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(
		PROGRAM_ID,
		EscrowPrefix,
		args.Maker,
		seedBytes(args.Seed),
		[]byte{args.Bump},
	)
}

type GetVaultAddressArgs struct {
	Escrow       ed25519.PublicKey
	Mint         ed25519.PublicKey
	TokenProgram ed25519.PublicKey
}

// GetVaultAddress returns the associated token account holding an escrow's
// deposit. TokenProgram defaults to the token program.
func GetVaultAddress(args *GetVaultAddressArgs) (ed25519.PublicKey, error) {
	tokenProgram := args.TokenProgram
	if len(tokenProgram) == 0 {
		tokenProgram = TOKEN_PROGRAM_ID
	}

	return token.GetAssociatedAccountForProgram(args.Escrow, args.Mint, tokenProgram)
}

func seedBytes(seed uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}
