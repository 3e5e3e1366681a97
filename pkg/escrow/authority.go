package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/program"
)

// Authority is the program derived identity of a single escrow. It is the
// owner of the vault and can only be exercised by the program that derived
// it, through the signer seeds it carries.
type Authority struct {
	address ed25519.PublicKey
	seeds   program.Seeds
	bump    uint8
}

// findEscrowAuthority derives the authority with the canonical bump.
func findEscrowAuthority(programID, maker ed25519.PublicKey, seed uint64) (*Authority, error) {
	address, bump, err := solana.FindProgramAddressAndBump(programID, EscrowPrefix, maker, seedBytes(seed))
	if err != nil {
		return nil, err
	}

	return &Authority{
		address: address,
		seeds:   escrowSignerSeeds(maker, seed, bump),
		bump:    bump,
	}, nil
}

// newEscrowAuthority recreates the authority of a stored escrow record.
func newEscrowAuthority(programID, maker ed25519.PublicKey, seed uint64, bump uint8) (*Authority, error) {
	seeds := escrowSignerSeeds(maker, seed, bump)

	address, err := solana.CreateProgramAddress(programID, seeds...)
	if err != nil {
		return nil, err
	}

	return &Authority{
		address: address,
		seeds:   seeds,
		bump:    bump,
	}, nil
}

func (a *Authority) Address() ed25519.PublicKey {
	return a.address
}

func (a *Authority) Bump() uint8 {
	return a.bump
}

func (a *Authority) signerSeeds() program.Seeds {
	return a.seeds
}

func escrowSignerSeeds(maker ed25519.PublicKey, seed uint64, bump uint8) program.Seeds {
	return program.Seeds{
		EscrowPrefix,
		maker,
		seedBytes(seed),
		{bump},
	}
}
