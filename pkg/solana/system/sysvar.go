package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

// RentSysVar is the address of the Rent sysvar.
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
var RentSysVar = mustDecode("SysvarRent111111111111111111111111111111111")

const (
	// AccountStorageOverhead is the metadata size charged for every account
	// on top of its data.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2
)

// Rent holds the parameters of the Rent sysvar that determine rent exemption.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

// DefaultRent returns the mainnet rent parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance returns the lamports an account holding size bytes of data
// needs to be rent exempt.
func (r Rent) MinimumBalance(size uint64) uint64 {
	return (AccountStorageOverhead + size) * r.LamportsPerByteYear * r.ExemptionThreshold
}

// IsExempt reports whether lamports cover rent exemption for size bytes.
func (r Rent) IsExempt(lamports, size uint64) bool {
	return lamports >= r.MinimumBalance(size)
}

func mustDecode(address string) ed25519.PublicKey {
	decoded, err := base58.Decode(address)
	if err != nil {
		panic(err)
	}
	return decoded
}
