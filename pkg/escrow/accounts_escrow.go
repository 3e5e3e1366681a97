package escrow

import (
	"crypto/ed25519"
	"fmt"
	"math"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-escrow/pkg/solana/binary"
	"github.com/code-payments/code-escrow/pkg/solana/program"
)

const (
	EscrowAccountSize = (8 + // seed
		32 + // maker
		32 + // mint_a
		32 + // mint_b
		8 + // receive
		1) // bump
)

// EscrowAccount is the record of an open offer: the maker deposited mint A
// into the vault and wants Receive units of mint B in return.
type EscrowAccount struct {
	Seed    uint64
	Maker   ed25519.PublicKey
	MintA   ed25519.PublicKey
	MintB   ed25519.PublicKey
	Receive uint64
	Bump    uint8
}

func (obj *EscrowAccount) Marshal() []byte {
	data := make([]byte, EscrowAccountSize)

	var offset int
	binary.PutUint64(data[offset:], obj.Seed, &offset)
	binary.PutKey32(data[offset:], obj.Maker, &offset)
	binary.PutKey32(data[offset:], obj.MintA, &offset)
	binary.PutKey32(data[offset:], obj.MintB, &offset)
	binary.PutUint64(data[offset:], obj.Receive, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)

	return data
}

func (obj *EscrowAccount) Unmarshal(data []byte) error {
	if len(data) != EscrowAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	binary.GetUint64(data[offset:], &obj.Seed, &offset)
	binary.GetKey32(data[offset:], &obj.Maker, &offset)
	binary.GetKey32(data[offset:], &obj.MintA, &offset)
	binary.GetKey32(data[offset:], &obj.MintB, &offset)
	binary.GetUint64(data[offset:], &obj.Receive, &offset)
	binary.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}

func (obj *EscrowAccount) String() string {
	return fmt.Sprintf(
		"EscrowAccount{seed=%d,maker=%s,mint_a=%s,mint_b=%s,receive=%d,bump=%d}",
		obj.Seed,
		base58.Encode(obj.Maker),
		base58.Encode(obj.MintA),
		base58.Encode(obj.MintB),
		obj.Receive,
		obj.Bump,
	)
}

// LoadEscrow decodes the record stored in account.
func LoadEscrow(account *program.AccountInfo) (*EscrowAccount, error) {
	var record EscrowAccount
	if err := record.Unmarshal(account.Data); err != nil {
		return nil, err
	}
	return &record, nil
}

// storeEscrow writes record into an account already allocated to the record size.
func storeEscrow(account *program.AccountInfo, record *EscrowAccount) error {
	if len(account.Data) != EscrowAccountSize {
		return ErrInvalidAccountData
	}

	copy(account.Data, record.Marshal())
	return nil
}

// closeProgramAccount returns all of account's lamports to recipient and hands
// the emptied account back to the system program. The runtime drops accounts
// left with zero lamports when the transaction commits.
func closeProgramAccount(account, recipient *program.AccountInfo) error {
	if recipient.Lamports > math.MaxUint64-account.Lamports {
		return program.ErrArithmeticOverflow
	}

	recipient.Lamports += account.Lamports
	account.Lamports = 0
	account.Data = nil
	account.Owner = SYSTEM_PROGRAM_ID
	return nil
}
