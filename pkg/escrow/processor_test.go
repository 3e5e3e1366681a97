package escrow

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

const testLamportsPerByte = 6960

type testContext struct {
	logs []string
}

func (c *testContext) ProgramID() ed25519.PublicKey {
	return PROGRAM_ID
}

func (c *testContext) Invoke(solana.Instruction, ...program.Seeds) error {
	return errors.New("unexpected cross-program invocation")
}

func (c *testContext) MinimumBalance(size uint64) uint64 {
	return (128 + size) * testLamportsPerByte
}

func (c *testContext) Log(format string, args ...interface{}) {
	c.logs = append(c.logs, fmt.Sprintf(format, args...))
}

// ledger is a fake custody primitive and allocator that applies its effects
// directly to the account views it is handed.
type ledger struct {
	ctx   *testContext
	world *world
	calls []string
}

func (l *ledger) factory(ctx program.Context, programs Programs) (Custody, Allocator) {
	return l, l
}

func (l *ledger) authorize(authority *program.AccountInfo, signer *Authority) error {
	if signer != nil {
		if !authority.HasKey(signer.Address()) {
			return program.ErrMissingRequiredSignature
		}
		return nil
	}
	if !authority.IsSigner {
		return program.ErrMissingRequiredSignature
	}
	return nil
}

func (l *ledger) Transfer(from, to, authority *program.AccountInfo, amount uint64, signer *Authority) error {
	l.calls = append(l.calls, fmt.Sprintf("transfer %s->%s %d signed=%v", l.world.name(from), l.world.name(to), amount, signer != nil))

	var source, destination token.Account
	if !source.Unmarshal(from.Data) || !destination.Unmarshal(to.Data) {
		return token.ErrorUninitializedState
	}
	if !bytes.Equal(source.Owner, authority.Key) {
		return token.ErrorOwnerMismatch
	}
	if err := l.authorize(authority, signer); err != nil {
		return err
	}
	if source.Amount < amount {
		return token.ErrorInsufficientFunds
	}

	source.Amount -= amount
	source.MarshalInto(from.Data)
	destination.Amount += amount
	destination.MarshalInto(to.Data)
	return nil
}

func (l *ledger) CloseAccount(account, destination, authority *program.AccountInfo, signer *Authority) error {
	l.calls = append(l.calls, fmt.Sprintf("close %s->%s signed=%v", l.world.name(account), l.world.name(destination), signer != nil))

	if err := l.authorize(authority, signer); err != nil {
		return err
	}

	destination.Lamports += account.Lamports
	account.Lamports = 0
	account.Data = nil
	account.Owner = SYSTEM_PROGRAM_ID
	return nil
}

func (l *ledger) CreateAssociatedAccount(funder, account, owner, mint *program.AccountInfo, idempotent bool) error {
	l.calls = append(l.calls, fmt.Sprintf("create %s idempotent=%v", l.world.name(account), idempotent))

	if idempotent && !isUninitialized(account) {
		return checkExistingHolding(account, owner, mint)
	}
	if !isUninitialized(account) {
		return program.ErrIllegalOwner
	}

	rent := l.ctx.MinimumBalance(token.AccountSize)
	funder.Lamports -= rent
	account.Lamports += rent
	account.Owner = mint.Owner
	account.Data = (&token.Account{
		Mint:  mint.Key,
		Owner: owner.Key,
		State: token.AccountStateInitialized,
	}).Marshal()
	return nil
}

func (l *ledger) CreateAccount(funder, account *program.AccountInfo, space uint64, owner ed25519.PublicKey, signer *Authority) error {
	l.calls = append(l.calls, fmt.Sprintf("allocate %s %d", l.world.name(account), space))

	if signer == nil || !account.HasKey(signer.Address()) {
		return program.ErrMissingRequiredSignature
	}

	rent := l.ctx.MinimumBalance(space)
	funder.Lamports -= rent
	account.Lamports += rent
	account.Owner = owner
	account.Data = make([]byte, space)
	return nil
}

// world is the set of accounts shared by a sequence of instructions.
type world struct {
	t        *testing.T
	seed     uint64
	tokenKey ed25519.PublicKey
	accounts map[string]*program.AccountInfo
}

func newWorld(t *testing.T, tokenProgram ed25519.PublicKey) *world {
	keys := testutil.GenerateSolanaKeys(t, 4)
	maker, taker, mintA, mintB := keys[0], keys[1], keys[2], keys[3]

	w := &world{
		t:        t,
		seed:     1234,
		tokenKey: tokenProgram,
		accounts: make(map[string]*program.AccountInfo),
	}

	escrow, _, err := GetEscrowAddress(&GetEscrowAddressArgs{Maker: maker, Seed: w.seed})
	require.NoError(t, err)

	w.add("maker", maker, SYSTEM_PROGRAM_ID, 10_000_000_000, nil)
	w.add("taker", taker, SYSTEM_PROGRAM_ID, 10_000_000_000, nil)
	w.add("escrow", escrow, SYSTEM_PROGRAM_ID, 0, nil)
	w.add("mint_a", mintA, tokenProgram, 1_461_600, (&token.Mint{IsInitialized: true, Supply: 2000}).Marshal())
	w.add("mint_b", mintB, tokenProgram, 1_461_600, (&token.Mint{IsInitialized: true, Supply: 2000}).Marshal())

	w.addAssociated("vault", escrow, mintA, -1)
	w.addAssociated("maker_ata_a", maker, mintA, 1000)
	w.addAssociated("maker_ata_b", maker, mintB, -1)
	w.addAssociated("taker_ata_a", taker, mintA, -1)
	w.addAssociated("taker_ata_b", taker, mintB, 1000)

	w.add("system_program", SYSTEM_PROGRAM_ID, nil, 1, nil)
	w.add("token_program", tokenProgram, nil, 1, nil)
	w.add("associated_token_program", ASSOCIATED_TOKEN_PROGRAM_ID, nil, 1, nil)

	return w
}

func (w *world) add(name string, key, owner ed25519.PublicKey, lamports uint64, data []byte) {
	w.accounts[name] = &program.AccountInfo{
		Key:        key,
		Owner:      owner,
		Lamports:   lamports,
		Data:       data,
		Executable: owner == nil,
	}
}

// addAssociated adds the associated token account of (wallet, mint). A
// negative amount leaves it uncreated.
func (w *world) addAssociated(name string, wallet, mint ed25519.PublicKey, amount int64) {
	address, err := token.GetAssociatedAccountForProgram(wallet, mint, w.tokenKey)
	require.NoError(w.t, err)

	if amount < 0 {
		w.add(name, address, SYSTEM_PROGRAM_ID, 0, nil)
		return
	}

	w.add(name, address, w.tokenKey, 2_039_280, (&token.Account{
		Mint:   mint,
		Owner:  wallet,
		Amount: uint64(amount),
		State:  token.AccountStateInitialized,
	}).Marshal())
}

func (w *world) name(account *program.AccountInfo) string {
	for name, candidate := range w.accounts {
		if candidate == account {
			return name
		}
	}
	return "unknown"
}

func (w *world) list(signer string, names ...string) []*program.AccountInfo {
	accounts := make([]*program.AccountInfo, len(names))
	for i, name := range names {
		account, ok := w.accounts[name]
		require.True(w.t, ok, name)

		account.IsSigner = name == signer
		account.IsWritable = account.Owner != nil
		accounts[i] = account
	}
	return accounts
}

func (w *world) balance(name string) uint64 {
	var state token.Account
	require.True(w.t, state.Unmarshal(w.accounts[name].Data), name)
	return state.Amount
}

func (w *world) makeAccounts() []*program.AccountInfo {
	return w.list("maker", "maker", "escrow", "mint_a", "mint_b", "maker_ata_a", "vault", "system_program", "token_program", "associated_token_program")
}

func (w *world) takeAccounts() []*program.AccountInfo {
	return w.list("taker", "taker", "maker", "escrow", "mint_a", "mint_b", "vault", "taker_ata_a", "taker_ata_b", "maker_ata_b", "system_program", "token_program", "associated_token_program")
}

func (w *world) refundAccounts() []*program.AccountInfo {
	return w.list("maker", "maker", "escrow", "mint_a", "vault", "maker_ata_a", "system_program", "token_program", "associated_token_program")
}

func makeData(seed, receive, amount uint64) []byte {
	args := &MakeInstructionArgs{Seed: seed, Receive: receive, Amount: amount}
	return append([]byte{MakeInstructionDiscriminator}, args.Marshal()...)
}

type processorEnv struct {
	ctx       *testContext
	world     *world
	ledger    *ledger
	processor *Processor
}

func setupProcessor(t *testing.T, tokenProgram ed25519.PublicKey) *processorEnv {
	ctx := &testContext{}
	w := newWorld(t, tokenProgram)
	l := &ledger{ctx: ctx, world: w}

	return &processorEnv{
		ctx:       ctx,
		world:     w,
		ledger:    l,
		processor: NewProcessor(WithCollaborators(l.factory)),
	}
}

func (env *processorEnv) open(t *testing.T) {
	require.NoError(t, env.processor.Process(env.ctx, env.world.makeAccounts(), makeData(env.world.seed, 1000, 500)))
	env.ledger.calls = nil
}

func TestProcess_InvalidInstruction(t *testing.T) {
	env := setupProcessor(t, TOKEN_PROGRAM_ID)

	for _, data := range [][]byte{nil, {3}, {255, 0}} {
		assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(env.ctx, env.world.makeAccounts(), data))
	}
	assert.Empty(t, env.ledger.calls)
}

func TestProcessMake(t *testing.T) {
	for _, tokenProgram := range []ed25519.PublicKey{TOKEN_PROGRAM_ID, TOKEN_2022_PROGRAM_ID} {
		env := setupProcessor(t, tokenProgram)
		w := env.world

		require.NoError(t, env.processor.Process(env.ctx, w.makeAccounts(), makeData(w.seed, 1000, 500)))

		assert.Equal(t, []string{
			"allocate escrow 113",
			"create vault idempotent=false",
			"transfer maker_ata_a->vault 500 signed=false",
		}, env.ledger.calls)
		assert.Equal(t, []string{"Instruction: Make", "escrow 1234 opened: 500 deposited for 1000"}, env.ctx.logs)

		escrow := w.accounts["escrow"]
		assert.Equal(t, PROGRAM_ID, escrow.Owner)
		assert.EqualValues(t, env.ctx.MinimumBalance(EscrowAccountSize), escrow.Lamports)

		record, err := LoadEscrow(escrow)
		require.NoError(t, err)

		_, bump, err := GetEscrowAddress(&GetEscrowAddressArgs{Maker: w.accounts["maker"].Key, Seed: w.seed})
		require.NoError(t, err)
		assert.Equal(t, &EscrowAccount{
			Seed:    w.seed,
			Maker:   w.accounts["maker"].Key,
			MintA:   w.accounts["mint_a"].Key,
			MintB:   w.accounts["mint_b"].Key,
			Receive: 1000,
			Bump:    bump,
		}, record)

		assert.EqualValues(t, 500, w.balance("vault"))
		assert.EqualValues(t, 500, w.balance("maker_ata_a"))

		var vault token.Account
		require.True(t, vault.Unmarshal(w.accounts["vault"].Data))
		assert.Equal(t, escrow.Key, vault.Owner)
		assert.Equal(t, tokenProgram, w.accounts["vault"].Owner)
	}
}

func TestProcessMake_Validation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		data     []byte
		modify   func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo
		expected error
		calls    []string
	}{
		{
			name:     "zero deposit",
			data:     makeData(1234, 1000, 0),
			expected: program.ErrInvalidInstructionData,
		},
		{
			name:     "short payload",
			data:     makeData(1234, 1000, 500)[:20],
			expected: program.ErrInvalidInstructionData,
		},
		{
			name: "not enough accounts",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				return accounts[:7]
			},
			expected: program.ErrNotEnoughAccountKeys,
		},
		{
			name: "missing associated token program",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				return accounts[:8]
			},
			expected: program.ErrNotEnoughAccountKeys,
		},
		{
			name: "maker not signer",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[0].IsSigner = false
				return accounts
			},
			expected: ErrNotSigner,
		},
		{
			name: "mint not owned by a token program",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[3].Owner = SYSTEM_PROGRAM_ID
				return accounts
			},
			expected: ErrInvalidOwner,
		},
		{
			name: "wrong system program",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[6] = w.accounts["token_program"]
				return accounts
			},
			expected: program.ErrIncorrectProgramID,
		},
		{
			name: "wrong associated token program",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[8] = w.accounts["system_program"]
				return accounts
			},
			expected: program.ErrIncorrectProgramID,
		},
		{
			name: "mints under different token programs",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[3].Owner = TOKEN_2022_PROGRAM_ID
				return accounts
			},
			expected: program.ErrIncorrectProgramID,
		},
		{
			name:     "escrow not derived from maker and seed",
			data:     makeData(4321, 1000, 500),
			expected: ErrInvalidAddress,
		},
		{
			name: "escrow already open",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[1].Owner = PROGRAM_ID
				accounts[1].Data = make([]byte, EscrowAccountSize)
				return accounts
			},
			expected: program.ErrAccountAlreadyInitialized,
		},
		{
			name: "vault not owned by escrow",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[5] = w.accounts["taker_ata_a"]
				return accounts
			},
			expected: ErrInvalidAddress,
		},
		{
			name: "maker holding account for another mint",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[4] = w.accounts["maker_ata_b"]
				return accounts
			},
			expected: ErrInvalidAddress,
		},
		{
			name:     "insufficient funds",
			data:     makeData(1234, 1000, 1001),
			expected: token.ErrorInsufficientFunds,
			calls: []string{
				"allocate escrow 113",
				"create vault idempotent=false",
				"transfer maker_ata_a->vault 1001 signed=false",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := setupProcessor(t, TOKEN_PROGRAM_ID)

			data := tc.data
			if data == nil {
				data = makeData(env.world.seed, 1000, 500)
			}

			accounts := env.world.makeAccounts()
			if tc.modify != nil {
				accounts = tc.modify(env.world, accounts)
			}

			assert.Equal(t, tc.expected, env.processor.Process(env.ctx, accounts, data))
			assert.Equal(t, tc.calls, env.ledger.calls)
		})
	}
}

func TestProcessTake(t *testing.T) {
	env := setupProcessor(t, TOKEN_PROGRAM_ID)
	env.open(t)

	w := env.world
	makerLamports := w.accounts["maker"].Lamports
	escrowLamports := w.accounts["escrow"].Lamports
	vaultLamports := w.accounts["vault"].Lamports

	require.NoError(t, env.processor.Process(env.ctx, w.takeAccounts(), []byte{TakeInstructionDiscriminator}))

	assert.Equal(t, []string{
		"create taker_ata_a idempotent=true",
		"create maker_ata_b idempotent=true",
		"transfer taker_ata_b->maker_ata_b 1000 signed=false",
		"transfer vault->taker_ata_a 500 signed=true",
		"close vault->maker signed=true",
	}, env.ledger.calls)
	assert.Contains(t, env.ctx.logs, "escrow 1234 taken: 1000 paid for 500")

	assert.EqualValues(t, 500, w.balance("taker_ata_a"))
	assert.EqualValues(t, 0, w.balance("taker_ata_b"))
	assert.EqualValues(t, 1000, w.balance("maker_ata_b"))
	assert.EqualValues(t, 500, w.balance("maker_ata_a"))

	for _, name := range []string{"escrow", "vault"} {
		account := w.accounts[name]
		assert.EqualValues(t, 0, account.Lamports, name)
		assert.Nil(t, account.Data, name)
		assert.Equal(t, SYSTEM_PROGRAM_ID, account.Owner, name)
	}
	assert.Equal(t, makerLamports+escrowLamports+vaultLamports, w.accounts["maker"].Lamports)

	// The record is gone, so it can't be consumed again.
	assert.Equal(t, ErrInvalidAccountData, env.processor.Process(env.ctx, w.takeAccounts(), []byte{TakeInstructionDiscriminator}))
	assert.Equal(t, ErrInvalidAccountData, env.processor.Process(env.ctx, w.refundAccounts(), []byte{RefundInstructionDiscriminator}))
}

func TestProcessTake_ExistingHoldingOfAnotherWallet(t *testing.T) {
	for _, tc := range []struct {
		name  string
		state func(w *world) *token.Account
	}{
		{
			name: "owned by maker",
			state: func(w *world) *token.Account {
				return &token.Account{Mint: w.accounts["mint_a"].Key, Owner: w.accounts["maker"].Key, State: token.AccountStateInitialized}
			},
		},
		{
			name: "holds another mint",
			state: func(w *world) *token.Account {
				return &token.Account{Mint: w.accounts["mint_b"].Key, Owner: w.accounts["taker"].Key, State: token.AccountStateInitialized}
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := setupProcessor(t, TOKEN_PROGRAM_ID)
			env.open(t)

			w := env.world
			takerAtaA := w.accounts["taker_ata_a"]
			takerAtaA.Owner = TOKEN_PROGRAM_ID
			takerAtaA.Lamports = 2_039_280
			takerAtaA.Data = tc.state(w).Marshal()

			err := env.processor.Process(env.ctx, w.takeAccounts(), []byte{TakeInstructionDiscriminator})
			assert.Equal(t, program.ErrIllegalOwner, err)
			assert.Equal(t, []string{"create taker_ata_a idempotent=true"}, env.ledger.calls)
			assert.EqualValues(t, 500, w.balance("vault"))
		})
	}
}

func TestProcessTake_Validation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		modify   func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo
		expected error
	}{
		{
			name: "not enough accounts",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				return accounts[:11]
			},
			expected: program.ErrNotEnoughAccountKeys,
		},
		{
			name: "taker not signer",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[0].IsSigner = false
				return accounts
			},
			expected: ErrNotSigner,
		},
		{
			name: "maker mismatch",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[1] = w.accounts["taker"]
				return accounts
			},
			expected: program.ErrInvalidAccountOwner,
		},
		{
			name: "tampered bump",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[2].Data[EscrowAccountSize-1]--
				return accounts
			},
			expected: program.ErrInvalidAccountOwner,
		},
		{
			name: "escrow not owned by program",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[2].Owner = SYSTEM_PROGRAM_ID
				return accounts
			},
			expected: ErrInvalidOwner,
		},
		{
			name: "mints swapped",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[3], accounts[4] = accounts[4], accounts[3]
				return accounts
			},
			expected: ErrInvalidAccountData,
		},
		{
			name: "vault substituted",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[5] = w.accounts["maker_ata_a"]
				return accounts
			},
			expected: ErrInvalidAddress,
		},
		{
			name: "taker paying from another account",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[7] = w.accounts["maker_ata_a"]
				return accounts
			},
			expected: ErrInvalidAddress,
		},
		{
			name: "payment redirected",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[8] = w.accounts["taker_ata_b"]
				return accounts
			},
			expected: ErrInvalidAddress,
		},
		{
			name: "insufficient payment balance",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				state := (&token.Account{Mint: w.accounts["mint_b"].Key, Owner: w.accounts["taker"].Key, Amount: 999, State: token.AccountStateInitialized}).Marshal()
				copy(accounts[7].Data, state)
				return accounts
			},
			expected: token.ErrorInsufficientFunds,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := setupProcessor(t, TOKEN_PROGRAM_ID)
			env.open(t)

			accounts := tc.modify(env.world, env.world.takeAccounts())
			assert.Equal(t, tc.expected, env.processor.Process(env.ctx, accounts, []byte{TakeInstructionDiscriminator}))
		})
	}
}

func TestProcessRefund(t *testing.T) {
	env := setupProcessor(t, TOKEN_2022_PROGRAM_ID)

	w := env.world
	makerLamports := w.accounts["maker"].Lamports

	env.open(t)
	require.NoError(t, env.processor.Process(env.ctx, w.refundAccounts(), []byte{RefundInstructionDiscriminator}))

	assert.Equal(t, []string{
		"create maker_ata_a idempotent=true",
		"transfer vault->maker_ata_a 500 signed=true",
		"close vault->maker signed=true",
	}, env.ledger.calls)
	assert.Contains(t, env.ctx.logs, "escrow 1234 refunded: 500 returned")

	assert.EqualValues(t, 1000, w.balance("maker_ata_a"))
	assert.Equal(t, makerLamports, w.accounts["maker"].Lamports)
	assert.Nil(t, w.accounts["escrow"].Data)
	assert.Nil(t, w.accounts["vault"].Data)
}

func TestProcessRefund_WithoutAssociatedTokenProgram(t *testing.T) {
	env := setupProcessor(t, TOKEN_PROGRAM_ID)
	env.open(t)

	accounts := env.world.refundAccounts()[:refundInstructionMinAccounts]
	require.NoError(t, env.processor.Process(env.ctx, accounts, []byte{RefundInstructionDiscriminator}))
	assert.EqualValues(t, 1000, env.world.balance("maker_ata_a"))
}

func TestProcessRefund_Validation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		modify   func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo
		expected error
	}{
		{
			name: "not enough accounts",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				return accounts[:6]
			},
			expected: program.ErrNotEnoughAccountKeys,
		},
		{
			name: "maker not signer",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[0].IsSigner = false
				return accounts
			},
			expected: ErrNotSigner,
		},
		{
			name: "refund by someone else",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[0] = w.accounts["taker"]
				accounts[0].IsSigner = true
				return accounts
			},
			expected: program.ErrInvalidAccountOwner,
		},
		{
			name: "wrong mint",
			modify: func(_ *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[2].Key = accounts[0].Key
				return accounts
			},
			expected: ErrInvalidAccountData,
		},
		{
			name: "deposit redirected",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[4] = w.accounts["taker_ata_b"]
				return accounts
			},
			expected: ErrInvalidAddress,
		},
		{
			name: "wrong associated token program",
			modify: func(w *world, accounts []*program.AccountInfo) []*program.AccountInfo {
				accounts[7] = w.accounts["token_program"]
				return accounts
			},
			expected: program.ErrIncorrectProgramID,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := setupProcessor(t, TOKEN_PROGRAM_ID)
			env.open(t)

			accounts := tc.modify(env.world, env.world.refundAccounts())
			assert.Equal(t, tc.expected, env.processor.Process(env.ctx, accounts, []byte{RefundInstructionDiscriminator}))
			assert.Empty(t, env.ledger.calls)
		})
	}
}

func TestProcess_ForgedEscrow(t *testing.T) {
	env := setupProcessor(t, TOKEN_PROGRAM_ID)
	env.open(t)

	w := env.world
	genuine := w.accounts["escrow"]

	// A program owned account holding a valid record at an address that
	// wasn't derived from it.
	forged := *genuine
	forged.Key = testutil.GenerateSolanaKeys(t, 1)[0]
	forged.Data = append([]byte(nil), genuine.Data...)
	w.accounts["escrow"] = &forged

	assert.Equal(t, program.ErrInvalidAccountOwner, env.processor.Process(env.ctx, w.takeAccounts(), []byte{TakeInstructionDiscriminator}))
	assert.Equal(t, program.ErrInvalidAccountOwner, env.processor.Process(env.ctx, w.refundAccounts(), []byte{RefundInstructionDiscriminator}))
	assert.Empty(t, env.ledger.calls)
}
