package svm_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/memo"
	"github.com/code-payments/code-escrow/pkg/solana/program"
	"github.com/code-payments/code-escrow/pkg/svm/svmtest"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

func TestMemo(t *testing.T) {
	bank := svmtest.NewBank(t)
	payer := svmtest.NewFundedKey(t, bank)

	result := svmtest.MustSend(t, bank, []ed25519.PrivateKey{payer}, memo.Instruction("escrow 1", svmtest.Public(payer)))
	assert.Contains(t, result.Logs, `Program log: Memo (len 8): "escrow 1"`)
}

func TestMemo_Rejected(t *testing.T) {
	ctx := context.Background()
	bank := svmtest.NewBank(t)
	payer := svmtest.NewFundedKey(t, bank)
	other := testutil.GenerateSolanaKeys(t, 1)[0]

	unsigned := memo.Instruction("hello")
	unsigned.Accounts = append(unsigned.Accounts, solana.NewReadonlyAccountMeta(other, false))
	_, err := svmtest.Send(ctx, bank, []ed25519.PrivateKey{payer}, unsigned)
	testutil.AssertInstructionError(t, err, 0, program.ErrMissingRequiredSignature)

	_, err = svmtest.Send(ctx, bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(memo.ProgramKey, []byte{0xff, 0xfe}))
	testutil.AssertInstructionError(t, err, 0, program.ErrInvalidInstructionData)
}
