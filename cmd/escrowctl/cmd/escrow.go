package cmd

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/memo"
	"github.com/code-payments/code-escrow/pkg/svm"
)

var (
	makeFlags struct {
		maker   string
		mintA   string
		mintB   string
		seed    uint64
		receive uint64
		amount  uint64
		memo    string
	}

	makeCmd = &cobra.Command{
		Use:   "make",
		Short: "Deposits mint A into a new escrow in exchange for an amount of mint B",
		Args:  cobra.NoArgs,
		RunE:  makeEscrow,
	}

	takeFlags struct {
		taker string
		memo  string
	}

	takeCmd = &cobra.Command{
		Use:   "take <escrow>",
		Short: "Pays the requested amount of mint B and receives the escrowed deposit",
		Args:  cobra.ExactArgs(1),
		RunE:  takeEscrow,
	}

	refundFlags struct {
		maker string
		memo  string
	}

	refundCmd = &cobra.Command{
		Use:   "refund <escrow>",
		Short: "Cancels an escrow and returns the deposit to its maker",
		Args:  cobra.ExactArgs(1),
		RunE:  refundEscrow,
	}
)

func init() {
	makeCmd.Flags().StringVar(&makeFlags.maker, "maker", "", "key file of the maker")
	makeCmd.Flags().StringVar(&makeFlags.mintA, "mint-a", "", "mint of the deposit")
	makeCmd.Flags().StringVar(&makeFlags.mintB, "mint-b", "", "mint requested in exchange")
	makeCmd.Flags().Uint64Var(&makeFlags.seed, "seed", 0, "seed distinguishing the maker's escrows")
	makeCmd.Flags().Uint64Var(&makeFlags.receive, "receive", 0, "amount of mint B requested")
	makeCmd.Flags().Uint64Var(&makeFlags.amount, "amount", 0, "amount of mint A deposited")

	makeCmd.Flags().StringVar(&makeFlags.memo, "memo", "", "memo signed by the maker")

	takeCmd.Flags().StringVar(&takeFlags.taker, "taker", "", "key file of the taker")
	takeCmd.Flags().StringVar(&takeFlags.memo, "memo", "", "memo signed by the taker")

	refundCmd.Flags().StringVar(&refundFlags.maker, "maker", "", "key file of the maker")
	refundCmd.Flags().StringVar(&refundFlags.memo, "memo", "", "memo signed by the maker")
}

func makeEscrow(cmd *cobra.Command, _ []string) error {
	maker, err := loadKey(makeFlags.maker)
	if err != nil {
		return err
	}
	mintA, err := parseAddress(makeFlags.mintA)
	if err != nil {
		return err
	}
	mintB, err := parseAddress(makeFlags.mintB)
	if err != nil {
		return err
	}

	return withBank(func(bank *svm.Bank) error {
		program, err := mintProgram(bank, mintA)
		if err != nil {
			return err
		}

		accounts, err := escrow.GetMakeInstructionAccounts(publicKey(maker), mintA, mintB, makeFlags.seed, program)
		if err != nil {
			return err
		}

		ix := escrow.NewMakeInstruction(accounts, &escrow.MakeInstructionArgs{
			Seed:    makeFlags.seed,
			Receive: makeFlags.receive,
			Amount:  makeFlags.amount,
		})
		if _, err := send(cmd.OutOrStdout(), bank, []ed25519.PrivateKey{maker}, withMemo(makeFlags.memo, maker, ix)...); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "escrow: %s\n", base58.Encode(accounts.Escrow))
		fmt.Fprintf(cmd.OutOrStdout(), "vault: %s\n", base58.Encode(accounts.Vault))
		return nil
	})
}

func takeEscrow(cmd *cobra.Command, args []string) error {
	taker, err := loadKey(takeFlags.taker)
	if err != nil {
		return err
	}
	address, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	return withBank(func(bank *svm.Bank) error {
		record, program, err := loadRecord(bank, address)
		if err != nil {
			return err
		}

		accounts, err := escrow.GetTakeInstructionAccounts(publicKey(taker), address, record, program)
		if err != nil {
			return err
		}

		ixs := withMemo(takeFlags.memo, taker, escrow.NewTakeInstruction(accounts))
		_, err = send(cmd.OutOrStdout(), bank, []ed25519.PrivateKey{taker}, ixs...)
		return err
	})
}

func refundEscrow(cmd *cobra.Command, args []string) error {
	maker, err := loadKey(refundFlags.maker)
	if err != nil {
		return err
	}
	address, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	return withBank(func(bank *svm.Bank) error {
		record, program, err := loadRecord(bank, address)
		if err != nil {
			return err
		}

		accounts, err := escrow.GetRefundInstructionAccounts(address, record, program)
		if err != nil {
			return err
		}
		// Refunds are signed by whoever holds the key; the program rejects
		// anyone but the recorded maker.
		accounts.Maker = publicKey(maker)

		ixs := withMemo(refundFlags.memo, maker, escrow.NewRefundInstruction(accounts))
		_, err = send(cmd.OutOrStdout(), bank, []ed25519.PrivateKey{maker}, ixs...)
		return err
	})
}

// withMemo appends a memo signed by signer when text is set.
func withMemo(text string, signer ed25519.PrivateKey, instructions ...solana.Instruction) []solana.Instruction {
	if text == "" {
		return instructions
	}
	return append(instructions, memo.Instruction(text, publicKey(signer)))
}

// mintProgram returns the token program that owns mint.
func mintProgram(bank *svm.Bank, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	account, err := bank.GetAccount(ctx, mint)
	if err == svm.ErrAccountNotFound {
		return nil, errors.Errorf("mint %s not found", base58.Encode(mint))
	} else if err != nil {
		return nil, err
	}
	return account.Owner, nil
}

// loadRecord reads the escrow at address and the token program of its mints.
func loadRecord(bank *svm.Bank, address ed25519.PublicKey) (*escrow.EscrowAccount, ed25519.PublicKey, error) {
	account, err := bank.GetAccount(ctx, address)
	if err == svm.ErrAccountNotFound {
		return nil, nil, errors.Errorf("escrow %s not found", base58.Encode(address))
	} else if err != nil {
		return nil, nil, err
	}

	var record escrow.EscrowAccount
	if err := record.Unmarshal(account.Data); err != nil {
		return nil, nil, errors.Errorf("%s is not an escrow", base58.Encode(address))
	}

	program, err := mintProgram(bank, record.MintA)
	if err != nil {
		return nil, nil, err
	}
	return &record, program, nil
}
