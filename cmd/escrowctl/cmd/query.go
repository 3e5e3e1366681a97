package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/svm"
)

var (
	escrowsFlags struct {
		maker string
	}

	escrowsCmd = &cobra.Command{
		Use:   "escrows",
		Short: "Lists open escrows",
		Args:  cobra.NoArgs,
		RunE:  listEscrows,
	}

	balanceFlags struct {
		mint string
	}

	balanceCmd = &cobra.Command{
		Use:   "balance <address>",
		Short: "Prints the lamports of an account, or its token balance for a mint",
		Args:  cobra.ExactArgs(1),
		RunE:  printBalance,
	}

	commitCmd = &cobra.Command{
		Use:   "commit <signature>",
		Short: "Prints the accounts and instructions of a processed transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  printCommit,
	}
)

func init() {
	escrowsCmd.Flags().StringVar(&escrowsFlags.maker, "maker", "", "only list escrows opened by this maker")
	balanceCmd.Flags().StringVar(&balanceFlags.mint, "mint", "", "print the balance of the associated token account for this mint")
}

func listEscrows(cmd *cobra.Command, _ []string) error {
	var maker []byte
	if len(escrowsFlags.maker) > 0 {
		var err error
		if maker, err = parseAddress(escrowsFlags.maker); err != nil {
			return err
		}
	}

	return withBank(func(bank *svm.Bank) error {
		accounts, err := bank.GetProgramAccounts(ctx, escrow.PROGRAM_ID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ESCROW\tSEED\tMAKER\tMINT A\tMINT B\tRECEIVE\tDEPOSIT")

		for _, account := range accounts {
			var record escrow.EscrowAccount
			if err := record.Unmarshal(account.Data); err != nil {
				continue
			}
			if maker != nil && !bytes.Equal(maker, record.Maker) {
				continue
			}

			deposit := "-"
			program, err := mintProgram(bank, record.MintA)
			if err != nil {
				return err
			}
			vault, err := escrow.GetVaultAddress(&escrow.GetVaultAddressArgs{Escrow: account.Address, Mint: record.MintA, TokenProgram: program})
			if err != nil {
				return err
			}
			if vaultAccount, err := bank.GetAccount(ctx, vault); err == nil {
				var state token.Account
				if state.Unmarshal(vaultAccount.Data) {
					deposit = fmt.Sprintf("%d", state.Amount)
				}
			}

			fmt.Fprintf(
				w,
				"%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
				base58.Encode(account.Address),
				record.Seed,
				base58.Encode(record.Maker),
				base58.Encode(record.MintA),
				base58.Encode(record.MintB),
				record.Receive,
				deposit,
			)
		}

		return w.Flush()
	})
}

func printBalance(cmd *cobra.Command, args []string) error {
	address, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	return withBank(func(bank *svm.Bank) error {
		if len(balanceFlags.mint) == 0 {
			account, err := bank.GetAccount(ctx, address)
			if err == svm.ErrAccountNotFound {
				fmt.Fprintln(cmd.OutOrStdout(), 0)
				return nil
			} else if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), account.Lamports)
			return nil
		}

		mint, err := parseAddress(balanceFlags.mint)
		if err != nil {
			return err
		}
		program, err := mintProgram(bank, mint)
		if err != nil {
			return err
		}

		ata, err := token.GetAssociatedAccountForProgram(address, mint, program)
		if err != nil {
			return err
		}

		account, err := bank.GetAccount(ctx, ata)
		if err == svm.ErrAccountNotFound {
			fmt.Fprintln(cmd.OutOrStdout(), 0)
			return nil
		} else if err != nil {
			return err
		}

		var state token.Account
		if !state.Unmarshal(account.Data) {
			return errors.Errorf("%s is not a token account", base58.Encode(ata))
		}

		fmt.Fprintln(cmd.OutOrStdout(), state.Amount)
		return nil
	})
}

func printCommit(cmd *cobra.Command, args []string) error {
	return withBank(func(bank *svm.Bank) error {
		commit, err := bank.GetCommit(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "id: %s\n", commit.Id)
		fmt.Fprintf(cmd.OutOrStdout(), "committed: %s\n", commit.CreatedAt)
		fmt.Fprintf(cmd.OutOrStdout(), "accounts: %s\n", strings.Join(commit.Accounts, ", "))

		if len(commit.Message) == 0 {
			return nil
		}

		var m solana.Message
		if err := m.Unmarshal(commit.Message); err != nil {
			return errors.Wrap(err, "error decoding journaled message")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "instructions:")
		for i, line := range describeInstructions(m) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d: %s\n", i, line)
		}
		return nil
	})
}
