package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/code-payments/code-escrow/pkg/svm"
)

var airdropCmd = &cobra.Command{
	Use:   "airdrop <address> <lamports>",
	Short: "Credits lamports to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		lamports, err := parseAmount(args[1])
		if err != nil {
			return err
		}

		return withBank(func(bank *svm.Bank) error {
			signature, err := bank.Airdrop(ctx, address, lamports)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", signature)
			return nil
		})
	},
}
