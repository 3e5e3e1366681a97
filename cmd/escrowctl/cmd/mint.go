package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/svm"
)

var (
	createMintFlags struct {
		payer     string
		authority string
		decimals  uint8
		token2022 bool
	}

	createMintCmd = &cobra.Command{
		Use:   "create-mint",
		Short: "Creates a token mint",
		Args:  cobra.NoArgs,
		RunE:  createMint,
	}

	mintToFlags struct {
		authority string
	}

	mintToCmd = &cobra.Command{
		Use:   "mint-to <mint> <owner> <amount>",
		Short: "Mints tokens into the owner's associated token account, creating it if needed",
		Args:  cobra.ExactArgs(3),
		RunE:  mintTo,
	}
)

func init() {
	createMintCmd.Flags().StringVar(&createMintFlags.payer, "payer", "", "key file of the fee payer")
	createMintCmd.Flags().StringVar(&createMintFlags.authority, "authority", "", "mint and freeze authority, defaults to the payer")
	createMintCmd.Flags().Uint8Var(&createMintFlags.decimals, "decimals", 6, "mint decimals")
	createMintCmd.Flags().BoolVar(&createMintFlags.token2022, "token-2022", false, "create the mint under the token-2022 program")

	mintToCmd.Flags().StringVar(&mintToFlags.authority, "authority", "", "key file of the mint authority")
}

func createMint(cmd *cobra.Command, _ []string) error {
	payer, err := loadKey(createMintFlags.payer)
	if err != nil {
		return err
	}

	authority := publicKey(payer)
	if len(createMintFlags.authority) > 0 {
		if authority, err = parseAddress(createMintFlags.authority); err != nil {
			return err
		}
	}

	_, mint, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	program := tokenProgram(createMintFlags.token2022)

	return withBank(func(bank *svm.Bank) error {
		create := system.CreateAccount(
			publicKey(payer),
			publicKey(mint),
			program,
			bank.MinimumBalance(ctx, token.MintSize),
			token.MintSize,
		)

		initialize := token.InitializeMint2(publicKey(mint), authority, authority, createMintFlags.decimals)
		initialize.Program = program

		if _, err := send(cmd.OutOrStdout(), bank, []ed25519.PrivateKey{payer, mint}, create, initialize); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "mint: %s\n", base58.Encode(publicKey(mint)))
		return nil
	})
}

func mintTo(cmd *cobra.Command, args []string) error {
	authority, err := loadKey(mintToFlags.authority)
	if err != nil {
		return err
	}

	mint, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	owner, err := parseAddress(args[1])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	return withBank(func(bank *svm.Bank) error {
		mintAccount, err := bank.GetAccount(ctx, mint)
		if err != nil {
			return err
		}

		create, destination, err := token.CreateAssociatedTokenAccountIdempotent(publicKey(authority), owner, mint, mintAccount.Owner)
		if err != nil {
			return err
		}

		issue := token.MintTo(mint, destination, publicKey(authority), amount)
		issue.Program = mintAccount.Owner

		if _, err := send(cmd.OutOrStdout(), bank, []ed25519.PrivateKey{authority}, create, issue); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "account: %s\n", base58.Encode(destination))
		return nil
	})
}
