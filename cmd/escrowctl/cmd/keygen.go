package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <key-file>",
	Short: "Generates a keypair and writes it to key-file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		if err := saveKey(args[0], key); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), base58.Encode(publicKey(key)))
		return nil
	},
}
