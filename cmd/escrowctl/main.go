package main

import (
	"os"

	"github.com/code-payments/code-escrow/cmd/escrowctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
