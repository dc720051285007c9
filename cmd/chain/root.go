package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "chain",
		Short: "Option chain snapshot tool",
		Long: `Fetches the option chain of one ticker, keeps the nearest unexpired
contracts, merges them with live quotes and prints the contracts that
carry open interest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newFetchCommand())
	return root
}
