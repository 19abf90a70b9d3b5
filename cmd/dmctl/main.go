package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dmctl",
		Short:        "Offline tools for dungeon master requests",
		SilenceUsage: true,
	}
	root.AddCommand(validateCmd())
	root.AddCommand(compileCmd())
	root.AddCommand(normalizeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
