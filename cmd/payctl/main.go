// Command payctl opera o gateway simulado direto sobre o ledger SQLite:
// cria pagamentos, consulta status, estorna e lista os planos.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "payctl",
		Short:         "payctl - pagamentos simulados do assistente de planos",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(payCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(refundCmd(opts))
	rootCmd.AddCommand(plansCmd(opts))

	return rootCmd
}
