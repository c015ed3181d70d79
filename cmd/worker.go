package cmd

import (
	"os"
	"syncd/internal/worker"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker <src> <dst> <file|ALL> <FULL|ADDED|MODIFIED|DELETED>",
	Short: "Run one synchronization job and print its report",
	// Paths may start with '-'.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if code := worker.Run(args, os.Stdout); code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
