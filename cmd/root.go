package cmd

import (
	"os"
	"syncd/internal/config"
	"syncd/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:          "syncd",
	Short:        "Real-time local directory synchronizer",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		// Workers report over stdout and must not depend on settings.
		if cmd.Name() == "worker" {
			return nil
		}

		var err error
		cfg, err = config.Load(cmd.Flags())
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
}
