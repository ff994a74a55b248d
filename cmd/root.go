package cmd

import (
	"github.com/crytic/gorgon/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cmdLogger describes the logger commands use before a project configuration (and its log level) has been loaded.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel, true)

var rootCmd = &cobra.Command{
	Use:   "gorgon",
	Short: "A stateful invariant fuzzing harness",
	Long:  "gorgon is a stateful invariant fuzzing harness for handler-based chain scenarios",
}

func Execute() error {
	return rootCmd.Execute()
}
