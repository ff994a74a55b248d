package cmd

import (
	"fmt"

	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/spf13/cobra"
)

// addReplayFlags adds the various flags for the replay command
func addReplayFlags() error {
	// Prevent alphabetical sorting of usage message
	replayCmd.Flags().SortFlags = false

	// Config file
	replayCmd.Flags().String("config", "", "path to config file")

	// Reproducer file
	replayCmd.Flags().String("file", "", "path to the reproducer file to replay")
	if err := replayCmd.MarkFlagRequired("file"); err != nil {
		return err
	}

	// Scenario
	replayCmd.Flags().String("scenario", DefaultScenarioName,
		fmt.Sprintf("chain scenario the sequence was recorded against (options: %v)", scenarios.Names()))
	return replayCmd.RegisterFlagCompletionFunc("scenario", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return scenarios.Names(), cobra.ShellCompDirectiveNoFileComp
	})
}
