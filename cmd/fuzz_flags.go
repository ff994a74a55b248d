package cmd

import (
	"fmt"

	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/crytic/gorgon/fuzzing/config"
	"github.com/spf13/cobra"
)

// addFuzzFlags adds the various flags for the fuzz command
func addFuzzFlags() error {
	// Get the default project config and throw an error if we cant
	defaultConfig, err := config.GetDefaultProjectConfig()
	if err != nil {
		return err
	}

	// Prevent alphabetical sorting of usage message
	fuzzCmd.Flags().SortFlags = false

	// Config file
	fuzzCmd.Flags().String("config", "", "path to config file")

	// Scenario
	fuzzCmd.Flags().String("scenario", DefaultScenarioName,
		fmt.Sprintf("chain scenario to fuzz (options: %v)", scenarios.Names()))
	err = fuzzCmd.RegisterFlagCompletionFunc("scenario", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return scenarios.Names(), cobra.ShellCompDirectiveNoFileComp
	})
	if err != nil {
		return err
	}

	// Number of runs
	fuzzCmd.Flags().Uint64("runs", 0,
		fmt.Sprintf("number of independent runs to execute (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Runs))

	// Run depth
	fuzzCmd.Flags().Uint64("depth", 0,
		fmt.Sprintf("number of fuzzed calls per run (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Depth))

	// Seed
	fuzzCmd.Flags().Int64("seed", 0,
		"seed for the campaign's random provider (default is derived from the current time)")

	// Fail on revert
	fuzzCmd.Flags().Bool("fail-on-revert", false,
		fmt.Sprintf("treat any reverting fuzzed call as a campaign failure (unless a config file is provided, default is %t)", defaultConfig.Fuzzing.FailOnRevert))

	// Shrink limit
	fuzzCmd.Flags().Uint64("shrink-limit", 0,
		fmt.Sprintf("number of additional sequence executions the shrinker may spend minimizing a failure (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.ShrinkLimit))

	// Senders
	fuzzCmd.Flags().StringSlice("senders", []string{},
		"account address(es) used to send fuzzed calls")

	// Reproducer directory
	fuzzCmd.Flags().String("reproducer-dir", "",
		"directory path failing sequences are persisted to as reproducer files")

	// Dictionary path
	fuzzCmd.Flags().String("dictionary", "",
		"path to a shared value dictionary database seeding and accumulating fuzz values across campaigns")

	// TUI
	fuzzCmd.Flags().Bool("tui", false,
		fmt.Sprintf("display a live terminal dashboard while the campaign runs (unless a config file is provided, default is %t)", defaultConfig.Fuzzing.EnableTUI))

	// No color
	fuzzCmd.Flags().Bool("no-color", false,
		fmt.Sprintf("disable colored console output (unless a config file is provided, default is %t)", defaultConfig.Logging.NoColor))
	return nil
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided to
// the fuzz command
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the number of runs
	if cmd.Flags().Changed("runs") {
		projectConfig.Fuzzing.Runs, err = cmd.Flags().GetUint64("runs")
		if err != nil {
			return err
		}
	}

	// Update the run depth
	if cmd.Flags().Changed("depth") {
		projectConfig.Fuzzing.Depth, err = cmd.Flags().GetUint64("depth")
		if err != nil {
			return err
		}
	}

	// Update the seed
	if cmd.Flags().Changed("seed") {
		seed, err := cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}
		projectConfig.Fuzzing.Seed = &seed
	}

	// Update fail on revert
	if cmd.Flags().Changed("fail-on-revert") {
		projectConfig.Fuzzing.FailOnRevert, err = cmd.Flags().GetBool("fail-on-revert")
		if err != nil {
			return err
		}
	}

	// Update the shrink limit
	if cmd.Flags().Changed("shrink-limit") {
		projectConfig.Fuzzing.ShrinkLimit, err = cmd.Flags().GetUint64("shrink-limit")
		if err != nil {
			return err
		}
	}

	// Update the sender addresses
	if cmd.Flags().Changed("senders") {
		projectConfig.Fuzzing.SenderAddresses, err = cmd.Flags().GetStringSlice("senders")
		if err != nil {
			return err
		}
	}

	// Update the reproducer directory
	if cmd.Flags().Changed("reproducer-dir") {
		projectConfig.Fuzzing.ReproducerDirectory, err = cmd.Flags().GetString("reproducer-dir")
		if err != nil {
			return err
		}
	}

	// Update the dictionary path
	if cmd.Flags().Changed("dictionary") {
		projectConfig.Fuzzing.DictionaryPath, err = cmd.Flags().GetString("dictionary")
		if err != nil {
			return err
		}
	}

	// Update TUI display
	if cmd.Flags().Changed("tui") {
		projectConfig.Fuzzing.EnableTUI, err = cmd.Flags().GetBool("tui")
		if err != nil {
			return err
		}
	}

	// Update color output
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}

	return nil
}
