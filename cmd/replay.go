package cmd

import (
	"fmt"

	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/crytic/gorgon/cmd/exitcodes"
	"github.com/crytic/gorgon/fuzzing"
	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/crytic/gorgon/logging"
	"github.com/crytic/gorgon/logging/colors"
	"github.com/spf13/cobra"
)

// replayCmd represents the command provider for replaying persisted failures
var replayCmd = &cobra.Command{
	Use:               "replay",
	Short:             "Replays a persisted failing sequence",
	Long:              `Replays a reproducer file against a fresh copy of its chain scenario and prints the decoded counterexamples`,
	Args:              cmdValidateReplayArgs,
	ValidArgsFunction: cmdValidFuzzArgs,
	RunE:              cmdRunReplay,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the replay command
	err := addReplayFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the replay command", err)
	}

	// Add the replay command and its associated flags to the root command
	rootCmd.AddCommand(replayCmd)
}

// cmdValidateReplayArgs makes sure that there are no positional arguments provided to the replay command
func cmdValidateReplayArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("replay does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the replay command", err)
		return err
	}
	return nil
}

// cmdRunReplay executes the CLI replay command: it rebuilds the scenario the reproducer was recorded against,
// re-executes the persisted sequence on a fully-traced clone, and prints one decoded counterexample per call.
func cmdRunReplay(cmd *cobra.Command, args []string) error {
	projectConfig, err := resolveProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	if err = setupGlobalLogger(projectConfig.Logging); err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	filePath, err := cmd.Flags().GetString("file")
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	// Construct the scenario the sequence was recorded against.
	scenarioName, err := cmd.Flags().GetString("scenario")
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	scenario, err := scenarios.New(scenarioName)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	invariant, targets, err := buildCampaignInputs(scenario, projectConfig.Fuzzing.CallAfterInvariant)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	registry := contracts.NewTargetRegistry()
	for _, target := range targets {
		registry.Add(target)
	}

	summary, counterexamples, err := fuzzing.ReplayReproducerFile(scenario.Chain, invariant, registry, filePath)
	if err != nil {
		cmdLogger.Error("Failed to replay the reproducer file", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	logging.GlobalLogger.Info(
		"replaying campaign ", colors.Bold, summary.CampaignID, colors.Reset,
		" (seed ", summary.Seed, "): ", summary.Reason,
	)
	for _, counterexample := range counterexamples {
		logging.GlobalLogger.Info(counterexample.String())
	}

	// A reproducer file records a failure, so a successful replay still exits with the failure code.
	return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeInvariantFailed)
}
