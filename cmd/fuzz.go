package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/crytic/gorgon/cmd/exitcodes"
	"github.com/crytic/gorgon/fuzzing"
	"github.com/crytic/gorgon/logging"
	"github.com/crytic/gorgon/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fuzzCmd represents the command provider for fuzzing
var fuzzCmd = &cobra.Command{
	Use:               "fuzz",
	Short:             "Starts an invariant fuzzing campaign",
	Long:              `Starts an invariant fuzzing campaign against a chain scenario`,
	Args:              cmdValidateFuzzArgs,
	ValidArgsFunction: cmdValidFuzzArgs,
	RunE:              cmdRunFuzz,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the fuzz command
	err := addFuzzFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the fuzz command", err)
	}

	// Add the fuzz command and its associated flags to the root command
	rootCmd.AddCommand(fuzzCmd)
}

// cmdValidFuzzArgs will return which flags and sub-commands are valid for dynamic completion for the fuzz command
func cmdValidFuzzArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string

	// Examine all the flags, and add any flags that have not been set in the current command line
	// to a list of unused flags
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// When adding a flag to a command, include the "--" prefix to indicate that it is a flag
			// and not a positional argument.
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	// Provide a list of flags that can be used in the current command (but have not been used yet)
	// for autocompletion suggestions
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateFuzzArgs makes sure that there are no positional arguments provided to the fuzz command
func cmdValidateFuzzArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("fuzz does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the fuzz command", err)
		return err
	}
	return nil
}

// cmdRunFuzz executes the CLI fuzz command: it resolves the project configuration and the requested scenario, builds
// a campaign against the scenario's sealed chain, and runs it until completion, failure, or a keyboard interrupt.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	projectConfig, err := resolveProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithFuzzFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	if err = setupGlobalLogger(projectConfig.Logging); err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// Construct the requested scenario on a fresh, sealed chain.
	scenarioName, err := cmd.Flags().GetString("scenario")
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}
	scenario, err := scenarios.New(scenarioName)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	invariant, targets, err := buildCampaignInputs(scenario, projectConfig.Fuzzing.CallAfterInvariant)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	campaign, err := fuzzing.NewCampaign(logging.GlobalLogger, projectConfig, scenario.Chain, invariant, targets)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// Stop our campaign on keyboard interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	var result *fuzzing.InvariantFuzzTestResult
	var runErr error
	if projectConfig.Fuzzing.EnableTUI {
		// Run the campaign in the background and hand the foreground to the dashboard until the campaign returns
		// or the user stops it.
		errChan := make(chan error, 1)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, runErr = campaign.Run(ctx)
			errChan <- runErr
		}()
		tuiModel := tui.NewWithErrChan(campaign, projectConfig.Fuzzing.Runs, cancel, errChan)
		if _, tuiErr := tea.NewProgram(tuiModel, tea.WithAltScreen()).Run(); tuiErr != nil {
			cmdLogger.Error("The campaign dashboard encountered an error", tuiErr)
		}
		// Whatever way the dashboard exited, wind the campaign down before reading its result.
		cancel()
		wg.Wait()
	} else {
		result, runErr = campaign.Run(ctx)
	}
	if runErr != nil {
		cmdLogger.Error("The fuzzing campaign encountered an error", runErr)
		return exitcodes.NewErrorWithExitCode(runErr, exitcodes.ExitCodeHandledError)
	}

	logging.GlobalLogger.Info(result.Log())

	// If the campaign found a failure, we'll want to return a special exit code
	if result.Failed() {
		return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeInvariantFailed)
	}
	return nil
}
