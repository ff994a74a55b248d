package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/crytic/gorgon/fuzzing"
	"github.com/crytic/gorgon/fuzzing/config"
	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/crytic/gorgon/logging"
	"github.com/crytic/gorgon/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// resolveProjectConfig obtains the project configuration for a command and navigates through the following
// possibilities:
// #1: We will search for either a custom config file (via --config) or the default (gorgon.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If gorgon.json can't be found, use the default project configuration.
func resolveProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	var projectConfig *config.ProjectConfig

	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If --config was not used, look for `gorgon.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err = config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, err
		}
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed && existenceError != nil {
		return nil, existenceError
	}

	// Possibility #3: --config flag was not used and gorgon.json was not found, so use the default project config
	if !configFlagUsed && existenceError != nil {
		cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration instead", configPath))
		projectConfig, err = config.GetDefaultProjectConfig()
		if err != nil {
			return nil, err
		}
	}

	return projectConfig, nil
}

// setupGlobalLogger instantiates the global logger from the project's logging configuration, attaching a file writer
// when a log directory is configured.
func setupGlobalLogger(loggingConfig config.LoggingConfig) error {
	if loggingConfig.NoColor {
		colors.DisableColor()
	}
	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level, true)

	if loggingConfig.LogDirectory != "" {
		if err := os.MkdirAll(loggingConfig.LogDirectory, 0755); err != nil {
			return errors.Wrap(err, "could not create log directory")
		}
		file, err := os.OpenFile(filepath.Join(loggingConfig.LogDirectory, "gorgon.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, "could not open log file")
		}
		logging.GlobalLogger.AddWriter(file, logging.UNSTRUCTURED)
	}
	return nil
}

// buildCampaignInputs resolves a scenario into the invariant carrier and initial targets a campaign or replay needs.
// The afterInvariant hook is resolved when either the scenario or the configuration asks for it.
func buildCampaignInputs(scenario *scenarios.Scenario, callAfterInvariant bool) (*fuzzing.InvariantContract, []*contracts.Target, error) {
	testDefinition := scenario.Chain.Contract(scenario.TestAddress)
	if testDefinition == nil {
		return nil, nil, errors.Errorf("scenario '%s' declares no contract at its test address", scenario.Name)
	}
	invariant, err := fuzzing.NewInvariantContract(
		scenario.TestAddress,
		testDefinition.Name,
		testDefinition.ABI,
		scenario.InvariantMethod,
		scenario.CallAfterInvariant || callAfterInvariant,
	)
	if err != nil {
		return nil, nil, err
	}

	targets := make([]*contracts.Target, 0, len(scenario.TargetAddresses))
	for _, address := range scenario.TargetAddresses {
		definition := scenario.Chain.Contract(address)
		if definition == nil {
			return nil, nil, errors.Errorf("scenario '%s' targets address %s which holds no contract", scenario.Name, address.String())
		}
		targets = append(targets, contracts.NewTarget(address, definition.Name, definition.ABI))
	}
	return invariant, targets, nil
}
