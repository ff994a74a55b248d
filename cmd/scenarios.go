package cmd

import (
	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/crytic/gorgon/logging/colors"
	"github.com/spf13/cobra"
)

// scenariosCmd represents the command provider for listing chain scenarios
var scenariosCmd = &cobra.Command{
	Use:           "scenarios",
	Short:         "Lists the available chain scenarios",
	Long:          `Lists the chain scenarios a fuzzing campaign can be run against`,
	Args:          cobra.NoArgs,
	RunE:          cmdRunScenarios,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
}

// cmdRunScenarios executes the scenarios CLI command, constructing each registered scenario to obtain its
// description and target count.
func cmdRunScenarios(cmd *cobra.Command, args []string) error {
	for _, name := range scenarios.Names() {
		scenario, err := scenarios.New(name)
		if err != nil {
			cmdLogger.Error("Failed to construct a scenario", err)
			return err
		}
		cmdLogger.Info(colors.Bold, scenario.Name, colors.Reset, ": ", scenario.Description)
	}
	return nil
}
