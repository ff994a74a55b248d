package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "gorgon.json"

// DefaultScenarioName describes the scenario fuzzed when --scenario is not provided.
const DefaultScenarioName = "vault"
