package config

import (
	"encoding/json"
	"os"

	"github.com/Masterminds/semver"
	"github.com/crytic/gorgon/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the project-level configuration of a fuzzing campaign.
type ProjectConfig struct {
	// Fuzzing describes the campaign parameters.
	Fuzzing FuzzingConfig `json:"fuzzing"`

	// Logging describes the configuration of the project's loggers.
	Logging LoggingConfig `json:"logging"`
}

// FuzzingConfig describes the parameters of a fuzzing campaign.
type FuzzingConfig struct {
	// Runs describes how many independent runs the campaign executes, each from a fresh copy of the initial chain
	// state.
	Runs uint64 `json:"runs"`

	// Depth describes how many fuzzed calls each run executes before the run is considered complete.
	Depth uint64 `json:"depth"`

	// Seed describes the seed of the campaign's random provider. If nil, a seed is derived from the current time.
	Seed *int64 `json:"seed,omitempty"`

	// FailOnRevert indicates any reverting fuzzed call fails the campaign instead of being tolerated.
	FailOnRevert bool `json:"failOnRevert"`

	// CallAfterInvariant indicates the test contract's afterInvariant hook should be called when a failure is
	// replayed, in addition to any hook the scenario itself declares.
	CallAfterInvariant bool `json:"callAfterInvariant"`

	// ShrinkLimit describes the maximum number of additional call sequence executions the shrinker may spend
	// minimizing a failing sequence. A value of zero disables shrinking.
	ShrinkLimit uint64 `json:"shrinkLimit"`

	// ShowDecodedSequence indicates failing call sequences are logged with fully decoded arguments.
	ShowDecodedSequence bool `json:"showDecodedSequence"`

	// SenderAddresses describes the pool of addresses used as senders of fuzzed calls.
	SenderAddresses []string `json:"senderAddresses"`

	// ReproducerDirectory describes an optional directory failing sequences are persisted to. If empty, reproducers
	// are not written.
	ReproducerDirectory string `json:"reproducerDirectory"`

	// DictionaryPath describes an optional path to a shared value dictionary database seeding and accumulating
	// interesting fuzz values across campaigns. If empty, no dictionary is used.
	DictionaryPath string `json:"dictionaryPath"`

	// RequiredInterpreterVersion describes an optional semantic version constraint the interpreter must satisfy
	// before a campaign starts, e.g. ">= 1.2.0".
	RequiredInterpreterVersion string `json:"requiredInterpreterVersion"`

	// EnableTUI indicates the CLI should display a live terminal dashboard instead of streaming console logs while
	// the campaign runs.
	EnableTUI bool `json:"enableTUI"`
}

// LoggingConfig describes the configuration of the project's loggers.
type LoggingConfig struct {
	// Level describes the minimum level of logs emitted.
	Level zerolog.Level `json:"level"`

	// LogDirectory describes an optional directory to write a file log to. If empty, logs go to console only.
	LogDirectory string `json:"logDirectory"`

	// NoColor disables colored console output.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a project configuration from the provided path, layered over defaults.
// Returns the config, or an error if one occurred.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read project configuration")
	}

	projectConfig, err := GetDefaultProjectConfig()
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(b, projectConfig); err != nil {
		return nil, errors.Wrap(err, "could not parse project configuration")
	}
	return projectConfig, nil
}

// WriteToFile writes the project configuration to the provided path as indented JSON.
func (p *ProjectConfig) WriteToFile(path string) error {
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate checks the project configuration for errors which would prevent a campaign from running.
// Returns an error if one is found.
func (p *ProjectConfig) Validate() error {
	if p.Fuzzing.Runs == 0 {
		return errors.New("project configuration failed validation: runs must be greater than zero")
	}
	if p.Fuzzing.Depth == 0 {
		return errors.New("project configuration failed validation: depth must be greater than zero")
	}
	if len(p.Fuzzing.SenderAddresses) == 0 {
		return errors.New("project configuration failed validation: at least one sender address is required")
	}
	if _, err := utils.HexStringsToAddresses(p.Fuzzing.SenderAddresses); err != nil {
		return errors.Wrap(err, "project configuration failed validation: invalid sender address")
	}
	if p.Fuzzing.RequiredInterpreterVersion != "" {
		if _, err := semver.NewConstraint(p.Fuzzing.RequiredInterpreterVersion); err != nil {
			return errors.Wrap(err, "project configuration failed validation: invalid interpreter version constraint")
		}
	}
	return nil
}
