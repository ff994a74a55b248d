package config

import (
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default project configuration.
// Returns the project configuration, or an error if one occurred.
func GetDefaultProjectConfig() (*ProjectConfig, error) {
	projectConfig := &ProjectConfig{
		Fuzzing: FuzzingConfig{
			Runs:                256,
			Depth:               100,
			FailOnRevert:        false,
			CallAfterInvariant:  false,
			ShrinkLimit:         5000,
			ShowDecodedSequence: true,
			SenderAddresses: []string{
				"0x010000",
				"0x020000",
				"0x030000",
			},
		},
		Logging: LoggingConfig{
			Level: zerolog.InfoLevel,
		},
	}

	// Verify the default config and return it.
	if err := projectConfig.Validate(); err != nil {
		return nil, err
	}
	return projectConfig, nil
}
