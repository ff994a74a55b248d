package config

import (
	"path/filepath"
	"testing"

	"github.com/crytic/gorgon/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfigValidates verifies the default configuration passes its own validation.
func TestDefaultConfigValidates(t *testing.T) {
	projectConfig, err := GetDefaultProjectConfig()
	require.NoError(t, err)
	assert.NoError(t, projectConfig.Validate())
}

// TestDefaultSenderAddressesParse verifies every default sender address is strict even-length hex and the parsed
// pool holds distinct, non-zero addresses.
func TestDefaultSenderAddressesParse(t *testing.T) {
	projectConfig, err := GetDefaultProjectConfig()
	require.NoError(t, err)

	addresses, err := utils.HexStringsToAddresses(projectConfig.Fuzzing.SenderAddresses)
	require.NoError(t, err)
	require.Len(t, addresses, len(projectConfig.Fuzzing.SenderAddresses))

	seen := make(map[common.Address]struct{})
	for _, address := range addresses {
		assert.NotEqual(t, common.Address{}, address)
		_, duplicate := seen[address]
		assert.False(t, duplicate)
		seen[address] = struct{}{}
	}
}

// TestValidationFailures verifies configurations with out-of-range values are rejected.
func TestValidationFailures(t *testing.T) {
	projectConfig, err := GetDefaultProjectConfig()
	require.NoError(t, err)
	projectConfig.Fuzzing.Runs = 0
	assert.Error(t, projectConfig.Validate())

	projectConfig, err = GetDefaultProjectConfig()
	require.NoError(t, err)
	projectConfig.Fuzzing.Depth = 0
	assert.Error(t, projectConfig.Validate())

	projectConfig, err = GetDefaultProjectConfig()
	require.NoError(t, err)
	projectConfig.Fuzzing.SenderAddresses = nil
	assert.Error(t, projectConfig.Validate())

	projectConfig, err = GetDefaultProjectConfig()
	require.NoError(t, err)
	projectConfig.Fuzzing.SenderAddresses = []string{"not-an-address"}
	assert.Error(t, projectConfig.Validate())

	projectConfig, err = GetDefaultProjectConfig()
	require.NoError(t, err)
	projectConfig.Fuzzing.RequiredInterpreterVersion = "not a constraint ~!"
	assert.Error(t, projectConfig.Validate())
}

// TestConfigRoundTrip verifies written configurations read back layered over defaults.
func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gorgon.json")

	projectConfig, err := GetDefaultProjectConfig()
	require.NoError(t, err)
	seed := int64(42)
	projectConfig.Fuzzing.Seed = &seed
	projectConfig.Fuzzing.Runs = 50
	projectConfig.Fuzzing.FailOnRevert = true
	require.NoError(t, projectConfig.WriteToFile(path))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), read.Fuzzing.Runs)
	assert.True(t, read.Fuzzing.FailOnRevert)
	require.NotNil(t, read.Fuzzing.Seed)
	assert.Equal(t, int64(42), *read.Fuzzing.Seed)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, projectConfig.Fuzzing.Depth, read.Fuzzing.Depth)
}
