package fuzzing

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/crytic/gorgon/chain"
	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/crytic/gorgon/fuzzing/config"
	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/crytic/gorgon/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger creates a disabled logger for campaigns under test.
func testLogger() *logging.Logger {
	return logging.NewLogger(zerolog.Disabled, false)
}

// testProjectConfig creates a deterministic project configuration for campaigns under test.
func testProjectConfig(t *testing.T, runs uint64, depth uint64, seed int64) *config.ProjectConfig {
	projectConfig, err := config.GetDefaultProjectConfig()
	require.NoError(t, err)
	projectConfig.Fuzzing.Runs = runs
	projectConfig.Fuzzing.Depth = depth
	projectConfig.Fuzzing.Seed = &seed
	projectConfig.Fuzzing.ShowDecodedSequence = false
	return projectConfig
}

// campaignForScenario wires a campaign against a named scenario's chain, invariant and targets.
func campaignForScenario(t *testing.T, scenarioName string, projectConfig *config.ProjectConfig) *Campaign {
	scenario, err := scenarios.New(scenarioName)
	require.NoError(t, err)

	testDefinition := scenario.Chain.Contract(scenario.TestAddress)
	require.NotNil(t, testDefinition)
	invariant, err := NewInvariantContract(scenario.TestAddress, testDefinition.Name, testDefinition.ABI, scenario.InvariantMethod, scenario.CallAfterInvariant)
	require.NoError(t, err)

	targets := make([]*contracts.Target, 0, len(scenario.TargetAddresses))
	for _, address := range scenario.TargetAddresses {
		definition := scenario.Chain.Contract(address)
		require.NotNil(t, definition)
		targets = append(targets, contracts.NewTarget(address, definition.Name, definition.ABI))
	}

	campaign, err := NewCampaign(testLogger(), projectConfig, scenario.Chain, invariant, targets)
	require.NoError(t, err)
	return campaign
}

// TestVaultCampaignFindsAndShrinksFailure runs the vault scenario end to end: the campaign must find the broken
// balance invariant, shrink the failing sequence to a single oversized withdrawal, and replay it into decoded
// counterexamples with exactly one trailing invariant call and the afterInvariant hook.
func TestVaultCampaignFindsAndShrinksFailure(t *testing.T) {
	projectConfig := testProjectConfig(t, 50, 20, 12345)
	projectConfig.Fuzzing.ReproducerDirectory = t.TempDir()
	campaign := campaignForScenario(t, "vault", projectConfig)

	var discovered []*FailureCase
	campaign.Events.FailureDiscovered.Subscribe(func(event FailureDiscoveredEvent) {
		discovered = append(discovered, event.Failure)
	})

	result, err := campaign.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.False(t, result.Cancelled)

	failure := result.FailureCase
	assert.Equal(t, FailureKindBrokenInvariant, failure.Kind)
	assert.Equal(t, "invariant_balanceIsBacked()", failure.InvariantName)

	// The minimal reproduction is a single withdrawal exceeding the vault's balance.
	require.Len(t, failure.CallSequence, 1)
	method, err := failure.CallSequence[0].Method()
	require.NoError(t, err)
	assert.Equal(t, "withdraw", method.Name)
	amount := failure.CallSequence[0].Call.DataAbiValues.InputValues[0].(*big.Int)
	assert.True(t, amount.Sign() > 0)

	// The failure case is self-sufficient.
	assert.NotEmpty(t, failure.Targets)
	assert.Equal(t, campaign.config.Runs, failure.FuzzingConfig.Runs)

	// Replay produced one counterexample per call, one trailing invariant call and the hook.
	require.Len(t, result.Counterexamples, 3)
	assert.Equal(t, "Vault", result.Counterexamples[0].Contract)
	assert.Equal(t, "withdraw(uint256)", result.Counterexamples[0].Method)
	invariantEntries := 0
	for _, counterexample := range result.Counterexamples {
		if counterexample.Method == "invariant_balanceIsBacked()" {
			invariantEntries++
		}
	}
	assert.Equal(t, 1, invariantEntries)
	assert.Equal(t, "afterInvariant()", result.Counterexamples[2].Method)

	// The campaign stopped at the first failure.
	assert.Less(t, result.PassingRuns, uint64(50))
	require.Len(t, discovered, 1)
	assert.Equal(t, failure, discovered[0])

	// The reproducer round-trips.
	require.NotEmpty(t, result.ReproducerPath)
	_, statErr := os.Stat(result.ReproducerPath)
	require.NoError(t, statErr)
	file, messages, err := readReproducer(result.ReproducerPath)
	require.NoError(t, err)
	assert.Equal(t, string(FailureKindBrokenInvariant), file.Kind)
	require.Len(t, messages, 1)
	assert.Equal(t, failure.CallSequence[0].Call.Data, messages[0].Data)

	// Gas was attributed to the withdrawn method.
	_, ok := result.GasReport.Stats("Vault.withdraw(uint256)")
	assert.True(t, ok)
	assert.Greater(t, campaign.Metrics().CallsExecuted(), uint64(0))
	assert.Greater(t, campaign.Metrics().ShrinkExecutions(), uint64(0))
}

// TestFactoryCampaignPasses runs the factory scenario: the caps-hold invariant must survive every run while the
// campaign discovers counters deployed mid-run and tolerates their guard reverts.
func TestFactoryCampaignPasses(t *testing.T) {
	projectConfig := testProjectConfig(t, 5, 30, 777)
	campaign := campaignForScenario(t, "factory", projectConfig)

	completedRuns := 0
	campaign.Events.RunCompleted.Subscribe(func(event CampaignRunCompletedEvent) {
		completedRuns++
	})

	result, err := campaign.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Empty(t, result.Counterexamples)
	assert.Equal(t, uint64(5), result.PassingRuns)
	assert.Equal(t, 5, completedRuns)

	// Counters deployed by the factory became targets, and their guards produced tolerated reverts.
	assert.Greater(t, campaign.Metrics().TargetsDiscovered(), uint64(0))
	assert.Greater(t, result.Reverts, uint64(0))
	assert.NotEmpty(t, result.FirstRevertReason)

	// The last completed run's inputs are retained in full.
	assert.Len(t, result.LastRunInputs, 30)
}

// TestFailOnRevertStopsCampaign verifies a tolerated guard revert becomes a campaign failure when reverts are
// configured to fail, and that the shrunk sequence still ends in a reverting call.
func TestFailOnRevertStopsCampaign(t *testing.T) {
	projectConfig := testProjectConfig(t, 20, 30, 99)
	projectConfig.Fuzzing.FailOnRevert = true
	campaign := campaignForScenario(t, "factory", projectConfig)

	result, err := campaign.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, FailureKindRevert, result.FailureCase.Kind)
	assert.NotEmpty(t, result.FailureCase.Reason)
	assert.Greater(t, result.Reverts, uint64(0))

	// The final call of the minimized sequence is the reverting one.
	sequence := result.FailureCase.CallSequence
	require.NotEmpty(t, sequence)
	last := sequence[len(sequence)-1]
	require.NotNil(t, last.ExecutionResult)
	assert.True(t, last.ExecutionResult.Reverted)
}

// TestFailedHandlerFailsCampaign verifies a target which raises its failure flag without reverting fails the
// campaign when reverts are configured to fail, and only counts against the revert tally otherwise.
func TestFailedHandlerFailsCampaign(t *testing.T) {
	newCampaign := func(projectConfig *config.ProjectConfig) *Campaign {
		scenario := newFlagRaisingScenario(t)
		testDefinition := scenario.Chain.Contract(scenario.TestAddress)
		invariant, err := NewInvariantContract(scenario.TestAddress, testDefinition.Name, testDefinition.ABI, scenario.InvariantMethod, false)
		require.NoError(t, err)
		breakerDefinition := scenario.Chain.Contract(scenario.TargetAddresses[0])
		targets := []*contracts.Target{contracts.NewTarget(scenario.TargetAddresses[0], breakerDefinition.Name, breakerDefinition.ABI)}
		campaign, err := NewCampaign(testLogger(), projectConfig, scenario.Chain, invariant, targets)
		require.NoError(t, err)
		return campaign
	}

	strict := testProjectConfig(t, 5, 10, 21)
	strict.Fuzzing.FailOnRevert = true
	result, err := newCampaign(strict).Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, FailureKindRevert, result.FailureCase.Kind)
	assert.Contains(t, result.FailureCase.Reason, "failure flag")
	assert.Greater(t, result.Reverts, uint64(0))
	require.NotEmpty(t, result.FailureCase.CallSequence)
	last := result.FailureCase.CallSequence[len(result.FailureCase.CallSequence)-1]
	require.NotNil(t, last.ExecutionResult)
	assert.False(t, last.ExecutionResult.Reverted)

	// With reverts tolerated, the raised flag never becomes a failure but still counts as a revert.
	tolerant := testProjectConfig(t, 2, 5, 21)
	result, err = newCampaign(tolerant).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Greater(t, result.Reverts, uint64(0))
	assert.Contains(t, result.FirstRevertReason, "failure flag")
}

// TestAfterInvariantHookRunsEveryCleanRun verifies the afterInvariant hook is invoked once at the end of every
// completed run, without affecting the campaign's outcome.
func TestAfterInvariantHookRunsEveryCleanRun(t *testing.T) {
	hookInvocations := 0
	testChain := chain.NewTestChain()
	pingerDefinition := &chain.ContractDefinition{
		Name: "Pinger",
		ABI:  mustABI(t, tripABI),
		Handlers: map[string]chain.HandlerFunc{
			"trip": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return nil, nil
			},
		},
	}
	pingerAddress, err := testChain.DeployContract(pingerDefinition)
	require.NoError(t, err)
	testAddress, err := testChain.DeployContract(&chain.ContractDefinition{
		Name: "HookedTest",
		ABI:  mustABI(t, hookedTestABI),
		Handlers: map[string]chain.HandlerFunc{
			"invariant_alwaysHolds": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return []any{true}, nil
			},
			"afterInvariant": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				hookInvocations++
				return nil, nil
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, testChain.Seal())

	testDefinition := testChain.Contract(testAddress)
	invariant, err := NewInvariantContract(testAddress, testDefinition.Name, testDefinition.ABI, "invariant_alwaysHolds", true)
	require.NoError(t, err)
	targets := []*contracts.Target{contracts.NewTarget(pingerAddress, pingerDefinition.Name, pingerDefinition.ABI)}

	projectConfig := testProjectConfig(t, 4, 3, 9)
	campaign, err := NewCampaign(testLogger(), projectConfig, testChain, invariant, targets)
	require.NoError(t, err)

	result, err := campaign.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, uint64(4), result.PassingRuns)
	assert.Equal(t, 4, hookInvocations)
}

// TestReplayResolvesMidSequenceDeployments verifies reproducer replay registers contracts the sequence deploys, so
// calls into them decode with real names instead of unknown-contract placeholders.
func TestReplayResolvesMidSequenceDeployments(t *testing.T) {
	scenario, err := scenarios.New("factory")
	require.NoError(t, err)
	factoryAddress := scenario.TargetAddresses[0]
	factoryDefinition := scenario.Chain.Contract(factoryAddress)
	testDefinition := scenario.Chain.Contract(scenario.TestAddress)
	invariant, err := NewInvariantContract(scenario.TestAddress, testDefinition.Name, testDefinition.ABI, scenario.InvariantMethod, scenario.CallAfterInvariant)
	require.NoError(t, err)

	// Learn the deterministic address of the first counter the factory deploys.
	scratch, err := scenario.Chain.Clone()
	require.NoError(t, err)
	sender := common.HexToAddress("0x010000")
	createMethod := factoryDefinition.ABI.Methods["createCounter"]
	createResult, err := scratch.CallRaw(sender, factoryAddress, createMethod.ID, nil)
	require.NoError(t, err)
	require.False(t, createResult.Reverted)
	created := createResult.Trace.CreatedContracts()
	require.Len(t, created, 1)
	counterAddress := created[0].Address
	incrementMethod := created[0].ABI.Methods["increment"]

	// Persist a sequence whose second call targets the counter the first call deploys.
	factoryTarget := contracts.NewTarget(factoryAddress, factoryDefinition.Name, factoryDefinition.ABI)
	failure := &FailureCase{
		Kind:          FailureKindBrokenInvariant,
		InvariantName: invariant.InvariantMethod.Sig,
		Reason:        "caps exceeded",
		CallSequence: calls.CallSequence{
			calls.NewCallSequenceElement(factoryTarget, calls.NewCallMessage(sender, factoryAddress, nil, createMethod.ID)),
			calls.NewCallSequenceElement(nil, calls.NewCallMessage(sender, counterAddress, nil, incrementMethod.ID)),
		},
	}
	path, err := writeReproducer(t.TempDir(), uuid.New(), 1, failure)
	require.NoError(t, err)

	registry := contracts.NewTargetRegistry()
	registry.Add(factoryTarget)
	summary, counterexamples, err := ReplayReproducerFile(scenario.Chain, invariant, registry, path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Calls)

	// The first call resolved from the registry; the second resolved from the replay's own deployment trace.
	require.Len(t, counterexamples, 3)
	assert.Equal(t, "Factory", counterexamples[0].Contract)
	assert.Equal(t, "Counter", counterexamples[1].Contract)
	assert.Equal(t, "increment()", counterexamples[1].Method)
	assert.False(t, counterexamples[1].Reverted)
	assert.NotNil(t, registry.Get(counterAddress))
}

// TestCampaignCancellation verifies cancellation is cooperative and returns the work done so far without error.
func TestCampaignCancellation(t *testing.T) {
	projectConfig := testProjectConfig(t, 1000, 50, 5)
	campaign := campaignForScenario(t, "factory", projectConfig)

	ctx, cancel := context.WithCancel(context.Background())
	runsBeforeCancel := 3
	campaign.Events.RunCompleted.Subscribe(func(event CampaignRunCompletedEvent) {
		if int(event.Run)+1 >= runsBeforeCancel {
			cancel()
		}
	})

	result, err := campaign.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.False(t, result.Failed())
	assert.Equal(t, uint64(runsBeforeCancel), result.PassingRuns)
}

// TestCallOverrideLeadsRuns verifies an override source supplies the leading calls of every run in place of the
// generator.
func TestCallOverrideLeadsRuns(t *testing.T) {
	projectConfig := testProjectConfig(t, 10, 5, 42)
	campaign := campaignForScenario(t, "vault", projectConfig)

	// Craft a withdrawal which immediately breaks the balance invariant.
	vaultTarget := campaign.Registry().Targets()[0]
	withdrawMethod := vaultTarget.ABI.Methods["withdraw"]
	overrideCall, err := calls.NewCallMessageWithAbiValues(
		common.HexToAddress("0x10000"),
		vaultTarget.Address,
		nil,
		&withdrawMethod,
		[]any{big.NewInt(5)},
	)
	require.NoError(t, err)
	override := calls.NewInnerSequence()
	override.Append(overrideCall)
	campaign.SetCallOverride(override)

	result, err := campaign.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, uint64(0), result.FailureCase.Run)
	assert.Equal(t, uint64(0), result.FailureCase.Depth)
	require.Len(t, result.FailureCase.CallSequence, 1)
	method, err := result.FailureCase.CallSequence[0].Method()
	require.NoError(t, err)
	assert.Equal(t, "withdraw", method.Name)
}

// TestInitialInvariantViolation verifies a campaign whose invariant is already broken on the initial state fails
// before any fuzzed call, with an empty sequence and a single invariant counterexample.
func TestInitialInvariantViolation(t *testing.T) {
	scenario := newAlwaysBrokenScenario(t)
	projectConfig := testProjectConfig(t, 10, 5, 1)

	testDefinition := scenario.Chain.Contract(scenario.TestAddress)
	invariant, err := NewInvariantContract(scenario.TestAddress, testDefinition.Name, testDefinition.ABI, scenario.InvariantMethod, false)
	require.NoError(t, err)
	targetDefinition := scenario.Chain.Contract(scenario.TargetAddresses[0])
	target := contracts.NewTarget(scenario.TargetAddresses[0], targetDefinition.Name, targetDefinition.ABI)

	campaign, err := NewCampaign(testLogger(), projectConfig, scenario.Chain, invariant, []*contracts.Target{target})
	require.NoError(t, err)

	result, err := campaign.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Empty(t, result.FailureCase.CallSequence)
	assert.Contains(t, result.FailureCase.Reason, "initial state")
	assert.Zero(t, result.PassingRuns)
	require.Len(t, result.Counterexamples, 1)
	assert.Equal(t, "invariant_neverHolds()", result.Counterexamples[0].Method)
}

// TestInterpreterVersionConstraint verifies campaigns refuse interpreters outside the configured version range.
func TestInterpreterVersionConstraint(t *testing.T) {
	projectConfig := testProjectConfig(t, 10, 5, 1)
	projectConfig.Fuzzing.RequiredInterpreterVersion = ">= 99.0.0"

	scenario, err := scenarios.New("vault")
	require.NoError(t, err)
	testDefinition := scenario.Chain.Contract(scenario.TestAddress)
	invariant, err := NewInvariantContract(scenario.TestAddress, testDefinition.Name, testDefinition.ABI, scenario.InvariantMethod, true)
	require.NoError(t, err)
	vaultDefinition := scenario.Chain.Contract(scenario.TargetAddresses[0])
	targets := []*contracts.Target{contracts.NewTarget(scenario.TargetAddresses[0], vaultDefinition.Name, vaultDefinition.ABI)}

	_, err = NewCampaign(testLogger(), projectConfig, scenario.Chain, invariant, targets)
	require.Error(t, err)

	projectConfig.Fuzzing.RequiredInterpreterVersion = ">= 1.0.0"
	_, err = NewCampaign(testLogger(), projectConfig, scenario.Chain, invariant, targets)
	assert.NoError(t, err)
}

// TestSharedDictionaryAcrossCampaigns verifies harvested values persist through the configured dictionary database.
func TestSharedDictionaryAcrossCampaigns(t *testing.T) {
	dictionaryPath := t.TempDir() + "/dictionary.db"

	projectConfig := testProjectConfig(t, 2, 10, 7)
	projectConfig.Fuzzing.DictionaryPath = dictionaryPath
	campaign := campaignForScenario(t, "factory", projectConfig)
	result, err := campaign.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Failed())

	// A second campaign can load the dictionary the first one saved.
	second := campaignForScenario(t, "factory", projectConfig)
	assert.NotNil(t, second)
}
