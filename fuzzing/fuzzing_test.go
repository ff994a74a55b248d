package fuzzing

import (
	"strings"
	"testing"

	"github.com/crytic/gorgon/chain"
	"github.com/crytic/gorgon/chain/scenarios"
	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pokeABI = `[
	{"type": "function", "name": "poke", "stateMutability": "nonpayable", "inputs": [], "outputs": []},
	{"type": "function", "name": "fail", "stateMutability": "nonpayable", "inputs": [], "outputs": []}
]`

const brokenTestABI = `[
	{"type": "function", "name": "invariant_neverHolds", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "", "type": "bool"}]}
]`

const tripABI = `[
	{"type": "function", "name": "trip", "stateMutability": "nonpayable", "inputs": [], "outputs": []}
]`

const healthyTestABI = `[
	{"type": "function", "name": "invariant_alwaysHolds", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "", "type": "bool"}]}
]`

const hookedTestABI = `[
	{"type": "function", "name": "invariant_alwaysHolds", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "", "type": "bool"}]},
	{"type": "function", "name": "afterInvariant", "stateMutability": "nonpayable", "inputs": [], "outputs": []}
]`

func mustABI(t *testing.T, definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	require.NoError(t, err)
	return parsed
}

// newAlwaysBrokenScenario builds a chain whose invariant is violated on the initial state, together with a dummy
// target so campaign construction succeeds.
func newAlwaysBrokenScenario(t *testing.T) *scenarios.Scenario {
	testChain := chain.NewTestChain()
	dummyAddress, err := testChain.DeployContract(&chain.ContractDefinition{
		Name: "Dummy",
		ABI:  mustABI(t, pokeABI),
		Handlers: map[string]chain.HandlerFunc{
			"poke": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return nil, nil
			},
			"fail": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return nil, errors.New("always reverts")
			},
		},
	})
	require.NoError(t, err)
	testAddress, err := testChain.DeployContract(&chain.ContractDefinition{
		Name: "BrokenTest",
		ABI:  mustABI(t, brokenTestABI),
		Handlers: map[string]chain.HandlerFunc{
			"invariant_neverHolds": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return []any{false}, nil
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, testChain.Seal())

	return &scenarios.Scenario{
		Name:            "always-broken",
		Chain:           testChain,
		TestAddress:     testAddress,
		InvariantMethod: "invariant_neverHolds",
		TargetAddresses: []common.Address{dummyAddress},
	}
}

// newFlagRaisingScenario builds a chain whose single target raises its failure flag without reverting, while the
// invariant itself always holds.
func newFlagRaisingScenario(t *testing.T) *scenarios.Scenario {
	testChain := chain.NewTestChain()
	breakerAddress, err := testChain.DeployContract(&chain.ContractDefinition{
		Name: "Breaker",
		ABI:  mustABI(t, tripABI),
		Handlers: map[string]chain.HandlerFunc{
			"trip": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				env.Fail()
				return nil, nil
			},
		},
	})
	require.NoError(t, err)
	testAddress, err := testChain.DeployContract(&chain.ContractDefinition{
		Name: "HealthyTest",
		ABI:  mustABI(t, healthyTestABI),
		Handlers: map[string]chain.HandlerFunc{
			"invariant_alwaysHolds": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return []any{true}, nil
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, testChain.Seal())

	return &scenarios.Scenario{
		Name:            "flag-raising",
		Chain:           testChain,
		TestAddress:     testAddress,
		InvariantMethod: "invariant_alwaysHolds",
		TargetAddresses: []common.Address{breakerAddress},
	}
}

// TestFirstFailureWins verifies the failure accumulator records exactly one failure case and the first revert
// reason.
func TestFirstFailureWins(t *testing.T) {
	failures := NewInvariantFailures()
	assert.Nil(t, failures.Failure())

	first := &FailureCase{Kind: FailureKindBrokenInvariant, Reason: "first"}
	second := &FailureCase{Kind: FailureKindRevert, Reason: "second"}
	assert.True(t, failures.SetFailure(first))
	assert.False(t, failures.SetFailure(second))
	assert.Same(t, first, failures.Failure())

	failures.RecordRevert("out of funds")
	failures.RecordRevert("cap reached")
	assert.Equal(t, uint64(2), failures.Reverts())
	assert.Equal(t, "out of funds", failures.RevertReason())
}

// TestClassifierPrecedence verifies reverting calls take precedence over the invariant check and classification is
// stable for a fixed state.
func TestClassifierPrecedence(t *testing.T) {
	scenario := newAlwaysBrokenScenario(t)
	dummyDefinition := scenario.Chain.Contract(scenario.TargetAddresses[0])
	testDefinition := scenario.Chain.Contract(scenario.TestAddress)
	invariant, err := NewInvariantContract(scenario.TestAddress, testDefinition.Name, testDefinition.ABI, scenario.InvariantMethod, false)
	require.NoError(t, err)
	targets := []*contracts.Target{contracts.NewTarget(scenario.TargetAddresses[0], dummyDefinition.Name, dummyDefinition.ABI)}

	executor, err := scenario.Chain.Clone()
	require.NoError(t, err)
	sender := common.HexToAddress("0x1")
	failMethod := dummyDefinition.ABI.Methods["fail"]
	revertResult, err := executor.CallRaw(sender, scenario.TargetAddresses[0], failMethod.ID, nil)
	require.NoError(t, err)
	require.True(t, revertResult.Reverted)

	// With reverts failing the campaign, the invariant is never consulted even though it is broken.
	verdict, err := classifyCallResult(executor, invariant, targets, revertResult, true)
	require.NoError(t, err)
	assert.Equal(t, verdictReverted, verdict.verdict)
	assert.Equal(t, "always reverts", verdict.reason)

	// A tolerated revert leaves state unchanged, so the run continues without re-checking the invariant.
	verdict, err = classifyCallResult(executor, invariant, targets, revertResult, false)
	require.NoError(t, err)
	assert.Equal(t, verdictContinue, verdict.verdict)

	// A successful call is followed by the invariant check, which is broken here.
	pokeMethod := dummyDefinition.ABI.Methods["poke"]
	pokeResult, err := executor.CallRaw(sender, scenario.TargetAddresses[0], pokeMethod.ID, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		verdict, err = classifyCallResult(executor, invariant, targets, pokeResult, false)
		require.NoError(t, err)
		assert.Equal(t, verdictBroken, verdict.verdict)
		assert.Equal(t, "invariant returned false", verdict.reason)
	}
}

// TestClassifierFailedHandler verifies a successful call which leaves a target's failure flag raised is routed
// through the revert path, not treated as a healthy call or a broken invariant.
func TestClassifierFailedHandler(t *testing.T) {
	scenario := newFlagRaisingScenario(t)
	breakerDefinition := scenario.Chain.Contract(scenario.TargetAddresses[0])
	testDefinition := scenario.Chain.Contract(scenario.TestAddress)
	invariant, err := NewInvariantContract(scenario.TestAddress, testDefinition.Name, testDefinition.ABI, scenario.InvariantMethod, false)
	require.NoError(t, err)
	targets := []*contracts.Target{contracts.NewTarget(scenario.TargetAddresses[0], breakerDefinition.Name, breakerDefinition.ABI)}

	executor, err := scenario.Chain.Clone()
	require.NoError(t, err)
	tripMethod := breakerDefinition.ABI.Methods["trip"]
	tripResult, err := executor.CallRaw(common.HexToAddress("0x1"), scenario.TargetAddresses[0], tripMethod.ID, nil)
	require.NoError(t, err)
	require.False(t, tripResult.Reverted)

	// With reverts failing the campaign, the raised flag stops it just like a revert would.
	verdict, err := classifyCallResult(executor, invariant, targets, tripResult, true)
	require.NoError(t, err)
	assert.Equal(t, verdictReverted, verdict.verdict)
	assert.Contains(t, verdict.reason, "failure flag")

	// Otherwise the run continues, with the failed handler surfaced for revert accounting.
	verdict, err = classifyCallResult(executor, invariant, targets, tripResult, false)
	require.NoError(t, err)
	assert.Equal(t, verdictContinue, verdict.verdict)
	assert.Contains(t, verdict.handlerFailure, "Breaker")
}

// TestInvariantContractResolution verifies invariant carrier resolution rejects missing methods, parameterized
// invariants and missing hooks.
func TestInvariantContractResolution(t *testing.T) {
	contractABI := mustABI(t, brokenTestABI)
	address := common.HexToAddress("0x7")

	invariant, err := NewInvariantContract(address, "BrokenTest", contractABI, "invariant_neverHolds", false)
	require.NoError(t, err)
	assert.Equal(t, "invariant_neverHolds()", invariant.InvariantMethod.Sig)
	assert.Nil(t, invariant.AfterInvariantMethod)

	_, err = NewInvariantContract(address, "BrokenTest", contractABI, "invariant_missing", false)
	assert.Error(t, err)

	// The hook is required when requested but absent from the ABI.
	_, err = NewInvariantContract(address, "BrokenTest", contractABI, "invariant_neverHolds", true)
	assert.Error(t, err)
}

// TestGasReportMeans verifies per-method gas means are tracked exactly.
func TestGasReportMeans(t *testing.T) {
	report := NewGasReport()
	report.Record("Vault.withdraw(uint256)", 30000)
	report.Record("Vault.withdraw(uint256)", 20000)
	report.Record("Vault.deposit(uint256)", 26000)

	stats, ok := report.Stats("Vault.withdraw(uint256)")
	require.True(t, ok)
	assert.Equal(t, uint64(2), stats.Calls)
	assert.Equal(t, uint64(50000), stats.TotalGas)
	assert.True(t, stats.MeanGas.Equal(decimal.NewFromInt(25000)))

	_, ok = report.Stats("Vault.unknown()")
	assert.False(t, ok)
	assert.Equal(t, []string{"Vault.deposit(uint256)", "Vault.withdraw(uint256)"}, report.MethodSigs())
}

// TestCampaignMetricsCounters verifies the atomic counters accumulate.
func TestCampaignMetricsCounters(t *testing.T) {
	metrics := NewCampaignMetrics()
	metrics.AddCallsExecuted(3)
	metrics.AddCallsExecuted(2)
	metrics.AddRunsCompleted(1)
	metrics.AddRevertsObserved(4)
	metrics.AddTargetsDiscovered(2)
	metrics.AddShrinkExecutions(7)

	assert.Equal(t, uint64(5), metrics.CallsExecuted())
	assert.Equal(t, uint64(1), metrics.RunsCompleted())
	assert.Equal(t, uint64(4), metrics.RevertsObserved())
	assert.Equal(t, uint64(2), metrics.TargetsDiscovered())
	assert.Equal(t, uint64(7), metrics.ShrinkExecutions())
}
