package chain

import (
	"math/big"
	"strings"
	"testing"

	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeABI = `[
	{"type": "function", "name": "store", "stateMutability": "nonpayable", "inputs": [{"name": "value", "type": "uint256"}], "outputs": []},
	{"type": "function", "name": "load", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
	{"type": "function", "name": "storeThenRevert", "stateMutability": "nonpayable", "inputs": [{"name": "value", "type": "uint256"}], "outputs": []},
	{"type": "function", "name": "boom", "stateMutability": "nonpayable", "inputs": [], "outputs": []},
	{"type": "function", "name": "failNow", "stateMutability": "nonpayable", "inputs": [], "outputs": []},
	{"type": "function", "name": "spawn", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "", "type": "address"}]}
]`

// newStoreContract creates a contract exercising the interpreter's main behaviors: slot writes, reverts, panics,
// failure flags and nested deployments.
func newStoreContract() *ContractDefinition {
	parsedABI, err := abi.JSON(strings.NewReader(storeABI))
	if err != nil {
		panic(err)
	}
	return &ContractDefinition{
		Name: "Store",
		ABI:  parsedABI,
		Handlers: map[string]HandlerFunc{
			"store": func(env *CallEnv, inputs []any) ([]any, error) {
				env.MarkLine(1)
				env.SetSlot("value", uint256.MustFromBig(inputs[0].(*big.Int)))
				env.EmitLog("Stored", inputs[0])
				return nil, nil
			},
			"load": func(env *CallEnv, inputs []any) ([]any, error) {
				return []any{env.GetSlot("value").ToBig()}, nil
			},
			"storeThenRevert": func(env *CallEnv, inputs []any) ([]any, error) {
				env.SetSlot("value", uint256.MustFromBig(inputs[0].(*big.Int)))
				return nil, errors.New("store rejected")
			},
			"boom": func(env *CallEnv, inputs []any) ([]any, error) {
				panic("handler bug")
			},
			"failNow": func(env *CallEnv, inputs []any) ([]any, error) {
				env.Fail()
				return nil, nil
			},
			"spawn": func(env *CallEnv, inputs []any) ([]any, error) {
				address, err := env.Deploy(newStoreContract())
				if err != nil {
					return nil, err
				}
				return []any{address}, nil
			},
		},
	}
}

// deploySealedStore deploys the store contract onto a fresh sealed chain.
func deploySealedStore(t *testing.T) (*TestChain, common.Address, *ContractDefinition) {
	testChain := NewTestChain()
	definition := newStoreContract()
	address, err := testChain.DeployContract(definition)
	require.NoError(t, err)
	require.NoError(t, testChain.Seal())
	return testChain, address, definition
}

// packCall encodes calldata for a method of the provided contract definition.
func packCall(t *testing.T, definition *ContractDefinition, methodName string, args ...any) []byte {
	method, ok := definition.ABI.Methods[methodName]
	require.True(t, ok)
	packed, err := method.Inputs.Pack(args...)
	require.NoError(t, err)
	return append(method.ID, packed...)
}

// sender is an arbitrary externally-owned address used across tests.
var sender = common.HexToAddress("0x1111111111111111111111111111111111111111")

// TestCallCommitsState verifies a successful call commits its slot writes and reports them in the changeset.
func TestCallCommitsState(t *testing.T) {
	testChain, address, definition := deploySealedStore(t)

	result, err := testChain.CallRaw(sender, address, packCall(t, definition, "store", big.NewInt(42)), nil)
	require.NoError(t, err)
	assert.False(t, result.Reverted)
	require.Contains(t, result.StateChangeset, address)
	assert.Equal(t, uint64(42), result.StateChangeset[address].Slots["value"].Uint64())
	assert.Len(t, result.Logs, 1)
	assert.Greater(t, result.GasUsed, uint64(0))

	// Read the value back through the ABI.
	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "load"), nil)
	require.NoError(t, err)
	outputs, err := definition.ABI.Methods["load"].Outputs.Unpack(result.ReturnData)
	require.NoError(t, err)
	assert.Equal(t, int64(42), outputs[0].(*big.Int).Int64())
}

// TestRevertRollsBack verifies a reverting call leaves no trace in chain state.
func TestRevertRollsBack(t *testing.T) {
	testChain, address, definition := deploySealedStore(t)

	_, err := testChain.CallRaw(sender, address, packCall(t, definition, "store", big.NewInt(7)), nil)
	require.NoError(t, err)

	result, err := testChain.CallRaw(sender, address, packCall(t, definition, "storeThenRevert", big.NewInt(99)), nil)
	require.NoError(t, err)
	assert.True(t, result.Reverted)
	assert.Equal(t, "store rejected", result.RevertReason)
	assert.Empty(t, result.StateChangeset)

	// The earlier write survives, the reverted one does not.
	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "load"), nil)
	require.NoError(t, err)
	outputs, err := definition.ABI.Methods["load"].Outputs.Unpack(result.ReturnData)
	require.NoError(t, err)
	assert.Equal(t, int64(7), outputs[0].(*big.Int).Int64())
}

// TestInfrastructureErrors verifies interpreter faults surface as errors rather than reverts.
func TestInfrastructureErrors(t *testing.T) {
	testChain, address, definition := deploySealedStore(t)

	// A call to an address without a contract reverts rather than erroring, mirroring a call to a codeless account.
	result, err := testChain.CallRaw(sender, common.HexToAddress("0xdead"), packCall(t, definition, "load"), nil)
	require.NoError(t, err)
	assert.True(t, result.Reverted)

	// Calldata too short for a selector.
	_, err = testChain.CallRaw(sender, address, []byte{0x01}, nil)
	assert.Error(t, err)

	// Unknown selector.
	_, err = testChain.CallRaw(sender, address, []byte{0xde, 0xad, 0xbe, 0xef}, nil)
	assert.Error(t, err)

	// Handler panic.
	_, err = testChain.CallRaw(sender, address, packCall(t, definition, "boom"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interpreter fault")

	// State remains usable after a fault.
	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "store", big.NewInt(3)), nil)
	require.NoError(t, err)
	assert.False(t, result.Reverted)
}

// TestCloneIsolation verifies clones reset to the sealed snapshot and share no state with the original or each
// other.
func TestCloneIsolation(t *testing.T) {
	testChain, address, definition := deploySealedStore(t)

	_, err := testChain.CallRaw(sender, address, packCall(t, definition, "store", big.NewInt(5)), nil)
	require.NoError(t, err)

	clone, err := testChain.Clone()
	require.NoError(t, err)

	// The clone starts from the sealed snapshot, before the store above.
	result, err := clone.CallRaw(sender, address, packCall(t, definition, "load"), nil)
	require.NoError(t, err)
	outputs, err := definition.ABI.Methods["load"].Outputs.Unpack(result.ReturnData)
	require.NoError(t, err)
	assert.Equal(t, int64(0), outputs[0].(*big.Int).Int64())

	// Mutating the clone leaves the original untouched.
	_, err = clone.CallRaw(sender, address, packCall(t, definition, "store", big.NewInt(100)), nil)
	require.NoError(t, err)
	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "load"), nil)
	require.NoError(t, err)
	outputs, err = definition.ABI.Methods["load"].Outputs.Unpack(result.ReturnData)
	require.NoError(t, err)
	assert.Equal(t, int64(5), outputs[0].(*big.Int).Int64())
}

// TestFailureFlag verifies the failure flag is sticky and inverts under shouldFail.
func TestFailureFlag(t *testing.T) {
	testChain, address, definition := deploySealedStore(t)

	result, err := testChain.CallRaw(sender, address, packCall(t, definition, "load"), nil)
	require.NoError(t, err)
	assert.True(t, testChain.IsSuccess(address, result.StateChangeset, result, false))

	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "failNow"), nil)
	require.NoError(t, err)
	assert.False(t, testChain.IsSuccess(address, result.StateChangeset, result, false))
	assert.True(t, testChain.IsSuccess(address, result.StateChangeset, result, true))

	// Sticky across later calls.
	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "load"), nil)
	require.NoError(t, err)
	assert.False(t, testChain.IsSuccess(address, result.StateChangeset, result, false))
}

// TestDeploymentDiscovery verifies nested deployments surface through the trace regardless of tracing mode.
func TestDeploymentDiscovery(t *testing.T) {
	testChain, address, definition := deploySealedStore(t)

	result, err := testChain.CallRaw(sender, address, packCall(t, definition, "spawn"), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Trace)
	created := result.Trace.CreatedContracts()
	require.Len(t, created, 1)
	assert.Equal(t, "Store", created[0].Name)
	assert.NotEqual(t, common.Address{}, created[0].Address)

	// With tracing disabled the creation is still surfaced through a minimal trace.
	testChain.SetTracing(chainTypes.TracingDisabled)
	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "spawn"), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Trace)
	assert.Len(t, result.Trace.CreatedContracts(), 1)
}

// TestValueTransfer verifies attached value moves between accounts and reverts when unfunded.
func TestValueTransfer(t *testing.T) {
	testChain := NewTestChain()
	definition := newStoreContract()
	address, err := testChain.DeployContract(definition)
	require.NoError(t, err)
	require.NoError(t, testChain.SetBalance(sender, uint256.NewInt(1000)))
	require.NoError(t, testChain.Seal())

	result, err := testChain.CallRaw(sender, address, packCall(t, definition, "store", big.NewInt(1)), big.NewInt(400))
	require.NoError(t, err)
	assert.False(t, result.Reverted)
	assert.Equal(t, uint64(400), result.StateChangeset[address].Balance.Uint64())
	assert.Equal(t, uint64(600), result.StateChangeset[sender].Balance.Uint64())

	// Overspending reverts instead of going negative.
	result, err = testChain.CallRaw(sender, address, packCall(t, definition, "store", big.NewInt(1)), big.NewInt(5000))
	require.NoError(t, err)
	assert.True(t, result.Reverted)
}

// TestSealRequired verifies calls and clones are rejected before sealing, and sealing twice fails.
func TestSealRequired(t *testing.T) {
	testChain := NewTestChain()
	definition := newStoreContract()
	address, err := testChain.DeployContract(definition)
	require.NoError(t, err)

	_, err = testChain.CallRaw(sender, address, packCall(t, definition, "load"), nil)
	assert.Error(t, err)
	_, err = testChain.Clone()
	assert.Error(t, err)

	require.NoError(t, testChain.Seal())
	assert.Error(t, testChain.Seal())
}
