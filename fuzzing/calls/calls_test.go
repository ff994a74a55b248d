package calls

import (
	"math/big"
	"strings"
	"testing"

	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenABI = `[
	{"type": "function", "name": "transfer", "stateMutability": "nonpayable", "inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}], "outputs": []}
]`

func newTokenTarget(t *testing.T) *contracts.Target {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	require.NoError(t, err)
	return contracts.NewTarget(common.HexToAddress("0x5"), "Token", parsed)
}

// TestCallMessagePacking verifies messages built from ABI values pack and re-pack after argument mutation.
func TestCallMessagePacking(t *testing.T) {
	target := newTokenTarget(t)
	method := target.ABI.Methods["transfer"]

	msg, err := NewCallMessageWithAbiValues(
		common.HexToAddress("0x1"),
		target.Address,
		nil,
		&method,
		[]any{common.HexToAddress("0x2"), big.NewInt(100)},
	)
	require.NoError(t, err)
	require.True(t, len(msg.Data) > 4)
	assert.Equal(t, method.ID, msg.Data[:4])

	// Mutating an argument and re-packing changes the calldata accordingly.
	originalData := append([]byte{}, msg.Data...)
	msg.DataAbiValues.InputValues[1] = big.NewInt(5)
	require.NoError(t, msg.Pack())
	assert.NotEqual(t, originalData, msg.Data)

	// Mismatched values fail to pack.
	msg.DataAbiValues.InputValues = []any{big.NewInt(1)}
	assert.Error(t, msg.Pack())
}

// TestCallMessageClone verifies clones are detached from the original's mutable state.
func TestCallMessageClone(t *testing.T) {
	target := newTokenTarget(t)
	method := target.ABI.Methods["transfer"]
	msg, err := NewCallMessageWithAbiValues(
		common.HexToAddress("0x1"),
		target.Address,
		big.NewInt(7),
		&method,
		[]any{common.HexToAddress("0x2"), big.NewInt(100)},
	)
	require.NoError(t, err)

	clone := msg.Clone()
	clone.DataAbiValues.InputValues[1] = big.NewInt(1)
	require.NoError(t, clone.Pack())
	clone.Value.SetInt64(999)

	assert.Equal(t, int64(100), msg.DataAbiValues.InputValues[1].(*big.Int).Int64())
	assert.Equal(t, int64(7), msg.Value.Int64())
	assert.NotEqual(t, msg.Data, clone.Data)
}

// TestCallSequenceElementDisplay verifies elements decode into readable display strings.
func TestCallSequenceElementDisplay(t *testing.T) {
	target := newTokenTarget(t)
	method := target.ABI.Methods["transfer"]
	msg, err := NewCallMessageWithAbiValues(
		common.HexToAddress("0x1"),
		target.Address,
		nil,
		&method,
		[]any{common.HexToAddress("0x2"), big.NewInt(100)},
	)
	require.NoError(t, err)

	element := NewCallSequenceElement(target, msg)
	resolved, err := element.Method()
	require.NoError(t, err)
	assert.Equal(t, "transfer", resolved.Name)

	display := element.String()
	assert.Contains(t, display, "Token.transfer(")
	assert.Contains(t, display, "100")

	sequence := CallSequence{element}
	assert.Contains(t, sequence.String(), "1) ")
	assert.Equal(t, "<none>", CallSequence{}.String())

	// Raw calldata still resolves through the target's ABI.
	raw := NewCallMessage(common.HexToAddress("0x1"), target.Address, nil, msg.Data)
	rawElement := NewCallSequenceElement(target, raw)
	resolved, err = rawElement.Method()
	require.NoError(t, err)
	assert.Equal(t, "transfer", resolved.Name)
}

// TestCallSequenceClone verifies cloned sequences drop execution results and detach call state.
func TestCallSequenceClone(t *testing.T) {
	target := newTokenTarget(t)
	method := target.ABI.Methods["transfer"]
	msg, err := NewCallMessageWithAbiValues(
		common.HexToAddress("0x1"),
		target.Address,
		nil,
		&method,
		[]any{common.HexToAddress("0x2"), big.NewInt(100)},
	)
	require.NoError(t, err)
	sequence := CallSequence{NewCallSequenceElement(target, msg)}

	clone, err := sequence.Clone()
	require.NoError(t, err)
	require.Len(t, clone, 1)
	assert.Nil(t, clone[0].ExecutionResult)
	assert.NotSame(t, sequence[0].Call, clone[0].Call)
	assert.Same(t, sequence[0].Target, clone[0].Target)
}

// TestInnerSequence verifies append, indexing, snapshotting and reset behavior.
func TestInnerSequence(t *testing.T) {
	inner := NewInnerSequence()
	assert.Zero(t, inner.Len())
	assert.Nil(t, inner.At(0))

	first := NewCallMessage(common.HexToAddress("0x1"), common.HexToAddress("0x2"), nil, []byte{0x01, 0x02, 0x03, 0x04})
	second := NewCallMessage(common.HexToAddress("0x3"), common.HexToAddress("0x4"), nil, []byte{0x05, 0x06, 0x07, 0x08})
	inner.Append(first)
	inner.Append(second)
	assert.Equal(t, 2, inner.Len())
	assert.Same(t, first, inner.At(0))
	assert.Nil(t, inner.At(2))

	snapshot := inner.Snapshot()
	require.Len(t, snapshot, 2)
	assert.NotSame(t, first, snapshot[0])
	assert.Equal(t, first.Data, snapshot[0].Data)

	inner.Reset()
	assert.Zero(t, inner.Len())
	require.Len(t, snapshot, 2)
}
