package calls

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// CallMessage describes a single fuzzed call to be executed against the interpreter: sender, target, attached value
// and calldata. When the message was generated from ABI values, DataAbiValues retains the decoded form so the
// shrinker can mutate arguments without re-parsing calldata.
type CallMessage struct {
	// From describes the sender of the call.
	From common.Address `json:"from"`

	// To describes the target contract of the call.
	To common.Address `json:"to"`

	// Value describes the native value attached to the call.
	Value *big.Int `json:"value"`

	// Data describes the ABI-packed calldata of the call.
	Data []byte `json:"data"`

	// DataAbiValues describes the decoded method and input values Data was packed from, if known.
	DataAbiValues *CallMessageDataAbiValues `json:"-"`
}

// CallMessageDataAbiValues describes the decoded form of a call message's data.
type CallMessageDataAbiValues struct {
	// Method describes the ABI method the call targets.
	Method *abi.Method

	// InputValues describes the decoded input argument values.
	InputValues []any
}

// NewCallMessage creates a CallMessage from raw calldata.
func NewCallMessage(from common.Address, to common.Address, value *big.Int, data []byte) *CallMessage {
	if value == nil {
		value = big.NewInt(0)
	}
	return &CallMessage{
		From:  from,
		To:    to,
		Value: new(big.Int).Set(value),
		Data:  data,
	}
}

// NewCallMessageWithAbiValues creates a CallMessage whose data is packed from the provided method and input values.
// Returns the message, or an error if the values could not be packed.
func NewCallMessageWithAbiValues(from common.Address, to common.Address, value *big.Int, method *abi.Method, inputValues []any) (*CallMessage, error) {
	msg := NewCallMessage(from, to, value, nil)
	msg.DataAbiValues = &CallMessageDataAbiValues{
		Method:      method,
		InputValues: inputValues,
	}
	if err := msg.Pack(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Pack re-encodes the message's Data from its DataAbiValues. It must be called after mutating InputValues.
// Returns an error if the values do not match the method's inputs.
func (m *CallMessage) Pack() error {
	if m.DataAbiValues == nil || m.DataAbiValues.Method == nil {
		return errors.New("cannot pack a call message without ABI values")
	}
	packed, err := m.DataAbiValues.Method.Inputs.Pack(m.DataAbiValues.InputValues...)
	if err != nil {
		return errors.Wrapf(err, "could not pack call to %s", m.DataAbiValues.Method.Sig)
	}
	m.Data = append(append([]byte{}, m.DataAbiValues.Method.ID...), packed...)
	return nil
}

// Clone creates a copy of the call message which can be mutated without affecting the original. Input values are
// copied at the slice level; the values themselves are treated as immutable.
func (m *CallMessage) Clone() *CallMessage {
	clone := NewCallMessage(m.From, m.To, m.Value, append([]byte{}, m.Data...))
	if m.DataAbiValues != nil {
		clone.DataAbiValues = &CallMessageDataAbiValues{
			Method:      m.DataAbiValues.Method,
			InputValues: append([]any{}, m.DataAbiValues.InputValues...),
		}
	}
	return clone
}
