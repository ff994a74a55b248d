package calls

import (
	"fmt"
	"strings"

	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/crytic/gorgon/fuzzing/valuegeneration"
	"github.com/crytic/gorgon/logging"
	"github.com/crytic/gorgon/logging/colors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// CallSequence describes an ordered list of calls executed (or to be executed) against the interpreter.
type CallSequence []*CallSequenceElement

// CallSequenceElement describes a single call of a call sequence, together with its execution result once it has
// been executed.
type CallSequenceElement struct {
	// Target describes the contract the call is directed at, if known to the registry.
	Target *contracts.Target

	// Call describes the call message itself.
	Call *CallMessage

	// ExecutionResult describes the result of executing the call, or nil if it has not been executed yet.
	ExecutionResult *chainTypes.ExecutionResult
}

// NewCallSequenceElement creates an unexecuted sequence element for the provided target and call.
func NewCallSequenceElement(target *contracts.Target, call *CallMessage) *CallSequenceElement {
	return &CallSequenceElement{
		Target: target,
		Call:   call,
	}
}

// Clone creates a copy of the element with an unexecuted call, so it can be replayed on another executor.
func (e *CallSequenceElement) Clone() *CallSequenceElement {
	return &CallSequenceElement{
		Target: e.Target,
		Call:   e.Call.Clone(),
	}
}

// Method obtains the ABI method the element's call targets, preferring the decoded ABI values over a calldata
// lookup. Returns an error if the method cannot be resolved.
func (e *CallSequenceElement) Method() (*abi.Method, error) {
	if e.Call.DataAbiValues != nil && e.Call.DataAbiValues.Method != nil {
		return e.Call.DataAbiValues.Method, nil
	}
	if e.Target == nil {
		return nil, errors.New("could not resolve method of a call with no target")
	}
	if len(e.Call.Data) < 4 {
		return nil, errors.New("could not resolve method of a call with no selector")
	}
	return e.Target.ABI.MethodById(e.Call.Data[:4])
}

// String returns a decoded, human-readable display string for the element.
func (e *CallSequenceElement) String() string {
	contractName := "<unresolved contract>"
	if e.Target != nil {
		contractName = e.Target.Name
	}
	methodName := "<unresolved method>"
	args := "<unresolved args>"
	if method, err := e.Method(); err == nil {
		methodName = method.Name
		if e.Call.DataAbiValues != nil {
			if encoded, err := valuegeneration.EncodeABIArgumentsToString(method.Inputs, e.Call.DataAbiValues.InputValues); err == nil {
				args = encoded
			}
		} else if inputs, err := method.Inputs.Unpack(e.Call.Data[4:]); err == nil {
			if encoded, err := valuegeneration.EncodeABIArgumentsToString(method.Inputs, inputs); err == nil {
				args = encoded
			}
		}
	}

	suffix := ""
	if e.ExecutionResult != nil && e.ExecutionResult.Reverted {
		suffix = fmt.Sprintf(" [reverted: %s]", e.ExecutionResult.RevertReason)
	}
	return fmt.Sprintf("%s.%s(%s) (addr=%s, value=%s, sender=%s)%s",
		contractName,
		methodName,
		args,
		e.Call.To.String(),
		e.Call.Value.String(),
		e.Call.From.String(),
		suffix,
	)
}

// Clone creates a copy of the sequence with unexecuted calls, so it can be replayed on another executor.
func (cs CallSequence) Clone() (CallSequence, error) {
	clone := make(CallSequence, len(cs))
	for i, element := range cs {
		clone[i] = element.Clone()
	}
	return clone, nil
}

// String returns the display string of the whole sequence, one numbered line per call.
func (cs CallSequence) String() string {
	if len(cs) == 0 {
		return "<none>"
	}
	return strings.TrimSuffix(cs.Log().String(), "\n")
}

// Log returns a buffer of colorized elements describing the sequence, one numbered line per call, for deferred
// logging.
func (cs CallSequence) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	if len(cs) == 0 {
		buffer.Append("<none>\n")
		return buffer
	}
	for i, element := range cs {
		buffer.Append(colors.Bold, fmt.Sprintf("%d) ", i+1), colors.Reset, element.String(), "\n")
	}
	return buffer
}
