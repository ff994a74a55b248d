package fuzzing

import (
	"github.com/crytic/gorgon/chain"
	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/crytic/gorgon/fuzzing/valuegeneration"
	"github.com/pkg/errors"
)

// replayFailure re-executes a minimized failure case on a fresh, fully-traced executor clone and decodes every call
// into a self-contained counterexample. Replay never mutates the campaign's failure state.
// Returns the counterexamples, or an error if the interpreter failed.
func (c *Campaign) replayFailure(failure *FailureCase) ([]*Counterexample, error) {
	return replaySequence(c.executor, c.invariant, c.registry, failure.CallSequence)
}

// replaySequence re-executes a call sequence on a fresh, fully-traced clone of the provided base executor. The
// registry grows with contracts deployed during the replay, so calls to targets a preceding call deployed resolve
// to real names instead of unknown-contract placeholders. The sequence is followed by exactly one invariant call
// and, when the carrier defines the hook, one afterInvariant call.
// Returns one counterexample per executed call, or an error if the interpreter failed.
func replaySequence(base chain.Executor, invariant *InvariantContract, registry *contracts.TargetRegistry, sequence calls.CallSequence) ([]*Counterexample, error) {
	executor, err := base.Clone()
	if err != nil {
		return nil, err
	}
	executor.SetTracing(chainTypes.TracingVerbose)

	counterexamples := make([]*Counterexample, 0, len(sequence)+2)
	for i, element := range sequence {
		replayElement := element.Clone()
		callResult, err := executor.CallRaw(replayElement.Call.From, replayElement.Call.To, replayElement.Call.Data, replayElement.Call.Value)
		if err != nil {
			return nil, errors.Wrap(err, "failure replay aborted")
		}
		if registry != nil {
			registry.ExtendFromResult(callResult)
			if replayElement.Target == nil {
				replayElement.Target = registry.Get(replayElement.Call.To)
			}
		}
		counterexamples = append(counterexamples, newCounterexample(i, replayElement, callResult))
	}

	// One trailing invariant call demonstrates the violation on the final state.
	invariantResult, err := executor.CallRaw(invariant.Address, invariant.Address, invariant.InvariantMethod.ID, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failure replay aborted")
	}
	counterexamples = append(counterexamples, &Counterexample{
		Index:        len(sequence),
		Sender:       invariant.Address.String(),
		Contract:     invariant.Name,
		Method:       invariant.InvariantMethod.Sig,
		Reverted:     invariantResult.Reverted,
		RevertReason: invariantResult.RevertReason,
		GasUsed:      invariantResult.GasUsed,
		Trace:        invariantResult.Trace,
	})

	hookResult, err := callAfterInvariant(executor, invariant)
	if err != nil {
		return nil, errors.Wrap(err, "failure replay aborted")
	}
	if hookResult != nil {
		counterexamples = append(counterexamples, &Counterexample{
			Index:        len(sequence) + 1,
			Sender:       invariant.Address.String(),
			Contract:     invariant.Name,
			Method:       invariant.AfterInvariantMethod.Sig,
			Reverted:     hookResult.Reverted,
			RevertReason: hookResult.RevertReason,
			GasUsed:      hookResult.GasUsed,
			Trace:        hookResult.Trace,
		})
	}
	return counterexamples, nil
}

// newCounterexample decodes one replayed sequence element into a counterexample.
func newCounterexample(index int, element *calls.CallSequenceElement, result *chainTypes.ExecutionResult) *Counterexample {
	counterexample := &Counterexample{
		Index:        index,
		Sender:       element.Call.From.String(),
		Contract:     "<unknown contract>",
		Method:       "<unknown method>",
		Reverted:     result.Reverted,
		RevertReason: result.RevertReason,
		GasUsed:      result.GasUsed,
		Trace:        result.Trace,
	}
	if element.Target != nil {
		counterexample.Contract = element.Target.Name
	}
	method, err := element.Method()
	if err != nil {
		return counterexample
	}
	counterexample.Method = method.Sig

	inputValues := []any(nil)
	if element.Call.DataAbiValues != nil {
		inputValues = element.Call.DataAbiValues.InputValues
	} else if unpacked, err := method.Inputs.Unpack(element.Call.Data[4:]); err == nil {
		inputValues = unpacked
	}
	if inputValues != nil {
		if encoded, err := valuegeneration.EncodeABIArgumentsToString(method.Inputs, inputValues); err == nil {
			counterexample.Args = encoded
		}
	}
	return counterexample
}
