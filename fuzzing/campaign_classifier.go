package fuzzing

import (
	"fmt"

	"github.com/crytic/gorgon/chain"
	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/crytic/gorgon/fuzzing/contracts"
)

// classificationVerdict describes the campaign driver's decision after one fuzzed call.
type classificationVerdict int

const (
	// verdictContinue indicates the run may keep executing calls.
	verdictContinue classificationVerdict = iota

	// verdictBroken indicates the invariant no longer holds and the campaign must stop.
	verdictBroken

	// verdictReverted indicates the call reverted while reverts fail the campaign, and the campaign must stop.
	verdictReverted
)

// classification describes the outcome of classifying one fuzzed call: the verdict, a human-readable reason for
// stopping, and the invariant call's execution result when the invariant was checked.
type classification struct {
	verdict         classificationVerdict
	reason          string
	invariantResult *chainTypes.ExecutionResult

	// handlerFailure describes the target a non-reverting call left in a failed state, or "" when every target is
	// still succeeding. Such calls count as reverts for the campaign's accounting.
	handlerFailure string
}

// callInvariant executes the invariant method once on the provided executor, with the carrier itself as sender.
// The invariant holds when the call does not revert, its boolean return (if any) is true, and the carrier's failure
// flag is not raised. Returns whether it holds, a reason when it does not, the execution result, or an error if the
// interpreter failed.
func callInvariant(executor chain.Executor, invariant *InvariantContract) (bool, string, *chainTypes.ExecutionResult, error) {
	result, err := executor.CallRaw(invariant.Address, invariant.Address, invariant.InvariantMethod.ID, nil)
	if err != nil {
		return false, "", nil, err
	}
	if result.Reverted {
		return false, fmt.Sprintf("invariant reverted: %s", result.RevertReason), result, nil
	}

	if len(invariant.InvariantMethod.Outputs) > 0 {
		outputs, err := invariant.InvariantMethod.Outputs.Unpack(result.ReturnData)
		if err != nil {
			return false, "", nil, err
		}
		if holds, ok := outputs[0].(bool); ok && !holds {
			return false, "invariant returned false", result, nil
		}
	}

	if !executor.IsSuccess(invariant.Address, result.StateChangeset, result, false) {
		return false, "assertion failure flag raised", result, nil
	}
	return true, "", result, nil
}

// callAfterInvariant executes the carrier's afterInvariant hook once on the provided executor. A nil hook is a
// no-op. Returns the execution result (nil when skipped), or an error if the interpreter failed.
func callAfterInvariant(executor chain.Executor, invariant *InvariantContract) (*chainTypes.ExecutionResult, error) {
	if invariant.AfterInvariantMethod == nil {
		return nil, nil
	}
	return executor.CallRaw(invariant.Address, invariant.Address, invariant.AfterInvariantMethod.ID, nil)
}

// firstFailedTarget sweeps the provided targets for one left in a failed state by the last executed call. Handlers
// may raise their failure flag and still return successfully, so a non-reverting call alone does not prove the
// targets are healthy. Returns the first failed target, or nil when every target is succeeding.
func firstFailedTarget(executor chain.Executor, targets []*contracts.Target, callResult *chainTypes.ExecutionResult) *contracts.Target {
	for _, target := range targets {
		if !executor.IsSuccess(target.Address, callResult.StateChangeset, callResult, false) {
			return target
		}
	}
	return nil
}

// classifyCallResult decides whether a run may continue after one fuzzed call. Reverting calls and failed handlers
// take precedence over the invariant: a tolerated revert leaves state unchanged so the invariant is not re-checked,
// a call which left any target's failure flag raised is treated as a revert even though it returned successfully,
// and either stops the campaign under failOnRevert before the invariant is consulted. Otherwise the invariant is
// asserted on the provided executor. Returns the classification, or an error if the interpreter failed.
func classifyCallResult(executor chain.Executor, invariant *InvariantContract, targets []*contracts.Target, callResult *chainTypes.ExecutionResult, failOnRevert bool) (*classification, error) {
	if callResult.Reverted {
		if failOnRevert {
			return &classification{
				verdict: verdictReverted,
				reason:  callResult.RevertReason,
			}, nil
		}
		return &classification{verdict: verdictContinue}, nil
	}

	if failed := firstFailedTarget(executor, targets, callResult); failed != nil {
		reason := fmt.Sprintf("handler %s raised its failure flag", failed.Name)
		if failOnRevert {
			return &classification{
				verdict:        verdictReverted,
				reason:         reason,
				handlerFailure: reason,
			}, nil
		}
		return &classification{
			verdict:        verdictContinue,
			handlerFailure: reason,
		}, nil
	}

	holds, reason, invariantResult, err := callInvariant(executor, invariant)
	if err != nil {
		return nil, err
	}
	if !holds {
		return &classification{
			verdict:         verdictBroken,
			reason:          reason,
			invariantResult: invariantResult,
		}, nil
	}
	return &classification{
		verdict:         verdictContinue,
		invariantResult: invariantResult,
	}, nil
}
