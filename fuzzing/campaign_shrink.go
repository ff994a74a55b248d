package fuzzing

import (
	"fmt"

	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/crytic/gorgon/fuzzing/valuegeneration"
	"github.com/crytic/gorgon/utils"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"golang.org/x/net/context"
)

// shrinkStallLimit bounds how many consecutive unproductive argument mutations the shrinker tolerates before it
// considers the sequence minimal.
const shrinkStallLimit = 64

// minimizeFailure minimizes the failure's call sequence in place: first whole chunks of calls are removed, largest
// first, then individual call arguments are simplified toward canonical minimal values. Every candidate is
// re-executed on a fresh clone of the base executor and is only kept if it reproduces a failure of the same kind.
// The total number of candidate executions is bounded by the configured shrink limit, and cancellation keeps the
// best sequence found so far. Returns an error only if the interpreter failed.
func (c *Campaign) minimizeFailure(ctx context.Context, failure *FailureCase) error {
	if c.config.ShrinkLimit == 0 || len(failure.CallSequence) == 0 {
		return nil
	}

	best := failure.CallSequence
	originalLength := len(best)
	budget := c.config.ShrinkLimit

	// Phase 1: remove chunks of calls, halving the chunk size as removals stop reproducing the failure.
	for chunkSize := len(best) / 2; chunkSize > 0; chunkSize /= 2 {
		start := 0
		for start+chunkSize <= len(best) && budget > 0 {
			if utils.CheckContextDone(ctx) {
				failure.CallSequence = best
				return nil
			}

			candidate := make(calls.CallSequence, 0, len(best)-chunkSize)
			candidate = append(candidate, best[:start]...)
			candidate = append(candidate, best[start+chunkSize:]...)
			if len(candidate) == 0 {
				start++
				continue
			}

			budget--
			reproduced, executed, err := c.checkShrinkCandidate(candidate, failure.Kind)
			if err != nil {
				return err
			}
			if reproduced {
				// The sequence shrank under us, so the same start now points at the next chunk.
				best = executed
			} else {
				start++
			}
		}
	}

	// Phase 2: simplify individual call arguments.
	stall := 0
	for budget > 0 && stall < shrinkStallLimit {
		if utils.CheckContextDone(ctx) {
			break
		}

		i := c.randomProvider.Intn(len(best))
		abiValues := best[i].Call.DataAbiValues
		if abiValues == nil || len(abiValues.InputValues) == 0 {
			stall++
			continue
		}
		j := c.randomProvider.Intn(len(abiValues.InputValues))
		inputType := &abiValues.Method.Inputs[j].Type
		shrunkValue, ok := c.shrinkValue(inputType, abiValues.InputValues[j])
		if !ok {
			stall++
			continue
		}

		candidate, err := best.Clone()
		if err != nil {
			return err
		}
		candidate[i].Call.DataAbiValues.InputValues[j] = shrunkValue
		if err = candidate[i].Call.Pack(); err != nil {
			return err
		}

		budget--
		reproduced, executed, err := c.checkShrinkCandidate(candidate, failure.Kind)
		if err != nil {
			return err
		}
		if reproduced {
			best = executed
			stall = 0
		} else {
			stall++
		}
	}

	failure.CallSequence = best
	c.logger.Info(fmt.Sprintf(
		"shrunk failing sequence from %d to %d call(s) using %d execution(s)",
		originalLength, len(best), c.config.ShrinkLimit-budget,
	))
	return nil
}

// shrinkValue proposes a simpler candidate for a single argument value, steered by the campaign's random provider.
func (c *Campaign) shrinkValue(inputType *abi.Type, value any) (any, bool) {
	return valuegeneration.ShrinkAbiValue(c.randomProvider, inputType, value)
}

// checkShrinkCandidate executes a candidate sequence on a fresh executor clone and reports whether it reproduces a
// failure of the provided kind. On reproduction, the returned sequence holds the re-executed elements truncated at
// the triggering call, so accepted candidates always end in the call that fails.
func (c *Campaign) checkShrinkCandidate(candidate calls.CallSequence, kind FailureKind) (bool, calls.CallSequence, error) {
	executor, err := c.executor.Clone()
	if err != nil {
		return false, nil, err
	}
	c.metrics.AddShrinkExecutions(1)

	executed := make(calls.CallSequence, 0, len(candidate))
	for _, element := range candidate {
		replayElement := element.Clone()
		callResult, err := executor.CallRaw(replayElement.Call.From, replayElement.Call.To, replayElement.Call.Data, replayElement.Call.Value)
		if err != nil {
			return false, nil, err
		}
		replayElement.ExecutionResult = callResult
		executed = append(executed, replayElement)

		verdict, err := classifyCallResult(executor, c.invariant, c.registry.Targets(), callResult, c.config.FailOnRevert)
		if err != nil {
			return false, nil, err
		}
		// Only a failure of the same kind counts as a reproduction; a different failure mode would change what
		// the counterexample demonstrates.
		if verdict.verdict == verdictBroken && kind == FailureKindBrokenInvariant {
			return true, executed, nil
		}
		if verdict.verdict == verdictReverted && kind == FailureKindRevert {
			return true, executed, nil
		}
		if verdict.verdict != verdictContinue {
			return false, nil, nil
		}
	}
	return false, nil, nil
}
