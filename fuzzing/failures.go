package fuzzing

import (
	"fmt"
	"sync"

	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/crytic/gorgon/fuzzing/config"
	"github.com/crytic/gorgon/fuzzing/contracts"
)

// FailureKind describes the class of a campaign failure.
type FailureKind string

const (
	// FailureKindBrokenInvariant describes a failure where the invariant method reverted, returned false or left
	// its carrier in a failed state.
	FailureKindBrokenInvariant FailureKind = "broken_invariant"

	// FailureKindRevert describes a failure where a fuzzed call reverted while reverts are configured to fail the
	// campaign.
	FailureKindRevert FailureKind = "revert"
)

// FailureCase describes a campaign failure together with everything needed to reproduce it without access to the
// campaign that found it: the failing call sequence, the recorded inner sequence, the targets known at failure time
// and a snapshot of the campaign parameters.
type FailureCase struct {
	// Kind describes the class of the failure.
	Kind FailureKind

	// InvariantName describes the signature of the invariant method being checked.
	InvariantName string

	// Reason describes why the campaign failed: the revert reason, or a description of the broken invariant.
	Reason string

	// CallSequence describes the minimized sequence of calls reproducing the failure. The final element is the call
	// which triggered it.
	CallSequence calls.CallSequence

	// InnerSequence describes the calls recorded by the failing run, cloned at failure time.
	InnerSequence []*calls.CallMessage

	// Targets describes the targets registered when the failure was found.
	Targets []*contracts.Target

	// FuzzingConfig describes the campaign parameters the failure was found under.
	FuzzingConfig config.FuzzingConfig

	// Run and Depth describe the position in the campaign where the failure was found.
	Run   uint64
	Depth uint64
}

// String returns a one-line description of the failure.
func (f *FailureCase) String() string {
	switch f.Kind {
	case FailureKindRevert:
		return fmt.Sprintf("call reverted (%s) after %d call(s) in run %d", f.Reason, len(f.CallSequence), f.Run)
	default:
		return fmt.Sprintf("invariant %s violated (%s) after %d call(s) in run %d", f.InvariantName, f.Reason, len(f.CallSequence), f.Run)
	}
}

// InvariantFailures accumulates the failure state of a campaign. Revert counting is cumulative, while the failure
// case follows first-failure-wins: once set, later candidates are ignored. It is safe for concurrent use.
type InvariantFailures struct {
	// reverts counts every reverting fuzzed call observed, tolerated or not.
	reverts uint64

	// revertReason describes the reason of the first revert observed.
	revertReason string

	// failure describes the campaign's failure case, set at most once.
	failure *FailureCase

	// lock provides thread synchronization.
	lock sync.Mutex
}

// NewInvariantFailures creates an empty failure accumulator.
func NewInvariantFailures() *InvariantFailures {
	return &InvariantFailures{}
}

// RecordRevert counts a reverting fuzzed call, retaining the first revert reason seen.
func (f *InvariantFailures) RecordRevert(reason string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.reverts == 0 {
		f.revertReason = reason
	}
	f.reverts++
}

// SetFailure records the campaign's failure case if none has been recorded yet.
// Returns true if the provided case was recorded.
func (f *InvariantFailures) SetFailure(failure *FailureCase) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.failure != nil {
		return false
	}
	f.failure = failure
	return true
}

// Failure returns the recorded failure case, or nil if the campaign has not failed.
func (f *InvariantFailures) Failure() *FailureCase {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.failure
}

// Reverts returns the number of reverting fuzzed calls observed.
func (f *InvariantFailures) Reverts() uint64 {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.reverts
}

// RevertReason returns the reason of the first revert observed, or an empty string if none reverted.
func (f *InvariantFailures) RevertReason() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.revertReason
}
