package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TracingMode describes how much side-channel information the interpreter collects per call.
type TracingMode int

const (
	// TracingDisabled indicates no call frames are recorded. Contract creations are still reported so that callers
	// can discover dynamically deployed contracts.
	TracingDisabled TracingMode = iota
	// TracingBasic indicates top-level call frames and contract creations are recorded.
	TracingBasic
	// TracingVerbose indicates full nested call frames, decoded inputs and logs are recorded. This is the mode used
	// when replaying a failing sequence for diagnostics.
	TracingVerbose
)

// ExecutionResult describes the outcome of a single call applied to the interpreter. It is produced fresh per call
// and holds everything the fuzzing engine needs to classify the call and update its bookkeeping. Which optional
// collaborator (tracer, coverage counter, cheat handler) produced which field is an interpreter-internal concern.
type ExecutionResult struct {
	// Reverted indicates the call reverted and its state changes were rolled back.
	Reverted bool

	// RevertReason describes a human-readable revert reason, if the call reverted and one was supplied.
	RevertReason string

	// ReturnData describes the ABI-encoded return data of the call, if any.
	ReturnData []byte

	// GasUsed describes the synthetic gas charged for the call.
	GasUsed uint64

	// Logs describes the log events emitted during the call, in emission order.
	Logs []Log

	// Trace describes the call trace recorded for this call. Nil when tracing is disabled, except that contract
	// creations are always surfaced through a minimal trace so discovery keeps working.
	Trace *CallTrace

	// StateChangeset describes the accounts touched by this call and their post-call deltas. Reverted calls carry
	// an empty changeset.
	StateChangeset StateChangeset

	// LineCoverage describes handler line hit counts collected during the call.
	LineCoverage LineCoverage

	// SideChannel carries optional collaborator outputs keyed by capability name. Consumers must not assume which
	// collaborator produced which entry.
	SideChannel map[string]any
}

// Log describes a single event emitted by a contract handler during execution.
type Log struct {
	// Emitter describes the address of the contract which emitted this log.
	Emitter common.Address

	// Event describes the name of the emitted event.
	Event string

	// Values describes the event payload values in declaration order.
	Values []any
}

// StateChangeset describes the set of accounts mutated by a call, keyed by address.
type StateChangeset map[common.Address]*AccountDelta

// AccountDelta describes the post-call state of a touched account.
type AccountDelta struct {
	// Slots describes the post-call values of storage slots written during the call.
	Slots map[string]*uint256.Int

	// Balance describes the post-call balance of the account, if it changed. Nil otherwise.
	Balance *uint256.Int

	// Failed indicates the account's failure flag was raised during the call. A raised flag marks a handler
	// contract as being in a failed state.
	Failed bool
}

// Touched returns whether the changeset contains a delta for the provided address.
func (s StateChangeset) Touched(address common.Address) bool {
	_, ok := s[address]
	return ok
}

// LineCoverage describes handler line hit counts, keyed by contract address and line identifier.
type LineCoverage map[common.Address]map[int]uint64

// Merge folds the hit counts of another coverage map into this one.
func (c LineCoverage) Merge(other LineCoverage) {
	for address, lines := range other {
		existing, ok := c[address]
		if !ok {
			existing = make(map[int]uint64, len(lines))
			c[address] = existing
		}
		for line, hits := range lines {
			existing[line] += hits
		}
	}
}

// HitCount returns the total number of line hits recorded across all contracts.
func (c LineCoverage) HitCount() uint64 {
	var total uint64
	for _, lines := range c {
		for _, hits := range lines {
			total += hits
		}
	}
	return total
}
