package fuzzing

import (
	"fmt"
	"strings"

	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/crytic/gorgon/logging"
	"github.com/crytic/gorgon/logging/colors"
	"github.com/google/uuid"
)

// Counterexample describes one replayed call of a failing sequence in fully decoded, self-contained form.
type Counterexample struct {
	// Index describes the call's position in the replayed sequence. The trailing invariant call and the optional
	// afterInvariant call carry indices past the fuzzed calls.
	Index int

	// Sender describes the address the call was sent from.
	Sender string

	// Contract describes the name of the contract the call targeted.
	Contract string

	// Method describes the signature of the called method.
	Method string

	// Args describes the decoded argument values as a display string.
	Args string

	// Reverted indicates the call reverted during replay.
	Reverted bool

	// RevertReason describes why the call reverted, if it did.
	RevertReason string

	// GasUsed describes the gas the call consumed during replay.
	GasUsed uint64

	// Trace describes the fully-traced execution of the call.
	Trace *chainTypes.CallTrace
}

// String returns a one-line display string for the counterexample.
func (c *Counterexample) String() string {
	// Method holds the full signature; display just the name ahead of the decoded arguments.
	methodName := c.Method
	if i := strings.Index(methodName, "("); i >= 0 {
		methodName = methodName[:i]
	}
	suffix := ""
	if c.Reverted {
		suffix = fmt.Sprintf(" [reverted: %s]", c.RevertReason)
	}
	return fmt.Sprintf("%s.%s(%s) (sender=%s, gas=%d)%s", c.Contract, methodName, c.Args, c.Sender, c.GasUsed, suffix)
}

// InvariantFuzzTestResult describes the outcome of a completed (or cancelled) campaign.
type InvariantFuzzTestResult struct {
	// CampaignID describes the unique identifier of the campaign which produced this result.
	CampaignID uuid.UUID

	// FailureCase describes the campaign's failure, or nil if every run passed.
	FailureCase *FailureCase

	// Counterexamples describes the replayed, decoded form of the failing sequence, one entry per call plus the
	// trailing invariant call. Empty when the campaign passed.
	Counterexamples []*Counterexample

	// PassingRuns counts the runs which completed without a failure.
	PassingRuns uint64

	// Reverts counts every reverting fuzzed call observed across the campaign.
	Reverts uint64

	// FirstRevertReason describes the reason of the first revert observed, if any.
	FirstRevertReason string

	// Cancelled indicates the campaign stopped early due to context cancellation; the result covers the work done
	// up to that point.
	Cancelled bool

	// LastRunInputs describes the calls of the most recent fully completed run, so a passing campaign's final
	// sequence can be re-used as a starting corpus.
	LastRunInputs []*calls.CallMessage

	// ReproducerPath describes the file the failure was persisted to, if reproducer writing is configured.
	ReproducerPath string

	// GasReport describes per-method gas usage across the campaign.
	GasReport *GasReport
}

// Failed indicates whether the campaign found a failure.
func (r *InvariantFuzzTestResult) Failed() bool {
	return r.FailureCase != nil
}

// Log returns a colorized buffer describing the result for deferred console output.
func (r *InvariantFuzzTestResult) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	if !r.Failed() {
		buffer.Append(colors.GreenBold, "[PASSED] ", colors.Reset)
		buffer.Append(fmt.Sprintf("%d run(s) completed, %d tolerated revert(s)\n", r.PassingRuns, r.Reverts))
		return buffer
	}

	buffer.Append(colors.RedBold, "[FAILED] ", colors.Reset, r.FailureCase.String(), "\n")
	if len(r.Counterexamples) > 0 {
		buffer.Append(colors.Bold, "Counterexample:\n", colors.Reset)
		for _, counterexample := range r.Counterexamples {
			buffer.Append(fmt.Sprintf("  %d) %s\n", counterexample.Index+1, counterexample.String()))
		}
	}
	if r.ReproducerPath != "" {
		buffer.Append("Reproducer written to: ", r.ReproducerPath, "\n")
	}
	return buffer
}
