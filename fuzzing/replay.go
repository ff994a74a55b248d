package fuzzing

import (
	"github.com/crytic/gorgon/chain"
	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/crytic/gorgon/fuzzing/contracts"
)

// ReproducerSummary describes the campaign metadata carried by a persisted reproducer file.
type ReproducerSummary struct {
	// CampaignID describes the campaign which found the failure.
	CampaignID string

	// Seed describes the random seed the campaign ran with.
	Seed int64

	// Kind describes the class of the failure.
	Kind FailureKind

	// InvariantName describes the signature of the violated invariant.
	InvariantName string

	// Reason describes why the campaign failed.
	Reason string

	// Calls describes how many calls the failing sequence holds.
	Calls int
}

// ReplayReproducerFile re-executes a persisted failing sequence against a fresh, fully-traced clone of the provided
// base executor and decodes every call into a counterexample. The registry resolves call targets for argument
// decoding and is extended with contracts the sequence deploys along the way, so calls into mid-sequence
// deployments decode with real names; calls to addresses the registry never learns are still executed, just not
// decoded.
// Returns the reproducer's summary and the counterexamples, or an error if one occurred.
func ReplayReproducerFile(base chain.Executor, invariant *InvariantContract, registry *contracts.TargetRegistry, path string) (*ReproducerSummary, []*Counterexample, error) {
	file, messages, err := readReproducer(path)
	if err != nil {
		return nil, nil, err
	}

	sequence := make(calls.CallSequence, len(messages))
	for i, message := range messages {
		sequence[i] = calls.NewCallSequenceElement(registry.Get(message.To), message)
	}
	counterexamples, err := replaySequence(base, invariant, registry, sequence)
	if err != nil {
		return nil, nil, err
	}

	summary := &ReproducerSummary{
		CampaignID:    file.CampaignID,
		Seed:          file.Seed,
		Kind:          FailureKind(file.Kind),
		InvariantName: file.InvariantName,
		Reason:        file.Reason,
		Calls:         len(file.Calls),
	}
	return summary, counterexamples, nil
}
