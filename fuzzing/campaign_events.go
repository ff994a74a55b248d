package fuzzing

import (
	"github.com/crytic/gorgon/events"
	"github.com/crytic/gorgon/fuzzing/contracts"
)

// CampaignStartedEvent describes an event where a campaign begins executing runs.
type CampaignStartedEvent struct {
	// Campaign represents the campaign which started.
	Campaign *Campaign
}

// CampaignRunCompletedEvent describes an event where a campaign finishes one run without a failure.
type CampaignRunCompletedEvent struct {
	// Campaign represents the campaign the run belongs to.
	Campaign *Campaign

	// Run represents the zero-based index of the completed run.
	Run uint64
}

// FailureDiscoveredEvent describes an event where a campaign records its failure case. The failure at this point is
// already minimized.
type FailureDiscoveredEvent struct {
	// Campaign represents the campaign which failed.
	Campaign *Campaign

	// Failure represents the recorded failure case.
	Failure *FailureCase
}

// TargetDiscoveredEvent describes an event where a contract deployed mid-campaign becomes a fuzzing target.
type TargetDiscoveredEvent struct {
	// Campaign represents the campaign which discovered the target.
	Campaign *Campaign

	// Target represents the newly registered target.
	Target *contracts.Target
}

// CampaignEvents defines event emitters for a Campaign.
type CampaignEvents struct {
	// CampaignStarted emits events when the campaign begins executing runs.
	CampaignStarted events.EventEmitter[CampaignStartedEvent]

	// RunCompleted emits events when a run finishes without a failure.
	RunCompleted events.EventEmitter[CampaignRunCompletedEvent]

	// FailureDiscovered emits events when the campaign records its failure case.
	FailureDiscovered events.EventEmitter[FailureDiscoveredEvent]

	// TargetDiscovered emits events when a new target is registered mid-campaign.
	TargetDiscovered events.EventEmitter[TargetDiscoveredEvent]
}
