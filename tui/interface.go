package tui

import (
	"github.com/crytic/gorgon/fuzzing"
	"github.com/crytic/gorgon/fuzzing/contracts"
)

// CampaignDataProvider abstracts campaign data access for the TUI.
// This interface defines the minimal set of methods the TUI needs to display campaign state.
// The fuzzing.Campaign type already implements this interface.
type CampaignDataProvider interface {
	// Data access methods
	Metrics() *fuzzing.CampaignMetrics
	GasReport() *fuzzing.GasReport
	Registry() *contracts.TargetRegistry
	Seed() int64
}
