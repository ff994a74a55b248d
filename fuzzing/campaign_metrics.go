package fuzzing

import (
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CampaignMetrics tracks a running campaign's progress counters. All counters are updated atomically, so external
// observers (progress printers, tests) can read them while the campaign runs.
type CampaignMetrics struct {
	// callsExecuted counts fuzzed calls executed across all runs.
	callsExecuted atomic.Uint64

	// runsCompleted counts runs which finished without a failure.
	runsCompleted atomic.Uint64

	// revertsObserved counts reverting fuzzed calls.
	revertsObserved atomic.Uint64

	// targetsDiscovered counts targets added to the registry after campaign start.
	targetsDiscovered atomic.Uint64

	// shrinkExecutions counts call sequence executions spent by the shrinker.
	shrinkExecutions atomic.Uint64
}

// NewCampaignMetrics creates a zeroed metrics tracker.
func NewCampaignMetrics() *CampaignMetrics {
	return &CampaignMetrics{}
}

// AddCallsExecuted adds to the executed call counter.
func (m *CampaignMetrics) AddCallsExecuted(count uint64) {
	m.callsExecuted.Add(count)
}

// AddRunsCompleted adds to the completed run counter.
func (m *CampaignMetrics) AddRunsCompleted(count uint64) {
	m.runsCompleted.Add(count)
}

// AddRevertsObserved adds to the observed revert counter.
func (m *CampaignMetrics) AddRevertsObserved(count uint64) {
	m.revertsObserved.Add(count)
}

// AddTargetsDiscovered adds to the discovered target counter.
func (m *CampaignMetrics) AddTargetsDiscovered(count uint64) {
	m.targetsDiscovered.Add(count)
}

// AddShrinkExecutions adds to the shrink execution counter.
func (m *CampaignMetrics) AddShrinkExecutions(count uint64) {
	m.shrinkExecutions.Add(count)
}

// CallsExecuted returns the number of fuzzed calls executed so far.
func (m *CampaignMetrics) CallsExecuted() uint64 {
	return m.callsExecuted.Load()
}

// RunsCompleted returns the number of runs completed without failure so far.
func (m *CampaignMetrics) RunsCompleted() uint64 {
	return m.runsCompleted.Load()
}

// RevertsObserved returns the number of reverting fuzzed calls observed so far.
func (m *CampaignMetrics) RevertsObserved() uint64 {
	return m.revertsObserved.Load()
}

// TargetsDiscovered returns the number of targets discovered after campaign start.
func (m *CampaignMetrics) TargetsDiscovered() uint64 {
	return m.targetsDiscovered.Load()
}

// ShrinkExecutions returns the number of call sequence executions spent shrinking.
func (m *CampaignMetrics) ShrinkExecutions() uint64 {
	return m.shrinkExecutions.Load()
}

// GasStats describes the accumulated gas usage of one method.
type GasStats struct {
	// Calls counts executions of the method.
	Calls uint64

	// TotalGas sums the gas used across all executions.
	TotalGas uint64

	// MeanGas describes the mean gas used per execution.
	MeanGas decimal.Decimal
}

// GasReport accumulates per-method gas usage across a campaign. It is safe for concurrent use.
type GasReport struct {
	// entries maps method signatures to their gas statistics.
	entries map[string]*GasStats

	// lock provides thread synchronization.
	lock sync.Mutex
}

// NewGasReport creates an empty gas report.
func NewGasReport() *GasReport {
	return &GasReport{
		entries: make(map[string]*GasStats),
	}
}

// Record accumulates one execution of the provided method signature into the report.
func (r *GasReport) Record(methodSig string, gasUsed uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	stats, ok := r.entries[methodSig]
	if !ok {
		stats = &GasStats{}
		r.entries[methodSig] = stats
	}
	stats.Calls++
	stats.TotalGas += gasUsed
	stats.MeanGas = decimal.NewFromUint64(stats.TotalGas).Div(decimal.NewFromUint64(stats.Calls))
}

// Stats returns a copy of the statistics recorded for the provided method signature, and whether any were.
func (r *GasReport) Stats(methodSig string) (GasStats, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	stats, ok := r.entries[methodSig]
	if !ok {
		return GasStats{}, false
	}
	return *stats, true
}

// MethodSigs returns the sorted method signatures the report holds statistics for.
func (r *GasReport) MethodSigs() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	sigs := maps.Keys(r.entries)
	slices.Sort(sigs)
	return sigs
}
