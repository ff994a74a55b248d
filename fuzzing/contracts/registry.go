package contracts

import (
	"sync"

	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/ethereum/go-ethereum/common"
)

// TargetRegistry tracks the contracts targeted by a fuzzing campaign. The registry is append-only: targets are
// added as they are deployed or discovered and are never removed for the lifetime of a campaign. It is safe for
// concurrent use.
type TargetRegistry struct {
	// targets maps deployed addresses to their targets.
	targets map[common.Address]*Target

	// order lists target addresses in insertion order, so iteration is deterministic.
	order []common.Address

	// excluded lists addresses which must never become targets, such as the invariant carrier itself.
	excluded map[common.Address]struct{}

	// lock provides thread synchronization.
	lock sync.RWMutex
}

// NewTargetRegistry creates an empty registry.
func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{
		targets:  make(map[common.Address]*Target),
		excluded: make(map[common.Address]struct{}),
	}
}

// Exclude marks an address as never targetable. Exclusions only affect future Add calls.
func (r *TargetRegistry) Exclude(address common.Address) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.excluded[address] = struct{}{}
}

// Add registers a target. Targets already registered or excluded are ignored.
// Returns true if the target was newly added.
func (r *TargetRegistry) Add(target *Target) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.add(target)
}

// add registers a target without locking.
func (r *TargetRegistry) add(target *Target) bool {
	if _, excluded := r.excluded[target.Address]; excluded {
		return false
	}
	if _, exists := r.targets[target.Address]; exists {
		return false
	}
	r.targets[target.Address] = target
	r.order = append(r.order, target.Address)
	return true
}

// ExtendFromResult discovers contracts created during the provided call and registers them as targets.
// Returns the number of targets newly added.
func (r *TargetRegistry) ExtendFromResult(result *chainTypes.ExecutionResult) int {
	if result == nil || result.Trace == nil {
		return 0
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	added := 0
	for _, created := range result.Trace.CreatedContracts() {
		if r.add(NewTarget(created.Address, created.Name, created.ABI)) {
			added++
		}
	}
	return added
}

// Get returns the target registered at the provided address, or nil if none is.
func (r *TargetRegistry) Get(address common.Address) *Target {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.targets[address]
}

// Targets returns a snapshot of all registered targets in insertion order.
func (r *TargetRegistry) Targets() []*Target {
	r.lock.RLock()
	defer r.lock.RUnlock()
	targets := make([]*Target, len(r.order))
	for i, address := range r.order {
		targets[i] = r.targets[address]
	}
	return targets
}

// Count returns the number of registered targets.
func (r *TargetRegistry) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.order)
}
