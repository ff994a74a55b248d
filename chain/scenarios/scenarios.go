// Package scenarios provides ready-made TestChain setups used by the fuzzing engine's CLI and tests. Each scenario
// deploys a set of contracts, seals the chain and describes which contract/method pair carries the invariant.
package scenarios

import (
	"strings"

	"github.com/crytic/gorgon/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Scenario describes a sealed chain together with the invariant to check against it.
type Scenario struct {
	// Name describes the scenario's registry name.
	Name string

	// Description describes what the scenario exercises.
	Description string

	// Chain describes the sealed chain the scenario deployed its contracts to.
	Chain *chain.TestChain

	// TestAddress describes the address of the contract carrying the invariant method.
	TestAddress common.Address

	// InvariantMethod describes the name of the invariant method on the test contract.
	InvariantMethod string

	// CallAfterInvariant indicates the test contract defines an afterInvariant hook the engine should call when a
	// failure is found.
	CallAfterInvariant bool

	// TargetAddresses lists the initially-targeted contracts whose methods the engine fuzzes. Contracts deployed
	// during the campaign are discovered from traces and added on top.
	TargetAddresses []common.Address
}

// scenarioConstructors maps registry names to scenario constructors.
var scenarioConstructors = map[string]func() (*Scenario, error){
	"vault":   newVaultScenario,
	"factory": newFactoryScenario,
}

// New constructs the named scenario on a fresh chain. Returns an error if the name is unknown or setup fails.
func New(name string) (*Scenario, error) {
	constructor, ok := scenarioConstructors[name]
	if !ok {
		return nil, errors.Errorf("unknown scenario '%s' (available: %s)", name, strings.Join(Names(), ", "))
	}
	return constructor()
}

// Names returns the sorted names of all registered scenarios.
func Names() []string {
	names := maps.Keys(scenarioConstructors)
	slices.Sort(names)
	return names
}

// mustParseABI parses an ABI definition from its JSON encoding, panicking on malformed definitions. Scenario ABIs
// are compile-time constants so a parse failure is a programming error.
func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}
