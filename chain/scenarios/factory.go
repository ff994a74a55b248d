package scenarios

import (
	"fmt"
	"math/big"

	"github.com/crytic/gorgon/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Caps enforced by the factory scenario's revert guards. The guards keep the invariant true while producing
// tolerated reverts once either cap is reached.
const (
	factoryCounterCap = 4
	counterCountCap   = 1000
)

// factoryABI describes a factory which deploys counters on demand, capped by a revert guard.
const factoryABI = `[
	{"type": "function", "name": "createCounter", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"type": "function", "name": "createdCount", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
	{"type": "function", "name": "counterAt", "stateMutability": "view", "inputs": [{"name": "index", "type": "uint256"}], "outputs": [{"name": "", "type": "address"}]}
]`

// counterABI describes a bounded counter deployed by the factory.
const counterABI = `[
	{"type": "function", "name": "increment", "stateMutability": "nonpayable", "inputs": [], "outputs": []},
	{"type": "function", "name": "decrement", "stateMutability": "nonpayable", "inputs": [], "outputs": []},
	{"type": "function", "name": "count", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]}
]`

// factoryTestABI describes the invariant carrier for the factory scenario.
const factoryTestABI = `[
	{"type": "function", "name": "invariant_capsHold", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "", "type": "bool"}]}
]`

// newCounterContract creates a bounded counter definition.
func newCounterContract() *chain.ContractDefinition {
	return &chain.ContractDefinition{
		Name: "Counter",
		ABI:  mustParseABI(counterABI),
		Handlers: map[string]chain.HandlerFunc{
			"increment": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				env.MarkLine(1)
				count := env.GetSlot("count")
				if count.CmpUint64(counterCountCap) >= 0 {
					return nil, errors.New("counter: cap reached")
				}
				env.SetSlot("count", new(uint256.Int).AddUint64(count, 1))
				return nil, nil
			},
			"decrement": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				env.MarkLine(2)
				count := env.GetSlot("count")
				if count.IsZero() {
					return nil, errors.New("counter: underflow")
				}
				env.SetSlot("count", new(uint256.Int).SubUint64(count, 1))
				return nil, nil
			},
			"count": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return []any{env.GetSlot("count").ToBig()}, nil
			},
		},
	}
}

// newFactoryContract creates the factory definition. Deployed counter addresses are recorded in indexed storage
// slots so the invariant can walk them.
func newFactoryContract() *chain.ContractDefinition {
	return &chain.ContractDefinition{
		Name: "Factory",
		ABI:  mustParseABI(factoryABI),
		Handlers: map[string]chain.HandlerFunc{
			"createCounter": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				env.MarkLine(1)
				created := env.GetSlot("created")
				if created.CmpUint64(factoryCounterCap) >= 0 {
					return nil, errors.New("factory: counter cap reached")
				}
				address, err := env.Deploy(newCounterContract())
				if err != nil {
					return nil, err
				}
				env.SetSlot(fmt.Sprintf("counter.%d", created.Uint64()), new(uint256.Int).SetBytes(address.Bytes()))
				env.SetSlot("created", new(uint256.Int).AddUint64(created, 1))
				env.EmitLog("CounterCreated", address)
				return []any{address}, nil
			},
			"createdCount": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return []any{env.GetSlot("created").ToBig()}, nil
			},
			"counterAt": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				index := uint256.MustFromBig(inputs[0].(*big.Int))
				if index.Cmp(env.GetSlot("created")) >= 0 {
					return nil, errors.New("factory: index out of range")
				}
				stored := env.GetSlot(fmt.Sprintf("counter.%d", index.Uint64()))
				return []any{common.BytesToAddress(stored.Bytes())}, nil
			},
		},
	}
}

// newFactoryTestContract creates the invariant carrier checking the factory at the provided address. The invariant
// holds as long as the factory and counter revert guards work.
func newFactoryTestContract(factory common.Address) *chain.ContractDefinition {
	return &chain.ContractDefinition{
		Name: "FactoryTest",
		ABI:  mustParseABI(factoryTestABI),
		Handlers: map[string]chain.HandlerFunc{
			"invariant_capsHold": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				createdOutputs, err := env.Call(factory, "createdCount")
				if err != nil {
					return nil, err
				}
				created := createdOutputs[0].(*big.Int)
				if created.Cmp(big.NewInt(factoryCounterCap)) > 0 {
					env.Fail()
					return []any{false}, nil
				}
				for i := int64(0); i < created.Int64(); i++ {
					addressOutputs, err := env.Call(factory, "counterAt", big.NewInt(i))
					if err != nil {
						return nil, err
					}
					countOutputs, err := env.Call(addressOutputs[0].(common.Address), "count")
					if err != nil {
						return nil, err
					}
					if countOutputs[0].(*big.Int).Cmp(big.NewInt(counterCountCap)) > 0 {
						env.Fail()
						return []any{false}, nil
					}
				}
				return []any{true}, nil
			},
		},
	}
}

// newFactoryScenario deploys a counter factory whose children are created mid-campaign, exercising discovery of
// newly deployed contracts and tolerated reverts from the cap guards. The caps-hold invariant is expected to pass.
func newFactoryScenario() (*Scenario, error) {
	testChain := chain.NewTestChain()
	factoryAddress, err := testChain.DeployContract(newFactoryContract())
	if err != nil {
		return nil, err
	}
	testAddress, err := testChain.DeployContract(newFactoryTestContract(factoryAddress))
	if err != nil {
		return nil, err
	}
	if err = testChain.Seal(); err != nil {
		return nil, err
	}

	return &Scenario{
		Name:            "factory",
		Description:     "counter factory with capped deployments; exercises runtime contract discovery and tolerated reverts",
		Chain:           testChain,
		TestAddress:     testAddress,
		InvariantMethod: "invariant_capsHold",
		TargetAddresses: []common.Address{factoryAddress},
	}, nil
}
