// Package fuzzing orchestrates invariant fuzzing campaigns: generating call sequences against registered target
// contracts, classifying each call's outcome against the campaign's invariant, and minimizing and replaying any
// failure found.
package fuzzing

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// afterInvariantMethodName is the reserved name of the optional hook called once after a failing invariant has been
// replayed.
const afterInvariantMethodName = "afterInvariant"

// InvariantContract describes the contract carrying the invariant a campaign checks: its deployed address, name and
// the resolved invariant method, plus the optional afterInvariant hook.
type InvariantContract struct {
	// Address describes the deployed address of the invariant carrier.
	Address common.Address

	// Name describes the carrier contract's name.
	Name string

	// InvariantMethod describes the ABI method asserted after every fuzzed call.
	InvariantMethod abi.Method

	// AfterInvariantMethod describes the hook called once after a failure is replayed, or nil when the carrier
	// defines none.
	AfterInvariantMethod *abi.Method
}

// NewInvariantContract resolves an invariant carrier from a contract's ABI. The invariant method must exist and
// take no inputs. When callAfterInvariant is set, the contract must also define the afterInvariant hook.
// Returns the invariant contract, or an error if resolution failed.
func NewInvariantContract(address common.Address, name string, contractABI abi.ABI, invariantMethodName string, callAfterInvariant bool) (*InvariantContract, error) {
	method, ok := contractABI.Methods[invariantMethodName]
	if !ok {
		return nil, errors.Errorf("contract %s defines no invariant method '%s'", name, invariantMethodName)
	}
	if len(method.Inputs) > 0 {
		return nil, errors.Errorf("invariant method %s.%s must not take inputs", name, invariantMethodName)
	}

	invariantContract := &InvariantContract{
		Address:         address,
		Name:            name,
		InvariantMethod: method,
	}
	if callAfterInvariant {
		hook, ok := contractABI.Methods[afterInvariantMethodName]
		if !ok {
			return nil, errors.Errorf("contract %s defines no '%s' hook", name, afterInvariantMethodName)
		}
		if len(hook.Inputs) > 0 {
			return nil, errors.Errorf("hook %s.%s must not take inputs", name, afterInvariantMethodName)
		}
		invariantContract.AfterInvariantMethod = &hook
	}
	return invariantContract, nil
}
