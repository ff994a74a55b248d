// Package contracts holds the fuzzing engine's view of callable contracts: targets whose methods are candidates for
// fuzzed calls, and the append-only registry tracking them across a campaign.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/slices"
)

// Target describes a deployed contract whose methods are candidates for fuzzed calls.
type Target struct {
	// Address describes the contract's deployed address.
	Address common.Address

	// Name describes the contract's name, used in decoded call sequences.
	Name string

	// ABI describes the contract's interface definition.
	ABI abi.ABI

	// candidateMethods caches the fuzzable subset of the ABI's methods, sorted by name for determinism.
	candidateMethods []abi.Method
}

// NewTarget creates a Target for a deployed contract, pre-computing its fuzzable methods.
func NewTarget(address common.Address, name string, contractABI abi.ABI) *Target {
	target := &Target{
		Address: address,
		Name:    name,
		ABI:     contractABI,
	}
	for _, method := range contractABI.Methods {
		if isCandidateMethod(method) {
			target.candidateMethods = append(target.candidateMethods, method)
		}
	}
	slices.SortFunc(target.candidateMethods, func(a abi.Method, b abi.Method) int {
		return strings.Compare(a.Name, b.Name)
	})
	return target
}

// CandidateMethods returns the target's fuzzable methods in a stable order.
func (t *Target) CandidateMethods() []abi.Method {
	return t.candidateMethods
}

// isCandidateMethod determines whether a method should receive fuzzed calls. Read-only methods cannot advance
// state, and invariant carriers and hooks are called by the engine itself, not the generator.
func isCandidateMethod(method abi.Method) bool {
	if method.StateMutability == "view" || method.StateMutability == "pure" || method.Constant {
		return false
	}
	if strings.HasPrefix(method.Name, "invariant_") || method.Name == "afterInvariant" {
		return false
	}
	return true
}
