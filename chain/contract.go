package chain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// HandlerFunc describes the implementation of a single contract method. Handlers receive a CallEnv for state access
// and the decoded input arguments, and return output values matching the method's ABI outputs. A returned error
// reverts the call with the error text as the revert reason; a panic inside a handler is treated as an interpreter
// bug and surfaces as an infrastructure error.
type HandlerFunc func(env *CallEnv, inputs []any) ([]any, error)

// ContractDefinition describes a contract deployable to a TestChain: its name, interface definition and the Go
// handlers backing each method.
type ContractDefinition struct {
	// Name describes the contract's name, used in traces and decoded counterexamples.
	Name string

	// ABI describes the contract's interface definition.
	ABI abi.ABI

	// Handlers maps ABI method names to their implementations. Every non-constant ABI method should have a handler;
	// calls to methods without one revert.
	Handlers map[string]HandlerFunc
}
