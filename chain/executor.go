package chain

import (
	"math/big"

	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/ethereum/go-ethereum/common"
)

// Executor describes the interpreter surface the fuzzing engine drives. Every call blocks until the interpreter
// returns and may mutate interpreter state. Errors returned by an Executor are infrastructure errors; logical
// failures (reverts, failed predicates) are reported through the ExecutionResult instead.
type Executor interface {
	// CallRaw executes a single call from the provided sender against the target contract with the given calldata
	// and value, committing any resulting state changes. Returns the execution result, or an error if the
	// interpreter itself failed.
	CallRaw(sender common.Address, target common.Address, calldata []byte, value *big.Int) (*chainTypes.ExecutionResult, error)

	// IsSuccess determines whether the contract at the provided address is in a succeeding state, given the
	// changeset and result of the last executed call. If shouldFail is set, the check is inverted.
	IsSuccess(address common.Address, changeset chainTypes.StateChangeset, result *chainTypes.ExecutionResult, shouldFail bool) bool

	// SetTracing updates the amount of side-channel information collected per call.
	SetTracing(mode chainTypes.TracingMode)

	// Clone returns a fresh Executor whose state matches this executor's initial (sealed) state. Mutations applied
	// to the clone never leak into this executor or other clones.
	Clone() (Executor, error)

	// Version returns the interpreter's semantic version string.
	Version() string
}
