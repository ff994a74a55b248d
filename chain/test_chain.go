package chain

import (
	"fmt"
	"math/big"

	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// InterpreterVersion describes the semantic version reported by the reference interpreter.
const InterpreterVersion = "1.2.0"

// TestChain is the reference in-memory interpreter. Contracts are Go handler functions registered under an ABI;
// state consists of named uint256 storage slots, native balances and sticky per-contract failure flags. A TestChain
// is single-threaded: every call blocks until it returns, and state mutation is strictly sequential.
type TestChain struct {
	// contracts maps deployed addresses to their definitions.
	contracts map[common.Address]*ContractDefinition

	// state describes the current mutable chain state.
	state *chainState

	// initialState describes the deep-copied state captured at Seal time. Clones are created from this snapshot.
	initialState *chainState

	// initialContracts describes the contract set captured at Seal time.
	initialContracts map[common.Address]*ContractDefinition

	// sealed indicates Seal has been called and the chain accepts calls.
	sealed bool

	// tracingMode describes how much side-channel information is collected per call.
	tracingMode chainTypes.TracingMode

	// deployNonce is incremented per deployment to derive deterministic contract addresses.
	deployNonce uint64
}

// NewTestChain creates a new, unsealed TestChain. Contracts and balances are set up before Seal is called; calls
// are only accepted afterwards.
func NewTestChain() *TestChain {
	return &TestChain{
		contracts:   make(map[common.Address]*ContractDefinition),
		state:       newChainState(),
		tracingMode: chainTypes.TracingBasic,
	}
}

// DeployContract deploys the provided contract definition at a deterministic address.
// Returns the deployed address, or an error if one occurred.
func (t *TestChain) DeployContract(definition *ContractDefinition) (common.Address, error) {
	return t.deploy(definition)
}

// deploy binds a definition to the next deterministic deployment address.
func (t *TestChain) deploy(definition *ContractDefinition) (common.Address, error) {
	if definition == nil || definition.Name == "" {
		return common.Address{}, errors.New("cannot deploy a contract without a definition and name")
	}
	address := deriveDeploymentAddress(definition.Name, t.deployNonce)
	t.deployNonce++
	if _, exists := t.contracts[address]; exists {
		return common.Address{}, errors.Errorf("deployment address collision at %s", address.String())
	}
	t.contracts[address] = definition
	return address, nil
}

// SetBalance sets the native balance of an address. Only valid before the chain is sealed.
func (t *TestChain) SetBalance(address common.Address, balance *uint256.Int) error {
	if t.sealed {
		return errors.New("cannot set balances on a sealed chain")
	}
	t.state.setBalance(address, balance)
	return nil
}

// Seal captures the chain's current contracts and state as the initial snapshot which Clone restores from, and
// begins accepting calls. Sealing twice is an error.
func (t *TestChain) Seal() error {
	if t.sealed {
		return errors.New("chain is already sealed")
	}
	t.initialState = t.state.clone()
	t.initialContracts = make(map[common.Address]*ContractDefinition, len(t.contracts))
	for address, definition := range t.contracts {
		t.initialContracts[address] = definition
	}
	t.sealed = true
	return nil
}

// Contract returns the definition deployed at the provided address, or nil if none is.
func (t *TestChain) Contract(address common.Address) *ContractDefinition {
	return t.contracts[address]
}

// SetTracing updates the amount of side-channel information collected per call.
func (t *TestChain) SetTracing(mode chainTypes.TracingMode) {
	t.tracingMode = mode
}

// Version returns the interpreter's semantic version string.
func (t *TestChain) Version() string {
	return InterpreterVersion
}

// Clone returns a fresh Executor seeded from this chain's sealed initial state. The clone carries the same tracing
// mode and shares no mutable state with this chain.
func (t *TestChain) Clone() (Executor, error) {
	if !t.sealed {
		return nil, errors.New("cannot clone an unsealed chain")
	}
	clone := &TestChain{
		contracts:   make(map[common.Address]*ContractDefinition, len(t.initialContracts)),
		state:       t.initialState.clone(),
		tracingMode: t.tracingMode,
		deployNonce: t.deployNonce,
	}
	for address, definition := range t.initialContracts {
		clone.contracts[address] = definition
	}
	// The clone's initial snapshot matches this chain's, so clones of clones reset to the same origin.
	clone.initialState = t.initialState.clone()
	clone.initialContracts = make(map[common.Address]*ContractDefinition, len(t.initialContracts))
	for address, definition := range t.initialContracts {
		clone.initialContracts[address] = definition
	}
	clone.sealed = true
	return clone, nil
}

// CallRaw executes a single call against the target contract, committing state on success and rolling back on
// revert. Undecodable calldata, unknown targets and handler panics are infrastructure errors; handler reverts are
// reported through the result.
func (t *TestChain) CallRaw(sender common.Address, target common.Address, calldata []byte, value *big.Int) (result *chainTypes.ExecutionResult, err error) {
	if !t.sealed {
		return nil, errors.New("cannot call an unsealed chain")
	}

	definition, ok := t.contracts[target]
	if !ok {
		// No contract at the target. This is a logical outcome, not an interpreter fault: sequences being shrunk
		// or replayed may legitimately call an address whose deployer call was removed.
		return &chainTypes.ExecutionResult{
			Reverted:       true,
			RevertReason:   fmt.Sprintf("no contract deployed at %s", target.String()),
			GasUsed:        gasCallBase,
			StateChangeset: make(chainTypes.StateChangeset),
		}, nil
	}
	if len(calldata) < 4 {
		return nil, errors.Errorf("calldata for %s is too short to carry a selector", definition.Name)
	}
	method, err := definition.ABI.MethodById(calldata[:4])
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve method on %s", definition.Name)
	}
	inputs, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode calldata for %s.%s", definition.Name, method.Sig)
	}
	handler, ok := definition.Handlers[method.Name]
	if !ok {
		return nil, errors.Errorf("contract %s has no handler for method '%s'", definition.Name, method.Name)
	}

	// Snapshot state and deployments so a revert can roll the whole call back.
	preState := t.state.clone()
	preDeployNonce := t.deployNonce
	preContracts := make(map[common.Address]*ContractDefinition, len(t.contracts))
	for address, def := range t.contracts {
		preContracts[address] = def
	}

	// Attach the call value.
	callValue := uint256.NewInt(0)
	if value != nil && value.Sign() > 0 {
		overflow := callValue.SetFromBig(value)
		if overflow {
			return nil, errors.New("call value does not fit in 256 bits")
		}
	}

	record := newCallRecord()
	var rootFrame *chainTypes.TraceFrame
	if t.tracingMode != chainTypes.TracingDisabled {
		rootFrame = &chainTypes.TraceFrame{
			Sender:       sender,
			Target:       target,
			ContractName: definition.Name,
			Method:       method.Sig,
			CallData:     append([]byte{}, calldata...),
		}
	}
	env := &CallEnv{
		chain:  t,
		Sender: sender,
		Self:   target,
		Value:  callValue,
		frame:  rootFrame,
		record: record,
	}

	// Transfer the attached value before the handler runs.
	var handlerErr error
	if !callValue.IsZero() {
		senderBalance := t.state.getBalance(sender)
		if senderBalance.Lt(callValue) {
			handlerErr = errors.Errorf("call value %s exceeds sender balance %s", callValue.String(), senderBalance.String())
		} else {
			t.state.setBalance(sender, new(uint256.Int).Sub(senderBalance, callValue))
			t.state.setBalance(target, new(uint256.Int).Add(t.state.getBalance(target), callValue))
			record.balanceChanges[sender] = struct{}{}
			record.balanceChanges[target] = struct{}{}
		}
	}

	// Run the handler, converting panics into infrastructure errors.
	var outputs []any
	if handlerErr == nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("interpreter fault in %s.%s: %v", definition.Name, method.Name, r)
				}
			}()
			outputs, handlerErr = handler(env, inputs)
		}()
		if err != nil {
			// Restore pre-call state before surfacing the fault.
			t.state = preState
			t.contracts = preContracts
			t.deployNonce = preDeployNonce
			return nil, err
		}
	}

	result = &chainTypes.ExecutionResult{
		GasUsed:      record.gasUsed,
		Logs:         record.logs,
		LineCoverage: record.coverage,
		SideChannel:  t.buildSideChannel(record, rootFrame),
	}

	if handlerErr != nil {
		// Revert: roll back state, storage and deployments made during the call.
		t.state = preState
		t.contracts = preContracts
		t.deployNonce = preDeployNonce
		result.Reverted = true
		result.RevertReason = handlerErr.Error()
		result.Logs = nil
		result.LineCoverage = nil
		result.StateChangeset = make(chainTypes.StateChangeset)
		if rootFrame != nil {
			rootFrame.Reverted = true
			rootFrame.RevertReason = handlerErr.Error()
			rootFrame.Created = nil
			result.Trace = &chainTypes.CallTrace{Root: rootFrame}
		}
		return result, nil
	}

	// Pack return data from the handler outputs.
	if len(method.Outputs) > 0 {
		returnData, packErr := method.Outputs.Pack(outputs...)
		if packErr != nil {
			return nil, errors.Wrapf(packErr, "handler for %s.%s returned values not matching its ABI outputs", definition.Name, method.Name)
		}
		result.ReturnData = returnData
		if rootFrame != nil {
			rootFrame.ReturnData = returnData
		}
	}

	result.StateChangeset = t.buildChangeset(record)
	if rootFrame != nil {
		result.Trace = &chainTypes.CallTrace{Root: rootFrame}
	} else if len(record.created) > 0 {
		// Tracing is disabled but discovery must still see creations; surface them through a minimal trace.
		result.Trace = &chainTypes.CallTrace{Root: &chainTypes.TraceFrame{
			Sender:  sender,
			Target:  target,
			Created: record.created,
		}}
	}
	return result, nil
}

// IsSuccess determines whether the contract at the provided address is in a succeeding state, consulting the last
// call's changeset first and the chain's sticky failure flags second. If shouldFail is set, the check is inverted.
func (t *TestChain) IsSuccess(address common.Address, changeset chainTypes.StateChangeset, result *chainTypes.ExecutionResult, shouldFail bool) bool {
	failed := t.state.isFailed(address)
	if delta, ok := changeset[address]; ok && delta.Failed {
		failed = true
	}
	success := !failed
	if shouldFail {
		success = !success
	}
	return success
}

// buildChangeset derives the post-call account deltas from the side effects recorded during the call.
func (t *TestChain) buildChangeset(record *callRecord) chainTypes.StateChangeset {
	changeset := make(chainTypes.StateChangeset)
	delta := func(address common.Address) *chainTypes.AccountDelta {
		d, ok := changeset[address]
		if !ok {
			d = &chainTypes.AccountDelta{Slots: make(map[string]*uint256.Int)}
			changeset[address] = d
		}
		return d
	}

	for address, writes := range record.slotWrites {
		d := delta(address)
		for key := range writes {
			d.Slots[key] = t.state.getSlot(address, key)
		}
	}
	for address := range record.balanceChanges {
		delta(address).Balance = t.state.getBalance(address)
	}
	for address := range record.failRaised {
		delta(address).Failed = true
	}
	return changeset
}

// buildSideChannel assembles the capability-tagged collaborator outputs for a call.
func (t *TestChain) buildSideChannel(record *callRecord, rootFrame *chainTypes.TraceFrame) map[string]any {
	sideChannel := make(map[string]any)
	if len(record.coverage) > 0 {
		sideChannel["coverage"] = record.coverage.HitCount()
	}
	if rootFrame != nil {
		sideChannel["tracer"] = t.tracingMode
	}
	if len(record.failRaised) > 0 {
		sideChannel["failflag"] = len(record.failRaised)
	}
	return sideChannel
}
