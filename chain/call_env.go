package chain

import (
	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Synthetic gas costs charged by the reference interpreter.
const (
	gasCallBase   = 21000
	gasLineMark   = 17
	gasSlotWrite  = 5000
	gasLogEmit    = 375
	gasTransfer   = 9000
	gasDeployBase = 32000
)

// CallEnv provides a handler with access to interpreter state for the duration of one call frame. All mutations made
// through a CallEnv are rolled back if the frame reverts.
type CallEnv struct {
	// chain describes the TestChain this frame executes on.
	chain *TestChain

	// Sender describes the address which initiated this frame's call.
	Sender common.Address

	// Self describes the address of the contract executing in this frame.
	Self common.Address

	// Value describes the native value attached to this frame's call.
	Value *uint256.Int

	// depth describes the frame nesting depth; the top-level call is at depth zero.
	depth int

	// frame describes the trace frame being recorded for this call, or nil when frame tracing is disabled.
	frame *chainTypes.TraceFrame

	// record accumulates call-wide side effects (writes, logs, coverage, creations) shared by all frames of one
	// top-level call.
	record *callRecord
}

// callRecord accumulates side effects across all frames of one top-level call so the chain can derive a changeset
// and roll mutations back on revert.
type callRecord struct {
	// slotWrites tracks which storage slots were written, per address.
	slotWrites map[common.Address]map[string]struct{}

	// balanceChanges tracks which account balances were modified.
	balanceChanges map[common.Address]struct{}

	// failRaised tracks which contracts had their failure flag raised.
	failRaised map[common.Address]struct{}

	// created lists contracts deployed during the call, in deployment order.
	created []*chainTypes.CreatedContract

	// logs lists events emitted during the call, in emission order.
	logs []chainTypes.Log

	// coverage accumulates handler line hits for this call.
	coverage chainTypes.LineCoverage

	// gasUsed accumulates the synthetic gas charged so far.
	gasUsed uint64
}

// newCallRecord creates an empty side effect record for one top-level call.
func newCallRecord() *callRecord {
	return &callRecord{
		slotWrites:     make(map[common.Address]map[string]struct{}),
		balanceChanges: make(map[common.Address]struct{}),
		failRaised:     make(map[common.Address]struct{}),
		created:        make([]*chainTypes.CreatedContract, 0),
		logs:           make([]chainTypes.Log, 0),
		coverage:       make(chainTypes.LineCoverage),
		gasUsed:        gasCallBase,
	}
}

// GetSlot returns a copy of the current value of the named storage slot of the executing contract. Unset slots read
// as zero.
func (env *CallEnv) GetSlot(key string) *uint256.Int {
	return env.chain.state.getSlot(env.Self, key)
}

// SetSlot writes the named storage slot of the executing contract.
func (env *CallEnv) SetSlot(key string, value *uint256.Int) {
	env.chain.state.setSlot(env.Self, key, value)
	writes, ok := env.record.slotWrites[env.Self]
	if !ok {
		writes = make(map[string]struct{})
		env.record.slotWrites[env.Self] = writes
	}
	writes[key] = struct{}{}
	env.record.gasUsed += gasSlotWrite
}

// Balance returns a copy of the current native balance of the provided address.
func (env *CallEnv) Balance(address common.Address) *uint256.Int {
	return env.chain.state.getBalance(address)
}

// Transfer moves native value from the executing contract to the provided address. Returns an error (reverting the
// call if propagated) when the executing contract's balance is insufficient.
func (env *CallEnv) Transfer(to common.Address, amount *uint256.Int) error {
	fromBalance := env.chain.state.getBalance(env.Self)
	if fromBalance.Lt(amount) {
		return errors.Errorf("transfer of %s exceeds balance %s", amount.String(), fromBalance.String())
	}
	env.chain.state.setBalance(env.Self, new(uint256.Int).Sub(fromBalance, amount))
	env.chain.state.setBalance(to, new(uint256.Int).Add(env.chain.state.getBalance(to), amount))
	env.record.balanceChanges[env.Self] = struct{}{}
	env.record.balanceChanges[to] = struct{}{}
	env.record.gasUsed += gasTransfer
	return nil
}

// EmitLog records an event emitted by the executing contract.
func (env *CallEnv) EmitLog(event string, values ...any) {
	log := chainTypes.Log{
		Emitter: env.Self,
		Event:   event,
		Values:  values,
	}
	env.record.logs = append(env.record.logs, log)
	if env.frame != nil {
		env.frame.Logs = append(env.frame.Logs, log)
	}
	env.record.gasUsed += gasLogEmit
}

// Fail raises the failure flag of the executing contract, marking it as being in a failed state for subsequent
// success checks.
func (env *CallEnv) Fail() {
	env.chain.state.setFailed(env.Self)
	env.record.failRaised[env.Self] = struct{}{}
}

// MarkLine records a hit of the provided handler line identifier for coverage accounting.
func (env *CallEnv) MarkLine(line int) {
	lines, ok := env.record.coverage[env.Self]
	if !ok {
		lines = make(map[int]uint64)
		env.record.coverage[env.Self] = lines
	}
	lines[line]++
	env.record.gasUsed += gasLineMark
}

// Deploy deploys a new contract to the chain at a deterministic address derived from the deployer and the chain's
// deployment nonce. The creation is recorded in the call trace so that discovery can target the new contract.
// Returns the deployed address, or an error if one occurred.
func (env *CallEnv) Deploy(definition *ContractDefinition) (common.Address, error) {
	address, err := env.chain.deploy(definition)
	if err != nil {
		return common.Address{}, err
	}

	created := &chainTypes.CreatedContract{
		Address: address,
		Name:    definition.Name,
		ABI:     definition.ABI,
	}
	env.record.created = append(env.record.created, created)
	if env.frame != nil {
		env.frame.Created = append(env.frame.Created, created)
	}
	env.record.gasUsed += gasDeployBase
	return address, nil
}

// Call executes a method of another deployed contract within this call, sharing this call's side effect record.
// A revert in the callee propagates to the caller as an error. Returns the callee's decoded outputs.
func (env *CallEnv) Call(target common.Address, method string, args ...any) ([]any, error) {
	definition, ok := env.chain.contracts[target]
	if !ok {
		return nil, errors.Errorf("call to unknown contract at %s", target.String())
	}
	abiMethod, ok := definition.ABI.Methods[method]
	if !ok {
		return nil, errors.Errorf("contract %s has no method '%s'", definition.Name, method)
	}
	handler, ok := definition.Handlers[method]
	if !ok {
		return nil, errors.Errorf("contract %s has no handler for method '%s'", definition.Name, method)
	}

	// Record a child frame when frame tracing is enabled.
	var childFrame *chainTypes.TraceFrame
	if env.frame != nil {
		calldata, err := abiMethod.Inputs.Pack(args...)
		if err != nil {
			return nil, errors.Wrap(err, "could not pack inner call arguments")
		}
		childFrame = &chainTypes.TraceFrame{
			Depth:        env.depth + 1,
			Sender:       env.Self,
			Target:       target,
			ContractName: definition.Name,
			Method:       abiMethod.Sig,
			CallData:     append(abiMethod.ID, calldata...),
		}
		env.frame.Children = append(env.frame.Children, childFrame)
	}

	childEnv := &CallEnv{
		chain:  env.chain,
		Sender: env.Self,
		Self:   target,
		Value:  uint256.NewInt(0),
		depth:  env.depth + 1,
		frame:  childFrame,
		record: env.record,
	}
	outputs, err := handler(childEnv, args)
	if childFrame != nil && err != nil {
		childFrame.Reverted = true
		childFrame.RevertReason = err.Error()
	}
	return outputs, err
}

// deriveDeploymentAddress computes a deterministic contract address from a name and deployment nonce.
func deriveDeploymentAddress(name string, nonce uint64) common.Address {
	nonceBytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		nonceBytes[i] = byte(nonce >> (8 * (7 - i)))
	}
	hash := crypto.Keccak256([]byte(name), nonceBytes)
	return common.BytesToAddress(hash[12:])
}
