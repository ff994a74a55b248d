package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// chainState describes the full mutable state of a TestChain: native balances, per-contract storage slots and
// per-contract failure flags.
type chainState struct {
	// balances maps addresses to native balances.
	balances map[common.Address]*uint256.Int

	// storage maps contract addresses to their named storage slots.
	storage map[common.Address]map[string]*uint256.Int

	// failed tracks contracts whose failure flag has been raised.
	failed map[common.Address]bool
}

// newChainState creates an empty chain state.
func newChainState() *chainState {
	return &chainState{
		balances: make(map[common.Address]*uint256.Int),
		storage:  make(map[common.Address]map[string]*uint256.Int),
		failed:   make(map[common.Address]bool),
	}
}

// clone creates a deep copy of the chain state.
func (s *chainState) clone() *chainState {
	c := newChainState()
	for address, balance := range s.balances {
		c.balances[address] = new(uint256.Int).Set(balance)
	}
	for address, slots := range s.storage {
		cloned := make(map[string]*uint256.Int, len(slots))
		for key, value := range slots {
			cloned[key] = new(uint256.Int).Set(value)
		}
		c.storage[address] = cloned
	}
	for address, failed := range s.failed {
		c.failed[address] = failed
	}
	return c
}

// getBalance returns a copy of the balance of the provided address. Unknown addresses read as zero.
func (s *chainState) getBalance(address common.Address) *uint256.Int {
	if balance, ok := s.balances[address]; ok {
		return new(uint256.Int).Set(balance)
	}
	return uint256.NewInt(0)
}

// setBalance updates the balance of the provided address.
func (s *chainState) setBalance(address common.Address, balance *uint256.Int) {
	s.balances[address] = new(uint256.Int).Set(balance)
}

// getSlot returns a copy of the value of a named storage slot. Unset slots read as zero.
func (s *chainState) getSlot(address common.Address, key string) *uint256.Int {
	if slots, ok := s.storage[address]; ok {
		if value, ok := slots[key]; ok {
			return new(uint256.Int).Set(value)
		}
	}
	return uint256.NewInt(0)
}

// setSlot writes a named storage slot.
func (s *chainState) setSlot(address common.Address, key string, value *uint256.Int) {
	slots, ok := s.storage[address]
	if !ok {
		slots = make(map[string]*uint256.Int)
		s.storage[address] = slots
	}
	slots[key] = new(uint256.Int).Set(value)
}

// setFailed raises the failure flag of the provided contract. Flags are sticky for the lifetime of the state.
func (s *chainState) setFailed(address common.Address) {
	s.failed[address] = true
}

// isFailed returns whether the failure flag of the provided contract is raised.
func (s *chainState) isFailed(address common.Address) bool {
	return s.failed[address]
}
