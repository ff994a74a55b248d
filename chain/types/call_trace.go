package types

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// CallTrace describes the recorded execution of one top-level call, as a tree of call frames.
type CallTrace struct {
	// Root describes the top-level frame of the traced call.
	Root *TraceFrame
}

// TraceFrame describes one call frame recorded during execution.
type TraceFrame struct {
	// Depth describes the nesting depth of this frame; the top-level call is at depth zero.
	Depth int

	// Sender describes the address which initiated this frame's call.
	Sender common.Address

	// Target describes the address of the contract executing in this frame.
	Target common.Address

	// ContractName describes the name of the target contract, if known to the interpreter.
	ContractName string

	// Method describes the canonical signature of the method executing in this frame, if resolved.
	Method string

	// CallData describes the raw calldata provided to this frame.
	CallData []byte

	// Reverted indicates this frame reverted.
	Reverted bool

	// RevertReason describes the revert reason of this frame, if it reverted with one.
	RevertReason string

	// ReturnData describes the raw return data of this frame.
	ReturnData []byte

	// Logs describes log events emitted within this frame (excluding child frames).
	Logs []Log

	// Created describes contracts deployed within this frame. Registry discovery walks these entries.
	Created []*CreatedContract

	// Children describes nested frames spawned by this frame, in call order.
	Children []*TraceFrame
}

// CreatedContract describes a contract deployed dynamically during execution, carrying enough definition for it to
// be targeted by subsequent fuzzed calls.
type CreatedContract struct {
	// Address describes the address the contract was deployed to.
	Address common.Address

	// Name describes the contract's name.
	Name string

	// ABI describes the contract's interface definition.
	ABI abi.ABI
}

// CreatedContracts walks the trace and returns every contract creation recorded in it, in discovery order.
func (t *CallTrace) CreatedContracts() []*CreatedContract {
	if t == nil || t.Root == nil {
		return nil
	}
	return t.Root.createdContracts()
}

// createdContracts returns the contract creations recorded in this frame and all child frames.
func (f *TraceFrame) createdContracts() []*CreatedContract {
	created := make([]*CreatedContract, 0, len(f.Created))
	created = append(created, f.Created...)
	for _, child := range f.Children {
		created = append(created, child.createdContracts()...)
	}
	return created
}
