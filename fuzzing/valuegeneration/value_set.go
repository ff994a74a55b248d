// Package valuegeneration provides fuzzed value generation for ABI-typed method arguments, a value set of
// "interesting" values harvested during a campaign, and shrinking primitives which simplify values toward canonical
// minimal forms.
package valuegeneration

import (
	"math/big"

	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ValueSet represents potential values of significance within the source code to be used in fuzz tests.
type ValueSet struct {
	// integers represents a set of integers.
	integers map[string]*big.Int
	// strings represents a set of strings.
	strings map[string]any
	// bytes represents a set of byte arrays.
	bytes map[string][]byte
	// addresses represents a set of addresses.
	addresses map[common.Address]any
}

// NewValueSet initializes a new ValueSet object for use with a fuzzing campaign.
func NewValueSet() *ValueSet {
	baseValueSet := &ValueSet{
		integers:  make(map[string]*big.Int),
		strings:   make(map[string]any),
		bytes:     make(map[string][]byte),
		addresses: make(map[common.Address]any),
	}

	// Seed canonical boundary values.
	baseValueSet.AddInteger(big.NewInt(0))
	baseValueSet.AddInteger(big.NewInt(1))
	baseValueSet.AddInteger(big.NewInt(2))
	baseValueSet.AddInteger(big.NewInt(-1))
	baseValueSet.AddAddress(common.Address{})
	return baseValueSet
}

// Clone creates a copy of the current ValueSet.
func (vs *ValueSet) Clone() *ValueSet {
	clone := &ValueSet{
		integers:  make(map[string]*big.Int, len(vs.integers)),
		strings:   make(map[string]any, len(vs.strings)),
		bytes:     make(map[string][]byte, len(vs.bytes)),
		addresses: make(map[common.Address]any, len(vs.addresses)),
	}
	for k, v := range vs.integers {
		clone.integers[k] = v
	}
	for k, v := range vs.strings {
		clone.strings[k] = v
	}
	for k, v := range vs.bytes {
		clone.bytes[k] = v
	}
	for k, v := range vs.addresses {
		clone.addresses[k] = v
	}
	return clone
}

// AddInteger adds an integer item to the ValueSet.
func (vs *ValueSet) AddInteger(b *big.Int) {
	vs.integers[b.String()] = b
}

// Integers returns the integer items within the ValueSet.
func (vs *ValueSet) Integers() []*big.Int {
	res := make([]*big.Int, len(vs.integers))
	count := 0
	for _, v := range vs.integers {
		res[count] = v
		count++
	}
	return res
}

// AddAddress adds an address item to the ValueSet.
func (vs *ValueSet) AddAddress(a common.Address) {
	vs.addresses[a] = nil
}

// Addresses returns the address items within the ValueSet.
func (vs *ValueSet) Addresses() []common.Address {
	res := make([]common.Address, len(vs.addresses))
	count := 0
	for k := range vs.addresses {
		res[count] = k
		count++
	}
	return res
}

// AddString adds a string item to the ValueSet.
func (vs *ValueSet) AddString(s string) {
	vs.strings[s] = nil
}

// Strings returns the string items within the ValueSet.
func (vs *ValueSet) Strings() []string {
	res := make([]string, len(vs.strings))
	count := 0
	for k := range vs.strings {
		res[count] = k
		count++
	}
	return res
}

// AddBytes adds a byte sequence to the ValueSet, deduplicated under its keccak hash.
func (vs *ValueSet) AddBytes(b []byte) {
	// Calculate hash and reduce length for key
	hash := sha3.NewLegacyKeccak256()
	hash.Write(b)
	hashStr := string(hash.Sum(nil))

	vs.bytes[hashStr] = b
}

// Bytes returns the byte sequence items within the ValueSet.
func (vs *ValueSet) Bytes() [][]byte {
	res := make([][]byte, len(vs.bytes))
	count := 0
	for _, v := range vs.bytes {
		res[count] = v
		count++
	}
	return res
}

// AddExecutionResult harvests interesting values (emitted log values, touched addresses, written slot values) from
// an execution result into the ValueSet.
func (vs *ValueSet) AddExecutionResult(result *chainTypes.ExecutionResult) {
	if result == nil {
		return
	}
	for _, log := range result.Logs {
		vs.AddAddress(log.Emitter)
		for _, value := range log.Values {
			switch v := value.(type) {
			case *big.Int:
				vs.AddInteger(new(big.Int).Set(v))
			case common.Address:
				vs.AddAddress(v)
			case string:
				vs.AddString(v)
			case []byte:
				vs.AddBytes(v)
			}
		}
	}
	for address, delta := range result.StateChangeset {
		vs.AddAddress(address)
		for _, slotValue := range delta.Slots {
			vs.AddInteger(slotValue.ToBig())
		}
		if delta.Balance != nil {
			vs.AddInteger(delta.Balance.ToBig())
		}
	}
}
