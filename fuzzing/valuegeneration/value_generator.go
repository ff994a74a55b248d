package valuegeneration

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ValueGenerator represents an interface for a provider used to generate fuzzed values of different types for use
// in fuzzed call arguments.
type ValueGenerator interface {
	// GenerateAddress generates/selects an address to use when populating call inputs.
	GenerateAddress() common.Address

	// GenerateArrayOfLength generates/selects an array length to use when populating call inputs.
	GenerateArrayOfLength() int

	// GenerateBool generates/selects a bool to use when populating call inputs.
	GenerateBool() bool

	// GenerateBytes generates/selects a dynamic-sized byte array to use when populating call inputs.
	GenerateBytes() []byte

	// GenerateFixedBytes generates/selects a fixed-sized byte array of the given length to use when populating call
	// inputs.
	GenerateFixedBytes(length int) []byte

	// GenerateString generates/selects a string to use when populating call inputs.
	GenerateString() string

	// GenerateInteger generates/selects an integer of the provided properties to use when populating call inputs.
	GenerateInteger(signed bool, bitLength int) *big.Int
}
