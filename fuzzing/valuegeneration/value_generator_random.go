package valuegeneration

import (
	"math/big"
	"math/rand"

	"github.com/crytic/gorgon/utils"
	"github.com/ethereum/go-ethereum/common"
)

// RandomValueGeneratorConfig defines the operating parameters for a RandomValueGenerator.
type RandomValueGeneratorConfig struct {
	// GenerateRandomArrayMinSize defines the minimum size which a generated array should be.
	GenerateRandomArrayMinSize int
	// GenerateRandomArrayMaxSize defines the maximum size which a generated array should be.
	GenerateRandomArrayMaxSize int
	// GenerateRandomBytesMinSize defines the minimum size which a generated dynamic-sized byte array should be.
	GenerateRandomBytesMinSize int
	// GenerateRandomBytesMaxSize defines the maximum size which a generated dynamic-sized byte array should be.
	GenerateRandomBytesMaxSize int
	// GenerateRandomStringMinSize defines the minimum size which a generated string should be.
	GenerateRandomStringMinSize int
	// GenerateRandomStringMaxSize defines the maximum size which a generated string should be.
	GenerateRandomStringMaxSize int
	// ValueSetProbability defines the probability (over 100) that a generated value is drawn from the campaign's
	// value set rather than generated randomly, when the value set holds a candidate of the right type.
	ValueSetProbability int
}

// DefaultRandomValueGeneratorConfig returns the generator parameters used when none are provided.
func DefaultRandomValueGeneratorConfig() *RandomValueGeneratorConfig {
	return &RandomValueGeneratorConfig{
		GenerateRandomArrayMinSize:  0,
		GenerateRandomArrayMaxSize:  4,
		GenerateRandomBytesMinSize:  0,
		GenerateRandomBytesMaxSize:  64,
		GenerateRandomStringMinSize: 0,
		GenerateRandomStringMaxSize: 64,
		ValueSetProbability:         33,
	}
}

// RandomValueGenerator generates fuzzed values randomly, optionally biased toward values harvested into the
// campaign's value set.
type RandomValueGenerator struct {
	// config describes the operating parameters of the generator.
	config *RandomValueGeneratorConfig

	// valueSet describes the set of interesting values sampled from, or nil for purely random generation.
	valueSet *ValueSet

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
}

// NewRandomValueGenerator creates a RandomValueGenerator using the provided seeded random provider.
func NewRandomValueGenerator(config *RandomValueGeneratorConfig, valueSet *ValueSet, randomProvider *rand.Rand) *RandomValueGenerator {
	if config == nil {
		config = DefaultRandomValueGeneratorConfig()
	}
	return &RandomValueGenerator{
		config:         config,
		valueSet:       valueSet,
		randomProvider: randomProvider,
	}
}

// useValueSet determines whether the next value should be drawn from the value set.
func (g *RandomValueGenerator) useValueSet() bool {
	return g.valueSet != nil && g.randomProvider.Intn(100) < g.config.ValueSetProbability
}

// GenerateAddress generates a random address to use when populating call inputs.
func (g *RandomValueGenerator) GenerateAddress() common.Address {
	if g.useValueSet() {
		if addresses := g.valueSet.Addresses(); len(addresses) > 0 {
			return addresses[g.randomProvider.Intn(len(addresses))]
		}
	}
	addressBytes := make([]byte, common.AddressLength)
	g.randomProvider.Read(addressBytes)
	return common.BytesToAddress(addressBytes)
}

// GenerateArrayOfLength generates a random array length within the generator's configured bounds.
func (g *RandomValueGenerator) GenerateArrayOfLength() int {
	rangeSize := g.config.GenerateRandomArrayMaxSize - g.config.GenerateRandomArrayMinSize + 1
	return g.config.GenerateRandomArrayMinSize + g.randomProvider.Intn(rangeSize)
}

// GenerateBool generates a random bool to use when populating call inputs.
func (g *RandomValueGenerator) GenerateBool() bool {
	return g.randomProvider.Uint32()%2 == 0
}

// GenerateBytes generates a random dynamic-sized byte array to use when populating call inputs.
func (g *RandomValueGenerator) GenerateBytes() []byte {
	if g.useValueSet() {
		if byteValues := g.valueSet.Bytes(); len(byteValues) > 0 {
			return byteValues[g.randomProvider.Intn(len(byteValues))]
		}
	}
	rangeSize := g.config.GenerateRandomBytesMaxSize - g.config.GenerateRandomBytesMinSize + 1
	b := make([]byte, g.config.GenerateRandomBytesMinSize+g.randomProvider.Intn(rangeSize))
	g.randomProvider.Read(b)
	return b
}

// GenerateFixedBytes generates a random fixed-sized byte array to use when populating call inputs.
func (g *RandomValueGenerator) GenerateFixedBytes(length int) []byte {
	b := make([]byte, length)
	g.randomProvider.Read(b)
	return b
}

// GenerateString generates a random string to use when populating call inputs.
func (g *RandomValueGenerator) GenerateString() string {
	if g.useValueSet() {
		if stringValues := g.valueSet.Strings(); len(stringValues) > 0 {
			return stringValues[g.randomProvider.Intn(len(stringValues))]
		}
	}
	rangeSize := g.config.GenerateRandomStringMaxSize - g.config.GenerateRandomStringMinSize + 1
	b := make([]byte, g.config.GenerateRandomStringMinSize+g.randomProvider.Intn(rangeSize))
	for i := range b {
		// Printable ASCII only.
		b[i] = byte(32 + g.randomProvider.Intn(95))
	}
	return string(b)
}

// GenerateInteger generates a random integer of the provided properties to use when populating call inputs.
func (g *RandomValueGenerator) GenerateInteger(signed bool, bitLength int) *big.Int {
	min, max := utils.GetIntegerConstraints(signed, bitLength)
	if g.useValueSet() {
		if integers := g.valueSet.Integers(); len(integers) > 0 {
			sampled := new(big.Int).Set(integers[g.randomProvider.Intn(len(integers))])
			return utils.ConstrainIntegerToBounds(sampled, min, max)
		}
	}

	// Generate a random unsigned value of the right width, then offset into the signed range if needed.
	b := make([]byte, bitLength/8)
	g.randomProvider.Read(b)
	res := new(big.Int).SetBytes(b)
	if signed {
		res.Add(res, min)
	}
	return res
}
