package utils

import (
	"math/big"
)

// ConstrainIntegerToBounds takes a provided big integer and minimum/maximum bounds (inclusive) and ensures that the
// provided integer is represented in those bounds. In effect, this simulates overflow and underflow.
// Returns the constrained integer.
func ConstrainIntegerToBounds(b *big.Int, min *big.Int, max *big.Int) *big.Int {
	// Get the bounding range
	boundingRange := new(big.Int).Add(new(big.Int).Sub(max, min), big.NewInt(1))

	// On underflow/overflow, calculate the distance and find out how many wrap-arounds (bounding ranges) should be
	// added/subtracted to correct the value, using division with ceiling. This way even an underflow by one in an
	// unsigned int results in one bounding range being added to wrap back around.

	// Check underflow
	if b.Cmp(min) < 0 {
		distance := new(big.Int).Sub(min, b)
		correction := new(big.Int).Div(new(big.Int).Add(distance, new(big.Int).Sub(boundingRange, big.NewInt(1))), boundingRange)
		correction.Mul(correction, boundingRange)
		return new(big.Int).Add(b, correction)
	}

	// Check overflow
	if b.Cmp(max) > 0 {
		distance := new(big.Int).Sub(b, max)
		correction := new(big.Int).Div(new(big.Int).Add(distance, new(big.Int).Sub(boundingRange, big.NewInt(1))), boundingRange)
		correction.Mul(correction, boundingRange)
		return new(big.Int).Sub(b, correction)
	}

	// b is in range, return a copy of it
	return new(big.Int).Set(b)
}

// GetIntegerConstraints takes a given signed indicator and bit length for a prospective integer and determines the
// minimum/maximum value boundaries.
// Returns the minimum and maximum value for the provided integer properties. Minimums and maximums are inclusive.
func GetIntegerConstraints(signed bool, bitLength int) (*big.Int, *big.Int) {
	var min, max *big.Int
	if signed {
		// Set max as 2^(bitLen - 1) - 1
		max = big.NewInt(2)
		max.Exp(max, big.NewInt(int64(bitLength-1)), nil)
		max.Sub(max, big.NewInt(1))

		// Set min as -(2^(bitLen - 1))
		min = new(big.Int).Mul(max, big.NewInt(-1))
		min.Sub(min, big.NewInt(1))
	} else {
		// Set max as 2^bitLen - 1
		max = big.NewInt(2)
		max.Exp(max, big.NewInt(int64(bitLength)), nil)
		max.Sub(max, big.NewInt(1))

		// Set min as zero
		min = big.NewInt(0)
	}
	return min, max
}
