package valuegeneration

import (
	"math/big"
	"math/rand"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ShrinkAbiValue proposes a simpler candidate for the provided ABI-typed value, moving integers toward zero,
// emptying strings, bytes and arrays, and zeroing addresses and booleans. The candidate is returned alongside true
// when the value could be simplified; already-minimal values return false. The random provider steers which of
// several simplifications is attempted, biased toward the canonical minimal form.
func ShrinkAbiValue(randomProvider *rand.Rand, inputType *abi.Type, value any) (any, bool) {
	switch inputType.T {
	case abi.UintTy, abi.IntTy:
		return shrinkInteger(randomProvider, inputType, value)
	case abi.BoolTy:
		if b, ok := value.(bool); ok && b {
			return false, true
		}
		return nil, false
	case abi.AddressTy:
		if address, ok := value.(common.Address); ok && address != (common.Address{}) {
			return common.Address{}, true
		}
		return nil, false
	case abi.StringTy:
		str, ok := value.(string)
		if !ok || len(str) == 0 {
			return nil, false
		}
		// Half the time jump straight to the empty string, otherwise drop one character.
		if randomProvider.Intn(2) == 0 {
			return "", true
		}
		i := randomProvider.Intn(len(str))
		return str[:i] + str[i+1:], true
	case abi.BytesTy:
		b, ok := value.([]byte)
		if !ok || len(b) == 0 {
			return nil, false
		}
		if randomProvider.Intn(2) == 0 {
			return []byte{}, true
		}
		i := randomProvider.Intn(len(b))
		return append(append([]byte{}, b[:i]...), b[i+1:]...), true
	case abi.FixedBytesTy:
		return shrinkFixedBytes(randomProvider, inputType, value)
	case abi.SliceTy:
		return shrinkSlice(randomProvider, inputType, value)
	case abi.ArrayTy:
		return shrinkArray(randomProvider, inputType, value)
	case abi.TupleTy:
		return shrinkTuple(randomProvider, inputType, value)
	default:
		return nil, false
	}
}

// shrinkInteger proposes a smaller-magnitude integer: zero, half the value, or one step toward zero.
func shrinkInteger(randomProvider *rand.Rand, inputType *abi.Type, value any) (any, bool) {
	integer, ok := integerToBig(value)
	if !ok || integer.Sign() == 0 {
		return nil, false
	}

	candidate := new(big.Int)
	switch randomProvider.Intn(4) {
	case 0, 1:
		// Zero carries a 50% bias so minimal forms are reached quickly.
	case 2:
		candidate.Quo(integer, big.NewInt(2))
	default:
		if integer.Sign() > 0 {
			candidate.Sub(integer, big.NewInt(1))
		} else {
			candidate.Add(integer, big.NewInt(1))
		}
	}
	return coerceInteger(candidate, inputType), true
}

// shrinkFixedBytes proposes a fixed byte array with one non-zero byte cleared.
func shrinkFixedBytes(randomProvider *rand.Rand, inputType *abi.Type, value any) (any, bool) {
	rValue := reflect.ValueOf(value)
	nonZero := make([]int, 0, rValue.Len())
	for i := 0; i < rValue.Len(); i++ {
		if rValue.Index(i).Uint() != 0 {
			nonZero = append(nonZero, i)
		}
	}
	if len(nonZero) == 0 {
		return nil, false
	}

	candidate := reflect.Indirect(reflect.New(inputType.GetType()))
	reflect.Copy(candidate, rValue)
	candidate.Index(nonZero[randomProvider.Intn(len(nonZero))]).Set(reflect.ValueOf(byte(0)))
	return candidate.Interface(), true
}

// shrinkSlice proposes a slice with one element removed, or with one element shrunk when already empty of
// removable work.
func shrinkSlice(randomProvider *rand.Rand, inputType *abi.Type, value any) (any, bool) {
	rValue := reflect.ValueOf(value)
	if rValue.Len() == 0 {
		return nil, false
	}

	// Prefer removing an element outright; otherwise shrink one element in place.
	if randomProvider.Intn(2) == 0 {
		i := randomProvider.Intn(rValue.Len())
		candidate := reflect.MakeSlice(inputType.GetType(), 0, rValue.Len()-1)
		candidate = reflect.AppendSlice(candidate, rValue.Slice(0, i))
		candidate = reflect.AppendSlice(candidate, rValue.Slice(i+1, rValue.Len()))
		return candidate.Interface(), true
	}

	i := randomProvider.Intn(rValue.Len())
	shrunkElement, ok := ShrinkAbiValue(randomProvider, inputType.Elem, rValue.Index(i).Interface())
	if !ok {
		// Fall back to removal so progress is still made.
		candidate := reflect.MakeSlice(inputType.GetType(), 0, rValue.Len()-1)
		candidate = reflect.AppendSlice(candidate, rValue.Slice(0, i))
		candidate = reflect.AppendSlice(candidate, rValue.Slice(i+1, rValue.Len()))
		return candidate.Interface(), true
	}
	candidate := reflect.MakeSlice(inputType.GetType(), rValue.Len(), rValue.Len())
	reflect.Copy(candidate, rValue)
	candidate.Index(i).Set(reflect.ValueOf(shrunkElement))
	return candidate.Interface(), true
}

// shrinkArray proposes a fixed-size array with one element shrunk.
func shrinkArray(randomProvider *rand.Rand, inputType *abi.Type, value any) (any, bool) {
	rValue := reflect.ValueOf(value)
	if rValue.Len() == 0 {
		return nil, false
	}

	// Try each element starting from a random offset until one shrinks.
	offset := randomProvider.Intn(rValue.Len())
	for n := 0; n < rValue.Len(); n++ {
		i := (offset + n) % rValue.Len()
		shrunkElement, ok := ShrinkAbiValue(randomProvider, inputType.Elem, rValue.Index(i).Interface())
		if !ok {
			continue
		}
		candidate := reflect.Indirect(reflect.New(inputType.GetType()))
		reflect.Copy(candidate, rValue)
		candidate.Index(i).Set(reflect.ValueOf(shrunkElement))
		return candidate.Interface(), true
	}
	return nil, false
}

// shrinkTuple proposes a tuple with one field shrunk.
func shrinkTuple(randomProvider *rand.Rand, inputType *abi.Type, value any) (any, bool) {
	rValue := reflect.ValueOf(value)
	fieldCount := len(inputType.TupleElems)
	if fieldCount == 0 {
		return nil, false
	}

	offset := randomProvider.Intn(fieldCount)
	for n := 0; n < fieldCount; n++ {
		i := (offset + n) % fieldCount
		shrunkField, ok := ShrinkAbiValue(randomProvider, inputType.TupleElems[i], rValue.Field(i).Interface())
		if !ok {
			continue
		}
		candidate := reflect.Indirect(reflect.New(inputType.TupleType))
		for f := 0; f < fieldCount; f++ {
			candidate.Field(f).Set(rValue.Field(f))
		}
		candidate.Field(i).Set(reflect.ValueOf(shrunkField))
		return candidate.Interface(), true
	}
	return nil, false
}
