package valuegeneration

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// GenerateAbiValue generates a value of the provided abi.Type using the provided value generator. The generated
// value is compatible with the Go type go-ethereum's ABI packer expects for the given ABI type.
func GenerateAbiValue(generator ValueGenerator, inputType *abi.Type) any {
	switch inputType.T {
	case abi.AddressTy:
		return generator.GenerateAddress()
	case abi.UintTy:
		return coerceInteger(generator.GenerateInteger(false, inputType.Size), inputType)
	case abi.IntTy:
		return coerceInteger(generator.GenerateInteger(true, inputType.Size), inputType)
	case abi.BoolTy:
		return generator.GenerateBool()
	case abi.StringTy:
		return generator.GenerateString()
	case abi.BytesTy:
		return generator.GenerateBytes()
	case abi.FixedBytesTy:
		// This needs to be a fixed byte array of the right reflected type, as a plain slice will not pack.
		fixedBytes := reflect.Indirect(reflect.New(inputType.GetType()))
		b := generator.GenerateFixedBytes(inputType.Size)
		for i := 0; i < len(b); i++ {
			fixedBytes.Index(i).Set(reflect.ValueOf(b[i]))
		}
		return fixedBytes.Interface()
	case abi.ArrayTy:
		array := reflect.Indirect(reflect.New(inputType.GetType()))
		for i := 0; i < array.Len(); i++ {
			array.Index(i).Set(reflect.ValueOf(GenerateAbiValue(generator, inputType.Elem)))
		}
		return array.Interface()
	case abi.SliceTy:
		sliceSize := generator.GenerateArrayOfLength()
		slice := reflect.MakeSlice(inputType.GetType(), sliceSize, sliceSize)
		for i := 0; i < slice.Len(); i++ {
			slice.Index(i).Set(reflect.ValueOf(GenerateAbiValue(generator, inputType.Elem)))
		}
		return slice.Interface()
	case abi.TupleTy:
		tuple := reflect.Indirect(reflect.New(inputType.TupleType))
		for i := 0; i < len(inputType.TupleElems); i++ {
			tuple.Field(i).Set(reflect.ValueOf(GenerateAbiValue(generator, inputType.TupleElems[i])))
		}
		return tuple.Interface()
	default:
		// Unsupported types cannot be fuzzed meaningfully; this is a programming error in the target definition.
		panic(fmt.Sprintf("attempt to generate function argument of unsupported type: '%s'", inputType.String()))
	}
}

// coerceInteger converts a big integer into the Go representation go-ethereum's packer expects for the provided
// integer ABI type: native integers up to 64 bits, *big.Int beyond.
func coerceInteger(value *big.Int, inputType *abi.Type) any {
	switch inputType.GetType().Kind() {
	case reflect.Uint8:
		return uint8(value.Uint64())
	case reflect.Uint16:
		return uint16(value.Uint64())
	case reflect.Uint32:
		return uint32(value.Uint64())
	case reflect.Uint64:
		return value.Uint64()
	case reflect.Int8:
		return int8(value.Int64())
	case reflect.Int16:
		return int16(value.Int64())
	case reflect.Int32:
		return int32(value.Int64())
	case reflect.Int64:
		return value.Int64()
	default:
		return value
	}
}

// integerToBig converts any Go representation of an ABI integer back into a big integer.
func integerToBig(value any) (*big.Int, bool) {
	switch v := value.(type) {
	case *big.Int:
		return v, true
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	case int8:
		return big.NewInt(int64(v)), true
	case int16:
		return big.NewInt(int64(v)), true
	case int32:
		return big.NewInt(int64(v)), true
	case int64:
		return big.NewInt(v), true
	default:
		return nil, false
	}
}

// EncodeABIArgumentsToString encodes the provided ABI argument values into a comma-separated display string.
// Returns the string, or an error if an argument could not be encoded.
func EncodeABIArgumentsToString(inputs abi.Arguments, values []any) (string, error) {
	encodedArgs := make([]string, len(inputs))
	for i, input := range inputs {
		if i >= len(values) {
			return "", errors.Errorf("could not encode abi arguments: expected %d values, got %d", len(inputs), len(values))
		}
		arg, err := encodeABIArgumentToString(&input.Type, values[i])
		if err != nil {
			return "", err
		}
		encodedArgs[i] = arg
	}
	return strings.Join(encodedArgs, ", "), nil
}

// encodeABIArgumentToString encodes a single ABI argument value into a display string.
func encodeABIArgumentToString(inputType *abi.Type, value any) (string, error) {
	switch inputType.T {
	case abi.AddressTy:
		address, ok := value.(common.Address)
		if !ok {
			return "", errors.Errorf("could not encode address: %v", value)
		}
		return address.String(), nil
	case abi.UintTy, abi.IntTy:
		integer, ok := integerToBig(value)
		if !ok {
			return "", errors.Errorf("could not encode integer: %v", value)
		}
		return integer.String(), nil
	case abi.BoolTy:
		b, ok := value.(bool)
		if !ok {
			return "", errors.Errorf("could not encode bool: %v", value)
		}
		return strconv.FormatBool(b), nil
	case abi.StringTy:
		str, ok := value.(string)
		if !ok {
			return "", errors.Errorf("could not encode string: %v", value)
		}
		return strconv.Quote(str), nil
	case abi.BytesTy:
		b, ok := value.([]byte)
		if !ok {
			return "", errors.Errorf("could not encode bytes: %v", value)
		}
		return "0x" + hex.EncodeToString(b), nil
	case abi.FixedBytesTy:
		rValue := reflect.ValueOf(value)
		b := make([]byte, rValue.Len())
		for i := 0; i < rValue.Len(); i++ {
			b[i] = byte(rValue.Index(i).Uint())
		}
		return "0x" + hex.EncodeToString(b), nil
	case abi.ArrayTy, abi.SliceTy:
		rValue := reflect.ValueOf(value)
		elements := make([]string, rValue.Len())
		for i := 0; i < rValue.Len(); i++ {
			element, err := encodeABIArgumentToString(inputType.Elem, rValue.Index(i).Interface())
			if err != nil {
				return "", err
			}
			elements[i] = element
		}
		return "[" + strings.Join(elements, ", ") + "]", nil
	case abi.TupleTy:
		rValue := reflect.ValueOf(value)
		fields := make([]string, len(inputType.TupleElems))
		for i := 0; i < len(inputType.TupleElems); i++ {
			field, err := encodeABIArgumentToString(inputType.TupleElems[i], rValue.Field(i).Interface())
			if err != nil {
				return "", err
			}
			fields[i] = field
		}
		return "{" + strings.Join(fields, ", ") + "}", nil
	default:
		return "", errors.Errorf("could not encode argument of unsupported type: '%s'", inputType.String())
	}
}
