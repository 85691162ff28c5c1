package calldata

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindPlaceholder Kind = iota
	KindAddress
	KindText
	KindBytes
	KindNumber
	KindBool
	KindSequence
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindPlaceholder:
		return "placeholder"
	case KindAddress:
		return "address"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindSequence:
		return "sequence"
	case KindRaw:
		return "raw"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one decoded argument. Only the field matching Kind is set.
type Value struct {
	Kind    Kind
	Address common.Address
	Text    string
	Bytes   []byte
	Number  *big.Int
	Bool    bool
	Items   []Value
}

func PlaceholderValue() Value { return Value{Kind: KindPlaceholder} }

func AddressValue(a common.Address) Value { return Value{Kind: KindAddress, Address: a} }

func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

func NumberValue(n *big.Int) Value { return Value{Kind: KindNumber, Number: n} }

func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func SequenceValue(items ...Value) Value { return Value{Kind: KindSequence, Items: items} }

func rawValue(format string, v any) Value { return Value{Kind: KindRaw, Text: fmt.Sprintf(format, v)} }

// FromABI converts a value produced by go-ethereum's ABI unpacker into a
// Value, using the ABI type to pick the variant.
func FromABI(t abi.Type, v any) (Value, error) {
	switch t.T {
	case abi.AddressTy:
		addr, ok := v.(common.Address)
		if !ok {
			return Value{}, fmt.Errorf("unsupported address type %T", v)
		}
		return AddressValue(addr), nil
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return Value{}, fmt.Errorf("unsupported string type %T", v)
		}
		return TextValue(s), nil
	case abi.BoolTy:
		b, ok := v.(bool)
		if !ok {
			return Value{}, fmt.Errorf("unsupported bool type %T", v)
		}
		return BoolValue(b), nil
	case abi.IntTy, abi.UintTy:
		n, err := asBigInt(v)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case abi.BytesTy, abi.FixedBytesTy, abi.FunctionTy, abi.HashTy:
		b, err := asBytes(v)
		if err != nil {
			return Value{}, err
		}
		return BytesValue(b), nil
	case abi.SliceTy, abi.ArrayTy:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return Value{}, fmt.Errorf("unsupported array type %T", v)
		}
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := FromABI(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = item
		}
		return SequenceValue(items...), nil
	case abi.TupleTy:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct || rv.NumField() < len(t.TupleElems) {
			return Value{}, fmt.Errorf("unsupported tuple type %T", v)
		}
		items := make([]Value, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			item, err := FromABI(*elem, rv.Field(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("field %d: %w", i, err)
			}
			items[i] = item
		}
		return SequenceValue(items...), nil
	default:
		return rawValue("%v", v), nil
	}
}

// ValueOf converts an arbitrary Go value into a Value without type
// information. Unknown shapes become raw values rendered verbatim.
func ValueOf(v any) Value {
	switch typed := v.(type) {
	case nil:
		return TextValue("")
	case Value:
		return typed
	case common.Address:
		return AddressValue(typed)
	case *common.Address:
		if typed == nil {
			return TextValue("")
		}
		return AddressValue(*typed)
	case common.Hash:
		return BytesValue(typed.Bytes())
	case []byte:
		return BytesValue(typed)
	case string:
		return TextValue(typed)
	case bool:
		return BoolValue(typed)
	case *big.Int:
		if typed == nil {
			return rawValue("%v", typed)
		}
		return NumberValue(new(big.Int).Set(typed))
	}

	if n, err := asBigInt(v); err == nil {
		return NumberValue(n)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b, _ := asBytes(v)
			return BytesValue(b)
		}
		fallthrough
	case reflect.Slice:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = ValueOf(rv.Index(i).Interface())
		}
		return SequenceValue(items...)
	case reflect.Struct:
		items := make([]Value, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			items = append(items, ValueOf(rv.Field(i).Interface()))
		}
		return SequenceValue(items...)
	}
	return rawValue("%v", v)
}

func asBytes(value any) ([]byte, error) {
	if b, ok := value.([]byte); ok {
		return b, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, fmt.Errorf("unsupported bytes type %T", value)
	}
	out := make([]byte, rv.Len())
	for i := range out {
		out[i] = byte(rv.Index(i).Uint())
	}
	return out, nil
}

func asBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
