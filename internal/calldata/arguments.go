package calldata

import (
	"fmt"
	"math"
	"math/big"
	"unicode"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"voteScope/internal/iface"
)

// Arguments rebuilds go-ethereum argument types from interface parameters.
func Arguments(params []iface.Parameter) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(params))
	for i, p := range params {
		typ, err := abi.NewType(p.Type, p.InternalType, components(p.Components))
		if err != nil {
			return nil, fmt.Errorf("input %d (%s): %w", i, p.Type, err)
		}
		args = append(args, abi.Argument{Name: p.Name, Type: typ})
	}
	return args, nil
}

// go-ethereum builds Go structs for tuples and rejects components whose
// names are not usable as field names, so those get positional names.
func components(params []iface.Parameter) []abi.ArgumentMarshaling {
	if len(params) == 0 {
		return nil
	}
	out := make([]abi.ArgumentMarshaling, len(params))
	for i, p := range params {
		name := p.Name
		if !usableFieldName(name) {
			name = fmt.Sprintf("field%d", i)
		}
		out[i] = abi.ArgumentMarshaling{
			Name:         name,
			Type:         p.Type,
			InternalType: p.InternalType,
			Components:   components(p.Components),
			Indexed:      p.Indexed,
		}
	}
	return out
}

func usableFieldName(name string) bool {
	camel := abi.ToCamelCase(name)
	if camel == "" {
		return false
	}
	for i, r := range camel {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// HeadSize is the minimum payload length for the arguments: the static head
// of the encoding, where every dynamic value takes one 32-byte offset slot.
func HeadSize(args abi.Arguments) int {
	size := 0
	for _, arg := range args {
		size += headSize(arg.Type)
	}
	return size
}

func headSize(t abi.Type) int {
	if isDynamic(t) {
		return 32
	}
	switch t.T {
	case abi.ArrayTy:
		return t.Size * headSize(*t.Elem)
	case abi.TupleTy:
		size := 0
		for _, elem := range t.TupleElems {
			size += headSize(*elem)
		}
		return size
	default:
		return 32
	}
}

func isDynamic(t abi.Type) bool {
	switch t.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy:
		return true
	case abi.ArrayTy:
		return isDynamic(*t.Elem)
	case abi.TupleTy:
		for _, elem := range t.TupleElems {
			if isDynamic(*elem) {
				return true
			}
		}
	}
	return false
}

// fitsPayload checks the offset and length words of top-level dynamic
// arguments against the payload before go-ethereum reads them.
func fitsPayload(args abi.Arguments, payload []byte) bool {
	size := uint64(len(payload))
	head := 0
	for _, arg := range args {
		if !isDynamic(arg.Type) {
			head += headSize(arg.Type)
			continue
		}
		offset, ok := wordAt(payload, uint64(head))
		if !ok || offset > size {
			return false
		}
		head += 32
		if arg.Type.T == abi.ArrayTy && arg.Type.Size == 0 {
			continue
		}
		if size-offset < 32 {
			return false
		}
		if arg.Type.T == abi.StringTy || arg.Type.T == abi.BytesTy {
			length, _ := wordAt(payload, offset)
			if length > size-offset-32 {
				return false
			}
		}
	}
	return true
}

// wordAt reads the 32-byte word at pos as an integer. Values that do not
// fit in 64 bits report as the maximum.
func wordAt(payload []byte, pos uint64) (uint64, bool) {
	if pos > uint64(len(payload)) || uint64(len(payload))-pos < 32 {
		return 0, false
	}
	w := new(big.Int).SetBytes(payload[pos : pos+32])
	if !w.IsUint64() {
		return math.MaxUint64, true
	}
	return w.Uint64(), true
}
