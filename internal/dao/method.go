package dao

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	methodMu    sync.RWMutex
	methodCache = make(map[string]abi.Method)
)

// ParseMethod builds an ABI method from a flat signature such as
// "set_killed(address,bool)". Tuple parameters are not supported.
func ParseMethod(signature string) (abi.Method, error) {
	methodMu.RLock()
	m, ok := methodCache[signature]
	methodMu.RUnlock()
	if ok {
		return m, nil
	}

	open := strings.IndexByte(signature, '(')
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return abi.Method{}, fmt.Errorf("invalid signature %q", signature)
	}
	name := signature[:open]
	body := signature[open+1 : len(signature)-1]

	var inputs abi.Arguments
	if body != "" {
		for i, raw := range strings.Split(body, ",") {
			typ, err := abi.NewType(strings.TrimSpace(raw), "", nil)
			if err != nil {
				return abi.Method{}, fmt.Errorf("signature %q input %d: %w", signature, i, err)
			}
			inputs = append(inputs, abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: typ})
		}
	}

	m = abi.NewMethod(name, name, abi.Function, "nonpayable", false, false, inputs, nil)
	methodMu.Lock()
	methodCache[signature] = m
	methodMu.Unlock()
	return m, nil
}

// EncodeCall packs a call to signature with args.
func EncodeCall(signature string, args ...any) ([]byte, error) {
	m, err := ParseMethod(signature)
	if err != nil {
		return nil, err
	}
	packed, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", signature, err)
	}
	return append(append([]byte{}, m.ID...), packed...), nil
}
