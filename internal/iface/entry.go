package iface

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Entry kinds as they appear in the "type" field of an ABI entry.
const (
	KindFunction    = "function"
	KindEvent       = "event"
	KindConstructor = "constructor"
	KindFallback    = "fallback"
	KindReceive     = "receive"
	KindError       = "error"
)

// Parameter is one input or output of an ABI entry.
type Parameter struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	InternalType string      `json:"internalType,omitempty"`
	Components   []Parameter `json:"components,omitempty"`
	Indexed      bool        `json:"indexed,omitempty"`
}

// Entry is one callable description from a contract interface.
//
// Outputs is nil when the raw entry carried no "outputs" key at all, which
// is how events and some fallback entries are told apart from functions
// with zero return values.
type Entry struct {
	Name            string      `json:"name,omitempty"`
	Type            string      `json:"type"`
	Inputs          []Parameter `json:"inputs"`
	Outputs         []Parameter `json:"outputs"`
	StateMutability string      `json:"stateMutability,omitempty"`
	Selector        Selector    `json:"-" yaml:"-"`
	// SelectorSet marks Selector as assigned, so a genuine 0x00000000
	// selector is told apart from none.
	SelectorSet bool `json:"-" yaml:"-"`
}

// Selector is the 4-byte function selector.
type Selector [4]byte

// IsZero reports whether all four bytes are zero.
func (s Selector) IsZero() bool {
	return s == Selector{}
}

// Hex returns the lowercase hex form without a 0x prefix.
func (s Selector) Hex() string {
	return hex.EncodeToString(s[:])
}

func (s Selector) String() string {
	return "0x" + s.Hex()
}

// Selectable reports whether the entry gets a selector: it must have both an
// inputs and an outputs list and must not be a constructor.
func (e Entry) Selectable() bool {
	return e.Inputs != nil && e.Outputs != nil && e.Type != KindConstructor
}

// HasSelector reports whether a selector was assigned during normalization.
func (e Entry) HasSelector() bool {
	return e.SelectorSet
}

// AssignSelector computes the selector and marks it as set.
func (e *Entry) AssignSelector() {
	e.Selector = e.ComputeSelector()
	e.SelectorSet = true
}

// Signature returns the canonical signature, e.g. "transfer(address,uint256)".
func (e Entry) Signature() string {
	types := make([]string, 0, len(e.Inputs))
	for _, input := range e.Inputs {
		types = append(types, CanonicalType(input))
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// ComputeSelector derives the selector from the canonical signature.
func (e Entry) ComputeSelector() Selector {
	var sel Selector
	copy(sel[:], crypto.Keccak256([]byte(e.Signature()))[:4])
	return sel
}

// CanonicalType expands tuple parameters into their parenthesised component
// list, keeping any array suffix: tuple[2] becomes (uint256,address)[2].
func CanonicalType(p Parameter) string {
	if !strings.HasPrefix(p.Type, "tuple") {
		return p.Type
	}
	suffix := strings.TrimPrefix(p.Type, "tuple")
	parts := make([]string, 0, len(p.Components))
	for _, c := range p.Components {
		parts = append(parts, CanonicalType(c))
	}
	return "(" + strings.Join(parts, ",") + ")" + suffix
}
