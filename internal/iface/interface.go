package iface

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Interface is a normalized, selector-tagged contract interface.
type Interface struct {
	// Address is the contract that was queried.
	Address common.Address `json:"address"`
	// Implementation is set when Address is a proxy and the entries were
	// taken from the implementation contract.
	Implementation *common.Address `json:"implementation,omitempty"`
	Entries        []Entry         `json:"entries"`
	Filtered       []FilteredEntry `json:"filtered,omitempty"`
}

// ParseEntries decodes a raw ABI JSON array.
func ParseEntries(raw []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return entries, nil
}

// New builds a normalized interface from a raw ABI JSON array.
func New(address common.Address, raw []byte) (*Interface, error) {
	entries, err := ParseEntries(raw)
	if err != nil {
		return nil, err
	}
	kept, filtered := Normalize(entries)
	return &Interface{Address: address, Entries: kept, Filtered: filtered}, nil
}

// Match returns every entry carrying the selector, in interface order.
func (i *Interface) Match(sel Selector) []Entry {
	if i == nil {
		return nil
	}
	return MatchEntries(i.Entries, sel)
}

// FilteredMatch returns the filtered entry that carried the selector, if any.
func (i *Interface) FilteredMatch(sel Selector) (FilteredEntry, bool) {
	if i == nil {
		return FilteredEntry{}, false
	}
	for _, f := range i.Filtered {
		if f.Entry.HasSelector() && f.Entry.Selector == sel {
			return f, true
		}
	}
	return FilteredEntry{}, false
}

// Function returns the first function entry with the given name.
func (i *Interface) Function(name string) (Entry, bool) {
	if i == nil {
		return Entry{}, false
	}
	for _, e := range i.Entries {
		if e.Type == KindFunction && e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// MatchEntries returns the entries whose selector equals sel.
func MatchEntries(entries []Entry, sel Selector) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.HasSelector() && e.Selector.Hex() == sel.Hex() {
			out = append(out, e)
		}
	}
	return out
}
