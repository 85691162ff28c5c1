package iface

import (
	"fmt"
	"regexp"
)

// Rule names a reason an entry was dropped during normalization.
type Rule string

const (
	RuleUintArrayInput    Rule = "uint_array_input"
	RuleAddressArrayInput Rule = "address_array_input"
	RuleTupleArrayOutput  Rule = "tuple_array_output"
	RuleReservedName      Rule = "reserved_parameter_name"
)

// reservedNames are parameter names the downstream decoder cannot bind.
var reservedNames = map[string]struct{}{
	"from": {},
}

var uintArrayPattern = regexp.MustCompile(`^uint[0-9]*\[\]$`)

// FilteredEntry records an entry dropped by Normalize. Calldata that targets
// a filtered entry later surfaces as a selector mismatch; keeping the log lets
// callers tie the two together.
type FilteredEntry struct {
	Entry  Entry  `json:"entry"`
	Rule   Rule   `json:"rule"`
	Detail string `json:"detail"`
}

func (f FilteredEntry) String() string {
	return fmt.Sprintf("%s dropped (%s): %s", f.Entry.Signature(), f.Rule, f.Detail)
}

// Normalize filters out entries the decoder cannot represent and tags every
// remaining selectable entry with its selector. The input slice is not
// modified.
func Normalize(raw []Entry) ([]Entry, []FilteredEntry) {
	entries := make([]Entry, 0, len(raw))
	var filtered []FilteredEntry

	for _, entry := range raw {
		if rule, detail, drop := checkEntry(entry); drop {
			if entry.Selectable() {
				entry.AssignSelector()
			}
			filtered = append(filtered, FilteredEntry{Entry: entry, Rule: rule, Detail: detail})
			continue
		}
		if entry.Selectable() {
			entry.AssignSelector()
		}
		entries = append(entries, entry)
	}

	return entries, filtered
}

func checkEntry(entry Entry) (Rule, string, bool) {
	for _, input := range entry.Inputs {
		if uintArrayPattern.MatchString(input.Type) {
			return RuleUintArrayInput, fmt.Sprintf("input %q has type %s", input.Name, input.Type), true
		}
		if input.Type == "address[]" {
			return RuleAddressArrayInput, fmt.Sprintf("input %q has type %s", input.Name, input.Type), true
		}
	}
	for _, output := range entry.Outputs {
		if output.Type == "tuple[]" {
			return RuleTupleArrayOutput, fmt.Sprintf("output %q has type %s", output.Name, output.Type), true
		}
	}
	for _, params := range [][]Parameter{entry.Inputs, entry.Outputs} {
		for _, p := range params {
			if _, ok := reservedNames[p.Name]; ok {
				return RuleReservedName, fmt.Sprintf("parameter named %q", p.Name), true
			}
		}
	}
	return "", "", false
}
