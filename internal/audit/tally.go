package audit

import (
	"sort"

	"voteScope/internal/model"
)

type tallyKey struct {
	function string
	input    string
}

// Tally counts (function, input) pairs across decoded actions.
type Tally struct {
	counts map[tallyKey]int
}

func NewTally() *Tally {
	return &Tally{counts: make(map[tallyKey]int)}
}

func (t *Tally) Add(function, input string) {
	t.counts[tallyKey{function: function, input: input}]++
}

// Entries returns the counts, most frequent first.
func (t *Tally) Entries() []model.TallyEntry {
	out := make([]model.TallyEntry, 0, len(t.counts))
	for k, n := range t.counts {
		out = append(out, model.TallyEntry{Function: k.function, Input: k.input, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Function != out[j].Function {
			return out[i].Function < out[j].Function
		}
		return out[i].Input < out[j].Input
	})
	return out
}
