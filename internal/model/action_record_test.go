package model

import (
	"encoding/json"
	"testing"
)

func TestActionRecordOmitsEmptyDecodeFields(t *testing.T) {
	rec := ActionRecord{
		RunID:       "run",
		ChainID:     1,
		Category:    "ownership",
		VoteID:      7,
		ActionIndex: 2,
		Target:      "0x1111111111111111111111111111111111111111",
		Calldata:    "0x12345678",
		Error:       "interface unavailable",
		IngestedAt:  "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"function", "signature", "inputs", "agent", "warning"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("unexpected field %q in %s", key, b)
		}
	}
	if fields["error"] != "interface unavailable" {
		t.Fatalf("error field mismatch: %v", fields["error"])
	}
	if got := rec.Key(); got != "ownership:7:2" {
		t.Fatalf("key mismatch: %s", got)
	}
}
