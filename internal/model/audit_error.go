package model

// AuditError records a failure to fetch or decode a whole vote.
type AuditError struct {
	RunID    string `json:"run_id"`
	Category string `json:"category"`
	VoteID   uint64 `json:"vote_id"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// TallyEntry counts how often a function was called with a given argument.
type TallyEntry struct {
	Function string `json:"function"`
	Input    string `json:"input"`
	Count    int    `json:"count"`
}
