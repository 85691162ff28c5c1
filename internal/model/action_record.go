package model

import "strconv"

// ActionInput is one rendered argument of a decoded call.
type ActionInput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ActionRecord is the normalized representation of one vote action for storage.
type ActionRecord struct {
	RunID       string        `json:"run_id"`
	ChainID     uint64        `json:"chain_id"`
	Category    string        `json:"category"`
	VoteID      uint64        `json:"vote_id"`
	ActionIndex int           `json:"action_index"`
	Executed    bool          `json:"executed"`
	StartDate   uint64        `json:"start_date"`
	Agent       string        `json:"agent,omitempty"`
	Target      string        `json:"target"`
	Value       string        `json:"value,omitempty"`
	Function    string        `json:"function,omitempty"`
	Signature   string        `json:"signature,omitempty"`
	Inputs      []ActionInput `json:"inputs,omitempty"`
	Calldata    string        `json:"calldata"`
	Warning     string        `json:"warning,omitempty"`
	Error       string        `json:"error,omitempty"`
	IngestedAt  string        `json:"ingested_at"`
}

// Key identifies the record within a run.
func (r ActionRecord) Key() string {
	return r.Category + ":" + strconv.FormatUint(r.VoteID, 10) + ":" + strconv.Itoa(r.ActionIndex)
}
