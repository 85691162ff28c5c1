package vote

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ActionView is the serializable form of a DecodedAction.
type ActionView struct {
	Index     int      `json:"index" yaml:"index"`
	Agent     string   `json:"agent,omitempty" yaml:"agent,omitempty"`
	Category  string   `json:"category,omitempty" yaml:"category,omitempty"`
	Target    string   `json:"target" yaml:"target"`
	Value     string   `json:"value,omitempty" yaml:"value,omitempty"`
	Function  string   `json:"function,omitempty" yaml:"function,omitempty"`
	Signature string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Inputs    []Input  `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Calldata  string   `json:"calldata,omitempty" yaml:"calldata,omitempty"`
	Warnings  []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// View flattens the action for JSON or YAML output. Raw calldata is only
// kept when decoding failed.
func (a *DecodedAction) View() ActionView {
	v := ActionView{Index: a.Index, Target: a.Target.Hex()}
	if a.Agent != nil {
		v.Agent = a.Agent.Hex()
		v.Category = a.Category.String()
	}
	if a.Value != nil && a.Value.Sign() > 0 {
		v.Value = a.Value.String()
	}
	if a.Err != nil {
		v.Calldata = hexutil.Encode(a.Calldata)
		v.Error = a.Err.Error()
		return v
	}
	v.Function = a.Function()
	v.Signature = a.Call.Entry.Signature()
	v.Inputs = a.Inputs()
	if a.Call.Insufficient {
		v.Warnings = append(v.Warnings, "payload too short")
	}
	if a.Call.TrailingBytes > 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%d trailing bytes", a.Call.TrailingBytes))
	}
	return v
}

// Views converts a decoded script.
func Views(actions []DecodedAction) []ActionView {
	out := make([]ActionView, len(actions))
	for i := range actions {
		out[i] = actions[i].View()
	}
	return out
}
