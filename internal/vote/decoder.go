package vote

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"voteScope/internal/calldata"
	"voteScope/internal/dao"
	"voteScope/internal/iface"
)

// InterfaceLoader returns the normalized interface of a contract.
// *iface.Loader satisfies it.
type InterfaceLoader interface {
	GetContractInterface(ctx context.Context, address common.Address) (*iface.Interface, error)
}

// Input is one named, rendered argument.
type Input struct {
	Name  string            `json:"name" yaml:"name"`
	Type  string            `json:"type" yaml:"type"`
	Value calldata.Rendered `json:"value" yaml:"value"`
}

// DecodedAction is one call of a vote script. Err is set when the call
// could not be decoded; the other calls of the script are unaffected.
type DecodedAction struct {
	Index int
	// Agent is set when the call was made through a DAO agent's execute.
	Agent    *common.Address
	Category dao.VoteCategory
	Target   common.Address
	Value    *big.Int
	Calldata []byte
	Call     *calldata.DecodedCall
	Err      error
}

// Function returns the decoded function name, or "" when decoding failed.
func (a *DecodedAction) Function() string {
	if a.Call == nil {
		return ""
	}
	return a.Call.Entry.Name
}

// Inputs returns the rendered arguments paired with their declared names.
func (a *DecodedAction) Inputs() []Input {
	if a.Call == nil {
		return nil
	}
	rendered := a.Call.Rendered()
	out := make([]Input, len(rendered))
	for i, r := range rendered {
		p := a.Call.Entry.Inputs[i]
		out[i] = Input{Name: p.Name, Type: iface.CanonicalType(p), Value: r}
	}
	return out
}

// Input returns the rendered argument at position i.
func (a *DecodedAction) Input(i int) (calldata.Rendered, bool) {
	if a.Call == nil {
		return calldata.Rendered{}, false
	}
	v, ok := a.Call.Input(i)
	if !ok {
		return calldata.Rendered{}, false
	}
	return calldata.Render(v), true
}

// Decoder turns vote scripts into decoded actions.
type Decoder struct {
	loader InterfaceLoader
	logger *zap.Logger
}

func NewDecoder(loader InterfaceLoader, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{loader: loader, logger: logger}
}

// DecodeScript decodes every call of a CallsScript. Only a malformed script
// is an error; per-call failures are recorded on the action.
func (d *Decoder) DecodeScript(ctx context.Context, script []byte) ([]DecodedAction, error) {
	calls, err := dao.ParseScript(script)
	if err != nil {
		return nil, err
	}

	actions := make([]DecodedAction, 0, len(calls))
	for i, sc := range calls {
		action := DecodedAction{Index: i, Target: sc.Target, Calldata: sc.Data}

		if category, ok := dao.IsAgent(sc.Target); ok {
			if inner, value, ok := dao.UnwrapExecute(sc.Data); ok {
				agent := sc.Target
				action.Agent = &agent
				action.Category = category
				action.Target = inner.Target
				action.Value = value
				action.Calldata = inner.Data
			}
		}

		action.Call, action.Err = d.DecodeCall(ctx, action.Target, action.Calldata)
		if action.Err != nil {
			d.logger.Warn("decode call failed",
				zap.Int("index", i),
				zap.String("target", action.Target.Hex()),
				zap.Error(action.Err),
			)
		} else if action.Call.TrailingBytes > 0 {
			d.logger.Warn("call carries trailing bytes",
				zap.Int("index", i),
				zap.String("target", action.Target.Hex()),
				zap.Int("bytes", action.Call.TrailingBytes),
			)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// DecodeCall decodes calldata sent to target against target's interface.
func (d *Decoder) DecodeCall(ctx context.Context, target common.Address, data []byte) (*calldata.DecodedCall, error) {
	if d.loader == nil {
		return nil, fmt.Errorf("%w: no interface loader", iface.ErrInterfaceUnavailable)
	}
	contract, err := d.loader.GetContractInterface(ctx, target)
	if err != nil {
		return nil, err
	}
	return calldata.DecodeInterface(contract, data)
}
