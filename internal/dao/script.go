package dao

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallsScriptID is the spec id prefix of an Aragon CallsScript.
var CallsScriptID = []byte{0x00, 0x00, 0x00, 0x01}

// AgentExecute is the agent function every scripted call goes through.
const AgentExecute = "execute(address,uint256,bytes)"

// ErrInvalidScript means the bytes are not a well-formed CallsScript.
var ErrInvalidScript = errors.New("invalid evm script")

// ScriptCall is one call in a CallsScript.
type ScriptCall struct {
	Target common.Address
	Data   []byte
}

// EncodeScript builds a CallsScript from calls.
func EncodeScript(calls []ScriptCall) []byte {
	var buf bytes.Buffer
	buf.Write(CallsScriptID)
	var size [4]byte
	for _, c := range calls {
		buf.Write(c.Target.Bytes())
		binary.BigEndian.PutUint32(size[:], uint32(len(c.Data)))
		buf.Write(size[:])
		buf.Write(c.Data)
	}
	return buf.Bytes()
}

// AgentScript wraps every call into agent.execute(target, 0, data) and
// encodes the result as a CallsScript.
func AgentScript(agent common.Address, calls []Call) ([]byte, error) {
	wrapped := make([]ScriptCall, 0, len(calls))
	for _, c := range calls {
		data, err := EncodeCall(AgentExecute, c.Target, big.NewInt(0), c.Data)
		if err != nil {
			return nil, err
		}
		wrapped = append(wrapped, ScriptCall{Target: agent, Data: data})
	}
	return EncodeScript(wrapped), nil
}

// ParseScript splits a CallsScript into its calls.
func ParseScript(script []byte) ([]ScriptCall, error) {
	if len(script) < len(CallsScriptID) {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidScript, len(script))
	}
	if !bytes.Equal(script[:len(CallsScriptID)], CallsScriptID) {
		return nil, fmt.Errorf("%w: unsupported spec id 0x%x", ErrInvalidScript, script[:len(CallsScriptID)])
	}

	var calls []ScriptCall
	offset := len(CallsScriptID)
	for offset < len(script) {
		if len(script)-offset < common.AddressLength+4 {
			return nil, fmt.Errorf("%w: truncated call header at offset %d", ErrInvalidScript, offset)
		}
		target := common.BytesToAddress(script[offset : offset+common.AddressLength])
		offset += common.AddressLength
		size := int(binary.BigEndian.Uint32(script[offset : offset+4]))
		offset += 4
		if size > len(script)-offset {
			return nil, fmt.Errorf("%w: call at offset %d wants %d bytes, %d left",
				ErrInvalidScript, offset, size, len(script)-offset)
		}
		data := make([]byte, size)
		copy(data, script[offset:offset+size])
		offset += size
		calls = append(calls, ScriptCall{Target: target, Data: data})
	}
	return calls, nil
}

// UnwrapExecute returns the inner call of an agent.execute calldata.
func UnwrapExecute(data []byte) (Call, *big.Int, bool) {
	m, err := ParseMethod(AgentExecute)
	if err != nil || len(data) < 4 || !bytes.Equal(data[:4], m.ID) {
		return Call{}, nil, false
	}
	values, err := m.Inputs.Unpack(data[4:])
	if err != nil || len(values) != 3 {
		return Call{}, nil, false
	}
	target, ok1 := values[0].(common.Address)
	value, ok2 := values[1].(*big.Int)
	inner, ok3 := values[2].([]byte)
	if !ok1 || !ok2 || !ok3 {
		return Call{}, nil, false
	}
	return Call{Target: target, Data: inner}, value, true
}
