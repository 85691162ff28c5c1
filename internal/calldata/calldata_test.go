package calldata

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voteScope/internal/iface"
)

func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func TestDecodeInputMatchesSelector(t *testing.T) {
	addr := common.HexToAddress("0x5f3b5DfEb7B28CDbD7FAba78963EE202a494e2A2")
	entry := iface.Entry{
		Name:        "setQuorum",
		Type:        iface.KindFunction,
		Inputs:      []iface.Parameter{{Name: "pct", Type: "uint256"}, {Name: "token", Type: "address"}},
		Outputs:     []iface.Parameter{},
		Selector:    iface.Selector{0x12, 0x34, 0x56, 0x78},
		SelectorSet: true,
	}

	data := append([]byte{0x12, 0x34, 0x56, 0x78}, word(big.NewInt(30).Bytes())...)
	data = append(data, word(addr.Bytes())...)

	call, err := DecodeInput([]iface.Entry{entry}, data)
	require.NoError(t, err)
	assert.Equal(t, "setQuorum", call.Entry.Name)
	assert.False(t, call.Insufficient)
	assert.Zero(t, call.TrailingBytes)

	rendered := call.Rendered()
	require.Len(t, rendered, 2)
	assert.Equal(t, "30", rendered[0].String())
	assert.Equal(t, "0x5f3b5DfEb7B28CDbD7FAba78963EE202a494e2A2", rendered[1].String())

	v, ok := call.Input(1)
	require.True(t, ok)
	assert.Equal(t, KindAddress, v.Kind)
	_, ok = call.Input(2)
	assert.False(t, ok)
}

func TestDecodeRoundTrip(t *testing.T) {
	params := []iface.Parameter{
		{Name: "amount", Type: "uint256"},
		{Name: "delta", Type: "int256"},
		{Name: "small", Type: "uint8"},
		{Name: "who", Type: "address"},
		{Name: "ok", Type: "bool"},
		{Name: "blob", Type: "bytes"},
		{Name: "tag", Type: "bytes32"},
		{Name: "label", Type: "string"},
		{Name: "weights", Type: "uint256[]"},
		{Name: "pair", Type: "address[2]"},
		{Name: "pos", Type: "tuple", Components: []iface.Parameter{
			{Name: "size", Type: "uint256"},
			{Name: "owner", Type: "address"},
		}},
	}
	entry := iface.Entry{Name: "everything", Type: iface.KindFunction, Inputs: params, Outputs: []iface.Parameter{}}
	entry.AssignSelector()

	args, err := Arguments(params)
	require.NoError(t, err)

	who := common.HexToAddress("0x40907540d8a6C65c637785e8f8B742ae6b0b9968")
	other := common.HexToAddress("0xE478de485ad2fe566d49342Cbd03E49ed7DB3356")
	var tag [32]byte
	copy(tag[:], "gauge")
	pos := struct {
		Size  *big.Int
		Owner common.Address
	}{big.NewInt(7), other}

	payload, err := args.Pack(
		big.NewInt(1000),
		big.NewInt(-5),
		uint8(200),
		who,
		true,
		[]byte("hello"),
		tag,
		"ownership",
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[2]common.Address{who, other},
		pos,
	)
	require.NoError(t, err)

	call, err := DecodeInput([]iface.Entry{entry}, append(entry.Selector[:], payload...))
	require.NoError(t, err)
	require.Len(t, call.Values, len(params))
	assert.Zero(t, call.TrailingBytes)

	assert.Equal(t, 0, call.Values[0].Number.Cmp(big.NewInt(1000)))
	assert.Equal(t, 0, call.Values[1].Number.Cmp(big.NewInt(-5)))
	assert.Equal(t, 0, call.Values[2].Number.Cmp(big.NewInt(200)))
	assert.Equal(t, who, call.Values[3].Address)
	assert.True(t, call.Values[4].Bool)
	assert.Equal(t, []byte("hello"), call.Values[5].Bytes)
	assert.Equal(t, tag[:], call.Values[6].Bytes)
	assert.Equal(t, "ownership", call.Values[7].Text)

	require.Equal(t, KindSequence, call.Values[8].Kind)
	require.Len(t, call.Values[8].Items, 2)
	assert.Equal(t, 0, call.Values[8].Items[1].Number.Cmp(big.NewInt(2)))

	require.Equal(t, KindSequence, call.Values[9].Kind)
	assert.Equal(t, other, call.Values[9].Items[1].Address)

	require.Equal(t, KindSequence, call.Values[10].Kind)
	require.Len(t, call.Values[10].Items, 2)
	assert.Equal(t, 0, call.Values[10].Items[0].Number.Cmp(big.NewInt(7)))
	assert.Equal(t, other, call.Values[10].Items[1].Address)

	got := make([]string, len(call.Values))
	for i, r := range call.Rendered() {
		got[i] = r.String()
	}
	assert.Equal(t, []string{
		"1000",
		"-5",
		"200",
		who.Hex(),
		"true",
		"'hello'",
		"'gauge'",
		`"ownership"`,
		"[1, 2]",
		"[" + who.Hex() + ", " + other.Hex() + "]",
		"[7, " + other.Hex() + "]",
	}, got)
}

func TestDecodeInsufficientData(t *testing.T) {
	entry := iface.Entry{
		Name: "kill",
		Type: iface.KindFunction,
		Inputs: []iface.Parameter{
			{Name: "gauge", Type: "address"},
			{Name: "flag", Type: "bool"},
			{Name: "extra", Type: "bool"},
		},
		Outputs: []iface.Parameter{},
	}
	entry.AssignSelector()

	data := append(entry.Selector[:], word(common.HexToAddress("0x01").Bytes())...)
	data = append(data, word([]byte{1})...)

	call, err := DecodeInput([]iface.Entry{entry}, data)
	require.NoError(t, err)
	assert.True(t, call.Insufficient)
	require.Len(t, call.Values, 3)
	for _, r := range call.Rendered() {
		assert.Equal(t, Placeholder, r.String())
	}
}

func TestDecodeInsufficientDynamicData(t *testing.T) {
	entry := iface.Entry{
		Name:    "setName",
		Type:    iface.KindFunction,
		Inputs:  []iface.Parameter{{Name: "name", Type: "string"}},
		Outputs: []iface.Parameter{},
	}
	entry.AssignSelector()

	// Offset slot present, length and body missing.
	data := append(entry.Selector[:], word([]byte{0x20})...)

	call, err := DecodeInput([]iface.Entry{entry}, data)
	require.NoError(t, err)
	assert.True(t, call.Insufficient)
	assert.Equal(t, []Value{PlaceholderValue()}, call.Values)
}

func TestDecodeOversizedLengthWord(t *testing.T) {
	entry := iface.Entry{
		Name:    "setName",
		Type:    iface.KindFunction,
		Inputs:  []iface.Parameter{{Name: "name", Type: "bytes"}},
		Outputs: []iface.Parameter{},
	}
	entry.AssignSelector()

	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	data := append(entry.Selector[:], word([]byte{0x20})...)
	data = append(data, word(huge.Bytes())...)

	call, err := DecodeInput([]iface.Entry{entry}, data)
	require.NoError(t, err)
	assert.True(t, call.Insufficient)
	require.Len(t, call.Rendered(), 1)
	assert.Equal(t, Placeholder, call.Rendered()[0].String())
}

func TestDecodeLengthPastEnd(t *testing.T) {
	entry := iface.Entry{
		Name:    "setName",
		Type:    iface.KindFunction,
		Inputs:  []iface.Parameter{{Name: "name", Type: "string"}},
		Outputs: []iface.Parameter{},
	}
	entry.AssignSelector()

	data := append(entry.Selector[:], word([]byte{0x20})...)
	data = append(data, word([]byte{0x40})...)
	data = append(data, word([]byte("short"))...)

	call, err := DecodeInput([]iface.Entry{entry}, data)
	require.NoError(t, err)
	assert.True(t, call.Insufficient)
	assert.Equal(t, []Value{PlaceholderValue()}, call.Values)
}

func TestDecodeTrailingBytes(t *testing.T) {
	entry := iface.Entry{
		Name:    "approveWallet",
		Type:    iface.KindFunction,
		Inputs:  []iface.Parameter{{Name: "_wallet", Type: "address"}},
		Outputs: []iface.Parameter{},
	}
	entry.AssignSelector()

	data := append(entry.Selector[:], word(common.HexToAddress("0x02").Bytes())...)
	data = append(data, 0xde, 0xad, 0xbe, 0xef)

	call, err := DecodeInput([]iface.Entry{entry}, data)
	require.NoError(t, err)
	assert.Equal(t, 4, call.TrailingBytes)
}

func TestDecodeSelectorMismatch(t *testing.T) {
	entries, err := iface.ParseEntries([]byte(`[
	  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	  {"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
	]`))
	require.NoError(t, err)
	i := &iface.Interface{}
	i.Entries, i.Filtered = iface.Normalize(entries)

	call, err := DecodeInterface(i, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0x00})
	assert.Nil(t, call)
	assert.True(t, errors.Is(err, ErrSelectorMismatch))
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Nil(t, mismatch.Filtered)

	_, err = DecodeInterface(i, []byte{0x23, 0xb8, 0x72, 0xdd})
	require.ErrorAs(t, err, &mismatch)
	require.NotNil(t, mismatch.Filtered)
	assert.Equal(t, iface.RuleReservedName, mismatch.Filtered.Rule)
	assert.Contains(t, err.Error(), "transferFrom(address,address,uint256)")

	_, err = DecodeInput(i.Entries, []byte{0xa9, 0x05})
	assert.ErrorIs(t, err, ErrShortCalldata)
}

func TestDecodeAmbiguousSelector(t *testing.T) {
	sel := iface.Selector{0x01, 0x02, 0x03, 0x04}
	entries := []iface.Entry{
		{Name: "a", Type: iface.KindFunction, Inputs: []iface.Parameter{}, Outputs: []iface.Parameter{}, Selector: sel, SelectorSet: true},
		{Name: "b", Type: iface.KindFunction, Inputs: []iface.Parameter{}, Outputs: []iface.Parameter{}, Selector: sel, SelectorSet: true},
	}
	_, err := DecodeInput(entries, sel[:])
	assert.ErrorIs(t, err, ErrAmbiguousSelector)
}

func TestDecodeUnnamedTupleComponents(t *testing.T) {
	params := []iface.Parameter{{Type: "tuple", Components: []iface.Parameter{{Type: "uint256"}, {Name: "_", Type: "bool"}}}}
	entry := iface.Entry{Name: "f", Type: iface.KindFunction, Inputs: params, Outputs: []iface.Parameter{}}
	entry.AssignSelector()

	data := append(entry.Selector[:], word([]byte{9})...)
	data = append(data, word([]byte{1})...)

	call, err := DecodeInput([]iface.Entry{entry}, data)
	require.NoError(t, err)
	assert.Equal(t, "[9, true]", Render(call.Values[0]).String())
}

func TestRenderBytes(t *testing.T) {
	// Long binary after leading NULs is summarized.
	blob := append(make([]byte, 32), bytes.Repeat([]byte{0xff, 0xfe}, 15)...)
	blob[len(blob)-1] = 0xab
	assert.Equal(t, "0000..ffab", Render(BytesValue(blob)).String())

	// A bytes32 holding padded text.
	var name [32]byte
	copy(name[:], "Curve.fi")
	assert.Equal(t, "'Curve.fi'", DecodeValue(name).String())

	// Short invalid UTF-8 stays hex.
	assert.Equal(t, "0xfffe01", Render(BytesValue([]byte{0xff, 0xfe, 0x01})).String())

	// A 20-byte value is read as an address.
	raw := common.HexToAddress("0x989AEB4D175E16225E39E87D0D97A3360524AD80").Bytes()
	raw[19] = 0x80
	raw[0] = 0xf9
	assert.Equal(t, common.BytesToAddress(raw).Hex(), Render(BytesValue(raw)).String())
}

func TestRenderText(t *testing.T) {
	assert.Equal(t, `"DAO vote"`, DecodeValue("DAO vote").String())
	assert.Equal(t, "", DecodeValue("").String())
	assert.Equal(t, "true", DecodeValue(true).String())
	assert.Equal(t, "42", DecodeValue(uint64(42)).String())
	assert.Equal(t, "[1, \"x\"]", DecodeValue([]any{1, "x"}).String())
}

func TestRenderChecksumIsCaseInsensitive(t *testing.T) {
	addrs := []string{
		"0xD533a949740bb3306d119CC777fa900bA034cd52",
		"0x5a8fdC979ba9b6179916404414F7BA4D8B77C8A1",
		"0xca719728Ef172d0961768581fdF35CB116e0B7a4",
	}
	for _, a := range addrs {
		body := strings.TrimPrefix(a, "0x")
		lower := DecodeValue("0x" + strings.ToLower(body)).String()
		upper := DecodeValue("0x" + strings.ToUpper(body)).String()
		assert.Equal(t, lower, upper)
		assert.Equal(t, a, lower)
	}
}

func TestRenderIsIdempotentOnRenderedText(t *testing.T) {
	inputs := []any{
		"proposal",
		"0xd533a949740bb3306d119cc777fa900ba034cd52",
		[]byte("vesting"),
	}
	for _, in := range inputs {
		once := DecodeValue(in).String()
		twice := DecodeValue(once).String()
		assert.Equal(t, once, twice, "input %v", in)
	}
}

func TestRenderedJSON(t *testing.T) {
	r := Render(SequenceValue(NumberValue(big.NewInt(1)), TextValue("a")))
	out, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["1","\"a\""]`, string(out))
}
