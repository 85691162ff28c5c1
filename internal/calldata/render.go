package calldata

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// Placeholder stands in for every value of a call whose payload was too
// short to decode.
const Placeholder = "<?>"

// humanizeAbove is the byte length past which undecodable byte strings are
// shortened to their first and last two bytes.
const humanizeAbove = 24

// Rendered is the display form of a Value: either a scalar string or a
// sequence of rendered items.
type Rendered struct {
	Scalar string
	Items  []Rendered
	Seq    bool
}

func (r Rendered) String() string {
	if !r.Seq {
		return r.Scalar
	}
	parts := make([]string, len(r.Items))
	for i, item := range r.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (r Rendered) MarshalJSON() ([]byte, error) {
	if r.Seq {
		items := r.Items
		if items == nil {
			items = []Rendered{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(r.Scalar)
}

func (r Rendered) MarshalYAML() (any, error) {
	if r.Seq {
		return r.Items, nil
	}
	return r.Scalar, nil
}

// Render turns a decoded value into its human-readable form. Addresses are
// checksummed, text is double-quoted and byte strings are shown as text when
// they hold valid UTF-8.
func Render(v Value) Rendered {
	switch v.Kind {
	case KindPlaceholder:
		return scalar(Placeholder)
	case KindAddress:
		return scalar(v.Address.Hex())
	case KindText:
		return scalar(renderText(v.Text))
	case KindBytes:
		return scalar(renderBytes(v.Bytes))
	case KindNumber:
		if v.Number == nil {
			return scalar("0")
		}
		return scalar(v.Number.String())
	case KindBool:
		return scalar(strconv.FormatBool(v.Bool))
	case KindSequence:
		items := make([]Rendered, len(v.Items))
		for i, item := range v.Items {
			items[i] = Render(item)
		}
		return Rendered{Items: items, Seq: true}
	default:
		return scalar(v.Text)
	}
}

// DecodeValue renders an arbitrary Go value.
func DecodeValue(v any) Rendered {
	return Render(ValueOf(v))
}

// RenderAll renders a list of values in order.
func RenderAll(values []Value) []Rendered {
	out := make([]Rendered, len(values))
	for i, v := range values {
		out[i] = Render(v)
	}
	return out
}

// Humanize shortens a hex string to its first and last four characters.
func Humanize(hexStr string) string {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	if len(hexStr) <= 8 {
		return hexStr
	}
	return hexStr[:4] + ".." + hexStr[len(hexStr)-4:]
}

func scalar(s string) Rendered {
	return Rendered{Scalar: s}
}

func renderText(s string) string {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s).Hex()
	}
	if s == "" || isQuoted(s) {
		return s
	}
	return `"` + s + `"`
}

func renderBytes(b []byte) string {
	trimmed := bytes.Trim(b, "\x00")
	if utf8.Valid(trimmed) {
		return "'" + string(trimmed) + "'"
	}
	hexStr := hex.EncodeToString(b)
	if len(b) > humanizeAbove {
		return Humanize(hexStr)
	}
	if len(b) == common.AddressLength {
		return common.BytesToAddress(b).Hex()
	}
	return "0x" + hexStr
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return first == last && (first == '"' || first == '\'')
}
