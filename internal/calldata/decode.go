package calldata

import (
	"errors"
	"fmt"
	"strings"

	"voteScope/internal/iface"
)

var (
	// ErrSelectorMismatch means no interface entry carries the calldata's
	// selector.
	ErrSelectorMismatch = errors.New("selector mismatch")
	// ErrAmbiguousSelector means more than one interface entry carries the
	// calldata's selector.
	ErrAmbiguousSelector = errors.New("ambiguous selector")
	// ErrShortCalldata means the calldata does not even hold a selector.
	ErrShortCalldata = errors.New("calldata shorter than 4 bytes")
)

// MismatchError reports the selector that matched nothing. Filtered is set
// when the selector belongs to an entry dropped during normalization.
type MismatchError struct {
	Selector iface.Selector
	Filtered *iface.FilteredEntry
}

func (e *MismatchError) Error() string {
	if e.Filtered != nil {
		return fmt.Sprintf("%s: %s matches %s, filtered by %s",
			ErrSelectorMismatch, e.Selector, e.Filtered.Entry.Signature(), e.Filtered.Rule)
	}
	return fmt.Sprintf("%s: %s", ErrSelectorMismatch, e.Selector)
}

func (e *MismatchError) Unwrap() error {
	return ErrSelectorMismatch
}

// DecodedCall is one call decoded against an interface.
type DecodedCall struct {
	Entry  iface.Entry
	Values []Value
	// Insufficient is set when the payload was too short and every value is
	// the placeholder.
	Insufficient bool
	// TrailingBytes counts payload bytes beyond the canonical encoding of
	// the decoded values.
	TrailingBytes int
}

// Rendered renders every value in input order.
func (d *DecodedCall) Rendered() []Rendered {
	return RenderAll(d.Values)
}

// Input returns the i-th decoded value.
func (d *DecodedCall) Input(i int) (Value, bool) {
	if i < 0 || i >= len(d.Values) {
		return Value{}, false
	}
	return d.Values[i], true
}

// SplitSelector separates the selector from the argument payload.
func SplitSelector(calldata []byte) (iface.Selector, []byte, error) {
	var sel iface.Selector
	if len(calldata) < len(sel) {
		return sel, nil, fmt.Errorf("%w: got %d", ErrShortCalldata, len(calldata))
	}
	copy(sel[:], calldata[:len(sel)])
	return sel, calldata[len(sel):], nil
}

// DecodeInput matches calldata against the entries and decodes its
// arguments.
func DecodeInput(entries []iface.Entry, calldata []byte) (*DecodedCall, error) {
	sel, payload, err := SplitSelector(calldata)
	if err != nil {
		return nil, err
	}
	matches := iface.MatchEntries(entries, sel)
	switch len(matches) {
	case 0:
		return nil, &MismatchError{Selector: sel}
	case 1:
		return DecodeArguments(matches[0], payload)
	default:
		sigs := make([]string, len(matches))
		for i, m := range matches {
			sigs[i] = m.Signature()
		}
		return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguousSelector, sel, strings.Join(sigs, ", "))
	}
}

// DecodeInterface is DecodeInput against a normalized interface. A mismatch
// names the filtered entry that would have matched, if there is one.
func DecodeInterface(i *iface.Interface, calldata []byte) (*DecodedCall, error) {
	if i == nil {
		return nil, errors.New("interface is nil")
	}
	call, err := DecodeInput(i.Entries, calldata)
	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		if f, ok := i.FilteredMatch(mismatch.Selector); ok {
			mismatch.Filtered = &f
		}
	}
	return call, err
}

// DecodeArguments decodes the argument payload of one entry. A payload too
// short for the declared types yields placeholders instead of an error.
func DecodeArguments(entry iface.Entry, payload []byte) (*DecodedCall, error) {
	args, err := Arguments(entry.Inputs)
	if err != nil {
		return nil, fmt.Errorf("build arguments for %s: %w", entry.Signature(), err)
	}

	call := &DecodedCall{Entry: entry}
	if len(payload) < HeadSize(args) || !fitsPayload(args, payload) {
		call.fillPlaceholders()
		return call, nil
	}

	raw, err := args.Unpack(payload)
	if err != nil {
		if isInsufficient(err) {
			call.fillPlaceholders()
			return call, nil
		}
		return nil, fmt.Errorf("decode %s: %w", entry.Signature(), err)
	}

	call.Values = make([]Value, len(raw))
	for i, v := range raw {
		value, err := FromABI(args[i].Type, v)
		if err != nil {
			return nil, fmt.Errorf("decode %s input %d: %w", entry.Signature(), i, err)
		}
		call.Values[i] = value
	}

	if packed, err := args.Pack(raw...); err == nil && len(payload) > len(packed) {
		call.TrailingBytes = len(payload) - len(packed)
	}
	return call, nil
}

func (d *DecodedCall) fillPlaceholders() {
	d.Insufficient = true
	d.Values = make([]Value, len(d.Entry.Inputs))
	for i := range d.Values {
		d.Values[i] = PlaceholderValue()
	}
}

func isInsufficient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "insufficient") ||
		strings.Contains(msg, "slice boundary") ||
		strings.Contains(msg, "empty string") ||
		strings.Contains(msg, "larger than int64")
}
