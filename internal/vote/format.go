package vote

import (
	"fmt"
	"strings"

	"voteScope/internal/calldata"
)

// Format renders the action as an indented tree for operators.
func (a *DecodedAction) Format() string {
	var b strings.Builder
	if a.Agent != nil {
		fmt.Fprintf(&b, "Call via agent (%s): %s\n", a.Category, a.Agent.Hex())
	} else {
		fmt.Fprintf(&b, "Direct call #%d\n", a.Index)
	}
	fmt.Fprintf(&b, " ├─ To: %s\n", a.Target.Hex())
	if a.Value != nil && a.Value.Sign() > 0 {
		fmt.Fprintf(&b, " ├─ Value: %s\n", a.Value)
	}

	if a.Err != nil {
		fmt.Fprintf(&b, " ├─ Calldata: 0x%x\n", a.Calldata)
		fmt.Fprintf(&b, " └─ Error: %s\n", a.Err)
		return b.String()
	}

	fmt.Fprintf(&b, " ├─ Function: %s\n", a.Function())
	if a.Call.Insufficient {
		fmt.Fprintf(&b, " ├─ Warning: payload too short for %s\n", a.Call.Entry.Signature())
	}
	if a.Call.TrailingBytes > 0 {
		fmt.Fprintf(&b, " ├─ Warning: %d trailing bytes not covered by the signature\n", a.Call.TrailingBytes)
	}

	inputs := a.Inputs()
	if len(inputs) == 0 {
		b.WriteString(" └─ Inputs: none\n")
		return b.String()
	}
	b.WriteString(" └─ Inputs:\n")
	for i, in := range inputs {
		branch := "├─"
		if i == len(inputs)-1 {
			branch = "└─"
		}
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		writeValue(&b, "    "+branch+" "+name+": ", "    "+childIndent(i == len(inputs)-1), in.Value)
	}
	return b.String()
}

func childIndent(last bool) string {
	if last {
		return "   "
	}
	return "│  "
}

func writeValue(b *strings.Builder, prefix, indent string, r calldata.Rendered) {
	if !r.Seq || len(r.Items) == 0 || !nested(r) {
		fmt.Fprintf(b, "%s%s\n", prefix, r.String())
		return
	}
	fmt.Fprintf(b, "%s\n", strings.TrimRight(prefix, " "))
	for i, item := range r.Items {
		last := i == len(r.Items)-1
		branch := "├─"
		if last {
			branch = "└─"
		}
		writeValue(b, fmt.Sprintf("%s%s [%d] ", indent, branch, i), indent+childIndent(last), item)
	}
}

func nested(r calldata.Rendered) bool {
	for _, item := range r.Items {
		if item.Seq {
			return true
		}
	}
	return false
}
