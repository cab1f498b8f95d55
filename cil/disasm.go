package cil

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble renders a body as an IL listing.
func Disassemble(body *MethodBody) string {
	var b strings.Builder
	_ = WriteListing(&b, body)
	return b.String()
}

// WriteListing writes the IL listing of body to w.
func WriteListing(w io.Writer, body *MethodBody) error {
	fmt.Fprintf(w, ".maxstack %d\n", body.MaxStack)
	if body.InitLocals {
		fmt.Fprintln(w, ".locals init")
	}
	for _, v := range body.Variables {
		fmt.Fprintf(w, "  V_%d %s\n", v.Index, v.Type)
	}

	// region markers keyed by instruction
	opens := make(map[*Instruction][]string)
	for i, h := range body.Handlers {
		opens[h.TryStart] = append(opens[h.TryStart], fmt.Sprintf("// try #%d", i))
		if h.FilterStart != nil {
			opens[h.FilterStart] = append(opens[h.FilterStart], fmt.Sprintf("// filter #%d", i))
		}
		marker := fmt.Sprintf("// %s #%d", h.Kind, i)
		if h.Kind == HandlerCatch {
			marker += " " + h.CatchType.String()
		}
		opens[h.HandlerStart] = append(opens[h.HandlerStart], marker)
	}

	for _, ins := range body.Instructions {
		for _, m := range opens[ins] {
			fmt.Fprintf(w, "  %s\n", m)
		}
		if _, err := fmt.Fprintf(w, "  %s\n", ins); err != nil {
			return err
		}
	}

	for i, h := range body.Handlers {
		fmt.Fprintf(w, ".try %s to %s %s handler %s to %s // #%d\n",
			label(h.TryStart), label(h.TryEnd), h.Kind,
			label(h.HandlerStart), label(h.HandlerEnd), i)
	}
	return nil
}
