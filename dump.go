package selene

import (
	"fmt"
	"strings"
)

// Dump renders the prototype tree as disassembly text.
func (p *Proto) Dump() string {
	var b strings.Builder
	writeProtoText(&b, p, 0)
	return b.String()
}

func writeProtoText(b *strings.Builder, p *Proto, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%sfunction %q line=%d params=%d vararg=%t regs=%d\n",
		indent, p.Source, p.LineDefined, p.NumParameters, p.IsVarArg, p.NumUsedRegs)
	for pc, inst := range p.Code {
		fmt.Fprintf(b, "%s  [%03d] %s ; line %d\n", indent, pc+1, inst, p.Lines[pc])
	}
	for i, c := range p.Constants {
		if c.Type() == TypeString {
			fmt.Fprintf(b, "%s  const %d: %s %q\n", indent, i, c.Type(), c.String())
		} else {
			fmt.Fprintf(b, "%s  const %d: %s %s\n", indent, i, c.Type(), c.String())
		}
	}
	for i, uv := range p.Upvalues {
		where := "upvalue"
		if uv.ParentLocal {
			where = "register"
		}
		fmt.Fprintf(b, "%s  upvalue %d: %q from parent %s %d\n", indent, i, uv.Name, where, uv.Index)
	}
	for _, lv := range p.LocalVars {
		fmt.Fprintf(b, "%s  local %q reg=%d pc=[%d,%d)\n", indent, lv.Name, lv.Reg, lv.StartPC, lv.EndPC)
	}
	for _, child := range p.Protos {
		writeProtoText(b, child, depth+1)
	}
}
