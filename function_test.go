package selene

import (
	"strings"
	"testing"

	"github.com/selene-lang/selene/ast"
)

func TestConstIndexInterning(t *testing.T) {
	p := NewState().NewProto()
	if got := p.ConstIndexNumber(1); got != 0 {
		t.Fatalf("first number: got=%d want=0", got)
	}
	if got := p.ConstIndexNumber(1); got != 0 {
		t.Fatalf("repeated number: got=%d want=0", got)
	}
	// a number and a string with the same text are distinct constants
	if got := p.ConstIndexString("1"); got != 1 {
		t.Fatalf("string: got=%d want=1", got)
	}
	if got := p.ConstIndexNumber(2); got != 2 {
		t.Fatalf("second number: got=%d want=2", got)
	}
	if len(p.Constants) != 3 {
		t.Fatalf("pool size: got=%d want=3", len(p.Constants))
	}
}

func TestAddChildLinksParent(t *testing.T) {
	state := NewState()
	root := state.NewProto()
	a := state.NewProto()
	b := state.NewProto()
	if got := root.AddChild(a); got != 0 {
		t.Fatalf("first child index: got=%d want=0", got)
	}
	if got := root.AddChild(b); got != 1 {
		t.Fatalf("second child index: got=%d want=1", got)
	}
	if a.Parent() != root || b.Parent() != root {
		t.Fatal("children not linked to parent")
	}
	if root.Parent() != nil {
		t.Fatal("root has a parent")
	}
}

func TestUpvalueIndex(t *testing.T) {
	p := NewState().NewProto()
	if got := p.UpvalueIndex("x"); got != -1 {
		t.Fatalf("missing upvalue: got=%d want=-1", got)
	}
	p.AddUpvalue("x", true, 3)
	p.AddUpvalue("y", false, 0)
	if got := p.UpvalueIndex("x"); got != 0 {
		t.Fatalf("x: got=%d want=0", got)
	}
	if got := p.UpvalueIndex("y"); got != 1 {
		t.Fatalf("y: got=%d want=1", got)
	}
}

func TestAddInstructionReturnsPC(t *testing.T) {
	p := NewState().NewProto()
	if got := p.AddInstruction(InstA(OpLoadNil, 0), 1); got != 0 {
		t.Fatalf("first pc: got=%d want=0", got)
	}
	if got := p.AddInstruction(InstA(OpReturn, 0), 2); got != 1 {
		t.Fatalf("second pc: got=%d want=1", got)
	}
	if p.NumInstructions() != 2 || len(p.Lines) != 2 {
		t.Fatalf("stream lengths: code=%d lines=%d", p.NumInstructions(), len(p.Lines))
	}
	if p.Lines[1] != 2 {
		t.Fatalf("line of second instruction: got=%d want=2", p.Lines[1])
	}
}

func TestInstructionString(t *testing.T) {
	cases := []struct {
		inst Instruction
		want string
	}{
		{InstAB(OpMove, 1, 2), "MOVE       A=1 B=2"},
		{InstA(OpReturn, 0), "RETURN     A=0"},
		{InstABx(OpLoadConst, 3, 7), "LOADK      A=3 Bx=7"},
		{InstASbx(OpCall, 0, -1), "CALL       A=0 sBx=-1"},
		{Instruction{Op: OpCode(99)}, "INVALID(99)"},
	}
	for _, c := range cases {
		if got := c.inst.String(); got != c.want {
			t.Fatalf("got=%q want=%q", got, c.want)
		}
	}
}

func TestDumpRendersTree(t *testing.T) {
	proto := mustCompile(t, []ast.Stmt{
		localStmt(capturedNames("x"), num(1)),
		localStmt(names("f"), fnExpr(nil, retStmt(ident("x", ast.ScopeUpvalue)))),
	})
	out := proto.Dump()
	for _, want := range []string{
		`function "test.sel"`,
		"LOADK",
		"CLOSURE",
		"const 0: number 1",
		`upvalue 0: "x" from parent register 0`,
		`local "x"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}
