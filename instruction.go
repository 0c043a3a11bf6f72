package selene

import "fmt"

// opKind is the operand layout of an opcode. The compiler produces
// decoded instructions; packing them into VM words is the execution
// engine's concern.
type opKind int

const (
	opKindA opKind = iota
	opKindAB
	opKindABx
	opKindASbx
)

type OpCode int

const (
	OpMove       OpCode = iota // AB   R(A) := R(B)
	OpLoadNil                  // A    R(A) := nil
	OpLoadBool                 // AB   R(A) := bool(B)
	OpLoadConst                // ABx  R(A) := Const(Bx)
	OpGetGlobal                // ABx  R(A) := Global[Const(Bx)]
	OpSetGlobal                // ABx  Global[Const(Bx)] := R(A)
	OpGetUpvalue               // AB   R(A) := Upvalue(B)
	OpSetUpvalue               // AB   Upvalue(B) := R(A)
	OpVarArg                   // ASbx R(A)... := vararg, Sbx values, -1 means all
	OpCall                     // ASbx call R(A), expect Sbx results, -1 means all
	OpClosure                  // ABx  R(A) := closure(Proto(Bx))
	OpReturn                   // A    return R(A) through the top of stack
)

const opCodeMax = int(OpReturn)

type opProp struct {
	Name string
	Kind opKind
}

var opProps = []opProp{
	{"MOVE", opKindAB},
	{"LOADNIL", opKindA},
	{"LOADBOOL", opKindAB},
	{"LOADK", opKindABx},
	{"GETGLOBAL", opKindABx},
	{"SETGLOBAL", opKindABx},
	{"GETUPVAL", opKindAB},
	{"SETUPVAL", opKindAB},
	{"VARARG", opKindASbx},
	{"CALL", opKindASbx},
	{"CLOSURE", opKindABx},
	{"RETURN", opKindA},
}

// Instruction is one decoded VM instruction: an opcode plus the
// operand fields its layout kind uses.
type Instruction struct {
	Op  OpCode
	A   int
	B   int
	Bx  int
	Sbx int
}

func InstA(op OpCode, a int) Instruction {
	return Instruction{Op: op, A: a}
}

func InstAB(op OpCode, a, b int) Instruction {
	return Instruction{Op: op, A: a, B: b}
}

func InstABx(op OpCode, a, bx int) Instruction {
	return Instruction{Op: op, A: a, Bx: bx}
}

func InstASbx(op OpCode, a, sbx int) Instruction {
	return Instruction{Op: op, A: a, Sbx: sbx}
}

func (i Instruction) String() string {
	if int(i.Op) < 0 || int(i.Op) > opCodeMax {
		return fmt.Sprintf("INVALID(%d)", int(i.Op))
	}
	prop := opProps[i.Op]
	switch prop.Kind {
	case opKindA:
		return fmt.Sprintf("%-10s A=%d", prop.Name, i.A)
	case opKindAB:
		return fmt.Sprintf("%-10s A=%d B=%d", prop.Name, i.A, i.B)
	case opKindABx:
		return fmt.Sprintf("%-10s A=%d Bx=%d", prop.Name, i.A, i.Bx)
	default:
		return fmt.Sprintf("%-10s A=%d sBx=%d", prop.Name, i.A, i.Sbx)
	}
}
