package selene

// UpvalueDesc describes one captured value: the name it was captured
// under and where the VM finds it in the immediate parent. With
// ParentLocal set, Index is a register of the parent; otherwise it is
// an index into the parent's own upvalue table.
type UpvalueDesc struct {
	Name        string
	ParentLocal bool
	Index       int
}

// LocalVar is one local-variable debug range: the binding occupied Reg
// from instruction StartPC until instruction EndPC.
type LocalVar struct {
	Name    string
	Reg     int
	StartPC int
	EndPC   int
}

// Proto is the compile-time representation of one function: its
// instruction stream, constant pool, child prototypes, upvalue
// descriptors and local debug records.
type Proto struct {
	Source        string
	LineDefined   int
	NumParameters int
	IsVarArg      bool
	NumUsedRegs   int

	Code      []Instruction
	Lines     []int
	Constants []Value
	Protos    []*Proto
	Upvalues  []UpvalueDesc
	LocalVars []LocalVar

	parent *Proto
}

// AddInstruction appends inst with its source line and returns its pc.
func (p *Proto) AddInstruction(inst Instruction, line int) int {
	p.Code = append(p.Code, inst)
	p.Lines = append(p.Lines, line)
	return len(p.Code) - 1
}

func (p *Proto) NumInstructions() int { return len(p.Code) }

// ConstIndexNumber interns a number constant, reusing an existing slot.
func (p *Proto) ConstIndexNumber(n float64) int { return p.constIndex(Number(n)) }

// ConstIndexString interns a string constant, reusing an existing slot.
func (p *Proto) ConstIndexString(s string) int { return p.constIndex(String(s)) }

func (p *Proto) constIndex(v Value) int {
	for i, c := range p.Constants {
		if c == v {
			return i
		}
	}
	p.Constants = append(p.Constants, v)
	return len(p.Constants) - 1
}

// AddChild appends child to the child-function table and returns its
// index. The index is stable for the prototype's lifetime.
func (p *Proto) AddChild(child *Proto) int {
	child.parent = p
	p.Protos = append(p.Protos, child)
	return len(p.Protos) - 1
}

func (p *Proto) Parent() *Proto { return p.parent }

// AddUpvalue appends an upvalue descriptor and returns its index.
func (p *Proto) AddUpvalue(name string, parentLocal bool, index int) int {
	p.Upvalues = append(p.Upvalues, UpvalueDesc{Name: name, ParentLocal: parentLocal, Index: index})
	return len(p.Upvalues) - 1
}

// UpvalueIndex returns the index of name's upvalue descriptor, or -1.
func (p *Proto) UpvalueIndex(name string) int {
	for i := range p.Upvalues {
		if p.Upvalues[i].Name == name {
			return i
		}
	}
	return -1
}

func (p *Proto) AddLocalVar(name string, reg, startPC, endPC int) {
	p.LocalVars = append(p.LocalVars, LocalVar{Name: name, Reg: reg, StartPC: startPC, EndPC: endPC})
}
