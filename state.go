package selene

// State is the compiler's view of the interpreter state: it allocates
// prototypes and closures and owns the value stack the finished chunk
// closure is pushed onto.
type State struct {
	stack []Value
}

func NewState() *State {
	return &State{stack: make([]Value, 0, 16)}
}

// NewProto allocates an empty function prototype.
func (s *State) NewProto() *Proto {
	return &Proto{
		Code:      make([]Instruction, 0, 32),
		Lines:     make([]int, 0, 32),
		Constants: make([]Value, 0, 8),
	}
}

// NewClosure wraps proto in a closure value.
func (s *State) NewClosure(proto *Proto) *Closure {
	return &Closure{Proto: proto}
}

func (s *State) Push(v Value) {
	s.stack = append(s.stack, v)
}

func (s *State) Pop() Value {
	if len(s.stack) == 0 {
		return Nil{}
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

func (s *State) Top() Value {
	if len(s.stack) == 0 {
		return Nil{}
	}
	return s.stack[len(s.stack)-1]
}

func (s *State) Depth() int { return len(s.stack) }
