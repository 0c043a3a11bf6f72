// Package ast defines the typed syntax tree the selene code generator
// consumes. The tree arrives already name-resolved: identifier nodes
// carry their lexical scope classification and declared names carry
// whether a nested closure captures them, both computed by the
// resolution pass that runs before code generation.
package ast

type PositionHolder interface {
	Line() int
	SetLine(int)
	LastLine() int
	SetLastLine(int)
}

type Node struct {
	line     int
	lastline int
}

func (n *Node) Line() int            { return n.line }
func (n *Node) SetLine(line int)     { n.line = line }
func (n *Node) LastLine() int        { return n.lastline }
func (n *Node) SetLastLine(line int) { n.lastline = line }

// Scope is the lexical classification of an identifier reference.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeLocal
	ScopeUpvalue
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeLocal:
		return "local"
	case ScopeUpvalue:
		return "upvalue"
	}
	return "invalid"
}

// Name is one declared name in a local declaration or parameter list.
// Captured marks names that some nested closure captures as an upvalue.
type Name struct {
	Value    string
	Captured bool
}

// ParList describes a function literal's parameters.
type ParList struct {
	HasVargs bool
	Names    []Name
}

type Expr interface {
	PositionHolder
	exprMarker()
}

type ExprBase struct{ Node }

func (e *ExprBase) exprMarker() {}

type (
	NilExpr struct{ ExprBase }

	TrueExpr struct{ ExprBase }

	FalseExpr struct{ ExprBase }

	NumberExpr struct {
		ExprBase
		Value float64
	}

	StringExpr struct {
		ExprBase
		Value string
	}

	// Comma3Expr is the vararg expression `...`.
	Comma3Expr struct{ ExprBase }

	IdentExpr struct {
		ExprBase
		Value string
		Scope Scope
	}

	FuncCallExpr struct {
		ExprBase
		Func Expr
		Args []Expr
	}

	FunctionExpr struct {
		ExprBase
		ParList *ParList
		Stmts   []Stmt
	}
)

type Stmt interface {
	PositionHolder
	stmtMarker()
}

type StmtBase struct{ Node }

func (s *StmtBase) stmtMarker() {}

type (
	LocalAssignStmt struct {
		StmtBase
		Names []Name
		Exprs []Expr
	}

	AssignStmt struct {
		StmtBase
		Lhs []Expr
		Rhs []Expr
	}

	ReturnStmt struct {
		StmtBase
		Exprs []Expr
	}

	FuncCallStmt struct {
		StmtBase
		Expr Expr
	}
)
