package selene

import (
	"fmt"

	"github.com/selene-lang/selene/ast"
)

// Per-function compile-time limits. Exceeding either aborts the whole
// chunk compilation.
const maxRegisters = 250
const maxUpvalues = 250

// regAny is the unbounded register-range sentinel: produce as many
// values as naturally result, starting at the range's first register.
const regAny = -1

// Structured error codes carried by CompileError.
const (
	CodeTooManyRegisters = "SEL4001"
	CodeTooManyUpvalues  = "SEL4002"
)

// CompileError is the single user-facing failure of code generation.
// Line and Source identify the function being generated when the
// limit was hit.
type CompileError struct {
	Code    string
	Line    int
	Source  string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d: [%s] %s", e.Source, e.Line, e.Code, e.Message)
}

func raiseCompileError(fc *funcContext, code string, format string, args ...interface{}) {
	panic(&CompileError{
		Code:    code,
		Line:    fc.proto.LineDefined,
		Source:  fc.proto.Source,
		Message: fmt.Sprintf(format, args...),
	})
}

// localVar is one active binding inside a block.
type localVar struct {
	name      string
	reg       int
	startPC   int
	asUpvalue bool
}

// codeBlock is one lexical scope: the register cursor value captured
// at entry (the floor the cursor resets to on leave) and the bindings
// declared inside it.
type codeBlock struct {
	parent   *codeBlock
	regFloor int
	vars     []localVar
}

func (b *codeBlock) find(name string) *localVar {
	for i := len(b.vars) - 1; i >= 0; i-- {
		if b.vars[i].name == name {
			return &b.vars[i]
		}
	}
	return nil
}

// funcContext is the generation context of one lexical function.
type funcContext struct {
	proto      *Proto
	parent     *funcContext
	block      *codeBlock
	childIndex int
	regCursor  int
	regMax     int
}

type codeGen struct {
	state   *State
	current *funcContext
}

func newCodeGen(state *State) *codeGen {
	return &codeGen{state: state}
}

func (g *codeGen) proto() *Proto { return g.current.proto }

// close releases any function contexts still open after an abnormal
// unwind, newest first, finalizing their debug info.
func (g *codeGen) close() {
	for g.current != nil {
		g.leaveFunction()
	}
}

// enterFunction pushes a new generation context. A child prototype is
// registered in its parent's child table at a stable index and
// inherits the parent's module name.
func (g *codeGen) enterFunction() {
	fc := &funcContext{proto: g.state.NewProto(), parent: g.current}
	if fc.parent != nil {
		fc.childIndex = fc.parent.proto.AddChild(fc.proto)
		fc.proto.Source = fc.parent.proto.Source
	}
	g.current = fc
}

// leaveFunction pops the current context, closing blocks still open so
// their debug ranges are finalized even on error unwind.
func (g *codeGen) leaveFunction() {
	for g.current.block != nil {
		g.leaveBlock()
	}
	g.current.proto.NumUsedRegs = g.current.regMax
	g.current = g.current.parent
}

func (g *codeGen) enterBlock() {
	g.current.block = &codeBlock{
		parent:   g.current.block,
		regFloor: g.current.regCursor,
	}
}

// leaveBlock finalizes every binding still live in the block into the
// prototype's debug list and releases the block's registers by
// restoring the cursor to the block floor.
func (g *codeGen) leaveBlock() {
	fc := g.current
	block := fc.block
	endPC := fc.proto.NumInstructions()
	for _, v := range block.vars {
		fc.proto.AddLocalVar(v.name, v.reg, v.startPC, endPC)
	}
	fc.block = block.parent
	fc.regCursor = block.regFloor
}

// insertName binds name in the innermost block. Re-binding an existing
// name closes the old binding's debug range at the current instruction
// and starts a new one, so `local i = i` keeps both records.
func (g *codeGen) insertName(name string, reg int, asUpvalue bool) {
	fc := g.current
	pc := fc.proto.NumInstructions()
	if v := fc.block.find(name); v != nil {
		fc.proto.AddLocalVar(name, v.reg, v.startPC, pc)
		*v = localVar{name: name, reg: reg, startPC: pc, asUpvalue: asUpvalue}
		return
	}
	fc.block.vars = append(fc.block.vars, localVar{name: name, reg: reg, startPC: pc, asUpvalue: asUpvalue})
}

// searchLocalName looks name up in the current function's open blocks,
// innermost first. It never crosses a function boundary.
func (g *codeGen) searchLocalName(name string) *localVar {
	return searchFunctionLocalName(g.current, name)
}

func searchFunctionLocalName(fc *funcContext, name string) *localVar {
	for block := fc.block; block != nil; block = block.parent {
		if v := block.find(name); v != nil {
			return v
		}
	}
	return nil
}

// genRegister allocates the next register id.
func (g *codeGen) genRegister() int {
	id := g.current.regCursor
	g.resetRegister(id + 1)
	return id
}

func (g *codeGen) nextRegister() int { return g.current.regCursor }

// resetRegister moves the register cursor, growing the function's
// high-water mark when the cursor passes it.
func (g *codeGen) resetRegister(cursor int) {
	fc := g.current
	fc.regCursor = cursor
	if fc.regCursor > fc.regMax {
		fc.regMax = fc.regCursor
	}
	if fc.regMax > maxRegisters {
		raiseCompileError(fc, CodeTooManyRegisters,
			"function needs more than %d registers", maxRegisters)
	}
}

// prepareUpvalue resolves name as an upvalue of the current function,
// threading a descriptor through every function between the binding
// ancestor and the current one. Idempotent: an existing descriptor is
// reused. The walk is iterative so generation stack depth stays
// independent of source nesting depth.
func (g *codeGen) prepareUpvalue(name string) int {
	fc := g.current
	if index := fc.proto.UpvalueIndex(name); index >= 0 {
		return index
	}

	pending := []*funcContext{fc.parent}
	index := -1
	parentLocal := false
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		if current == nil {
			// Name resolution classified this reference as an upvalue,
			// so some enclosing function must bind it.
			panic("codegen: upvalue " + name + " not bound by any enclosing function")
		}
		if index >= 0 {
			index = g.addUpvalue(current, name, parentLocal, index)
			parentLocal = false
			pending = pending[:len(pending)-1]
			continue
		}
		if v := searchFunctionLocalName(current, name); v != nil {
			index = v.reg
			parentLocal = true
			pending = pending[:len(pending)-1]
		} else if uv := current.proto.UpvalueIndex(name); uv >= 0 {
			index = uv
			parentLocal = false
			pending = pending[:len(pending)-1]
		} else {
			pending = append(pending, current.parent)
		}
	}
	return g.addUpvalue(fc, name, parentLocal, index)
}

func (g *codeGen) addUpvalue(fc *funcContext, name string, parentLocal bool, index int) int {
	i := fc.proto.AddUpvalue(name, parentLocal, index)
	if i >= maxUpvalues {
		raiseCompileError(fc, CodeTooManyUpvalues,
			"function needs more than %d upvalues", maxUpvalues)
	}
	return i
}

// fillNil pads [reg, to) with load-nil instructions. Unbounded
// destinations take exactly what was produced.
func (g *codeGen) fillNil(reg, to, line int) {
	if to == regAny {
		return
	}
	for ; reg < to; reg++ {
		g.proto().AddInstruction(InstA(OpLoadNil, reg), line)
	}
}

func sline(pos ast.PositionHolder) int { return pos.Line() }

// Compile generates the prototype tree for chunk, wraps the root
// prototype in a closure and pushes the closure onto the state's value
// stack. Compilation is atomic: on error nothing is pushed and no
// partial result is returned.
func Compile(chunk []ast.Stmt, name string, state *State) (cl *Closure, err error) {
	g := newCodeGen(state)
	defer func() {
		g.close()
		if rcv := recover(); rcv != nil {
			cerr, ok := rcv.(*CompileError)
			if !ok {
				panic(rcv)
			}
			cl, err = nil, cerr
		}
	}()

	proto := g.compileChunk(chunk, name)
	cl = state.NewClosure(proto)
	state.Push(cl)
	return cl, nil
}

// compileChunk compiles the top-level chunk as a vararg function.
func (g *codeGen) compileChunk(chunk []ast.Stmt, name string) *Proto {
	g.enterFunction()
	defer g.leaveFunction()

	proto := g.proto()
	proto.Source = name
	proto.LineDefined = 1
	proto.IsVarArg = true

	g.enterBlock()
	defer g.leaveBlock()
	g.compileBlock(chunk)
	return proto
}

func (g *codeGen) compileBlock(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		g.compileStmt(stmt)
	}
}

func (g *codeGen) compileStmt(stmt ast.Stmt) {
	switch st := stmt.(type) {
	case *ast.LocalAssignStmt:
		g.compileLocalAssignStmt(st)
	case *ast.AssignStmt:
		g.compileAssignStmt(st)
	case *ast.ReturnStmt:
		g.compileReturnStmt(st)
	case *ast.FuncCallStmt:
		g.compileFuncCallStmt(st)
	default:
		panic(fmt.Sprintf("statement %T not implemented", st))
	}
}

// compileLocalAssignStmt compiles the right-hand side before binding
// the declared names, so `local x = x` reads the previous x. The
// destination range is reserved while the initializers run and handed
// back to the fresh bindings afterwards.
func (g *codeGen) compileLocalAssignStmt(stmt *ast.LocalAssignStmt) {
	if len(stmt.Exprs) > 0 {
		start := g.nextRegister()
		end := start + len(stmt.Names)
		g.resetRegister(end)
		g.compileExprList(stmt.Exprs, start, end)
		g.resetRegister(start)
	}
	g.bindNameList(stmt.Names, len(stmt.Exprs) == 0, sline(stmt))
}

// bindNameList allocates one register per declared name. With no
// initializer list each name is explicitly initialized to nil.
func (g *codeGen) bindNameList(names []ast.Name, needInit bool, line int) {
	for _, name := range names {
		reg := g.genRegister()
		g.insertName(name.Value, reg, name.Captured)
		if needInit {
			g.proto().AddInstruction(InstA(OpLoadNil, reg), line)
		}
	}
}

// compileAssignStmt evaluates the full right-hand side into a fresh
// contiguous range before any store happens, so `a, b = b, a` really
// swaps. Truncation and nil padding happen while filling the range.
func (g *codeGen) compileAssignStmt(stmt *ast.AssignStmt) {
	saved := g.nextRegister()
	defer g.resetRegister(saved)

	start := g.nextRegister()
	end := start + len(stmt.Lhs)
	g.resetRegister(end)
	g.compileExprList(stmt.Rhs, start, end)

	for i, target := range stmt.Lhs {
		g.compileAssignTarget(target, start+i)
	}
}

// compileAssignTarget stores the value held in reg into the target
// variable. A target always consumes exactly one register.
func (g *codeGen) compileAssignTarget(target ast.Expr, reg int) {
	ident, ok := target.(*ast.IdentExpr)
	if !ok {
		panic(fmt.Sprintf("assignment target %T not implemented", target))
	}
	proto := g.proto()
	switch ident.Scope {
	case ast.ScopeGlobal:
		index := proto.ConstIndexString(ident.Value)
		proto.AddInstruction(InstABx(OpSetGlobal, reg, index), sline(ident))
	case ast.ScopeLocal:
		v := g.searchLocalName(ident.Value)
		if v == nil {
			panic("codegen: local " + ident.Value + " not bound in any active block")
		}
		proto.AddInstruction(InstAB(OpMove, v.reg, reg), sline(ident))
	case ast.ScopeUpvalue:
		index := g.prepareUpvalue(ident.Value)
		proto.AddInstruction(InstAB(OpSetUpvalue, reg, index), sline(ident))
	default:
		panic(fmt.Sprintf("identifier %s has invalid scope %d", ident.Value, ident.Scope))
	}
}

// compileReturnStmt places the returned values in an unbounded range
// starting at the next free register; the VM reads from there through
// the top of stack. A trailing call or vararg expands in place.
func (g *codeGen) compileReturnStmt(stmt *ast.ReturnStmt) {
	start := g.nextRegister()
	if len(stmt.Exprs) > 0 {
		g.compileExprList(stmt.Exprs, start, regAny)
	}
	g.proto().AddInstruction(InstA(OpReturn, start), sline(stmt))
	g.resetRegister(start)
}

// A call statement discards all results.
func (g *codeGen) compileFuncCallStmt(stmt *ast.FuncCallStmt) {
	call, ok := stmt.Expr.(*ast.FuncCallExpr)
	if !ok {
		panic(fmt.Sprintf("call statement over %T not implemented", stmt.Expr))
	}
	top := g.nextRegister()
	g.compileFuncCallExpr(call, top, top)
}

// compileExprList fills [from, to) from exprs. Every expression but
// the last consumes one register; expressions past a bounded
// destination are still compiled, with a zero-width target, for their
// side effects. The last expression receives the whole remainder,
// including the unbounded sentinel. Stored prefix values are kept
// below the cursor so a later element's temporaries cannot land on
// them.
func (g *codeGen) compileExprList(exprs []ast.Expr, from, to int) {
	if len(exprs) == 0 {
		panic("codegen: empty expression list")
	}
	reg := from
	last := len(exprs) - 1
	for i := 0; i < last; i++ {
		saved := g.nextRegister()
		if to == regAny || reg < to {
			g.compileExpr(exprs[i], reg, reg+1)
			reg++
			if reg > saved {
				saved = reg
			}
		} else {
			g.compileExpr(exprs[i], 0, 0)
		}
		g.resetRegister(saved)
	}

	saved := g.nextRegister()
	g.compileExpr(exprs[last], reg, to)
	if to != regAny {
		g.resetRegister(saved)
	}
}

func (g *codeGen) compileExpr(expr ast.Expr, from, to int) {
	switch ex := expr.(type) {
	case *ast.FuncCallExpr:
		g.compileFuncCallExpr(ex, from, to)
	case *ast.FunctionExpr:
		g.compileFunctionExpr(ex, from, to)
	default:
		g.compileTermExpr(expr, from, to)
	}
}

// compileTermExpr emits the load for a single-token expression and
// pads the rest of a bounded destination with nil. The vararg
// instruction fills every requested register at run time, so it is
// the one case without trailing nil padding.
func (g *codeGen) compileTermExpr(expr ast.Expr, from, to int) {
	if to != regAny && from >= to {
		// Zero-width destination: terms have no side effects.
		return
	}
	proto := g.proto()
	reg := from
	switch ex := expr.(type) {
	case *ast.NumberExpr:
		index := proto.ConstIndexNumber(ex.Value)
		proto.AddInstruction(InstABx(OpLoadConst, reg, index), sline(ex))
		reg++
	case *ast.StringExpr:
		index := proto.ConstIndexString(ex.Value)
		proto.AddInstruction(InstABx(OpLoadConst, reg, index), sline(ex))
		reg++
	case *ast.TrueExpr:
		proto.AddInstruction(InstAB(OpLoadBool, reg, 1), sline(ex))
		reg++
	case *ast.FalseExpr:
		proto.AddInstruction(InstAB(OpLoadBool, reg, 0), sline(ex))
		reg++
	case *ast.NilExpr:
		proto.AddInstruction(InstA(OpLoadNil, reg), sline(ex))
		reg++
	case *ast.IdentExpr:
		g.compileIdentExpr(ex, reg)
		reg++
	case *ast.Comma3Expr:
		want := regAny
		if to != regAny {
			want = to - reg
		}
		proto.AddInstruction(InstASbx(OpVarArg, reg, want), sline(ex))
		reg = to
	default:
		panic(fmt.Sprintf("expression %T not implemented", expr))
	}
	g.fillNil(reg, to, sline(expr))
}

func (g *codeGen) compileIdentExpr(ex *ast.IdentExpr, reg int) {
	proto := g.proto()
	switch ex.Scope {
	case ast.ScopeGlobal:
		index := proto.ConstIndexString(ex.Value)
		proto.AddInstruction(InstABx(OpGetGlobal, reg, index), sline(ex))
	case ast.ScopeLocal:
		v := g.searchLocalName(ex.Value)
		if v == nil {
			panic("codegen: local " + ex.Value + " not bound in any active block")
		}
		proto.AddInstruction(InstAB(OpMove, reg, v.reg), sline(ex))
	case ast.ScopeUpvalue:
		index := g.prepareUpvalue(ex.Value)
		proto.AddInstruction(InstAB(OpGetUpvalue, reg, index), sline(ex))
	default:
		panic(fmt.Sprintf("identifier %s has invalid scope %d", ex.Value, ex.Scope))
	}
}

// compileFuncCallExpr evaluates the callee into a fresh register, the
// arguments contiguously above it, then emits the call expecting
// to-from results. Bounded destinations get the results moved down;
// unbounded destinations take them in place, with no copy.
func (g *codeGen) compileFuncCallExpr(ex *ast.FuncCallExpr, from, to int) {
	saved := g.nextRegister()
	defer g.resetRegister(saved)

	caller := g.genRegister()
	g.compileExpr(ex.Func, caller, caller+1)
	if len(ex.Args) > 0 {
		g.compileExprList(ex.Args, g.nextRegister(), regAny)
	}

	results := regAny
	if to != regAny {
		results = to - from
	}
	proto := g.proto()
	proto.AddInstruction(InstASbx(OpCall, caller, results), sline(ex))

	if to == regAny {
		return
	}
	for dst, src := from, caller; dst < to; dst, src = dst+1, src+1 {
		proto.AddInstruction(InstAB(OpMove, dst, src), sline(ex))
	}
}

// compileFunctionExpr generates the child prototype, then emits the
// closure instruction back in the enclosing function. A zero-width
// destination still compiles the body fully; it just never
// materializes the closure.
func (g *codeGen) compileFunctionExpr(ex *ast.FunctionExpr, from, to int) {
	childIndex := g.compileFunctionBody(ex)

	reg := from
	if to == regAny || reg < to {
		g.proto().AddInstruction(InstABx(OpClosure, reg, childIndex), sline(ex))
		reg++
	}
	g.fillNil(reg, to, sline(ex))
}

// compileFunctionBody generates the child prototype and returns its
// index in the current function's child table. A body entered is
// always generated to completion.
func (g *codeGen) compileFunctionBody(ex *ast.FunctionExpr) int {
	g.enterFunction()
	defer g.leaveFunction()

	g.proto().LineDefined = sline(ex)
	childIndex := g.current.childIndex

	g.enterBlock()
	defer g.leaveBlock()
	g.compileParList(ex.ParList)
	g.compileBlock(ex.Stmts)
	return childIndex
}

// compileParList records the signature on the prototype and binds each
// parameter to a fresh register.
func (g *codeGen) compileParList(parlist *ast.ParList) {
	if parlist == nil {
		return
	}
	proto := g.proto()
	proto.NumParameters = len(parlist.Names)
	proto.IsVarArg = parlist.HasVargs
	g.bindNameList(parlist.Names, false, proto.LineDefined)
}
