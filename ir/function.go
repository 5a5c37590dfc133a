package ir

import "fmt"

// Signature holds a generated function's return type and its
// function-specific parameters. The fixed three-slot prefix every
// generated function shares (spec §4.1: a per-suboperator global
// state array, a per-thread scratch slot array, and a reserved
// resumption-state pointer) is not listed here; the C backend always
// emits those three ahead of Params.
type Signature struct {
	Params []Param
	// Ret is the function's return type. Pipeline entry points always
	// return UI1 (the "more morsels?" status byte); helper functions
	// invoked from within a pipeline may return other types.
	Ret Type
}

// Param is one parameter of a Function, beyond the fixed prefix.
type Param struct {
	Name string
	Ty   Type
}

// Function is a named, fully-built function body.
type Function struct {
	Name string
	Sig  Signature
	Body *Block
}

// FunctionBuilder accumulates statements into a Function body. It
// tracks the block currently receiving new statements; BuildIf and
// BuildWhile push a nested block and return a Guard that restores the
// parent block when released. This mirrors the teacher's RAII scoping
// discipline without C++ destructors: callers must `defer guard.Close()`
// (or call it at every exit path) immediately after opening the scope.
type FunctionBuilder struct {
	fn      *Function
	current *Block

	// vars backs Var: one Declare per distinct key (typically an
	// *iu.IU pointer) referenced so far in this function, so fused
	// suboperators can exchange values as plain C locals rather than
	// round-tripping them through column storage (spec §4.4).
	vars map[any]*Declare

	// scopes is the stack of still-open guards opened by OpenScope,
	// closed in turn by CloseScope as the suboperators native to each
	// scope finish emitting (spec §4.2 "scope").
	scopes []*Guard
}

// NewFunctionBuilder starts building a function with the given name
// and signature; the three-slot ABI prefix (global_state,
// thread_params, resumption_state) is implicit and prepended by the
// code backend, not listed here.
func NewFunctionBuilder(name string, sig Signature) *FunctionBuilder {
	body := &Block{}
	return &FunctionBuilder{
		fn:      &Function{Name: name, Sig: sig, Body: body},
		current: body,
		vars:    make(map[any]*Declare),
	}
}

// Var returns a VarRef to the local variable keyed by id, declaring a
// fresh one of type ty (named after hint) the first time id is
// referenced within this function. Suboperator Emit implementations
// use this to thread an IU's value to its consumer as a plain C local,
// the fused analogue of an interpreted suboperator's FuseChunk column
// (spec §4.4).
func (b *FunctionBuilder) Var(id any, ty Type, hint string) *VarRef {
	if d, ok := b.vars[id]; ok {
		return &VarRef{Decl: d}
	}
	d := b.Declare(fmt.Sprintf("v%d_%s", len(b.vars), sanitizeIdent(hint)), ty)
	b.vars[id] = d
	return &VarRef{Decl: d}
}

// Param returns a VarRef to one of the function's fixed ABI prefix
// parameters (global_state, thread_params, resumption_state) by name,
// without declaring it again — those three are emitted by the C
// backend ahead of Sig.Params (spec §4.1).
func (b *FunctionBuilder) Param(name string, ty Type) *VarRef {
	return &VarRef{Decl: &Declare{Name: name, Ty: ty}}
}

// OpenScope opens an if-guarded region that subsequent Append/Declare/
// Assign calls land inside, without closing it — the producer of a
// strong link opens a scope this way, and its strong-linked consumers
// land inside it simply by emitting after it (spec §3 link discipline,
// §4.2 "scope"). Pair with CloseScope once every suboperator native to
// the scope has emitted.
func (b *FunctionBuilder) OpenScope(cond Expr) {
	_, guard := b.BuildIf(cond)
	b.scopes = append(b.scopes, guard)
}

// CloseScope closes the innermost scope opened by OpenScope, if any,
// reporting whether one was open.
func (b *FunctionBuilder) CloseScope() bool {
	if len(b.scopes) == 0 {
		return false
	}
	g := b.scopes[len(b.scopes)-1]
	b.scopes = b.scopes[:len(b.scopes)-1]
	g.Close()
	return true
}

// ScopeDepth reports how many OpenScope calls are currently
// unclosed, letting a caller driving several suboperators in sequence
// (the fused runner) detect how many new scopes a given suboperator's
// Emit call opened.
func (b *FunctionBuilder) ScopeDepth() int { return len(b.scopes) }

func sanitizeIdent(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// Append writes stmt to the block currently open for writing.
func (b *FunctionBuilder) Append(stmt Stmt) { b.current.append(stmt) }

// Declare appends a Declare statement and returns it so the caller can
// build VarRefs against it.
func (b *FunctionBuilder) Declare(name string, ty Type) *Declare {
	d := &Declare{Name: name, Ty: ty}
	b.Append(d)
	return d
}

// Assign appends an Assign statement.
func (b *FunctionBuilder) Assign(lvalue, rvalue Expr) {
	b.Append(&Assign{Lvalue: lvalue, Rvalue: rvalue})
}

// Return appends a Return statement.
func (b *FunctionBuilder) Return(v Expr) { b.Append(&Return{Value: v}) }

// Guard restores the parent block when Close is called. Every guard
// returned by BuildIf/BuildElse/BuildWhile must be closed exactly once, on every
// exit path (including early returns from the caller), or subsequent
// statements silently land in the wrong block.
type Guard struct {
	b      *FunctionBuilder
	parent *Block
	closed bool
}

// Close restores the builder's current block to the one open before
// the guard's scope was entered. Safe to call once; calling it twice
// panics, matching the teacher's single-release discipline for
// scoped-acquire guard types.
func (g *Guard) Close() {
	if g.closed {
		panic("ir: Guard closed twice")
	}
	g.b.current = g.parent
	g.closed = true
}

// BuildIf opens an if-statement's then-block and returns a guard that,
// once closed, restores the builder's current block; the else-block is
// opened separately with BuildElse. The typical call site is:
//
//	ifStmt, thenGuard := b.BuildIf(cond)
//	... statements land in ifStmt.Then ...
//	thenGuard.Close()
func (b *FunctionBuilder) BuildIf(cond Expr) (*If, *Guard) {
	then := &Block{}
	stmt := &If{Cond: cond, Then: then}
	b.Append(stmt)
	guard := &Guard{b: b, parent: b.current}
	b.current = then
	return stmt, guard
}

// BuildElse opens the else-block of an If already appended via
// BuildIf (whose then-guard must already be closed). Returns a guard
// that restores the current block on Close.
func (b *FunctionBuilder) BuildElse(stmt *If) *Guard {
	els := &Block{}
	stmt.Else = els
	guard := &Guard{b: b, parent: b.current}
	b.current = els
	return guard
}

// BuildWhile opens a while-loop body and returns a guard that restores
// the builder's current block on Close.
func (b *FunctionBuilder) BuildWhile(cond Expr) (*While, *Guard) {
	body := &Block{}
	stmt := &While{Cond: cond, Body: body}
	b.Append(stmt)
	guard := &Guard{b: b, parent: b.current}
	b.current = body
	return stmt, guard
}

// Build finalizes and returns the constructed Function. The builder
// must not be used afterwards.
func (b *FunctionBuilder) Build() *Function { return b.fn }
