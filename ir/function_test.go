package ir

import "testing"

func TestFunctionBuilderLinear(t *testing.T) {
	b := NewFunctionBuilder("test_fn", Signature{Ret: UI1})
	d := b.Declare("x", I8)
	b.Assign(d.Ref(), ConstI(I8, 42))
	b.Return(ConstI(UI1, 0))
	fn := b.Build()

	if fn.Name != "test_fn" {
		t.Errorf("Name=%q", fn.Name)
	}
	if len(fn.Body.Stmts) != 3 {
		t.Fatalf("len(Stmts)=%d, want 3", len(fn.Body.Stmts))
	}
	if _, ok := fn.Body.Stmts[0].(*Declare); !ok {
		t.Errorf("Stmts[0] is %T, want *Declare", fn.Body.Stmts[0])
	}
	assign, ok := fn.Body.Stmts[1].(*Assign)
	if !ok {
		t.Fatalf("Stmts[1] is %T, want *Assign", fn.Body.Stmts[1])
	}
	if ref, ok := assign.Lvalue.(*VarRef); !ok || ref.Decl != d {
		t.Error("Assign.Lvalue should reference the same Declare by identity")
	}
	if _, ok := fn.Body.Stmts[2].(*Return); !ok {
		t.Errorf("Stmts[2] is %T, want *Return", fn.Body.Stmts[2])
	}
}

func TestFunctionBuilderIfElse(t *testing.T) {
	b := NewFunctionBuilder("branchy", Signature{Ret: UI1})
	cond := ConstBool(true)
	ifStmt, thenGuard := b.BuildIf(cond)
	b.Declare("inner", I4)
	thenGuard.Close()

	elseGuard := b.BuildElse(ifStmt)
	b.Declare("other", I4)
	elseGuard.Close()

	b.Return(ConstI(UI1, 0))
	fn := b.Build()

	if len(fn.Body.Stmts) != 2 {
		t.Fatalf("len(Stmts)=%d, want 2 (if, return)", len(fn.Body.Stmts))
	}
	got, ok := fn.Body.Stmts[0].(*If)
	if !ok {
		t.Fatalf("Stmts[0] is %T, want *If", fn.Body.Stmts[0])
	}
	if len(got.Then.Stmts) != 1 {
		t.Errorf("len(Then.Stmts)=%d, want 1", len(got.Then.Stmts))
	}
	if got.Else == nil || len(got.Else.Stmts) != 1 {
		t.Errorf("Else block missing or wrong length")
	}
}

func TestFunctionBuilderWhile(t *testing.T) {
	b := NewFunctionBuilder("loopy", Signature{Ret: UI1})
	cond := ConstBool(true)
	_, guard := b.BuildWhile(cond)
	b.Return(ConstI(UI1, 1))
	guard.Close()
	b.Return(ConstI(UI1, 0))
	fn := b.Build()

	while, ok := fn.Body.Stmts[0].(*While)
	if !ok {
		t.Fatalf("Stmts[0] is %T, want *While", fn.Body.Stmts[0])
	}
	if len(while.Body.Stmts) != 1 {
		t.Errorf("len(While.Body.Stmts)=%d, want 1", len(while.Body.Stmts))
	}
	if len(fn.Body.Stmts) != 2 {
		t.Errorf("len(Stmts)=%d, want 2 (while, return)", len(fn.Body.Stmts))
	}
}

func TestGuardDoubleCloseAlreadyPanics(t *testing.T) {
	b := NewFunctionBuilder("f", Signature{Ret: Void})
	_, guard := b.BuildIf(ConstBool(true))
	guard.Close()

	defer func() {
		if recover() == nil {
			t.Error("closing an already-closed Guard should panic")
		}
	}()
	guard.Close()
}

func TestBinOpResultType(t *testing.T) {
	add := NewBinOp(Add, ConstI(I4, 1), ConstI(I4, 2))
	if add.Type().Id() != I4.Id() {
		t.Errorf("Add result type=%s, want I4", add.Type().Id())
	}
	eq := NewBinOp(Eq, ConstI(I4, 1), ConstI(I4, 2))
	if eq.Type().Id() != Bool.Id() {
		t.Errorf("Eq result type=%s, want Bool", eq.Type().Id())
	}
}
