package relalg

import (
	"testing"

	"github.com/inkfuse/inkfuse/exec"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/printsink"
	"github.com/inkfuse/inkfuse/subop"
)

func TestExpressionOpAddConstant(t *testing.T) {
	rel := newRelationWithInts("x", []int64{1, 2, 3})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"x"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, err := scan.Decay(dag)
	if err != nil {
		t.Fatalf("scan.Decay: %v", err)
	}

	pool := NewNodePool()
	xRef := pool.AddIURef(ids[0])
	ten := pool.AddConst(&ir.Const{Ty: ir.I8, Val: int64(10)})
	sum := pool.AddCompute(ir.Add, xRef, ten)

	expr := &ExpressionOp{Tag: "e", OutputNodes: []int{sum}, Pool: pool}
	outIDs, err := expr.Decay(dag)
	if err != nil {
		t.Fatalf("expr.Decay: %v", err)
	}
	if len(outIDs) != 1 {
		t.Fatalf("len(outIDs)=%d, want 1", len(outIDs))
	}

	sink := &printsink.CollectingSink{}
	print := &Print{OutputIUs: outIDs, ColumnNames: []string{"x+10"}, Tag: "p", Into: sink}
	if _, err := print.Decay(dag); err != nil {
		t.Fatalf("print.Decay: %v", err)
	}

	cfg := testCfg()
	exe := &exec.Executor{Config: cfg}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.Rows) != 3 {
		t.Fatalf("len(Rows)=%d, want 3", len(sink.Rows))
	}
	want := map[string]bool{"11": true, "12": true, "13": true}
	for _, row := range sink.Rows {
		if !want[row[0]] {
			t.Errorf("unexpected computed value %q", row[0])
		}
	}
}

func TestExpressionOpSharedNodeEmittedOnce(t *testing.T) {
	rel := newRelationWithInts("x", []int64{5})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"x"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, _ := scan.Decay(dag)

	pool := NewNodePool()
	xRef := pool.AddIURef(ids[0])
	two := pool.AddConst(&ir.Const{Ty: ir.I8, Val: int64(2)})
	shared := pool.AddCompute(ir.Mul, xRef, two) // x*2, referenced twice below
	plusOne := pool.AddConst(&ir.Const{Ty: ir.I8, Val: int64(1)})
	a := pool.AddCompute(ir.Add, shared, plusOne)
	b := pool.AddCompute(ir.Sub, shared, plusOne)

	expr := &ExpressionOp{Tag: "e", OutputNodes: []int{a, b}, Pool: pool}
	p := dag.Current()
	before := len(p.Subs)
	outIDs, err := expr.Decay(dag)
	if err != nil {
		t.Fatalf("Decay: %v", err)
	}
	after := len(p.Subs)

	// 1 const(2) + 1 mul(shared) + 1 const(1) + add + sub == 5 new subs,
	// not 8 (4 per output): the shared mul/const nodes must only be emitted once.
	if got, want := after-before, 5; got != want {
		t.Errorf("appended %d suboperators, want %d (shared nodes must be memoized)", got, want)
	}
	if len(outIDs) != 2 {
		t.Fatalf("len(outIDs)=%d, want 2", len(outIDs))
	}
}

func TestExpressionOpComparisonProducesBool(t *testing.T) {
	rel := newRelationWithInts("x", []int64{1, 2, 3})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"x"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, _ := scan.Decay(dag)

	pool := NewNodePool()
	xRef := pool.AddIURef(ids[0])
	two := pool.AddConst(&ir.Const{Ty: ir.I8, Val: int64(2)})
	gt := pool.AddCompute(ir.Gt, xRef, two)

	if pool.resultType(gt) != ir.Bool {
		t.Errorf("resultType(comparison)=%v, want Bool", pool.resultType(gt))
	}
}
