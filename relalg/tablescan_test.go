package relalg

import (
	"testing"
	"unsafe"

	"github.com/inkfuse/inkfuse/config"
	"github.com/inkfuse/inkfuse/exec"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/printsink"
	"github.com/inkfuse/inkfuse/subop"
)

func testCfg() config.Engine {
	cfg := config.Defaults()
	cfg.NumThreads = 1
	cfg.ForceInterpreted = true
	return cfg
}

func newRelationWithInts(name string, vals []int64) *Relation {
	rel := NewRelation(len(vals))
	col := rel.AddColumn(name, ir.I8)
	for _, v := range vals {
		v := v
		col.Append(unsafe.Pointer(&v))
	}
	return rel
}

func TestTableScanDecayAndRunProducesEveryRow(t *testing.T) {
	rel := newRelationWithInts("id", []int64{10, 20, 30})

	scan := &TableScan{Relation: rel, ColumnNames: []string{"id"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, err := scan.Decay(dag)
	if err != nil {
		t.Fatalf("Decay: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("len(ids)=%d, want 1", len(ids))
	}

	sink := &printsink.CollectingSink{}
	print := &Print{
		OutputIUs:   ids,
		ColumnNames: []string{"id"},
		Tag:         "t",
		Into:        sink,
	}
	if _, err := print.Decay(dag); err != nil {
		t.Fatalf("Print.Decay: %v", err)
	}

	exe := &exec.Executor{Config: testCfg()}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.Rows) != 3 {
		t.Fatalf("len(Rows)=%d, want 3", len(sink.Rows))
	}
	want := map[string]bool{"10": true, "20": true, "30": true}
	for _, row := range sink.Rows {
		if !want[row[0]] {
			t.Errorf("unexpected row value %q", row[0])
		}
		delete(want, row[0])
	}
	if len(want) != 0 {
		t.Errorf("missing expected rows: %v", want)
	}
}

func TestTableScanSpansMultipleMorsels(t *testing.T) {
	n := ScanMorselSize*2 + 17
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = int64(i)
	}
	rel := newRelationWithInts("id", vals)

	scan := &TableScan{Relation: rel, ColumnNames: []string{"id"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, err := scan.Decay(dag)
	if err != nil {
		t.Fatalf("Decay: %v", err)
	}

	sink := &printsink.CollectingSink{}
	print := &Print{OutputIUs: ids, ColumnNames: []string{"id"}, Tag: "t", Into: sink}
	if _, err := print.Decay(dag); err != nil {
		t.Fatalf("Print.Decay: %v", err)
	}

	cfg := testCfg()
	cfg.NumThreads = 4
	exe := &exec.Executor{Config: cfg}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.Rows) != n {
		t.Errorf("len(Rows)=%d, want %d", len(sink.Rows), n)
	}
}

func TestTableScanUnknownColumnPanics(t *testing.T) {
	rel := newRelationWithInts("id", []int64{1})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"nope"}, Tag: "t"}
	dag := subop.NewPipelineDAG()

	defer func() {
		if recover() == nil {
			t.Error("Decay over an unknown column name should panic")
		}
	}()
	scan.Decay(dag)
}
