package relalg

import (
	"testing"

	"github.com/inkfuse/inkfuse/exec"
	"github.com/inkfuse/inkfuse/printsink"
	"github.com/inkfuse/inkfuse/subop"
)

func TestPrintRowLimitTruncatesOutput(t *testing.T) {
	rel := newRelationWithInts("x", []int64{1, 2, 3, 4, 5})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"x"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, err := scan.Decay(dag)
	if err != nil {
		t.Fatalf("scan.Decay: %v", err)
	}

	sink := &printsink.CollectingSink{}
	print := &Print{OutputIUs: ids, ColumnNames: []string{"x"}, Tag: "p", RowLimit: 3, Into: sink}
	if _, err := print.Decay(dag); err != nil {
		t.Fatalf("print.Decay: %v", err)
	}

	exe := &exec.Executor{Config: testCfg()}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.Rows) != 3 {
		t.Errorf("len(Rows)=%d, want 3 (RowLimit)", len(sink.Rows))
	}
}

func TestPrintWithoutRowLimitEmitsEveryRow(t *testing.T) {
	rel := newRelationWithInts("x", []int64{1, 2, 3})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"x"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, _ := scan.Decay(dag)

	sink := &printsink.CollectingSink{}
	print := &Print{OutputIUs: ids, ColumnNames: []string{"x"}, Tag: "p", Into: sink}
	print.Decay(dag)

	exe := &exec.Executor{Config: testCfg()}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.Rows) != 3 {
		t.Errorf("len(Rows)=%d, want 3", len(sink.Rows))
	}
	if len(sink.ColumnNames) != 1 || sink.ColumnNames[0] != "x" {
		t.Errorf("ColumnNames=%v, want [x]", sink.ColumnNames)
	}
}
