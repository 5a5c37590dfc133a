package relalg

import (
	"strconv"
	"testing"
	"unsafe"

	"github.com/inkfuse/inkfuse/exec"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/printsink"
	"github.com/inkfuse/inkfuse/subop"
)

func newRelationTwoCols(groupVals, valueVals []int64) *Relation {
	rel := NewRelation(len(groupVals))
	g := rel.AddColumn("g", ir.I8)
	v := rel.AddColumn("v", ir.I8)
	for i := range groupVals {
		gv, vv := groupVals[i], valueVals[i]
		g.Append(unsafe.Pointer(&gv))
		v.Append(unsafe.Pointer(&vv))
	}
	return rel
}

func TestAggregationCountAndSumGroupedByKey(t *testing.T) {
	rel := newRelationTwoCols([]int64{1, 1, 2}, []int64{10, 20, 5})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"g", "v"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, err := scan.Decay(dag)
	if err != nil {
		t.Fatalf("scan.Decay: %v", err)
	}
	gIU, vIU := ids[0], ids[1]

	agg := &Aggregation{
		Tag:     "a",
		GroupBy: []*iu.IU{gIU},
		Descs: []Description{
			{Op: Count, OutputName: "cnt"},
			{IU: vIU, Op: Sum, OutputName: "sum_v"},
		},
	}
	outIDs, err := agg.Decay(dag)
	if err != nil {
		t.Fatalf("agg.Decay: %v", err)
	}
	if len(outIDs) != 3 { // group col + count + sum
		t.Fatalf("len(outIDs)=%d, want 3", len(outIDs))
	}

	sink := &printsink.CollectingSink{}
	print := &Print{OutputIUs: outIDs, ColumnNames: []string{"g", "cnt", "sum_v"}, Tag: "p", Into: sink}
	if _, err := print.Decay(dag); err != nil {
		t.Fatalf("print.Decay: %v", err)
	}

	exe := &exec.Executor{Config: testCfg()}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.Rows) != 2 {
		t.Fatalf("len(Rows)=%d, want 2 groups", len(sink.Rows))
	}
	byGroup := map[string][2]string{}
	for _, row := range sink.Rows {
		byGroup[row[0]] = [2]string{row[1], row[2]}
	}
	if got := byGroup["1"]; got[0] != "2" || mustFloat(t, got[1]) != 30 {
		t.Errorf("group 1: count/sum=%v, want 2/30", got)
	}
	if got := byGroup["2"]; got[0] != "1" || mustFloat(t, got[1]) != 5 {
		t.Errorf("group 2: count/sum=%v, want 1/5", got)
	}
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("ParseFloat(%q): %v", s, err)
	}
	return f
}

func TestAggregationAvgComputesMeanPerGroup(t *testing.T) {
	rel := newRelationTwoCols([]int64{1, 1}, []int64{10, 20})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"g", "v"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, _ := scan.Decay(dag)
	gIU, vIU := ids[0], ids[1]

	agg := &Aggregation{
		Tag:     "a",
		GroupBy: []*iu.IU{gIU},
		Descs:   []Description{{IU: vIU, Op: Avg, OutputName: "avg_v"}},
	}
	outIDs, err := agg.Decay(dag)
	if err != nil {
		t.Fatalf("agg.Decay: %v", err)
	}

	sink := &printsink.CollectingSink{}
	print := &Print{OutputIUs: outIDs, ColumnNames: []string{"g", "avg_v"}, Tag: "p", Into: sink}
	print.Decay(dag)

	exe := &exec.Executor{Config: testCfg()}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.Rows) != 1 {
		t.Fatalf("len(Rows)=%d, want 1", len(sink.Rows))
	}
	if got := mustFloat(t, sink.Rows[0][1]); got != 15 {
		t.Errorf("avg=%v, want 15", got)
	}
}

func TestAggregationMedianOddAndEvenCounts(t *testing.T) {
	rel := newRelationTwoCols([]int64{1, 1, 1}, []int64{1, 3, 2})
	scan := &TableScan{Relation: rel, ColumnNames: []string{"g", "v"}, Tag: "t"}
	dag := subop.NewPipelineDAG()
	ids, _ := scan.Decay(dag)
	gIU, vIU := ids[0], ids[1]

	agg := &Aggregation{
		Tag:     "a",
		GroupBy: []*iu.IU{gIU},
		Descs:   []Description{{IU: vIU, Op: Median, OutputName: "median_v"}},
	}
	outIDs, err := agg.Decay(dag)
	if err != nil {
		t.Fatalf("agg.Decay: %v", err)
	}

	sink := &printsink.CollectingSink{}
	print := &Print{OutputIUs: outIDs, ColumnNames: []string{"g", "median_v"}, Tag: "p", Into: sink}
	print.Decay(dag)

	exe := &exec.Executor{Config: testCfg()}
	if err := exe.Run(dag); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.Rows) != 1 {
		t.Fatalf("len(Rows)=%d, want 1", len(sink.Rows))
	}
	if got := mustFloat(t, sink.Rows[0][1]); got != 2 {
		t.Errorf("median([1,3,2])=%v, want 2", got)
	}
}
