package relalg

import (
	"fmt"
	"strconv"
	"sync"
	"time"
	"unsafe"

	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/subop"
)

// Sink receives one completed morsel's rows, already stringified in
// column order, and is free to do whatever it likes with them (write
// to a pretty-printer, append to a buffer, ship over a socket). The
// spec treats the pretty-printer as an external collaborator reached
// only through this callback (spec §6 "print-sink callback");
// printsink.CollectingSink is the implementation this package's own
// tests use.
type Sink interface {
	WriteRows(columnNames []string, rows [][]string)
}

// Print attaches one fuse-chunk sink per output IU, converts every row
// in a completed morsel to strings, and calls Into under a mutex so
// rows from one morsel stay contiguous in the sink's output even when
// morsels complete out of order across worker threads (spec §4.3
// "Print" row, §5 "pretty-printer serializes rows by a single mutex").
// An optional RowLimit truncates the very last morsel that would
// exceed it and causes subsequent morsels to be skipped without being
// formatted — the underlying table scan/join/aggregation upstream
// keeps running to completion regardless, since morsel sources have no
// shared cancellation channel wired in yet (see DESIGN.md).
type Print struct {
	Children    []Op
	Tag         string
	OutputIUs   []*iu.IU
	ColumnNames []string
	RowLimit    int // 0 means unlimited
	Into        Sink
}

func (p *Print) Decay(dag *subop.PipelineDAG) ([]*iu.IU, error) {
	for _, c := range p.Children {
		if _, err := c.Decay(dag); err != nil {
			return nil, err
		}
	}
	pipe := dag.Current()

	var mu sync.Mutex
	printed := 0

	sinkDoneIU := iu.Pseudo(p.Tag + "_print_done")
	sub := &subop.Suboperator{
		Kind:     subop.KindFuseChunkSink,
		Sources:  append([]*iu.IU{}, p.OutputIUs...),
		Provided: []*iu.IU{sinkDoneIU},
		IsSink:   true,
		Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
			cols := make([]*column.Column, len(p.OutputIUs))
			for i, id := range p.OutputIUs {
				c, err := chunk.Column(id)
				if err != nil {
					return subop.Done, err
				}
				cols[i] = c
			}

			mu.Lock()
			defer mu.Unlock()
			if p.RowLimit > 0 && printed >= p.RowLimit {
				return subop.Done, nil
			}
			rowEnd := end
			if p.RowLimit > 0 && printed+(end-start) > p.RowLimit {
				rowEnd = start + (p.RowLimit - printed)
			}

			rows := make([][]string, 0, rowEnd-start)
			for row := start; row < rowEnd; row++ {
				r := make([]string, len(cols))
				for i, c := range cols {
					r[i] = formatCell(c, row)
				}
				rows = append(rows, r)
			}
			printed += len(rows)
			p.Into.WriteRows(p.ColumnNames, rows)
			return subop.Done, nil
		},
	}

	// Fused mode accumulates rows into a thread-local native inkfuse_vec
	// instead of calling Into directly (the sink is a Go interface the
	// generated C can't reach); one packed row struct per print op
	// holds every output IU at its native width (spec §4.3 "Print").
	// Nothing in exec reads these buffers back, so rows a fused run
	// accumulates are not handed to Into.
	rowStruct := &ir.Struct{Name: cIdent(p.Tag) + "_print_row"}
	for i, id := range p.OutputIUs {
		rowStruct.Fields = append(rowStruct.Fields, ir.StructField{Name: fmt.Sprintf("c%d", i), Type: id.Type})
	}
	sub.ExtraStructs = []*ir.Struct{rowStruct}
	sub.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {
		vecVar := b.Var(emitVar{sub, "vec"}, ir.Ptr{Inner: ir.Void}, "print_vec")
		b.Assign(vecVar, subop.RawThreadSlot(b, sub.Slot))
		_, thenG := b.BuildIf(&ir.BinOp{Op: ir.Eq, Left: vecVar, Right: ir.ConstI(ir.I8, 0)})
		created := &ir.Invoke{
			Func:    "inkfuse_vec_create",
			Args:    []ir.Expr{ir.ConstI(ir.I8, int64(rowStruct.Size()))},
			RetType: ir.Ptr{Inner: ir.Void},
		}
		b.Assign(vecVar, created)
		subop.AssignSlot(b, subop.ThreadParamsParam(b), sub.Slot, vecVar)
		thenG.Close()

		appended := &ir.Invoke{Func: "inkfuse_vec_append", Args: []ir.Expr{vecVar}, RetType: ir.Ptr{Inner: ir.UI1}}
		rowPtr := b.Var(emitVar{sub, "row"}, ir.Ptr{Inner: ir.UI1}, "print_row")
		b.Assign(rowPtr, appended)
		typedRow := &ir.Cast{Target: ir.Ptr{Inner: rowStruct}, Inner: rowPtr}
		for i, id := range p.OutputIUs {
			src := b.Var(id, id.Type, id.DebugName())
			b.Assign(&ir.FieldAccess{Base: typedRow, Field: fmt.Sprintf("c%d", i)}, src)
		}
	}

	pipe.Add(sub)
	return nil, nil
}

// formatCell renders row's value in c as text, following the same
// per-kind dispatch the row-store loader uses in reverse (spec §6
// "load_value" counterpart for output).
func formatCell(c *column.Column, row int) string {
	ty := c.Type()
	switch {
	case ty == ir.Bool:
		if c.BoolAt(row) {
			return "1"
		}
		return "0"
	case ty == ir.Char:
		b := *(*byte)(c.Raw(row))
		return string(rune(b))
	case ty == ir.Date:
		days := c.Int32At(row)
		return formatDate(days)
	case ir.IsFloat(ty):
		return strconv.FormatFloat(c.Float64At(row), 'g', -1, 64)
	case ir.IsSigned(ty):
		if ty.Size() == 4 {
			return strconv.FormatInt(int64(c.Int32At(row)), 10)
		}
		return strconv.FormatInt(c.Int64At(row), 10)
	default:
		return strconv.FormatUint(c.Uint64At(row), 10)
	}
}

var dateEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func formatDate(days int32) string {
	return dateEpoch.AddDate(0, 0, int(days)).Format("2006-01-02")
}
