package relalg

import (
	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/subop"
)

// Filter decays its child, then appends a ColumnFilterScope (which
// owns the predicate check and opens the scope a fused backend would
// emit as an `if`) and one ColumnFilterLogic suboperator per retained
// IU, redefining it within that scope (spec §4.3, §4.2 "A filter
// scope ... and filter logic ... must be emitted together").
//
// In this engine's interpreted execution model there is one shared
// FuseChunk per worker rather than per-scope nested storage, so the
// "redefinition inside the if" is realized as the FilterLogic
// suboperator writing a filtered IU into a dedicated column,
// compacting rows that passed the predicate down to a dense prefix —
// functionally equivalent to the fused backend's nested `if` block,
// and the strong-link pairing below still prevents repipe from
// splitting scope from logic.
type Filter struct {
	Children     []Op
	Tag          string
	RetainedIUs  []*iu.IU
	PredicateIU  *iu.IU
}

func (f *Filter) Decay(dag *subop.PipelineDAG) ([]*iu.IU, error) {
	for _, c := range f.Children {
		if _, err := c.Decay(dag); err != nil {
			return nil, err
		}
	}
	p := dag.Current()

	// selMask holds, per call, the dense list of row indices within
	// [start, end) whose predicate evaluated true; FilterLogic nodes
	// consult it to know which source rows to copy forward.
	selMask := make([]int, 0, column.DefaultCapacity)

	scopeIU := iu.Pseudo(f.Tag + "_filter_scope")
	scope := &subop.Suboperator{
		Kind:           subop.KindFilterScope,
		Sources:        []*iu.IU{f.PredicateIU},
		Provided:       []*iu.IU{scopeIU},
		OutgoingStrong: true,
		Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
			pred, err := chunk.Column(f.PredicateIU)
			if err != nil {
				return subop.Done, err
			}
			selMask = selMask[:0]
			for i := start; i < end; i++ {
				if pred.BoolAt(i) {
					selMask = append(selMask, i)
				}
			}
			return subop.Done, nil
		},
	}
	scope.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {
		pred := b.Var(f.PredicateIU, ir.Bool, f.PredicateIU.DebugName())
		b.OpenScope(pred)
	}
	p.Add(scope)

	out := make([]*iu.IU, len(f.RetainedIUs))
	for i, src := range f.RetainedIUs {
		src := src
		id := iu.New(src.Type, f.Tag+".retained")
		sub := &subop.Suboperator{
			Kind:           subop.KindFilterLogic,
			Sources:        []*iu.IU{src, scopeIU},
			Provided:       []*iu.IU{id},
			IncomingStrong: true,
			Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
				source, err := chunk.Column(src)
				if err != nil {
					return subop.Done, err
				}
				dst := chunk.Provide(id)
				if dst.Type().Size() == 0 {
					return subop.Done, ierrors.Unsupported("filter over variable-length string IU")
				}
				for _, row := range selMask {
					dst.Append(source.Raw(row))
				}
				return subop.Done, nil
			},
		}
		sub.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {
			in := b.Var(src, src.Type, src.DebugName())
			out := b.Var(id, id.Type, id.DebugName())
			b.Assign(out, in)
		}
		p.Add(sub)
		out[i] = id
	}
	return out, nil
}
