package subop

import (
	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/iu"
)

// fuseChunkSource re-exposes an externally-produced IU inside a
// repiped interval: a source suboperator over a materialized column
// (spec §4.2 step 1). Its Interpret is a no-op because, in this
// engine's single shared per-thread FuseChunk design, the column
// already holds the producer's output from an earlier repipe step;
// the node exists so repipe's bookkeeping (and the fused backend's IR
// emission, which does walk a real loop over the column) has an
// explicit place to hang a loop/iteration.
func fuseChunkSource(id *iu.IU) *Suboperator {
	return &Suboperator{
		Kind:     KindFuseChunkSource,
		IsSource: true,
		Provided: []*iu.IU{id},
		Interpret: func(rt *Runtime, chunk *column.FuseChunk, start, end int) (RunResult, error) {
			if !chunk.Has(id) {
				return Done, ierrors.Internal("repipe: fuse-chunk source for %s has no backing column", id.DebugName())
			}
			return Done, nil
		},
	}
}

// fuseChunkSink appends id's rows to its column, i.e. marks that id's
// value must be retained past the end of the repiped interval (spec
// §4.2 step 2). Like fuseChunkSource, Interpret is a no-op in this
// design since the producing suboperator already wrote into id's
// FuseChunk column directly; the node exists to make "this IU must
// survive" an explicit, repipe-visible fact, and gives the fused
// backend a real place to emit the column-append call.
func fuseChunkSink(id *iu.IU) *Suboperator {
	return &Suboperator{
		Kind:    KindFuseChunkSink,
		Sources: []*iu.IU{id},
		IsSink:  true,
		Interpret: func(rt *Runtime, chunk *column.FuseChunk, start, end int) (RunResult, error) {
			if !chunk.Has(id) {
				return Done, ierrors.Internal("repipe: fuse-chunk sink for %s has no backing column", id.DebugName())
			}
			return Done, nil
		},
	}
}

// Repipe produces a new pipeline suitable for standalone execution
// from the interval [start, end) of p.Subs plus the given output IU
// set (spec §4.2). It:
//
//  1. re-exposes external producers via fresh fuse-chunk sources,
//  2. appends fuse-chunk sinks for interval IUs consumed outside the
//     interval or named in outputs,
//  3. extends the interval outward so no strong-linked pair is split,
//  4. preserves topological order.
func Repipe(p *Pipeline, start, end int, outputs []*iu.IU) (*Pipeline, error) {
	if start < 0 || end > len(p.Subs) || start >= end {
		return nil, ierrors.Internal("repipe: invalid interval [%d, %d) over %d suboperators", start, end, len(p.Subs))
	}

	start, end = extendForStrongPairs(p, start, end)

	interval := p.Subs[start:end]
	inInterval := make(map[*Suboperator]bool, len(interval))
	for _, s := range interval {
		inInterval[s] = true
	}

	// step 1: external producers that must be re-exposed.
	externalNeeded := iu.NewSet()
	var externalOrder []*iu.IU
	for _, s := range interval {
		for _, src := range s.Sources {
			if src.IsPseudo() {
				continue
			}
			producer, ok := p.Producer(src)
			if ok && !inInterval[producer] {
				if !externalNeeded.Has(src) {
					externalNeeded.Add(src)
					externalOrder = append(externalOrder, src)
				}
			}
		}
	}

	// step 2: interval-produced IUs consumed outside the interval, or
	// named in the output set.
	consumedOutside := iu.NewSet()
	for _, s := range p.Subs {
		if inInterval[s] {
			continue
		}
		for _, src := range s.Sources {
			consumedOutside.Add(src)
		}
	}
	sinkNeeded := iu.NewSet()
	var sinkOrder []*iu.IU
	addSinkIfNeeded := func(id *iu.IU) {
		if id.IsPseudo() || sinkNeeded.Has(id) {
			return
		}
		isOutput := false
		for _, o := range outputs {
			if o == id {
				isOutput = true
				break
			}
		}
		if consumedOutside.Has(id) || isOutput {
			sinkNeeded.Add(id)
			sinkOrder = append(sinkOrder, id)
		}
	}
	for _, s := range interval {
		for _, provided := range s.Provided {
			addSinkIfNeeded(provided)
		}
	}

	out := NewPipeline()
	for _, id := range externalOrder {
		out.Add(fuseChunkSource(id))
	}
	for _, s := range interval {
		out.Add(s)
	}
	for _, id := range sinkOrder {
		out.Add(fuseChunkSink(id))
	}
	return out, nil
}

// extendForStrongPairs grows [start, end) until no strong pair
// straddles the boundary, per spec §4.2 step 3. Strong pairs are
// always adjacent in topological order (see StrongPairs), so one pass
// per direction converges; we iterate to a fixpoint defensively since
// extending one boundary can newly straddle another pair.
func extendForStrongPairs(p *Pipeline, start, end int) (int, int) {
	for {
		changed := false
		for _, pair := range StrongPairs(p) {
			i, j := pair[0], pair[1]
			inStart := i >= start && i < end
			inEnd := j >= start && j < end
			if inStart != inEnd {
				if i < start {
					start = i
					changed = true
				}
				if j >= end {
					end = j + 1
					changed = true
				}
			}
		}
		if !changed {
			return start, end
		}
	}
}
