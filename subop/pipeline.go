package subop

import (
	"fmt"

	"github.com/inkfuse/inkfuse/iu"
)

// Pipeline is a topologically-sorted sequence of suboperators plus
// indexed producer/consumer relations, executed start-to-finish
// before the next pipeline in a PipelineDAG begins (spec §3).
type Pipeline struct {
	Subs []*Suboperator

	// producer maps an IU to the suboperator that provides it within
	// this pipeline.
	producer map[*iu.IU]*Suboperator
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{producer: make(map[*iu.IU]*Suboperator)}
}

// Add appends sub to the pipeline in topological position, recording
// it as the producer of every IU it provides. Callers are responsible
// for appending in an order where every source IU's producer has
// already been added (decay always builds in this order; repipe
// re-derives it explicitly, see repipe.go).
func (p *Pipeline) Add(sub *Suboperator) {
	p.Subs = append(p.Subs, sub)
	for _, provided := range sub.Provided {
		p.producer[provided] = sub
	}
}

// Producer returns the suboperator that provides id within this
// pipeline, if any.
func (p *Pipeline) Producer(id *iu.IU) (*Suboperator, bool) {
	s, ok := p.producer[id]
	return s, ok
}

// Sources returns every isSource suboperator in the pipeline, in
// pipeline order.
func (p *Pipeline) Sources() []*Suboperator {
	var out []*Suboperator
	for _, s := range p.Subs {
		if s.IsSource {
			out = append(out, s)
		}
	}
	return out
}

// Sinks returns every isSink suboperator in the pipeline, in pipeline
// order.
func (p *Pipeline) Sinks() []*Suboperator {
	var out []*Suboperator
	for _, s := range p.Subs {
		if s.IsSink {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the pipeline invariants from spec §3: every
// non-pseudo source IU has a producer in the pipeline, and there is at
// least one source and one sink. It does not check strong links;
// Repipe is what keeps strong-linked pairs together.
func (p *Pipeline) Validate() error {
	if len(p.Sources()) == 0 {
		return fmt.Errorf("subop: pipeline has no source")
	}
	if len(p.Sinks()) == 0 {
		return fmt.Errorf("subop: pipeline has no sink")
	}
	for idx, s := range p.Subs {
		for _, src := range s.Sources {
			if src.IsPseudo() {
				continue
			}
			if _, ok := p.producer[src]; !ok {
				return fmt.Errorf("subop: %s consumes iu %s with no producer in pipeline", s.Kind, src.DebugName())
			}
		}
		if s.IncomingStrong && idx+1 < len(p.Subs) {
			// the strong-linked consumer, if one exists in this
			// pipeline, must be the immediately following node; repipe
			// is responsible for never inserting a fuse-chunk boundary
			// between them (checked structurally in repipe.go).
			_ = idx
		}
	}
	return nil
}

// RuntimeTask is work that runs between two pipelines once all
// workers of the first have finished (spec §3: "an optional runtime
// task may run"), e.g. sizing and parallel-filling a join's atomic
// hash table.
type RuntimeTask struct {
	Name string
	Run  func(numThreads int) error
}

// PipelineDAG is an ordered sequence of pipelines, executed in order,
// with an optional RuntimeTask interposed after each one (spec §3).
type PipelineDAG struct {
	Pipelines []*Pipeline
	// TasksAfter[i] runs after Pipelines[i] completes and before
	// Pipelines[i+1] starts, if non-nil.
	TasksAfter []*RuntimeTask

	current *Pipeline
}

// NewPipelineDAG starts an empty DAG. The first Decay call in any
// query tree is always a source (a table scan, or a hash-table/tuple-
// reader source standing in for one) and is responsible for calling
// BuildNewPipeline itself; Current must not be called before that.
func NewPipelineDAG() *PipelineDAG {
	return &PipelineDAG{}
}

// Current returns the pipeline currently being appended to by decay.
func (d *PipelineDAG) Current() *Pipeline { return d.current }

// BuildNewPipeline starts a fresh pipeline, making it current, so
// subsequent decay() calls append to it instead (spec §4.2
// "Decay...may call dag.buildNewPipeline() to start a fresh
// pipeline").
func (d *PipelineDAG) BuildNewPipeline() *Pipeline {
	d.current = NewPipeline()
	d.Pipelines = append(d.Pipelines, d.current)
	d.TasksAfter = append(d.TasksAfter, nil)
	return d.current
}

// SetTaskAfter attaches a runtime task to run after the pipeline at
// index i completes.
func (d *PipelineDAG) SetTaskAfter(i int, task *RuntimeTask) {
	d.TasksAfter[i] = task
}

// Validate runs Pipeline.Validate over every pipeline in the DAG.
func (d *PipelineDAG) Validate() error {
	for i, p := range d.Pipelines {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("pipeline %d: %w", i, err)
		}
	}
	return nil
}
