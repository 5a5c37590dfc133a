package relalg

import (
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/subop"
)

// Op is any relational operator: it decays into a region of the
// suboperator DAG and reports the IUs it exposes to its parent (spec
// §4.2 "Decay. Every relational operator implements decay(dag)").
// Decay is pure graph construction; no execution or code generation
// happens here.
type Op interface {
	Decay(dag *subop.PipelineDAG) ([]*iu.IU, error)
}
