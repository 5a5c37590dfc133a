package subop

import "github.com/inkfuse/inkfuse/ir"

// DiscreteParamsForTypes is a small helper building the
// DiscreteParams tuple for suboperators parameterized purely by a
// list of IR types (scans, casts, comparators), keeping identifier
// construction uniform across call sites (spec §3, §7 "enumerates all
// valid discrete-parameter combinations").
func DiscreteParamsForTypes(tys ...ir.Type) []string {
	out := make([]string, len(tys))
	for i, t := range tys {
		out[i] = t.Id()
	}
	return out
}

// DiscreteParamsForOpcode builds the DiscreteParams tuple for a
// binary-arithmetic suboperator: the opcode name followed by each
// operand/result type's stable id.
func DiscreteParamsForOpcode(op ir.Opcode, tys ...ir.Type) []string {
	out := append([]string{op.String()}, DiscreteParamsForTypes(tys...)...)
	return out
}
