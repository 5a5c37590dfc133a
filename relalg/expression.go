package relalg

import (
	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/subop"
)

// NodeKind distinguishes a plain IU reference leaf from an arithmetic
// node in an expression's compute-node DAG (spec §4.3 "post-order
// over a DAG of ComputeNodes", §9 "cyclic graphs / DAG-shaped
// expressions").
type NodeKind uint8

const (
	NodeIURef NodeKind = iota
	NodeCompute
	NodeConst
)

// ComputeNode is one node of an expression's node pool. Child
// references are indices into the owning NodePool, not pointers, so
// the pool can be an owned, append-only arena (spec §9: "implement as
// an owned node pool ... with children stored as indices").
type ComputeNode struct {
	Kind NodeKind

	// IURef leaf:
	Ref *iu.IU

	// Const leaf:
	ConstVal *ir.Const

	// Compute node:
	Op       ir.Opcode
	Children []int
}

// NodePool owns every ComputeNode for one or more ExpressionOps,
// indexed by position; nodes shared across multiple output
// expressions occupy a single pool slot and are code-generated once
// (memoized by pool index in Decay).
type NodePool struct {
	Nodes []*ComputeNode
}

// NewNodePool returns an empty pool.
func NewNodePool() *NodePool { return &NodePool{} }

// AddIURef registers a leaf node referencing an existing IU (typically
// produced by one of ExpressionOp's children) and returns its index.
func (p *NodePool) AddIURef(id *iu.IU) int {
	p.Nodes = append(p.Nodes, &ComputeNode{Kind: NodeIURef, Ref: id})
	return len(p.Nodes) - 1
}

// AddConst registers a literal leaf node and returns its index.
func (p *NodePool) AddConst(c *ir.Const) int {
	p.Nodes = append(p.Nodes, &ComputeNode{Kind: NodeConst, ConstVal: c})
	return len(p.Nodes) - 1
}

// AddCompute registers a binary arithmetic node over the given child
// indices (which must already exist in the pool, enforcing the
// bottom-up construction order post-order evaluation relies on) and
// returns its index.
func (p *NodePool) AddCompute(op ir.Opcode, children ...int) int {
	p.Nodes = append(p.Nodes, &ComputeNode{Kind: NodeCompute, Op: op, Children: children})
	return len(p.Nodes) - 1
}

func (p *NodePool) resultType(idx int) ir.Type {
	n := p.Nodes[idx]
	switch n.Kind {
	case NodeIURef:
		return n.Ref.Type
	case NodeConst:
		return n.ConstVal.Ty
	default:
		if n.Op.IsComparison() {
			return ir.Bool
		}
		return p.resultType(n.Children[0])
	}
}

// ExpressionOp decays a post-order walk of selected pool nodes into
// one expression suboperator per compute node and one
// runtime_expression suboperator per constant leaf (IU-reference
// leaves add none), each producing a fresh IU;
// nodes referenced by more than one OutputNode are only ever emitted
// once thanks to the per-Decay memo map.
type ExpressionOp struct {
	Children    []Op
	Tag         string
	OutputNodes []int
	Pool        *NodePool
}

// Decay decays every child, then emits the requested output nodes in
// dependency order, returning one IU per OutputNodes entry.
func (e *ExpressionOp) Decay(dag *subop.PipelineDAG) ([]*iu.IU, error) {
	for _, c := range e.Children {
		if _, err := c.Decay(dag); err != nil {
			return nil, err
		}
	}
	p := dag.Current()
	memo := make(map[int]*iu.IU)

	var emit func(idx int) (*iu.IU, error)
	emit = func(idx int) (*iu.IU, error) {
		if id, ok := memo[idx]; ok {
			return id, nil
		}
		n := e.Pool.Nodes[idx]
		switch n.Kind {
		case NodeIURef:
			memo[idx] = n.Ref
			return n.Ref, nil
		case NodeConst:
			id := iu.New(n.ConstVal.Ty, e.Tag+".const")
			sub := &subop.Suboperator{
				Kind:           subop.KindRuntimeExpression,
				Provided:       []*iu.IU{id},
				DiscreteParams: []string{"const", n.ConstVal.Ty.Id()},
				Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
					dst := chunk.Provide(id)
					for i := start; i < end; i++ {
						writeConst(dst, i, n.ConstVal)
					}
					dst.SetLen(end)
					return subop.Done, nil
				},
			}
			sub.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {
				out := b.Var(id, n.ConstVal.Ty, id.DebugName())
				b.Assign(out, n.ConstVal)
			}
			p.Add(sub)
			memo[idx] = id
			return id, nil
		default:
			if len(n.Children) != 2 {
				return nil, ierrors.Unsupported("expression: non-binary compute node")
			}
			lhs, err := emit(n.Children[0])
			if err != nil {
				return nil, err
			}
			rhs, err := emit(n.Children[1])
			if err != nil {
				return nil, err
			}
			resultTy := e.Pool.resultType(idx)
			id := iu.New(resultTy, e.Tag+"."+n.Op.String())
			op := n.Op
			sub := &subop.Suboperator{
				Kind:           subop.KindExpression,
				Sources:        []*iu.IU{lhs, rhs},
				Provided:       []*iu.IU{id},
				DiscreteParams: []string{op.String(), lhs.Type.Id(), rhs.Type.Id(), resultTy.Id()},
				Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
					l, err := chunk.Column(lhs)
					if err != nil {
						return subop.Done, err
					}
					r, err := chunk.Column(rhs)
					if err != nil {
						return subop.Done, err
					}
					dst := chunk.Provide(id)
					for i := start; i < end; i++ {
						if err := evalBinOp(op, lhs.Type, rhs.Type, l, r, dst, i); err != nil {
							return subop.Done, err
						}
					}
					dst.SetLen(end)
					return subop.Done, nil
				},
			}
			sub.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {
				lhsVar := b.Var(lhs, lhs.Type, lhs.DebugName())
				rhsVar := b.Var(rhs, rhs.Type, rhs.DebugName())
				var l, r ir.Expr = lhsVar, rhsVar
				if !op.IsComparison() {
					// Comparisons keep their operands at native width and
					// produce a bool; arithmetic widens both sides to the
					// result type first so e.g. an i32+i64 add doesn't
					// truncate in C's usual arithmetic conversions.
					l = &ir.Cast{Target: resultTy, Inner: lhsVar}
					r = &ir.Cast{Target: resultTy, Inner: rhsVar}
				}
				out := b.Var(id, resultTy, id.DebugName())
				b.Assign(out, &ir.BinOp{Op: op, Left: l, Right: r})
			}
			p.Add(sub)
			memo[idx] = id
			return id, nil
		}
	}

	out := make([]*iu.IU, len(e.OutputNodes))
	for i, idx := range e.OutputNodes {
		id, err := emit(idx)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func writeConst(dst *column.Column, i int, c *ir.Const) {
	switch v := c.Val.(type) {
	case bool:
		dst.SetBoolAt(i, v)
	case int64:
		if ir.IsSigned(c.Ty) {
			if c.Ty.Size() == 4 {
				dst.SetInt32At(i, int32(v))
			} else {
				dst.SetInt64At(i, v)
			}
		} else {
			dst.SetUint64At(i, uint64(v))
		}
	case float64:
		dst.SetFloat64At(i, v)
	}
}

func numericValue(ty ir.Type, col *column.Column, i int) float64 {
	switch {
	case ir.IsFloat(ty):
		return col.Float64At(i)
	case ir.IsSigned(ty):
		if ty.Size() == 4 {
			return float64(col.Int32At(i))
		}
		return float64(col.Int64At(i))
	default:
		return float64(col.Uint64At(i))
	}
}

// evalBinOp evaluates op over row i of l and r, writing the result
// into row i of dst. Arithmetic is carried out in float64 for
// simplicity across the mixed-width numeric kinds; this loses
// precision for |values| beyond 2^53, an accepted limitation for the
// vectorized-interpreted evaluator path (the fused/compiled path, via
// codegen.Lower, instead emits native-width C arithmetic and does not
// share this limitation).
func evalBinOp(op ir.Opcode, lty, rty ir.Type, l, r, dst *column.Column, i int) error {
	if op == ir.StrEq || op == ir.InList {
		return ierrors.Unsupported("string/list comparison opcodes in the interpreted evaluator")
	}
	lv := numericValue(lty, l, i)
	rv := numericValue(rty, r, i)
	switch op {
	case ir.Add:
		writeNumeric(dst, i, lv+rv)
	case ir.Sub:
		writeNumeric(dst, i, lv-rv)
	case ir.Mul:
		writeNumeric(dst, i, lv*rv)
	case ir.Div:
		if rv == 0 {
			return ierrors.Internal("division by zero")
		}
		writeNumeric(dst, i, lv/rv)
	case ir.Eq:
		dst.SetBoolAt(i, lv == rv)
	case ir.Neq:
		dst.SetBoolAt(i, lv != rv)
	case ir.Lt:
		dst.SetBoolAt(i, lv < rv)
	case ir.Le:
		dst.SetBoolAt(i, lv <= rv)
	case ir.Gt:
		dst.SetBoolAt(i, lv > rv)
	case ir.Ge:
		dst.SetBoolAt(i, lv >= rv)
	case ir.And:
		dst.SetBoolAt(i, lv != 0 && rv != 0)
	case ir.Or:
		dst.SetBoolAt(i, lv != 0 || rv != 0)
	default:
		return ierrors.Unsupported("opcode " + op.String())
	}
	return nil
}

func writeNumeric(dst *column.Column, i int, v float64) {
	switch {
	case ir.IsFloat(dst.Type()):
		dst.SetFloat64At(i, v)
	case ir.IsSigned(dst.Type()):
		if dst.Type().Size() == 4 {
			dst.SetInt32At(i, int32(v))
		} else {
			dst.SetInt64At(i, int64(v))
		}
	default:
		dst.SetUint64At(i, uint64(v))
	}
}
