// Package codegen lowers the ir package's typed IR to C source,
// shells out to an external C compiler to produce a shared object,
// and dynamically loads a named symbol of a known function-pointer
// signature (spec §4.1, §6). Nothing above this package ever emits C
// text directly; every backend goes through Lower.
package codegen

import (
	"fmt"
	"strings"

	"github.com/inkfuse/inkfuse/ir"
)

// entryPointCSignature is the fixed three-slot parameter prefix every
// generated function carries (spec §4.1, §6); the return type comes
// from the function's own Signature.Ret.
const entryPointCSignature = "(void** global_state, void** thread_params, void* resumption_state)"

// Lower renders prog as a complete C translation unit. The runtime
// library's header is #included unless prog.Standalone is set, which
// is used to test the backend in isolation.
func Lower(prog *ir.Program) string {
	var b strings.Builder
	b.WriteString("/* generated by inkfuse codegen; do not edit */\n")
	b.WriteString("#include <stdint.h>\n")
	b.WriteString("#include <stddef.h>\n")
	if !prog.Standalone {
		b.WriteString("#include \"inkfuse_runtime.h\"\n")
	}
	b.WriteString("\n")

	for _, s := range prog.Structs {
		lowerStruct(&b, s)
	}
	for _, f := range prog.Functions {
		lowerFunctionDecl(&b, f)
		b.WriteString(";\n")
	}
	b.WriteString("\n")
	for _, f := range prog.Functions {
		lowerFunction(&b, f)
	}
	return b.String()
}

func cTypeName(t ir.Type) string {
	switch v := t.(type) {
	case ir.Ptr:
		return cTypeName(v.Inner) + "*"
	case ir.ByteArray:
		return fmt.Sprintf("uint8_t[%d]", v.N)
	case *ir.Struct:
		return "struct " + v.Name
	}
	switch t.Id() {
	case "Void":
		return "void"
	case "Bool":
		return "uint8_t"
	case "Char":
		return "char"
	case "I1":
		return "int8_t"
	case "I2":
		return "int16_t"
	case "I4":
		return "int32_t"
	case "I8":
		return "int64_t"
	case "UI1":
		return "uint8_t"
	case "UI2":
		return "uint16_t"
	case "UI4":
		return "uint32_t"
	case "UI8":
		return "uint64_t"
	case "F4":
		return "float"
	case "F8":
		return "double"
	case "Date":
		return "int32_t"
	default:
		return t.Id()
	}
}

func lowerStruct(b *strings.Builder, s *ir.Struct) {
	fmt.Fprintf(b, "struct %s {\n", s.Name)
	for _, f := range s.Fields {
		if ba, ok := f.Type.(ir.ByteArray); ok {
			fmt.Fprintf(b, "    uint8_t %s[%d];\n", f.Name, ba.N)
			continue
		}
		fmt.Fprintf(b, "    %s %s;\n", cTypeName(f.Type), f.Name)
	}
	b.WriteString("};\n\n")
}

func lowerFunctionDecl(b *strings.Builder, f *ir.Function) {
	fmt.Fprintf(b, "%s %s(", cTypeName(f.Sig.Ret), f.Name)
	b.WriteString(strings.TrimSuffix(entryPointCSignature, ")"))
	for _, p := range f.Sig.Params {
		fmt.Fprintf(b, ", %s %s", cTypeName(p.Ty), p.Name)
	}
	b.WriteString(")")
}

func lowerFunction(b *strings.Builder, f *ir.Function) {
	lowerFunctionDecl(b, f)
	b.WriteString(" {\n")
	lowerBlock(b, f.Body, 1)
	b.WriteString("}\n\n")
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("    ")
	}
}

func lowerBlock(b *strings.Builder, blk *ir.Block, depth int) {
	for _, s := range blk.Stmts {
		lowerStmt(b, s, depth)
	}
}

func lowerStmt(b *strings.Builder, s ir.Stmt, depth int) {
	indent(b, depth)
	switch v := s.(type) {
	case *ir.Declare:
		fmt.Fprintf(b, "%s %s;\n", cTypeName(v.Ty), v.Name)
	case *ir.Assign:
		switch lv := v.Lvalue.(type) {
		case *ir.VarRef, *ir.FieldAccess:
		case *ir.Unary:
			if lv.Op != ir.Deref {
				panic("codegen: assignment to a non-addressable expression")
			}
		default:
			panic(fmt.Sprintf("codegen: assignment to a non-addressable %T", v.Lvalue))
		}
		fmt.Fprintf(b, "%s = %s;\n", lowerExpr(v.Lvalue), lowerExpr(v.Rvalue))
	case *ir.If:
		fmt.Fprintf(b, "if (%s) {\n", lowerExpr(v.Cond))
		lowerBlock(b, v.Then, depth+1)
		indent(b, depth)
		if v.Else != nil {
			b.WriteString("} else {\n")
			lowerBlock(b, v.Else, depth+1)
			indent(b, depth)
		}
		b.WriteString("}\n")
	case *ir.While:
		fmt.Fprintf(b, "while (%s) {\n", lowerExpr(v.Cond))
		lowerBlock(b, v.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	case *ir.Return:
		if v.Value == nil {
			b.WriteString("return;\n")
		} else {
			fmt.Fprintf(b, "return %s;\n", lowerExpr(v.Value))
		}
	case *ir.InvokeStmt:
		fmt.Fprintf(b, "%s;\n", lowerExpr(v.Call))
	case *ir.Block:
		b.WriteString("{\n")
		lowerBlock(b, v, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	default:
		panic(fmt.Sprintf("codegen: unknown statement %T", s))
	}
}

func lowerExpr(e ir.Expr) string {
	switch v := e.(type) {
	case *ir.Const:
		return lowerConst(v)
	case *ir.VarRef:
		return v.Decl.Name
	case *ir.Cast:
		return fmt.Sprintf("((%s)(%s))", cTypeName(v.Target), lowerExpr(v.Inner))
	case *ir.BinOp:
		return fmt.Sprintf("(%s %s %s)", lowerExpr(v.Left), lowerBinOp(v.Op), lowerExpr(v.Right))
	case *ir.Unary:
		switch v.Op {
		case ir.Deref:
			return fmt.Sprintf("(*(%s))", lowerExpr(v.Inner))
		case ir.AddrOf:
			return fmt.Sprintf("(&(%s))", lowerExpr(v.Inner))
		}
	case *ir.FieldAccess:
		op := "."
		if _, isPtr := v.Base.Type().(ir.Ptr); isPtr {
			op = "->"
		}
		return fmt.Sprintf("(%s%s%s)", lowerExpr(v.Base), op, v.Field)
	case *ir.Invoke:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = lowerExpr(a)
		}
		return fmt.Sprintf("%s(%s)", v.Func, strings.Join(args, ", "))
	}
	panic(fmt.Sprintf("codegen: unknown expr %T", e))
}

func lowerConst(c *ir.Const) string {
	switch v := c.Val.(type) {
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int64:
		if c.Ty.Id() == "UI8" || c.Ty.Id() == "UI4" || c.Ty.Id() == "UI2" || c.Ty.Id() == "UI1" {
			return fmt.Sprintf("%dULL", v)
		}
		return fmt.Sprintf("%dLL", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func lowerBinOp(op ir.Opcode) string {
	switch op {
	case ir.Add:
		return "+"
	case ir.Sub:
		return "-"
	case ir.Mul:
		return "*"
	case ir.Div:
		return "/"
	case ir.Eq, ir.StrEq:
		return "=="
	case ir.Neq:
		return "!="
	case ir.Lt:
		return "<"
	case ir.Le:
		return "<="
	case ir.Gt:
		return ">"
	case ir.Ge:
		return ">="
	case ir.And:
		return "&&"
	case ir.Or:
		return "||"
	case ir.InList:
		// No pass expands InList into a chain of comparisons; the
		// backend renders it as a single "==" of its two operands.
		return "=="
	default:
		panic("codegen: unknown opcode")
	}
}
