package relalg

import "github.com/inkfuse/inkfuse/subop"

// emitVar keys FunctionBuilder.Var calls for locals an Emit closure
// needs that aren't backed by an IU (a native hash table handle, a
// packed key struct, an out-parameter) — Var dedups by its id argument,
// so each such local needs its own comparable key distinct from any
// *iu.IU and from any other local the same suboperator declares.
type emitVar struct {
	sub *subop.Suboperator
	tag string
}

// cIdent turns an arbitrary tag string into a valid C identifier
// fragment for a generated struct name, replacing every byte outside
// [A-Za-z0-9_] with '_' (tags routinely contain '.' and other
// separators that aren't legal in a C struct tag).
func cIdent(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
