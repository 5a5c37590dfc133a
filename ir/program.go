package ir

// Program is the top-level IR container: the struct declarations and
// function bodies that make up one compilation unit handed to a
// backend. A Program is "standalone" when it must not pull in the
// runtime library's own Program (used for the handful of bootstrap
// fragments that predate the runtime include existing, e.g. tests of
// the backend itself); every other Program includes the runtime
// Program implicitly (spec §4.1).
type Program struct {
	Structs    []*Struct
	Functions  []*Function
	Standalone bool
}

// NewProgram returns an empty, non-standalone Program.
func NewProgram() *Program { return &Program{} }

// AddStruct registers a struct declaration, returning it for chaining.
func (p *Program) AddStruct(s *Struct) *Struct {
	p.Structs = append(p.Structs, s)
	return s
}

// AddFunction registers a completed function body.
func (p *Program) AddFunction(f *Function) { p.Functions = append(p.Functions, f) }

// Lookup returns the function with the given name, if present.
func (p *Program) Lookup(name string) (*Function, bool) {
	for _, f := range p.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}
