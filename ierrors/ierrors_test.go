package ierrors

import (
	"errors"
	"strings"
	"testing"
)

func TestUnsupportedWrapsSentinel(t *testing.T) {
	err := Unsupported("non-PK join")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Unsupported result does not wrap ErrUnsupported: %v", err)
	}
	if got := err.Error(); got == "" {
		t.Error("Error() returned empty string")
	}
}

func TestSchemaMismatchWrapsSentinelAndFormats(t *testing.T) {
	err := SchemaMismatch("row %d: expected %d fields, got %d", 3, 5, 4)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("SchemaMismatch result does not wrap ErrSchemaMismatch: %v", err)
	}
	want := "row 3: expected 5 fields, got 4"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Error()=%q, want it to contain %q", err.Error(), want)
	}
}

func TestInternalWrapsSentinel(t *testing.T) {
	err := Internal("strong link split by fuse-chunk boundary")
	if !errors.Is(err, ErrInternal) {
		t.Errorf("Internal result does not wrap ErrInternal: %v", err)
	}
}

func TestCompilerErrorUnwrapsToSentinelAndKeepsStderr(t *testing.T) {
	err := Compiler("undefined symbol foo")
	if !errors.Is(err, ErrCompiler) {
		t.Errorf("Compiler result does not wrap ErrCompiler: %v", err)
	}
	var ce *CompilerError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As failed to extract *CompilerError")
	}
	if ce.Stderr != "undefined symbol foo" {
		t.Errorf("Stderr=%q, want %q", ce.Stderr, "undefined symbol foo")
	}
}

func TestLinkErrorUnwrapsToSentinelAndKeepsSymbol(t *testing.T) {
	err := Link("inkfuse_pipeline_0")
	if !errors.Is(err, ErrLink) {
		t.Errorf("Link result does not wrap ErrLink: %v", err)
	}
	var le *LinkError
	if !errors.As(err, &le) {
		t.Fatal("errors.As failed to extract *LinkError")
	}
	if le.Symbol != "inkfuse_pipeline_0" {
		t.Errorf("Symbol=%q, want %q", le.Symbol, "inkfuse_pipeline_0")
	}
}
