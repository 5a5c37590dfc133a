package column

import (
	"errors"
	"testing"

	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/runtime"
)

func TestNewLoaderSignedUnsignedFloat(t *testing.T) {
	cases := []struct {
		ty    ir.Type
		token string
		check func(c *Column) bool
	}{
		{ir.I4, "-7", func(c *Column) bool { return c.Int32At(0) == -7 }},
		{ir.I8, "123456789012", func(c *Column) bool { return c.Int64At(0) == 123456789012 }},
		{ir.F8, "3.5", func(c *Column) bool { return c.Float64At(0) == 3.5 }},
		{ir.Bool, "1", func(c *Column) bool { return c.BoolAt(0) }},
		{ir.Bool, "true", func(c *Column) bool { return c.BoolAt(0) }},
		{ir.Char, "Q", func(c *Column) bool { return *(*byte)(c.Raw(0)) == 'Q' }},
	}
	for _, tc := range cases {
		loader := NewLoader(tc.ty)
		if loader == nil {
			t.Fatalf("NewLoader(%s) returned nil", tc.ty.Id())
		}
		col := NewColumn(tc.ty, 1)
		if err := loader(col, tc.token); err != nil {
			t.Fatalf("loader(%q)=%v", tc.token, err)
		}
		if !tc.check(col) {
			t.Errorf("%s token %q: unexpected decoded value", tc.ty.Id(), tc.token)
		}
	}
}

func TestNewLoaderUI4Width(t *testing.T) {
	loader := NewLoader(ir.UI4)
	col := NewColumn(ir.UI4, 1)
	if err := loader(col, "42"); err != nil {
		t.Fatalf("loader: %v", err)
	}
	if got := *(*uint32)(col.Raw(0)); got != 42 {
		t.Errorf("UI4 loaded value=%d, want 42", got)
	}
}

func TestNewLoaderRejectsBadTokens(t *testing.T) {
	loader := NewLoader(ir.I4)
	col := NewColumn(ir.I4, 1)
	err := loader(col, "not-a-number")
	if err == nil {
		t.Fatal("expected an error for a malformed integer token")
	}
	if !errors.Is(err, ierrors.ErrSchemaMismatch) {
		t.Errorf("error should wrap ErrSchemaMismatch, got %v", err)
	}
}

func TestNewLoaderDate(t *testing.T) {
	loader := NewLoader(ir.Date)
	col := NewColumn(ir.Date, 1)
	if err := loader(col, "1970-01-02"); err != nil {
		t.Fatalf("loader: %v", err)
	}
	if got := col.Int32At(0); got != 1 {
		t.Errorf("days since epoch=%d, want 1", got)
	}
}

func TestNewLoaderUnsupportedType(t *testing.T) {
	if loader := NewLoader(ir.Void); loader != nil {
		t.Error("NewLoader(Void) should return nil")
	}
}

func TestStringColumnLoadAndAt(t *testing.T) {
	region := runtime.NewMemoryRegion(0)
	sc := NewStringColumn(4, region)
	if err := sc.Load("hello"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := sc.Load("world"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := sc.At(0); got != "hello" {
		t.Errorf("At(0)=%q, want hello", got)
	}
	if got := sc.At(1); got != "world" {
		t.Errorf("At(1)=%q, want world", got)
	}
	if sc.Len() != 2 {
		t.Errorf("Len()=%d, want 2", sc.Len())
	}
}

func TestLoadRowSplitsAndValidates(t *testing.T) {
	colA := NewColumn(ir.I4, 1)
	colB := NewColumn(ir.F8, 1)
	loaders := []func(string) error{
		func(tok string) error { return NewLoader(ir.I4)(colA, tok) },
		func(tok string) error { return NewLoader(ir.F8)(colB, tok) },
	}
	if err := LoadRow("7|3.5|", loaders); err != nil {
		t.Fatalf("LoadRow: %v", err)
	}
	if colA.Int32At(0) != 7 || colB.Float64At(0) != 3.5 {
		t.Error("LoadRow did not populate columns as expected")
	}
}

func TestLoadRowMissingTrailingDelimiter(t *testing.T) {
	if err := LoadRow("7|3.5", nil); err == nil {
		t.Error("LoadRow without a trailing delimiter should error")
	}
}

func TestLoadRowFieldCountMismatch(t *testing.T) {
	loaders := []func(string) error{func(string) error { return nil }}
	if err := LoadRow("a|b|", loaders); err == nil {
		t.Error("LoadRow with more tokens than loaders should error")
	}
}
