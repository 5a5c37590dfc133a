package column

import (
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/runtime"
)

// epoch is the date column's zero point: 1970-01-01 (spec §6 "days
// since 1970-01-01").
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// RowLoader parses one text token and appends it as the next row of a
// column (spec §6 "Row-store column API", consumed by scans). Every
// fixed-width scalar type gets a loader via NewLoader; variable-length
// strings get StringLoader instead since they need the companion
// arena.
type RowLoader func(col *Column, token string) error

// NewLoader returns the row loader for a fixed-width scalar type,
// or nil if ty has no scalar loader (structs, pointers, byte arrays,
// and variable-length strings aren't loaded this way).
func NewLoader(ty ir.Type) RowLoader {
	switch ty.Id() {
	case ir.I1.Id(), ir.I2.Id(), ir.I4.Id(), ir.I8.Id():
		return func(col *Column, token string) error {
			v, err := strconv.ParseInt(token, 10, 64)
			if err != nil {
				return ierrors.SchemaMismatch("signed int column: %v", err)
			}
			writeIntOfSize(col, v, ty.Size())
			return nil
		}
	case ir.UI1.Id(), ir.UI2.Id(), ir.UI4.Id(), ir.UI8.Id():
		return func(col *Column, token string) error {
			v, err := strconv.ParseUint(token, 10, 64)
			if err != nil {
				return ierrors.SchemaMismatch("unsigned int column: %v", err)
			}
			writeUintOfSize(col, v, ty.Size())
			return nil
		}
	case ir.F4.Id(), ir.F8.Id():
		return func(col *Column, token string) error {
			v, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return ierrors.SchemaMismatch("float column: %v", err)
			}
			if ty.Size() == 4 {
				f32 := float32(v)
				col.Append(unsafe.Pointer(&f32))
			} else {
				col.Append(unsafe.Pointer(&v))
			}
			return nil
		}
	case ir.Char.Id():
		return func(col *Column, token string) error {
			if len(token) == 0 {
				return ierrors.SchemaMismatch("char column: empty token")
			}
			b := token[0]
			col.Append(unsafe.Pointer(&b))
			return nil
		}
	case ir.Bool.Id():
		return func(col *Column, token string) error {
			var v byte
			if token == "1" || strings.EqualFold(token, "true") {
				v = 1
			}
			col.Append(unsafe.Pointer(&v))
			return nil
		}
	case ir.Date.Id():
		return func(col *Column, token string) error {
			t, err := time.Parse("2006-01-02", token)
			if err != nil {
				return ierrors.SchemaMismatch("date column: %v", err)
			}
			days := int32(t.Sub(epoch).Hours() / 24)
			col.Append(unsafe.Pointer(&days))
			return nil
		}
	default:
		return nil
	}
}

func writeIntOfSize(col *Column, v int64, size int) {
	switch size {
	case 1:
		b := int8(v)
		col.Append(unsafe.Pointer(&b))
	case 2:
		b := int16(v)
		col.Append(unsafe.Pointer(&b))
	case 4:
		b := int32(v)
		col.Append(unsafe.Pointer(&b))
	default:
		col.Append(unsafe.Pointer(&v))
	}
}

func writeUintOfSize(col *Column, v uint64, size int) {
	switch size {
	case 1:
		b := uint8(v)
		col.Append(unsafe.Pointer(&b))
	case 2:
		b := uint16(v)
		col.Append(unsafe.Pointer(&b))
	case 4:
		b := uint32(v)
		col.Append(unsafe.Pointer(&b))
	default:
		col.Append(unsafe.Pointer(&v))
	}
}

// StringColumn is the variable-length string column: a Column of
// 8-byte pointers into an arena, each pointing at a NUL-terminated
// copy of the source token (spec §6 "Variable-length string column").
type StringColumn struct {
	ptrs   *Column
	region *runtime.MemoryRegion
}

// NewStringColumn creates a string column backed by region for its
// token copies.
func NewStringColumn(capacity int, region *runtime.MemoryRegion) *StringColumn {
	return &StringColumn{
		ptrs:   NewColumn(ir.Ptr{Inner: ir.Char}, capacity),
		region: region,
	}
}

// Len returns the row count.
func (s *StringColumn) Len() int { return s.ptrs.Len() }

// Reset clears the row count (the arena itself is reset by its owner
// at pipeline end, not per-column).
func (s *StringColumn) Reset() { s.ptrs.Reset() }

// PtrColumn exposes the underlying pointer column, for wiring into a
// FuseChunk or a compiled pipeline's struct layout.
func (s *StringColumn) PtrColumn() *Column { return s.ptrs }

// Load copies token into the arena with a trailing NUL and appends the
// resulting pointer as the next row (spec §6: "load_value copies the
// token and appends a trailing NUL").
func (s *StringColumn) Load(token string) error {
	buf := s.region.Alloc(len(token) + 1)
	dst := unsafe.Slice((*byte)(buf), len(token)+1)
	copy(dst, token)
	dst[len(token)] = 0
	s.ptrs.Append(unsafe.Pointer(&buf))
	return nil
}

// At returns row i's string value, decoded up to its NUL terminator.
func (s *StringColumn) At(i int) string {
	p := *(*unsafe.Pointer)(s.ptrs.Raw(i))
	n := 0
	for {
		if *(*byte)(unsafe.Pointer(uintptr(p) + uintptr(n))) == 0 {
			break
		}
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// LoadRow splits a `|`-delimited TSV line (trailing `|` required, spec
// §6 "TSV ingest format") into tokens and loads each into the
// corresponding loader/string column, erroring on a field-count
// mismatch or a field that fails to parse.
func LoadRow(line string, loaders []func(token string) error) error {
	if !strings.HasSuffix(line, "|") {
		return ierrors.SchemaMismatch("row missing trailing delimiter")
	}
	tokens := strings.Split(strings.TrimSuffix(line, "|"), "|")
	if len(tokens) != len(loaders) {
		return ierrors.SchemaMismatch("expected %d fields, got %d", len(loaders), len(tokens))
	}
	for i, tok := range tokens {
		if err := loaders[i](tok); err != nil {
			return err
		}
	}
	return nil
}
