package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/inkfuse/inkfuse/ierrors"
)

// CompilerOptions configures how generated C source is turned into a
// shared object. The zero value uses "cc" with the flags mandated by
// the spec ("-O3 -fPIC -shared").
type CompilerOptions struct {
	// Binary is the C compiler executable, e.g. "cc", "gcc", "clang".
	Binary string
	// ExtraFlags are appended after the mandatory -O3 -fPIC -shared.
	ExtraFlags []string
	// TempDir is the directory generated sources and shared objects
	// are written under. Defaults to os.TempDir() if empty.
	TempDir string
}

func (o CompilerOptions) binary() string {
	if o.Binary == "" {
		return "cc"
	}
	return o.Binary
}

func (o CompilerOptions) tempDir() string {
	if o.TempDir == "" {
		return os.TempDir()
	}
	return o.TempDir
}

// Artifact is a compiled shared object ready to be loaded.
type Artifact struct {
	// Path is the filesystem path of the produced .so file.
	Path string
}

// Compile writes source to a deterministic file name under a fresh
// per-compile subdirectory (named with a uuid so concurrent compiles
// never collide, matching how the teacher names per-tenant scratch
// directories) and invokes the configured C compiler to produce a
// shared object.
//
// Returns an *ierrors.CompilerError (wrapping ierrors.ErrCompiler) if
// the compiler exits non-zero or produces no artifact.
func Compile(source string, opts CompilerOptions) (*Artifact, error) {
	dir := filepath.Join(opts.tempDir(), "inkfuse-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("codegen: creating compile dir: %w", err)
	}
	if err := WriteRuntimeHeader(dir); err != nil {
		return nil, err
	}
	srcPath := filepath.Join(dir, "pipeline.c")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("codegen: writing source: %w", err)
	}
	soPath := filepath.Join(dir, "pipeline.so")

	args := append([]string{"-O3", "-fPIC", "-shared", "-o", soPath, srcPath}, opts.ExtraFlags...)
	cmd := exec.Command(opts.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, ierrors.Compiler(stderr.String())
	}
	if _, err := os.Stat(soPath); err != nil {
		return nil, ierrors.Compiler("compiler exited successfully but produced no artifact: " + stderr.String())
	}
	return &Artifact{Path: soPath}, nil
}

// WriteRuntimeHeader writes inkfuse_runtime.h into dir so a translation
// unit emitted by Lower for a non-standalone Program can #include it;
// every caller that compiles generated source (Compile itself, and
// exec.FusedRunner.Prepare which shells out separately) must write it
// into the same directory as the .c file first.
func WriteRuntimeHeader(dir string) error {
	path := filepath.Join(dir, "inkfuse_runtime.h")
	if err := os.WriteFile(path, []byte(RuntimeHeader), 0o644); err != nil {
		return fmt.Errorf("codegen: writing runtime header: %w", err)
	}
	return nil
}
