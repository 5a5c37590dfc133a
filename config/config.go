// Package config holds the engine's single typed configuration
// struct, loaded from a YAML file and then from environment variables
// (spec SPEC_FULL.md §A.1). Grounded on the teacher's own
// struct-plus-json-tag configuration style
// (elasticproxy/proxy_http/config.go); sigs.k8s.io/yaml unmarshals
// YAML via those same json tags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"sigs.k8s.io/yaml"
)

// Engine is the engine's full runtime configuration.
type Engine struct {
	// NumThreads is the worker thread count used by every pipeline's
	// executor.
	NumThreads int `json:"numThreads,omitempty"`
	// MorselSize is the default row count of one unit of work handed
	// out by PickMorsel.
	MorselSize int `json:"morselSize,omitempty"`
	// ArenaSlabSize is the default MemoryRegion slab size in bytes.
	ArenaSlabSize int `json:"arenaSlabSize,omitempty"`

	// CompilerBinary is the external C compiler executable.
	CompilerBinary string `json:"compilerBinary,omitempty"`
	// CompilerFlags are appended to the mandatory -O3 -fPIC -shared.
	CompilerFlags []string `json:"compilerFlags,omitempty"`
	// FragmentCacheDir is where the pre-compiled fragment shared
	// object and per-compile scratch directories are written.
	FragmentCacheDir string `json:"fragmentCacheDir,omitempty"`

	// ForceInterpreted and ForceFused are hybrid-mode overrides used
	// by tests to pin a query to one runner instead of arbitrating.
	// Setting both is a configuration error, checked by Validate.
	ForceInterpreted bool `json:"forceInterpreted,omitempty"`
	ForceFused       bool `json:"forceFused,omitempty"`

	// HashTableInitialCapacity seeds every hash table's starting slot
	// count absent a better estimate from the planner.
	HashTableInitialCapacity int `json:"hashTableInitialCapacity,omitempty"`
}

// Defaults returns the struct defaults applied before a config file or
// environment variables are considered (spec SPEC_FULL.md §A.1).
func Defaults() Engine {
	return Engine{
		NumThreads:               4,
		MorselSize:               8192,
		ArenaSlabSize:            4 * 1024,
		CompilerBinary:           "cc",
		FragmentCacheDir:         os.TempDir(),
		HashTableInitialCapacity: 16,
	}
}

// Load reads path as YAML over the struct defaults, then applies
// INKFUSE_* environment variable overrides for the handful of fields
// an operator commonly needs to override without editing the file.
// An empty path skips the file step and returns defaults-plus-env.
func Load(path string) (Engine, error) {
	e := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Engine{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &e); err != nil {
			return Engine{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	applyEnv(&e)
	if err := e.Validate(); err != nil {
		return Engine{}, err
	}
	return e, nil
}

func applyEnv(e *Engine) {
	if v := os.Getenv("INKFUSE_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.NumThreads = n
		}
	}
	if v := os.Getenv("INKFUSE_CC"); v != "" {
		e.CompilerBinary = v
	}
	if v := os.Getenv("INKFUSE_FRAGMENT_CACHE_DIR"); v != "" {
		e.FragmentCacheDir = v
	}
	if v := os.Getenv("INKFUSE_MORSEL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.MorselSize = n
		}
	}
}

// Validate rejects configurations that can never execute a query.
func (e Engine) Validate() error {
	if e.NumThreads <= 0 {
		return fmt.Errorf("config: numThreads must be positive, got %d", e.NumThreads)
	}
	if e.MorselSize <= 0 {
		return fmt.Errorf("config: morselSize must be positive, got %d", e.MorselSize)
	}
	if e.ForceInterpreted && e.ForceFused {
		return fmt.Errorf("config: forceInterpreted and forceFused are mutually exclusive")
	}
	return nil
}
