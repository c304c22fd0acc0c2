// Package workspace holds workspace roots and maps a document URI to the
// Workspace that should govern how its prover is prepared.
//
// A Workspace is an immutable description of how to prepare the prover for
// files under a root directory: load paths, ML include paths, preloaded
// modules, prover flags, and a debug bit. Workspaces are produced once by a
// guess probe (see [github.com/rocqls/rocqls/internal/prover].Prover) and
// never mutated afterward; [Registry] holds them and resolves a URI to the
// workspace whose root is the longest matching path prefix.
package workspace

import (
	"hash/maphash"
	"sort"
)

// LoadPath names a logical load path and the filesystem directory it
// resolves to (the prover's equivalent of a module search path entry).
type LoadPath struct {
	// Logical is the dotted logical prefix files under Physical are loaded
	// under (e.g. "Project.Lib").
	Logical string

	// Physical is the filesystem directory backing Logical.
	Physical string

	// Implicit marks a load path that need not be explicitly opened by
	// name before use.
	Implicit bool

	// Recursive marks a load path whose subdirectories are also searched.
	Recursive bool
}

// Workspace is an immutable description of how to prepare the prover for
// files under a root directory.
//
// Workspace is a value type: construct one via a prover's WorkspaceGuess
// (or directly in tests) and never mutate it afterward; share it by value or by read-only
// reference across goroutines.
type Workspace struct {
	// Root is the workspace's root directory, in canonical-path string
	// form (matches the key used by [Registry]).
	Root string

	// LoadPaths are the load path entries in search order.
	LoadPaths []LoadPath

	// IncludePaths are raw -I style include directories, separate from
	// LoadPaths because they carry no logical prefix.
	IncludePaths []string

	// PreloadModules are module names loaded into every document's
	// initial prover state before any checking begins.
	PreloadModules []string

	// Flags are prover configuration flags, e.g. "indices_matter",
	// "impredicative_set".
	Flags map[string]bool

	// Debug enables prover-internal debug instrumentation for documents
	// under this workspace.
	Debug bool
}

// Equal reports whether two workspaces are structurally identical.
func (w Workspace) Equal(other Workspace) bool {
	if w.Root != other.Root || w.Debug != other.Debug {
		return false
	}
	if len(w.LoadPaths) != len(other.LoadPaths) {
		return false
	}
	for i, lp := range w.LoadPaths {
		if lp != other.LoadPaths[i] {
			return false
		}
	}
	if len(w.IncludePaths) != len(other.IncludePaths) {
		return false
	}
	for i, p := range w.IncludePaths {
		if p != other.IncludePaths[i] {
			return false
		}
	}
	if len(w.PreloadModules) != len(other.PreloadModules) {
		return false
	}
	for i, m := range w.PreloadModules {
		if m != other.PreloadModules[i] {
			return false
		}
	}
	if len(w.Flags) != len(other.Flags) {
		return false
	}
	for k, v := range w.Flags {
		if other.Flags[k] != v {
			return false
		}
	}
	return true
}

var hashSeed = maphash.MakeSeed()

// Hash returns a process-stable (not persisted across restarts) hash of the
// workspace's structural content, usable as a cache key.
//
// Flags is a map, so keys are sorted before hashing to keep Hash consistent
// with [Workspace.Equal] regardless of map iteration order.
func (w Workspace) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)

	h.WriteString(w.Root)
	h.WriteByte(0)
	for _, lp := range w.LoadPaths {
		h.WriteString(lp.Logical)
		h.WriteByte(0)
		h.WriteString(lp.Physical)
		h.WriteByte(boolByte(lp.Implicit))
		h.WriteByte(boolByte(lp.Recursive))
	}
	h.WriteByte(0)
	for _, p := range w.IncludePaths {
		h.WriteString(p)
		h.WriteByte(0)
	}
	h.WriteByte(0)
	for _, m := range w.PreloadModules {
		h.WriteString(m)
		h.WriteByte(0)
	}
	h.WriteByte(0)
	keys := make([]string, 0, len(w.Flags))
	for k := range w.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.WriteString(k)
		h.WriteByte(boolByte(w.Flags[k]))
	}
	h.WriteByte(boolByte(w.Debug))

	return h.Sum64()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
