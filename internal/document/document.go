// Package document implements the Document Manager: the mapping from URI
// to Document, the per-URI resumable check continuation, and the
// protect-wrapped step operation that advances a document's prover state
// one top-level unit at a time.
//
// All exported Manager methods are intended to run on the worker context
// only (spec.md §5); a Manager is not safe for concurrent use from two
// goroutines simultaneously advancing the same prover.
package document

import (
	"errors"

	"github.com/rocqls/rocqls/diag"
	"github.com/rocqls/rocqls/internal/prover"
	"github.com/rocqls/rocqls/internal/workspace"
	"github.com/rocqls/rocqls/location"
)

// Sentinel errors for programmatic error handling with errors.Is.
var (
	// ErrVersionNotMonotonic is returned by Change when new_version does
	// not exceed the document's current version. The caller logs and
	// discards the change per spec.md §3 invariant 3.
	ErrVersionNotMonotonic = errors.New("document: version is not greater than current")

	// ErrNotFound is returned by operations on a URI with no open document.
	ErrNotFound = errors.New("document: no open document for URI")
)

// CompletionKind is one of the three states a Document's checking progress
// can be in, per spec.md §3.
type CompletionKind int

const (
	// Yet means checking has not reached the end of the text; Offset names
	// how far it has progressed.
	Yet CompletionKind = iota

	// Stopped means checking halted before the end of the text for a
	// reason other than having finished (currently unused by this
	// coordinator's stepper, which only suspends on interrupt; reserved
	// for a future prover-driven early-stop signal).
	Stopped

	// Done means the entire text has been checked.
	Done
)

// Completion is a Document's checking progress: one of Yet(offset),
// Stopped(offset, reason), or Done.
type Completion struct {
	Kind   CompletionKind
	Offset int
	Reason string
}

func (c Completion) String() string {
	switch c.Kind {
	case Done:
		return "Done"
	case Stopped:
		return "Stopped(" + c.Reason + ")"
	default:
		return "Yet"
	}
}

// Node is one checked top-level unit: its source span, the opaque AST
// fragment the prover produced, the diagnostics it reported, and the
// prover state immediately after it.
type Node struct {
	Span        location.Span
	AST         prover.Node
	Diagnostics []diag.Issue
	State       prover.State
}

// Continuation is the resumable computation representing the remaining
// work to bring a Document's Completion to Done (spec.md §3
// "check_continuation").
type Continuation struct {
	Offset int
	State  prover.State
}

// Document is owned by the Document Manager, keyed by URI.
type Document struct {
	URI       string // canonical path string; the Manager's map key
	Version   int
	RawText   string
	Workspace workspace.Workspace

	Nodes      []Node
	Completion Completion

	continuation Continuation
}

// Diagnostics returns the concatenation of every node's diagnostics, in
// node order, matching spec.md §3's "diagnostics: list ... derived from
// nodes".
func (d *Document) Diagnostics() []diag.Issue {
	var all []diag.Issue
	for _, n := range d.Nodes {
		all = append(all, n.Diagnostics...)
	}
	return all
}
