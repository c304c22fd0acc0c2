// Package prover defines the capability interface the document coordinator
// needs from a proof-checking engine, plus a goal-free deterministic Fake
// implementation used by tests.
//
// The real prover is explicitly out of scope (spec.md §1): this package
// never implements parsing or type-checking semantics, only the shape a
// real prover must present to internal/document's stepper.
package prover

import (
	"sync/atomic"

	"github.com/rocqls/rocqls/diag"
	"github.com/rocqls/rocqls/internal/uri"
	"github.com/rocqls/rocqls/internal/workspace"
	"github.com/rocqls/rocqls/location"
)

// State is an opaque prover state handle. The coordinator never inspects
// its contents; it only threads State values through ParseNext/Interpret
// and stores the latest one on each checked node.
type State any

// Node is an opaque AST fragment produced by ParseNext. Like State, the
// coordinator treats Node as opaque; request handlers receive it back only
// to hand to a later Interpret call.
type Node any

// FeedbackHandler receives asynchronous progress messages a prover may emit
// during Init (e.g. "loading standard library") independent of the
// document-scoped diagnostics returned by Interpret.
type FeedbackHandler func(message string)

// Prover is the capability interface the document coordinator depends on.
//
// Implementations must be safe to call from exactly one goroutine at a
// time (the worker context); the coordinator never calls a Prover method
// concurrently with another call to the same instance.
type Prover interface {
	// Init prepares a fresh top-level state with the given prover flags.
	// loadModule and loadPlugin are callbacks the prover may invoke to pull
	// in preloaded modules/plugins named by a Workspace.
	Init(flags map[string]bool, fb FeedbackHandler, loadModule, loadPlugin func(string) error) (State, error)

	// WorkspaceGuess probes root (plus any cmdline hints) to produce a
	// Workspace description, implementing spec.md §4.C's `guess`.
	WorkspaceGuess(root string, cmdline []string) (workspace.Workspace, error)

	// WorkspaceApply prepares the prover to check documents under
	// workspace w rooted at u, e.g. registering its load paths.
	WorkspaceApply(u uri.URI, w workspace.Workspace) error

	// ParseNext consumes the next top-level unit from text starting at
	// offset under state st, returning the parsed fragment, its source
	// span, and the offset immediately after it. ok is false once no
	// further unit can be parsed (end of text or a genuine parse failure
	// reported via err).
	ParseNext(text string, offset int, st State) (node Node, span location.Span, nextOffset int, ok bool, err error)

	// Interpret type-checks node against st, returning the resulting state
	// and any diagnostics produced (empty on success).
	Interpret(st State, node Node) (next State, diags []diag.Issue, err error)

	// Protect runs thunk, converting any panic raised inside it into an
	// Error-severity E_PROVER_FAILURE diagnostic (with nil state and nil
	// error) rather than letting it escape to the worker loop (see
	// spec.md §4.D "Check step semantics" and Protect in this package).
	Protect(thunk func() (State, []diag.Issue, error)) (next State, diags []diag.Issue, err error)

	// InterruptFlag returns the shared flag the prover must poll at
	// cooperative checkpoints during Interpret/ParseNext.
	InterruptFlag() *atomic.Bool
}

// Protect runs thunk and converts any panic into a diagnostic-bearing
// result instead of letting it unwind past the caller, per spec.md §4.D:
// "invoked inside a protect wrapper that converts prover exceptions/panics
// into diagnostic nodes tagged Severity.Error ... and never lets them
// escape."
//
// span is used to locate the synthesized diagnostic when thunk panics;
// callers typically pass the span of the unit currently being checked.
func Protect(span location.Span, thunk func() (State, []diag.Issue, error)) (st State, diags []diag.Issue, err error) {
	defer func() {
		if r := recover(); r != nil {
			issue := diag.NewIssue(diag.Error, diag.E_PROVER_FAILURE, proverPanicMessage(r)).
				WithSpan(span).
				Build()
			diags = []diag.Issue{issue}
			err = nil
			st = nil
		}
	}()
	return thunk()
}

func proverPanicMessage(r any) string {
	if err, ok := r.(error); ok {
		return "prover panicked: " + err.Error()
	}
	return "prover panicked: " + formatPanicValue(r)
}

func formatPanicValue(r any) string {
	type stringer interface{ String() string }
	if s, ok := r.(stringer); ok {
		return s.String()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unrecoverable error"
}
