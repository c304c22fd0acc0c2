package diag

// Code is a stable, programmatic identifier for a diagnostic.
//
// Codes are tool-matchable even when message text changes. The zero Code
// (see [Code.IsZero]) is never valid on a constructed [Issue]; use one of
// the package-level E_* codes below.
//
// Code uses an unexported field so construction is limited to the codes
// this package declares, keeping the set closed.
type Code struct {
	value string
}

// String returns the code's identifier, e.g. "E_SYNTAX".
func (c Code) String() string {
	return c.value
}

// IsZero reports whether this is the zero Code.
func (c Code) IsZero() bool {
	return c.value == ""
}

func newCode(name string) Code {
	return Code{value: name}
}

// Codes used by the document coordinator and its prover collaborator.
//
// The coordinator itself only ever constructs E_PROVER_FAILURE (inside the
// protect wrapper, see internal/prover) and E_INTERNAL; the remaining codes
// are available to request handlers and the prover glue for the kinds of
// issues a proof-checking pipeline typically reports.
var (
	// E_SYNTAX marks a parse failure: the prover could not produce an AST
	// fragment for the next unit of text.
	E_SYNTAX = newCode("E_SYNTAX")

	// E_TYPE_MISMATCH marks a type-checking failure, e.g. a tactic or term
	// that does not have the expected type.
	E_TYPE_MISMATCH = newCode("E_TYPE_MISMATCH")

	// E_TYPE_COLLISION marks a duplicate definition: a name already bound
	// in the current context is redefined.
	E_TYPE_COLLISION = newCode("E_TYPE_COLLISION")

	// E_UNKNOWN_PROPERTY marks a reference to an identifier, field, or
	// lemma that does not resolve in the current context.
	E_UNKNOWN_PROPERTY = newCode("E_UNKNOWN_PROPERTY")

	// E_INVALID_NAME marks a malformed or reserved identifier.
	E_INVALID_NAME = newCode("E_INVALID_NAME")

	// E_RESERVED_PREFIX marks use of an identifier prefix reserved by the
	// prover or its standard library.
	E_RESERVED_PREFIX = newCode("E_RESERVED_PREFIX")

	// E_LIMIT_REACHED is the sentinel code used when a [Collector]'s issue
	// limit has been reached; see [Collector.LimitReached].
	E_LIMIT_REACHED = newCode("E_LIMIT_REACHED")

	// E_PROVER_FAILURE marks a prover panic or exception caught by protect
	// and converted into a diagnostic (see spec §4.D "Check step semantics").
	E_PROVER_FAILURE = newCode("E_PROVER_FAILURE")

	// E_INTERNAL marks an internal coordinator failure surfaced as a
	// diagnostic rather than killing the worker (see spec §7).
	E_INTERNAL = newCode("E_INTERNAL")
)
