package prover

import (
	"strings"
	"sync/atomic"

	"github.com/rocqls/rocqls/diag"
	"github.com/rocqls/rocqls/internal/uri"
	"github.com/rocqls/rocqls/internal/workspace"
	"github.com/rocqls/rocqls/location"
)

// Fake is a goal-free, deterministic [Prover] for use in tests.
//
// Fake treats every top-level unit as the text up to and including the next
// "." (a crude
// stand-in for a prover's real statement terminator) and reports a
// diagnostic whenever a unit's text contains the literal substring "Fail",
// so tests can deterministically trigger both the success and failure
// paths of internal/document's stepper without a real prover.
type Fake struct {
	interrupt atomic.Bool

	// FailOn, if non-empty, causes Interpret to report an error-severity
	// diagnostic for any unit whose text contains this substring. NewFake
	// sets it to "Fail"; an empty FailOn (as in a zero-valued Fake) reports
	// no diagnostics. Set explicitly in tests that need a different trigger.
	FailOn string
}

// NewFake returns a ready-to-use Fake prover.
func NewFake() *Fake {
	return &Fake{FailOn: "Fail"}
}

func (f *Fake) Init(flags map[string]bool, fb FeedbackHandler, loadModule, loadPlugin func(string) error) (State, error) {
	if fb != nil {
		fb("fake prover initialized")
	}
	return fakeState{flags: flags}, nil
}

type fakeState struct {
	flags map[string]bool
}

func (f *Fake) WorkspaceGuess(root string, cmdline []string) (workspace.Workspace, error) {
	return workspace.Workspace{Root: root}, nil
}

func (f *Fake) WorkspaceApply(u uri.URI, w workspace.Workspace) error {
	return nil
}

// ParseNext splits text on "." starting at offset, returning the substring
// up to and including the next period as one unit.
func (f *Fake) ParseNext(text string, offset int, st State) (Node, location.Span, int, bool, error) {
	if offset >= len(text) {
		return nil, location.Span{}, offset, false, nil
	}
	rest := text[offset:]
	idx := strings.IndexByte(rest, '.')
	if idx < 0 {
		return nil, location.Span{}, offset, false, nil
	}
	end := offset + idx + 1
	unitText := text[offset:end]
	span := location.PointWithByte(location.NewSourceID("fake"), 1, 1, offset)
	return fakeNode(unitText), span, end, true, nil
}

type fakeNode string

func (f *Fake) Interpret(st State, node Node) (State, []diag.Issue, error) {
	unit, _ := node.(fakeNode)
	if f.FailOn != "" && strings.Contains(string(unit), f.FailOn) {
		issue := diag.NewIssue(diag.Error, diag.E_TYPE_MISMATCH, "fake prover rejected unit: "+string(unit)).Build()
		return st, []diag.Issue{issue}, nil
	}
	return st, nil, nil
}

func (f *Fake) Protect(thunk func() (State, []diag.Issue, error)) (State, []diag.Issue, error) {
	return Protect(location.Span{}, thunk)
}

func (f *Fake) InterruptFlag() *atomic.Bool {
	return &f.interrupt
}
