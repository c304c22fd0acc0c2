package document

import (
	"fmt"
	"log/slog"

	"github.com/rocqls/rocqls/diag"
	"github.com/rocqls/rocqls/internal/prover"
	"github.com/rocqls/rocqls/internal/workspace"
	"github.com/rocqls/rocqls/location"
)

// StepOutcome is the result of advancing a document's check continuation
// by one bounded slice, per spec.md §4.D.
type StepOutcome int

const (
	// Progressed means one unit was checked and Completion is still Yet.
	Progressed StepOutcome = iota

	// Suspended means the interrupt flag was observed before a unit
	// finished checking; the continuation is unchanged and will retry the
	// same offset on the next Step call.
	Suspended

	// Completed means this Step brought Completion to Done.
	Completed
)

func (o StepOutcome) String() string {
	switch o {
	case Progressed:
		return "Progressed"
	case Suspended:
		return "Suspended"
	case Completed:
		return "Completed"
	default:
		return "unknown"
	}
}

// PublishFunc is called by Step whenever a checked node contributes new
// diagnostics, scoped to the URI and version that produced them (spec.md
// §4.D "A step publishes any new diagnostics via publishDiagnostics
// (URI+version scoped)").
type PublishFunc func(uri string, version int, diags []diag.Issue)

// Manager owns the uri -> Document mapping and the per-URI stepper.
//
// Manager methods are intended to run on the worker context exclusively
// (spec.md §5); per-URI serialization against concurrent change/close is
// the Scheduler's responsibility (it holds the single FIFO all such
// messages travel through), not Manager's.
type Manager struct {
	docs   map[string]*Document
	touch  []string // most-recently-touched first; ties broken by position
	prover prover.Prover
	publish PublishFunc
	logger *slog.Logger
}

// NewManager returns an empty Manager. publish may be nil, in which case
// Step's diagnostics are discarded by the caller reading Document.Diagnostics
// directly instead.
func NewManager(p prover.Prover, publish PublishFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		docs:    make(map[string]*Document),
		prover:  p,
		publish: publish,
		logger:  logger,
	}
}

// Create constructs a fresh Document for uri, discarding any prior
// document for the same URI (logged, since a live client should always
// close before reopening).
func (m *Manager) Create(uri string, version int, text string, ws workspace.Workspace, rootState prover.State) {
	if _, exists := m.docs[uri]; exists {
		m.logger.Warn("document reopened without prior close", "uri", uri)
	}
	m.docs[uri] = &Document{
		URI:          uri,
		Version:      version,
		RawText:      text,
		Workspace:    ws,
		Completion:   Completion{Kind: Yet, Offset: 0},
		continuation: Continuation{Offset: 0, State: rootState},
	}
	m.touchFront(uri)
}

// Change replaces a document's text and version, resetting its nodes and
// continuation so the next Step call starts rechecking from offset 0.
//
// If newVersion does not exceed the document's current version, the
// change is ignored and ErrVersionNotMonotonic is returned (the caller
// logs this; spec.md §3 invariant 3). Returns ErrNotFound if uri has no
// open document.
//
// Unlike spec.md's literal "change(...) -> Set<RequestId>" signature,
// Change itself does not know about postponed requests: the request table
// is a separate component (internal/requesttable), so the caller
// (lsp.Server) is responsible for calling requesttable.Table.CancelInvalidated
// for this URI immediately after a successful Change. This
// keeps Manager from depending on the request table's types.
func (m *Manager) Change(uri string, newVersion int, newText string, rootState prover.State) error {
	doc, ok := m.docs[uri]
	if !ok {
		return fmt.Errorf("document change %q: %w", uri, ErrNotFound)
	}
	if newVersion <= doc.Version {
		return fmt.Errorf("document change %q: version %d <= current %d: %w", uri, newVersion, doc.Version, ErrVersionNotMonotonic)
	}
	doc.Version = newVersion
	doc.RawText = newText
	doc.Nodes = nil
	doc.Completion = Completion{Kind: Yet, Offset: 0}
	doc.continuation = Continuation{Offset: 0, State: rootState}
	m.touchFront(uri)
	return nil
}

// Close removes the document for uri. Cancelling its postponed requests is
// the caller's responsibility (internal/requesttable), for the same
// reason noted on Change.
func (m *Manager) Close(uri string) {
	delete(m.docs, uri)
	m.removeTouch(uri)
}

// Get returns the document for uri, if open.
func (m *Manager) Get(uri string) (*Document, bool) {
	doc, ok := m.docs[uri]
	return doc, ok
}

// Step executes one bounded slice of uri's check continuation: it parses
// the next top-level unit, type-checks it, appends the resulting node, and
// advances the continuation. The prover call is wrapped in prover.Protect
// so a prover panic becomes an Error-severity diagnostic instead of
// escaping to the worker loop.
//
// Step checks the interrupt flag before consuming the next unit; if set,
// it returns Suspended immediately without mutating the continuation, so
// the same unit is retried on the next call once the flag clears.
func (m *Manager) Step(uri string) (StepOutcome, error) {
	doc, ok := m.docs[uri]
	if !ok {
		return Progressed, fmt.Errorf("document step %q: %w", uri, ErrNotFound)
	}
	if doc.Completion.Kind == Done {
		return Completed, nil
	}

	if m.prover.InterruptFlag().Load() {
		return Suspended, nil
	}

	offset := doc.continuation.Offset
	state := doc.continuation.State
	recorded := false

	nextState, diags, err := m.prover.Protect(func() (prover.State, []diag.Issue, error) {
		node, span, nextOffset, ok, err := m.prover.ParseNext(doc.RawText, offset, state)
		if err != nil {
			return state, nil, err
		}
		if !ok {
			return state, nil, nil
		}
		interpState, interpDiags, err := m.prover.Interpret(state, node)
		if err != nil {
			return state, nil, err
		}
		// The coordinator owns document identity, not the prover: stamp
		// the span with this document's own SourceID regardless of what
		// the prover populated, so spans are always comparable against
		// positions derived from doc.URI (e.g. internal/posconv,
		// lsp.nodeAtPosition).
		span.Source = m.sourceID(uri)
		doc.Nodes = append(doc.Nodes, Node{
			Span:        span,
			AST:         node,
			Diagnostics: interpDiags,
			State:       interpState,
		})
		doc.continuation.Offset = nextOffset
		doc.continuation.State = interpState
		recorded = true
		return interpState, interpDiags, nil
	})
	if err != nil {
		return Progressed, fmt.Errorf("document step %q: %w", uri, err)
	}
	if nextState != nil {
		doc.continuation.State = nextState
	}
	if !recorded && len(diags) > 0 {
		// Protect turned a prover panic into diags; keep them on a node so
		// Diagnostics() and the publish below include them.
		doc.Nodes = append(doc.Nodes, Node{Diagnostics: diags, State: state})
	}

	if len(diags) > 0 && m.publish != nil {
		// textDocument/publishDiagnostics replaces the client's diagnostic
		// list for this URI rather than merging with it, so every publish
		// must carry the document's full accumulated diagnostics, not just
		// the ones this step produced.
		m.publish(uri, doc.Version, doc.Diagnostics())
	}

	if doc.continuation.Offset == offset {
		// ParseNext produced no further unit (the text is exhausted), or
		// the prover panicked before advancing: checking stops here.
		doc.Completion = Completion{Kind: Done}
		m.touchBack(uri)
		return Completed, nil
	}

	doc.Completion = Completion{Kind: Yet, Offset: doc.continuation.Offset}
	m.touchFront(uri)
	return Progressed, nil
}

// AnyActive returns a URI whose Completion is not Done, per spec.md §4.D's
// "most-recently touched first" selection policy, ties broken by
// insertion order. Returns ok == false if every open document is Done.
func (m *Manager) AnyActive() (uri string, ok bool) {
	for _, u := range m.touch {
		if doc, exists := m.docs[u]; exists && doc.Completion.Kind != Done {
			return u, true
		}
	}
	return "", false
}

func (m *Manager) touchFront(uri string) {
	m.removeTouch(uri)
	m.touch = append([]string{uri}, m.touch...)
}

func (m *Manager) touchBack(uri string) {
	m.removeTouch(uri)
	m.touch = append(m.touch, uri)
}

func (m *Manager) removeTouch(uri string) {
	for i, u := range m.touch {
		if u == uri {
			m.touch = append(m.touch[:i], m.touch[i+1:]...)
			return
		}
	}
}

// sourceID derives the SourceID every Node span for uri is stamped with.
func (m *Manager) sourceID(uri string) location.SourceID {
	return location.MustSourceIDFromPath(uri)
}
