// Package requesttable implements the Request Table and postponement
// mechanism of spec.md §4.E: admitting requests against document state,
// holding those that cannot yet be served, and resolving them on cancel,
// document invalidation, drain, or shutdown.
package requesttable

import (
	"log/slog"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/rocqls/rocqls/internal/document"
)

// JSON-RPC error codes used by the coordinator, per spec.md §6.
const (
	CodeServerNotInitialized = -32002
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeCancelledByClient    = -32800
	CodeDocumentNotReady     = -32802 // also used for "request got old in server"
	CodeServerShuttingDown   = -32097
	CodeInternalError        = -32603
)

// Kind distinguishes the two Request shapes of spec.md §3.
type Kind int

const (
	// PositionKind requests are scoped to a document position.
	PositionKind Kind = iota

	// DocumentKind requests require the whole document to be Done.
	DocumentKind
)

// Request is a tagged value describing one pending client request, per
// spec.md §3 ("PositionRequest" / "DocumentRequest").
type Request struct {
	Kind    Kind
	URI     string
	Handler string

	// Version, Line, and Char apply only to PositionKind requests.
	Version  *int // nil means "no version constraint"
	Line     int
	Char     int
	Postpone bool
}

// Outcome is the result of admitting a request against current document
// state.
type Outcome int

const (
	// Now means the request can be served immediately against doc.
	Now Outcome = iota

	// Postpone means the request has been recorded and will be served
	// later via DrainReady.
	Postpone

	// Cancel means the request cannot and will not be served; Code and
	// Message should be sent back as a JSON-RPC error response.
	Cancel
)

// AdmitResult is the classification spec.md §4.E's admit() operation
// produces.
type AdmitResult struct {
	Outcome Outcome
	Doc     *document.Document // set when Outcome == Now
	Code    int                // set when Outcome == Cancel
	Message string             // set when Outcome == Cancel
}

// Table holds postponed requests, keyed by the JSON-RPC id the client
// assigned. sourcegraph/jsonrpc2's ID supports both numeric and string
// ids, an enrichment over spec.md's "integer id" simplification — real LSP
// clients may send either.
type Table struct {
	mu        sync.Mutex
	postponed map[jsonrpc2.ID]Request
	logger    *slog.Logger
}

// NewTable returns an empty Table.
func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		postponed: make(map[jsonrpc2.ID]Request),
		logger:    logger,
	}
}

// Admit classifies req against the current state of docs, per spec.md
// §4.E's admit() rules.
func (t *Table) Admit(id jsonrpc2.ID, req Request, docs *document.Manager) AdmitResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, open := docs.Get(req.URI)

	switch req.Kind {
	case DocumentKind:
		if !open {
			return AdmitResult{Outcome: Cancel, Code: CodeDocumentNotReady, Message: "Document is not ready"}
		}
		if doc.Completion.Kind == document.Done {
			return AdmitResult{Outcome: Now, Doc: doc}
		}
		t.postponed[id] = req
		return AdmitResult{Outcome: Postpone}

	default: // PositionKind
		if !req.Postpone {
			if !open {
				return AdmitResult{Outcome: Cancel, Code: CodeDocumentNotReady, Message: "Document is not ready"}
			}
			return AdmitResult{Outcome: Now, Doc: doc}
		}

		if !open {
			return AdmitResult{Outcome: Cancel, Code: CodeDocumentNotReady, Message: "Document is not ready"}
		}
		if req.Version != nil && *req.Version < doc.Version {
			return AdmitResult{Outcome: Cancel, Code: CodeDocumentNotReady, Message: "Request got old in server"}
		}
		versionCurrent := req.Version == nil || *req.Version == doc.Version
		if versionCurrent && doc.Completion.Kind == document.Done {
			return AdmitResult{Outcome: Now, Doc: doc}
		}
		t.postponed[id] = req
		return AdmitResult{Outcome: Postpone}
	}
}

// Cancel removes id from the postponement table. found reports whether id
// was present; callers should only emit the JSON-RPC error response when
// found is true, since a request that already produced a reply (served,
// errored, or already cancelled) is gone from the table and cancelling an
// unknown id is a documented no-op (logged here, not by the caller).
func (t *Table) Cancel(id jsonrpc2.ID, code int, message string) (Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, found := t.postponed[id]
	if !found {
		t.logger.Info("cancel of unknown or already-resolved request id", "id", id)
		return Request{}, false
	}
	delete(t.postponed, id)
	return req, true
}

// DrainReady returns the ids (and their requests) that can now be served
// because uri's document reached Done at version currentVersion, removing
// them from the postponement table.
func (t *Table) DrainReady(uri string, currentVersion int) map[jsonrpc2.ID]Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	ready := make(map[jsonrpc2.ID]Request)
	for id, req := range t.postponed {
		if req.URI != uri {
			continue
		}
		if req.Version != nil && *req.Version != currentVersion {
			continue
		}
		ready[id] = req
		delete(t.postponed, id)
	}
	return ready
}

// CancelInvalidated cancels every postponed request targeting uri,
// returning their ids. Called after a change or close notification, since
// both discard the document state any postponed request for that URI was
// waiting on.
func (t *Table) CancelInvalidated(uri string) []jsonrpc2.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []jsonrpc2.ID
	for id, req := range t.postponed {
		if req.URI == uri {
			ids = append(ids, id)
			delete(t.postponed, id)
		}
	}
	return ids
}

// CancelAll cancels every postponed request, used on shutdown.
func (t *Table) CancelAll() []jsonrpc2.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]jsonrpc2.ID, 0, len(t.postponed))
	for id := range t.postponed {
		ids = append(ids, id)
	}
	t.postponed = make(map[jsonrpc2.ID]Request)
	return ids
}

// Len reports the number of currently postponed requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.postponed)
}
