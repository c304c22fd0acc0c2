package lsp

import (
	"encoding/json"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/rocqls/rocqls/internal/document"
	"github.com/rocqls/rocqls/internal/posconv"
	"github.com/rocqls/rocqls/internal/requesttable"
	"github.com/rocqls/rocqls/location"
)

// scopedHandler serves one admitted request against doc. treq carries the
// URI/Line/Char/Handler the Request Table admitted it with; handlers do
// not see the original request's params.
type scopedHandler func(s *Server, doc *document.Document, treq requesttable.Request) (any, error)

var scopedHandlers = map[string]scopedHandler{
	"textDocument/hover":          (*Server).hoverHandler,
	"textDocument/completion":     (*Server).completionHandler,
	"textDocument/definition":     (*Server).definitionHandler,
	"proof/goals":                 (*Server).proofGoalsHandler,
	"textDocument/documentSymbol": (*Server).documentSymbolHandler,
	"textDocument/codeLens":       (*Server).codeLensHandler,
	"coq/getDocument":             (*Server).getDocumentHandler,
	"coq/saveVo":                  (*Server).saveVoHandler,
}

// serveScoped runs the registered handler for treq.Handler and replies on
// conn with its result or error.
func (s *Server) serveScoped(conn *jsonrpc2.Conn, id jsonrpc2.ID, treq requesttable.Request, doc *document.Document, _ *json.RawMessage) {
	handler, ok := scopedHandlers[treq.Handler]
	if !ok {
		s.replyError(conn, id, requesttable.CodeMethodNotFound, "method not found: "+treq.Handler)
		return
	}
	result, err := handler(s, doc, treq)
	if err != nil {
		s.replyError(conn, id, requesttable.CodeInternalError, err.Error())
		return
	}
	s.replyResult(conn, id, result)
}

// nodeAtPosition returns the checked node whose span contains the
// requested position, and the byte offset that position resolved to.
func (s *Server) nodeAtPosition(doc *document.Document, treq requesttable.Request) (document.Node, int, bool) {
	sourceID := location.MustSourceIDFromPath(doc.URI)
	offset, ok := posconv.ByteOffsetFromLSP(s.sources, sourceID, treq.Line, treq.Char, posconv.UTF16)
	if !ok {
		return document.Node{}, 0, false
	}
	probe := location.Position{Line: 1, Column: 1, Byte: offset}
	for _, n := range doc.Nodes {
		if n.Span.Source == sourceID && n.Span.ContainsOrEquals(probe) {
			return n, offset, true
		}
	}
	return document.Node{}, offset, false
}

func (s *Server) hoverHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	node, _, ok := s.nodeAtPosition(doc, treq)
	if !ok {
		return nil, nil
	}
	start, end, rangeOK := posconv.SpanToLSPRange(s.sources, node.Span, posconv.UTF16)
	hover := &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("checked unit (%s)", doc.Completion),
		},
	}
	if rangeOK {
		hover.Range = &protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(start[0]), Character: protocol.UInteger(start[1])},
			End:   protocol.Position{Line: protocol.UInteger(end[0]), Character: protocol.UInteger(end[1])},
		}
	}
	return hover, nil
}

// completionHandler returns no items: the coordinator has no completion
// engine of its own (spec.md §1 scopes semantic completion to the prover,
// which this repo's Prover interface does not expose). The endpoint is
// wired so the postponement path is exercised end to end.
func (s *Server) completionHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	return &protocol.CompletionList{IsIncomplete: false, Items: []protocol.CompletionItem{}}, nil
}

func (s *Server) definitionHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	_, _, ok := s.nodeAtPosition(doc, treq)
	if !ok {
		return nil, nil
	}
	// The opaque prover.Node carries no cross-reference information this
	// coordinator can resolve on its own; a real prover's Interpret result
	// would need to report definition sites for this to do more.
	return nil, nil
}

func (s *Server) proofGoalsHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	node, _, ok := s.nodeAtPosition(doc, treq)
	if !ok {
		return map[string]any{"goals": []any{}}, nil
	}
	return map[string]any{
		"goals":       []any{},
		"diagnostics": len(node.Diagnostics),
	}, nil
}

func (s *Server) documentSymbolHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	symbols := make([]protocol.DocumentSymbol, 0, len(doc.Nodes))
	for i, n := range doc.Nodes {
		start, end, ok := posconv.SpanToLSPRange(s.sources, n.Span, posconv.UTF16)
		if !ok {
			continue
		}
		r := protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(start[0]), Character: protocol.UInteger(start[1])},
			End:   protocol.Position{Line: protocol.UInteger(end[0]), Character: protocol.UInteger(end[1])},
		}
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           fmt.Sprintf("unit %d", i),
			Kind:           protocol.SymbolKindModule,
			Range:          r,
			SelectionRange: r,
		})
	}
	return symbols, nil
}

func (s *Server) codeLensHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	lenses := make([]protocol.CodeLens, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		start, _, ok := posconv.SpanToLSPRange(s.sources, n.Span, posconv.UTF16)
		if !ok {
			continue
		}
		lenses = append(lenses, protocol.CodeLens{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(start[0]), Character: protocol.UInteger(start[1])},
				End:   protocol.Position{Line: protocol.UInteger(start[0]), Character: protocol.UInteger(start[1])},
			},
		})
	}
	return lenses, nil
}

// coqDocumentResult is coq/getDocument's response: a snapshot of a
// document's checking progress, for clients (e.g. a proof-state panel)
// that need the raw completion state outside the diagnostics channel.
type coqDocumentResult struct {
	URI        string `json:"uri"`
	Version    int    `json:"version"`
	Completion string `json:"completion"`
	NodeCount  int    `json:"nodeCount"`
}

func (s *Server) getDocumentHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	return coqDocumentResult{
		URI:        doc.URI,
		Version:    doc.Version,
		Completion: doc.Completion.String(),
		NodeCount:  len(doc.Nodes),
	}, nil
}

// coqSaveVoResult acknowledges coq/saveVo; this coordinator has no
// compiled-object cache of its own (out of scope per spec.md §1's
// "prover is explicitly out of scope"), so it only reports whether the
// document is fully checked, which is the precondition a real saveVo
// would require.
type coqSaveVoResult struct {
	Saved bool `json:"saved"`
}

func (s *Server) saveVoHandler(doc *document.Document, treq requesttable.Request) (any, error) {
	return coqSaveVoResult{Saved: doc.Completion.Kind == document.Done}, nil
}
