package lsp

import (
	"encoding/json"
	"log/slog"

	"github.com/sourcegraph/jsonrpc2"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/rocqls/rocqls/internal/prover"
	"github.com/rocqls/rocqls/internal/requesttable"
	"github.com/rocqls/rocqls/internal/uri"
	"github.com/rocqls/rocqls/internal/workspace"
	"github.com/rocqls/rocqls/location"
)

// handleDidOpen implements textDocument/didOpen: it registers the
// document's content and creates a fresh Document at the client-supplied
// version in the Document Manager, resolving its governing workspace first.
func (s *Server) handleDidOpen(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		s.logger.Debug("malformed didOpen", slog.Any("error", err))
		return
	}

	u, err := uri.Parse(params.TextDocument.URI)
	if err != nil {
		s.logger.Warn("didOpen with unparseable URI", slog.String("uri", params.TextDocument.URI), slog.Any("error", err))
		return
	}
	path := u.Path().String()

	sourceID := location.SourceIDFromCanonicalPath(u.Path())
	if regErr := s.sources.Register(sourceID, []byte(params.TextDocument.Text)); regErr != nil {
		s.logger.Warn("source registration failed", slog.String("uri", path), slog.Any("error", regErr))
	}

	ws, ok := s.workspaces.Resolve(path)
	if !ok {
		s.logger.Warn("no workspace registered for didOpen", slog.String("uri", path))
	}

	rootState, err := s.prover.Init(ws.Flags, s.feedback(path), s.loadModule(ws), s.loadPlugin(ws))
	if err != nil {
		s.logger.Error("prover init failed", slog.String("uri", path), slog.Any("error", err))
		return
	}

	s.docs.Create(path, int(params.TextDocument.Version), params.TextDocument.Text, ws, rootState)
	s.logger.Debug("document opened", slog.String("uri", path), slog.Int("version", int(params.TextDocument.Version)))
}

// handleDidChange implements textDocument/didChange. Since the server
// advertises TextDocumentSyncKindFull, the first content change in the
// batch carries the complete new text; see firstFullText.
func (s *Server) handleDidChange(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		s.logger.Debug("malformed didChange", slog.Any("error", err))
		return
	}

	u, err := uri.Parse(params.TextDocument.URI)
	if err != nil {
		return
	}
	path := u.Path().String()

	text, ok := s.firstFullText(path, params.ContentChanges)
	if !ok {
		s.logger.Warn("didChange without a full-text content change", slog.String("uri", path))
		return
	}

	if _, open := s.docs.Get(path); !open {
		s.logger.Warn("didChange for document not open", slog.String("uri", path))
		return
	}

	sourceID := location.SourceIDFromCanonicalPath(u.Path())
	_ = s.sources.Register(sourceID, []byte(text))

	ws, _ := s.workspaces.Resolve(path)
	rootState, err := s.prover.Init(ws.Flags, s.feedback(path), s.loadModule(ws), s.loadPlugin(ws))
	if err != nil {
		s.logger.Error("prover re-init failed on change", slog.String("uri", path), slog.Any("error", err))
		return
	}

	if err := s.docs.Change(path, int(params.TextDocument.Version), text, rootState); err != nil {
		s.logger.Info("document change rejected", slog.String("uri", path), slog.Any("error", err))
		return
	}

	for _, id := range s.requests.CancelInvalidated(path) {
		s.replyError(s.conn, id, requesttable.CodeDocumentNotReady, "request got old in server")
	}
}

func (s *Server) handleDidClose(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return
	}
	u, err := uri.Parse(params.TextDocument.URI)
	if err != nil {
		return
	}
	path := u.Path().String()

	s.docs.Close(path)
	for _, id := range s.requests.CancelInvalidated(path) {
		s.replyError(s.conn, id, requesttable.CodeDocumentNotReady, "document closed")
	}
	s.logger.Debug("document closed", slog.String("uri", path))
}

// firstFullText returns the text of the first content change in changes,
// per spec.md's "multiple changes ⇒ log and use the first; do not
// attempt to merge" policy. This server only advertises
// TextDocumentSyncKindFull, so changes[0] is expected to carry the
// complete new text; a client sending more than one change in a single
// didChange is logged, not merged.
func (s *Server) firstFullText(uriPath string, changes []any) (string, bool) {
	if len(changes) == 0 {
		return "", false
	}
	if len(changes) > 1 {
		s.logger.Info("didChange with multiple content changes, using the first", slog.String("uri", uriPath), slog.Int("count", len(changes)))
	}
	change, ok := changes[0].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return "", false
	}
	return change.Text, true
}

func (s *Server) feedback(uriPath string) prover.FeedbackHandler {
	return func(message string) {
		s.logger.Debug("prover feedback", slog.String("uri", uriPath), slog.String("message", message))
	}
}

// loadModule and loadPlugin satisfy prover.Prover.Init's callback
// parameters; this coordinator does not resolve module/plugin names to
// filesystem paths itself (that belongs to the prover's own load-path
// logic, seeded by WorkspaceApply), so both are no-ops that accept
// whatever the prover requests.
func (s *Server) loadModule(ws workspace.Workspace) func(string) error {
	return func(string) error { return nil }
}

func (s *Server) loadPlugin(ws workspace.Workspace) func(string) error {
	return func(string) error { return nil }
}
