package lsp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/rocqls/rocqls/internal/requesttable"
	"github.com/rocqls/rocqls/internal/trace"
	"github.com/rocqls/rocqls/internal/uri"
)

// dispatch is the worker context of spec.md §4.B: it is called from the
// Scheduler's main loop for exactly one popped message at a time, and may
// freely call into the Document Manager, the Request Table, and the
// prover, since nothing else runs concurrently with it.
//
// Every dispatched message gets a request_id for trace correlation:
// requests use their wire jsonrpc2.ID, notifications (which carry none)
// get a synthesized UUID so a "didChange then step then publish" chain
// stays traceable through a single id in the logs.
func (s *Server) dispatch(m message) {
	ctx := trace.WithRequestID(context.Background(), dispatchRequestID(m.req))
	op := trace.Begin(ctx, s.logger, "rocqls.lsp.dispatch", slog.String("method", m.req.Method))
	defer op.End(nil)

	if m.req.Notif {
		s.dispatchNotification(m)
		return
	}
	s.dispatchRequest(m)
}

func dispatchRequestID(req *jsonrpc2.Request) string {
	if req.Notif {
		return uuid.NewString()
	}
	return req.ID.String()
}

func (s *Server) dispatchNotification(m message) {
	req := m.req
	switch req.Method {
	case "initialized":
		s.logger.Info("client sent initialized")
	case "exit":
		s.handleExit()
	case "$/setTrace":
		s.handleSetTrace(req)
	case "$/cancelRequest":
		s.handleCancelRequest(req)
	case "workspace/didChangeWorkspaceFolders":
		s.handleDidChangeWorkspaceFolders(req)
	case "textDocument/didOpen":
		s.handleDidOpen(req)
	case "textDocument/didChange":
		s.handleDidChange(req)
	case "textDocument/didClose":
		s.handleDidClose(req)
	case "textDocument/didSave":
		s.logger.Debug("textDocument/didSave", slog.String("method", req.Method))
	default:
		if !notificationMethods[req.Method] {
			s.logger.Debug("ignoring unknown notification", slog.String("method", req.Method))
		}
	}
}

func (s *Server) dispatchRequest(m message) {
	req, conn := m.req, m.conn

	if req.Method == "initialize" {
		if s.currentState() != statePreInit {
			s.replyError(conn, req.ID, requesttable.CodeInvalidRequest, "server already initialized")
			return
		}
		s.replyResult(conn, req.ID, s.handleInitialize(req))
		return
	}

	switch s.currentState() {
	case statePreInit:
		s.replyError(conn, req.ID, requesttable.CodeServerNotInitialized, "server has not received initialize")
		return
	case stateShuttingDown, stateExited:
		if req.Method != "shutdown" {
			s.replyError(conn, req.ID, requesttable.CodeInvalidRequest, "server is shutting down")
			return
		}
	}

	desc, ok := methodTable[req.Method]
	if !ok {
		s.replyError(conn, req.ID, requesttable.CodeMethodNotFound, "method not found: "+req.Method)
		return
	}

	switch req.Method {
	case "shutdown":
		s.replyResult(conn, req.ID, s.handleShutdown())
		return
	}

	s.dispatchScoped(m, desc)
}

// dispatchScoped admits a PositionKind or DocumentKind request against
// the Document Manager's current state, per spec.md §4.E, serving it
// immediately, postponing it, or cancelling it.
func (s *Server) dispatchScoped(m message, desc methodDescriptor) {
	req, conn := m.req, m.conn

	treq, ok := s.decodeScopedRequest(req, desc)
	if !ok {
		s.replyError(conn, req.ID, requesttable.CodeInvalidRequest, "invalid params for "+req.Method)
		return
	}

	result := s.requests.Admit(req.ID, treq, s.docs)
	switch result.Outcome {
	case requesttable.Now:
		s.serveScoped(conn, req.ID, treq, result.Doc, req.Params)
	case requesttable.Cancel:
		s.replyError(conn, req.ID, result.Code, result.Message)
	case requesttable.Postpone:
		s.logger.Debug("postponed request", slog.String("method", req.Method), slog.String("uri", treq.URI))
	}
}

// decodeScopedRequest extracts the URI (and, for position requests, the
// line/character) every handler in the opaque request table needs for
// admission, independent of each method's full parameter shape.
func (s *Server) decodeScopedRequest(req *jsonrpc2.Request, desc methodDescriptor) (requesttable.Request, bool) {
	if req.Params == nil {
		return requesttable.Request{}, false
	}

	var p struct {
		TextDocument struct {
			URI     string `json:"uri"`
			Version *int   `json:"version"`
		} `json:"textDocument"`
		Position struct {
			Line      int `json:"line"`
			Character int `json:"character"`
		} `json:"position"`
	}
	if err := json.Unmarshal(*req.Params, &p); err != nil {
		return requesttable.Request{}, false
	}
	// Documents are keyed by canonical path (see handleDidOpen), so the
	// request must carry the same key for Admit and DrainReady to match.
	u, err := uri.Parse(p.TextDocument.URI)
	if err != nil {
		return requesttable.Request{}, false
	}

	kind := requesttable.DocumentKind
	if desc.kind == kindPosition {
		kind = requesttable.PositionKind
	}

	return requesttable.Request{
		Kind:     kind,
		URI:      u.Path().String(),
		Handler:  req.Method,
		Version:  p.TextDocument.Version,
		Line:     p.Position.Line,
		Char:     p.Position.Character,
		Postpone: desc.postpone,
	}, true
}

// drainPostponed re-admits every postponed request for uri once its
// document reaches Done at version, per spec.md §4.D's publish-triggered
// drain.
func (s *Server) drainPostponed(uri string, version int) {
	ready := s.requests.DrainReady(uri, version)
	if len(ready) == 0 || s.conn == nil {
		return
	}
	for id, treq := range ready {
		doc, ok := s.docs.Get(treq.URI)
		if !ok {
			s.replyError(s.conn, id, requesttable.CodeDocumentNotReady, "document closed while postponed")
			continue
		}
		s.serveScoped(s.conn, id, treq, doc, nil)
	}
}

func (s *Server) handleExit() {
	s.logger.Info("exit received", slog.Bool("clean_shutdown", s.shutdownOK.Load()))
	s.setState(stateExited)
	for _, id := range s.requests.CancelAll() {
		if s.conn != nil {
			s.replyError(s.conn, id, requesttable.CodeServerShuttingDown, "server is exiting")
		}
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Server) handleShutdown() any {
	s.logger.Info("shutdown requested")
	s.setState(stateShuttingDown)
	s.shutdownOK.Store(true)
	return nil
}

func (s *Server) handleCancelRequest(req *jsonrpc2.Request) {
	var p struct {
		ID jsonrpc2.ID `json:"id"`
	}
	if req.Params == nil {
		return
	}
	if err := json.Unmarshal(*req.Params, &p); err != nil {
		s.logger.Debug("malformed $/cancelRequest", slog.Any("error", err))
		return
	}
	if treq, found := s.requests.Cancel(p.ID, requesttable.CodeCancelledByClient, "request cancelled by client"); found {
		if s.conn != nil {
			s.replyError(s.conn, p.ID, requesttable.CodeCancelledByClient, "request cancelled by client")
		}
		s.logger.Debug("cancelled postponed request", slog.String("method", treq.Handler))
	}
}

func (s *Server) handleSetTrace(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}
	var p struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(*req.Params, &p); err != nil {
		return
	}
	s.traceLevel.Store(traceLevelFromWire(p.Value))
}

func (s *Server) replyResult(conn *jsonrpc2.Conn, id jsonrpc2.ID, result any) {
	if conn == nil {
		return
	}
	if err := conn.Reply(context.Background(), id, result); err != nil {
		s.logger.Warn("reply failed", slog.Any("error", err))
	}
}

func (s *Server) replyError(conn *jsonrpc2.Conn, id jsonrpc2.ID, code int, message string) {
	if conn == nil {
		return
	}
	err := conn.ReplyWithError(context.Background(), id, &jsonrpc2.Error{Code: int64(code), Message: message})
	if err != nil {
		s.logger.Warn("reply with error failed", slog.Any("error", err))
	}
}
