package lsp

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/rocqls/rocqls/internal/trace"
)

// message is the Scheduler's queue element: one decoded JSON-RPC request
// or notification, paired with the connection it arrived on so the worker
// context can reply or notify without re-threading conn through every
// dispatch call.
type message struct {
	req  *jsonrpc2.Request
	conn *jsonrpc2.Conn
}

// Handle implements jsonrpc2.Handler. It is the reader context of spec.md
// §4.B: it does no prover or document work, it only pushes req onto the
// Scheduler's Message Queue (which sets the Interrupt Flag) and returns
// immediately, so a slow or postponed request never blocks the reader
// from framing the next message off the wire.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if s.traceLevelValue() != trace.LevelOff {
		s.logger.Log(ctx, trace.LevelTrace, "message received",
			slog.String("method", req.Method),
			slog.Bool("notif", req.Notif),
		)
	}
	s.scheduler.Push(message{req: req, conn: conn})
}
