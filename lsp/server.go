// Package lsp implements the Request and Document Coordinator's Message
// Loop: the reader/worker split of spec.md §4.A-§4.B, the request
// lifecycle of §4.E, and the JSON-RPC method table of §6.
//
// The transport itself is github.com/sourcegraph/jsonrpc2 (internal/transport);
// this package supplies the jsonrpc2.Handler, the Scheduler's message type
// and dispatch/step callbacks, and the method registry. glsp's
// protocol_3_16 package is used only for LSP wire type definitions —
// Diagnostic, Range, Position, InitializeParams and friends — never its
// server/dispatch runtime, since jsonrpc2 already owns that role here.
package lsp

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/rocqls/rocqls/internal/config"
	"github.com/rocqls/rocqls/internal/document"
	"github.com/rocqls/rocqls/internal/prover"
	"github.com/rocqls/rocqls/internal/requesttable"
	"github.com/rocqls/rocqls/internal/scheduler"
	"github.com/rocqls/rocqls/internal/source"
	"github.com/rocqls/rocqls/internal/trace"
	"github.com/rocqls/rocqls/internal/workspace"
)

// state is the Message Loop's lifecycle, per spec.md §4.B: PreInit ->
// Running -> ShuttingDown -> Exited. It is stored in an atomic.Int32; the
// worker context (dispatch) both reads it to reject requests before
// initialize and owns the transitions.
type state int32

const (
	statePreInit state = iota
	stateRunning
	stateShuttingDown
	stateExited
)

func (s state) String() string {
	switch s {
	case statePreInit:
		return "PreInit"
	case stateRunning:
		return "Running"
	case stateShuttingDown:
		return "ShuttingDown"
	default:
		return "Exited"
	}
}

// Server is the coordinator: one Scheduler driving one Document Manager
// and one Request Table, fed by the reader context's jsonrpc2.Handler.
//
// A Server is built once per connection and is not reusable across
// connections: Run consumes the scheduler's queue until the connection's
// context is done.
type Server struct {
	logger *slog.Logger
	cfg    config.Config

	state      atomic.Int32
	traceLevel atomic.Value // trace.Level
	conn       *jsonrpc2.Conn
	shutdownOK atomic.Bool

	workspaces *workspace.Registry
	docs       *document.Manager
	requests   *requesttable.Table
	sources    *source.Registry
	prover     prover.Prover

	interrupt *atomic.Bool
	scheduler *scheduler.Scheduler[message]
}

// NewServer constructs a Server around p, ready to [Server.Handle]
// incoming requests once a transport Conn is attached via [Server.Attach].
func NewServer(p prover.Prover, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "lsp"))

	s := &Server{
		logger:     logger,
		cfg:        cfg,
		workspaces: workspace.NewRegistry(logger.With(slog.String("component", "workspace"))),
		requests:   requesttable.NewTable(logger.With(slog.String("component", "requesttable"))),
		sources:    source.NewRegistry(),
		prover:     p,
		interrupt:  p.InterruptFlag(),
	}
	s.traceLevel.Store(cfg.TraceLevel)
	s.docs = document.NewManager(p, s.publishDiagnostics, logger.With(slog.String("component", "document")))
	s.scheduler = scheduler.New(s.interrupt, s.dispatch, s.step, logger.With(slog.String("component", "scheduler")))
	return s
}

// Attach binds the transport connection the worker context replies and
// notifies through. Callers must call Attach after constructing conn and
// before calling [Server.Run], in the same goroutine: [Server.Handle] only
// ever enqueues onto the Scheduler, so no dispatch runs (and thus no code
// reads s.conn) until Run's loop starts.
func (s *Server) Attach(conn *jsonrpc2.Conn) {
	s.conn = conn
}

// Run drives the Scheduler's main loop until ctx is cancelled (typically
// by the transport's DisconnectNotify firing).
func (s *Server) Run(ctx context.Context) {
	s.scheduler.Run(ctx)
}

func (s *Server) currentState() state {
	return state(s.state.Load())
}

func (s *Server) setState(next state) {
	s.state.Store(int32(next))
}

func (s *Server) traceLevelValue() trace.Level {
	if v, ok := s.traceLevel.Load().(trace.Level); ok {
		return v
	}
	return trace.LevelOff
}
