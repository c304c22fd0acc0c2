// Package rocqls provides the core of an interactive Language Server for a
// proof assistant: the Request and Document Coordinator.
//
// rocqls multiplexes a sequential, non-cancellable prover worker against a
// concurrent stream of LSP notifications and requests, while honoring LSP
// ordering, version invariants, cooperative interruption, request
// postponement, and request cancellation. The prover itself, and the bodies
// of the individual request handlers (hover, goals, symbols, definition,
// completion, codeLens, saveVo, getDocument), are external collaborators
// consumed through narrow interfaces; this module owns only the
// coordination between them.
//
// # Architecture Overview
//
// The module is organized into layers with strict dependency ordering:
//
//	Foundation tier (no internal dependencies):
//	  - location: Source positions, spans, and canonical paths
//	  - diag: Structured diagnostics with stable severities
//	  - internal/uri: Canonicalized file URIs
//
//	Coordination tier:
//	  - internal/workspace: Workspace description and registry
//	  - internal/document: Per-URI document state machine and check stepper
//	  - internal/requesttable: In-flight and postponed request tracking
//	  - internal/scheduler: Interrupt-driven cooperative main loop
//	  - internal/transport: LSP wire framing over JSON-RPC 2.0
//	  - internal/prover: The Prover capability interface and a test fake
//
//	Server tier:
//	  - lsp: Message loop, handler registry, Server type
//
// # Entry point
//
//	import "github.com/rocqls/rocqls/lsp"
//
//	server := lsp.NewServer(proverImpl, config.Default(), logger)
//	conn := transport.Connect(ctx, transport.NewStream(transport.StdIO{...}), server)
//	server.Attach(conn)
//	server.Run(ctx)
//
// See cmd/rocqls for the full stdio wiring, including signal-driven
// shutdown.
//
// # Subpackages
//
// See the individual package documentation for detailed usage:
//
//   - [github.com/rocqls/rocqls/diag]: Structured diagnostics
//   - [github.com/rocqls/rocqls/location]: Source location tracking
//   - [github.com/rocqls/rocqls/internal/uri]: Canonicalized file URIs
//   - [github.com/rocqls/rocqls/internal/workspace]: Workspace registry
//   - [github.com/rocqls/rocqls/internal/document]: Document manager
//   - [github.com/rocqls/rocqls/internal/requesttable]: Request table
//   - [github.com/rocqls/rocqls/internal/scheduler]: Scheduler
//   - [github.com/rocqls/rocqls/internal/transport]: Wire framer
//   - [github.com/rocqls/rocqls/internal/prover]: Prover capability
//   - [github.com/rocqls/rocqls/lsp]: Language Server Protocol server
package rocqls
