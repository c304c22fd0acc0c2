// Package trace provides optional debug logging helpers for the server.
//
// This package is an internal utility for developer observability. It is distinct
// from [diag.Result] (document diagnostics reported to the client) and error
// returns (system failures).
//
// # Internal Package
//
// This package is internal to the rocqls module and is not importable by
// external consumers per Go's internal/ package semantics. Within the
// module it is imported by the lsp package, internal/config (for [Level]),
// and cmd/rocqls.
//
// # Design Principles
//
// The trace package follows several key design principles:
//
//   - Near-zero cost when disabled: When the logger is nil, overhead is a single nil
//     check (~2ns). When the logger is non-nil but the level is disabled, overhead
//     includes the nil check plus a level test (~3-4ns). The Lazy variants guarantee
//     no allocation from attribute construction when disabled.
//   - Stdlib only: Uses [log/slog] (Go 1.21+), preserving dependency hygiene.
//   - Logger injection: Loggers are passed via options at API boundaries, not stored
//     in globals or read from environment variables.
//   - Foundation tier exclusion: This package is NOT at the foundation tier. It may
//     be imported by the coordination tier (scheduler, document, requesttable,
//     workspace, transport) and the lsp package, but NOT by foundation tier
//     packages (diag, location).
//
// # Separation of Concerns
//
// The library uses three distinct mechanisms for different categories of information:
//
//   - [diag.Result]: Document-facing content issues (parse failures, prover
//     failures surfaced via protect). These are structured diagnostics with
//     severities and locations.
//   - error returns: System failures (wire framing errors, nil arguments,
//     impossible states).
//   - trace logging: Developer observability (scheduler step decisions, request
//     admission/postponement, workspace resolution). This package.
//
// # Usage Patterns
//
// There are four patterns for logging, chosen based on attribute computation cost:
//
//   - [Begin]/[Op.End]: Operation boundaries (start/end of public API calls). Use for
//     wrapping top-level functions with automatic duration measurement.
//   - [Debug], [Info], [Warn], [Error]: Simple, pre-computed attributes. The variadic
//     args are evaluated at the call site even when logging is disabled.
//   - [DebugLazy], [InfoLazy], [WarnLazy], [ErrorLazy]: Computed attributes. The
//     function argument is not called when logging is disabled, guaranteeing no
//     allocation from attribute construction.
//   - [Enabled]: For complex control flow or multiple log calls at different levels.
//
// # Context Handling
//
// All logging functions accept a context parameter and pass it through to the
// underlying [log/slog.Logger]. This enables context-scoped behaviors such as:
//   - Request-scoped logging values stored in context
//   - Cancellation-aware log handlers
//
// The Op Runner ([Begin]/[Op.End]) additionally:
//   - Includes "request_id" if present in context (via [WithRequestID])
//   - Checks context cancellation for "ctx_err" attribute
//
// # Op Runner
//
// The [Op] type provides consistent operation boundary logging with automatic
// duration measurement and cancellation handling. [Begin] returns nil when
// logging is disabled (nil logger or level below Debug), achieving near-zero
// overhead (~1-2ns). All [Op] methods are safe to call on nil.
//
//	func (m *Manager) Step(ctx context.Context, u uri.URI) (StepOutcome, error) {
//	    op := trace.Begin(ctx, cfg.logger, "rocqls.document.step", slog.String("uri", u.String()))
//	    defer op.End(nil)
//
//	    outcome, err := m.stepInternal(ctx, u)
//	    if err != nil {
//	        op.End(err)
//	        return outcome, err
//	    }
//
//	    op.End(nil, slog.String("outcome", outcome.String()))
//	    return outcome, nil
//	}
//
// The Op runner automatically logs:
//   - "op": operation name
//   - "request_id": if present in context (via [WithRequestID])
//   - "elapsed_ms": elapsed time in milliseconds (int64, machine-parseable)
//   - "duration": elapsed time as [time.Duration] (human-readable)
//   - "ctx_err": context error message if cancelled
//   - "error": error message if err != nil
//
// # Operation Names
//
// Operation names follow the format rocqls.<package>.<operation>:
//   - rocqls.document.step
//   - rocqls.scheduler.dispatch
//   - rocqls.workspace.resolve
//
// Operation names are implementation details and may change without notice.
// Tests should not depend on the exact set of operation names.
package trace
