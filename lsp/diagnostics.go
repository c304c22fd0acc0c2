package lsp

import (
	"context"
	"log/slog"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/rocqls/rocqls/diag"
	"github.com/rocqls/rocqls/internal/document"
	"github.com/rocqls/rocqls/internal/posconv"
)

// step implements scheduler.StepFunc: it advances the Document Manager's
// most-recently-touched active document by one unit, per spec.md §4.D/§4.F,
// then drains any postponed requests the resulting state satisfies.
func (s *Server) step() bool {
	uri, ok := s.docs.AnyActive()
	if !ok {
		return false
	}

	outcome, err := s.docs.Step(uri)
	if err != nil {
		s.logger.Warn("document step failed", slog.String("uri", uri), slog.Any("error", err))
		return true
	}

	switch outcome {
	case document.Suspended:
		return false
	case document.Completed:
		if doc, open := s.docs.Get(uri); open {
			s.drainPostponed(uri, doc.Version)
		}
	}
	return true
}

// publishDiagnostics is the document.Manager's PublishFunc: it converts a
// step's new issues into LSP diagnostics and notifies the client via
// textDocument/publishDiagnostics, grounded on the teacher's retired
// diag/lsp.go conversion (now owned by this package instead of diag,
// since LSP wire types are a transport concern, not a diagnostics-model
// concern).
func (s *Server) publishDiagnostics(uriStr string, version int, issues []diag.Issue) {
	if s.conn == nil {
		return
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(issues))
	for _, issue := range issues {
		d, ok := s.issueToDiagnostic(issue)
		if !ok {
			continue
		}
		diagnostics = append(diagnostics, d)
	}

	v := protocol.Integer(version)
	params := protocol.PublishDiagnosticsParams{
		URI:         uriStr,
		Version:     &v,
		Diagnostics: diagnostics,
	}
	if err := s.conn.Notify(context.Background(), "textDocument/publishDiagnostics", params); err != nil {
		s.logger.Warn("publishDiagnostics notify failed", slog.Any("error", err))
	}
}

// issueToDiagnostic converts one diag.Issue into a protocol.Diagnostic,
// using posconv for the UTF-16 range conversion. Span-less issues (no
// document location) fall back to 0:0, matching the teacher's span-less
// handling in its retired analyzer.
func (s *Server) issueToDiagnostic(issue diag.Issue) (protocol.Diagnostic, bool) {
	var r protocol.Range
	if issue.HasSpan() {
		start, end, ok := posconv.SpanToLSPRange(s.sources, issue.Span(), posconv.UTF16)
		if ok {
			r = protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(start[0]), Character: protocol.UInteger(start[1])},
				End:   protocol.Position{Line: protocol.UInteger(end[0]), Character: protocol.UInteger(end[1])},
			}
		}
	}

	severity := severityToLSP(issue.Severity())
	code := issue.Code().String()
	source := "rocqls"

	return protocol.Diagnostic{
		Range:    r,
		Severity: &severity,
		Code:     &protocol.IntegerOrString{Value: code},
		Source:   &source,
		Message:  issue.Message(),
	}, true
}

// severityToLSP maps a diag.Severity onto the LSP DiagnosticSeverity
// scale, per the teacher's retired diag.SeverityToLSP: Fatal and Error
// both map to Error, since LSP has no "fatal" diagnostic severity.
func severityToLSP(sev diag.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diag.Fatal, diag.Error:
		return protocol.DiagnosticSeverityError
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Info:
		return protocol.DiagnosticSeverityInformation
	case diag.Hint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}
