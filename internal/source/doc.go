// Package source provides a document source registry for content storage and
// position conversion.
//
// This package is the internal foundation for managing checked document text
// and computing byte offset / line-column conversions. It does NOT perform
// formatting or excerpt rendering - that responsibility belongs exclusively
// to the diag package, and UTF-16 conversion for the LSP wire belongs to
// internal/posconv.
//
// # Responsibilities
//
// The source registry has the following responsibilities:
//
//   - Store raw document bytes keyed by [location.SourceID]
//   - Precompute line-start byte offsets for efficient position lookup
//   - Precompute rune-to-byte offset tables for span construction
//   - Convert byte offset to [location.Position] (PositionAt)
//   - Enforce uniqueness of source identity keys
//
// # Newline and Column Handling
//
// The registry follows these rules for newline handling:
//
//   - Treat \r\n (CRLF) as a single line break
//   - Treat \n (LF) as a single line break
//   - Treat bare \r (CR) as a single line break
//
// Column counting follows these rules:
//
//   - Columns count runes (Unicode code points) from line start, not bytes
//   - Tab characters count as 1 rune (no width expansion)
//   - Column numbers are 1-based (first column is 1)
//
// # Lifecycle and Concurrency
//
// The registry is designed for a "re-register on every edit" lifecycle: each
// accepted textDocument/didChange re-registers the document's full text under
// its URI's [location.SourceID], replacing the previous entry.
//
//   - Register is safe for concurrent access (synchronized with RWMutex)
//   - Read methods (Content, PositionAt, etc.) are safe for concurrent reads
//   - Clear() resets the registry, requiring exclusive access
//
// # Identity and Uniqueness
//
// Source identity uses [location.SourceID]. The registry enforces uniqueness:
//
//   - Registration with an existing SourceID and identical content succeeds (idempotent)
//   - Registration with an existing SourceID and different content returns [*KeyCollisionError]
//     (the document manager re-registers under a fresh SourceID-equivalent
//     state on a version bump rather than colliding; see internal/document)
//
// # Usage
//
// The typical usage pattern:
//
//	reg := source.NewRegistry()
//
//	// On textDocument/didOpen or didChange:
//	sourceID := location.MustSourceIDFromPath(docPath)
//	if err := reg.Register(sourceID, content); err != nil {
//	    // handle collision error
//	}
//
//	// During diagnostic reporting:
//	if content, ok := reg.ContentBySource(sourceID); ok {
//	    // use content for excerpt rendering via diag
//	}
//
//	// For position conversion:
//	pos := reg.PositionAt(sourceID, byteOffset)
//	if !pos.IsZero() {
//	    // pos.Line, pos.Column, pos.Byte are populated
//	}
package source
