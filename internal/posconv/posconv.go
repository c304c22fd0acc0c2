// Package posconv converts between LSP wire positions (line/character pairs
// in a client-negotiated encoding) and the coordinator's internal byte-offset
// and [location.Position] representations.
//
// LSP positions are line/character pairs where character defaults to a
// UTF-16 code unit offset; this package also converts UTF-8 (byte) offsets,
// and has no UTF-32 mode. The document manager and prover
// glue work exclusively in byte offsets, so every inbound position and
// every outbound span crosses this package exactly once.
package posconv

import (
	"bytes"
	"unicode/utf8"

	"github.com/rocqls/rocqls/internal/source"
	"github.com/rocqls/rocqls/location"
)

// Encoding identifies the unit LSP character offsets are measured in.
type Encoding string

const (
	// UTF16 is the LSP default: character offsets count UTF-16 code units.
	UTF16 Encoding = "utf-16"

	// UTF8 counts character offsets as bytes from the start of the line.
	UTF8 Encoding = "utf-8"
)

// ByteOffsetFromLSP converts an LSP line/character position to a byte
// offset within the named source.
//
// Mid-surrogate positions (UTF-16): if char points to the second code unit
// of a surrogate pair, the result floors to the start of that rune.
//
// Returns (0, false) if the source is not registered or the line does not
// exist. Callers must bail out on ok == false rather than falling back to
// offset 0, which would silently mislocate the request.
func ByteOffsetFromLSP(sources *source.Registry, id location.SourceID, line, char int, enc Encoding) (int, bool) {
	if sources == nil {
		return 0, false
	}

	lineStart, ok := sources.LineStartByte(id, line+1)
	if !ok {
		return 0, false
	}

	content, ok := sources.ContentBySource(id)
	if !ok {
		return 0, false
	}

	switch enc {
	case UTF8:
		return clampToLineEnd(content, lineStart, lineStart+char), true
	default:
		return utf16CharToByteOffset(content, lineStart, char), true
	}
}

func utf16CharToByteOffset(content []byte, lineStart, charOffset int) int {
	if charOffset <= 0 {
		return lineStart
	}

	pos := lineStart
	units := 0

	for pos < len(content) && units < charOffset {
		r, size := utf8.DecodeRune(content[pos:])
		if r == utf8.RuneError && size <= 1 {
			units++
			pos++
			continue
		}
		if r == '\n' {
			break
		}
		if r > 0xFFFF {
			if units+2 > charOffset && units+1 == charOffset {
				return pos
			}
			units += 2
		} else {
			units++
		}
		pos += size
	}

	return pos
}

func clampToLineEnd(content []byte, lineStart, offset int) int {
	if offset < lineStart {
		return lineStart
	}
	lineContent := content[lineStart:]
	if idx := bytes.IndexByte(lineContent, '\n'); idx >= 0 {
		lineEnd := lineStart + idx
		if offset > lineEnd {
			return lineEnd
		}
	} else if offset > len(content) {
		return len(content)
	}
	return offset
}

// PositionFromLSP converts an LSP position to a [location.Position],
// resolving the line/column through sources for accurate conversion.
//
// This is the primary entry point for inbound position conversion; request
// handlers use this rather than naive column arithmetic.
func PositionFromLSP(sources *source.Registry, sourceID location.SourceID, line, char int, enc Encoding) (location.Position, bool) {
	byteOffset, ok := ByteOffsetFromLSP(sources, sourceID, line, char, enc)
	if !ok {
		return location.Position{}, false
	}
	return sources.PositionAt(sourceID, byteOffset), true
}

// ByteToUTF16Offset converts a byte offset on a line to UTF-16 code units,
// the inverse of utf16CharToByteOffset, used for outbound conversion.
func ByteToUTF16Offset(content []byte, lineStart, targetByte int) int {
	if targetByte <= lineStart {
		return 0
	}

	units := 0
	pos := lineStart

	for pos < targetByte && pos < len(content) {
		r, size := utf8.DecodeRune(content[pos:])
		if r == utf8.RuneError && size <= 1 {
			units++
			pos++
			continue
		}
		if r == '\n' {
			break
		}
		if pos+size > targetByte {
			break
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		pos += size
	}

	return units
}

// SpanToLSPRange converts a [location.Span] to an LSP range, expressed as
// [line, character] start/end pairs in the given encoding.
//
// Returns ok == false if the span has no known start position.
func SpanToLSPRange(sources *source.Registry, span location.Span, enc Encoding) (start, end [2]int, ok bool) {
	if span.IsZero() || !span.Start.IsKnown() {
		return [2]int{}, [2]int{}, false
	}
	if sources == nil {
		return [2]int{}, [2]int{}, false
	}

	content, hasContent := sources.ContentBySource(span.Source)

	startLine := max(span.Start.Line-1, 0)
	startChar := charOffsetFor(sources, content, hasContent, span.Source, span.Start, enc)

	endLine := startLine
	endChar := startChar
	if span.End.IsKnown() {
		endLine = max(span.End.Line-1, 0)
		endChar = charOffsetFor(sources, content, hasContent, span.Source, span.End, enc)
	}

	return [2]int{startLine, startChar}, [2]int{endLine, endChar}, true
}

func charOffsetFor(sources *source.Registry, content []byte, hasContent bool, src location.SourceID, pos location.Position, enc Encoding) int {
	if !hasContent || pos.Byte < 0 {
		return pos.Column - 1
	}
	lineStartByte, ok := sources.LineStartByte(src, pos.Line)
	if !ok {
		return pos.Column - 1
	}
	switch enc {
	case UTF8:
		return pos.Byte - lineStartByte
	default:
		return ByteToUTF16Offset(content, lineStartByte, pos.Byte)
	}
}
