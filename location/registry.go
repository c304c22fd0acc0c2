package location

// PositionRegistry provides byte-offset-to-position conversion.
//
// This interface is the bridge between the document manager and the source
// content registry that performs the actual conversion. It enables document
// checking to obtain accurate Position values from byte offsets captured
// while parsing the prover's top-level units.
//
// The primary implementation is internal/source.Registry.
//
// Design rationale:
//
//  1. Foundation tier placement: PositionRegistry is defined in location
//     (foundation tier) because the interface operates on location.Position and
//     location.SourceID -- natural cohesion with the location package.
//
//  2. Decouples document checking from source storage: callers can use any
//     PositionRegistry implementation, not just internal/source.Registry.
//     This enables testing with fakes.
type PositionRegistry interface {
	// PositionAt converts a byte offset to a Position for the given source.
	//
	// Returns a zero Position (check via IsZero()) if:
	//   - The source is not registered
	//   - The byte offset is out of range
	//   - The byte offset is negative
	//
	// The returned Position has:
	//   - Line: 1-based line number
	//   - Column: 1-based rune offset from line start
	//   - Byte: The input byteOffset (echoed back for convenience)
	PositionAt(source SourceID, byteOffset int) Position
}

// RuneOffsetConverter provides rune-to-byte offset conversion.
//
// Parser token positions are rune-based (character indices), but the
// document manager uses byte offsets for consistency with Go strings and
// UTF-8 handling. This interface enables the conversion between these
// coordinate systems.
//
// The primary implementation is internal/source.Registry.
type RuneOffsetConverter interface {
	// RuneToByteOffset converts a rune offset to a byte offset for the given source.
	//
	// Returns (byteOffset, true) on success.
	// Returns (0, false) if:
	//   - The source is not registered
	//   - The rune offset is out of range
	//   - The rune offset is negative
	RuneToByteOffset(source SourceID, runeOffset int) (byteOffset int, ok bool)
}
