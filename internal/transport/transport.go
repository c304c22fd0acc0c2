// Package transport is the Wire Framer of spec.md §4.A: Content-Length
// framed JSON-RPC over an io.ReadWriteCloser, built on
// github.com/sourcegraph/jsonrpc2 rather than reimplementing header
// parsing by hand.
//
// jsonrpc2.NewBufferedStream with jsonrpc2.VSCodeObjectCodec already
// implements the LSP base protocol's CRLFCRLF-terminated header block
// plus exactly-N-bytes JSON body; jsonrpc2.Conn's internal write mutex
// satisfies spec.md §5's requirement that the framer's write be
// serialized, so this package only needs to wire the pieces together and
// expose the shape the Message Loop expects.
package transport

import (
	"context"
	"io"

	"github.com/sourcegraph/jsonrpc2"
)

// Stream wraps the stdio pipe (or any io.ReadWriteCloser) the server
// communicates over.
type Stream struct {
	rwc io.ReadWriteCloser
}

// NewStream wraps rwc (typically os.Stdin paired with os.Stdout via a
// combined ReadWriteCloser) for use with [Connect].
func NewStream(rwc io.ReadWriteCloser) Stream {
	return Stream{rwc: rwc}
}

// Connect establishes a jsonrpc2.Conn over the stream with handler as the
// request/notification handler, applying the VSCode Content-Length
// framing codec LSP uses.
//
// The returned Conn is both the write side of the Wire Framer (Notify,
// Reply, ReplyWithError) and the disconnect signal (DisconnectNotify) the
// Message Loop watches for a clean EOF, per spec.md §4.B's Exited
// transition.
func Connect(ctx context.Context, s Stream, handler jsonrpc2.Handler, opts ...jsonrpc2.ConnOpt) *jsonrpc2.Conn {
	stream := jsonrpc2.NewBufferedStream(s.rwc, jsonrpc2.VSCodeObjectCodec{})
	return jsonrpc2.NewConn(ctx, stream, handler, opts...)
}

// StdIO combines os.Stdin and os.Stdout (or any separate reader/writer
// pair) into a single io.ReadWriteCloser, since stdio has no single native
// handle implementing both directions.
type StdIO struct {
	io.Reader
	io.Writer
}

// Close is a no-op: the process owns stdin/stdout's lifecycle, not this
// wrapper.
func (StdIO) Close() error { return nil }
