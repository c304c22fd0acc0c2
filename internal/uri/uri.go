// Package uri provides the LSP document identity type: a parsed file:// URI
// backed by a [location.CanonicalPath].
//
// The LSP wire protocol identifies documents by URI string (e.g.,
// "file:///home/alice/proof.v"), but every other layer of the coordinator --
// the workspace registry, the document manager, the request table -- keys
// off canonical filesystem paths. URI is the seam between the two: it parses
// and validates the wire string once, at the transport boundary, and hands
// the rest of the coordinator a comparable, map-key-safe value.
package uri

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"

	"github.com/rocqls/rocqls/location"
)

// URI identifies a document by its canonicalized file path.
//
// URI is a value type with an unexported field. Always pass by value. The
// zero value is invalid; use [URI.IsZero] to check. URI is comparable and
// safe for use as a map key.
type URI struct {
	cp location.CanonicalPath
}

// Parse converts a wire-format URI string (e.g. "file:///a/b/c.v") into a
// URI.
//
// Only the file scheme is supported; the coordinator has no use for
// untitled: or other virtual document schemes the spec does not name.
// Returns an error if raw is not a well-formed URI, is not a file URI, or
// the resulting path cannot be canonicalized.
func Parse(raw string) (URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, fmt.Errorf("parse URI %q: %w", raw, err)
	}
	if u.Scheme != "file" {
		return URI{}, fmt.Errorf("not a file URI: %s", raw)
	}

	path := u.Path

	// Windows: file:///C:/path -> C:\path
	if runtime.GOOS == "windows" {
		if len(path) >= 3 && path[0] == '/' && isWindowsDriveLetter(path[1]) && path[2] == ':' {
			path = path[1:]
		}
		path = filepath.FromSlash(path)
	}

	cp, err := location.NewCanonicalPath(path)
	if err != nil {
		return URI{}, fmt.Errorf("parse URI %q: %w", raw, err)
	}
	return URI{cp: cp}, nil
}

// FromPath builds a URI directly from an already-canonical path, skipping
// the file:// round-trip. Used when the coordinator itself derives a path
// (e.g. resolving a workspace root) rather than receiving one from the
// client.
func FromPath(cp location.CanonicalPath) URI {
	return URI{cp: cp}
}

// String returns the file:// wire form of the URI.
//
// The returned string properly percent-escapes the path via [net/url.URL],
// matching what LSP clients send and expect to receive back.
func (u URI) String() string {
	path := u.cp.String()

	if runtime.GOOS == "windows" && len(path) >= 2 && isWindowsDriveLetter(path[0]) && path[1] == ':' {
		path = "/" + path
	}

	w := url.URL{Scheme: "file", Path: path}
	return w.String()
}

// Path returns the underlying canonical filesystem path.
func (u URI) Path() location.CanonicalPath {
	return u.cp
}

// IsZero reports whether this is a zero-value URI.
func (u URI) IsZero() bool {
	return u.cp.IsZero()
}

func isWindowsDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
