package httpx

import "net/url"

// BodyKind classifies how a PreparedRequest's body is framed on the wire,
// which in turn determines the shape of the withheld tail (spec's
// WithheldTail table).
type BodyKind int

const (
	NoBody BodyKind = iota
	FixedBody
	ChunkedBody
)

// ChunkFunc lazily produces the next body chunk for a chunked-transfer
// request. It returns io.EOF (or any non-nil error, which the caller
// surfaces as a priming-time failure) once the sequence is exhausted.
type ChunkFunc func() ([]byte, error)

// PreparedRequest is a fully-formed request ready to be primed: method,
// absolute URL, headers, and a body of one of the three kinds the spec
// recognizes. It plays the role of requests.PreparedRequest in the
// original implementation.
type PreparedRequest struct {
	Method string
	URL    *url.URL
	Header Header

	BodyKind BodyKind
	Body     []byte    // valid when BodyKind == FixedBody
	Chunks   ChunkFunc // valid when BodyKind == ChunkedBody
}

// RequestURI renders the origin-form request-target ("/path?query") that
// belongs on the request line for an HTTP/1.1 request to u's origin.
func RequestURI(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	ru := u.EscapedPath()
	if ru == "" {
		ru = "/"
	}
	if u.ForceQuery || u.RawQuery != "" {
		ru += "?" + u.RawQuery
	}
	return ru
}
