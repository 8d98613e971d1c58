// Package response defines the placeholder response object returned at
// priming time and mutated in place at collection time. It is its own
// package (rather than living directly in the root httprace package) so
// that internal/dispatcher and internal/materialize, which must write into
// it, do not create an import cycle with the public API package that
// embeds it.
package response

import (
	"fmt"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/andycostintoma/httprace/internal/httpx"
)

// Sentinel status codes, reserved by this engine (spec.md §3/§6).
const (
	StatusNotFinished     = 998
	StatusNotFinishedText = "Request Not Finished"

	StatusInternalException     = 999
	StatusInternalExceptionText = "Internal Exception"
)

// Response is the user-visible placeholder returned by every synchronized
// verb call. It starts in the 998 sentinel state and is mutated in place,
// never replaced, so that references a caller stashed in a collection
// remain valid after FinishAll runs (spec.md §4.5's rationale).
type Response struct {
	mu sync.Mutex

	StatusCode int
	Reason     string
	Encoding   string
	Header     httpx.Header
	URL        string
	Content    []byte
	Cookies    []*http.Cookie

	// ConnState names the terminal per-connection lifecycle state
	// (conn.Collected or conn.Closed) this placeholder ended up in.
	ConnState string

	// Elapsed is the wall-clock time between release and collection for
	// this specific placeholder, useful for asserting synchrony in tests.
	Elapsed time.Duration

	Request *httpx.PreparedRequest
}

// NewPending constructs a Response in the initial 998 sentinel state.
func NewPending(req *httpx.PreparedRequest) *Response {
	r := &Response{}
	r.resetDummy(req)
	return r
}

func (r *Response) resetDummy(req *httpx.PreparedRequest) {
	r.StatusCode = StatusNotFinished
	r.Reason = StatusNotFinishedText
	r.Encoding = "UTF-8"
	r.Header = nil
	r.URL = ""
	r.Content = []byte(
		"This is a placeholder response. Do not use responses from " +
			"synchronized requests before calling Session.FinishAll.",
	)
	r.Cookies = nil
	r.ConnState = ""
	r.Elapsed = 0
	r.Request = req
}

// MarkFailed forces the placeholder into the 999 sentinel state with a
// human-readable diagnostic, per spec.md §7's "Placeholder becomes 999"
// treatment for release-time and collection-time errors. Any previously
// cached fields are cleared first (spec.md §4.5's mutation rationale).
func (r *Response) MarkFailed(req *httpx.PreparedRequest, connState string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetDummy(req)
	r.StatusCode = StatusInternalException
	r.Reason = StatusInternalExceptionText
	r.ConnState = connState
	r.Content = []byte(fmt.Sprintf(
		"An error occurred while httprace was finishing this request.\n\n%v", cause,
	))
}

// Materialize rewrites every field from a parsed wire response, the
// request it belongs to, and any cookies extracted from Set-Cookie
// headers. It resets cached fields first, mirroring the original
// implementation's response.__init__() before re-populating.
func (r *Response) Materialize(req *httpx.PreparedRequest, wire *httpx.Response, body []byte, cookies []*http.Cookie, elapsed time.Duration, connState string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetDummy(req)
	r.StatusCode = wire.StatusCode
	r.Reason = wire.Status
	r.Header = wire.Header
	r.Encoding = encodingFromContentType(wire.Header.Get("Content-Type"))
	r.Content = body
	r.Cookies = cookies
	r.ConnState = connState
	r.Elapsed = elapsed
	if req != nil && req.URL != nil {
		r.URL = req.URL.String()
	}
	r.Request = req
}

// Snapshot returns a value copy of the externally-visible fields, safe to
// read without racing a concurrent collection worker (collection workers
// run concurrently with each other but never with a second FinishAll, per
// the single-flight invariant in spec.md §3).
func (r *Response) Snapshot() Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Response{
		StatusCode: r.StatusCode,
		Reason:     r.Reason,
		Encoding:   r.Encoding,
		Header:     r.Header,
		URL:        r.URL,
		Content:    r.Content,
		Cookies:    r.Cookies,
		ConnState:  r.ConnState,
		Elapsed:    r.Elapsed,
		Request:    r.Request,
	}
}

func (r *Response) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("httprace.Response{StatusCode: %d, Reason: %q}", r.StatusCode, r.Reason)
}

// encodingFromContentType extracts the charset parameter from a
// Content-Type header value, mirroring get_encoding_from_headers in the
// original Python implementation. mime.ParseMediaType is the standard
// library's canonical RFC 2045 parameter parser; there is no third-party
// library in the retrieval pack that does this job better, so it is used
// directly (see DESIGN.md).
func encodingFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
