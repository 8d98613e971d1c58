// Package materialize implements the response-collection half of the
// pipeline: reading a raw HTTP/1.1 response off a primed-and-released
// connection and writing it into the originally-returned placeholder.
package materialize

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/andycostintoma/httprace/internal/conn"
	"github.com/andycostintoma/httprace/internal/httpx"
	"github.com/andycostintoma/httprace/internal/pending"
	"github.com/pkg/errors"
)

// Limits bounds how much of a response this engine will read, mirroring
// the parse limits the teacher package already enforces on the request
// side.
type Limits struct {
	MaxLineBytes   int
	MaxHeaderBytes int
	MaxBodyBytes   int64
}

// DefaultLimits mirrors the teacher package's DefaultBufSize-scale
// defaults, sized generously for the research use case (large response
// bodies are expected; this is not a hardened parser facing hostile
// input).
var DefaultLimits = Limits{
	MaxLineBytes:   64 * 1024,
	MaxHeaderBytes: 1 << 20,
	MaxBodyBytes:   64 << 20,
}

// Collect reads one full HTTP/1.1 response from e.Conn, parses it, and
// materializes the result into e.Placeholder. On any failure the
// placeholder is forced into the 999 sentinel instead of returning an
// error to the caller, per spec.md §7 ("finish_all does not raise").
// The connection's state machine is advanced to Collected on success or
// Closed on failure.
func Collect(ctx context.Context, e *pending.Entry, limits Limits, readTimeout time.Duration, jar http.CookieJar) {
	if readTimeout > 0 {
		e.Conn.Raw().SetReadDeadline(time.Now().Add(readTimeout))
	}

	wire, body, cookies, err := readResponse(e.Conn, limits)
	elapsed := time.Since(e.ReleasedAt)
	if err != nil {
		e.Placeholder.MarkFailed(e.Request, conn.Closed.String(), errors.Wrap(err, "materialize: read response"))
		e.Conn.Fail()
		return
	}

	if jar != nil && len(cookies) > 0 && e.Request.URL != nil {
		jar.SetCookies(e.Request.URL, cookies)
	}

	if err := e.Conn.MarkCollected(); err != nil {
		e.Placeholder.MarkFailed(e.Request, conn.Closed.String(), errors.Wrap(err, "materialize: mark collected"))
		e.Conn.Fail()
		return
	}

	e.Placeholder.Materialize(e.Request, wire, body, cookies, elapsed, conn.Collected.String())
	e.Conn.Close()
}

func readResponse(c *conn.Conn, limits Limits) (*httpx.Response, []byte, []*http.Cookie, error) {
	parseLimits := httpx.ParseLimits{
		MaxLineBytes:   limits.MaxLineBytes,
		MaxHeaderBytes: limits.MaxHeaderBytes,
	}

	wire, err := httpx.ParseResponse(c.Reader, parseLimits)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "parse status line/headers")
	}

	bodyReader, _, err := httpx.NewBodyReader(context.Background(), wire.Header, c.Reader, limits.MaxBodyBytes)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "select body reader")
	}
	defer bodyReader.Close()

	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "read body")
	}

	cookies := (&http.Response{Header: http.Header(wire.Header)}).Cookies()

	return wire, body, cookies, nil
}
