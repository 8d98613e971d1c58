// Package primer implements the per-request priming procedure: dialing a
// fresh connection and writing a request onto it up to, but not including,
// the bytes that complete HTTP/1.1 framing.
package primer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/andycostintoma/httprace/internal/conn"
	"github.com/andycostintoma/httprace/internal/httpx"
	pkgerrors "github.com/pkg/errors"
)

// Primed is the result of a successful Prime call: an owned connection
// left in the conn.Primed state, plus the tail bytes that will complete
// framing when released.
type Primed struct {
	Conn *conn.Conn
	Tail []byte
}

// Prime dials req's origin, writes the request line, headers, and (for
// fixed/chunked bodies) all but the withheld tail, and leaves the
// connection in conn.Primed. Any failure closes the connection it opened
// and returns a non-nil error; no *Primed is returned in that case.
func Prime(ctx context.Context, req *httpx.PreparedRequest, opts *conn.Options) (*Primed, error) {
	c, err := conn.Dial(ctx, req.URL, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "primer: dial")
	}

	tail, err := writeRequest(c, req)
	if err != nil {
		c.Fail()
		return nil, pkgerrors.Wrap(err, "primer: write request")
	}

	if err := c.MarkPrimed(tail); err != nil {
		c.Fail()
		return nil, pkgerrors.Wrap(err, "primer: mark primed")
	}

	return &Primed{Conn: c, Tail: tail}, nil
}

// writeRequest implements the body-kind branch from spec.md §4.2 step 4.
// It deliberately writes the header section without its terminating blank
// line for the no-body case; the "MASSIVE HACK" of reaching into another
// HTTP client's internal buffer and state flag becomes, here, simply not
// calling the function that would emit the blank line, followed later by
// conn.Conn.MarkPrimed recording the withheld tail as a documented state
// transition instead of a forced private field.
//
// All writes go through a buffered writer and are flushed once at the end,
// so the withheld-tail discipline produces one burst of packets on the
// wire rather than one per header line.
func writeRequest(c *conn.Conn, req *httpx.PreparedRequest) ([]byte, error) {
	outReq := &httpx.OutgoingRequest{
		Method:     req.Method,
		RequestURI: httpx.RequestURI(req.URL),
		Header:     req.Header,
	}

	bw := bufio.NewWriter(c.Raw())

	if err := httpx.WriteRequestLine(bw, outReq); err != nil {
		return nil, err
	}

	var tail []byte

	switch req.BodyKind {
	case httpx.NoBody:
		if err := httpx.WriteHeaderFields(bw, req.Header); err != nil {
			return nil, err
		}
		tail = httpx.NoBodyTail

	case httpx.FixedBody:
		if req.Header.Get("Content-Length") == "" {
			req.Header.Set("Content-Length", strconv.Itoa(len(req.Body)))
		}
		if err := req.Header.Write(bw); err != nil {
			return nil, err
		}
		toSend, t := httpx.SplitFixedBody(req.Body)
		if len(toSend) > 0 {
			if _, err := bw.Write(toSend); err != nil {
				return nil, err
			}
		}
		tail = t

	case httpx.ChunkedBody:
		if req.Header.Get("Transfer-Encoding") == "" {
			req.Header.Set("Transfer-Encoding", "chunked")
		}
		if err := req.Header.Write(bw); err != nil {
			return nil, err
		}
		if req.Chunks != nil {
			for {
				data, err := req.Chunks()
				if err != nil {
					if errors.Is(err, io.EOF) {
						break
					}
					return nil, err
				}
				if _, err := bw.Write(httpx.FormatChunk(data)); err != nil {
					return nil, err
				}
			}
		}
		tail = httpx.ChunkedTail

	default:
		return nil, fmt.Errorf("primer: unknown body kind %d", req.BodyKind)
	}

	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return tail, nil
}
