// Package pending defines the per-request bookkeeping tuple that flows
// from priming into the release dispatcher and the response materializer.
package pending

import (
	"time"

	"github.com/andycostintoma/httprace/internal/conn"
	"github.com/andycostintoma/httprace/internal/httpx"
	"github.com/andycostintoma/httprace/internal/response"
	"github.com/google/uuid"
)

// Entry is the (request, connection, withheld tail, placeholder) tuple
// from spec.md §3. It is created by the primer, consumed by the
// dispatcher, and discarded after materialization.
type Entry struct {
	ID          uuid.UUID
	Request     *httpx.PreparedRequest
	Conn        *conn.Conn
	Tail        []byte
	Placeholder *response.Response

	// ReleasedAt is set by the dispatcher's release phase on a successful
	// tail write; the materializer uses it to compute Placeholder.Elapsed.
	ReleasedAt time.Time
}

// New builds a fresh Entry, tagging it with a correlation ID for logging.
func New(req *httpx.PreparedRequest, c *conn.Conn, tail []byte, placeholder *response.Response) *Entry {
	return &Entry{
		ID:          uuid.New(),
		Request:     req,
		Conn:        c,
		Tail:        tail,
		Placeholder: placeholder,
	}
}
