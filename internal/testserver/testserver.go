// Package testserver implements a minimal raw-socket HTTP/1.1 server used
// by this module's own tests to exercise priming and release/collection
// against real TCP connections instead of mocks -- the synchronization
// properties this engine promises only mean something against an actual
// listener accepting connections at its own pace.
package testserver

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/andycostintoma/httprace/internal/httpx"
	"github.com/andycostintoma/httprace/internal/netx"
)

// Handler produces a response for one parsed request and its body.
// ReceivedAt is the instant this server finished reading the request
// (including the withheld tail, once released), for asserting that
// several racing requests landed close together.
type Handler func(req *httpx.Request, body []byte, receivedAt time.Time) *httpx.Response

// Server is a tiny HTTP/1.1 server over a real TCP listener. It serves one
// request per connection and then closes it, matching the one-socket-per-
// request model this module's client side uses.
type Server struct {
	ln      net.Listener
	handler Handler

	mu   sync.Mutex
	hits []time.Time
}

// New starts a Server on an OS-assigned loopback port.
func New(h Handler) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln, handler: h}
	go s.serve()
	return s, nil
}

// Addr returns the "host:port" a client should dial.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

// Hits returns the receipt timestamp recorded for every request served so
// far, in arrival order.
func (s *Server) Hits() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.hits))
	copy(out, s.hits)
	return out
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(c)
	}
}

func (s *Server) handle(c net.Conn) {
	defer c.Close()

	r := netx.NewCRLFFastReader(c)
	req, err := httpx.ParseRequest(r, httpx.ParseLimits{MaxLineBytes: 64 * 1024, MaxHeaderBytes: 1 << 20})
	if err != nil {
		return
	}

	if err := readHeaderSectionInto(r, req.Header); err != nil {
		return
	}

	// Per RFC 7230 §3.3.3 rule 7, a request with neither Transfer-Encoding
	// nor Content-Length carries no body at all -- unlike a response, it
	// is never close-delimited. NewBodyReader's third branch (read until
	// EOF) is correct for that response case but would otherwise block
	// here forever: the client holds the connection open waiting for our
	// response, so it never reaches EOF.
	var body []byte
	if req.Header.Get("Transfer-Encoding") != "" || req.Header.Get("Content-Length") != "" {
		bodyReader, _, err := httpx.NewBodyReader(context.Background(), req.Header, r, 16<<20)
		if err != nil {
			return
		}
		body, err = io.ReadAll(bodyReader)
		if err != nil {
			return
		}
	}
	receivedAt := time.Now()

	s.mu.Lock()
	s.hits = append(s.hits, receivedAt)
	s.mu.Unlock()

	resp := s.handler(req, body, receivedAt)
	if resp == nil {
		resp = &httpx.Response{StatusCode: 204, Status: "No Content", Header: httpx.Header{}}
	}
	httpx.WriteResponse(context.Background(), c, resp)
}

// readHeaderSectionInto reads "Key: Value" lines until a blank line,
// mirroring internal/httpx.readHeaderLines for the request side (that
// helper is response-only, and request.go's ParseRequest does not yet
// read headers itself).
func readHeaderSectionInto(r *netx.CRLFFastReader, hdr httpx.Header) error {
	for {
		line, _, err := r.ReadLine(64 * 1024)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
		i := strings.IndexByte(string(line), ':')
		if i <= 0 {
			continue
		}
		key := httpx.CanonicalHeaderKey(string(line[:i]))
		val := strings.TrimSpace(string(line[i+1:]))
		hdr.Add(key, val)
	}
}
