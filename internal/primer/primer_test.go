package primer

import (
	"context"
	"io"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/andycostintoma/httprace/internal/conn"
	"github.com/andycostintoma/httprace/internal/httpx"
	"github.com/stretchr/testify/require"
)

func TestPrimeWithholdsFinalBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			received <- nil
			return
		}
		defer c.Close()
		c.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		buf := make([]byte, 4096)
		n, _ := c.Read(buf)
		received <- buf[:n]
	}()

	u, err := url.Parse("http://" + ln.Addr().String() + "/widgets?x=1")
	require.NoError(t, err)

	req := &httpx.PreparedRequest{
		Method:   "GET",
		URL:      u,
		Header:   httpx.Header{"Host": []string{u.Host}},
		BodyKind: httpx.NoBody,
	}

	primed, err := Prime(context.Background(), req, &conn.Options{Scheme: "http"})
	require.NoError(t, err)
	defer primed.Conn.Close()

	require.Equal(t, conn.Primed, primed.Conn.State())
	require.Equal(t, httpx.NoBodyTail, primed.Tail)

	got := <-received
	require.NotContains(t, string(got), "\r\n\r\n", "primed bytes must not yet include the end-of-headers blank line")
	require.Contains(t, string(got), "GET /widgets?x=1 HTTP/1.1\r\n")
	require.Contains(t, string(got), "Host: "+u.Host+"\r\n")

	n, err := primed.Conn.Raw().Write(primed.Tail)
	require.NoError(t, err)
	require.Equal(t, len(primed.Tail), n)
}

// acceptOnce starts a loopback listener, accepts exactly one connection,
// and returns a channel that receives everything read from it within a
// short deadline -- used to inspect what the primer actually put on the
// wire before and after a withheld tail is released.
func acceptOnce(t *testing.T) (addr string, received <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			ch <- nil
			return
		}
		defer c.Close()
		c.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		buf := make([]byte, 8192)
		n, _ := c.Read(buf)
		ch <- buf[:n]
	}()
	return ln.Addr().String(), ch
}

// TestPrimeFixedBodyWithholdsLastThreeBytes covers spec.md §8's "Fixed
// body > TailSize" case: everything but the last TailSize bytes of the
// body is sent during priming, and the withheld tail is exactly those
// bytes.
func TestPrimeFixedBodyWithholdsLastThreeBytes(t *testing.T) {
	addr, received := acceptOnce(t)

	u, err := url.Parse("http://" + addr + "/widgets")
	require.NoError(t, err)

	body := []byte("hello world")
	req := &httpx.PreparedRequest{
		Method:   "POST",
		URL:      u,
		Header:   httpx.Header{"Host": []string{u.Host}},
		BodyKind: httpx.FixedBody,
		Body:     body,
	}

	primed, err := Prime(context.Background(), req, &conn.Options{Scheme: "http"})
	require.NoError(t, err)
	defer primed.Conn.Close()

	require.Equal(t, httpx.TailSize, len(primed.Tail))
	require.Equal(t, body[len(body)-httpx.TailSize:], primed.Tail)

	got := <-received
	require.Contains(t, string(got), "Content-Length: 11\r\n")
	require.Contains(t, string(got), "\r\n\r\n"+string(body[:len(body)-httpx.TailSize]))
	require.NotContains(t, string(got), string(body), "the full body must not be on the wire before release")
}

// TestPrimeFixedBodyExactlyTailSizeWithholdsEverything covers spec.md §8's
// boundary case: a fixed-length body of exactly TailSize bytes has its
// entire body withheld, so the primer sends zero body bytes.
func TestPrimeFixedBodyExactlyTailSizeWithholdsEverything(t *testing.T) {
	addr, received := acceptOnce(t)

	u, err := url.Parse("http://" + addr + "/widgets")
	require.NoError(t, err)

	body := []byte("abc") // exactly httpx.TailSize
	req := &httpx.PreparedRequest{
		Method:   "POST",
		URL:      u,
		Header:   httpx.Header{"Host": []string{u.Host}},
		BodyKind: httpx.FixedBody,
		Body:     body,
	}

	primed, err := Prime(context.Background(), req, &conn.Options{Scheme: "http"})
	require.NoError(t, err)
	defer primed.Conn.Close()

	require.Equal(t, body, primed.Tail, "a body no longer than TailSize must be withheld in its entirety")

	got := <-received
	require.True(t, strings.HasSuffix(string(got), "\r\n\r\n"), "no body bytes should reach the wire during priming")
}

// TestPrimeFixedBodyShorterThanTailSizeWithholdsEverything covers spec.md
// §8's "body shorter than TailSize" boundary: the tail cannot exceed the
// body's own length, so the whole (shorter) body is withheld.
func TestPrimeFixedBodyShorterThanTailSizeWithholdsEverything(t *testing.T) {
	addr, received := acceptOnce(t)

	u, err := url.Parse("http://" + addr + "/widgets")
	require.NoError(t, err)

	body := []byte("ab") // shorter than httpx.TailSize
	req := &httpx.PreparedRequest{
		Method:   "POST",
		URL:      u,
		Header:   httpx.Header{"Host": []string{u.Host}},
		BodyKind: httpx.FixedBody,
		Body:     body,
	}

	primed, err := Prime(context.Background(), req, &conn.Options{Scheme: "http"})
	require.NoError(t, err)
	defer primed.Conn.Close()

	require.Equal(t, body, primed.Tail)

	got := <-received
	require.True(t, strings.HasSuffix(string(got), "\r\n\r\n"), "no body bytes should reach the wire during priming")
}

// TestPrimeChunkedBodyWithholdsZeroChunk covers the chunked-body branch:
// every user chunk is sent formatted as "<hex-len>\r\n<data>\r\n" during
// priming, and the withheld tail is the zero-length terminating chunk.
func TestPrimeChunkedBodyWithholdsZeroChunk(t *testing.T) {
	addr, received := acceptOnce(t)

	u, err := url.Parse("http://" + addr + "/widgets")
	require.NoError(t, err)

	chunks := [][]byte{[]byte("Wiki"), []byte("pedia")}
	i := 0
	next := func() ([]byte, error) {
		if i >= len(chunks) {
			return nil, io.EOF
		}
		c := chunks[i]
		i++
		return c, nil
	}

	req := &httpx.PreparedRequest{
		Method:   "POST",
		URL:      u,
		Header:   httpx.Header{"Host": []string{u.Host}},
		BodyKind: httpx.ChunkedBody,
		Chunks:   next,
	}

	primed, err := Prime(context.Background(), req, &conn.Options{Scheme: "http"})
	require.NoError(t, err)
	defer primed.Conn.Close()

	require.Equal(t, httpx.ChunkedTail, primed.Tail)

	got := <-received
	require.Contains(t, string(got), "Transfer-Encoding: chunked\r\n")
	require.Contains(t, string(got), "4\r\nWiki\r\n5\r\npedia\r\n")
	// Only the bytes after the header section are checked: a Host port
	// ending in 0 followed by the blank line would also read "0\r\n\r\n".
	bodyOnWire := string(got)[strings.Index(string(got), "\r\n\r\n")+4:]
	require.NotContains(t, bodyOnWire, "0\r\n\r\n", "the terminating chunk must not be on the wire before release")
}

// TestPrimeChunkedBodyNoChunksSendsHeadersOnly covers spec.md §8's "chunked
// body with zero user chunks" boundary: the primer sends only headers, and
// the withheld tail is still the zero-length terminating chunk.
func TestPrimeChunkedBodyNoChunksSendsHeadersOnly(t *testing.T) {
	addr, received := acceptOnce(t)

	u, err := url.Parse("http://" + addr + "/widgets")
	require.NoError(t, err)

	req := &httpx.PreparedRequest{
		Method:   "POST",
		URL:      u,
		Header:   httpx.Header{"Host": []string{u.Host}},
		BodyKind: httpx.ChunkedBody,
		Chunks:   nil,
	}

	primed, err := Prime(context.Background(), req, &conn.Options{Scheme: "http"})
	require.NoError(t, err)
	defer primed.Conn.Close()

	require.Equal(t, httpx.ChunkedTail, primed.Tail)

	got := <-received
	require.Contains(t, string(got), "Transfer-Encoding: chunked\r\n")
	require.True(t, strings.HasSuffix(string(got), "\r\n\r\n"), "only headers should be on the wire, no chunk data")
}
