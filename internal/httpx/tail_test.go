package httpx

import (
	"bytes"
	"testing"
)

func TestSplitFixedBodyAboveTailSize(t *testing.T) {
	body := []byte("hello world") // 11 bytes, > TailSize
	toSend, tail := SplitFixedBody(body)
	if len(tail) != TailSize {
		t.Fatalf("expected tail of %d bytes, got %d", TailSize, len(tail))
	}
	if !bytes.Equal(append(append([]byte{}, toSend...), tail...), body) {
		t.Fatalf("toSend+tail must reconstruct the original body: got %q + %q, want %q", toSend, tail, body)
	}
	if !bytes.Equal(tail, body[len(body)-TailSize:]) {
		t.Fatalf("tail must be the last %d bytes of body, got %q", TailSize, tail)
	}
}

func TestSplitFixedBodyExactlyTailSize(t *testing.T) {
	body := []byte("abc") // exactly TailSize bytes
	toSend, tail := SplitFixedBody(body)
	if len(toSend) != 0 {
		t.Fatalf("expected nothing sent before release when body is exactly %d bytes, got %q", TailSize, toSend)
	}
	if !bytes.Equal(tail, body) {
		t.Fatalf("expected whole body withheld, got tail %q want %q", tail, body)
	}
}

func TestSplitFixedBodyShorterThanTailSize(t *testing.T) {
	body := []byte("ab") // < TailSize
	toSend, tail := SplitFixedBody(body)
	if len(toSend) != 0 {
		t.Fatalf("expected nothing sent before release for a short body, got %q", toSend)
	}
	if !bytes.Equal(tail, body) {
		t.Fatalf("expected the entire short body withheld, got tail %q want %q", tail, body)
	}
}

func TestSplitFixedBodyEmpty(t *testing.T) {
	toSend, tail := SplitFixedBody(nil)
	if len(toSend) != 0 || len(tail) != 0 {
		t.Fatalf("expected nothing sent and an empty tail for an empty body, got toSend=%q tail=%q", toSend, tail)
	}
}

func TestFormatChunk(t *testing.T) {
	got := FormatChunk([]byte("Wikipedia"))
	want := []byte("9\r\nWikipedia\r\n")
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatChunkLargerSizes(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 256)
	got := FormatChunk(data)
	want := append([]byte("100\r\n"), append(append([]byte{}, data...), '\r', '\n')...)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestChunkedTailIsZeroLengthTerminator(t *testing.T) {
	if !bytes.Equal(ChunkedTail, []byte("0\r\n\r\n")) {
		t.Fatalf("ChunkedTail changed, got %q", ChunkedTail)
	}
}

func TestNoBodyTailIsBlankLine(t *testing.T) {
	if !bytes.Equal(NoBodyTail, []byte("\r\n")) {
		t.Fatalf("NoBodyTail changed, got %q", NoBodyTail)
	}
}
