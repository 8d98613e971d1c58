package httpx

// TailSize is the number of trailing body bytes withheld by the primer for
// a fixed-length (Content-Length) request body. It must be small enough
// that release is fast and large enough that an eager TCP stack cannot
// accidentally complete framing while priming.
const TailSize = 3

// SplitFixedBody divides a fixed-length request body into the portion sent
// during priming and the withheld tail. If body is shorter than TailSize,
// the whole body is withheld and nothing is sent before release.
func SplitFixedBody(body []byte) (toSend, tail []byte) {
	n := len(body)
	if n <= TailSize {
		return nil, body
	}
	return body[:n-TailSize], body[n-TailSize:]
}

// NoBodyTail is the withheld tail for a request with no body: the blank
// line that terminates the header section.
var NoBodyTail = []byte("\r\n")

// ChunkedTail is the withheld tail for a chunked request body: the
// zero-length terminating chunk.
var ChunkedTail = []byte("0\r\n\r\n")

// FormatChunk renders one chunked-transfer-encoding chunk: the hex length,
// CRLF, the chunk data, and a trailing CRLF.
func FormatChunk(data []byte) []byte {
	size := formatHexLen(len(data))
	out := make([]byte, 0, len(size)+2+len(data)+2)
	out = append(out, size...)
	out = append(out, '\r', '\n')
	out = append(out, data...)
	out = append(out, '\r', '\n')
	return out
}

func formatHexLen(n int) []byte {
	if n == 0 {
		return []byte("0")
	}
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = hexDigits[n&0xf]
		n >>= 4
	}
	return buf[i:]
}
