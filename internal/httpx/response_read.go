package httpx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andycostintoma/httprace/internal/netx"
)

// ParseResponse reads and parses an HTTP/1.x status line and header section
// from r. It mirrors ParseRequest's shape but for the response side of the
// wire: the status line instead of the request line, and no further change
// to header-field semantics (still canonicalized via Header.Add).
//
// The body is deliberately not consumed here; callers should follow up with
// NewBodyReader using the returned Header.
func ParseResponse(r *netx.CRLFFastReader, limits ParseLimits) (*Response, error) {
	line, _, err := r.ReadLine(limits.MaxLineBytes)
	if err != nil {
		return nil, fmt.Errorf("read status line: %w", err)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("empty status line")
	}

	proto, statusCode, status, err := parseStatusLine(string(line))
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Proto:      proto,
		StatusCode: statusCode,
		Status:     status,
		Header:     make(Header),
	}

	if err := readHeaderLines(r, limits.MaxLineBytes, limits.MaxHeaderBytes, resp.Header); err != nil {
		return nil, err
	}

	return resp, nil
}

// parseStatusLine parses "HTTP/1.1 200 OK".
func parseStatusLine(line string) (proto string, statusCode int, status string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", fmt.Errorf("malformed status line: %q", line)
	}
	proto = parts[0]
	if !strings.HasPrefix(proto, "HTTP/") {
		return "", 0, "", fmt.Errorf("invalid protocol: %q", proto)
	}

	code, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, "", fmt.Errorf("invalid status code: %q", parts[1])
	}
	statusCode = code

	if len(parts) == 3 {
		status = strings.TrimSpace(parts[2])
	}
	return proto, statusCode, status, nil
}

// readHeaderLines reads "Key: Value" lines until a blank line, adding each
// into hdr. It enforces maxHeaderBytes as a cap on the total bytes consumed
// across all header lines, not counting the terminating blank line.
func readHeaderLines(r *netx.CRLFFastReader, maxLineBytes, maxHeaderBytes int, hdr Header) error {
	total := 0
	for {
		line, _, err := r.ReadLine(maxLineBytes)
		if err != nil {
			return fmt.Errorf("read header line: %w", err)
		}
		if len(line) == 0 {
			return nil // blank line: end of header section
		}

		total += len(line)
		if maxHeaderBytes > 0 && total > maxHeaderBytes {
			return ErrHeaderTooLarge
		}

		i := strings.IndexByte(string(line), ':')
		if i <= 0 {
			return fmt.Errorf("malformed header line: %q", line)
		}
		key := CanonicalHeaderKey(string(line[:i]))
		val := strings.TrimSpace(string(line[i+1:]))
		hdr.Add(key, val)
	}
}
