package httpx

import (
	"bufio"
	"fmt"
	"io"
)

// OutgoingRequest is the minimal shape needed to serialize a request line
// and header section onto the wire. It is distinct from Request (which
// models a request already parsed off the wire) because the primer writes
// a request that was built by the caller, not one read from a socket.
type OutgoingRequest struct {
	Method        string
	RequestURI    string // absolute-form or origin-form, already encoded
	Proto         string // defaults to "HTTP/1.1" if empty
	Header        Header
	ContentLength int64 // -1 if unknown/absent
}

// WriteRequestLine writes "METHOD RequestURI Proto\r\n".
func WriteRequestLine(w io.Writer, req *OutgoingRequest) error {
	proto := req.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	_, err := fmt.Fprintf(w, "%s %s %s\r\n", req.Method, req.RequestURI, proto)
	return err
}

// WriteHeaderFields writes "Key: Value\r\n" for every header field, in the
// order Header.Write would, but WITHOUT the terminating blank line. This is
// the building block the primer uses to stop short of end-of-headers: the
// caller decides separately whether to flush the blank line now (ending the
// header section immediately, for bodyless requests the terminator is
// withheld instead) or after a body has been queued.
func WriteHeaderFields(w io.Writer, h Header) error {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
		defer bw.Flush()
	}
	for k, vals := range h {
		ck := CanonicalHeaderKey(k)
		for _, v := range vals {
			if _, err := bw.WriteString(ck); err != nil {
				return err
			}
			if _, err := bw.WriteString(": "); err != nil {
				return err
			}
			if _, err := bw.WriteString(v); err != nil {
				return err
			}
			if _, err := bw.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
