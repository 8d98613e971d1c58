package httprace

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/andycostintoma/httprace/internal/httpx"
)

// Header is a case-insensitive HTTP header mapping, shared with the
// internal wire-level packages so a caller's headers flow through to the
// primer without copying.
type Header = httpx.Header

// requestSpec accumulates everything a RequestOption can set before
// buildPreparedRequest turns it into an httpx.PreparedRequest.
type requestSpec struct {
	query    url.Values
	header   Header
	form     url.Values
	jsonBody interface{}
	rawBody  []byte
	chunks   httpx.ChunkFunc
	hasBody  bool
	basic    *basicAuth
	timeout  *Timeout
}

type basicAuth struct {
	username, password string
}

func newRequestSpec() *requestSpec {
	return &requestSpec{header: make(Header)}
}

// RequestOption customizes one Get/Post/... call. Options compose. If more
// than one body-setting option is given, the body is chosen by kind, not by
// order: a chunked body wins over a form body, a form body over a JSON body,
// and a JSON body over a raw body.
type RequestOption func(*requestSpec)

// WithQuery adds a single query parameter.
func WithQuery(key, value string) RequestOption {
	return func(s *requestSpec) {
		if s.query == nil {
			s.query = url.Values{}
		}
		s.query.Add(key, value)
	}
}

// WithQueryValues merges a full url.Values into the request's query string.
func WithQueryValues(values url.Values) RequestOption {
	return func(s *requestSpec) {
		if s.query == nil {
			s.query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				s.query.Add(k, v)
			}
		}
	}
}

// WithHeader sets a request header, overriding the session default if any.
func WithHeader(key, value string) RequestOption {
	return func(s *requestSpec) {
		s.header.Set(key, value)
	}
}

// WithCookie adds a single Cookie header value; for cookies that should
// persist across requests, populate the Session's cookie jar instead.
func WithCookie(name, value string) RequestOption {
	return func(s *requestSpec) {
		existing := s.header.Get("Cookie")
		pair := name + "=" + value
		if existing == "" {
			s.header.Set("Cookie", pair)
		} else {
			s.header.Set("Cookie", existing+"; "+pair)
		}
	}
}

// WithBasicAuth sets HTTP Basic authentication credentials, mirroring
// requests.Session.auth in the original implementation.
func WithBasicAuth(username, password string) RequestOption {
	return func(s *requestSpec) {
		s.basic = &basicAuth{username: username, password: password}
	}
}

// WithFormBody sets an application/x-www-form-urlencoded body.
func WithFormBody(form url.Values) RequestOption {
	return func(s *requestSpec) {
		s.form = form
		s.hasBody = true
	}
}

// WithJSONBody marshals v as the request body and sets Content-Type:
// application/json.
func WithJSONBody(v interface{}) RequestOption {
	return func(s *requestSpec) {
		s.jsonBody = v
		s.hasBody = true
	}
}

// WithRawBody sets an arbitrary fixed-length body.
func WithRawBody(body []byte) RequestOption {
	return func(s *requestSpec) {
		s.rawBody = body
		s.hasBody = true
	}
}

// WithChunkedBody sets a lazily-produced, chunked-transfer-encoded body.
// next should return io.EOF once exhausted.
func WithChunkedBody(next httpx.ChunkFunc) RequestOption {
	return func(s *requestSpec) {
		s.chunks = next
		s.hasBody = true
	}
}

// WithTimeout overrides the session's default connect timeout for this
// call's priming. Its Read component is not applied to this request:
// FinishAll collects every response with the session's read timeout.
func WithTimeout(t Timeout) RequestOption {
	return func(s *requestSpec) {
		tt := t
		s.timeout = &tt
	}
}

// buildPreparedRequest applies session defaults (headers, auth, cookie
// jar) and the accumulated RequestOptions to produce a PreparedRequest
// ready for priming.
func (s *Session) buildPreparedRequest(method, rawURL string, opts []RequestOption) (*httpx.PreparedRequest, *Timeout, error) {
	if rawURL == "" {
		return nil, nil, ErrEmptyURL
	}

	spec := newRequestSpec()
	for _, opt := range opts {
		opt(spec)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, nil, ErrUnsupportedScheme
	}
	if len(spec.query) > 0 {
		q := u.Query()
		for k, vs := range spec.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	header := s.defaultHeader.Clone()
	if header == nil {
		header = make(Header)
	}
	for k, vs := range spec.header {
		header[k] = vs
	}
	if header.Get("Host") == "" {
		header.Set("Host", u.Host)
	}

	if s.jar != nil {
		if cookies := s.jar.Cookies(u); len(cookies) > 0 {
			pairs := make([]string, len(cookies))
			for i, c := range cookies {
				pairs[i] = c.Name + "=" + c.Value
			}
			existing := header.Get("Cookie")
			if existing != "" {
				pairs = append([]string{existing}, pairs...)
			}
			header.Set("Cookie", strings.Join(pairs, "; "))
		}
	}

	auth := spec.basic
	if auth == nil {
		auth = s.defaultAuth
	}
	if auth != nil {
		header.Set("Authorization", basicAuthValue(auth.username, auth.password))
	}

	req := &httpx.PreparedRequest{
		Method: method,
		URL:    u,
		Header: header,
	}

	switch {
	case spec.chunks != nil:
		req.BodyKind = httpx.ChunkedBody
		req.Chunks = spec.chunks
	case spec.form != nil:
		req.BodyKind = httpx.FixedBody
		req.Body = []byte(spec.form.Encode())
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case spec.jsonBody != nil:
		data, err := json.Marshal(spec.jsonBody)
		if err != nil {
			return nil, nil, err
		}
		req.BodyKind = httpx.FixedBody
		req.Body = data
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	case spec.hasBody:
		req.BodyKind = httpx.FixedBody
		req.Body = spec.rawBody
	default:
		req.BodyKind = httpx.NoBody
	}

	return req, spec.timeout, nil
}

func basicAuthValue(username, password string) string {
	return "Basic " + basicAuthBase64(username, password)
}
