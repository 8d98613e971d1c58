package httprace

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/andycostintoma/httprace/internal/conn"
	"github.com/andycostintoma/httprace/internal/dispatcher"
	"github.com/andycostintoma/httprace/internal/materialize"
	"github.com/andycostintoma/httprace/internal/pending"
	"github.com/andycostintoma/httprace/internal/primer"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// Response is the placeholder response object returned by every
// synchronized verb call. It starts out in the 998 ("Request Not
// Finished") sentinel state and is mutated in place by FinishAll, never
// replaced, so that references a caller stashed in a slice or map remain
// valid (spec.md §4.5).
type Response = responseType

// Session is a synchronized HTTP client: it primes requests onto
// dedicated connections and exposes FinishAll to release and collect them
// together. A zero Session is not usable; construct one with New or
// FromClient.
type Session struct {
	opts Options

	defaultHeader Header
	defaultAuth   *basicAuth
	jar           http.CookieJar

	connOpts conn.Options
	limits   materialize.Limits
	logger   logrus.FieldLogger

	id uuid.UUID

	pendingMu sync.Mutex
	pendingQ  []*pending.Entry

	finishMu sync.Mutex
}

// New constructs a Session. Passing no Options is equivalent to passing
// DefaultOptions(). A supplied Options value is merged field-by-field onto
// DefaultOptions() -- a caller writing New(Options{WorkerCap: 4}) to tweak
// one knob gets the documented defaults (30s timeout, TLS verification on)
// for every field it left zero, rather than silently zeroing them out.
func New(opts ...Options) (*Session, error) {
	o := DefaultOptions()
	if len(opts) > 0 {
		o = mergeOptions(o, opts[0])
	}
	if !o.DefaultTimeout.valid() {
		return nil, ErrInvalidTimeout
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "httprace: construct cookie jar")
	}

	logger := o.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(discardWriter{})
		logger = l
	}

	return &Session{
		opts:          o,
		defaultHeader: make(Header),
		jar:           jar,
		logger:        logger,
		id:            uuid.New(),
		connOpts: conn.Options{
			VerifyTLS:      !o.InsecureSkipVerify,
			ClientCert:     o.ClientCert,
			TLSConfig:      o.TLSConfig,
			Proxy:          o.Proxy,
			ConnectTimeout: o.DefaultTimeout.Connect,
			ReadTimeout:    o.DefaultTimeout.Read,
		},
		limits: materialize.Limits{
			MaxLineBytes:   materialize.DefaultLimits.MaxLineBytes,
			MaxHeaderBytes: materialize.DefaultLimits.MaxHeaderBytes,
			MaxBodyBytes:   nonZero(o.MaxResponseBodyBytes, materialize.DefaultLimits.MaxBodyBytes),
		},
	}, nil
}

// FromClient constructs a Session that inherits cookies and a
// best-effort approximation of the transport configuration (TLS
// verification, proxy) from an existing *http.Client, but never its
// RoundTripper -- this is the Go analogue of
// SynchronizedSession.from_requests_session in the original
// implementation, which copies a requests.Session's state via
// __getstate__/__setstate__ but always discards `adapters`.
func FromClient(client *http.Client, opts ...Options) (*Session, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return s, nil
	}

	if client.Jar != nil {
		s.jar = client.Jar
	}
	if client.Timeout > 0 {
		s.connOpts.ReadTimeout = client.Timeout
	}

	if t, ok := client.Transport.(*http.Transport); ok && t != nil {
		if t.TLSClientConfig != nil {
			s.connOpts.VerifyTLS = !t.TLSClientConfig.InsecureSkipVerify
			s.connOpts.TLSConfig = t.TLSClientConfig.Clone()
		}
		if t.Proxy != nil {
			if proxyURL, err := t.Proxy(&http.Request{URL: nil}); err == nil && proxyURL != nil {
				s.connOpts.Proxy = proxyURL
			}
		}
	}

	return s, nil
}

func nonZero(v, fallback int64) int64 {
	if v > 0 {
		return v
	}
	return fallback
}

// mergeOptions layers override's non-zero fields onto defaults, so that a
// caller-supplied Options literal naming only the fields it cares about
// never clobbers the rest back to the zero value. InsecureSkipVerify is
// deliberately excluded from this treatment: its zero value (false, i.e.
// "verify") already is the secure default, so a plain assignment is
// correct without needing a presence check.
func mergeOptions(defaults, override Options) Options {
	merged := defaults
	if override.WorkerCap != 0 {
		merged.WorkerCap = override.WorkerCap
	}
	if override.DefaultTimeout.Connect != 0 || override.DefaultTimeout.Read != 0 {
		merged.DefaultTimeout = override.DefaultTimeout
	}
	merged.InsecureSkipVerify = override.InsecureSkipVerify
	if override.ClientCert != nil {
		merged.ClientCert = override.ClientCert
	}
	if override.TLSConfig != nil {
		merged.TLSConfig = override.TLSConfig
	}
	if override.Proxy != nil {
		merged.Proxy = override.Proxy
	}
	if override.PreReleaseSleep != 0 {
		merged.PreReleaseSleep = override.PreReleaseSleep
	}
	if override.Logger != nil {
		merged.Logger = override.Logger
	}
	if override.MaxResponseBodyBytes != 0 {
		merged.MaxResponseBodyBytes = override.MaxResponseBodyBytes
	}
	return merged
}

// SetHeader sets a default header sent with every request from this
// session, overridable per call with WithHeader.
func (s *Session) SetHeader(key, value string) {
	s.defaultHeader.Set(key, value)
}

// SetBasicAuth sets default HTTP Basic credentials for every request from
// this session, overridable per call with WithBasicAuth.
func (s *Session) SetBasicAuth(username, password string) {
	s.defaultAuth = &basicAuth{username: username, password: password}
}

// Jar returns the session's cookie jar.
func (s *Session) Jar() http.CookieJar {
	return s.jar
}

func (s *Session) do(method, rawURL string, opts []RequestOption) (*Response, error) {
	req, timeout, err := s.buildPreparedRequest(method, rawURL, opts)
	if err != nil {
		return nil, err
	}
	if timeout != nil && !timeout.valid() {
		return nil, ErrInvalidTimeout
	}

	connOpts := s.connOpts
	connOpts.Scheme = req.URL.Scheme
	if timeout != nil {
		connOpts.ConnectTimeout = timeout.Connect
		connOpts.ReadTimeout = timeout.Read
	}

	primed, err := primer.Prime(context.Background(), req, &connOpts)
	if err != nil {
		s.logger.WithError(err).WithField("url", req.URL.String()).Warn("httprace: priming failed")
		return nil, err
	}

	placeholder := newPendingResponse(req)
	entry := pending.New(req, primed.Conn, primed.Tail, placeholder)

	s.pendingMu.Lock()
	s.pendingQ = append(s.pendingQ, entry)
	s.pendingMu.Unlock()

	s.logger.WithField("entry", entry.ID).WithField("method", method).Debug("httprace: primed")

	return placeholder, nil
}

// Get primes a GET request.
func (s *Session) Get(url string, opts ...RequestOption) (*Response, error) {
	return s.do(http.MethodGet, url, opts)
}

// Post primes a POST request.
func (s *Session) Post(url string, opts ...RequestOption) (*Response, error) {
	return s.do(http.MethodPost, url, opts)
}

// Put primes a PUT request.
func (s *Session) Put(url string, opts ...RequestOption) (*Response, error) {
	return s.do(http.MethodPut, url, opts)
}

// Delete primes a DELETE request.
func (s *Session) Delete(url string, opts ...RequestOption) (*Response, error) {
	return s.do(http.MethodDelete, url, opts)
}

// Head primes a HEAD request.
func (s *Session) Head(url string, opts ...RequestOption) (*Response, error) {
	return s.do(http.MethodHead, url, opts)
}

// Options primes an OPTIONS request.
func (s *Session) Options(url string, opts ...RequestOption) (*Response, error) {
	return s.do(http.MethodOptions, url, opts)
}

// FinishAll releases every pending request's withheld tail in parallel,
// then collects and materializes every response, per spec.md §4.4.
// timeout, if > 0, bounds how long each phase's worker join may take
// (applied per join, not as an overall deadline -- spec.md §9's preserved
// Open Question). Exactly one FinishAll call may run at a time per
// session (spec.md §3); concurrent callers block until the active call
// returns.
func (s *Session) FinishAll(timeout time.Duration) dispatcher.Result {
	s.finishMu.Lock()
	defer s.finishMu.Unlock()

	s.pendingMu.Lock()
	entries := s.pendingQ
	s.pendingQ = nil
	s.pendingMu.Unlock()

	result := dispatcher.FinishAll(context.Background(), entries, dispatcher.Options{
		WorkerCap:       s.opts.WorkerCap,
		PreReleaseSleep: s.opts.PreReleaseSleep,
		PerPhaseTimeout: timeout,
		ReadTimeout:     s.connOpts.ReadTimeout,
		Limits:          s.limits,
		Jar:             s.jar,
		Logger:          s.logger,
	})

	return result
}

// Pending reports how many requests are currently primed and waiting for
// FinishAll.
func (s *Session) Pending() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pendingQ)
}

// Close force-closes every connection still sitting in the pending queue
// without releasing or collecting it -- a supplement to spec.md for
// callers that want to discard a session without calling FinishAll (for
// example, after a priming-time error aborts a batch). It is not part of
// the original implementation, which has no equivalent teardown path.
// Errors closing individual connections are aggregated rather than
// stopping at the first one.
func (s *Session) Close() error {
	s.pendingMu.Lock()
	entries := s.pendingQ
	s.pendingQ = nil
	s.pendingMu.Unlock()

	var result *multierror.Error
	for _, e := range entries {
		if err := e.Conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
