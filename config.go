package httprace

import (
	"crypto/tls"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Timeout expresses either a single timeout applied to both connect and
// read, or a distinct (connect, read) pair, per spec.md §6's "timeout
// (per call)" option. Use NewTimeout for the scalar form and
// NewConnectReadTimeout for the tuple form.
type Timeout struct {
	Connect time.Duration
	Read    time.Duration
}

// NewTimeout applies d to both the connect and read phases.
func NewTimeout(d time.Duration) Timeout {
	return Timeout{Connect: d, Read: d}
}

// NewConnectReadTimeout sets distinct connect and read timeouts.
func NewConnectReadTimeout(connect, read time.Duration) Timeout {
	return Timeout{Connect: connect, Read: read}
}

func (t Timeout) valid() bool {
	return t.Connect >= 0 && t.Read >= 0
}

// Options configures a Session: transport-level settings that apply to
// every request it primes, plus the worker cap used by FinishAll.
// Mirrors spec.md §6's configuration table (worker_cap, timeout, verify,
// cert, proxies) and the Options struct style of the rawhttp-derived
// internal/conn package this builds on.
type Options struct {
	// WorkerCap upper-bounds the number of parallel release/collection
	// workers FinishAll spawns. Zero means one worker per pending
	// request (the default, and the best choice for small N per
	// spec.md's design notes).
	WorkerCap int

	// DefaultTimeout supplies the connect timeout used while priming and
	// the read timeout used while FinishAll collects responses. WithTimeout
	// overrides the connect timeout for one call. FinishAll's per-phase
	// worker join is bounded only by FinishAll's own timeout argument, not
	// by this value.
	DefaultTimeout Timeout

	// InsecureSkipVerify disables TLS certificate verification for https
	// targets. The zero value (false) is the secure default -- verify --
	// so that an Options literal naming only unrelated fields (e.g.
	// Options{WorkerCap: 4}) can never silently disable verification.
	InsecureSkipVerify bool

	// ClientCert, if non-nil, is presented during TLS handshakes.
	ClientCert *tls.Certificate

	// TLSConfig, if non-nil, seeds the TLS configuration used for https
	// targets; InsecureSkipVerify and ClientCert are applied on top of it.
	TLSConfig *tls.Config

	// Proxy, if non-nil, routes every primed connection through an HTTP
	// CONNECT tunnel to this proxy.
	Proxy *url.URL

	// PreReleaseSleep overrides the pre-release pause FinishAll takes
	// before fanning out tail writes. Leave zero to use the documented
	// default (about one second); spec.md requires this never be zero
	// for meaningful N, so zero here means "use the default", not "skip
	// the sleep".
	PreReleaseSleep time.Duration

	// Logger receives structured diagnostics for priming, release, and
	// collection. Defaults to a logrus.Logger writing to io.Discard if
	// nil, so a Session costs nothing to log by default.
	Logger logrus.FieldLogger

	// MaxResponseBodyBytes bounds how much of a response body Collect
	// will read before failing the placeholder with 999.
	MaxResponseBodyBytes int64
}

// DefaultOptions returns the Options a Session uses when New is called
// with no overrides: verify TLS (InsecureSkipVerify false), one worker per
// request, generous body limits, and a discarding logger.
func DefaultOptions() Options {
	return Options{
		MaxResponseBodyBytes: 64 << 20,
		DefaultTimeout:       NewTimeout(30 * time.Second),
	}
}
