// Package conn owns connection establishment and the per-connection state
// machine that the priming/release/collection pipeline drives a socket
// through. It exists so that "stop short of end-of-headers and force the
// connection into a sent state" is a first-class operation on a type this
// module owns, rather than a reach into another HTTP client's internals.
package conn

import (
	"crypto/tls"
	"net/url"
	"time"
)

// Options controls how Dial establishes a connection to a request's origin
// and, later, how long release/collection are allowed to block on it.
//
// The shape follows the configuration surface of a conventional low-level
// HTTP transport: scheme-driven TLS, optional client certificates, optional
// HTTP CONNECT proxying, and split connect/read timeouts.
type Options struct {
	// Scheme is "http" or "https"; it decides whether Dial wraps the TCP
	// connection in a TLS client handshake.
	Scheme string

	// VerifyTLS controls certificate verification for https origins. Set
	// to false only for controlled security research targets; mirrors
	// requests' verify=False.
	VerifyTLS bool

	// ServerName overrides SNI / certificate verification hostname. If
	// empty, the origin's host is used.
	ServerName string

	// ClientCert, if non-nil, is presented during the TLS handshake.
	ClientCert *tls.Certificate

	// Proxy, if non-nil, is an HTTP proxy URL. The connection to the
	// origin is tunneled through it with CONNECT. The proxy itself is
	// reached over plain TCP (port 80 if the URL names none); TLS to the
	// proxy is not supported.
	Proxy *url.URL

	// ConnectTimeout bounds TCP connect (and proxy CONNECT) and the TLS
	// handshake. Zero means no timeout.
	ConnectTimeout time.Duration

	// ReadTimeout bounds reading the whole response during collection: a
	// single read deadline is set before the response is read. Zero means
	// no timeout.
	ReadTimeout time.Duration

	// TLSConfig, if non-nil, is used as the base TLS configuration;
	// VerifyTLS, ServerName, and ClientCert are applied on top of a clone
	// of it.
	TLSConfig *tls.Config
}

// effectiveTLSConfig returns the TLS client configuration for host: a clone
// of TLSConfig (or an empty config) with VerifyTLS, ServerName (falling
// back to host), and ClientCert applied on top.
func (o *Options) effectiveTLSConfig(host string) *tls.Config {
	var cfg *tls.Config
	if o.TLSConfig != nil {
		cfg = o.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	cfg.InsecureSkipVerify = !o.VerifyTLS
	if o.ServerName != "" {
		cfg.ServerName = o.ServerName
	} else if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	if o.ClientCert != nil {
		cfg.Certificates = []tls.Certificate{*o.ClientCert}
	}
	return cfg
}
