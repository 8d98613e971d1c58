package conn

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Dial establishes a fresh connection to target (never pooled -- each
// priming call gets its own socket, per spec.md's Connection invariants)
// and, if opts.Scheme is "https", performs a TLS handshake. If opts.Proxy
// is set, the connection to target is tunneled through an HTTP CONNECT
// request to the proxy first.
func Dial(ctx context.Context, target *url.URL, opts *Options) (*Conn, error) {
	if opts == nil {
		opts = &Options{Scheme: target.Scheme}
	}

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	host := hostWithPort(target)

	var raw net.Conn
	var err error
	if opts.Proxy != nil {
		raw, err = dialViaProxy(ctx, opts.Proxy, host)
	} else {
		var d net.Dialer
		raw, err = d.DialContext(ctx, "tcp", host)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", host)
	}

	if opts.Scheme == "https" {
		tlsConn := tls.Client(raw, opts.effectiveTLSConfig(target.Hostname()))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, errors.Wrapf(err, "tls handshake with %s", host)
		}
		raw = tlsConn
	}

	return New(raw), nil
}

func hostWithPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// dialViaProxy opens a plain TCP connection to the proxy and issues an
// HTTP CONNECT request for target, returning the tunnel once the proxy
// answers 200. Only plain-HTTP proxies are supported; proxies reached over
// TLS are out of scope for the security-research use case this engine
// targets.
func dialViaProxy(ctx context.Context, proxy *url.URL, target string) (net.Conn, error) {
	var d net.Dialer
	proxyAddr := proxy.Host
	if proxy.Port() == "" {
		proxyAddr = net.JoinHostPort(proxy.Hostname(), "80")
	}

	raw, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial proxy %s", proxyAddr)
	}

	connectReq := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: target},
		Host:   target,
		Header: make(http.Header),
	}
	if proxy.User != nil {
		connectReq.Header.Set("Proxy-Authorization", basicAuthHeader(proxy.User))
	}

	if err := connectReq.Write(raw); err != nil {
		raw.Close()
		return nil, errors.Wrap(err, "write CONNECT request")
	}

	br := bufio.NewReader(raw)
	resp, err := http.ReadResponse(br, connectReq)
	if err != nil {
		raw.Close()
		return nil, errors.Wrap(err, "read CONNECT response")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw.Close()
		return nil, fmt.Errorf("proxy CONNECT to %s failed: %s", target, resp.Status)
	}

	if br.Buffered() > 0 {
		// The proxy is not supposed to send tunnel bytes ahead of our
		// first write, but guard against a buggy one anyway.
		raw.Close()
		return nil, errors.New("proxy sent data before tunnel established")
	}

	return raw, nil
}

func basicAuthHeader(u *url.Userinfo) string {
	password, _ := u.Password()
	return "Basic " + basicAuthEncode(u.Username(), password)
}
