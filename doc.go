// Package httprace is an HTTP client library built to make many
// independent HTTP/1.1 requests land on a server at nearly the same
// instant, for exercising race conditions in server-side logic (single-use
// tokens, inventory decrements, balance transfers, rate limits).
//
// The core trick is last-byte synchronization: a Session primes each
// request by writing everything except the few trailing bytes that
// complete HTTP/1.1 framing, holding the connection just short of
// "request sent". Session.FinishAll then releases every withheld tail in
// parallel, so the network latency for the bulk of each request (which
// otherwise dominates inter-request jitter) is paid before the
// timing-sensitive moment, not during it.
//
// This is a security research tool. It is not a general-purpose HTTP
// client: synchronized requests use one connection each, are never
// pooled or retried, and streaming of the response is not supported.
package httprace
