package httprace

import "github.com/pkg/errors"

// Sentinel errors raised synchronously at priming time (spec.md §7 "User
// errors"), as opposed to release/collection-time failures, which are
// captured into the corresponding Placeholder instead of returned here.
var (
	// ErrInvalidTimeout is returned when a caller-supplied Timeout has a
	// negative Connect or Read component.
	ErrInvalidTimeout = errors.New("httprace: invalid timeout")

	// ErrUnsupportedScheme is returned for any URL scheme other than
	// "http" or "https" -- this engine is HTTP/1.1-only (spec.md §1).
	ErrUnsupportedScheme = errors.New("httprace: unsupported URL scheme")

	// ErrEmptyURL is returned when the request URL is missing or empty.
	ErrEmptyURL = errors.New("httprace: empty request URL")
)
