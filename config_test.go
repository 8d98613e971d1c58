package httprace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewWithPartialOptionsKeepsDefaults covers the review fix for
// session.go's New: supplying an Options literal naming only one field
// must not silently zero out the rest of DefaultOptions().
func TestNewWithPartialOptionsKeepsDefaults(t *testing.T) {
	s, err := New(Options{WorkerCap: 4})
	require.NoError(t, err)

	require.Equal(t, 4, s.opts.WorkerCap)
	require.Equal(t, DefaultOptions().DefaultTimeout, s.opts.DefaultTimeout, "timeout must keep its 30s default")
	require.False(t, s.opts.InsecureSkipVerify, "verification must stay on by default")
	require.True(t, s.connOpts.VerifyTLS, "internal conn options must still request verification")
}

// TestNewWithNoOptionsMatchesDefaultOptions covers the New()/New(DefaultOptions()) equivalence.
func TestNewWithNoOptionsMatchesDefaultOptions(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.Equal(t, DefaultOptions(), s.opts)
}

// TestNewInsecureSkipVerifyRequiresExplicitOptIn covers the zero-value
// safety of InsecureSkipVerify: only a literal opt-in disables
// verification, never an Options value that merely sets another field.
func TestNewInsecureSkipVerifyRequiresExplicitOptIn(t *testing.T) {
	s, err := New(Options{InsecureSkipVerify: true})
	require.NoError(t, err)
	require.True(t, s.opts.InsecureSkipVerify)
	require.False(t, s.connOpts.VerifyTLS, "opting in to InsecureSkipVerify must disable conn-level verification")
}

func TestMergeOptionsPreservesUnsetFields(t *testing.T) {
	defaults := DefaultOptions()
	merged := mergeOptions(defaults, Options{PreReleaseSleep: 2 * time.Second})

	require.Equal(t, defaults.WorkerCap, merged.WorkerCap)
	require.Equal(t, defaults.DefaultTimeout, merged.DefaultTimeout)
	require.Equal(t, defaults.MaxResponseBodyBytes, merged.MaxResponseBodyBytes)
	require.Equal(t, 2*time.Second, merged.PreReleaseSleep)
}
