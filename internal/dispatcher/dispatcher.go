// Package dispatcher implements the release and collection phases of
// finish_all: a pre-release sleep, a parallel fan-out that writes every
// withheld tail, a hard barrier, and a parallel fan-out that reads and
// materializes every response.
package dispatcher

import (
	"context"
	"net/http"
	"time"

	"github.com/andycostintoma/httprace/internal/chunker"
	"github.com/andycostintoma/httprace/internal/conn"
	"github.com/andycostintoma/httprace/internal/materialize"
	"github.com/andycostintoma/httprace/internal/pending"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultPreReleaseSleep is the pause taken before the release phase.
// Empirically, freshly spawned workers dispatch less synchronously than
// warmed-up ones; sleeping first amortizes DNS/TLS/connect jitter into the
// priming phase instead of the timing-sensitive release. Per spec.md §9
// this must remain, be parameterized, and never be zero for meaningful N.
const DefaultPreReleaseSleep = time.Second

// Options configures one FinishAll run.
type Options struct {
	// WorkerCap bounds the number of parallel release/collection workers.
	// Zero (or >= len(entries)) means one worker per entry.
	WorkerCap int

	// PreReleaseSleep overrides DefaultPreReleaseSleep; values <= 0 fall
	// back to the default rather than disabling the sleep, per spec.md's
	// "never zero" requirement.
	PreReleaseSleep time.Duration

	// PerPhaseTimeout bounds how long FinishAll blocks joining each
	// phase's workers (spec.md §4.4/§5: applied per join, not as an
	// overall deadline -- see SPEC_FULL.md's Open Question resolution).
	// Zero means wait indefinitely.
	PerPhaseTimeout time.Duration

	ReadTimeout time.Duration
	Limits      materialize.Limits
	Jar         http.CookieJar
	Logger      logrus.FieldLogger
}

// Result reports anything the caller could not observe just by looking at
// the placeholders afterward: which phases, if any, did not finish inside
// PerPhaseTimeout and were left running in the background. Supplements
// spec.md §5's "Implementers should surface an indication... that the
// caller can use to detect the hang."
type Result struct {
	ReleaseTimedOut    bool
	CollectionTimedOut bool
}

// FinishAll runs the release phase, then the collection phase, over
// entries, exactly as described in spec.md §4.4. It never returns an
// error: per-entry failures are captured into that entry's Placeholder.
func FinishAll(ctx context.Context, entries []*pending.Entry, opts Options) Result {
	var result Result
	if len(entries) == 0 {
		return result
	}

	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}

	k := opts.WorkerCap
	if k <= 0 || k > len(entries) {
		k = len(entries)
	}
	groups := chunker.SplitSlice(entries, k)

	sleep := opts.PreReleaseSleep
	if sleep <= 0 {
		sleep = DefaultPreReleaseSleep
	}
	log.WithField("workers", k).WithField("pending", len(entries)).Debug("httprace: pre-release sleep")
	time.Sleep(sleep)

	releaseGroup := func() *errgroup.Group {
		g := new(errgroup.Group)
		for _, group := range groups {
			group := group
			g.Go(func() error {
				release(group, log)
				return nil
			})
		}
		return g
	}()
	result.ReleaseTimedOut = !waitWithTimeout(releaseGroup, opts.PerPhaseTimeout)
	log.WithField("timed_out", result.ReleaseTimedOut).Debug("httprace: release phase joined")

	collectGroup := func() *errgroup.Group {
		g := new(errgroup.Group)
		for _, group := range groups {
			group := group
			g.Go(func() error {
				collect(ctx, group, opts, log)
				return nil
			})
		}
		return g
	}()
	result.CollectionTimedOut = !waitWithTimeout(collectGroup, opts.PerPhaseTimeout)
	log.WithField("timed_out", result.CollectionTimedOut).Debug("httprace: collection phase joined")

	return result
}

// release writes each entry's withheld tail in priming order within this
// group. A write failure marks that entry 999 and the group continues
// with its remaining entries (spec.md §4.4 "Tie-breaks and edge cases").
func release(entries []*pending.Entry, log logrus.FieldLogger) {
	for _, e := range entries {
		if _, err := e.Conn.Raw().Write(e.Tail); err != nil {
			log.WithField("entry", e.ID).WithError(err).Warn("httprace: release write failed")
			e.Placeholder.MarkFailed(e.Request, conn.Closed.String(), err)
			e.Conn.Fail()
			continue
		}
		if err := e.Conn.MarkReleased(); err != nil {
			log.WithField("entry", e.ID).WithError(err).Warn("httprace: release state transition failed")
			e.Placeholder.MarkFailed(e.Request, conn.Closed.String(), err)
			e.Conn.Fail()
			continue
		}
		e.ReleasedAt = time.Now()
	}
}

// collect reads and materializes a response for each entry in this group
// that successfully released. Entries already in the 999 sentinel state
// are skipped, mirroring the original's "if response.status_code == 999:
// continue" guard.
func collect(ctx context.Context, entries []*pending.Entry, opts Options, log logrus.FieldLogger) {
	for _, e := range entries {
		if e.Conn.State() != conn.Released {
			continue
		}
		materialize.Collect(ctx, e, opts.Limits, opts.ReadTimeout, opts.Jar)
		if e.Placeholder != nil {
			snap := e.Placeholder.Snapshot()
			if snap.StatusCode == 999 {
				log.WithField("entry", e.ID).Warn("httprace: collection failed")
			}
		}
	}
}

// waitWithTimeout blocks until g.Wait() returns or timeout elapses
// (timeout <= 0 means wait indefinitely). It reports whether the group
// finished before the timeout; if not, the group's goroutines are left
// running -- spec.md §5 explicitly allows this ("the caller unblocks but
// the worker may continue in the background").
func waitWithTimeout(g *errgroup.Group, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return true
	}

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
