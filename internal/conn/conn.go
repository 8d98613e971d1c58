package conn

import (
	"fmt"
	"net"
	"sync"

	"github.com/andycostintoma/httprace/internal/netx"
	"github.com/pkg/errors"
)

// State names a point in the per-connection lifecycle a synchronized
// request drives its socket through: Idle -> Primed -> Released ->
// Collected, with Closed reachable from any state on error or teardown.
type State int

const (
	Idle State = iota
	Primed
	Released
	Collected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Primed:
		return "primed"
	case Released:
		return "released"
	case Collected:
		return "collected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("conn.State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a caller attempts a state
// transition not permitted by the lifecycle in State's doc comment.
var ErrInvalidTransition = errors.New("conn: invalid state transition")

// Conn wraps a raw (and possibly TLS-wrapped) net.Conn together with the
// state machine and withheld-tail bookkeeping the priming/release/
// collection pipeline needs. It is exclusively owned by one pending entry
// from priming until collection completes or fails (spec's Connection
// invariant); nothing here makes it safe to share across pending entries.
type Conn struct {
	mu    sync.Mutex
	raw   net.Conn
	state State

	// Tail is the withheld bytes recorded at priming time; Release writes
	// exactly these bytes.
	Tail []byte

	// Reader is a buffered CRLF-aware reader over raw, created once in New
	// so that the status line, headers, and body of the response are all
	// read through one buffer and no bytes are lost to a second,
	// independent bufio.Reader.
	Reader *netx.CRLFFastReader
}

// New wraps an already-established net.Conn in the Idle state.
func New(raw net.Conn) *Conn {
	return &Conn{
		raw:    raw,
		state:  Idle,
		Reader: netx.NewCRLFFastReader(raw),
	}
}

// Raw returns the underlying net.Conn for writes/deadline manipulation.
func (c *Conn) Raw() net.Conn {
	return c.raw
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkPrimed transitions Idle -> Primed and records the withheld tail. It
// is the Go-native replacement for reaching into an HTTPConnection's
// private __state field and _buffer: the primer, which owns this type,
// simply calls a documented transition.
func (c *Conn) MarkPrimed(tail []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return errors.Wrapf(ErrInvalidTransition, "mark primed from %s", c.state)
	}
	c.Tail = tail
	c.state = Primed
	return nil
}

// MarkReleased transitions Primed -> Released after the withheld tail has
// been written successfully.
func (c *Conn) MarkReleased() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Primed {
		return errors.Wrapf(ErrInvalidTransition, "mark released from %s", c.state)
	}
	c.state = Released
	return nil
}

// MarkCollected transitions Released -> Collected after a full response has
// been read and parsed.
func (c *Conn) MarkCollected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Released {
		return errors.Wrapf(ErrInvalidTransition, "mark collected from %s", c.state)
	}
	c.state = Collected
	return nil
}

// Fail forces the connection to Closed from any state and closes the
// underlying socket; this is the error path out of Primed or Released
// described by spec.md's state machine (Primed -> Closed(error),
// Released -> Closed(error)).
func (c *Conn) Fail() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	return c.raw.Close()
}

// Close tears the connection down unconditionally, regardless of state.
// Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return nil
	}
	c.state = Closed
	return c.raw.Close()
}
