package scribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// State identifies a position in the session lifecycle. StateCompleted,
// StateFailed and StateCancelled are terminal: they are reported through
// Outcome while the controller itself returns to StateIdle immediately.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the terminal result of one session. Exactly one Outcome is
// produced per session; cancelled sessions carry neither artifact nor
// error.
type Outcome struct {
	State    State         // StateCompleted, StateFailed or StateCancelled
	Artifact string        // set when State == StateCompleted
	Err      *SessionError // set when State == StateFailed
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithProgressHandler sets a callback invoked for every accepted progress
// envelope, from the controller's read goroutine.
func WithProgressHandler(h func(Progress)) ControllerOption {
	return func(c *Controller) {
		c.onProgress = h
	}
}

// WithOutcomeHandler sets a callback invoked once per asynchronously
// resolved session: from the read goroutine for completion and failure,
// from Cancel's caller for cancellation. Synchronous Submit failures are
// returned to the caller instead of being delivered here.
func WithOutcomeHandler(h func(Outcome)) ControllerOption {
	return func(c *Controller) {
		c.onOutcome = h
	}
}

// Controller runs at most one generation session at a time against a
// Transport and resolves it to exactly one terminal outcome. It is
// reusable: every terminal outcome returns it to StateIdle, ready for the
// next Submit. Submissions during a live session are rejected, not queued.
//
// Cancel and envelope processing are internally synchronized, and Cancel
// wins any race with an in-flight terminal envelope. Submit itself is not
// meant for concurrent use from multiple goroutines; serialize access when
// sharing a controller.
type Controller struct {
	transport  Transport
	onProgress func(Progress)
	onOutcome  func(Outcome)

	mu       sync.Mutex
	state    State // only StateIdle, StateConnecting or StateStreaming
	seq      uint64
	cancel   context.CancelFunc
	stream   Stream
	progress Progress
	sawFinal bool // a fraction of 1.0 was observed
	last     *Outcome
}

// NewController returns a Controller that opens sessions over t.
func NewController(t Transport, opts ...ControllerOption) *Controller {
	c := &Controller{transport: t}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates req and starts a session, returning immediately.
// Progress and the terminal outcome arrive through the handler options and
// the accessor methods. A validation failure is returned synchronously,
// recorded as a Failed outcome with KindValidation, and never opens the
// transport. While a session is live, Submit rejects with ErrSessionActive.
//
// ctx bounds the whole session: cancelling it has the same effect as
// a transport failure. Callers wanting a deadline compose one here or
// call Cancel after an elapsed duration.
func (c *Controller) Submit(ctx context.Context, req Request) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("scribe: submit: %w", ErrSessionActive)
	}
	if err := req.Validate(); err != nil {
		out := Outcome{State: StateFailed, Err: &SessionError{
			Kind:      KindValidation,
			Message:   err.Error(),
			Timestamp: time.Now(),
		}}
		c.last = &out
		c.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateConnecting
	c.progress = Progress{}
	c.sawFinal = false
	seq := c.seq
	c.mu.Unlock()

	go c.run(ctx, seq, req)
	return nil
}

// Cancel aborts the live session, if any. Calling it when no session is
// active is a no-op, so Cancel is idempotent. Cancellation wins every
// race: once Cancel returns, no envelope from the cancelled session
// mutates state or fires a callback, regardless of arrival timing.
// The session resolves to an Outcome with StateCancelled and no error;
// in-flight progress and any pending result are discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	out := Outcome{State: StateCancelled}
	c.endLocked(out)
	h := c.onOutcome
	c.mu.Unlock()
	if h != nil {
		h(out)
	}
}

// State reports the live lifecycle position. Terminal results are observed
// through Last, not State: the controller is back at StateIdle by the time
// a session's outcome is visible.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress reports the most recent accepted progress envelope of the live
// session, zero value when idle or before the first envelope.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Last reports the terminal outcome of the most recently resolved session.
// ok is false until a first session resolves.
func (c *Controller) Last() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Outcome{}, false
	}
	return *c.last, true
}

// run opens the transport and drains the stream until a terminal envelope,
// an error, or cancellation. It owns the session identified by seq; every
// mutation re-checks seq under the mutex so a cancelled session's events
// are dropped rather than applied.
func (c *Controller) run(ctx context.Context, seq uint64, req Request) {
	stream, err := c.transport.Open(ctx, req)
	if err != nil {
		c.finish(seq, openFailure(err))
		return
	}
	if !c.attach(seq, stream) {
		// Cancelled while connecting; nobody else will close this stream.
		stream.Close()
		return
	}
	for {
		env, err := stream.Next()
		if err != nil {
			c.finish(seq, readFailure(err))
			return
		}
		switch e := env.(type) {
		case Progress:
			if !c.observe(seq, e) {
				return
			}
		case Completion:
			c.finish(seq, Outcome{State: StateCompleted, Artifact: e.Artifact})
			return
		case *SessionError:
			c.finish(seq, Outcome{State: StateFailed, Err: e})
			return
		}
	}
}

// attach records the open stream and moves to StateStreaming, reporting
// false when the session was cancelled while connecting.
func (c *Controller) attach(seq uint64, s Stream) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != seq {
		return false
	}
	c.stream = s
	c.state = StateStreaming
	return true
}

// observe applies one progress envelope, reporting false when the session
// is over: cancelled concurrently, or failed on a monotonicity violation.
func (c *Controller) observe(seq uint64, p Progress) bool {
	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		return false
	}
	if viol := c.violation(p); viol != "" {
		out := Outcome{State: StateFailed, Err: &SessionError{
			Kind:      KindInternal,
			Message:   viol,
			Timestamp: time.Now(),
		}}
		c.endLocked(out)
		h := c.onOutcome
		c.mu.Unlock()
		if h != nil {
			h(out)
		}
		return false
	}
	c.progress = p
	if p.Fraction >= 1 {
		c.sawFinal = true
	}
	h := c.onProgress
	c.mu.Unlock()
	if h != nil {
		h(p)
	}
	return true
}

// violation explains why p breaks the stream contract, or returns "" when
// it does not. The transport already fails closed on malformed envelopes;
// the checks here enforce the sequential invariants only the controller
// can see. Callers hold mu.
func (c *Controller) violation(p Progress) string {
	if !p.Stage.Known() {
		return fmt.Sprintf("unknown stage %q", string(p.Stage))
	}
	if p.Fraction < 0 || p.Fraction > 1 {
		return fmt.Sprintf("fraction %g outside [0, 1]", p.Fraction)
	}
	if c.sawFinal {
		return fmt.Sprintf("progress after final fraction: stage %s", p.Stage)
	}
	prev := c.progress
	if prev.Stage == "" {
		return ""
	}
	if !ValidTransition(prev.Stage, p.Stage) {
		return fmt.Sprintf("stage order violated: %s after %s", p.Stage, prev.Stage)
	}
	if p.Fraction < prev.Fraction {
		return fmt.Sprintf("fraction decreased: %g after %g", p.Fraction, prev.Fraction)
	}
	return ""
}

// finish resolves the session identified by seq to out. Stale calls, made
// after cancellation or an earlier terminal, are dropped.
func (c *Controller) finish(seq uint64, out Outcome) {
	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		return
	}
	c.endLocked(out)
	h := c.onOutcome
	c.mu.Unlock()
	if h != nil {
		h(out)
	}
}

// endLocked resolves the live session to out and returns the controller to
// StateIdle. Bumping seq invalidates every reference the read goroutine
// still holds. Callers hold mu.
func (c *Controller) endLocked(out Outcome) {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	c.state = StateIdle
	c.progress = Progress{}
	c.sawFinal = false
	o := out
	c.last = &o
}

// openFailure maps a Transport.Open error to a Failed outcome. Producer
// rejections already carry a *SessionError; everything else is a
// connection failure.
func openFailure(err error) Outcome {
	var se *SessionError
	if errors.As(err, &se) {
		return Outcome{State: StateFailed, Err: se}
	}
	return Outcome{State: StateFailed, Err: &SessionError{
		Kind:      KindConnection,
		Message:   err.Error(),
		Timestamp: time.Now(),
	}}
}

// readFailure maps a Stream.Next error to a Failed outcome. Protocol
// violations escalate to KindInternal; everything else, including EOF
// before a terminal envelope, synthesizes KindConnection.
func readFailure(err error) Outcome {
	se := &SessionError{Timestamp: time.Now()}
	switch {
	case errors.Is(err, ErrProtocol):
		se.Kind = KindInternal
		se.Message = err.Error()
	case errors.Is(err, io.EOF):
		se.Kind = KindConnection
		se.Message = "stream ended without a terminal envelope"
	default:
		se.Kind = KindConnection
		se.Message = err.Error()
	}
	return Outcome{State: StateFailed, Err: se}
}
