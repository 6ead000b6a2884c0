// Package flow implements the per-user conversational flow engine: a
// small state machine that lets a long-running handler repeatedly
// prompt a user and await the follow-up message, multiplexed across
// many users and rooms, bounded in lifetime, and safely cancellable.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mhalder/overbot/internal/chat"
	"github.com/mhalder/overbot/internal/metrics"
)

// MaxParseAttempts bounds how many replies ReceiveAndParse consumes
// before concluding the user has moved on.
const MaxParseAttempts = 3

// ErrNotInFlow is returned by Receive when no flow is running.
var ErrNotInFlow = errors.New("no flow is running")

// Procedure is the body of one conversational flow. It runs in its
// own goroutine, owned by the Context that started it. The only
// suspension points are Receive calls and whatever network calls the
// procedure makes; both honor ctx cancellation.
type Procedure func(ctx context.Context, fc *Context) error

// ErrorFunc reports a failed flow to the user. It is installed when
// the flow starts and called at most once, after the procedure
// returns a non-nil error other than cancellation.
type ErrorFunc func(ctx context.Context, err error)

// Context tracks one user's conversation state within one room: the
// last-activity clock, at most one running flow goroutine, and that
// flow's inbox. A context is either idle (no goroutine, no inbox) or
// in flow (both present); starting a new flow while one is running
// cancels the old one first.
type Context struct {
	room string
	user string

	mu           sync.Mutex
	lastActivity time.Time
	cancel       context.CancelFunc
	inbox        *inbox
	generation   uint64
	running      bool

	clock  func() time.Time
	logger *slog.Logger
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) ContextOption {
	return func(c *Context) {
		c.clock = clock
	}
}

// NewContext creates an idle context for a user within a room.
func NewContext(room, user string, opts ...ContextOption) *Context {
	c := &Context{
		room:   room,
		user:   user,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastActivity = c.clock()
	return c
}

// Room returns the room this context belongs to.
func (c *Context) Room() string { return c.room }

// User returns the user this context belongs to.
func (c *Context) User() string { return c.user }

// Touch refreshes the last-activity timestamp.
func (c *Context) Touch() {
	c.mu.Lock()
	c.lastActivity = c.clock()
	c.mu.Unlock()
}

// Age returns how long ago the context was last active.
func (c *Context) Age() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock().Sub(c.lastActivity)
}

// InFlow reports whether a flow is currently running.
func (c *Context) InFlow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// StartFlow runs proc as a new background flow owned by this context.
// A flow already running is cancelled first and its queued messages
// discarded. Errors from proc, except cancellation, are passed to
// onError; panics are recovered and reported the same way.
//
// StartFlow may be called from inside a running procedure to hand off
// into a sub-flow; the caller must return immediately afterwards.
func (c *Context) StartFlow(parent context.Context, proc Procedure, onError ErrorFunc) {
	c.mu.Lock()
	c.cancelLocked()

	ctx, cancel := context.WithCancel(parent)
	c.inbox = newInbox()
	c.cancel = cancel
	c.running = true
	c.generation++
	gen := c.generation
	c.lastActivity = c.clock()
	c.mu.Unlock()

	metrics.FlowsActive.Inc()

	go func() {
		err := c.run(ctx, proc)
		if err != nil && onError != nil {
			onError(ctx, err)
		}
		c.finish(gen)
	}()
}

// run invokes the procedure with panic containment, so one broken
// flow cannot take down the process.
func (c *Context) run(ctx context.Context, proc Procedure) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in flow",
				slog.String("room", c.room),
				slog.String("user", c.user),
				slog.Any("panic", r),
				slog.String("stack_trace", string(debug.Stack())))
			err = fmt.Errorf("flow panicked: %v", r)
		}
	}()
	return proc(ctx, c)
}

// finish returns the context to idle after the procedure completes,
// unless a newer flow has taken over in the meantime.
func (c *Context) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.cancelLocked()
}

// Cancel stops the running flow, if any, and discards its queued
// messages. It is idempotent and legal in any state.
func (c *Context) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Context) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.inbox = nil
	if c.running {
		c.running = false
		metrics.FlowsActive.Dec()
	}
}

// Deliver hands an incoming message to the running flow. It never
// blocks the caller. Outside a flow the message is dropped; catch-all
// input with no conversation awaiting it is not an error.
func (c *Context) Deliver(msg chat.Message) {
	c.mu.Lock()
	in := c.inbox
	c.mu.Unlock()

	if in == nil {
		c.logger.Debug("dropping message outside any flow",
			slog.String("room", c.room),
			slog.String("user", c.user))
		metrics.MessagesDropped.Inc()
		return
	}
	in.put(msg)
}

// Receive blocks until the next message is delivered, or until ctx is
// cancelled. It is the only suspension point available to flow
// procedures; messages arrive in FIFO order. Consuming a message
// refreshes the activity clock.
func (c *Context) Receive(ctx context.Context) (chat.Message, error) {
	c.mu.Lock()
	in := c.inbox
	c.mu.Unlock()

	if in == nil {
		return chat.Message{}, ErrNotInFlow
	}

	msg, err := in.get(ctx)
	if err != nil {
		return chat.Message{}, err
	}
	c.Touch()
	return msg, nil
}

// ReceiveAndParse receives up to MaxParseAttempts messages, returning
// the first one the parser accepts. When the bound is exhausted
// without a match the user is assumed to have moved on and fallback
// is returned.
func ReceiveAndParse[T any](ctx context.Context, c *Context, parse func(chat.Message) (T, bool), fallback T) (T, error) {
	for attempt := 0; attempt < MaxParseAttempts; attempt++ {
		msg, err := c.Receive(ctx)
		if err != nil {
			return fallback, err
		}
		if result, ok := parse(msg); ok {
			return result, nil
		}
	}
	return fallback, nil
}
