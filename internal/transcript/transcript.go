// Package transcript keeps the chat history and plays assistant answers
// back one character per tick.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VinMeld/campus-chat/internal/api"
	"github.com/VinMeld/campus-chat/internal/schedule"
	"github.com/VinMeld/campus-chat/internal/session"
)

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrRevealInProgress = errors.New("a response is still being revealed")
	ErrClosed           = errors.New("transcript closed")
)

// DefaultInterval is the time between revealed characters.
const DefaultInterval = 20 * time.Millisecond

type Author string

const (
	User      Author = "user"
	Assistant Author = "assistant"
)

type RevealState string

const (
	Complete  RevealState = "complete"
	Revealing RevealState = "revealing"
)

type Message struct {
	ID     string
	Text   string
	Author Author
	State  RevealState
}

// Asker answers a question. *api.Client satisfies it.
type Asker interface {
	Ask(ctx context.Context, query string) (string, error)
}

// Gate reports whether a session is active. *session.Store satisfies it.
type Gate interface {
	Authenticated() bool
}

// Notifier surfaces transient user-visible errors.
type Notifier interface {
	Notify(title, description string)
}

type Options struct {
	Asker    Asker
	Gate     Gate
	Notifier Notifier
	// Interval between revealed characters. Zero means DefaultInterval.
	Interval time.Duration
	// OnUpdate, when set, receives a snapshot after every mutation. It runs
	// without the engine lock held and must not block for long.
	OnUpdate func([]Message)
}

// Engine owns one transcript. Only its tail message ever mutates, and at
// most one message is Revealing at a time.
type Engine struct {
	opts Options

	mu       sync.Mutex
	messages []Message
	busy     bool
	reveal   *schedule.Handle
	idle     chan struct{}
	epoch    int
	closed   bool
}

func New(opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	idle := make(chan struct{})
	close(idle)
	return &Engine{opts: opts, idle: idle}
}

// Submit sends text as a question. It blocks for the backend round trip and
// returns once the answer starts revealing; use Wait for the reveal to end.
// A failed query leaves a Complete assistant message describing the error.
func (e *Engine) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !e.opts.Gate.Authenticated() {
		e.notify("Not signed in", "Sign in to start chatting.")
		return session.ErrNotAuthenticated
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.busy {
		e.mu.Unlock()
		return ErrRevealInProgress
	}
	e.begin()
	epoch := e.epoch
	e.messages = append(e.messages, Message{ID: uuid.NewString(), Text: text, Author: User, State: Complete})
	e.mu.Unlock()
	e.publish()

	answer, err := e.opts.Asker.Ask(ctx, text)

	e.mu.Lock()
	if epoch != e.epoch {
		// Reset ran while the query was in flight.
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.messages = append(e.messages, Message{
			ID:     uuid.NewString(),
			Text:   errorText(err),
			Author: Assistant,
			State:  Complete,
		})
		e.finish()
		e.mu.Unlock()
		slog.Warn("ask failed", "error", err)
		e.notify("Error", fmt.Sprintf("Failed to get response from AI: %v. Please try again.", err))
		e.publish()
		return err
	}
	e.startReveal(answer)
	e.mu.Unlock()
	e.publish()
	return nil
}

func errorText(err error) string {
	if errors.Is(err, api.ErrAPIUnavailable) {
		return "Sorry, the API is not configured."
	}
	return "Sorry, I couldn't get a response. " + err.Error()
}

// RevealNext appends text as an assistant message and reveals it. It fails
// with ErrRevealInProgress while another submission or reveal is active.
func (e *Engine) RevealNext(text string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.busy {
		e.mu.Unlock()
		return ErrRevealInProgress
	}
	e.begin()
	e.startReveal(text)
	e.mu.Unlock()
	e.publish()
	return nil
}

// begin marks the engine busy. Caller holds mu.
func (e *Engine) begin() {
	e.busy = true
	e.idle = make(chan struct{})
}

// finish marks the engine idle. Caller holds mu.
func (e *Engine) finish() {
	if !e.busy {
		return
	}
	e.busy = false
	e.reveal = nil
	close(e.idle)
}

// startReveal appends the placeholder and schedules the ticks. Caller
// holds mu and has called begin.
func (e *Engine) startReveal(text string) {
	runes := []rune(text)
	idx := len(e.messages)
	e.messages = append(e.messages, Message{ID: uuid.NewString(), Author: Assistant, State: Revealing})
	if len(runes) == 0 {
		e.messages[idx].State = Complete
		e.finish()
		return
	}

	epoch := e.epoch
	pos := 0
	e.reveal = schedule.Every(e.opts.Interval, func() bool {
		e.mu.Lock()
		if epoch != e.epoch {
			e.mu.Unlock()
			return false
		}
		pos++
		msg := &e.messages[idx]
		msg.Text = string(runes[:pos])
		more := pos < len(runes)
		if !more {
			msg.State = Complete
		}
		e.mu.Unlock()
		e.publish()
		if !more {
			// Waiters are released only after the final update is published.
			e.mu.Lock()
			if epoch == e.epoch {
				e.finish()
			}
			e.mu.Unlock()
		}
		return more
	})
}

// Wait blocks until no submission or reveal is active.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Busy reports whether a submission or reveal is active.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Messages returns a snapshot of the transcript.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Message(nil), e.messages...)
}

// Reset cancels any reveal and empties the transcript. Answers for queries
// still in flight are dropped.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.epoch++
	if e.reveal != nil {
		e.reveal.Stop()
	}
	e.messages = nil
	e.finish()
	e.mu.Unlock()
	e.publish()
}

// Close cancels any reveal. The transcript stays readable.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.epoch++
	if e.reveal != nil {
		e.reveal.Stop()
	}
	if n := len(e.messages); n > 0 && e.messages[n-1].State == Revealing {
		e.messages[n-1].State = Complete
	}
	e.finish()
	e.mu.Unlock()
}

func (e *Engine) publish() {
	if e.opts.OnUpdate == nil {
		return
	}
	e.opts.OnUpdate(e.Messages())
}

func (e *Engine) notify(title, description string) {
	if e.opts.Notifier != nil {
		e.opts.Notifier.Notify(title, description)
	}
}
