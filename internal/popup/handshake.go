package popup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VinMeld/campus-chat/internal/models"
	"github.com/VinMeld/campus-chat/internal/role"
	"github.com/VinMeld/campus-chat/internal/schedule"
)

var (
	ErrPopupBlocked          = errors.New("popup blocked")
	ErrLoginInitiationFailed = errors.New("login initiation failed")
	ErrLoginCancelled        = errors.New("login cancelled")
	// ErrLoginRejected wraps an {error} payload from the identity callback.
	ErrLoginRejected = errors.New("login rejected")
)

// DefaultPollInterval is how often the window is checked for closure.
const DefaultPollInterval = 500 * time.Millisecond

// Default login window size.
const (
	DefaultWidth  = 600
	DefaultHeight = 700
)

// Initiator asks the backend where to send the login window.
type Initiator interface {
	InitiateLogin(ctx context.Context, opener, state string) (string, error)
}

// SessionSink receives the identity of a successful login.
type SessionSink interface {
	Login(ctx context.Context, id models.Identity) error
}

type Notifier interface {
	Notify(title, description string)
}

// Handshake coordinates one popup login. Its fields are set once and the
// value may be reused for later logins.
type Handshake struct {
	Opener       Opener
	Initiator    Initiator
	Relay        *Relay
	Session      SessionSink
	Notifier     Notifier
	Geometry     Geometry
	PollInterval time.Duration
}

// result is resolved exactly once, by whichever of the relay listener and
// the close poll gets there first.
type result struct {
	once sync.Once
	done chan struct{}
	id   models.Identity
	err  error
}

func newResult() *result {
	return &result{done: make(chan struct{})}
}

func (r *result) resolve(id models.Identity, err error) bool {
	won := false
	r.once.Do(func() {
		r.id, r.err = id, err
		won = true
		close(r.done)
	})
	return won
}

func (r *result) settled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Run opens the login window and waits for the identity callback, the
// window closing, or ctx ending. The outcome is reported to the notifier
// exactly once.
func (h *Handshake) Run(ctx context.Context) (models.Identity, error) {
	id, err := h.run(ctx)
	h.report(id, err)
	return id, err
}

func (h *Handshake) run(ctx context.Context) (models.Identity, error) {
	g := h.Geometry
	if g.Width == 0 || g.Height == 0 {
		g = Geometry{Width: DefaultWidth, Height: DefaultHeight}
	}
	win, err := h.Opener.Open(ctx, g)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrPopupBlocked, err)
	}
	defer func() { _ = win.Close() }()

	state := uuid.NewString()
	res := newResult()
	listener := h.Relay.Subscribe(state, func(msg models.LoginMessage) {
		switch {
		case msg.Error != "":
			res.resolve(models.Identity{}, fmt.Errorf("%w: %s", ErrLoginRejected, msg.Error))
		case msg.User != nil && msg.User.Email != "":
			res.resolve(*msg.User, nil)
		}
	})
	defer listener.Close()

	interval := h.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	poll := schedule.Every(interval, func() bool {
		if res.settled() {
			return false
		}
		if win.Closed() {
			res.resolve(models.Identity{}, ErrLoginCancelled)
			return false
		}
		return true
	})
	defer poll.Stop()

	// A window closed while initiation is in flight is a cancellation,
	// whichever of the poll or the failed call notices first.
	fail := func(err error) (models.Identity, error) {
		if win.Closed() {
			res.resolve(models.Identity{}, ErrLoginCancelled)
		}
		res.resolve(models.Identity{}, err)
		if res.err != nil {
			return models.Identity{}, res.err
		}
		return models.Identity{}, err
	}
	redirect, err := h.Initiator.InitiateLogin(ctx, h.Relay.URL(), state)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrLoginInitiationFailed, err))
	}
	if err := win.Navigate(ctx, redirect); err != nil {
		return fail(fmt.Errorf("%w: navigate: %v", ErrLoginInitiationFailed, err))
	}

	select {
	case <-res.done:
	case <-ctx.Done():
		res.resolve(models.Identity{}, ctx.Err())
	}
	listener.Close()
	if res.err != nil {
		return models.Identity{}, res.err
	}

	if err := h.Session.Login(ctx, res.id); err != nil {
		return models.Identity{}, err
	}
	return res.id, nil
}

func (h *Handshake) report(id models.Identity, err error) {
	if err == nil {
		slog.Info("popup login succeeded", "email", id.Email)
	} else {
		slog.Warn("popup login failed", "error", err)
	}
	if h.Notifier == nil {
		return
	}
	switch {
	case err == nil:
		name := id.DisplayName
		if name == "" {
			name = id.Email
		}
		h.Notifier.Notify("Signed in", fmt.Sprintf("Signed in as %s (%s)", name, role.Resolve(&id)))
	case errors.Is(err, ErrPopupBlocked):
		h.Notifier.Notify("Popup blocked", "Allow the login window to open and try again.")
	case errors.Is(err, ErrLoginCancelled):
		h.Notifier.Notify("Login cancelled", "The login window was closed before sign-in completed.")
	default:
		h.Notifier.Notify("Login failed", err.Error())
	}
}
