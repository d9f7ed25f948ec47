package popup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/VinMeld/campus-chat/internal/models"
)

const (
	relayPath       = "/message"
	maxMessageBytes = 64 << 10
)

// Relay is the loopback endpoint the identity callback page posts its
// result to. Messages are accepted only from the trusted origin and are
// delivered only to the subscriber holding the matching state nonce.
type Relay struct {
	origin string
	ln     net.Listener
	srv    *http.Server

	mu     sync.Mutex
	nextID int
	subs   map[int]relaySub
}

type relaySub struct {
	state string
	fn    func(models.LoginMessage)
}

// NewRelay listens on an ephemeral loopback port. trustedOrigin is the
// scheme://host[:port] allowed to post; an empty value disables the check.
func NewRelay(trustedOrigin string) (*Relay, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen relay: %w", err)
	}
	r := &Relay{
		origin: strings.TrimRight(trustedOrigin, "/"),
		ln:     ln,
		subs:   make(map[int]relaySub),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(relayPath, r.handleMessage)
	r.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := r.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay stopped", "error", err)
		}
	}()
	return r, nil
}

// OriginOf reduces a URL to the scheme://host form browsers send in the
// Origin header.
func OriginOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// URL is where the callback page should post.
func (r *Relay) URL() string {
	return "http://" + r.ln.Addr().String() + relayPath
}

// Subscribe delivers messages carrying state to fn until the listener is
// closed.
func (r *Relay) Subscribe(state string, fn func(models.LoginMessage)) *Listener {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = relaySub{state: state, fn: fn}
	r.mu.Unlock()
	return &Listener{close: func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}}
}

// Close stops the relay.
func (r *Relay) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.srv.Shutdown(ctx)
}

func (r *Relay) handleMessage(w http.ResponseWriter, req *http.Request) {
	if r.origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", r.origin)
		w.Header().Set("Vary", "Origin")
	}
	switch req.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if origin := req.Header.Get("Origin"); r.origin != "" && origin != r.origin {
		slog.Warn("relay message from untrusted origin ignored", "origin", origin)
		http.Error(w, "untrusted origin", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	var msg models.LoginMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		http.Error(w, "invalid message", http.StatusBadRequest)
		return
	}

	if !r.deliver(msg) {
		slog.Warn("relay message with unknown state ignored")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Relay) deliver(msg models.LoginMessage) bool {
	r.mu.Lock()
	var targets []func(models.LoginMessage)
	for _, s := range r.subs {
		if s.state == msg.State {
			targets = append(targets, s.fn)
		}
	}
	r.mu.Unlock()
	for _, fn := range targets {
		fn(msg)
	}
	return len(targets) > 0
}

// Listener is a relay subscription.
type Listener struct {
	once  sync.Once
	close func()
}

// Close deregisters the subscription. Safe to call more than once.
func (l *Listener) Close() {
	l.once.Do(l.close)
}
