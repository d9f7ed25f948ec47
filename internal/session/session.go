// Package session holds the current identity and view for one client and
// mirrors the identity into durable storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/VinMeld/campus-chat/internal/models"
	"github.com/VinMeld/campus-chat/internal/role"
	"github.com/VinMeld/campus-chat/internal/storage"
	"github.com/VinMeld/campus-chat/internal/transport"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the current role may not enter a view.
	ErrForbidden = errors.New("forbidden for current role")
)

// View is the client-side screen selector.
type View string

const (
	ViewChat      View = "chat"
	ViewDocuments View = "documents"
)

// Store owns the current identity. The role is always derived from it.
type Store struct {
	mu        sync.RWMutex
	durable   storage.Durable
	key       string
	identity  *models.Identity
	view      View
	restored  bool
	nextSubID int
	onLogout  map[int]func()
}

// NewStore creates an unauthenticated store backed by durable.
func NewStore(durable storage.Durable) *Store {
	return &Store{
		durable:  durable,
		key:      transport.IdentityStorageKey,
		view:     ViewChat,
		onLogout: make(map[int]func()),
	}
}

// Login sets the identity, persists it, and resets the view to chat.
func (s *Store) Login(ctx context.Context, id models.Identity) error {
	id.Email = strings.TrimSpace(id.Email)
	if id.Email == "" {
		return fmt.Errorf("login: identity has no email")
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := s.durable.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}

	s.mu.Lock()
	s.identity = &id
	s.view = ViewChat
	s.mu.Unlock()

	slog.Info("session started", "email", id.Email, "role", role.Resolve(&id))
	return nil
}

// Logout clears the identity and its durable entry, resets the view and
// runs every logout subscriber. The in-memory session is cleared even
// when the durable delete fails; that error is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.view = ViewChat
	hooks := make([]func(), 0, len(s.onLogout))
	for _, fn := range s.onLogout {
		hooks = append(hooks, fn)
	}
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	if err := s.durable.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear persisted identity: %w", err)
	}
	slog.Info("session ended")
	return nil
}

// Restore loads a previously persisted identity. It only has an effect the
// first time it is called. The identity is trusted as stored; nothing is
// re-validated against the backend.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.restored {
		authenticated := s.identity != nil
		s.mu.Unlock()
		return authenticated, nil
	}
	s.restored = true
	s.mu.Unlock()

	raw, ok, err := s.durable.Get(ctx, s.key)
	if err != nil {
		return false, fmt.Errorf("read persisted identity: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	id, ok := decodeIdentity(raw)
	if !ok {
		slog.Warn("ignoring unusable stored session", "key", s.key)
		return false, nil
	}

	s.mu.Lock()
	s.identity = &id
	s.view = ViewChat
	s.mu.Unlock()
	slog.Debug("session restored", "email", id.Email)
	return true, nil
}

// A bare email (no JSON object) is accepted as the identity's primary key.
// A JSON object must carry an email.
func decodeIdentity(raw string) (models.Identity, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return models.Identity{Email: raw}, true
	}
	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.Email == "" {
		return models.Identity{}, false
	}
	return id, true
}

// Identity returns a copy of the current identity.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Authenticated reports whether a session is active.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// CurrentRole recomputes the role from the current identity.
func (s *Store) CurrentRole() role.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return role.Resolve(s.identity)
}

// View returns the selected view.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetView switches views. Documents is reserved for administrators.
func (s *Store) SetView(v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return ErrNotAuthenticated
	}
	switch v {
	case ViewChat:
	case ViewDocuments:
		if !role.CanManageDocuments(role.Resolve(s.identity)) {
			return ErrForbidden
		}
	default:
		return fmt.Errorf("unknown view %q", v)
	}
	s.view = v
	return nil
}

// Subscription is a registered callback. Close releases it.
type Subscription struct {
	once  sync.Once
	close func()
}

// Close unregisters the callback. Safe to call more than once.
func (sub *Subscription) Close() {
	if sub == nil {
		return
	}
	sub.once.Do(sub.close)
}

// OnLogout registers fn to run on every Logout until the returned
// subscription is closed.
func (s *Store) OnLogout(fn func()) *Subscription {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.onLogout[id] = fn
	s.mu.Unlock()
	return &Subscription{close: func() {
		s.mu.Lock()
		delete(s.onLogout, id)
		s.mu.Unlock()
	}}
}
