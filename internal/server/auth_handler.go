package server

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/VinMeld/campus-chat/internal/models"
	"github.com/VinMeld/campus-chat/internal/transport"
)

// Directory is the simulated identity provider's account list.
type Directory struct {
	accounts     []Account
	passwordHash []byte
}

// NewDirectory hashes the shared demo password once at startup.
func NewDirectory(accounts []Account, demoPassword string) (*Directory, error) {
	d := &Directory{accounts: accounts}
	if demoPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		d.passwordHash = hash
	}
	return d, nil
}

func (d *Directory) Lookup(email string) (models.Identity, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range d.accounts {
		if strings.ToLower(a.Email) == email {
			return a.identity(), true
		}
	}
	return models.Identity{}, false
}

// Pick returns a random account, mirroring a provider where whoever is at
// the keyboard signs in.
func (d *Directory) Pick() models.Identity {
	return d.accounts[rand.Intn(len(d.accounts))].identity()
}

// Authenticate checks the shared demo password for a known account.
func (d *Directory) Authenticate(email, password string) (models.Identity, bool) {
	id, ok := d.Lookup(email)
	if !ok || d.passwordHash == nil {
		return models.Identity{}, false
	}
	if bcrypt.CompareHashAndPassword(d.passwordHash, []byte(password)) != nil {
		return models.Identity{}, false
	}
	return id, true
}

func (a Account) identity() models.Identity {
	return models.Identity{Email: a.Email, DisplayName: a.Name, RoleID: a.RoleID}
}

// loopbackOpener accepts only http URLs on the local machine, so identities
// are never posted to a third party.
func loopbackOpener(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.PublicURL != "" {
		return strings.TrimRight(h.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// HandleLoginInitiation returns where the login window should navigate.
func (h *Handler) HandleLoginInitiation(w http.ResponseWriter, r *http.Request) {
	opener := r.URL.Query().Get("opener")
	state := r.URL.Query().Get("state")
	if opener == "" || state == "" {
		writeJSON(w, http.StatusBadRequest, models.LoginInitiation{Error: "opener and state are required"})
		return
	}
	if !loopbackOpener(opener) {
		slog.Warn("login initiation with non-loopback opener rejected", "opener", opener)
		writeJSON(w, http.StatusBadRequest, models.LoginInitiation{Error: "opener must be a loopback http URL"})
		return
	}

	q := url.Values{"opener": {opener}, "state": {state}}
	if hint := r.URL.Query().Get("login_hint"); hint != "" {
		q.Set("login_hint", hint)
	}
	redirect := h.baseURL(r) + transport.PathAuthorize + "?" + q.Encode()
	writeJSON(w, http.StatusOK, models.LoginInitiation{RedirectURL: redirect})
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Signing in</title></head>
<body>
<p>{{if .Message.User}}Signed in as {{.Message.User.Email}}. You can close this window.{{else}}Sign-in failed: {{.Message.Error}}{{end}}</p>
<script>
const opener = {{.Opener}};
const payload = {{.Payload}};
fetch(opener, {method: "POST", mode: "no-cors", headers: {"Content-Type": "text/plain"}, body: payload})
  .finally(() => setTimeout(() => window.close(), 300));
</script>
</body>
</html>
`))

// HandleAuthorize is the simulated identity provider. It signs in the
// login_hint account, or a random one, and posts the result to the opener.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opener, state := q.Get("opener"), q.Get("state")
	if !loopbackOpener(opener) || state == "" {
		http.Error(w, "invalid opener or state", http.StatusBadRequest)
		return
	}

	msg := models.LoginMessage{State: state}
	if hint := q.Get("login_hint"); hint != "" {
		if id, ok := h.Directory.Lookup(hint); ok {
			msg.User = &id
		} else {
			msg.Error = "Login simulation failed. Unknown account " + hint
		}
	} else {
		id := h.Directory.Pick()
		msg.User = &id
	}
	if msg.User != nil {
		slog.Info("simulated sign-in", "email", msg.User.Email)
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, models.AuthorizeResult{Opener: opener, Message: msg})
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(w, struct {
		Opener  string
		Payload string
		Message models.LoginMessage
	}{Opener: opener, Payload: string(payload), Message: msg}); err != nil {
		slog.Error("render callback page", "error", err)
	}
}

// HandleSystemLogin is the local email/password login.
func (h *Handler) HandleSystemLogin(w http.ResponseWriter, r *http.Request) {
	var req models.SystemLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SystemLoginResponse{Detail: "invalid request body"})
		return
	}
	id, ok := h.Directory.Authenticate(req.Email, req.Password)
	if !ok {
		slog.Warn("system login failed", "email", req.Email)
		writeJSON(w, http.StatusUnauthorized, models.SystemLoginResponse{Detail: "Invalid credentials"})
		return
	}
	slog.Info("system login", "email", id.Email)
	writeJSON(w, http.StatusOK, models.SystemLoginResponse{User: &id})
}
