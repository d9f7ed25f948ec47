package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/VinMeld/campus-chat/internal/models"
	"github.com/VinMeld/campus-chat/internal/transport"
)

func newTestServer(t *testing.T, mutate func(*Config)) *httptest.Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.DemoPassword = "secret"
	if mutate != nil {
		mutate(cfg)
	}
	srv, err := NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, base, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", filename)
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	resp, err := http.Post(base+transport.PathUpload, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestDocumentLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := upload(t, ts.URL, "horarios.txt", "Office hours are Monday through Friday from eight to four.")
	var msg models.MessageResponse
	_ = json.NewDecoder(resp.Body).Decode(&msg)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || !strings.Contains(msg.Message, "horarios.txt") {
		t.Fatalf("upload: %d %q", resp.StatusCode, msg.Message)
	}

	resp, err := http.Get(ts.URL + transport.PathDocuments)
	if err != nil {
		t.Fatal(err)
	}
	var list models.DocumentList
	_ = json.NewDecoder(resp.Body).Decode(&list)
	_ = resp.Body.Close()
	if len(list.Data) != 1 || list.Data[0].Filename != "horarios.txt" {
		t.Fatalf("list: %+v", list)
	}

	resp, err = http.Get(ts.URL + transport.PathAsk + "?query=" + url.QueryEscape("office hours"))
	if err != nil {
		t.Fatal(err)
	}
	_ = json.NewDecoder(resp.Body).Decode(&msg)
	_ = resp.Body.Close()
	if !strings.HasPrefix(msg.Message, "According to horarios.txt") {
		t.Errorf("ask: %q", msg.Message)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/document/1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete: %d", resp.StatusCode)
	}

	resp, _ = http.DefaultClient.Do(req)
	_ = json.NewDecoder(resp.Body).Decode(&msg)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || msg.Message != "Document not found" {
		t.Errorf("second delete: %d %q", resp.StatusCode, msg.Message)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+transport.PathUpload, "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAskValidationAndRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.AskRatePerMinute = 2 })

	resp, _ := http.Get(ts.URL + transport.PathAsk)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty query: %d", resp.StatusCode)
	}

	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + transport.PathAsk + "?query=hello")
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", last)
	}
}

func TestLoginInitiationAndAuthorize(t *testing.T) {
	ts := newTestServer(t, nil)
	opener := "http://127.0.0.1:5555/message"

	resp, err := http.Get(ts.URL + transport.PathLogin + "?" + url.Values{"opener": {opener}, "state": {"s1"}}.Encode())
	if err != nil {
		t.Fatal(err)
	}
	var initResp models.LoginInitiation
	_ = json.NewDecoder(resp.Body).Decode(&initResp)
	_ = resp.Body.Close()
	if !strings.HasPrefix(initResp.RedirectURL, ts.URL+transport.PathAuthorize) {
		t.Fatalf("redirect %q", initResp.RedirectURL)
	}

	req, _ := http.NewRequest(http.MethodGet, initResp.RedirectURL+"&login_hint=2715282023@mail.utec.edu.sv", nil)
	req.Header.Set("Accept", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var res models.AuthorizeResult
	_ = json.NewDecoder(resp.Body).Decode(&res)
	_ = resp.Body.Close()
	if res.Opener != opener || res.Message.State != "s1" || res.Message.User == nil || res.Message.User.RoleID != 3 {
		t.Errorf("authorize result %+v", res)
	}

	// HTML callback page posts to the opener.
	resp, err = http.Get(initResp.RedirectURL)
	if err != nil {
		t.Fatal(err)
	}
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") || !strings.Contains(body.String(), "fetch(") {
		t.Errorf("unexpected callback page: %s", body.String())
	}
}

func TestLoginInitiationRejectsRemoteOpener(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + transport.PathLogin + "?" + url.Values{"opener": {"http://evil.example/steal"}, "state": {"s"}}.Encode())
	if err != nil {
		t.Fatal(err)
	}
	var initResp models.LoginInitiation
	_ = json.NewDecoder(resp.Body).Decode(&initResp)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || initResp.Error == "" {
		t.Errorf("expected rejection, got %d %+v", resp.StatusCode, initResp)
	}
}

func TestAuthorizeUnknownHint(t *testing.T) {
	ts := newTestServer(t, nil)
	q := url.Values{"opener": {"http://localhost:1/message"}, "state": {"s"}, "login_hint": {"nobody@example.com"}}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+transport.PathAuthorize+"?"+q.Encode(), nil)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var res models.AuthorizeResult
	_ = json.NewDecoder(resp.Body).Decode(&res)
	_ = resp.Body.Close()
	if res.Message.User != nil || res.Message.Error == "" {
		t.Errorf("expected error payload, got %+v", res.Message)
	}
}

func TestSystemLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	post := func(email, pw string) (int, models.SystemLoginResponse) {
		data, _ := json.Marshal(models.SystemLoginRequest{Email: email, Password: pw})
		resp, err := http.Post(ts.URL+transport.PathSystemLogin, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = resp.Body.Close() }()
		var out models.SystemLoginResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, out := post("Estefany.Perez@mail.utec.edu.sv", "secret")
	if status != http.StatusOK || out.User == nil || out.User.RoleID != 1 {
		t.Errorf("valid login: %d %+v", status, out)
	}
	status, out = post("estefany.perez@mail.utec.edu.sv", "wrong")
	if status != http.StatusUnauthorized || out.Detail != "Invalid credentials" {
		t.Errorf("bad password: %d %+v", status, out)
	}
}

func TestPingAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + transport.PathPing)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ping: %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + transport.PathMetrics)
	if err != nil {
		t.Fatal(err)
	}
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(body.String(), "campus_chat_http_requests_total") {
		t.Error("metrics should include request counter")
	}
}

func TestAskOutcomeMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := upload(t, ts.URL, "horarios.txt", "Office hours are Monday through Friday from eight to four.")
	_ = resp.Body.Close()

	for _, q := range []string{"When are office hours?", "quantum chromodynamics"} {
		resp, err := http.Get(ts.URL + transport.PathAsk + "?query=" + url.QueryEscape(q))
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("ask %q: %d", q, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + transport.PathMetrics)
	if err != nil {
		t.Fatal(err)
	}
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	for _, want := range []string{
		`campus_chat_asks_total{outcome="matched"} 1`,
		`campus_chat_asks_total{outcome="fallback"} 1`,
	} {
		if !strings.Contains(body.String(), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
