// Package api is the HTTP client for the chat backend: login initiation,
// local login, the ask endpoint and document management.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VinMeld/campus-chat/internal/models"
	"github.com/VinMeld/campus-chat/internal/transport"
)

var (
	// ErrAPIUnavailable means no backend URL is configured.
	ErrAPIUnavailable = errors.New("api unavailable: backend URL not configured")
	// ErrRequestFailed matches every non-2xx response and malformed body.
	ErrRequestFailed = errors.New("request failed")
)

// APIError carries the backend's explanation of a failed request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Is(target error) bool { return target == ErrRequestFailed }

const defaultTimeout = 10 * time.Second

// Client talks to one backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL. An empty baseURL is allowed; every call
// then fails with ErrAPIUnavailable.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// BaseURL returns the configured backend URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, ErrAPIUnavailable
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses are
// turned into an *APIError using whatever message the backend supplied.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response body: %v", err)}
	}
	return nil
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, m := range []string{payload.Error, payload.Message, payload.Detail} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// InitiateLogin asks the backend where the login window should go. opener
// and state tell the identity callback where to deliver its message.
func (c *Client) InitiateLogin(ctx context.Context, opener, state string) (string, error) {
	q := url.Values{}
	if opener != "" {
		q.Set("opener", opener)
	}
	if state != "" {
		q.Set("state", state)
	}
	req, err := c.newRequest(ctx, http.MethodGet, transport.PathLogin, q, nil)
	if err != nil {
		return "", err
	}
	var init models.LoginInitiation
	if err := c.do(req, &init); err != nil {
		return "", err
	}
	if init.Error != "" {
		return "", &APIError{Status: http.StatusOK, Message: init.Error}
	}
	if init.RedirectURL == "" {
		return "", &APIError{Status: http.StatusOK, Message: "login initiation returned no redirect URL"}
	}
	return init.RedirectURL, nil
}

// SystemLogin performs the local email/password login.
func (c *Client) SystemLogin(ctx context.Context, email, password string) (models.Identity, error) {
	data, err := json.Marshal(models.SystemLoginRequest{Email: email, Password: password})
	if err != nil {
		return models.Identity{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, transport.PathSystemLogin, nil, bytes.NewReader(data))
	if err != nil {
		return models.Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp models.SystemLoginResponse
	if err := c.do(req, &resp); err != nil {
		return models.Identity{}, err
	}
	if resp.User == nil {
		msg := resp.Detail
		if msg == "" {
			msg = "login response carried no user"
		}
		return models.Identity{}, &APIError{Status: http.StatusOK, Message: msg}
	}
	return *resp.User, nil
}

// Ask sends a question and returns the assistant's answer.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, transport.PathAsk, url.Values{"query": {query}}, nil)
	if err != nil {
		return "", err
	}
	var out models.AskResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.Message == nil {
		return "", &APIError{Status: http.StatusOK, Message: "response has no message text"}
	}
	return *out.Message, nil
}

// ListDocuments returns the backend's document listing.
func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, transport.PathDocuments, nil, nil)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	docs, err := models.DecodeDocuments(raw)
	if err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: fmt.Sprintf("malformed document list: %v", err)}
	}
	return docs, nil
}

// UploadDocument sends content as a multipart "file" field.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, transport.PathUpload, nil, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp models.MessageResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteDocument removes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, id int) (string, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, transport.PathDocumentPrefix+strconv.Itoa(id), nil, nil)
	if err != nil {
		return "", err
	}
	var resp models.MessageResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Ping checks reachability and returns the round-trip latency.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	req, err := c.newRequest(ctx, http.MethodGet, transport.PathPing, nil, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	if err := c.do(req, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
