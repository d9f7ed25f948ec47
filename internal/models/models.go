package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Identity is the authenticated user as reported by the identity callback.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	RoleID      int    `json:"roleId"`
}

// Document is a reference document held by the backend.
type Document struct {
	ID         int       `json:"id"`
	Filename   string    `json:"filename"`
	SizeMB     float64   `json:"size_mb"`
	UploadedAt time.Time `json:"uploaded_at"`
	Path       string    `json:"path"`
}

// LoginInitiation is the response of the login initiation endpoint.
type LoginInitiation struct {
	RedirectURL string `json:"redirectUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// LoginMessage is the payload relayed from the login window to its opener.
// Exactly one of User or Error is set on a well-formed message.
type LoginMessage struct {
	User  *Identity `json:"user,omitempty"`
	Error string    `json:"error,omitempty"`
	State string    `json:"state,omitempty"`
}

// SystemLoginRequest is the body of the local email/password login.
type SystemLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SystemLoginResponse is returned by the local login endpoint.
type SystemLoginResponse struct {
	User   *Identity `json:"user,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// AskResponse is returned by the ask endpoint.
type AskResponse struct {
	Message *string `json:"message"`
}

// MessageResponse is the generic {message} body used by document mutations.
type MessageResponse struct {
	Message string `json:"message"`
}

// DocumentList is the wrapped form of the document listing.
type DocumentList struct {
	Data []Document `json:"data"`
}

// DecodeDocuments accepts either {"data": [...]} or a bare array.
func DecodeDocuments(raw []byte) ([]Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var list DocumentList
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// AuthorizeResult is the JSON form of the simulated identity provider's
// callback: the message and where it is meant to be posted.
type AuthorizeResult struct {
	Opener  string       `json:"opener"`
	Message LoginMessage `json:"message"`
}
