// Package registry caches the backend's document listing and refreshes it
// after every successful mutation.
package registry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/VinMeld/campus-chat/internal/models"
)

// Backend is the subset of the API client the registry needs.
type Backend interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UploadDocument(ctx context.Context, filename string, content io.Reader) (string, error)
	DeleteDocument(ctx context.Context, id int) (string, error)
}

type Registry struct {
	backend Backend

	mu     sync.RWMutex
	cached []models.Document
}

func New(backend Backend) *Registry {
	return &Registry{backend: backend}
}

// List fetches the listing and replaces the cache with it.
func (r *Registry) List(ctx context.Context) ([]models.Document, error) {
	docs, err := r.backend.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cached = append([]models.Document(nil), docs...)
	r.mu.Unlock()
	return docs, nil
}

// Upload sends a document and refreshes the listing. The backend's
// confirmation message is returned.
func (r *Registry) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	msg, err := r.backend.UploadDocument(ctx, filename, content)
	if err != nil {
		return "", err
	}
	if _, err := r.List(ctx); err != nil {
		return msg, fmt.Errorf("refresh after upload: %w", err)
	}
	return msg, nil
}

// Remove deletes a document and refreshes the listing.
func (r *Registry) Remove(ctx context.Context, id int) (string, error) {
	msg, err := r.backend.DeleteDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := r.List(ctx); err != nil {
		return msg, fmt.Errorf("refresh after delete: %w", err)
	}
	return msg, nil
}

// Cached returns the listing from the last successful List.
func (r *Registry) Cached() []models.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Document(nil), r.cached...)
}
