package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/VinMeld/campus-chat/internal/models"
)

// ErrDocumentNotFound is returned for unknown document ids.
var ErrDocumentNotFound = errors.New("document not found")

// Storage keeps document metadata in a JSON file and content in a BlobStore.
type Storage struct {
	mu        sync.RWMutex
	BaseDir   string
	BlobStore BlobStore
	state     storageState
}

type storageState struct {
	NextID    int                     `json:"next_id"`
	Documents map[int]models.Document `json:"documents"`
}

// NewStorage creates a new Storage instance, loading any saved metadata.
func NewStorage(baseDir string, blobStore BlobStore) (*Storage, error) {
	s := &Storage{
		BaseDir:   baseDir,
		BlobStore: blobStore,
		state:     storageState{NextID: 1, Documents: make(map[int]models.Document)},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) metadataPath() string {
	return filepath.Join(s.BaseDir, "documents.json")
}

func (s *Storage) load() error {
	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return err
	}
	data, err := os.ReadFile(s.metadataPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	if s.state.Documents == nil {
		s.state.Documents = make(map[int]models.Document)
	}
	if s.state.NextID < 1 {
		s.state.NextID = 1
	}
	return nil
}

// saveLocked writes metadata. Caller must hold the write lock.
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.metadataPath(), data, 0644)
}

// AddDocument stores content and records its metadata under a new id.
func (s *Storage) AddDocument(ctx context.Context, filename string, content []byte) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.state.NextID
	if err := s.BlobStore.Save(ctx, strconv.Itoa(id), content); err != nil {
		return models.Document{}, fmt.Errorf("save content: %w", err)
	}
	doc := models.Document{
		ID:         id,
		Filename:   filename,
		SizeMB:     float64(len(content)) / (1024 * 1024),
		UploadedAt: time.Now().UTC(),
		Path:       "documents/" + strconv.Itoa(id) + "/" + filename,
	}
	s.state.Documents[id] = doc
	s.state.NextID++
	if err := s.saveLocked(); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// ListDocuments returns every document ordered by id.
func (s *Storage) ListDocuments() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]models.Document, 0, len(s.state.Documents))
	for _, d := range s.state.Documents {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// GetDocument returns metadata for id.
func (s *Storage) GetDocument(id int) (models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.Documents[id]
	return d, ok
}

// DocumentContent returns the stored bytes of a document.
func (s *Storage) DocumentContent(ctx context.Context, id int) ([]byte, error) {
	if _, ok := s.GetDocument(id); !ok {
		return nil, ErrDocumentNotFound
	}
	return s.BlobStore.Get(ctx, strconv.Itoa(id))
}

// DeleteDocument removes a document and its content.
func (s *Storage) DeleteDocument(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Documents[id]; !ok {
		return ErrDocumentNotFound
	}
	if err := s.BlobStore.Delete(ctx, strconv.Itoa(id)); err != nil {
		return err
	}
	delete(s.state.Documents, id)
	return s.saveLocked()
}
