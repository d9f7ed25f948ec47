package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/VinMeld/campus-chat/internal/transport"
)

// Server represents the HTTP server.
type Server struct {
	Config  *Config
	Storage *Storage
	Handler *Handler
	Router  *mux.Router
	Server  *http.Server
}

// NewServer builds storage, the retrieval index and the router from cfg.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewStorage(cfg.DataDir, blobs)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	dir, err := NewDirectory(cfg.Accounts, cfg.DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to init accounts: %w", err)
	}

	index := NewIndex()
	for _, doc := range store.ListDocuments() {
		content, err := store.DocumentContent(ctx, doc.ID)
		if err != nil {
			slog.Warn("skipping unreadable document", "id", doc.ID, "error", err)
			continue
		}
		if err := index.Add(doc.ID, doc.Filename, content); err != nil {
			slog.Warn("skipping unindexable document", "id", doc.ID, "error", err)
		}
	}

	metrics := NewMetrics()
	metrics.documents.Set(float64(len(store.ListDocuments())))
	h := NewHandler(store, index, dir, metrics, cfg.AskRatePerMinute)
	h.PublicURL = cfg.PublicURL

	r := NewRouter(h)
	return &Server{
		Config:  cfg,
		Storage: store,
		Handler: h,
		Router:  r,
		Server:  &http.Server{Addr: cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second},
	}, nil
}

func newBlobStore(ctx context.Context, cfg *Config) (BlobStore, error) {
	switch cfg.Storage.Type {
	case StorageS3:
		slog.Info("Using S3 Storage", "bucket", cfg.Storage.Bucket)
		s, err := NewS3BlobStore(ctx, cfg.Storage.Bucket, cfg.Storage.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 blob store: %w", err)
		}
		return s, nil
	case StorageMinio:
		slog.Info("Using MinIO Storage", "endpoint", cfg.Storage.Minio.Endpoint, "bucket", cfg.Storage.Minio.Bucket)
		s, err := NewMinioBlobStore(ctx, cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO blob store: %w", err)
		}
		return s, nil
	default:
		slog.Info("Using Local Storage", "dir", cfg.DataDir)
		return NewLocalBlobStore(cfg.DataDir), nil
	}
}

// NewRouter wires every backend endpoint.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(h.Metrics))

	r.HandleFunc(transport.PathPing, h.Ping).Methods(http.MethodGet)
	r.Handle(transport.PathMetrics, h.Metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc(transport.PathLogin, h.HandleLoginInitiation).Methods(http.MethodGet)
	r.HandleFunc(transport.PathAuthorize, h.HandleAuthorize).Methods(http.MethodGet)
	r.HandleFunc(transport.PathSystemLogin, h.HandleSystemLogin).Methods(http.MethodPost)

	r.HandleFunc(transport.PathAsk, h.Ask).Methods(http.MethodGet)
	r.HandleFunc(transport.PathDocuments, h.ListDocuments).Methods(http.MethodGet)
	r.HandleFunc(transport.PathUpload, h.UploadDocument).Methods(http.MethodPost)
	r.HandleFunc(transport.PathDocumentPrefix+"{id:[0-9]+}", h.DeleteDocument).Methods(http.MethodDelete)
	return r
}

// Start starts the server.
func (s *Server) Start() error {
	slog.Info("Server starting", "addr", s.Server.Addr)
	return s.Server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
