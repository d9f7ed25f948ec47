package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/VinMeld/campus-chat/internal/models"
)

const maxUploadBytes = 32 << 20

type Handler struct {
	Storage   *Storage
	Index     *Index
	Directory *Directory
	Metrics   *Metrics
	PublicURL string

	askLimiter *limiterPool
}

func NewHandler(storage *Storage, index *Index, dir *Directory, metrics *Metrics, askPerMinute int) *Handler {
	return &Handler{
		Storage:    storage,
		Index:      index,
		Directory:  dir,
		Metrics:    metrics,
		askLimiter: newLimiterPool(askPerMinute),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// Ask answers a question from the indexed documents.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	if !h.askLimiter.allow(r) {
		writeError(w, http.StatusTooManyRequests, "Too many questions, please wait a moment")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	answer, matched := h.Index.Answer(query)
	outcome := "fallback"
	if matched {
		outcome = "matched"
	}
	h.Metrics.asks.WithLabelValues(outcome).Inc()
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: answer})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.DocumentList{Data: h.Storage.ListDocuments()})
}

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "A file field is required"})
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "Could not read upload"})
		return
	}
	name := filepath.Base(header.Filename)
	doc, err := h.Storage.AddDocument(r.Context(), name, content)
	if err != nil {
		slog.Error("failed to store document", "filename", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.MessageResponse{Message: "Failed to store document"})
		return
	}
	if err := h.Index.Add(doc.ID, doc.Filename, content); err != nil {
		slog.Warn("document stored but not indexed", "id", doc.ID, "error", err)
	}
	h.Metrics.documents.Set(float64(len(h.Storage.ListDocuments())))
	slog.Info("document uploaded", "id", doc.ID, "filename", doc.Filename, "bytes", len(content))
	writeJSON(w, http.StatusCreated, models.MessageResponse{Message: fmt.Sprintf("Document %s uploaded successfully", doc.Filename)})
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "Invalid document id"})
		return
	}
	if err := h.Storage.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			writeJSON(w, http.StatusNotFound, models.MessageResponse{Message: "Document not found"})
			return
		}
		slog.Error("failed to delete document", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.MessageResponse{Message: "Failed to delete document"})
		return
	}
	h.Index.Remove(id)
	h.Metrics.documents.Set(float64(len(h.Storage.ListDocuments())))
	slog.Info("document deleted", "id", id)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Document deleted successfully"})
}
