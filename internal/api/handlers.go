package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/publish"
)

// Handler holds API route handlers.
type Handler struct {
	svc *postservice.Service
	pub *publish.Publisher
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service, pub *publish.Publisher) *Handler {
	return &Handler{svc: svc, pub: pub}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrAlreadyPublished), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrLockTimeout):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}

// ListPosts handles GET /api/posts with filtering and pagination.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := h.svc.GetPosts(r.Context(), q.Get("query"), q.Get("category"), q.Get("tag"), page, perPage)
	if err != nil {
		writeError(w, err, "list posts")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreatePost handles POST /api/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	path, err := h.svc.CreatePost(r.Context(), req.Title)
	if err != nil {
		writeError(w, err, "create post")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"path":    path,
	})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, err, "list tags")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		writeError(w, err, "list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// RefreshCache handles POST /api/cache/refresh.
func (h *Handler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means non-forced
	}
	stats, err := h.svc.Refresh(r.Context(), req.Force)
	if err != nil {
		writeError(w, err, "refresh cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"updated_count": stats.Updated,
		"deleted_count": stats.Deleted,
	})
}

// CacheStats handles GET /api/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err, "cache stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetFile handles GET /api/file?path=.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	fc, err := h.svc.GetFile(r.Context(), path)
	if err != nil {
		writeError(w, err, "get file")
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// SaveFile handles POST /api/file/save with optional If-Match optimistic
// concurrency (SHA-256 checksum of the previously read content).
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req SaveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	fc, err := h.svc.SaveFile(r.Context(), req.Path, req.Content, ifMatch)
	if err != nil {
		writeError(w, err, "save file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "file saved",
		"checksum": fc.Checksum,
	})
}

// PublishArticle handles POST /api/article/publish.
func (h *Handler) PublishArticle(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("file_path is required"))
		return
	}
	result, err := h.pub.Publish(r.Context(), req.FilePath)
	if err != nil {
		writeJSON(w, statusFor(err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BulkPublish handles POST /api/article/publish/bulk. Partial success maps
// to 207 Multi-Status.
func (h *Handler) BulkPublish(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.FilePaths) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("file_paths is required"))
		return
	}
	result := h.pub.BulkPublish(r.Context(), req.FilePaths)

	status := http.StatusOK
	switch {
	case result.Success:
		status = http.StatusOK
	case result.PublishedCount > 0:
		status = http.StatusMultiStatus
	default:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

// ArticleStatus handles GET /api/article/status?file_path=.
func (h *Handler) ArticleStatus(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("file_path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("file_path is required"))
		return
	}
	st, err := h.pub.GetStatus(r.Context(), path)
	if err != nil {
		writeError(w, err, "article status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  st,
	})
}

// BulkArticleStatus handles POST /api/article/status/bulk.
// Per-item failures are reported inline and never abort the batch.
func (h *Handler) BulkArticleStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.FilePaths) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("file_paths is required"))
		return
	}
	results := make([]StatusEntry, 0, len(req.FilePaths))
	for _, path := range req.FilePaths {
		entry := StatusEntry{FilePath: path}
		st, err := h.pub.GetStatus(r.Context(), path)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Status = st
		}
		results = append(results, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
		"count":   len(results),
	})
}
