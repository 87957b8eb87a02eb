package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {},
}

// ImageHandler manages per-article image files stored in a pics/ directory
// next to the article.
type ImageHandler struct {
	store storage.Provider
}

// NewImageHandler creates a handler over the content store.
func NewImageHandler(store storage.Provider) *ImageHandler {
	return &ImageHandler{store: store}
}

// picsDir resolves the pics directory for an article path, confined to the
// content root.
func (h *ImageHandler) picsDir(articlePath string) (string, error) {
	abs, err := h.store.Abs(articlePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(abs), "pics"), nil
}

// safeImageName strips everything but alphanumerics, dots, dashes and
// underscores, then checks the extension allowlist.
func safeImageName(name string) (string, bool) {
	var b strings.Builder
	for _, r := range filepath.Base(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || strings.HasPrefix(cleaned, ".") {
		return "", false
	}
	if _, ok := imageExtensions[strings.ToLower(filepath.Ext(cleaned))]; !ok {
		return "", false
	}
	return cleaned, true
}

// Upload handles POST /api/image/upload (multipart/form-data with fields
// "article_path" and "file"). The image lands in the article's pics/ dir
// and the returned URL is relative to the article.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	articlePath := r.FormValue("article_path")
	if articlePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("article_path is required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, ok := safeImageName(header.Filename)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported image filename: "+header.Filename))
		return
	}

	dir, err := h.picsDir(articlePath)
	if err != nil {
		writeError(w, err, "image upload")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create pics dir"))
		return
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"url":     "pics/" + name,
		"message": "image uploaded",
	})
}

// List handles POST /api/image/list and returns the article's images,
// newest first.
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	var req ImageListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ArticlePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("article_path is required"))
		return
	}

	dir, err := h.picsDir(req.ArticlePath)
	if err != nil {
		writeError(w, err, "image list")
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "images": []any{}})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read pics dir"))
		return
	}

	type imageInfo struct {
		Name     string `json:"name"`
		URL      string `json:"url"`
		Size     int64  `json:"size"`
		Modified int64  `json:"modified"`
	}
	var images []imageInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		images = append(images, imageInfo{
			Name:     e.Name(),
			URL:      "pics/" + e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().Unix(),
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Modified > images[j].Modified })

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "images": images})
}
