package api

import (
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/publish"
)

// CreatePostRequest is the request body for scaffolding a new article.
type CreatePostRequest struct {
	Title string `json:"title"`
}

// SaveFileRequest is the request body for saving edited file content.
type SaveFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RefreshRequest is the request body for a cache refresh.
type RefreshRequest struct {
	Force bool `json:"force"`
}

// PublishRequest is the request body for publishing a single article.
type PublishRequest struct {
	FilePath string `json:"file_path"`
}

// BulkRequest is the request body for bulk publish and bulk status.
type BulkRequest struct {
	FilePaths []string `json:"file_paths"`
}

// ImageListRequest is the request body for listing article images.
type ImageListRequest struct {
	ArticlePath string `json:"article_path"`
}

// PostPage is the paginated listing envelope (aliased from the domain layer).
type PostPage = postservice.PostPage

// NameCount is one tag or category aggregate entry.
type NameCount = models.NameCount

// PublishResult is the single-publish response payload.
type PublishResult = publish.Result

// BulkPublishResult is the bulk-publish response payload.
type BulkPublishResult = publish.BulkResult

// PublishStatus is the article status payload.
type PublishStatus = publish.Status

// StatusEntry pairs a path with its publish status in bulk responses.
type StatusEntry struct {
	FilePath string          `json:"file_path"`
	Status   *publish.Status `json:"status,omitempty"`
	Error    string          `json:"error,omitempty"`
}
