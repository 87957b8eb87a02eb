package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/publish"
	"github.com/starford/ansuz/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *postservice.Service, pub *publish.Publisher, store storage.Provider,
	authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, pub)
	ih := NewImageHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Post listing and aggregates.
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Get("/tags", h.Tags)
	r.Get("/categories", h.Categories)

	// Cache maintenance.
	r.Post("/cache/refresh", h.RefreshCache)
	r.Get("/cache/stats", h.CacheStats)

	// Raw file editing.
	r.Get("/file", h.GetFile)
	r.Post("/file/save", h.SaveFile)

	// Publish workflow.
	r.Post("/article/publish", h.PublishArticle)
	r.Post("/article/publish/bulk", h.BulkPublish)
	r.Get("/article/status", h.ArticleStatus)
	r.Post("/article/status/bulk", h.BulkArticleStatus)

	// Per-article images.
	r.Post("/image/upload", ih.Upload)
	r.Post("/image/list", ih.List)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
