// Package postservice is the read layer over the post cache, plus the raw
// file editing operations the admin UI needs.
package postservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
)

const defaultPerPage = 20

// PostListItem is one entry of a paginated listing.
type PostListItem struct {
	Title       string   `json:"title"`
	Path        string   `json:"path"`
	FullPath    string   `json:"full_path"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
	Draft       bool     `json:"draft"`
	ModTime     string   `json:"mod_time"`
}

// PostPage is the paginated result envelope.
type PostPage struct {
	Posts      []PostListItem `json:"posts"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
	HasNext    bool           `json:"has_next"`
	HasPrev    bool           `json:"has_prev"`
}

// CacheStats summarises the cache contents.
type CacheStats struct {
	TotalPosts      int  `json:"total_posts"`
	TotalTags       int  `json:"total_tags"`
	TotalCategories int  `json:"total_categories"`
	Initialized     bool `json:"initialized"`
}

// FileContent is a raw content file with its concurrency token.
type FileContent struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// Service coordinates cache queries and direct file edits.
type Service struct {
	store  storage.Provider
	db     index.PostIndex
	syncer *index.Syncer
}

// NewService creates a new post service.
func NewService(store storage.Provider, db index.PostIndex, syncer *index.Syncer) *Service {
	return &Service{store: store, db: db, syncer: syncer}
}

// GetPosts returns one page of posts matching the given filters. The first
// call on a cold cache triggers a full reconciliation.
func (s *Service) GetPosts(_ context.Context, query, category, tag string, page, perPage int) (*PostPage, error) {
	if err := s.syncer.EnsureInitialized(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}

	var all []models.Post
	var err error
	if query != "" || category != "" || tag != "" {
		all, err = s.db.Search(query, category, tag)
	} else {
		all, err = s.db.ListAll("")
	}
	if err != nil {
		return nil, err
	}

	total := len(all)
	totalPages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := make([]PostListItem, 0, end-start)
	for _, p := range all[start:end] {
		items = append(items, toListItem(p))
	}
	return &PostPage{
		Posts:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// GetPost returns the cached record for one path.
func (s *Service) GetPost(_ context.Context, path string) (*models.Post, error) {
	if err := s.syncer.EnsureInitialized(); err != nil {
		return nil, err
	}
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	return s.db.Get(abs)
}

// Tags returns all tags with post counts, most used first.
func (s *Service) Tags(_ context.Context) ([]models.NameCount, error) {
	if err := s.syncer.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s.db.TagCounts()
}

// Categories returns all categories with post counts, most used first.
func (s *Service) Categories(_ context.Context) ([]models.NameCount, error) {
	if err := s.syncer.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s.db.CategoryCounts()
}

// Refresh runs a reconciliation pass and reports what changed.
func (s *Service) Refresh(_ context.Context, force bool) (index.SyncStats, error) {
	return s.syncer.Sync(force)
}

// Stats returns cache-level statistics.
func (s *Service) Stats(ctx context.Context) (*CacheStats, error) {
	posts, err := s.db.ListAll("")
	if err != nil {
		return nil, err
	}
	tags, err := s.db.TagCounts()
	if err != nil {
		return nil, err
	}
	cats, err := s.db.CategoryCounts()
	if err != nil {
		return nil, err
	}
	return &CacheStats{
		TotalPosts:      len(posts),
		TotalTags:       len(tags),
		TotalCategories: len(cats),
		Initialized:     s.syncer.Initialized(),
	}, nil
}

// GetFile reads a raw content file for editing.
func (s *Service) GetFile(_ context.Context, path string) (*FileContent, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &FileContent{
		Path:     path,
		Content:  string(data),
		Checksum: checksum.Sum(data),
	}, nil
}

// SaveFile writes edited content back with optimistic concurrency: when
// ifMatch is non-empty it must equal the checksum of the file as it is on
// disk, otherwise the save is rejected with a conflict. The cache row for
// the file is re-derived after a successful write.
func (s *Service) SaveFile(_ context.Context, path, content, ifMatch string) (*FileContent, error) {
	existing, err := s.store.Read(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if ifMatch != "" {
		if existing == nil || ifMatch != checksum.Sum(existing) {
			return nil, apperr.ErrConflict
		}
	}
	data := []byte(content)
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}
	if err := s.syncer.Invalidate(path); err != nil {
		return nil, err
	}
	return &FileContent{
		Path:     path,
		Content:  content,
		Checksum: checksum.Sum(data),
	}, nil
}

// CreatePost scaffolds a new draft article under post/<date>-<title>/index.md
// and returns its root-relative path.
func (s *Service) CreatePost(_ context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("postservice: title is required")
	}

	now := time.Now()
	slug := strings.ReplaceAll(now.Format("2006-01-02")+"-"+title, " ", "-")
	rel := filepath.Join("post", slug, "index.md")

	if _, err := s.store.Read(rel); err == nil {
		return "", fmt.Errorf("postservice: %s: %w", rel, apperr.ErrConflict)
	}

	fm := struct {
		Title      string   `yaml:"title"`
		Date       string   `yaml:"date"`
		Draft      bool     `yaml:"draft"`
		Categories []string `yaml:"categories"`
		Tags       []string `yaml:"tags"`
	}{
		Title:      title,
		Date:       now.Format(time.RFC3339),
		Draft:      true,
		Categories: []string{},
		Tags:       []string{},
	}
	block, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("postservice: marshal frontmatter: %w", err)
	}

	content := "---\n" + string(block) + "---\n\n"
	if err := s.store.Write(rel, []byte(content)); err != nil {
		return "", err
	}
	if err := s.syncer.Invalidate(rel); err != nil {
		return "", err
	}
	return rel, nil
}

func toListItem(p models.Post) PostListItem {
	date := ""
	if p.Date != nil {
		date = p.Date.Format("2006-01-02")
	}
	return PostListItem{
		Title:       p.Title,
		Path:        p.RelativePath,
		FullPath:    p.Path,
		Date:        date,
		Description: p.Description,
		Excerpt:     p.Excerpt,
		Tags:        p.Tags,
		Categories:  p.Categories,
		Draft:       p.Draft,
		ModTime:     time.Unix(0, p.ModTime).Format("2006-01-02 15:04"),
	}
}
