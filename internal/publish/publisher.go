// Package publish implements the guarded draft-to-published transition for
// articles, writing through the filesystem under per-file advisory locks.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// DefaultLockTimeout bounds how long a publish waits for the file lock.
const DefaultLockTimeout = 10 * time.Second

// publishZone is the fixed offset stamped into publishDate.
var publishZone = time.FixedZone("UTC+8", 8*60*60)

// Result is the outcome of a single publish attempt. OperationID is set
// regardless of outcome, for traceability.
type Result struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	OperationID string `json:"operation_id"`
}

// BulkItem is the outcome of one path within a bulk publish.
type BulkItem struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BulkResult aggregates a bulk publish. Success is true only when zero
// items failed.
type BulkResult struct {
	Success        bool       `json:"success"`
	TotalCount     int        `json:"total_count"`
	PublishedCount int        `json:"published_count"`
	FailedCount    int        `json:"failed_count"`
	OperationID    string     `json:"operation_id"`
	DurationMS     int64      `json:"duration_ms"`
	Results        []BulkItem `json:"results"`
}

// Status is the read-only publish state of an article.
type Status struct {
	IsDraft       bool           `json:"is_draft"`
	IsPublishable bool           `json:"is_publishable"`
	LastPublished *time.Time     `json:"last_published"`
	PublishErrors []string       `json:"publish_errors"`
	Metadata      map[string]any `json:"metadata"`
}

// Publisher performs draft-flag transitions on article files.
type Publisher struct {
	store       storage.Provider
	syncer      *index.Syncer
	locker      Locker
	logger      *slog.Logger
	lockTimeout time.Duration
	now         func() time.Time
}

// NewPublisher creates a Publisher with the default flock-based locker.
func NewPublisher(store storage.Provider, syncer *index.Syncer, logger *slog.Logger, lockTimeout time.Duration) *Publisher {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Publisher{
		store:       store,
		syncer:      syncer,
		locker:      FlockLocker{},
		logger:      logger,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// Publish flips draft to false on the article at path and stamps a
// publishDate (fixed UTC+8) if one is not already present. Publishing an
// already-published article fails terminally; the file is left untouched.
// Only one lock is ever held per operation, so no deadlock is possible.
func (p *Publisher) Publish(_ context.Context, path string) (*Result, error) {
	opID := uuid.NewString()

	abs, err := p.store.Abs(path)
	if err != nil {
		return failure(opID, "access denied: path outside the content directory"), err
	}
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		return failure(opID, fmt.Sprintf("article does not exist: %s", path)),
			fmt.Errorf("publish: %s: %w", path, apperr.ErrNotFound)
	}

	lock, err := p.locker.Acquire(abs, p.lockTimeout)
	if err != nil {
		return failure(opID, "could not lock article for publishing"), err
	}
	defer lock.Release()

	// Reload under the lock; the file may have changed since any earlier read.
	data, err := p.store.Read(abs)
	if err != nil {
		return failure(opID, "failed to read article"), err
	}

	res := parser.Parse(data)
	fm := res.Frontmatter
	if fm == nil {
		fm = map[string]any{}
	}
	if !parser.IsDraft(fm) {
		return failure(opID, "article is already published"),
			fmt.Errorf("publish: %s: %w", path, apperr.ErrAlreadyPublished)
	}

	fm["draft"] = false
	if _, ok := fm["publishDate"]; !ok {
		fm["publishDate"] = p.now().In(publishZone).Format(time.RFC3339)
	}

	out, err := renderArticle(fm, res.Body)
	if err != nil {
		return failure(opID, "failed to serialize article metadata"), err
	}
	if err := atomic.WriteFile(abs, strings.NewReader(out)); err != nil {
		return failure(opID, "failed to write article"),
			fmt.Errorf("publish: write %s: %w", path, err)
	}

	if err := p.syncer.Invalidate(abs); err != nil {
		p.logger.Warn("publish: cache invalidation failed",
			slog.String("path", abs), slog.String("error", err.Error()))
	}

	p.logger.Info("publish: article published",
		slog.String("path", abs), slog.String("operation_id", opID))
	return &Result{Success: true, Message: "article published", OperationID: opID}, nil
}

// BulkPublish publishes each path in order. Per-item failures never abort
// the batch; there is no cross-file atomicity.
func (p *Publisher) BulkPublish(ctx context.Context, paths []string) *BulkResult {
	start := p.now()
	bulk := &BulkResult{
		TotalCount:  len(paths),
		OperationID: uuid.NewString(),
		Results:     make([]BulkItem, 0, len(paths)),
	}

	for _, path := range paths {
		res, err := p.Publish(ctx, path)
		item := BulkItem{Path: path, Success: res.Success, Message: res.Message}
		if err != nil && !res.Success {
			p.logger.Warn("publish: bulk item failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		if item.Success {
			bulk.PublishedCount++
		} else {
			bulk.FailedCount++
		}
		bulk.Results = append(bulk.Results, item)
	}

	bulk.Success = bulk.FailedCount == 0
	bulk.DurationMS = time.Since(start).Milliseconds()
	return bulk
}

// GetStatus returns the publish state of an article without modifying it.
// Validation problems (missing title, missing date) are surfaced as
// warnings, not failures.
func (p *Publisher) GetStatus(_ context.Context, path string) (*Status, error) {
	abs, err := p.store.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := p.store.Read(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("publish: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}

	res := parser.Parse(data)
	fm := res.Frontmatter
	draft := parser.IsDraft(fm)

	st := &Status{
		IsDraft:       draft,
		IsPublishable: draft,
		PublishErrors: []string{},
		Metadata:      fm,
	}
	if title, _ := fm["title"].(string); title == "" {
		st.PublishErrors = append(st.PublishErrors, "missing title")
	}
	if _, ok := fm["date"]; !ok {
		st.PublishErrors = append(st.PublishErrors, "missing date")
	}
	if !draft {
		if s, ok := fm["publishDate"].(string); ok {
			st.LastPublished = parser.ParseDate(s)
		} else if t, ok := fm["publishDate"].(time.Time); ok {
			st.LastPublished = &t
		}
	}
	return st, nil
}

// renderArticle reassembles frontmatter and body into file content.
func renderArticle(fm map[string]any, body string) (string, error) {
	block, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("publish: marshal frontmatter: %w", err)
	}
	return "---\n" + string(block) + "---\n\n" + body, nil
}

func failure(opID, message string) *Result {
	return &Result{Success: false, Message: message, OperationID: opID}
}
