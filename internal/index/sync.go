package index

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// SyncStats reports the work one reconciliation pass performed.
type SyncStats struct {
	Updated int `json:"updated_count"`
	Deleted int `json:"deleted_count"`
}

// Syncer reconciles the post cache with the content directory.
//
// Full passes are serialized behind their own mutex, independent of the
// database's locking, so concurrent refresh requests queue instead of
// interleaving their upserts.
type Syncer struct {
	db     PostIndex
	store  storage.Provider
	logger *slog.Logger

	mu          sync.Mutex
	initialized atomic.Bool
}

// NewSyncer creates a Syncer over the given index and content store.
func NewSyncer(db PostIndex, store storage.Provider, logger *slog.Logger) *Syncer {
	return &Syncer{db: db, store: store, logger: logger}
}

// Initialized reports whether at least one full reconciliation has completed.
func (s *Syncer) Initialized() bool {
	return s.initialized.Load()
}

// EnsureInitialized runs the first full reconciliation if none has completed
// yet. Concurrent callers that both observe an uninitialized cache serialize
// on the sync mutex; the loser's pass finds nothing left to do.
func (s *Syncer) EnsureInitialized() error {
	if s.initialized.Load() {
		return nil
	}
	_, err := s.Sync(false)
	return err
}

// Sync walks the content directory and brings the cache up to date:
//   - new files, files with a changed mtime, or all files when force is set,
//     are parsed and upserted
//   - cached entries whose files are gone from disk are deleted
//
// Parse failures are isolated per file: logged and skipped, never aborting
// the pass. Running twice with no filesystem change parses nothing the
// second time.
func (s *Syncer) Sync(force bool) (SyncStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats SyncStats

	metas, err := s.store.List()
	if err != nil {
		return stats, err
	}
	cached, err := s.db.AllModTimes()
	if err != nil {
		return stats, err
	}

	current := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		abs, absErr := s.store.Abs(m.Path)
		if absErr != nil {
			continue
		}
		current[abs] = struct{}{}

		mt, known := cached[abs]
		if known && !force && mt == m.ModTime.UnixNano() {
			continue
		}
		if s.indexPost(abs) {
			stats.Updated++
		}
	}

	for p := range cached {
		if _, ok := current[p]; ok {
			continue
		}
		if err := s.db.Delete(p); err != nil {
			s.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Deleted++
		s.logger.Debug("sync: removed stale", slog.String("path", p))
	}

	s.initialized.Store(true)
	s.logger.Info("sync: completed",
		slog.Int("updated", stats.Updated),
		slog.Int("deleted", stats.Deleted),
		slog.Bool("force", force))
	return stats, nil
}

// Invalidate re-derives the cache row for exactly one path, bypassing a full
// tree walk. A vanished file deletes its row; anything else is re-parsed and
// upserted. This is the fast path after a direct mutation.
func (s *Syncer) Invalidate(path string) error {
	abs, err := s.store.Abs(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(abs); errors.Is(statErr, fs.ErrNotExist) {
		s.logger.Debug("invalidate: removed", slog.String("path", abs))
		return s.db.Delete(abs)
	}
	s.indexPost(abs)
	return nil
}

// indexPost parses one file and upserts it. Returns true when a row was
// written. Unparseable files and files with neither title nor body are
// not indexed, matching what a Hugo site would render; an existing row
// for such a file is removed so the cache never serves content the file
// no longer has.
func (s *Syncer) indexPost(abs string) bool {
	post, err := parser.ParseFile(abs)
	if err != nil {
		s.logger.Warn("sync: parse failed", slog.String("path", abs), slog.String("error", err.Error()))
		return false
	}
	if !indexable(post) {
		if err := s.db.Delete(abs); err != nil {
			s.logger.Warn("sync: delete non-article failed", slog.String("path", abs), slog.String("error", err.Error()))
		}
		s.logger.Debug("sync: skipped non-article", slog.String("path", abs))
		return false
	}
	post.RelativePath = s.store.Rel(abs)
	if err := s.db.Upsert(post); err != nil {
		s.logger.Warn("sync: upsert failed", slog.String("path", abs), slog.String("error", err.Error()))
		return false
	}
	return true
}

// indexable rejects directories (ModTime 0) and files that parsed to
// nothing at all.
func indexable(p *models.Post) bool {
	if p.ModTime == 0 {
		return false
	}
	return p.Title != "" || p.Body != ""
}
