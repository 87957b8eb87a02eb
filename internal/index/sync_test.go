package index_test

import (
	"os"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/testutil"
)

func TestSyncIndexesNewFiles(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	testutil.WriteFile(t, dir, "post/one/index.md", "---\ntitle: One\n---\n\nbody")
	testutil.WriteFile(t, dir, "post/two/index.md", "---\ntitle: Two\n---\n\nbody")

	stats, err := syncer.Sync(false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 2 || stats.Deleted != 0 {
		t.Errorf("stats = %+v, want 2 updated", stats)
	}

	all, err := db.ListAll("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("indexed = %d, want 2", len(all))
	}
}

func TestSyncIdempotent(t *testing.T) {
	dir, _, _, syncer := testutil.TestSyncer(t)
	testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\n---\n\nbody")

	if _, err := syncer.Sync(false); err != nil {
		t.Fatal(err)
	}
	stats, err := syncer.Sync(false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 0 || stats.Deleted != 0 {
		t.Errorf("second pass with no changes did work: %+v", stats)
	}
}

func TestSyncForceReparsesAll(t *testing.T) {
	dir, _, _, syncer := testutil.TestSyncer(t)
	testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\n---\n\nbody")

	if _, err := syncer.Sync(false); err != nil {
		t.Fatal(err)
	}
	stats, err := syncer.Sync(true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 {
		t.Errorf("force pass updated = %d, want 1", stats.Updated)
	}
}

func TestSyncDetectsModification(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: Before\n---\n\nbody")

	if _, err := syncer.Sync(false); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(abs, []byte("---\ntitle: After\n---\n\nbody"), 0o644); err != nil {
		t.Fatal(err)
	}
	// force a distinct mtime; some filesystems have coarse resolution
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(abs, future, future); err != nil {
		t.Fatal(err)
	}

	stats, err := syncer.Sync(false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 {
		t.Errorf("updated = %d, want 1", stats.Updated)
	}
	got, err := db.Get(abs)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "After" {
		t.Errorf("title = %q, want After", got.Title)
	}
}

func TestSyncSweepsDeletedFiles(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\n---\n\nbody")

	if _, err := syncer.Sync(false); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(abs); err != nil {
		t.Fatal(err)
	}

	stats, err := syncer.Sync(false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", stats.Deleted)
	}
	if paths, _ := db.AllPaths(); len(paths) != 0 {
		t.Errorf("stale row survived sweep: %v", paths)
	}
}

func TestSyncDropsEmptiedFiles(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: Old Title\n---\n\nbody")

	if _, err := syncer.Sync(false); err != nil {
		t.Fatal(err)
	}

	// edited down to frontmatter only: no title, no body
	if err := os.WriteFile(abs, []byte("---\ndraft: true\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(abs, future, future); err != nil {
		t.Fatal(err)
	}

	if _, err := syncer.Sync(false); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get(abs); err == nil {
		t.Error("row for emptied file should be removed, not serve stale content")
	}
}

func TestInvalidateDropsEmptiedFile(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\n---\n\nbody")

	if err := syncer.Invalidate(abs); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get(abs); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(abs, []byte("---\ndraft: true\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := syncer.Invalidate(abs); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get(abs); err == nil {
		t.Error("row should be gone once the file has neither title nor body")
	}
}

func TestSyncSkipsNonArticles(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	testutil.WriteFile(t, dir, "empty.md", "")
	testutil.WriteFile(t, dir, "real.md", "---\ntitle: Real\n---\n\nbody")

	if _, err := syncer.Sync(false); err != nil {
		t.Fatal(err)
	}
	paths, err := db.AllPaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Errorf("indexed paths = %v, want only the real article", paths)
	}
}

func TestInvalidateSingleFile(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\n---\n\nbody")

	if err := syncer.Invalidate(abs); err != nil {
		t.Fatal(err)
	}
	got, err := db.Get(abs)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "A" {
		t.Errorf("title = %q", got.Title)
	}

	// vanished file drops its row
	if err := os.Remove(abs); err != nil {
		t.Fatal(err)
	}
	if err := syncer.Invalidate(abs); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get(abs); err == nil {
		t.Error("row should be gone after invalidating a deleted file")
	}
}

func TestInvalidateMatchesFullSync(t *testing.T) {
	dir, _, db, syncer := testutil.TestSyncer(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\ntags: [x]\n---\n\nbody")

	if err := syncer.Invalidate(abs); err != nil {
		t.Fatal(err)
	}
	fromInvalidate, err := db.Get(abs)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := syncer.Sync(true); err != nil {
		t.Fatal(err)
	}
	fromSync, err := db.Get(abs)
	if err != nil {
		t.Fatal(err)
	}

	if fromInvalidate.Title != fromSync.Title ||
		fromInvalidate.RelativePath != fromSync.RelativePath ||
		fromInvalidate.ModTime != fromSync.ModTime ||
		len(fromInvalidate.Tags) != len(fromSync.Tags) {
		t.Errorf("invalidate row %+v differs from full-sync row %+v", fromInvalidate, fromSync)
	}
}

func TestEnsureInitialized(t *testing.T) {
	dir, _, _, syncer := testutil.TestSyncer(t)
	testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\n---\n\nbody")

	if syncer.Initialized() {
		t.Fatal("fresh syncer should not be initialized")
	}
	if err := syncer.EnsureInitialized(); err != nil {
		t.Fatal(err)
	}
	if !syncer.Initialized() {
		t.Error("EnsureInitialized should mark the cache ready")
	}
}
