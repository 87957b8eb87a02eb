package publish

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

func newTestPublisher(t *testing.T) (string, storage.Provider, *index.DB, *Publisher) {
	t.Helper()
	dir, store, db, syncer := testutil.TestSyncer(t)
	pub := NewPublisher(store, syncer, testutil.DiscardLogger(), time.Second)
	return dir, store, db, pub
}

func TestPublishDraft(t *testing.T) {
	dir, store, db, pub := newTestPublisher(t)
	abs := testutil.WriteFile(t, dir, "post/a/index.md",
		"---\ntitle: A\ndate: 2024-01-01\ndraft: true\n---\n\nbody text")

	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	res, err := pub.Publish(context.Background(), "post/a/index.md")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.OperationID == "" {
		t.Errorf("result = %+v", res)
	}

	data, err := store.Read(abs)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "draft: false") {
		t.Errorf("draft flag not flipped:\n%s", content)
	}
	if !strings.Contains(content, "publishDate:") || !strings.Contains(content, "+08:00") {
		t.Errorf("publishDate not stamped in UTC+8:\n%s", content)
	}
	if !strings.Contains(content, "body text") {
		t.Errorf("body lost:\n%s", content)
	}

	// cache row reflects the new state
	got, err := db.Get(abs)
	if err != nil {
		t.Fatal(err)
	}
	if got.Draft {
		t.Error("cache row still marked draft after publish")
	}
}

func TestPublishAlreadyPublished(t *testing.T) {
	dir, store, _, pub := newTestPublisher(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\ndraft: false\n---\n\nbody")
	before, _ := store.Read(abs)

	res, err := pub.Publish(context.Background(), "a.md")
	if !errors.Is(err, apperr.ErrAlreadyPublished) {
		t.Errorf("err = %v, want ErrAlreadyPublished", err)
	}
	if res.Success {
		t.Error("result should not report success")
	}
	if res.OperationID == "" {
		t.Error("operation id missing on failure")
	}

	after, _ := store.Read(abs)
	if string(before) != string(after) {
		t.Error("failed publish must leave the file untouched")
	}
}

func TestPublishAbsentDraftFlagMeansDraft(t *testing.T) {
	dir, store, _, pub := newTestPublisher(t)
	abs := testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\n---\n\nbody")

	if _, err := pub.Publish(context.Background(), "a.md"); err != nil {
		t.Fatalf("article without draft flag should be publishable: %v", err)
	}
	data, _ := store.Read(abs)
	if !strings.Contains(string(data), "draft: false") {
		t.Error("draft flag not written")
	}
}

func TestPublishKeepsExistingPublishDate(t *testing.T) {
	dir, store, _, pub := newTestPublisher(t)
	abs := testutil.WriteFile(t, dir, "a.md",
		"---\ntitle: A\ndraft: true\npublishDate: \"2023-05-01T09:00:00+08:00\"\n---\n\nbody")

	if _, err := pub.Publish(context.Background(), "a.md"); err != nil {
		t.Fatal(err)
	}
	data, _ := store.Read(abs)
	if !strings.Contains(string(data), "2023-05-01T09:00:00+08:00") {
		t.Errorf("existing publishDate overwritten:\n%s", data)
	}
}

func TestPublishMissingFile(t *testing.T) {
	_, _, _, pub := newTestPublisher(t)
	res, err := pub.Publish(context.Background(), "nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if res.Success {
		t.Error("result should report failure")
	}
}

func TestPublishForbiddenPath(t *testing.T) {
	_, _, _, pub := newTestPublisher(t)
	_, err := pub.Publish(context.Background(), "../outside.md")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

type stuckLocker struct{}

func (stuckLocker) Acquire(path string, timeout time.Duration) (Unlocker, error) {
	return nil, apperr.ErrLockTimeout
}

func TestPublishLockTimeout(t *testing.T) {
	dir, _, _, pub := newTestPublisher(t)
	testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\ndraft: true\n---\n\nbody")
	pub.locker = stuckLocker{}

	res, err := pub.Publish(context.Background(), "a.md")
	if !errors.Is(err, apperr.ErrLockTimeout) {
		t.Errorf("err = %v, want ErrLockTimeout", err)
	}
	if res.Success {
		t.Error("result should report failure")
	}
}

func TestFlockLockerContention(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/a.md"
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	held, err := FlockLocker{}.Acquire(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	// a second exclusive lock on the same article must time out
	if _, err := (FlockLocker{}).Acquire(path, 200*time.Millisecond); !errors.Is(err, apperr.ErrLockTimeout) {
		t.Errorf("contended acquire = %v, want ErrLockTimeout", err)
	}
}

func TestBulkPublishMixedOutcomes(t *testing.T) {
	dir, _, _, pub := newTestPublisher(t)
	testutil.WriteFile(t, dir, "ok.md", "---\ntitle: OK\ndraft: true\n---\n\nbody")
	testutil.WriteFile(t, dir, "done.md", "---\ntitle: Done\ndraft: false\n---\n\nbody")

	bulk := pub.BulkPublish(context.Background(), []string{"ok.md", "done.md", "missing.md"})
	if bulk.Success {
		t.Error("bulk with failures should not report success")
	}
	if bulk.TotalCount != 3 || bulk.PublishedCount != 1 || bulk.FailedCount != 2 {
		t.Errorf("counts = %d/%d/%d", bulk.TotalCount, bulk.PublishedCount, bulk.FailedCount)
	}
	if len(bulk.Results) != 3 {
		t.Fatalf("results = %d", len(bulk.Results))
	}
	if !bulk.Results[0].Success || bulk.Results[1].Success || bulk.Results[2].Success {
		t.Errorf("per-item outcomes = %+v", bulk.Results)
	}
	if bulk.OperationID == "" {
		t.Error("bulk operation id missing")
	}
	if bulk.DurationMS < 0 {
		t.Errorf("duration = %d", bulk.DurationMS)
	}
}

func TestBulkPublishAllSucceed(t *testing.T) {
	dir, _, _, pub := newTestPublisher(t)
	testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\ndraft: true\n---\n\nbody")
	testutil.WriteFile(t, dir, "b.md", "---\ntitle: B\ndraft: true\n---\n\nbody")

	bulk := pub.BulkPublish(context.Background(), []string{"a.md", "b.md"})
	if !bulk.Success || bulk.PublishedCount != 2 || bulk.FailedCount != 0 {
		t.Errorf("bulk = %+v", bulk)
	}
}

func TestGetStatusDraft(t *testing.T) {
	dir, _, _, pub := newTestPublisher(t)
	testutil.WriteFile(t, dir, "a.md", "---\ntitle: A\ndraft: true\n---\n\nbody")

	st, err := pub.GetStatus(context.Background(), "a.md")
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsDraft || !st.IsPublishable {
		t.Errorf("status = %+v", st)
	}
	if len(st.PublishErrors) != 1 || st.PublishErrors[0] != "missing date" {
		t.Errorf("publish errors = %v", st.PublishErrors)
	}
}

func TestGetStatusPublished(t *testing.T) {
	dir, _, _, pub := newTestPublisher(t)
	testutil.WriteFile(t, dir, "a.md",
		"---\ntitle: A\ndate: 2024-01-01\ndraft: false\npublishDate: \"2024-01-02T10:00:00+08:00\"\n---\n\nbody")

	st, err := pub.GetStatus(context.Background(), "a.md")
	if err != nil {
		t.Fatal(err)
	}
	if st.IsDraft || st.IsPublishable {
		t.Errorf("status = %+v", st)
	}
	if st.LastPublished == nil {
		t.Error("last published missing")
	}
	if len(st.PublishErrors) != 0 {
		t.Errorf("publish errors = %v", st.PublishErrors)
	}
}

func TestGetStatusMissing(t *testing.T) {
	_, _, _, pub := newTestPublisher(t)
	if _, err := pub.GetStatus(context.Background(), "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
