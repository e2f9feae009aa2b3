package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/render"
	"github.com/starford/langthil/internal/storage"
	"github.com/starford/langthil/internal/store"
	"github.com/starford/langthil/internal/testutil"
	"github.com/starford/langthil/internal/wiki"
	"github.com/starford/langthil/internal/wikipath"
)

type env struct {
	dir    string
	db     *store.DB
	svc    *wiki.Service
	mirror *Mirror
}

func testEnv(t *testing.T) *env {
	t.Helper()
	dir, fs := testutil.TestVault(t)
	db := testutil.TestDB(t)
	logger := testutil.Logger()
	pipeline := render.NewPipeline(render.RendererFunc(func(s string) (string, error) { return s, nil }))
	svc := wiki.NewService(db, pipeline, wiki.WithLogger(logger))
	m := New(fs, db, svc, logger)
	svc.SetExporter(m)
	return &env{dir: dir, db: db, svc: svc, mirror: m}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func (e *env) article(p wikipath.WikiPath) *models.Article {
	a, err := e.svc.ArticleAt(context.Background(), p, false)
	if err != nil {
		return nil
	}
	return a
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExportOnSave(t *testing.T) {
	e := testEnv(t)
	a := &models.Article{Title: "Dragons", Namespace: "lore", Slug: "dragons", IsPublished: true, Markdown: "Big [[wyrms]]."}
	if err := e.svc.SaveArticle(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(e.dir, "lore", "dragons.md"))
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "---\n") || !strings.Contains(s, "title: Dragons") || !strings.Contains(s, "publish: true") {
		t.Errorf("front matter = %q", s)
	}
	if !strings.HasSuffix(s, "Big [[wyrms]].\n") {
		t.Errorf("body = %q", s)
	}

	// The export is recorded, so a sync does not re-import it.
	n, err := e.mirror.Sync(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Sync after export = %d, %v", n, err)
	}
}

func TestSync_ImportsFiles(t *testing.T) {
	e := testEnv(t)
	writeFile(t, e.dir, "lore/dragons.md", "---\ntitle: Dragons\npublish: true\ntags: [beasts]\n---\n\nBig lizards.\n")
	writeFile(t, e.dir, "notes.md", "# Loose Notes\n\nno front matter")
	writeFile(t, e.dir, "readme.txt", "ignored")

	n, err := e.mirror.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported = %d, want 2", n)
	}

	a := e.article(wikipath.New("lore", "dragons"))
	if a == nil {
		t.Fatal("lore/dragons not imported")
	}
	if a.Title != "Dragons" || !a.IsPublished || a.Markdown != "Big lizards." || a.Published == nil {
		t.Errorf("article = %+v", a)
	}
	if len(a.Tags) != 1 || a.Tags[0].Slug != "beasts" {
		t.Errorf("tags = %+v", a.Tags)
	}

	notes := e.article(wikipath.New("", "notes"))
	if notes == nil || notes.Title != "Loose Notes" || notes.IsPublished {
		t.Errorf("notes = %+v", notes)
	}

	// Unchanged files are skipped.
	if n, _ := e.mirror.Sync(context.Background()); n != 0 {
		t.Errorf("second sync imported %d", n)
	}
}

func TestImport_KeepsIdentity(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	a := &models.Article{Title: "Dragons", Namespace: "lore", Slug: "dragons", IsPublished: true, Markdown: "v1"}
	if err := e.svc.SaveArticle(ctx, a); err != nil {
		t.Fatal(err)
	}
	first := *a.Published

	got, err := e.mirror.Import(ctx, "lore/dragons.md", []byte("---\ntitle: Dragons\npublish: true\n---\n\nv2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID || got.Markdown != "v2" || !got.Published.Equal(first) {
		t.Errorf("imported = %+v", got)
	}
}

func TestSync_ForgetsRemovedFiles(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	writeFile(t, e.dir, "gone.md", "# Gone")
	if _, err := e.mirror.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	_ = os.Remove(filepath.Join(e.dir, "gone.md"))
	if _, err := e.mirror.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	cs, _ := e.db.VaultChecksum(ctx, "gone.md")
	if cs != "" {
		t.Error("checksum of removed file should be forgotten")
	}
	if e.article(wikipath.New("", "gone")) == nil {
		t.Error("article must survive file removal")
	}
}

func TestWatcher_NewFileImported(t *testing.T) {
	e := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.mirror.Watch(ctx) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	writeFile(t, e.dir, "new.md", "# New")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return e.article(wikipath.New("", "new")) != nil
	}, "new file not imported by watcher")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	e := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.mirror.Watch(ctx) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(e.dir, "subdir"), 0o755)
	time.Sleep(100 * time.Millisecond)
	writeFile(t, e.dir, "subdir/deep.md", "# Deep")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return e.article(wikipath.New("subdir", "deep")) != nil
	}, "file in new subdir not imported by watcher")
}

func TestWatcher_EditUpdatesArticle(t *testing.T) {
	e := testEnv(t)
	writeFile(t, e.dir, "edit.md", "# Edit\n\nv1")
	if _, err := e.mirror.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.mirror.Watch(ctx) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	writeFile(t, e.dir, "edit.md", "# Edit\n\nv2")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		a := e.article(wikipath.New("", "edit"))
		return a != nil && strings.Contains(a.Markdown, "v2")
	}, "edited file not re-imported")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	e := testEnv(t)
	writeFile(t, e.dir, "old.md", "# Rename")
	if _, err := e.mirror.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.mirror.Watch(ctx) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(e.dir, "old.md"), filepath.Join(e.dir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := e.db.VaultChecksum(context.Background(), "old.md")
		return oldCS == "" && e.article(wikipath.New("", "renamed")) != nil
	}, "rename reconciliation failed")
}

// readOnlyVault refuses every write.
type readOnlyVault struct {
	storage.Provider
}

func (readOnlyVault) WriteArticle(wikipath.WikiPath, []byte) (string, error) {
	return "", errors.New("read-only vault")
}

func TestExport_FailedWriteRecordsNoChecksum(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	_, fs := testutil.TestVault(t)
	m := New(readOnlyVault{fs}, e.db, e.svc, testutil.Logger())

	a := &models.Article{Title: "Dragons", Namespace: "lore", Slug: "dragons", Markdown: "Big."}
	if err := m.Export(ctx, a); err == nil {
		t.Fatal("Export should fail when the write fails")
	}
	cs, err := e.db.VaultChecksum(ctx, storage.ArticleFile(a.Path()))
	if err != nil || cs != "" {
		t.Errorf("checksum after failed write = %q, %v; want none", cs, err)
	}
}
