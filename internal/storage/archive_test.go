package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/article-exporter/internal/source"
)

func TestArchivePath(t *testing.T) {
	tmpDir := t.TempDir()
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "default sibling",
			opts: Options{OutputPath: filepath.Join(tmpDir, "articles.json")},
			want: filepath.Join(tmpDir, "articles_2025.json"),
		},
		{
			name: "custom dir and prefix",
			opts: Options{
				OutputPath:    filepath.Join(tmpDir, "articles.json"),
				ArchiveDir:    filepath.Join(tmpDir, "archive"),
				ArchivePrefix: "news-",
			},
			want: filepath.Join(tmpDir, "archive", "news-2025.json"),
		},
		{
			name: "no extension",
			opts: Options{OutputPath: filepath.Join(tmpDir, "store")},
			want: filepath.Join(tmpDir, "articles_2025.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.opts)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := store.ArchivePath(2025); got != tt.want {
				t.Errorf("ArchivePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArchiveYear(t *testing.T) {
	store := newTestStore(t)
	records := []source.Record{
		{"url": "https://a.test", "created_at": "2026-01-01"},
		{"url": "https://b.test", "created_at": "2026-01-02"},
		{"url": "https://c.test", "created_at": "2026-01-03"},
	}
	if _, err := store.Export(records); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}

	archivePath, err := store.ArchiveYear(2026, "")
	if err != nil {
		t.Fatalf("ArchiveYear() error = %v", err)
	}
	if archivePath != store.ArchivePath(2026) {
		t.Errorf("ArchiveYear() path = %q, want %q", archivePath, store.ArchivePath(2026))
	}

	archived, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	if string(archived) != string(before) {
		t.Errorf("archive differs from store snapshot:\n%s\n---\n%s", archived, before)
	}
	archiveDoc := readDoc(t, archivePath)
	if len(archiveDoc.Articles) != 3 || archiveDoc.Meta.TotalArticles != 3 {
		t.Errorf("archive has %d entries (meta %d), want 3", len(archiveDoc.Articles), archiveDoc.Meta.TotalArticles)
	}

	reset := readDoc(t, store.Path())
	if reset.Meta.Year != 2027 {
		t.Errorf("reset meta.year = %d, want 2027", reset.Meta.Year)
	}
	if reset.Meta.TotalArticles != 0 || reset.Meta.NewThisRun != 0 {
		t.Errorf("reset meta = %+v, want zero counts", reset.Meta)
	}
	if reset.Articles == nil || len(reset.Articles) != 0 {
		t.Errorf("reset articles = %v, want empty array", reset.Articles)
	}
	if reset.Meta.LastUpdated == "" {
		t.Error("reset meta.last_updated is empty")
	}
}

func TestArchiveYearCustomPath(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Export([]source.Record{{"url": "https://a.test"}}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	custom := filepath.Join(t.TempDir(), "snapshot.json")
	got, err := store.ArchiveYear(2026, custom)
	if err != nil {
		t.Fatalf("ArchiveYear() error = %v", err)
	}
	if got != custom {
		t.Errorf("ArchiveYear() path = %q, want %q", got, custom)
	}
	if doc := readDoc(t, custom); len(doc.Articles) != 1 {
		t.Errorf("archive has %d entries, want 1", len(doc.Articles))
	}
}

func TestArchiveYearKeepsUnknownFields(t *testing.T) {
	store := newTestStore(t)
	content := `{"meta":{"year":2026,"total_articles":1,"last_updated":"x","new_this_run":1,"note":"kept"},"articles":[{"url":"https://a.test","extra":true}]}`
	if err := os.WriteFile(store.Path(), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	archivePath, err := store.ArchiveYear(2026, "")
	if err != nil {
		t.Fatalf("ArchiveYear() error = %v", err)
	}
	archived, _ := os.ReadFile(archivePath)
	for _, want := range []string{`"note": "kept"`, `"extra": true`} {
		if !strings.Contains(string(archived), want) {
			t.Errorf("archive missing %s:\n%s", want, archived)
		}
	}
}

func TestArchiveYearMissingStore(t *testing.T) {
	store := newTestStore(t)

	archivePath, err := store.ArchiveYear(2025, "")
	if err != nil {
		t.Fatalf("ArchiveYear() error = %v", err)
	}
	if archivePath != store.ArchivePath(2025) {
		t.Errorf("ArchiveYear() path = %q, want %q", archivePath, store.ArchivePath(2025))
	}
	if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
		t.Error("ArchiveYear() should not write an archive when the store is missing")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("ArchiveYear() should not create the store when it is missing")
	}
}

func TestArchiveYearCorruptStoreFails(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path(), []byte(`{"articles": [`), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := store.ArchiveYear(2026, ""); err == nil {
		t.Error("ArchiveYear() should fail on a corrupt store")
	}
	if _, err := os.Stat(store.ArchivePath(2026)); !os.IsNotExist(err) {
		t.Error("no archive should be written for a corrupt store")
	}
}

func TestArchiveYearUnwritableDestination(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Export([]source.Record{{"url": "https://a.test"}}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	missingPath := filepath.Join(t.TempDir(), "missing", "archive.json")
	if _, err := store.ArchiveYear(2026, missingPath); err == nil {
		t.Error("ArchiveYear() should fail when the destination directory is missing")
	}
	if got := store.Load(); len(got) != 1 {
		t.Errorf("store should be untouched after failed archive, got %d entries", len(got))
	}
}

func TestRotateIfNeeded(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(tmpDir, "articles.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lastYear, err := New(Options{
		OutputPath: out,
		Clock:      fixedClock{t: time.Date(2025, time.December, 31, 12, 0, 0, 0, time.UTC)},
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := lastYear.Export([]source.Record{{"url": "https://a.test", "created_at": "2025-12-31"}}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if _, rotated, err := lastYear.RotateIfNeeded(); err != nil || rotated {
		t.Errorf("RotateIfNeeded() in same year = (%v, %v), want no rotation", rotated, err)
	}

	thisYear, err := New(Options{
		OutputPath: out,
		Clock:      fixedClock{t: time.Date(2026, time.January, 1, 0, 5, 0, 0, time.UTC)},
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	archivePath, rotated, err := thisYear.RotateIfNeeded()
	if err != nil {
		t.Fatalf("RotateIfNeeded() error = %v", err)
	}
	if !rotated {
		t.Fatal("RotateIfNeeded() should rotate when store year is behind")
	}
	if archivePath != filepath.Join(tmpDir, "articles_2025.json") {
		t.Errorf("archive path = %q", archivePath)
	}
	if doc := readDoc(t, archivePath); len(doc.Articles) != 1 {
		t.Errorf("archive has %d entries, want 1", len(doc.Articles))
	}
	if doc := readDoc(t, out); doc.Meta.Year != 2026 || len(doc.Articles) != 0 {
		t.Errorf("store after rotation = %+v, want empty 2026 store", doc)
	}

	if _, rotated, err := thisYear.RotateIfNeeded(); err != nil || rotated {
		t.Errorf("second RotateIfNeeded() = (%v, %v), want no rotation", rotated, err)
	}
}

func TestRotateIfNeededMissingOrCorrupt(t *testing.T) {
	store := newTestStore(t)

	if _, rotated, err := store.RotateIfNeeded(); err != nil || rotated {
		t.Errorf("RotateIfNeeded() on missing store = (%v, %v)", rotated, err)
	}

	if err := os.WriteFile(store.Path(), []byte("nope"), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, rotated, err := store.RotateIfNeeded(); err != nil || rotated {
		t.Errorf("RotateIfNeeded() on corrupt store = (%v, %v)", rotated, err)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Stats(); err != ErrNoStore {
		t.Errorf("Stats() on missing store error = %v, want ErrNoStore", err)
	}

	_, err := store.Export([]source.Record{
		{"url": "https://a.test", "source": "hn"},
		{"url": "https://b.test", "source": "hn"},
		{"url": "https://c.test", "source": "lobsters"},
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	st, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Entries != 3 || st.Meta.TotalArticles != 3 {
		t.Errorf("Stats() entries = %d, total = %d, want 3", st.Entries, st.Meta.TotalArticles)
	}
	if st.BySource["hn"] != 2 || st.BySource["lobsters"] != 1 {
		t.Errorf("Stats() by source = %v", st.BySource)
	}
	if st.SizeBytes == 0 {
		t.Error("Stats() size should be non-zero")
	}
}

func TestArchiveDirCreatedOnlyForDefaultArchive(t *testing.T) {
	tmpDir := t.TempDir()
	archiveDir := filepath.Join(tmpDir, "archive")
	store, err := New(Options{
		OutputPath: filepath.Join(tmpDir, "articles.json"),
		ArchiveDir: archiveDir,
		Clock:      fixedClock{t: testNow},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := os.Stat(archiveDir); !os.IsNotExist(err) {
		t.Fatal("New() should not create the archive directory")
	}

	if _, err := store.Export([]source.Record{{"url": "https://a.test"}}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	custom := filepath.Join(tmpDir, "snapshot.json")
	if _, err := store.ArchiveYear(2026, custom); err != nil {
		t.Fatalf("ArchiveYear() error = %v", err)
	}
	if _, err := os.Stat(archiveDir); !os.IsNotExist(err) {
		t.Error("ArchiveYear() with a custom path should not create the archive directory")
	}

	archivePath, err := store.ArchiveYear(2027, "")
	if err != nil {
		t.Fatalf("ArchiveYear() error = %v", err)
	}
	if archivePath != filepath.Join(archiveDir, "articles_2027.json") {
		t.Errorf("archive path = %q", archivePath)
	}
	if _, err := os.Stat(archivePath); err != nil {
		t.Errorf("default archive not written: %v", err)
	}
}
