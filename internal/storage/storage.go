// Package storage keeps the cumulative, year-scoped JSON record of collected
// articles and rotates it into per-year archives.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultArchivePrefix = "articles_"
	timestampLayout      = "2006-01-02T15:04:05"
)

// ErrNoStore is returned when the main store file has not been written yet.
var ErrNoStore = errors.New("store does not exist")

// Entry is one article persisted in the store. URL is unique across entries.
type Entry struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	DateCollected   string `json:"date_collected"`
	PublicationDate string `json:"publication_date"`
	Source          string `json:"source"`
	FullText        string `json:"full_text"`

	// extra holds keys outside the fields above, and known keys whose
	// value is not a string, so a rewrite keeps them as they were.
	extra map[string]json.RawMessage
}

// sortKey is the date an entry is ordered by: collected, else published.
func (e Entry) sortKey() string {
	if e.DateCollected != "" {
		return e.DateCollected
	}
	return e.PublicationDate
}

// Meta summarizes the store contents.
type Meta struct {
	Year          int    `json:"year"`
	TotalArticles int    `json:"total_articles"`
	LastUpdated   string `json:"last_updated"`
	NewThisRun    int    `json:"new_this_run"`
}

// Document is the full persisted file.
type Document struct {
	Meta     Meta    `json:"meta"`
	Articles []Entry `json:"articles"`
}

// Clock supplies the current time. Tests pin it to make "current year"
// deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Options configures a Store.
type Options struct {
	// OutputPath is the main store file, e.g. data/articles.json.
	OutputPath string
	// ArchiveDir holds year archives. Defaults to the directory of OutputPath.
	ArchiveDir string
	// ArchivePrefix is prepended to the year in default archive names.
	ArchivePrefix string
	Clock         Clock
	Logger        *slog.Logger
}

// Store reads and rewrites the cumulative article file. It does no locking;
// concurrent writers against the same path can lose updates.
type Store struct {
	path          string
	archiveDir    string
	archivePrefix string
	clock         Clock
	logger        *slog.Logger
}

// New creates a store for opts.OutputPath, creating its parent directory.
func New(opts Options) (*Store, error) {
	if opts.OutputPath == "" {
		return nil, errors.New("output path is required")
	}

	s := &Store{
		path:          opts.OutputPath,
		archiveDir:    opts.ArchiveDir,
		archivePrefix: opts.ArchivePrefix,
		clock:         opts.Clock,
	}
	if s.archiveDir == "" {
		s.archiveDir = filepath.Dir(s.path)
	}
	if s.archivePrefix == "" {
		s.archivePrefix = defaultArchivePrefix
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger.With("component", "storage.store")

	// #nosec G301 -- 0755 is appropriate for output directory
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return s, nil
}

// Path returns the main store location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the entries currently persisted. Only the articles list is
// read; meta is ignored. A missing or unreadable file, invalid JSON, or a
// missing or non-array articles field yields an empty slice and the caller
// starts fresh. Individual elements that are not objects are dropped.
func (s *Store) Load() []Entry {
	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read existing store, starting fresh", "path", s.path, "error", err)
		}
		return []Entry{}
	}

	var doc struct {
		Articles json.RawMessage `json:"articles"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("could not parse existing store, starting fresh", "path", s.path, "error", err)
		return []Entry{}
	}

	var raws []json.RawMessage
	if len(doc.Articles) == 0 {
		s.logger.Warn("existing store has no articles list, starting fresh", "path", s.path)
		return []Entry{}
	}
	if err := json.Unmarshal(doc.Articles, &raws); err != nil || raws == nil {
		s.logger.Warn("existing store articles is not a list, starting fresh", "path", s.path, "error", err)
		return []Entry{}
	}

	entries := make([]Entry, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			skipped++
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	if skipped > 0 {
		s.logger.Warn("dropped malformed store entries", "path", s.path, "count", skipped)
	}
	return entries
}

// ReadDocument parses the whole store file.
func (s *Store) ReadDocument() (*Document, error) {
	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoStore
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return &doc, nil
}

// writeDocument serializes doc to path.
func (s *Store) writeDocument(path string, doc *Document) error {
	if doc.Articles == nil {
		doc.Articles = []Entry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// formatTimestamp renders t in UTC like ISO-8601 with a trailing Z.
// Microseconds are included only when non-zero.
func formatTimestamp(t time.Time) string {
	t = t.UTC()
	out := t.Format(timestampLayout)
	if micro := t.Nanosecond() / 1000; micro != 0 {
		out += fmt.Sprintf(".%06d", micro)
	}
	return out + "Z"
}
