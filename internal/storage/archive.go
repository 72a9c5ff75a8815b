package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ArchivePath is the default archive location for year, a sibling of the
// main store named <prefix><year><ext>.
func (s *Store) ArchivePath(year int) string {
	ext := filepath.Ext(s.path)
	if ext == "" {
		ext = ".json"
	}
	return filepath.Join(s.archiveDir, s.archivePrefix+strconv.Itoa(year)+ext)
}

// ArchiveYear copies the current store verbatim to archivePath (or the
// default ArchivePath when empty) and resets the main store to an empty
// document for year+1. The copy is not filtered by year. When the store
// does not exist nothing is written and the archive path is still returned.
//
// The two writes are independent: a failure after the archive is written
// leaves the main store untouched.
func (s *Store) ArchiveYear(year int, archivePath string) (string, error) {
	defaultPath := archivePath == ""
	if defaultPath {
		archivePath = s.ArchivePath(year)
	}

	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return archivePath, nil
		}
		return "", fmt.Errorf("reading store: %w", err)
	}

	var snapshot bytes.Buffer
	if err := json.Indent(&snapshot, bytes.TrimSpace(data), "", "  "); err != nil {
		return "", fmt.Errorf("parsing store %s: %w", s.path, err)
	}
	snapshot.WriteByte('\n')

	if defaultPath {
		// #nosec G301 -- 0755 is appropriate for archive directory
		if err := os.MkdirAll(s.archiveDir, 0755); err != nil {
			return "", fmt.Errorf("creating archive directory: %w", err)
		}
	}
	if err := writeFileAtomic(archivePath, snapshot.Bytes()); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	s.logger.Info("archived year", "year", year, "path", archivePath)

	empty := &Document{
		Meta: Meta{
			Year:          year + 1,
			TotalArticles: 0,
			LastUpdated:   formatTimestamp(s.clock.Now()),
			NewThisRun:    0,
		},
		Articles: []Entry{},
	}
	if err := s.writeDocument(s.path, empty); err != nil {
		return "", fmt.Errorf("resetting store: %w", err)
	}
	s.logger.Info("cleared store for new year", "year", year+1, "path", s.path)

	return archivePath, nil
}

// RotateIfNeeded archives the store when its recorded year is behind the
// current year, so the first run of a new year starts from an empty file.
// A missing or unreadable store is left alone.
func (s *Store) RotateIfNeeded() (string, bool, error) {
	doc, err := s.ReadDocument()
	if err != nil {
		if !errors.Is(err, ErrNoStore) {
			s.logger.Warn("could not read store, skipping rotation", "path", s.path, "error", err)
		}
		return "", false, nil
	}

	currentYear := s.clock.Now().UTC().Year()
	if doc.Meta.Year == 0 || doc.Meta.Year >= currentYear {
		return "", false, nil
	}

	archivePath, err := s.ArchiveYear(doc.Meta.Year, "")
	if err != nil {
		return "", false, err
	}
	return archivePath, true, nil
}

// Stats describes the store for reporting.
type Stats struct {
	Path      string
	Meta      Meta
	Entries   int
	BySource  map[string]int
	SizeBytes int64
}

// Stats reads the store and counts entries per source.
func (s *Store) Stats() (*Stats, error) {
	doc, err := s.ReadDocument()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Path:      s.path,
		Meta:      doc.Meta,
		Entries:   len(doc.Articles),
		BySource:  make(map[string]int),
		SizeBytes: info.Size(),
	}
	for _, e := range doc.Articles {
		st.BySource[e.Source]++
	}
	return st, nil
}
