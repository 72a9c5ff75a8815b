package storage

import (
	"slices"
	"strings"
	"time"

	"github.com/yourusername/article-exporter/internal/source"
)

// Export merges records into the store and rewrites it. Records without a
// url, with a url already stored, or dated outside the current UTC year are
// skipped. Unparseable dates count as the current year. The store is
// re-sorted newest first and the destination path is returned.
func (s *Store) Export(records []source.Record) (string, error) {
	now := s.clock.Now().UTC()
	currentYear := now.Year()

	entries := s.Load()
	seen := make(map[string]struct{}, len(entries)+len(records))
	for _, e := range entries {
		seen[e.URL] = struct{}{}
	}

	newCount := 0
	for _, rec := range records {
		url := rec.String("url")
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}

		dateCollected := rec.String("created_at")
		pubDate := rec.String("publication_date")

		dateToCheck := dateCollected
		if dateToCheck == "" {
			dateToCheck = pubDate
		}
		if year, ok := yearOf(dateToCheck); ok && year != currentYear {
			s.logger.Debug("skipping article outside current year", "url", url, "year", year)
			continue
		}

		entries = append(entries, Entry{
			Title:           rec.String("title"),
			URL:             url,
			DateCollected:   dateCollected,
			PublicationDate: pubDate,
			Source:          rec.String("source"),
			FullText:        rec.String("full_text"),
		})
		seen[url] = struct{}{}
		newCount++
	}

	sortNewestFirst(entries)

	doc := &Document{
		Meta: Meta{
			Year:          currentYear,
			TotalArticles: len(entries),
			LastUpdated:   formatTimestamp(now),
			NewThisRun:    newCount,
		},
		Articles: entries,
	}
	if err := s.writeDocument(s.path, doc); err != nil {
		return "", err
	}

	s.logger.Info("JSON export complete",
		"total", len(entries),
		"new", newCount,
		"path", s.path,
	)
	return s.path, nil
}

// sortNewestFirst orders entries by their date string descending. The
// comparison is lexicographic on the ISO-8601 text; equal keys keep their
// relative order.
func sortNewestFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(b.sortKey(), a.sortKey())
	})
}

// yearOf extracts the calendar year from the first ten characters of an
// ISO-8601 date or timestamp. ok is false when nothing parseable is there.
func yearOf(date string) (year int, ok bool) {
	if date == "" {
		return 0, false
	}
	if len(date) > 10 {
		date = date[:10]
	}
	for _, layout := range []string{time.DateOnly, "20060102"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}
