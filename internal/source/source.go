// Package source reads raw article records handed over by the collector.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Record is one raw article as produced by the collector database.
// Expected keys are url, title, created_at, publication_date, source and
// full_text. Any of them may be missing.
type Record map[string]any

// String returns the value stored under key, or "" when the key is absent
// or does not hold a string.
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Format identifies the layout of an input file.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// FormatFromPath guesses the input format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported input extension %q (want .json, .jsonl, .ndjson or .csv)", filepath.Ext(path))
	}
}

// ReadFile loads every record from path, picking the decoder by extension.
func ReadFile(path string) ([]Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- path is supplied by the operator on the command line
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	records, err := Read(file, format)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// Read decodes records from r in the given format.
func Read(r io.Reader, format Format) ([]Record, error) {
	switch format {
	case FormatJSON:
		return readJSON(r)
	case FormatJSONL:
		return readJSONLines(r)
	case FormatCSV:
		return readCSV(r)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// readJSON accepts either a bare array of records or an object wrapping
// them under "articles", which is the shape of an exported store.
func readJSON(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Record{}, nil
	}

	if data[0] == '{' {
		var wrapped struct {
			Articles []Record `json:"articles"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Articles == nil {
			return []Record{}, nil
		}
		return wrapped.Articles, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func readJSONLines(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	// full_text can be large
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	records := []Record{}
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func readCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}

	header := make([]string, len(rows[0]))
	hasURL := false
	for i, col := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(col))
		if header[i] == "url" {
			hasURL = true
		}
	}
	if !hasURL {
		return nil, fmt.Errorf("CSV must have 'url' column")
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			// short rows leave trailing columns absent
			if i < len(row) && col != "" {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
