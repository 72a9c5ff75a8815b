package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

var entryKeys = []string{"title", "url", "date_collected", "publication_date", "source", "full_text"}

// fields maps each persisted key to its typed field.
func (e *Entry) fields() map[string]*string {
	return map[string]*string{
		"title":            &e.Title,
		"url":              &e.URL,
		"date_collected":   &e.DateCollected,
		"publication_date": &e.PublicationDate,
		"source":           &e.Source,
		"full_text":        &e.FullText,
	}
}

// UnmarshalJSON accepts any JSON object. Known keys holding a string fill
// the typed fields; everything else is kept raw and written back unchanged.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj == nil {
		return errors.New("entry is null")
	}

	*e = Entry{}
	fields := e.fields()
	for key, raw := range obj {
		if dst, ok := fields[key]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				*dst = s
				continue
			}
		}
		if e.extra == nil {
			e.extra = make(map[string]json.RawMessage)
		}
		e.extra[key] = raw
	}
	return nil
}

// MarshalJSON writes the known keys in a fixed order followed by any
// passthrough keys sorted by name.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	fields := e.fields()
	for i, key := range entryKeys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if raw, ok := e.extra[key]; ok {
			buf.Write(raw)
			continue
		}
		if err := writeString(&buf, *fields[key]); err != nil {
			return nil, err
		}
	}

	unknown := make([]string, 0, len(e.extra))
	for key := range e.extra {
		if _, known := fields[key]; !known {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		buf.WriteByte(',')
		if err := writeString(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.Write(e.extra[key])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeString encodes s without HTML escaping; the outer encoder does not
// undo escapes produced here.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
