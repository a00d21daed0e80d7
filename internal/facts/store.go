package facts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store keeps one JSON record file per article in a single directory.
type Store struct {
	dir string
}

// NewStore returns a Store writing to dir (normally <data>/processed).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName maps an archive file name ("example.com_a.txt") to its record
// file name ("example.com_a.json").
func FileName(articleName string) string {
	return strings.TrimSuffix(articleName, filepath.Ext(articleName)) + ".json"
}

// Path returns the record path for an archived article name.
func (s *Store) Path(articleName string) string {
	return filepath.Join(s.dir, FileName(articleName))
}

// Exists reports whether a record has been written for articleName.
func (s *Store) Exists(articleName string) bool {
	_, err := os.Stat(s.Path(articleName))
	return err == nil
}

// Write stores rec for articleName, replacing any earlier record.
func (s *Store) Write(articleName string, rec Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating facts dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	path := s.Path(articleName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing record: %w", err)
	}
	return path, nil
}

// Load reads one record file.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("reading record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

// Entry is one file found by LoadDir. Err is set when the file could not
// be read or decoded.
type Entry struct {
	Name   string
	Path   string
	Record Record
	Err    error
}

// LoadDir reads every .json file in dir, sorted by name. Unreadable files
// are returned with Err set rather than aborting the scan.
func LoadDir(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading facts dir: %w", err)
	}
	var out []Entry
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, f.Name())
		rec, err := Load(path)
		if err != nil {
			slog.Warn("skipping unreadable fact record", "path", path, "error", err)
		}
		out = append(out, Entry{Name: f.Name(), Path: path, Record: rec, Err: err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
