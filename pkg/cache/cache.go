package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sukureipu/pkg/errors"
	"sukureipu/pkg/fourchan"
)

// Entry is the persisted snapshot of a thread: the Last-Modified
// validator of the most recent 200 response and the raw thread JSON it
// carried. The validator is never updated from a 304.
type Entry struct {
	LastModified string          `json:"LastModified"`
	Thread       json.RawMessage `json:"json"`
}

// DecodeThread parses the stored thread JSON
func (e *Entry) DecodeThread() (*fourchan.Thread, error) {
	var thread fourchan.Thread
	if err := json.Unmarshal(e.Thread, &thread); err != nil {
		return nil, errors.New(errors.ErrorTypeCacheCorrupt,
			fmt.Sprintf("stored thread JSON undecodable: %v", err))
	}
	return &thread, nil
}

// Store persists one Entry per thread as a board:id.json file under a
// single directory. Concurrent writers against the same key are not a
// supported scenario.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory as needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache root directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) entryPath(ref fourchan.ThreadRef) string {
	return filepath.Join(s.dir, ref.Key()+".json")
}

// Get returns the cached entry for ref, or nil if none exists.
// An undecodable entry is a cache_corrupt error, never silently dropped.
func (s *Store) Get(ref fourchan.ThreadRef) (*Entry, error) {
	data, err := os.ReadFile(s.entryPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.New(errors.ErrorTypeCacheCorrupt,
			fmt.Sprintf("cache entry for %s undecodable: %v", ref, err))
	}

	return &entry, nil
}

// Put overwrites the entry for ref atomically
func (s *Store) Put(ref fourchan.ThreadRef, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	path := s.entryPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}

	return nil
}

// Remove deletes the entry for ref; absent entries are a no-op
func (s *Store) Remove(ref fourchan.ThreadRef) error {
	if err := os.Remove(s.entryPath(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

// ListAll enumerates every cached thread reference. Files whose names
// do not parse back into a board:id key are skipped.
func (s *Store) ListAll() ([]fourchan.ThreadRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var refs []fourchan.ThreadRef
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".json")
		ref, err := fourchan.ParseKey(key)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}

	return refs, nil
}

// Clear removes every cache entry
func (s *Store) Clear() error {
	refs, err := s.ListAll()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := s.Remove(ref); err != nil {
			return err
		}
	}
	return nil
}
