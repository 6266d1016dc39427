// Package ledger reads and writes the per-directory metadata.json sidecar
// that records tags and provenance for uploaded assets.
//
// The sidecar is a whole-file JSON document, not an append-only log: every
// mutation is a load-mutate-save cycle. All mutating operations on a Store
// run under a per-directory exclusive section so that concurrent uploads or
// tag updates against the same asset directory cannot discard each other's
// writes.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yi-nology/asset_harbor/pkg/lock"
)

// FileName is the sidecar file name inside each asset directory.
const FileName = "metadata.json"

var (
	// ErrCorrupted reports a sidecar that exists but cannot be parsed.
	ErrCorrupted = errors.New("metadata file is corrupted")
	// ErrEntryNotFound reports that neither a ledger entry nor an on-disk
	// file exists for the requested filename.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// Entry is one asset record inside the sidecar. Filename is the join key
// between the ledger and filesystem reality.
type Entry struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"originalname,omitempty"`
	Path         string     `json:"path,omitempty"`
	Tags         []string   `json:"tags"`
	UploadDate   time.Time  `json:"uploadDate"`
	UpdateDate   *time.Time `json:"updateDate,omitempty"`
}

// File is the parsed sidecar document.
type File struct {
	Assets []Entry `json:"assets"`
}

// Find returns the index of the entry matching filename, first by exact
// filename, then by path suffix. Returns -1 when absent.
func (f *File) Find(filename string) int {
	for i, e := range f.Assets {
		if e.Filename == filename {
			return i
		}
	}
	for i, e := range f.Assets {
		if e.Path != "" && strings.HasSuffix(e.Path, filename) {
			return i
		}
	}
	return -1
}

// Store performs locked read-modify-write cycles on sidecar files.
type Store struct {
	locks *lock.KeyMutex
}

// NewStore creates a Store with its own per-directory lock set.
func NewStore() *Store {
	return &Store{locks: lock.NewKeyMutex()}
}

// Load reads the sidecar in dir. A missing file yields an empty ledger; a
// file that exists but does not parse yields ErrCorrupted so that listing
// and tag-update paths surface the damage instead of masking it.
func (s *Store) Load(dir string) (*File, error) {
	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &f, nil
}

// loadLenient treats both a missing and an unparsable sidecar as empty.
// Used on the upload path so a corrupt sidecar never blocks new uploads.
func (s *Store) loadLenient(dir string) *File {
	f, err := s.Load(dir)
	if err != nil {
		return &File{}
	}
	return f
}

// Save overwrites the sidecar in dir with the given document.
func (s *Store) Save(dir string, f *File) error {
	if f.Assets == nil {
		f.Assets = []Entry{}
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Exists reports whether dir has a sidecar file.
func (s *Store) Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// Append adds entries to the sidecar under the directory lock. The existing
// document is loaded leniently: a corrupt sidecar is replaced rather than
// allowed to block uploads.
func (s *Store) Append(dir string, entries []Entry) error {
	unlock := s.locks.Lock(dir)
	defer unlock()

	f := s.loadLenient(dir)
	f.Assets = append(f.Assets, entries...)
	return s.Save(dir, f)
}

// UpsertTags replaces the tags of the entry matching filename and stamps its
// update time. When the entry is absent but the file exists on disk, a new
// entry is synthesized; when neither exists, ErrEntryNotFound is returned.
func (s *Store) UpsertTags(dir, id, filename string, tags []string) (*Entry, error) {
	unlock := s.locks.Lock(dir)
	defer unlock()

	f, err := s.Load(dir)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	idx := f.Find(filename)
	if idx == -1 {
		filePath := filepath.Join(dir, filename)
		if _, statErr := os.Stat(filePath); statErr != nil {
			return nil, ErrEntryNotFound
		}
		f.Assets = append(f.Assets, Entry{
			ID:         id,
			Filename:   filename,
			Path:       filepath.ToSlash(filePath),
			Tags:       tags,
			UploadDate: now,
			UpdateDate: &now,
		})
		idx = len(f.Assets) - 1
	} else {
		f.Assets[idx].Tags = tags
		f.Assets[idx].UpdateDate = &now
	}

	if err := s.Save(dir, f); err != nil {
		return nil, err
	}
	entry := f.Assets[idx]
	return &entry, nil
}

// Remove deletes the entry matching filename. A missing entry is tolerated:
// removing the file is the operation that matters, the sidecar just follows.
func (s *Store) Remove(dir, filename string) error {
	unlock := s.locks.Lock(dir)
	defer unlock()

	f, err := s.Load(dir)
	if err != nil {
		return err
	}

	idx := f.Find(filename)
	if idx == -1 {
		return nil
	}
	f.Assets = append(f.Assets[:idx], f.Assets[idx+1:]...)
	return s.Save(dir, f)
}
