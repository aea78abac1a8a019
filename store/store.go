// Package store persists named mapping sets. MemoryStore serves tests and
// ephemeral sessions; FileStore keeps everything in a single JSON file,
// rewritten atomically on every change.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/MariaGuerraSappho/manos/mapper"
)

// ErrNotFound is returned when no set with the requested id exists.
var ErrNotFound = errors.New("store: mapping set not found")

// MemoryStore holds mapping sets in memory.
type MemoryStore struct {
	mu   sync.Mutex
	sets map[string]mapper.MappingSet
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]mapper.MappingSet)}
}

// Save stores or replaces a set.
func (s *MemoryStore) Save(set mapper.MappingSet) error {
	if set.ID == "" {
		return errors.New("store: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := set
	stored.Mappings = make([]mapper.Mapping, len(set.Mappings))
	copy(stored.Mappings, set.Mappings)

	s.sets[set.ID] = stored

	return nil
}

// Load returns the set with the given id.
func (s *MemoryStore) Load(id string) (mapper.MappingSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[id]
	if !ok {
		return mapper.MappingSet{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	out := set
	out.Mappings = make([]mapper.Mapping, len(set.Mappings))
	copy(out.Mappings, set.Mappings)

	return out, nil
}

// List returns the stored sets sorted by id.
func (s *MemoryStore) List() ([]mapper.MappingSetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]mapper.MappingSetInfo, 0, len(s.sets))
	for _, set := range s.sets {
		out = append(out, mapper.MappingSetInfo{ID: set.ID, Name: set.Name})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// Delete removes a set.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	delete(s.sets, id)

	return nil
}

type fileLayout struct {
	Sets []mapper.MappingSet `json:"sets"`
}

// FileStore keeps all sets in one JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens (or prepares to create) the store file at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}

	return &FileStore{path: path}, nil
}

// Save stores or replaces a set.
func (s *FileStore) Save(set mapper.MappingSet) error {
	if set.ID == "" {
		return errors.New("store: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.readLocked()
	if err != nil {
		return err
	}

	replaced := false

	for i := range layout.Sets {
		if layout.Sets[i].ID == set.ID {
			layout.Sets[i] = set
			replaced = true

			break
		}
	}

	if !replaced {
		layout.Sets = append(layout.Sets, set)
	}

	return s.writeLocked(layout)
}

// Load returns the set with the given id.
func (s *FileStore) Load(id string) (mapper.MappingSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.readLocked()
	if err != nil {
		return mapper.MappingSet{}, err
	}

	for _, set := range layout.Sets {
		if set.ID == id {
			return set, nil
		}
	}

	return mapper.MappingSet{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// List returns the stored sets in file order.
func (s *FileStore) List() ([]mapper.MappingSetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	out := make([]mapper.MappingSetInfo, len(layout.Sets))
	for i, set := range layout.Sets {
		out[i] = mapper.MappingSetInfo{ID: set.ID, Name: set.Name}
	}

	return out, nil
}

// Delete removes a set.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.readLocked()
	if err != nil {
		return err
	}

	for i, set := range layout.Sets {
		if set.ID == id {
			layout.Sets = append(layout.Sets[:i], layout.Sets[i+1:]...)

			return s.writeLocked(layout)
		}
	}

	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

func (s *FileStore) readLocked() (fileLayout, error) {
	var layout fileLayout

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return layout, nil
	}

	if err != nil {
		return layout, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	if err := json.Unmarshal(data, &layout); err != nil {
		return layout, fmt.Errorf("store: parse %s: %w", s.path, err)
	}

	return layout, nil
}

// writeLocked rewrites the file through a temp file and rename, so readers
// never see a half-written store.
func (s *FileStore) writeLocked(layout fileLayout) error {
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, ".mappings-*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("store: write %s: %w", s.path, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("store: close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}

	return nil
}
