package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const indexFileName = "notebooks_index.json"

// ErrNotFound reports a lookup for a notebook that has no durable record.
var ErrNotFound = errors.New("notebook not found")

// IndexEntry is the denormalized listing row kept per notebook.
type IndexEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists notebooks as one JSON file each under dir, alongside an
// index file used to enumerate them without reading every record.
type Store struct {
	dir string
}

// NewStore creates the notebooks directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create notebooks directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir reports the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Create allocates a new notebook and writes it to disk.
func (s *Store) Create(name string) (*Notebook, error) {
	nb := New(name)
	if err := s.Save(nb); err != nil {
		return nil, err
	}
	return nb, nil
}

// Save overwrites the notebook's record and refreshes its index entry.
func (s *Store) Save(nb *Notebook) error {
	data, err := json.MarshalIndent(nb, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.recordPath(nb.ID), data); err != nil {
		return fmt.Errorf("failed to save notebook: %w", err)
	}
	return s.updateIndex(nb)
}

// Load reads one notebook by ID.
func (s *Store) Load(id string) (*Notebook, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load notebook: %w", err)
	}
	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("failed to load notebook: %w", err)
	}
	return &nb, nil
}

// LoadAll returns every notebook, most recently updated first.
//
// The index is the fast path; the directory scan is the self-healing path.
// A notebook reachable by either appears exactly once, and a record that
// fails to read is logged and skipped rather than aborting the listing.
func (s *Store) LoadAll() ([]*Notebook, error) {
	var notebooks []*Notebook
	seen := map[string]bool{}

	for _, entry := range s.readIndex() {
		if seen[entry.ID] {
			continue
		}
		nb, err := s.Load(entry.ID)
		if err != nil {
			log.Printf("[store] skipping indexed notebook %s: %v", entry.ID, err)
			continue
		}
		seen[nb.ID] = true
		notebooks = append(notebooks, nb)
	}

	files, err := os.ReadDir(s.dir)
	if err != nil {
		if len(notebooks) > 0 {
			log.Printf("[store] failed to scan notebooks directory: %v", err)
			return sortByUpdated(notebooks), nil
		}
		return nil, fmt.Errorf("failed to list notebooks: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" || file.Name() == indexFileName {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, file.Name()))
		if err != nil {
			log.Printf("[store] failed to read %s: %v", file.Name(), err)
			continue
		}
		var nb Notebook
		if err := json.Unmarshal(data, &nb); err != nil {
			log.Printf("[store] failed to parse %s: %v", file.Name(), err)
			continue
		}
		if nb.ID == "" || seen[nb.ID] {
			continue
		}
		seen[nb.ID] = true
		notebooks = append(notebooks, &nb)
	}

	return sortByUpdated(notebooks), nil
}

// Delete removes the notebook's record and index entry. Deleting a notebook
// that is already absent is not an error.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.recordPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete notebook: %w", err)
	}
	return s.removeFromIndex(id)
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFileName)
}

// readIndex returns the current index rows. A missing or corrupt index is
// treated as empty so LoadAll falls back to the directory scan.
func (s *Store) readIndex() []IndexEntry {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[store] failed to read index: %v", err)
		}
		return nil
	}
	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[store] failed to parse index: %v", err)
		return nil
	}
	return entries
}

func (s *Store) updateIndex(nb *Notebook) error {
	entries := s.readIndex()
	kept := make([]IndexEntry, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.ID == nb.ID {
			continue
		}
		kept = append(kept, entry)
	}
	kept = append(kept, IndexEntry{ID: nb.ID, Name: nb.Name, UpdatedAt: nb.UpdatedAt})
	return s.writeIndex(kept)
}

func (s *Store) removeFromIndex(id string) error {
	entries := s.readIndex()
	kept := entries[:0]
	for _, entry := range entries {
		if entry.ID == id {
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) == len(entries) {
		return nil
	}
	return s.writeIndex(kept)
}

func (s *Store) writeIndex(entries []IndexEntry) error {
	if entries == nil {
		entries = []IndexEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.indexPath(), data); err != nil {
		return fmt.Errorf("failed to update index: %w", err)
	}
	return nil
}

// writeFileAtomic writes via a temp file and rename so a reader never
// observes a half-written record.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lectern-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func sortByUpdated(notebooks []*Notebook) []*Notebook {
	sort.SliceStable(notebooks, func(i, j int) bool {
		return notebooks[i].UpdatedAt.After(notebooks[j].UpdatedAt)
	})
	return notebooks
}
