package cart

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/bastiangx/battserve/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Store persists the selection. Implementations never fail the caller:
// Load returns an empty selection when nothing usable is stored and Save
// only logs what went wrong.
type Store interface {
	Load() []Item
	Save(items []Item)
}

// FileStore keeps the selection in a msgpack file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path; the file is created on first save
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored selection
func (s *FileStore) Load() []Item {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warnf("Reading cart %s: %v", s.path, err)
		}
		return nil
	}

	var items []Item
	if err := msgpack.Unmarshal(data, &items); err != nil {
		log.Warnf("Cart %s is unreadable, starting empty: %v", s.path, err)
		return nil
	}

	log.Debugf("Loaded %d cart items from %s", len(items), s.path)
	return sanitize(items)
}

// Save replaces the stored selection. The file is swapped in atomically so
// a crash mid-write leaves the previous selection intact.
func (s *FileStore) Save(items []Item) {
	if items == nil {
		items = []Item{}
	}
	data, err := msgpack.Marshal(items)
	if err != nil {
		log.Warnf("Encoding cart: %v", err)
		return
	}

	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		log.Warnf("Saving cart %s: %v", s.path, err)
	}
}

// MemoryStore keeps the selection in memory, mostly for tests and the CLI
// when no cart file is wanted
type MemoryStore struct {
	mu    sync.Mutex
	items []Item
	saves int
}

// NewMemoryStore creates a store seeded with items
func NewMemoryStore(items ...Item) *MemoryStore {
	return &MemoryStore{items: items}
}

func (s *MemoryStore) Load() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *MemoryStore) Save(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.saves++
}

// Saves returns how often Save was called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// sanitize drops entries without an id, merges repeated ids and clamps
// quantities to at least one
func sanitize(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}

	out := make([]Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			continue
		}
		it.Qty = max(1, it.Qty)
		if i, ok := index[it.ID]; ok {
			out[i].Qty += it.Qty
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
