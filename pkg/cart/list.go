/*
Package cart keeps the working selection of catalog records.

The selection is a short ordered list of record ids with quantities. Every
change is handed to a Store; stores are fail-soft, so a broken cart file
never stops a lookup session, it only costs the persisted selection.
*/
package cart

import (
	"sync"

	"github.com/bastiangx/battserve/pkg/catalog"
)

// Item is one selected record
type Item struct {
	ID   string `msgpack:"id" json:"id"`
	Name string `msgpack:"name" json:"name"`
	Qty  int    `msgpack:"qty" json:"qty"`
}

// List is the selection in insertion order. It is safe for concurrent use.
type List struct {
	mu    sync.Mutex
	items []Item
	store Store
}

// NewList creates a list seeded from store. A nil store keeps the list in memory only.
func NewList(store Store) *List {
	if store == nil {
		store = &MemoryStore{}
	}
	return &List{
		items: sanitize(store.Load()),
		store: store,
	}
}

// Add selects r. A record already in the list gets its quantity raised by one.
func (l *List) Add(r *catalog.Record) Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.index(r.ID); i >= 0 {
		l.items[i].Qty++
		l.persist()
		return l.items[i]
	}

	item := Item{ID: r.ID, Name: r.Name, Qty: 1}
	l.items = append(l.items, item)
	l.persist()
	return item
}

// Remove drops id from the list and reports whether it was there
func (l *List) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.persist()
	return true
}

// SetQty sets the quantity of id. Quantities below one are clamped to one;
// removing an item is Remove's job.
func (l *List) SetQty(id string, n int) (Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return Item{}, false
	}
	l.items[i].Qty = max(1, n)
	l.persist()
	return l.items[i], true
}

// Clear empties the list
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = nil
	l.persist()
}

// Items returns a copy of the selection
func (l *List) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of distinct selected records
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Total returns the summed quantity of all items
func (l *List) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, it := range l.items {
		total += it.Qty
	}
	return total
}

func (l *List) index(id string) int {
	for i, it := range l.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// persist must be called with mu held
func (l *List) persist() {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	l.store.Save(out)
}
