/*
Package catalog holds the immutable set of searchable battery records.

A Catalog is built once at startup, either from a slice of records or by
loading a JSON or msgpack file, and is never mutated afterwards. Matchers
iterate it by index and hold *Record pointers into it; they never copy the set.

	cat, err := catalog.Load("data/batteries.json")
	if err != nil {
		var le *catalog.LoadError
		errors.As(err, &le) // le.Index, le.ID name the bad entry
	}

Record ids are indexed in a Patricia trie, which doubles as the duplicate
check during construction and serves Get and WithIDPrefix lookups.
*/
package catalog

import (
	"iter"
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/text/cases"
)

// Record is one catalog entry. Name is the searched field.
type Record struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

// Catalog is an immutable, ordered collection of records.
// It is safe for concurrent reads.
type Catalog struct {
	records []Record
	folded  []string
	lower   []string
	ids     *patricia.Trie
}

// New validates records and freezes them into a Catalog.
// Records keep their input order, which is the catalog iteration order.
func New(records []Record) (*Catalog, error) {
	c := &Catalog{
		records: make([]Record, 0, len(records)),
		folded:  make([]string, 0, len(records)),
		lower:   make([]string, 0, len(records)),
		ids:     patricia.NewTrie(),
	}

	fold := cases.Fold()
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return nil, &LoadError{Index: i, ID: r.ID, Field: "id", Err: ErrMissingField}
		}
		if strings.TrimSpace(r.Name) == "" {
			return nil, &LoadError{Index: i, ID: r.ID, Field: "name", Err: ErrMissingField}
		}
		// Insert never replaces, so false means the id is already taken
		if !c.ids.Insert(patricia.Prefix(r.ID), len(c.records)) {
			return nil, &LoadError{Index: i, ID: r.ID, Err: ErrDuplicateID}
		}
		c.records = append(c.records, r)
		c.folded = append(c.folded, fold.String(r.Name))
		c.lower = append(c.lower, strings.ToLower(r.Name))
	}
	return c, nil
}

// Len returns the number of records
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// At returns the record at index i. The pointer must be treated as read-only.
func (c *Catalog) At(i int) *Record {
	return &c.records[i]
}

// Folded returns the case folded name of record i
func (c *Catalog) Folded(i int) string {
	return c.folded[i]
}

// Lower returns the lowercased name of record i
func (c *Catalog) Lower(i int) string {
	return c.lower[i]
}

// All iterates the records in catalog order.
func (c *Catalog) All() iter.Seq2[int, *Record] {
	return func(yield func(int, *Record) bool) {
		for i := range c.Len() {
			if !yield(i, &c.records[i]) {
				return
			}
		}
	}
}

// Get returns the record with the given id.
func (c *Catalog) Get(id string) (*Record, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	item := c.ids.Get(patricia.Prefix(id))
	if item == nil {
		return nil, false
	}
	return &c.records[item.(int)], true
}

// WithIDPrefix returns the records whose id starts with prefix, in catalog order.
func (c *Catalog) WithIDPrefix(prefix string) []*Record {
	if c == nil || prefix == "" {
		return nil
	}

	var indexes []int
	_ = c.ids.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		indexes = append(indexes, item.(int))
		return nil
	})
	sort.Ints(indexes)

	out := make([]*Record, len(indexes))
	for i, idx := range indexes {
		out[i] = &c.records[idx]
	}
	return out
}
