package match

import (
	"strings"

	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/catalog"
	"golang.org/x/text/cases"
)

// Exact is a case-insensitive substring matcher over record names.
type Exact struct {
	// Limit caps the hits; 0 means DefaultMaxResults.
	Limit int
}

// Match returns records whose name contains query, in catalog order.
// A blank query matches nothing rather than everything.
func (e Exact) Match(query string, c *catalog.Catalog) []*catalog.Record {
	if utils.IsBlank(query) || c.Len() == 0 {
		return nil
	}

	limit := e.Limit
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	needle := cases.Fold().String(query)
	var hits []*catalog.Record
	for i := range c.Len() {
		if strings.Contains(c.Folded(i), needle) {
			hits = append(hits, c.At(i))
			if len(hits) == limit {
				break
			}
		}
	}
	return hits
}
