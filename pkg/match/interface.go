// Package match turns a free-text query into an ordered, deduplicated and
// capped set of catalog records.
//
// Two matchers feed the Composer: Exact, a case-insensitive substring scan,
// and Fuzzy, a Bitap approximate matcher with location-weighted scoring.
// Exact hits always rank above fuzzy ones; fuzzy matching only runs when the
// exact scan finds fewer than ExactSufficient hits.
package match

import (
	"errors"

	"github.com/bastiangx/battserve/pkg/catalog"
)

// ErrInvalidQuery is returned for queries that are not valid UTF-8 or hold NUL bytes.
var ErrInvalidQuery = errors.New("invalid query")

// ExactMatcher returns records whose name contains the query, in catalog order
type ExactMatcher interface {
	Match(query string, c *catalog.Catalog) []*catalog.Record
}

// FuzzyMatcher returns approximate matches, best first, at most limit of them
type FuzzyMatcher interface {
	Match(query string, c *catalog.Catalog, limit int) []Result
}

// Origin tells which matcher produced a result
type Origin uint8

const (
	OriginExact Origin = iota
	OriginFuzzy
)

func (o Origin) String() string {
	switch o {
	case OriginExact:
		return "exact"
	case OriginFuzzy:
		return "fuzzy"
	}
	return "unknown"
}

// Result is a scored match. Score is 0 for a perfect match and grows
// worse towards 1; exact hits carry 0.
type Result struct {
	Record *catalog.Record
	Score  float64
	Origin Origin
}

// Records strips scores, keeping order.
func Records(results []Result) []*catalog.Record {
	out := make([]*catalog.Record, len(results))
	for i, r := range results {
		out[i] = r.Record
	}
	return out
}
