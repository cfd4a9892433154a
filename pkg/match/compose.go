package match

import (
	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/catalog"
)

// Composer runs the exact matcher, falls back to fuzzy matching when the
// exact hits are few, and merges both into one capped result list.
type Composer struct {
	Exact ExactMatcher
	Fuzzy FuzzyMatcher
	// MaxResults caps the merged list.
	MaxResults int
	// ExactSufficient exact hits make the fuzzy pass unnecessary.
	ExactSufficient int
}

// NewComposer wires the default matchers with opts
func NewComposer(opts Options) *Composer {
	opts = opts.withDefaults()
	return &Composer{
		Exact:           Exact{Limit: opts.MaxResults},
		Fuzzy:           NewFuzzy(opts.Fuzzy),
		MaxResults:      opts.MaxResults,
		ExactSufficient: opts.ExactSufficient,
	}
}

// Compose returns the final ordered records for query.
func (cp *Composer) Compose(query string, c *catalog.Catalog) []*catalog.Record {
	return Records(cp.ComposeResults(query, c))
}

// ComposeResults is Compose keeping scores and origins.
// A blank query returns nothing without invoking either matcher.
func (cp *Composer) ComposeResults(query string, c *catalog.Catalog) []Result {
	if utils.IsBlank(query) {
		return nil
	}

	exact := cp.Exact.Match(query, c)
	return Merge(exact, func() []Result {
		return cp.Fuzzy.Match(query, c, cp.MaxResults)
	}, cp.MaxResults, cp.ExactSufficient)
}

// Merge puts exact hits first and appends fuzzy hits whose id is not already
// present, capping the total at max. fuzzy is only called when exact holds
// fewer than sufficient hits and the list is not full yet.
func Merge(exact []*catalog.Record, fuzzy func() []Result, max, sufficient int) []Result {
	if max <= 0 {
		max = DefaultMaxResults
	}

	merged := make([]Result, 0, max)
	filter := utils.NewIDFilter()
	for _, r := range exact {
		if len(merged) == max {
			break
		}
		if filter.ShouldInclude(r.ID) {
			merged = append(merged, Result{Record: r, Origin: OriginExact})
		}
	}

	if len(exact) >= sufficient || len(merged) == max || fuzzy == nil {
		return merged
	}

	for _, r := range fuzzy() {
		if len(merged) == max {
			break
		}
		if filter.ShouldInclude(r.Record.ID) {
			merged = append(merged, r)
		}
	}
	return merged
}
