package match

import (
	"math"
	"sort"

	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/catalog"
)

// Fuzzy is an approximate matcher over record names, tolerant of typos and
// of matches that start away from the beginning of the name.
//
// Each name is scored with Bitap; names scoring worse than Threshold are
// dropped. The score is then raised to the name's length norm,
// 1/sqrt(tokens), so a short name beats a long one for an equally good hit.
type Fuzzy struct {
	opts FuzzyOptions
}

// NewFuzzy creates a fuzzy matcher; zero fields fall back to defaults
func NewFuzzy(opts FuzzyOptions) *Fuzzy {
	return &Fuzzy{opts: opts.withDefaults()}
}

// Options returns the effective options
func (f *Fuzzy) Options() FuzzyOptions {
	return f.opts
}

type fuzzyHit struct {
	index int
	score float64
}

// Match returns up to limit results, best score first, ties in catalog order.
// Queries shorter than MinMatchLen runes never match.
func (f *Fuzzy) Match(query string, c *catalog.Catalog, limit int) []Result {
	if utils.RuneLen(query) < f.opts.MinMatchLen || c.Len() == 0 {
		return nil
	}

	searcher := newBitapSearcher(query, f.opts)
	var hits []fuzzyHit
	for i := range c.Len() {
		ok, score := searcher.searchIn([]rune(c.Lower(i)))
		if !ok {
			continue
		}
		hits = append(hits, fuzzyHit{
			index: i,
			score: normalizeScore(score, c.At(i).Name),
		})
	}

	// stable sort keeps catalog order for equal scores
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score < hits[b].score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Record: c.At(h.index), Score: h.score, Origin: OriginFuzzy}
	}
	return results
}

// normalizeScore applies the field length norm. A perfect 0 becomes
// epsilon first so perfect hits still compare among themselves.
func normalizeScore(score float64, name string) float64 {
	if score == 0 {
		score = epsilon
	}
	return math.Pow(score, fieldNorm(name))
}

// epsilon is the gap between 1 and the next float64.
const epsilon = 2.220446049250313e-16

// fieldNorm is 1/sqrt(token count) rounded to three decimals.
func fieldNorm(name string) float64 {
	tokens := utils.CountTokens(name)
	if tokens < 1 {
		tokens = 1
	}
	n := 1 / math.Sqrt(float64(tokens))
	return math.Round(n*1000) / 1000
}
