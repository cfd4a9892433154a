package match

import (
	"fmt"
	"time"

	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/charmbracelet/log"
)

// Engine binds a catalog to a composer. It is stateless per query and safe
// for concurrent use as long as its matchers are.
type Engine struct {
	catalog  *catalog.Catalog
	composer *Composer
	opts     Options
}

// NewEngine creates an engine over c with the default matchers
func NewEngine(c *catalog.Catalog, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		catalog:  c,
		composer: NewComposer(opts),
		opts:     opts,
	}
}

// NewEngineWithComposer creates an engine using a custom composer,
// e.g. one with instrumented matchers
func NewEngineWithComposer(c *catalog.Catalog, cp *Composer) *Engine {
	opts := Options{
		MaxResults:      cp.MaxResults,
		ExactSufficient: cp.ExactSufficient,
	}
	if f, ok := cp.Fuzzy.(*Fuzzy); ok {
		opts.Fuzzy = f.Options()
	}
	return &Engine{
		catalog:  c,
		composer: cp,
		opts:     opts.withDefaults(),
	}
}

// Catalog returns the searched catalog
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Options returns the effective options
func (e *Engine) Options() Options {
	return e.opts
}

// Search returns the ordered ResultSet for query.
// An empty result is not an error.
func (e *Engine) Search(query string) ([]*catalog.Record, error) {
	results, err := e.Explain(query)
	if err != nil {
		return nil, err
	}
	return Records(results), nil
}

// Explain is Search keeping the score and origin of each result.
func (e *Engine) Explain(query string) ([]Result, error) {
	if !utils.IsValidQuery(query) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQuery, query)
	}

	start := time.Now()
	results := e.composer.ComposeResults(query, e.catalog)
	log.Debugf("Matched %d records for %q in %v", len(results), query, time.Since(start))
	return results, nil
}
