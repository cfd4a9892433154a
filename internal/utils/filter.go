package utils

// IDFilter drops records whose id was already seen.
// Not safe for concurrent use; build one per composed result.
type IDFilter struct {
	seen map[string]struct{}
}

// NewIDFilter creates an empty filter
func NewIDFilter() *IDFilter {
	return &IDFilter{seen: make(map[string]struct{})}
}

// ShouldInclude checks if an id should be included in results (not a duplicate).
// The id is remembered, so a second call with the same id returns false.
func (f *IDFilter) ShouldInclude(id string) bool {
	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = struct{}{}
	return true
}
