package match

// Defaults for the matching pipeline. The fuzzy values are tuned constants
// kept from the first release; revisit them against real query logs.
const (
	DefaultMaxResults      = 15
	DefaultExactSufficient = 5
	DefaultThreshold       = 0.3
	DefaultDistance        = 200
	DefaultLocation        = 0
	DefaultMinMatchLen     = 2
)

// Options configures an Engine
type Options struct {
	// MaxResults caps every result set.
	MaxResults int
	// ExactSufficient is the exact hit count at which fuzzy matching is skipped.
	ExactSufficient int
	Fuzzy           FuzzyOptions
}

// FuzzyOptions configures the Bitap matcher
type FuzzyOptions struct {
	// Threshold is the worst score still accepted, 0 perfect .. 1 anything.
	Threshold float64
	// Distance is how many characters away from Location a match may start
	// before its score degrades by a full point.
	Distance int
	// Location is where in the name a match is expected to start.
	Location int
	// MinMatchLen is the shortest matched fragment that counts, in runes.
	MinMatchLen int
}

// DefaultOptions returns the shipped defaults
func DefaultOptions() Options {
	return Options{
		MaxResults:      DefaultMaxResults,
		ExactSufficient: DefaultExactSufficient,
		Fuzzy:           DefaultFuzzyOptions(),
	}
}

// DefaultFuzzyOptions returns the shipped fuzzy defaults
func DefaultFuzzyOptions() FuzzyOptions {
	return FuzzyOptions{
		Threshold:   DefaultThreshold,
		Distance:    DefaultDistance,
		Location:    DefaultLocation,
		MinMatchLen: DefaultMinMatchLen,
	}
}

// withDefaults fills zero or out of range values
func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.ExactSufficient <= 0 {
		o.ExactSufficient = DefaultExactSufficient
	}
	o.Fuzzy = o.Fuzzy.withDefaults()
	return o
}

func (o FuzzyOptions) withDefaults() FuzzyOptions {
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = DefaultThreshold
	}
	if o.Distance <= 0 {
		o.Distance = DefaultDistance
	}
	if o.Location < 0 {
		o.Location = DefaultLocation
	}
	if o.MinMatchLen < 1 {
		o.MinMatchLen = DefaultMinMatchLen
	}
	return o
}
