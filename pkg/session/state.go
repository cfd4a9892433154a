package session

import (
	"time"

	"github.com/bastiangx/battserve/pkg/catalog"
)

// State is where a session is in its query lifecycle.
type State int

const (
	// Idle holds no query and an empty ResultSet.
	Idle State = iota
	// Debouncing waits out the quiet interval for the latest query.
	Debouncing
	// Matching runs the pass for the latest query.
	Matching
	// Published holds the ResultSet of the latest query.
	Published
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Matching:
		return "matching"
	case Published:
		return "published"
	default:
		return "unknown"
	}
}

// Update is one published ResultSet. Seq is the sequence number of the pass
// that produced it, or the number a clear took to invalidate older passes.
type Update struct {
	Seq     uint64
	Query   string
	Results []*catalog.Record
	// Elapsed is how long the matching pass took, zero for a clear.
	Elapsed time.Duration
}

// Stats counts what the event loop did since the session started.
type Stats struct {
	// Passes is the number of matching passes started.
	Passes uint64
	// Discarded is the number of passes whose results were dropped because a
	// newer query had been issued by the time they completed.
	Discarded uint64
	// Published is the number of ResultSets made current, clears included.
	Published uint64
}

type snapshot struct {
	state   State
	query   string
	seq     uint64
	results []*catalog.Record
}
